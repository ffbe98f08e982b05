package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yomna-shousha/orange-build-sub000/internal/config"
)

// CreateOptions holds the values collected by the creation wizard.
type CreateOptions struct {
	Template    string
	ProjectName string
	Wait        bool
	WebhookURL  string
	DevCommand  string
}

// wizardStep identifies the current step.
type wizardStep int

const (
	stepTemplate wizardStep = iota
	stepName
	stepAdvanced
	stepConfirm
)

// advancedField identifies a field in the advanced step.
type advancedField int

const (
	advWait advancedField = iota
	advWebhook
	advDevCommand
	advFieldCount
)

// wizardModel drives the multi-step creation wizard.
type wizardModel struct {
	step wizardStep

	// Step 1: template
	templateList list.Model
	templates    []string

	// Step 2: name
	nameInput textinput.Model

	// Step 3: advanced
	advCursor       advancedField
	wait            bool
	webhookInput    textinput.Model
	devCommandInput textinput.Model

	// Collected values
	selectedTemplate string
	selectedName     string

	width  int
	height int
}

// templateItem implements list.Item for template selection.
type templateItem struct {
	name string
}

func (t templateItem) Title() string       { return t.name }
func (t templateItem) Description() string { return "" }
func (t templateItem) FilterValue() string { return t.name }

// wizardStyles
var (
	wizardTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("208")).
				MarginBottom(1)

	wizardStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	wizardActiveStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("208"))

	wizardLabelStyle = lipgloss.NewStyle().
				Bold(true).
				MarginBottom(1)

	wizardValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("208"))

	wizardDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func newWizardModel(templates []string) wizardModel {
	ni := textinput.New()
	ni.Placeholder = "project-name"
	ni.CharLimit = 63
	ni.Width = 40

	wi := textinput.New()
	wi.Placeholder = "https://example.com/hooks/build"
	wi.CharLimit = 256
	wi.Width = 60

	di := textinput.New()
	di.Placeholder = "npm run dev"
	di.CharLimit = 256
	di.Width = 60

	w := wizardModel{
		step:            stepTemplate,
		templates:       templates,
		nameInput:       ni,
		wait:            true,
		webhookInput:    wi,
		devCommandInput: di,
	}
	w.loadTemplates()
	return w
}

func (w *wizardModel) Init() tea.Cmd {
	return nil
}

// Update processes a message and returns (done, createOptions, cmd).
// done=true with non-nil opts means the wizard completed successfully.
// done=true with nil opts means the wizard was cancelled.
func (w *wizardModel) Update(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC:
			return true, nil, nil
		case tea.KeyEsc:
			return w.handleBack()
		}
	}

	switch w.step {
	case stepTemplate:
		return w.updateTemplate(msg)
	case stepName:
		return w.updateName(msg)
	case stepAdvanced:
		return w.updateAdvanced(msg)
	case stepConfirm:
		return w.updateConfirm(msg)
	}

	return false, nil, nil
}

func (w *wizardModel) handleBack() (bool, *CreateOptions, tea.Cmd) {
	switch w.step {
	case stepTemplate:
		// Esc at first step cancels the wizard
		return true, nil, nil
	case stepName:
		w.step = stepTemplate
		w.nameInput.Blur()
		return false, nil, nil
	case stepAdvanced, stepConfirm:
		w.step = stepName
		w.nameInput.Focus()
		return false, nil, textinput.Blink
	}
	return false, nil, nil
}

func (w *wizardModel) updateTemplate(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		if item, ok := w.templateList.SelectedItem().(templateItem); ok {
			w.selectedTemplate = item.name
			w.step = stepName
			w.nameInput.Focus()
			w.nameInput.SetValue(suggestName(w.selectedTemplate))
			return false, nil, textinput.Blink
		}
		return false, nil, nil
	}

	var cmd tea.Cmd
	w.templateList, cmd = w.templateList.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) updateName(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			name := strings.TrimSpace(w.nameInput.Value())
			if name == "" {
				return false, nil, nil
			}
			if err := config.ValidateProjectName(name); err != nil {
				return false, nil, nil
			}
			w.selectedName = name
			w.step = stepConfirm
			w.nameInput.Blur()
			return false, nil, nil
		case tea.KeyCtrlA:
			w.selectedName = strings.TrimSpace(w.nameInput.Value())
			w.step = stepAdvanced
			w.nameInput.Blur()
			return false, nil, nil
		}
	}

	var cmd tea.Cmd
	w.nameInput, cmd = w.nameInput.Update(msg)
	return false, nil, cmd
}

func (w *wizardModel) isTextInputField() bool {
	return w.advCursor == advWebhook || w.advCursor == advDevCommand
}

func (w *wizardModel) activeTextInput() *textinput.Model {
	switch w.advCursor {
	case advWebhook:
		return &w.webhookInput
	case advDevCommand:
		return &w.devCommandInput
	}
	return nil
}

func (w *wizardModel) blurAdvTextInputs() {
	w.webhookInput.Blur()
	w.devCommandInput.Blur()
}

func (w *wizardModel) focusCurrentTextField() tea.Cmd {
	w.blurAdvTextInputs()
	if ti := w.activeTextInput(); ti != nil {
		ti.Focus()
		return textinput.Blink
	}
	return nil
}

func (w *wizardModel) updateAdvanced(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	// If we're on a text input field, forward keystrokes to it
	if w.isTextInputField() {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.Type {
			case tea.KeyEnter:
				w.blurAdvTextInputs()
				w.step = stepConfirm
				return false, nil, nil
			case tea.KeyUp:
				w.advCursor = (w.advCursor - 1 + advFieldCount) % advFieldCount
				return false, nil, w.focusCurrentTextField()
			case tea.KeyDown, tea.KeyTab:
				w.advCursor = (w.advCursor + 1) % advFieldCount
				return false, nil, w.focusCurrentTextField()
			}
		}
		if ti := w.activeTextInput(); ti != nil {
			var cmd tea.Cmd
			*ti, cmd = ti.Update(msg)
			return false, nil, cmd
		}
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			w.step = stepConfirm
			return false, nil, nil
		case "j", "down", "tab":
			w.advCursor = (w.advCursor + 1) % advFieldCount
			return false, nil, w.focusCurrentTextField()
		case "k", "up":
			w.advCursor = (w.advCursor - 1 + advFieldCount) % advFieldCount
			return false, nil, w.focusCurrentTextField()
		case " ":
			if w.advCursor == advWait {
				w.wait = !w.wait
			}
			return false, nil, nil
		}
	}
	return false, nil, nil
}

func (w *wizardModel) updateConfirm(msg tea.Msg) (bool, *CreateOptions, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter", "y":
			return true, &CreateOptions{
				Template:    w.selectedTemplate,
				ProjectName: w.selectedName,
				Wait:        w.wait,
				WebhookURL:  strings.TrimSpace(w.webhookInput.Value()),
				DevCommand:  strings.TrimSpace(w.devCommandInput.Value()),
			}, nil
		case "n":
			// Restart wizard
			w.step = stepTemplate
			w.selectedTemplate = ""
			w.selectedName = ""
			w.wait = true
			w.nameInput.SetValue("")
			w.webhookInput.SetValue("")
			w.devCommandInput.SetValue("")
			return false, nil, nil
		}
	}
	return false, nil, nil
}

func (w *wizardModel) View() string {
	var b strings.Builder

	b.WriteString(wizardTitleStyle.Render("Create New Instance"))
	b.WriteString("\n")
	b.WriteString(w.progressBar())
	b.WriteString("\n\n")

	switch w.step {
	case stepTemplate:
		b.WriteString(wizardLabelStyle.Render("Select template:"))
		b.WriteString("\n")
		b.WriteString(w.templateList.View())
	case stepName:
		b.WriteString(wizardLabelStyle.Render("Project name:"))
		b.WriteString("\n")
		b.WriteString(w.nameInput.View())
		b.WriteString("\n\n")
		b.WriteString(wizardDimStyle.Render("Enter to confirm, Ctrl+A for advanced options."))
	case stepAdvanced:
		b.WriteString(wizardLabelStyle.Render("Advanced options:"))
		b.WriteString("\n\n")
		b.WriteString(w.renderToggle(advWait, "Wait for ready", "Block until the dev server answers or times out"))
		b.WriteString("\n")
		b.WriteString(w.renderTextInput(advWebhook, "Webhook URL", "Notified on lifecycle events", &w.webhookInput))
		b.WriteString("\n")
		b.WriteString(w.renderTextInput(advDevCommand, "Dev command", "Overrides the template's dev server command", &w.devCommandInput))
		b.WriteString("\n\n")
		b.WriteString(wizardDimStyle.Render("Space/type to edit, Enter to continue, Esc to go back."))
	case stepConfirm:
		b.WriteString(wizardLabelStyle.Render("Confirm:"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  Template: %s\n", wizardValueStyle.Render(w.selectedTemplate)))
		b.WriteString(fmt.Sprintf("  Name:     %s\n", wizardValueStyle.Render(w.selectedName)))
		if !w.wait {
			b.WriteString(fmt.Sprintf("  Wait:     %s\n", wizardValueStyle.Render("no (background setup)")))
		}
		if v := strings.TrimSpace(w.webhookInput.Value()); v != "" {
			b.WriteString(fmt.Sprintf("  Webhook:  %s\n", wizardValueStyle.Render(v)))
		}
		if v := strings.TrimSpace(w.devCommandInput.Value()); v != "" {
			b.WriteString(fmt.Sprintf("  Command:  %s\n", wizardValueStyle.Render(v)))
		}
		b.WriteString("\n")
		b.WriteString(wizardDimStyle.Render("Enter to create, n to restart, Esc to go back."))
	}

	return b.String()
}

func (w *wizardModel) progressBar() string {
	steps := []struct {
		num  int
		name string
	}{
		{1, "Template"},
		{2, "Name"},
		{3, "Confirm"},
	}

	var parts []string
	for _, s := range steps {
		label := fmt.Sprintf("%d. %s", s.num, s.name)
		currentStep := int(w.step) + 1
		// Map stepAdvanced to stepName for progress display
		if w.step == stepAdvanced {
			currentStep = int(stepName) + 1
		}
		if w.step == stepConfirm {
			currentStep = 3
		}
		if s.num == currentStep {
			parts = append(parts, wizardActiveStepStyle.Render(label))
		} else {
			parts = append(parts, wizardStepStyle.Render(label))
		}
	}

	return strings.Join(parts, wizardDimStyle.Render(" > "))
}

func (w *wizardModel) renderToggle(field advancedField, name, desc string) string {
	cursor := " "
	if w.advCursor == field {
		cursor = ">"
	}

	checked := " "
	if field == advWait && w.wait {
		checked = "x"
	}

	line := fmt.Sprintf("  %s [%s] %s", cursor, checked, name)
	if w.advCursor == field {
		return selectedStyle.Render(line) + "\n" + wizardDimStyle.Render("      "+desc)
	}
	return line + "\n" + wizardDimStyle.Render("      "+desc)
}

func (w *wizardModel) renderTextInput(field advancedField, name, desc string, ti *textinput.Model) string {
	cursor := " "
	if w.advCursor == field {
		cursor = ">"
	}

	val := strings.TrimSpace(ti.Value())
	if w.advCursor == field {
		line := fmt.Sprintf("  %s %s: %s", cursor, name, ti.View())
		return selectedStyle.Render(line) + "\n" + wizardDimStyle.Render("      "+desc)
	}
	if val == "" {
		line := fmt.Sprintf("  %s %s: (not set)", cursor, name)
		return line + "\n" + wizardDimStyle.Render("      "+desc)
	}
	line := fmt.Sprintf("  %s %s: %s", cursor, name, val)
	return line + "\n" + wizardDimStyle.Render("      "+desc)
}

func (w *wizardModel) loadTemplates() {
	var items []list.Item
	for _, name := range w.templates {
		items = append(items, templateItem{name: name})
	}

	if len(items) == 0 {
		// Nothing published yet; offer the conventional starter name.
		items = append(items, templateItem{name: "vite-app"})
		w.templates = append(w.templates, "vite-app")
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.Styles.SelectedTitle = selectedStyle

	l := list.New(items, delegate, 60, 10)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	if w.width > 0 {
		l.SetWidth(w.width - 4)
	}
	if w.height > 0 {
		l.SetHeight(w.height - 10)
	}

	w.templateList = l
}

// sanitizeNameRegex matches characters not valid in project names.
var sanitizeNameRegex = regexp.MustCompile(`[^a-z0-9-]`)

// suggestName derives a project name suggestion from the template name.
func suggestName(template string) string {
	name := strings.ToLower(template)
	name = sanitizeNameRegex.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		return "app"
	}
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	return name
}
