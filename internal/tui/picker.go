package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yomna-shousha/orange-build-sub000/internal/instance"
)

// Action represents the action to take after picker selection.
type Action int

const (
	ActionNone Action = iota
	ActionSelect
	ActionNew
	ActionDown
	ActionQuit
)

// PickerResult holds the result of the picker.
type PickerResult struct {
	Action   Action
	Instance *instance.Info

	// CreateOptions is set when the in-picker wizard completed.
	CreateOptions *CreateOptions
}

// PickerOptions configures the picker.
type PickerOptions struct {
	// AllowCreate runs the creation wizard on "n" instead of returning
	// ActionNew to the caller.
	AllowCreate bool

	// Templates are the archive names offered by the wizard.
	Templates []string
}

// instanceItem implements list.Item for instance display.
type instanceItem struct {
	info instance.Info
}

func (i instanceItem) Title() string {
	return i.info.Meta.InstanceID
}

func (i instanceItem) Description() string {
	statusIcon := "●"
	state := "stopped"
	switch {
	case i.info.Meta.SetupError != "":
		statusIcon = "⚠"
		state = "setup failed"
	case i.info.Running:
		statusIcon = "✓"
		state = formatUptime(time.Since(i.info.Meta.Started()))
	}

	location := strings.TrimPrefix(i.info.Meta.PreviewURL, "https://")
	if location == "" {
		location = i.info.Runner
	}

	return fmt.Sprintf("%s %s | %s | %s",
		statusIcon,
		i.info.Meta.TemplateName,
		state,
		truncateEnd(location, 40),
	)
}

func (i instanceItem) FilterValue() string {
	return i.info.Meta.InstanceID
}

// formatUptime renders a duration as "2h30m" style, minute resolution.
func formatUptime(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	return strings.TrimSuffix(d.Truncate(time.Minute).String(), "0s")
}

func truncateEnd(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true)
)

// Model is the bubbletea model for the instance picker.
type Model struct {
	list     list.Model
	wizard   *wizardModel
	opts     PickerOptions
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new instance picker.
func NewPicker(infos []instance.Info, opts PickerOptions) Model {
	items := buildGroupedItems(infos)

	l := list.New(items, newGroupedDelegate(), 80, 20)
	l.Title = "Orange Build - Instances"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	// The first item is a group header; start on a selectable row.
	skipHeaders(&l, 1)

	return Model{
		list: l,
		opts: opts,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyCtrlC {
		m.result = PickerResult{Action: ActionQuit}
		m.quitting = true
		return m, tea.Quit
	}

	if m.wizard != nil {
		done, opts, cmd := m.wizard.Update(msg)
		if done {
			m.wizard = nil
			if opts != nil {
				m.result = PickerResult{Action: ActionNew, CreateOptions: opts}
				m.quitting = true
				return m, tea.Quit
			}
			// Cancelled: fall back to the list.
			return m, nil
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(instanceItem); ok {
				info := item.info
				m.result = PickerResult{Action: ActionSelect, Instance: &info}
				m.quitting = true
				return m, tea.Quit
			}

		case "n":
			if m.opts.AllowCreate {
				w := newWizardModel(m.opts.Templates)
				m.wizard = &w
				return m, m.wizard.Init()
			}
			m.result = PickerResult{Action: ActionNew}
			m.quitting = true
			return m, tea.Quit

		case "d":
			if item, ok := m.list.SelectedItem().(instanceItem); ok {
				info := item.info
				m.result = PickerResult{Action: ActionDown, Instance: &info}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if isHeaderSelected(&m.list) {
			skipHeaders(&m.list, navigationDirection(msg))
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.wizard != nil {
		return m.wizard.View()
	}

	help := helpStyle.Render("[enter] Status  [n] New  [d] Down  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result.
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive instance picker.
func RunPicker(infos []instance.Info, opts PickerOptions) (PickerResult, error) {
	if len(infos) == 0 {
		return PickerResult{Action: ActionNew}, nil
	}

	m := NewPicker(infos, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive fallback that just lists instances.
func SimplePicker(infos []instance.Info) string {
	var sb strings.Builder

	sb.WriteString("Orange Build - Instances\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(infos) == 0 {
		sb.WriteString("No instances found.\n")
		sb.WriteString("Create one with: orangectl up <template> -p <project>\n")
		return sb.String()
	}

	for i, info := range infos {
		statusIcon := "●"
		switch {
		case info.Meta.SetupError != "":
			statusIcon = "⚠"
		case info.Running:
			statusIcon = "✓"
		}

		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n",
			i+1, statusIcon, info.Meta.InstanceID, info.Meta.TemplateName))
		sb.WriteString(fmt.Sprintf("   Runner: %s | Port: %d | %s\n\n",
			info.Runner, info.Meta.AllocatedPort, info.Meta.PreviewURL))
	}

	return sb.String()
}
