package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yomna-shousha/orange-build-sub000/internal/instance"
)

func runningInfo(instanceID, template string) instance.Info {
	i := info(instanceID, template)
	i.Meta.ProcessID = "proc-1"
	i.Meta.AllocatedPort = 8003
	i.Meta.PreviewURL = "https://" + instanceID + ".preview.test"
	i.Running = true
	return i
}

func TestTruncateEnd(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"demo-app-1a2b3c4d.preview.test", 20, "demo-app-1a2b3c4d..."},
		{"", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			got := truncateEnd(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateEnd(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "<1m"},
		{45 * time.Minute, "45m"},
		{2*time.Hour + 30*time.Minute, "2h30m"},
		{26*time.Hour + 5*time.Second, "26h0m"},
	}

	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestInstanceItemMethods(t *testing.T) {
	item := instanceItem{info: runningInfo("demo-app-1a2b3c4d", "vite-app")}

	t.Run("Title", func(t *testing.T) {
		if got := item.Title(); got != "demo-app-1a2b3c4d" {
			t.Errorf("Title() = %q, want %q", got, "demo-app-1a2b3c4d")
		}
	})

	t.Run("FilterValue", func(t *testing.T) {
		if got := item.FilterValue(); got != "demo-app-1a2b3c4d" {
			t.Errorf("FilterValue() = %q, want %q", got, "demo-app-1a2b3c4d")
		}
	})

	t.Run("Description", func(t *testing.T) {
		desc := item.Description()
		if !strings.Contains(desc, "✓") {
			t.Error("Description should contain the running status icon")
		}
		if !strings.Contains(desc, "vite-app") {
			t.Error("Description should contain the template name")
		}
		if !strings.Contains(desc, "demo-app-1a2b3c4d.preview.test") {
			t.Error("Description should contain the preview host")
		}
	})

	t.Run("Description without preview URL", func(t *testing.T) {
		stopped := instanceItem{info: info("demo-app-1a2b3c4d", "vite-app")}
		desc := stopped.Description()
		if !strings.Contains(desc, "orange-runner-0") {
			t.Error("Description should fall back to the runner name")
		}
		if !strings.Contains(desc, "stopped") {
			t.Error("Description should report a stopped instance")
		}
	})
}

func TestInstanceItemStatusIcons(t *testing.T) {
	running := runningInfo("demo-app-1a2b3c4d", "vite-app")

	degraded := info("demo-app-1a2b3c4d", "vite-app")
	degraded.Meta.SetupError = "allocate-port: no ports available"

	tests := []struct {
		name string
		info instance.Info
		icon string
	}{
		{"running", running, "✓"},
		{"stopped", info("demo-app-1a2b3c4d", "vite-app"), "●"},
		{"degraded", degraded, "⚠"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := instanceItem{info: tt.info}
			if desc := item.Description(); !strings.Contains(desc, tt.icon) {
				t.Errorf("Description for %s should contain %q: %q", tt.name, tt.icon, desc)
			}
		})
	}
}

func TestModelKeyHandling(t *testing.T) {
	infos := []instance.Info{runningInfo("demo-app-1a2b3c4d", "vite-app")}

	t.Run("quit with q", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		model := newModel.(Model)

		if model.result.Action != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", model.result.Action)
		}
		if !model.quitting {
			t.Error("Model should be quitting")
		}
		if cmd == nil {
			t.Error("Should return tea.Quit command")
		}
	})

	t.Run("quit with esc", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		model := newModel.(Model)

		if model.result.Action != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", model.result.Action)
		}
	})

	t.Run("select with enter", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model := newModel.(Model)

		if model.result.Action != ActionSelect {
			t.Errorf("Action = %v, want ActionSelect", model.result.Action)
		}
		if model.result.Instance == nil || model.result.Instance.Meta.InstanceID != "demo-app-1a2b3c4d" {
			t.Error("selected instance should be carried in the result")
		}
	})

	t.Run("down with d", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
		model := newModel.(Model)

		if model.result.Action != ActionDown {
			t.Errorf("Action = %v, want ActionDown", model.result.Action)
		}
		if model.result.Instance == nil {
			t.Error("down should carry the selected instance")
		}
	})

	t.Run("new without AllowCreate quits with ActionNew", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
		model := newModel.(Model)

		if model.result.Action != ActionNew {
			t.Errorf("Action = %v, want ActionNew", model.result.Action)
		}
		if model.result.CreateOptions != nil {
			t.Error("no wizard ran, CreateOptions should be nil")
		}
	})

	t.Run("new with AllowCreate starts the wizard", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{AllowCreate: true, Templates: []string{"vite-app"}})
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
		model := newModel.(Model)

		if model.wizard == nil {
			t.Fatal("wizard should be active")
		}
		if model.quitting {
			t.Error("picker should keep running while the wizard is active")
		}
		if !strings.Contains(model.View(), "Create New Instance") {
			t.Error("View should render the wizard")
		}

		// Esc at the first wizard step returns to the list.
		newModel, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
		model = newModel.(Model)
		if model.wizard != nil {
			t.Error("cancelled wizard should return to the list")
		}
		if model.quitting {
			t.Error("cancelling the wizard should not quit the picker")
		}
	})

	t.Run("window size update", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		newModel, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
		model := newModel.(Model)

		if model.width != 100 {
			t.Errorf("Width = %d, want 100", model.width)
		}
		if model.height != 50 {
			t.Errorf("Height = %d, want 50", model.height)
		}
		if cmd != nil {
			t.Error("Window size update should not return a command")
		}
	})
}

func TestModelInit(t *testing.T) {
	m := Model{}
	if cmd := m.Init(); cmd != nil {
		t.Error("Init() should return nil")
	}
}

func TestModelView(t *testing.T) {
	infos := []instance.Info{runningInfo("demo-app-1a2b3c4d", "vite-app")}

	t.Run("normal view contains help", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		view := m.View()

		if !strings.Contains(view, "[enter] Status") {
			t.Error("View should contain status help")
		}
		if !strings.Contains(view, "[n] New") {
			t.Error("View should contain new help")
		}
		if !strings.Contains(view, "[q] Quit") {
			t.Error("View should contain quit help")
		}
	})

	t.Run("quitting view is empty", func(t *testing.T) {
		m := NewPicker(infos, PickerOptions{})
		m.quitting = true
		if view := m.View(); view != "" {
			t.Errorf("Quitting view should be empty, got %q", view)
		}
	})
}

func TestModelResult(t *testing.T) {
	selected := runningInfo("demo-app-1a2b3c4d", "vite-app")
	m := Model{
		result: PickerResult{
			Action:   ActionSelect,
			Instance: &selected,
		},
	}

	result := m.Result()
	if result.Action != ActionSelect {
		t.Errorf("Action = %v, want ActionSelect", result.Action)
	}
	if result.Instance.Meta.InstanceID != "demo-app-1a2b3c4d" {
		t.Errorf("Instance = %q, want demo-app-1a2b3c4d", result.Instance.Meta.InstanceID)
	}
}

func TestRunPickerEmptyInstances(t *testing.T) {
	result, err := RunPicker(nil, PickerOptions{})
	if err != nil {
		t.Fatalf("RunPicker with no instances failed: %v", err)
	}

	if result.Action != ActionNew {
		t.Errorf("no instances should return ActionNew, got %v", result.Action)
	}
}

func TestSimplePicker(t *testing.T) {
	t.Run("empty instances", func(t *testing.T) {
		output := SimplePicker(nil)

		if !strings.Contains(output, "No instances found") {
			t.Error("Should indicate no instances found")
		}
		if !strings.Contains(output, "orangectl up") {
			t.Error("Should show how to create an instance")
		}
	})

	t.Run("with instances", func(t *testing.T) {
		infos := []instance.Info{
			runningInfo("demo-app-1a2b3c4d", "vite-app"),
			info("other-app-9z8y7x6w", "react-starter"),
		}

		output := SimplePicker(infos)

		if !strings.Contains(output, "Orange Build") {
			t.Error("Should contain the title")
		}
		if !strings.Contains(output, "demo-app-1a2b3c4d") {
			t.Error("Should contain the first instance id")
		}
		if !strings.Contains(output, "other-app-9z8y7x6w") {
			t.Error("Should contain the second instance id")
		}
		if !strings.Contains(output, "vite-app") {
			t.Error("Should contain the template name")
		}
		if !strings.Contains(output, "8003") {
			t.Error("Should contain the allocated port")
		}
	})
}

func TestActionConstants(t *testing.T) {
	// Verify action constants have distinct values
	actions := []Action{ActionNone, ActionSelect, ActionNew, ActionDown, ActionQuit}
	seen := make(map[Action]bool)

	for _, a := range actions {
		if seen[a] {
			t.Errorf("Duplicate action value: %v", a)
		}
		seen[a] = true
	}
}
