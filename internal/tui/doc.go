// Package tui provides terminal user interface components for orangectl.
//
// This package uses the Bubble Tea framework to create interactive terminal
// interfaces, primarily the instance picker behind `orangectl pick`.
//
// # Instance Picker
//
// The picker displays instances grouped by template and allows selection:
//
//	opts := tui.PickerOptions{AllowCreate: true, Templates: names}
//	result, err := tui.RunPicker(infos, opts)
//	switch result.Action {
//	case tui.ActionSelect:
//	    // Show result.Instance
//	case tui.ActionNew:
//	    if result.CreateOptions != nil {
//	        // Create an instance from wizard results
//	    }
//	case tui.ActionDown:
//	    // Shut down result.Instance
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// # Picker Features
//
//   - Lists all instances grouped by template, headers auto-skipped
//   - Keyboard navigation (j/k or arrows)
//   - Quick actions: Enter (status), n (new/wizard), d (down), q (quit)
//   - Color-coded status indicators with uptime
//   - Creation wizard when AllowCreate is true (template, name, advanced)
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
