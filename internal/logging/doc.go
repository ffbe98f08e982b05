// Package logging carries the two output streams of orangectl.
//
// The first is a structured slog stream for debugging. Setup installs the
// handler once at command startup; --verbose lowers the level to Debug and
// --json switches the handler from text to JSON. Call sites use the
// package-level helpers:
//
//	logging.Debug("creating instance", "instance", id, "template", template)
//	logging.Warn("readiness timeout", "instance", id, "timeout", timeout)
//
// With returns a logger with bound attributes for code that logs the same
// instance repeatedly.
//
// The second stream is user-facing command output, printed with a status
// glyph and never routed through slog:
//
//	logging.UserInfo("Fetching template %s...", templateName)    // ℹ stdout
//	logging.UserSuccess("Instance %s is ready", id)               // ✓ stdout
//	logging.UserWarning("Port %d is already in use", port)        // ⚠ stderr
//	logging.UserError("Failed to create instance: %v", err)       // ✗ stderr
//
// Commands print progress through the User functions and leave the slog
// stream to carry the detail a bug report needs.
package logging
