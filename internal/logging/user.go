package logging

import (
	"fmt"
	"io"
	"os"
)

// User-facing output, separate from the structured slog stream. Commands
// print progress and results through these; slog carries the debug trail.
// Info and success go to stdout, warnings and errors to stderr, each line
// prefixed with a status glyph.

func userf(w io.Writer, glyph, format string, args ...interface{}) {
	fmt.Fprintf(w, glyph+" "+format+"\n", args...)
}

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...interface{}) {
	userf(os.Stdout, "ℹ", format, args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...interface{}) {
	userf(os.Stdout, "✓", format, args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...interface{}) {
	userf(os.Stderr, "⚠", format, args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...interface{}) {
	userf(os.Stderr, "✗", format, args...)
}
