// Package logging provides formatted stderr output for the hed CLI.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	prefixStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
)

// Logger writes status lines for the CLI. Quiet suppresses everything but
// errors; Debug only prints when verbose.
type Logger struct {
	out     io.Writer
	quiet   bool
	verbose bool
}

// NewStderrLogger creates a Logger writing to stderr.
func NewStderrLogger(quiet, verbose bool) *Logger {
	return New(os.Stderr, quiet, verbose)
}

// New creates a Logger writing to out.
func New(out io.Writer, quiet, verbose bool) *Logger {
	return &Logger{out: out, quiet: quiet, verbose: verbose}
}

func (l *Logger) line(label string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if label == "" {
		fmt.Fprintf(l.out, "%s %s\n", prefixStyle.Render("[hed]"), msg)
		return
	}
	fmt.Fprintf(l.out, "%s %s %s\n", prefixStyle.Render("[hed]"), label, msg)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if l.quiet {
		return
	}
	l.line("", format, args...)
}

// Success logs a completed change.
func (l *Logger) Success(format string, args ...any) {
	if l.quiet {
		return
	}
	l.line(successStyle.Render("✓"), format, args...)
}

// Warn logs something the user should look at.
func (l *Logger) Warn(format string, args ...any) {
	if l.quiet {
		return
	}
	l.line(warnStyle.Render("!"), format, args...)
}

// Debug logs a debug message (only if verbose is enabled).
func (l *Logger) Debug(format string, args ...any) {
	if l.quiet || !l.verbose {
		return
	}
	l.line("DEBUG:", format, args...)
}

// Error logs an error message. Errors are printed even when quiet.
func (l *Logger) Error(format string, args ...any) {
	l.line(errorStyle.Render("Error:"), format, args...)
}
