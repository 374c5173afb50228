// Package output provides the session's single diagnostic destination.
//
// A Sink wraps either the console or an append-mode file. Every write is
// serialized behind a mutex because the test runner's stdout and stderr are
// copied into the sink concurrently with the orchestrator's own messages.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Sink is a lock-serialized writer bound to exactly one destination.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	file   *os.File
	path   string
	closed bool
	styled bool

	info    *color.Color
	success *color.Color
	warning *color.Color
	failure *color.Color
}

// Console returns a sink bound to w, or stdout when w is nil. Colors are
// only used when writing to a color-capable stdout.
func Console(w io.Writer) *Sink {
	if w == nil {
		w = os.Stdout
	}
	return newSink(w, nil, "", w == os.Stdout && !color.NoColor)
}

// Open returns a sink appending to the file at path, creating it if needed.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return newSink(f, f, path, false), nil
}

func newSink(w io.Writer, f *os.File, path string, styled bool) *Sink {
	s := &Sink{
		w:       w,
		file:    f,
		path:    path,
		styled:  styled,
		info:    color.New(color.FgBlue),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed),
	}
	if !styled {
		for _, c := range []*color.Color{s.info, s.success, s.warning, s.failure} {
			c.DisableColor()
		}
	}
	return s
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.w.Write(p)
}

// Printf writes a formatted message followed by a newline.
func (s *Sink) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s, format+"\n", args...)
}

// Info writes an informational status line.
func (s *Sink) Info(format string, args ...any) {
	s.status(s.info, "ℹ ", format, args...)
}

// Success writes a success status line.
func (s *Sink) Success(format string, args ...any) {
	s.status(s.success, "✓ ", format, args...)
}

// Warning writes a warning status line.
func (s *Sink) Warning(format string, args ...any) {
	s.status(s.warning, "⚠ ", format, args...)
}

// Error writes an error status line.
func (s *Sink) Error(format string, args ...any) {
	s.status(s.failure, "✗ ", format, args...)
}

func (s *Sink) status(c *color.Color, indicator, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	_, _ = c.Fprintf(s.w, indicator+format+"\n", args...)
}

// Banner writes a block of text, styled on color consoles.
func (s *Sink) Banner(text string) {
	if s.styled {
		text = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Render(text)
	}
	_, _ = io.WriteString(s, text)
}

// IsFile reports whether the sink writes to a file.
func (s *Sink) IsFile() bool {
	return s.file != nil
}

// Path returns the file path, or "" for console sinks.
func (s *Sink) Path() string {
	return s.path
}

// Close flushes and closes a file sink. Console sinks are left open.
// Close is idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil || s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("sync output file: %w", err)
	}
	return s.file.Close()
}
