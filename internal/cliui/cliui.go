// Package cliui provides the small set of lipgloss-styled output helpers
// shared by the build and inspect commands: a section header, a labeled
// info line, and a simple terminal spinner for long-running steps.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Header prints a bold section title.
func Header(w io.Writer, title string) {
	fmt.Fprintln(w, headerStyle.Render(title))
}

// Info prints a "label: value" line with the label dimmed.
func Info(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(fmt.Sprint(value)))
}

// Warn prints a warning line.
func Warn(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("! "+msg))
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner renders a simple animated spinner with a trailing label while a
// build step runs, stopping cleanly when Stop is called.
type Spinner struct {
	w      io.Writer
	label  string
	done   chan struct{}
	once   sync.Once
}

// NewSpinner starts a spinner goroutine immediately.
func NewSpinner(w io.Writer, label string) *Spinner {
	s := &Spinner{w: w, label: label, done: make(chan struct{})}
	go s.run()
	return s
}

func (s *Spinner) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-s.done:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-ticker.C:
			fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.label)
			i++
		}
	}
}

// Stop halts the spinner animation and clears its line.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
}
