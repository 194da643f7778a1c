// Package spinner provides a terminal spinner with ticker-style status display.
// It shows a spinning indicator, elapsed time, and the latest log line from a
// subprocess, updating in place without polluting the terminal buffer.
package spinner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Spinner displays a spinner with ticker-style status updates. Daemon
// output can be piped through Writer(), and the latest line is shown
// next to the spinner while the full output goes wherever the caller
// tees it.
type Spinner struct {
	title    string
	program  *tea.Program
	reader   *io.PipeReader
	writer   *io.PipeWriter
	lineCh   chan string
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	output   io.Writer
}

// New creates a Spinner labeled with title that renders to output
// (typically os.Stderr). If output is nil, os.Stderr is used.
func New(title string, output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}

	reader, writer := io.Pipe()
	return &Spinner{
		title:  title,
		reader: reader,
		writer: writer,
		lineCh: make(chan string, 100), // Buffer to avoid blocking the pipe reader
		done:   make(chan struct{}),
		output: output,
	}
}

// Writer returns the io.Writer that should receive the subprocess output.
// Lines written here appear in the spinner's status display.
func (s *Spinner) Writer() io.Writer {
	return s.writer
}

// Start begins the spinner display. This blocks until Stop() is called.
// Call this in a goroutine if you need to do work while the spinner runs.
func (s *Spinner) Start() error {
	s.wg.Add(1)
	go s.readLines()

	width := 80
	if fd := int(os.Stderr.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}

	m := newModel(s.title, s.lineCh, width)

	s.program = tea.NewProgram(m,
		tea.WithOutput(s.output),
		tea.WithoutSignalHandler(), // Let parent handle signals
	)

	_, err := s.program.Run()

	s.wg.Wait()

	return err
}

// Stop stops the spinner and cleans up resources. It is safe to call
// more than once. The spinner line is cleared from the terminal.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		// Close the writer to signal EOF to the line reader
		_ = s.writer.Close()

		close(s.done)

		if s.program != nil {
			s.program.Quit()
		}
	})
}

// readLines reads lines from the pipe and sends them to the model.
func (s *Spinner) readLines() {
	defer s.wg.Done()
	defer s.reader.Close()

	scanner := bufio.NewScanner(s.reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case s.lineCh <- line:
		case <-s.done:
			return
		}
	}
}

// model is the bubbletea model for the spinner.
type model struct {
	spinner    spinner.Model
	title      string
	statusLine string
	started    time.Time
	width      int
	lineCh     <-chan string
	quitting   bool
}

// lineMsg is sent when a new line is received from the pipe.
type lineMsg string

func newModel(title string, lineCh <-chan string, width int) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner: s,
		title:   title,
		started: time.Now(),
		width:   width,
		lineCh:  lineCh,
	}
}

// Init implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForLine(m.lineCh),
	)
}

// Update implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Allow ctrl+c to quit
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case lineMsg:
		m.statusLine = string(msg)
		return m, waitForLine(m.lineCh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.QuitMsg:
		m.quitting = true
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) View() string {
	if m.quitting {
		return "" // Clear the line on exit
	}

	elapsed := time.Since(m.started).Round(time.Second)
	prefix := fmt.Sprintf("%s %s [%s] ", m.spinner.View(), m.title, elapsed)

	maxLineWidth := m.width - lipgloss.Width(prefix)
	if maxLineWidth < 10 {
		maxLineWidth = 10
	}

	return prefix + truncate(m.statusLine, maxLineWidth)
}

// waitForLine returns a command that waits for the next line from the channel.
func waitForLine(lineCh <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lineCh
		if !ok {
			return tea.Quit()
		}
		return lineMsg(line)
	}
}

// truncate shortens a string to fit within maxWidth.
// If truncated, it adds "..." at the end.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return ""
	}
	if len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth-3] + "..."
}
