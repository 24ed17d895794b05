package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"hark/app"
	"hark/clipboard"
	"hark/loop"
)

// controller is the slice of app.App the frontends drive.
type controller interface {
	Record() bool
	Refusal() string
	Stop()
	Clear()
	Close()
}

// callbackMsg carries a posted callback onto the program goroutine.
type callbackMsg func()

type quitMsg struct{}

type tuiModel struct {
	ctl controller

	width, height int
	recording     bool
	transcript    strings.Builder
	notice        string
	noticeErr     bool
	closed        bool
}

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	standbyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

func newTUIModel() *tuiModel {
	return &tuiModel{}
}

func runTUI(ctx context.Context, s session) error {
	m := newTUIModel()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithoutSignalHandler())

	// Send blocks until the program reads the message, so posts are queued
	// and delivered from one forwarding goroutine.
	fwd := loop.Forward(func(fn func()) { p.Send(callbackMsg(fn)) })
	defer fwd.Close()

	a, err := app.Start(ctx, app.Options{
		Config: s.cfg,
		Device: s.device,
		Client: s.client,
		Post:   fwd,
		View:   m,
	})
	if err != nil {
		return err
	}
	m.ctl = a

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Send(quitMsg{})
		case <-done:
		}
	}()

	_, err = p.Run()
	a.Close()
	if err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case callbackMsg:
		msg()

	case quitMsg:
		return m, m.quit()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, m.quit()
		case "r", " ":
			if !m.ctl.Record() {
				m.setNotice(m.ctl.Refusal(), true)
			}
		case "s":
			m.ctl.Stop()
		case "c":
			m.ctl.Clear()
		case "y":
			m.copyTranscript()
		}
	}
	return m, nil
}

func (m *tuiModel) quit() tea.Cmd {
	if !m.closed {
		m.closed = true
		m.ctl.Close()
	}
	return tea.Quit
}

func (m *tuiModel) copyTranscript() {
	text := m.transcript.String()
	if text == "" {
		m.setNotice("nothing to copy", true)
		return
	}
	if err := clipboard.Copy(text); err != nil {
		m.setNotice("copy failed: "+err.Error(), true)
		return
	}
	m.setNotice("✓ copied", false)
}

func (m *tuiModel) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *tuiModel) SetRecording(recording bool) {
	m.recording = recording
	if recording {
		m.notice = ""
	}
}

func (m *tuiModel) ShowError(err error) {
	m.setNotice("Error: "+err.Error(), true)
}

func (m *tuiModel) AppendTranscript(text string) {
	m.transcript.WriteString(text)
}

func (m *tuiModel) ClearTranscript() {
	m.transcript.Reset()
	m.notice = ""
}

func (m *tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var header []string
	if m.recording {
		header = append(header, recStyle.Render("● REC"))
	} else {
		header = append(header, standbyStyle.Render("○ STANDBY"))
	}
	if m.notice != "" {
		style := okStyle
		if m.noticeErr {
			style = errStyle
		}
		header = append(header, style.Render(m.notice))
	}
	header = append(header, "")

	footer := boldStyle.Render("r") + helpStyle.Render(" record  ") +
		boldStyle.Render("s") + helpStyle.Render(" stop  ") +
		boldStyle.Render("c") + helpStyle.Render(" clear  ") +
		boldStyle.Render("y") + helpStyle.Render(" copy  ") +
		boldStyle.Render("q") + helpStyle.Render(" quit  ") +
		helpStyle.Render("hark "+version)

	// Keep the newest lines when the transcript outgrows the screen.
	room := max(m.height-len(header)-2, 1)
	body := m.transcriptLines(max(m.width-2, 10))
	if len(body) > room {
		body = body[len(body)-room:]
	}

	var b strings.Builder
	for _, line := range header {
		b.WriteString(line + "\n")
	}
	if len(body) == 0 {
		b.WriteString(standbyStyle.Render("No transcript yet") + "\n")
	}
	for _, line := range body {
		b.WriteString(textStyle.Render(line) + "\n")
	}

	content := lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-1, 1)).
		PaddingLeft(1).
		Render(strings.TrimSuffix(b.String(), "\n"))
	return content + "\n" + footer
}

func (m *tuiModel) transcriptLines(width int) []string {
	text := strings.TrimSuffix(m.transcript.String(), "\n")
	if text == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, wrapText(line, width)...)
	}
	return lines
}

// wrapText breaks text into lines of at most width terminal cells, at spaces
// where possible and between graphemes otherwise.
func wrapText(text string, width int) []string {
	return strings.Split(ansi.Wrap(text, max(width, 1), ""), "\n")
}
