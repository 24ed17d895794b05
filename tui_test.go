package main

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	recording bool
	records   int
	stops     int
	clears    int
	closes    int
	view      *tuiModel
}

func (f *fakeController) Record() bool {
	f.records++
	if f.recording {
		return false
	}
	f.recording = true
	f.view.SetRecording(true)
	return true
}

func (f *fakeController) Refusal() string {
	if f.recording {
		return "already recording"
	}
	return "previous recording still stopping"
}

func (f *fakeController) Stop() {
	f.stops++
	f.recording = false
	f.view.SetRecording(false)
}

func (f *fakeController) Clear() {
	f.clears++
	f.view.ClearTranscript()
}

func (f *fakeController) Close() { f.closes++ }

func newTestModel() (*tuiModel, *fakeController) {
	m := newTUIModel()
	ctl := &fakeController{view: m}
	m.ctl = ctl
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	return m, ctl
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTUIKeys(t *testing.T) {
	m, ctl := newTestModel()

	m.Update(key("r"))
	assert.True(t, m.recording)
	assert.Contains(t, m.View(), "● REC")

	m.Update(key("r"))
	assert.Equal(t, 2, ctl.records)
	assert.Contains(t, m.View(), "already recording")

	m.Update(key("s"))
	assert.False(t, m.recording)
	assert.Contains(t, m.View(), "○ STANDBY")

	m.AppendTranscript("hello world\n")
	m.Update(key("c"))
	assert.Equal(t, 1, ctl.clears)
	assert.Contains(t, m.View(), "No transcript yet")
}

func TestTUIQuitClosesOnce(t *testing.T) {
	m, ctl := newTestModel()

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(quitMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, ctl.closes)
}

func TestTUICallbackRunsInUpdate(t *testing.T) {
	m, _ := newTestModel()

	ran := false
	m.Update(callbackMsg(func() {
		ran = true
		m.AppendTranscript("alpha\n")
		m.AppendTranscript("omega\n")
	}))
	assert.True(t, ran)

	view := m.View()
	require.Contains(t, view, "alpha")
	assert.Less(t, strings.Index(view, "alpha"), strings.Index(view, "omega"))
}

func TestTUIShowError(t *testing.T) {
	m, _ := newTestModel()
	m.ShowError(errors.New("publish to \"audio\": connection refused"))
	assert.Contains(t, m.View(), "connection refused")

	m.SetRecording(true)
	assert.NotContains(t, m.View(), "connection refused")
}

func TestTUIKeepsNewestLines(t *testing.T) {
	m, _ := newTestModel()
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 6})
	for _, line := range []string{"one", "two", "three", "four", "five", "six"} {
		m.AppendTranscript(line + "\n")
	}
	view := m.View()
	assert.Contains(t, view, "six")
	assert.NotContains(t, view, "one")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{""}, wrapText("", 10))
	assert.Equal(t, []string{"hello", "world"}, wrapText("hello world", 7))
	assert.Equal(t, []string{"abcdef", "gh"}, wrapText("abcdefgh", 6))
}

func TestWrapTextMultibyte(t *testing.T) {
	for _, tc := range []struct {
		text  string
		width int
	}{
		{"こんにちは世界、今日はいい天気ですね", 10},
		{"café crème brûlée à la française", 7},
		{"naïve", 1},
	} {
		lines := wrapText(tc.text, tc.width)
		require.Greater(t, len(lines), 1, tc.text)
		for _, line := range lines {
			assert.True(t, utf8.ValidString(line), "%q", line)
			assert.LessOrEqual(t, ansi.StringWidth(line), max(tc.width, 2), "%q", line)
		}
	}
	assert.Equal(t, "こんにちは世界、今日はいい天気ですね",
		strings.Join(wrapText("こんにちは世界、今日はいい天気ですね", 10), ""))
}
