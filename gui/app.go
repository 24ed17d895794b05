//go:build gui

// Package gui is the fyne desktop frontend.
package gui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"hark/clipboard"
)

// Controller is what the window's buttons drive.
type Controller interface {
	Record() bool
	Refusal() string
	Stop()
	Clear()
	Close()
}

// Window implements the app's view. Widget state is only changed on the fyne
// goroutine, either from button callbacks or through fyne.Do.
type Window struct {
	fyneApp fyne.App
	window  fyne.Window
	ctl     Controller

	lamp       *Lamp
	status     *widget.Label
	text       *widget.Label
	scroll     *container.Scroll
	recordBtn  *widget.Button
	stopBtn    *widget.Button
	transcript strings.Builder
	closed     bool
}

func New(title string) *Window {
	w := &Window{}
	w.fyneApp = app.NewWithID("io.hark.gui")
	w.fyneApp.Settings().SetTheme(&darkTheme{})
	w.window = w.fyneApp.NewWindow(title)

	w.lamp = NewLamp()
	w.status = widget.NewLabel("Idle")
	w.text = widget.NewLabel("")
	w.text.Wrapping = fyne.TextWrapWord
	w.scroll = container.NewVScroll(w.text)

	w.recordBtn = widget.NewButton("Record", func() {
		if !w.ctl.Record() {
			w.status.SetText(w.ctl.Refusal())
		}
	})
	w.stopBtn = widget.NewButton("Stop", func() { w.ctl.Stop() })
	w.stopBtn.Disable()
	clearBtn := widget.NewButton("Clear", func() { w.ctl.Clear() })
	copyBtn := widget.NewButton("Copy", w.copyTranscript)
	exitBtn := widget.NewButton("Exit", w.exit)

	top := container.NewHBox(w.lamp, w.recordBtn, w.stopBtn, clearBtn, copyBtn, exitBtn)
	w.window.SetContent(container.NewBorder(top, w.status, nil, nil, w.scroll))
	w.window.Resize(fyne.NewSize(520, 360))
	w.window.SetCloseIntercept(w.exit)
	return w
}

// Do runs fn on the fyne goroutine.
func (w *Window) Do(fn func()) { fyne.Do(fn) }

// Run shows the window and blocks until it is closed.
func (w *Window) Run(ctl Controller) {
	w.ctl = ctl
	w.window.ShowAndRun()
}

// Quit behaves like the Exit button. It may be called from any goroutine.
func (w *Window) Quit() { fyne.Do(w.exit) }

func (w *Window) exit() {
	if w.closed {
		return
	}
	w.closed = true
	w.ctl.Close()
	w.fyneApp.Quit()
}

func (w *Window) copyTranscript() {
	if err := clipboard.Copy(w.transcript.String()); err != nil {
		w.status.SetText("Copy failed: " + err.Error())
		return
	}
	w.status.SetText("Copied")
}

func (w *Window) SetRecording(recording bool) {
	w.lamp.SetRecording(recording)
	if recording {
		w.recordBtn.Disable()
		w.stopBtn.Enable()
		w.status.SetText("Recording")
		return
	}
	w.recordBtn.Enable()
	w.stopBtn.Disable()
	w.status.SetText("Idle")
}

func (w *Window) ShowError(err error) {
	w.status.SetText("Error: " + err.Error())
}

func (w *Window) AppendTranscript(text string) {
	w.transcript.WriteString(text)
	w.text.SetText(w.transcript.String())
	w.scroll.ScrollToBottom()
}

func (w *Window) ClearTranscript() {
	w.transcript.Reset()
	w.text.SetText("")
}
