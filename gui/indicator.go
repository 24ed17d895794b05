//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const lampSize = 14

var (
	lampIdle      = color.RGBA{95, 0, 0, 255}
	lampRecording = color.RGBA{255, 0, 0, 255}
)

// Lamp is a round recording indicator. It is only touched on the fyne
// goroutine.
type Lamp struct {
	widget.BaseWidget
	recording bool
}

func NewLamp() *Lamp {
	l := &Lamp{}
	l.ExtendBaseWidget(l)
	return l
}

func (l *Lamp) SetRecording(r bool) {
	l.recording = r
	l.Refresh()
}

func (l *Lamp) MinSize() fyne.Size {
	return fyne.NewSize(lampSize, lampSize)
}

func (l *Lamp) CreateRenderer() fyne.WidgetRenderer {
	return &lampRenderer{lamp: l, circle: canvas.NewCircle(lampIdle)}
}

type lampRenderer struct {
	lamp   *Lamp
	circle *canvas.Circle
}

func (r *lampRenderer) Layout(size fyne.Size) {
	d := min(size.Width, size.Height)
	r.circle.Move(fyne.NewPos((size.Width-d)/2, (size.Height-d)/2))
	r.circle.Resize(fyne.NewSize(d, d))
}

func (r *lampRenderer) MinSize() fyne.Size {
	return r.lamp.MinSize()
}

func (r *lampRenderer) Refresh() {
	if r.lamp.recording {
		r.circle.FillColor = lampRecording
	} else {
		r.circle.FillColor = lampIdle
	}
	r.circle.Refresh()
}

func (r *lampRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.circle}
}

func (r *lampRenderer) Destroy() {}
