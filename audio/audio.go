package audio

import (
	"errors"
	"math"
)

// ErrAborted is returned by Capture when the recording was cancelled before
// the buffer was complete.
var ErrAborted = errors.New("capture aborted")

// DataCallback receives interleaved float32 samples, nominally in [-1, 1].
// The slice is only valid for the duration of the call.
type DataCallback func(samples []float32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	// Stop aborts an in-flight capture. It is safe to call when not started.
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Buffer holds one recording as interleaved samples: frame i, channel c is
// Samples[i*Channels+c].
type Buffer struct {
	SampleRate int
	Channels   int
	Frames     int
	Samples    []float32
	// Captured is the number of frames the device actually delivered; the rest
	// of Samples is zero.
	Captured int
}

func NewBuffer(sampleRate, channels, frames int) *Buffer {
	return &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     frames,
		Samples:    make([]float32, frames*channels),
	}
}

// At returns the sample for frame i on channel c.
func (b *Buffer) At(i, c int) float32 {
	return b.Samples[i*b.Channels+c]
}

// Peak is the largest absolute sample value in the buffer.
func (b *Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	return peak
}
