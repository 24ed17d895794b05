package audio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultSlack absorbs device start-up latency on top of the capture length.
const DefaultSlack = 500 * time.Millisecond

// Capturer records fixed-length clips from one device. Only one Capture may
// run at a time; the recorder's state machine guarantees that.
type Capturer struct {
	Device     CaptureDevice
	SampleRate int
	Channels   int
	Frames     int
	Slack      time.Duration
}

func NewCapturer(dev CaptureDevice, sampleRate, channels, frames int) *Capturer {
	return &Capturer{
		Device:     dev,
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     frames,
		Slack:      DefaultSlack,
	}
}

// Duration is the nominal length of one capture.
func (c *Capturer) Duration() time.Duration {
	return time.Duration(float64(c.Frames) / float64(c.SampleRate) * float64(time.Second))
}

// Capture blocks until the buffer is full, the deadline passes or ctx is
// cancelled. A short delivery is zero-padded; cancellation returns ErrAborted
// and no buffer.
func (c *Capturer) Capture(ctx context.Context) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrAborted
	}

	buf := NewBuffer(c.SampleRate, c.Channels, c.Frames)
	total := len(buf.Samples)

	var mu sync.Mutex
	pos := 0
	stopped := false
	full := make(chan struct{})

	c.Device.SetCallback(func(samples []float32) {
		mu.Lock()
		defer mu.Unlock()
		if stopped || pos >= total {
			return
		}
		pos += copy(buf.Samples[pos:], samples)
		if pos >= total {
			close(full)
		}
	})
	defer c.Device.ClearCallback()

	if err := c.Device.Start(); err != nil {
		return nil, fmt.Errorf("starting capture on %s: %w", c.Device.DeviceName(), err)
	}

	deadline := time.NewTimer(c.Duration() + c.Slack)
	defer deadline.Stop()

	aborted := false
	select {
	case <-full:
	case <-deadline.C:
	case <-ctx.Done():
		aborted = true
	}

	c.Device.Stop()

	mu.Lock()
	stopped = true
	captured := pos / c.Channels
	mu.Unlock()

	if aborted {
		return nil, ErrAborted
	}
	buf.Captured = captured
	return buf, nil
}
