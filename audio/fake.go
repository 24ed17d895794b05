package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

const fakeFrameSize = 1024

// FakeContext replays a fixed sample sequence instead of touching hardware.
type FakeContext struct {
	samples    []float32
	channels   int
	sampleRate int
	realtime   bool
}

// NewFakeContext replays interleaved samples. With realtime set the samples
// are paced at sampleRate; otherwise they are delivered as fast as possible.
func NewFakeContext(samples []float32, channels, sampleRate int, realtime bool) *FakeContext {
	return &FakeContext{samples: samples, channels: channels, sampleRate: sampleRate, realtime: realtime}
}

// NewFakeContextFromWAV replays a 16-bit PCM WAV file in real time.
func NewFakeContextFromWAV(path string) (*FakeContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("%s: %d-bit WAV not supported, need 16-bit PCM", path, dec.BitDepth)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float32(v) / 32768
	}
	return NewFakeContext(samples, int(dec.NumChans), int(dec.SampleRate), true), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if f.channels != 0 && uint32(f.channels) != config.Channels {
		return nil, fmt.Errorf("fake input has %d channels, config wants %d", f.channels, config.Channels)
	}
	if f.sampleRate != 0 && uint32(f.sampleRate) != config.SampleRate {
		return nil, fmt.Errorf("fake input is %d Hz, config wants %d Hz", f.sampleRate, config.SampleRate)
	}
	rate := int(config.SampleRate)
	return &FakeCapture{
		samples:  f.samples,
		channels: int(config.Channels),
		rate:     rate,
		realtime: f.realtime,
	}, nil
}

// FakeCapture delivers its samples once per Start and then goes quiet, like a
// device that under-delivers.
type FakeCapture struct {
	samples  []float32
	channels int
	rate     int
	realtime bool

	// StartErr, when set, is returned by Start.
	StartErr error

	mu       sync.Mutex
	cb       DataCallback
	starts   int
	stops    int
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Starts reports how many times Start succeeded.
func (f *FakeCapture) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Stops reports how many times Stop was called.
func (f *FakeCapture) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *FakeCapture) deliver(chunk []float32) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(chunk)
	}
}

func (f *FakeCapture) Start() error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.starts++
	stopCh := make(chan struct{})
	feedDone := make(chan struct{})
	f.stopCh = stopCh
	f.feedDone = feedDone
	f.mu.Unlock()

	chunk := fakeFrameSize * f.channels
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.rate)

	go func() {
		defer close(feedDone)
		for pos := 0; pos < len(f.samples); {
			select {
			case <-stopCh:
				return
			default:
			}
			end := min(pos+chunk, len(f.samples))
			f.deliver(f.samples[pos:end])
			pos = end

			if f.realtime {
				select {
				case <-stopCh:
					return
				case <-time.After(interval):
				}
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.stops++
	stopCh, feedDone := f.stopCh, f.feedDone
	f.stopCh, f.feedDone = nil, nil
	f.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-feedDone
}

func (f *FakeCapture) Close() { f.Stop() }
