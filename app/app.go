// Package app wires configuration, the capture device, the bus, the
// recording machine and the transcript relay behind one frontend.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"hark/audio"
	"hark/bus"
	"hark/config"
	"hark/log"
	"hark/loop"
	"hark/recorder"
	"hark/transcript"
)

// View is everything a frontend exposes to the app. All methods run on the UI
// goroutine.
type View interface {
	recorder.View
	transcript.Sink
	ClearTranscript()
}

type Options struct {
	Config *config.Config
	Device audio.CaptureDevice
	Client *redis.Client
	Post   loop.Poster
	View   View
}

// App is driven from the UI goroutine: Record, Stop, Clear and Close must all
// be called there.
type App struct {
	view    View
	machine *recorder.Machine
	sub     *bus.Subscription

	relayDone chan struct{}
	fragments int
	closeOnce sync.Once
}

// Start subscribes to the transcript channel and readies the recorder. A
// subscription failure is returned and nothing is left running.
func Start(ctx context.Context, o Options) (*App, error) {
	sub, err := bus.Subscribe(ctx, o.Client, o.Config.Redis.ChannelIn)
	if err != nil {
		return nil, err
	}

	rec := o.Config.Recording
	capturer := audio.NewCapturer(o.Device, rec.SampleRate, rec.NumChannels, o.Config.Frames())
	pipe := recorder.NewPipeline(capturer, bus.NewPublisher(o.Client, o.Config.Redis.ChannelOut))

	a := &App{
		view:      o.View,
		machine:   recorder.NewMachine(o.Post, o.View, pipe.Run),
		sub:       sub,
		relayDone: make(chan struct{}),
	}
	go func() {
		defer close(a.relayDone)
		a.fragments = transcript.Relay(sub.Messages(), o.Post, o.View)
	}()
	return a, nil
}

// Record starts a recording. It reports false if one is already running or
// a stopped one has not finished unwinding; Refusal says which.
func (a *App) Record() bool { return a.machine.Start() }

// Refusal describes why Record would currently refuse.
func (a *App) Refusal() string {
	if a.Recording() {
		return "already recording"
	}
	return "previous recording still stopping"
}

// Stop aborts the active recording without publishing it.
func (a *App) Stop() { a.machine.Stop() }

func (a *App) Clear() { a.view.ClearTranscript() }

func (a *App) Recording() bool { return a.machine.State() == recorder.Recording }

// Close aborts any recording, waits for it to unwind, then ends the
// subscription. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.machine.Shutdown()
		a.sub.Close()
		<-a.relayDone
		log.SessionEnd(a.machine.Completed(), a.fragments)
	})
}

// OpenDevice resolves the configured device on actx and opens it for
// capture with the configured format.
func OpenDevice(actx audio.Context, rec config.Recording) (audio.CaptureDevice, error) {
	info, err := audio.ResolveDevice(actx, rec.DeviceID())
	if err != nil {
		return nil, err
	}
	dev, err := actx.NewCapture(info, audio.CaptureConfig{
		SampleRate: uint32(rec.SampleRate),
		Channels:   uint32(rec.NumChannels),
	})
	if err != nil {
		return nil, fmt.Errorf("opening capture device: %w", err)
	}
	return dev, nil
}
