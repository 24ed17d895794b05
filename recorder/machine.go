// Package recorder owns the recording flag and the one-shot
// capture-encode-publish cycle behind it.
package recorder

import (
	"context"
	"errors"

	"hark/audio"
	"hark/loop"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	}
	return "unknown"
}

// View is the part of the frontend the machine drives. Both methods are
// called on the UI goroutine.
type View interface {
	SetRecording(recording bool)
	ShowError(err error)
}

// Cycle performs one recording. It must return promptly once ctx is done.
type Cycle func(ctx context.Context) error

// Machine serializes recordings: at most one cycle runs at a time. Every
// method except Shutdown's wait must be called from the UI goroutine; cycle
// completions come back through the Poster.
type Machine struct {
	post  loop.Poster
	view  View
	cycle Cycle

	state  State
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	completed int
}

func NewMachine(post loop.Poster, view View, cycle Cycle) *Machine {
	return &Machine{post: post, view: view, cycle: cycle}
}

func (m *Machine) State() State { return m.state }

// Busy reports whether the last cycle's goroutine is still running. It can be
// true in Idle right after a Stop.
func (m *Machine) Busy() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Completed is the number of cycles that finished without being stopped.
func (m *Machine) Completed() int { return m.completed }

// Start begins a cycle. It returns false, and does nothing, while a recording
// is active or the previous cycle has not yet returned.
func (m *Machine) Start() bool {
	if m.state == Recording || m.Busy() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.gen++
	gen := m.gen
	done := make(chan struct{})

	m.state = Recording
	m.cancel = cancel
	m.done = done
	m.view.SetRecording(true)

	go func() {
		err := m.cycle(ctx)
		// done closes first so the completion callback always sees Busy false.
		close(done)
		m.post.Post(func() { m.complete(gen, err) })
	}()
	return true
}

func (m *Machine) complete(gen uint64, err error) {
	if gen != m.gen || m.state != Recording {
		return
	}
	m.cancel()
	m.state = Idle
	if err == nil {
		m.completed++
	}
	m.view.SetRecording(false)
	if err != nil && !errors.Is(err, audio.ErrAborted) {
		m.view.ShowError(err)
	}
}

// Stop aborts the active cycle. The start control is re-enabled at once; the
// aborted cycle never publishes.
func (m *Machine) Stop() {
	if m.state != Recording {
		return
	}
	m.cancel()
	m.state = Idle
	m.view.SetRecording(false)
}

// Shutdown stops any active cycle and waits for its goroutine to return.
func (m *Machine) Shutdown() {
	m.Stop()
	if m.done != nil {
		<-m.done
	}
}
