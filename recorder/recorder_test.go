package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/audio"
	"hark/encoder"
)

// chanPoster hands callbacks to the test goroutine, which plays the UI loop.
type chanPoster chan func()

func (p chanPoster) Post(fn func()) { p <- fn }

func (p chanPoster) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-p:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("no callback posted")
	}
}

type fakeView struct {
	recording []bool
	errs      []error
}

func (v *fakeView) SetRecording(r bool) { v.recording = append(v.recording, r) }
func (v *fakeView) ShowError(err error) { v.errs = append(v.errs, err) }

type countingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *countingPublisher) Publish(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.payloads = append(p.payloads, payload)
	p.mu.Unlock()
	return nil
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func blockUntilCancelled(ctx context.Context) error {
	<-ctx.Done()
	return audio.ErrAborted
}

func newCapturer(t *testing.T, samples []float32, rate, frames int, realtime bool) *audio.Capturer {
	t.Helper()
	dev, err := audio.NewFakeContext(samples, 1, rate, realtime).NewCapture(nil, audio.CaptureConfig{
		SampleRate: uint32(rate),
		Channels:   1,
	})
	require.NoError(t, err)
	return audio.NewCapturer(dev, rate, 1, frames)
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	post := make(chanPoster, 4)
	view := &fakeView{}
	m := NewMachine(post, view, blockUntilCancelled)

	require.True(t, m.Start())
	assert.Equal(t, Recording, m.State())
	assert.False(t, m.Start())
	assert.Equal(t, []bool{true}, view.recording)

	m.Shutdown()
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, []bool{true, false}, view.recording)

	// The aborted cycle's completion is stale.
	post.runNext(t)
	assert.Equal(t, []bool{true, false}, view.recording)
	assert.Empty(t, view.errs)
	assert.Equal(t, 0, m.Completed())
}

func TestCompletedCyclePublishesOnce(t *testing.T) {
	post := make(chanPoster, 4)
	view := &fakeView{}
	pub := &countingPublisher{}
	samples := make([]float32, 800)
	samples[0] = 1
	pipe := NewPipeline(newCapturer(t, samples, 8000, 800, false), pub)
	m := NewMachine(post, view, pipe.Run)

	require.True(t, m.Start())
	post.runNext(t)

	assert.Equal(t, Idle, m.State())
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, 1, m.Completed())
	assert.Equal(t, []bool{true, false}, view.recording)
	assert.Empty(t, view.errs)

	payload := pub.payloads[0]
	require.Len(t, payload, encoder.WAVHeaderSize+800*2)
	assert.Equal(t, "RIFF", string(payload[:4]))
	assert.Equal(t, []byte{0xff, 0x7f}, payload[encoder.WAVHeaderSize:encoder.WAVHeaderSize+2])
}

func TestStopAbortsWithoutPublishing(t *testing.T) {
	post := make(chanPoster, 4)
	view := &fakeView{}
	pub := &countingPublisher{}
	// Ten seconds of real-time input; the stop lands long before it is full.
	pipe := NewPipeline(newCapturer(t, make([]float32, 80000), 8000, 80000, true), pub)
	m := NewMachine(post, view, pipe.Run)

	require.True(t, m.Start())
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, []bool{true, false}, view.recording)

	m.Shutdown()
	post.runNext(t)
	assert.Equal(t, 0, pub.count())
	assert.Empty(t, view.errs)
}

func TestStartWaitsForPreviousCycle(t *testing.T) {
	post := make(chanPoster, 4)
	view := &fakeView{}
	release := make(chan struct{})
	m := NewMachine(post, view, func(ctx context.Context) error {
		<-release
		return audio.ErrAborted
	})

	require.True(t, m.Start())
	m.Stop()
	assert.True(t, m.Busy())
	assert.False(t, m.Start(), "previous cycle still running")

	close(release)
	post.runNext(t)
	m.Shutdown()
	assert.False(t, m.Busy())
	assert.Equal(t, Idle, m.State())

	m.cycle = blockUntilCancelled
	require.True(t, m.Start())
	m.Shutdown()
	post.runNext(t)
}

func TestCycleErrorShown(t *testing.T) {
	post := make(chanPoster, 4)
	view := &fakeView{}
	boom := errors.New("device unplugged")
	m := NewMachine(post, view, func(context.Context) error { return boom })

	require.True(t, m.Start())
	post.runNext(t)

	assert.Equal(t, Idle, m.State())
	require.Len(t, view.errs, 1)
	assert.ErrorIs(t, view.errs[0], boom)
	assert.Equal(t, 0, m.Completed())

	// The machine is usable again after a failure.
	assert.True(t, m.Start())
	post.runNext(t)
}

func TestAbortedCompletionNotShown(t *testing.T) {
	post := make(chanPoster, 4)
	view := &fakeView{}
	m := NewMachine(post, view, func(context.Context) error { return audio.ErrAborted })

	require.True(t, m.Start())
	post.runNext(t)
	assert.Empty(t, view.errs)
	assert.Equal(t, Idle, m.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "unknown", State(7).String())
}

func TestPipelineCancelledNeverPublishes(t *testing.T) {
	pub := &countingPublisher{}
	pipe := NewPipeline(newCapturer(t, make([]float32, 100), 8000, 100, false), pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pipe.Run(ctx)
	assert.ErrorIs(t, err, audio.ErrAborted)
	assert.Equal(t, 0, pub.count())
}

func TestPipelinePublishError(t *testing.T) {
	down := errors.New("connection refused")
	pub := &countingPublisher{err: down}
	pipe := NewPipeline(newCapturer(t, make([]float32, 100), 8000, 100, false), pub)

	err := pipe.Run(context.Background())
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, audio.ErrAborted)
}

func TestPipelineDeviceError(t *testing.T) {
	dev, err := audio.NewFakeContext(nil, 1, 8000, false).NewCapture(nil, audio.CaptureConfig{SampleRate: 8000, Channels: 1})
	require.NoError(t, err)
	busy := errors.New("device busy")
	dev.(*audio.FakeCapture).StartErr = busy

	pub := &countingPublisher{}
	pipe := NewPipeline(audio.NewCapturer(dev, 8000, 1, 100), pub)

	err = pipe.Run(context.Background())
	assert.ErrorIs(t, err, busy)
	assert.Equal(t, 0, pub.count())
}
