package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hark/audio"
	"hark/encoder"
	"hark/log"
)

// silentPeak is the level under which a clip is logged as having no voice.
const silentPeak = 0.02

// Capturer fills one fixed-length buffer.
type Capturer interface {
	Capture(ctx context.Context) (*audio.Buffer, error)
}

// Publisher ships one encoded clip.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Pipeline is the capture, encode, publish cycle.
type Pipeline struct {
	capturer  Capturer
	publisher Publisher
}

func NewPipeline(c Capturer, p Publisher) *Pipeline {
	return &Pipeline{capturer: c, publisher: p}
}

// Run records one clip and publishes it exactly once. A cancelled ctx yields
// audio.ErrAborted and nothing is published.
func (p *Pipeline) Run(ctx context.Context) error {
	id := uuid.NewString()
	log.RecordingStart(id)

	captureStart := time.Now()
	buf, err := p.capturer.Capture(ctx)
	if err != nil {
		return p.fail(id, err)
	}
	captureDur := time.Since(captureStart)

	encodeStart := time.Now()
	wavData, err := encoder.EncodeWAV(buf.Samples, buf.SampleRate, buf.Channels)
	if err != nil {
		return p.fail(id, fmt.Errorf("encoding clip: %w", err))
	}
	encodeDur := time.Since(encodeStart)
	frames, captured, peak := buf.Frames, buf.Captured, buf.Peak()
	if peak < silentPeak {
		log.Warnf("recording %s: no voice detected (peak %.3f)", id, peak)
	}

	if ctx.Err() != nil {
		return p.fail(id, audio.ErrAborted)
	}

	publishStart := time.Now()
	if err := p.publisher.Publish(ctx, wavData); err != nil {
		if ctx.Err() != nil {
			return p.fail(id, audio.ErrAborted)
		}
		return p.fail(id, err)
	}

	log.RecordingDone(id, log.RecordingMetrics{
		Frames:    frames,
		Captured:  captured,
		WAVBytes:  len(wavData),
		CaptureMs: ms(captureDur),
		EncodeMs:  ms(encodeDur),
		PublishMs: ms(time.Since(publishStart)),
		Peak:      peak,
	})
	return nil
}

func (p *Pipeline) fail(id string, err error) error {
	if errors.Is(err, audio.ErrAborted) {
		log.RecordingAborted(id)
	} else {
		log.RecordingError(id, err)
	}
	return err
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
