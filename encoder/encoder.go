package encoder

import "math"

const (
	BitsPerSample = 16
	// WAVHeaderSize is the RIFF, fmt and data chunk headers the encoder writes.
	WAVHeaderSize = 44
)

// PCM16 converts a sample nominally in [-1, 1] to signed 16-bit PCM.
// Out-of-range input saturates; NaN becomes silence.
func PCM16(sample float32) int16 {
	v := math.Round(float64(sample) * 32768)
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
