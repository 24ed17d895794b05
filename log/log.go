package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const diagName = "diagnostics_log.txt"

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: HARK_LOG_PATH environment variable
	if envPath := os.Getenv("HARK_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", os.Getpid()).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

type SessionInfo struct {
	Device      string
	SampleRate  int
	Channels    int
	MaxDuration float64
	RedisAddr   string
	ChannelIn   string
	ChannelOut  string
	Frontend    string
}

func SessionStart(s SessionInfo) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("device", s.Device).
		Int("sample_rate", s.SampleRate).
		Int("channels", s.Channels).
		Float64("max_duration_s", s.MaxDuration).
		Str("redis", s.RedisAddr).
		Str("channel_in", s.ChannelIn).
		Str("channel_out", s.ChannelOut).
		Str("frontend", s.Frontend).
		Msg("session_start")
}

func SessionEnd(recordings, fragments int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("recordings", recordings).
		Int("fragments", fragments).
		Msg("session_end")
}

func RecordingStart(id string) {
	if ready() {
		diagLog.Info().Str("id", id).Msg("recording_start")
	}
}

type RecordingMetrics struct {
	Frames    int
	Captured  int
	WAVBytes  int
	CaptureMs float64
	EncodeMs  float64
	PublishMs float64
	Peak      float64
}

func RecordingDone(id string, m RecordingMetrics) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("id", id).
		Int("frames", m.Frames).
		Int("captured", m.Captured).
		Int("wav_bytes", m.WAVBytes).
		Float64("capture_ms", m.CaptureMs).
		Float64("encode_ms", m.EncodeMs).
		Float64("publish_ms", m.PublishMs).
		Float64("peak", m.Peak).
		Msg("recording_done")
}

func RecordingAborted(id string) {
	if ready() {
		diagLog.Info().Str("id", id).Msg("recording_aborted")
	}
}

func RecordingError(id string, err error) {
	if ready() {
		diagLog.Error().Str("id", id).Err(err).Msg("recording_error")
	}
}

// FragmentReceived records arrival only; transcript text is never written.
func FragmentReceived(channel string, size int, placeholder bool) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("channel", channel).
		Int("bytes", size).
		Bool("placeholder", placeholder).
		Msg("fragment")
}
