//go:build integration

package test_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/encoder"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("HARK_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "HARK_TEST_BIN not set; build hark and point it at the binary")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeToneWAV(t *testing.T, sampleRate int, durationS float64) string {
	t.Helper()
	samples := make([]float32, int(float64(sampleRate)*durationS))
	for i := range samples {
		samples[i] = 0.25
	}
	data, err := encoder.EncodeWAV(samples, sampleRate, 1)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func writeConfig(t *testing.T, port, maxDuration string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hark.yaml")
	data := `recording:
  sample_rate: 8000
  num_channels: 1
  max_duration: ` + maxDuration + `
redis:
  host: 127.0.0.1
  port: ` + port + `
  db: 0
  channel_in: transcript.*
  channel_out: audio
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

type run struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *syncBuffer
	stderr *syncBuffer
	logDir string
}

func startHark(t *testing.T, args ...string) *run {
	t.Helper()
	r := &run{stdout: &syncBuffer{}, stderr: &syncBuffer{}, logDir: t.TempDir()}
	r.cmd = exec.Command(testBinary, append([]string{"--logpath", r.logDir, "--headless"}, args...)...)
	r.cmd.Stdout = r.stdout
	r.cmd.Stderr = r.stderr
	stdin, err := r.cmd.StdinPipe()
	require.NoError(t, err)
	r.stdin = stdin
	require.NoError(t, r.cmd.Start())
	t.Cleanup(func() {
		stdin.Close()
		_ = r.cmd.Process.Kill()
	})
	return r
}

func (r *run) send(t *testing.T, lines ...string) {
	t.Helper()
	_, err := io.WriteString(r.stdin, strings.Join(lines, "\n")+"\n")
	require.NoError(t, err)
}

func (r *run) wait(t *testing.T) int {
	t.Helper()
	err := r.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	require.NoError(t, err)
	return 0
}

func readLog(t *testing.T, logDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, "diagnostics_log.txt"))
	require.NoError(t, err)
	return string(data)
}

// transcriber answers each clip on "audio" with one fragment.
func transcriber(t *testing.T, mr *miniredis.Miniredis, reply string) <-chan int {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	ps := client.Subscribe(ctx, "audio")
	_, err := ps.Receive(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })

	sizes := make(chan int, 4)
	go func() {
		for msg := range ps.Channel() {
			sizes <- len(msg.Payload)
			client.Publish(ctx, "transcript.en", reply)
		}
	}()
	return sizes
}

func TestRecordPublishTranscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	sizes := transcriber(t, mr, "hello world")

	r := startHark(t, "--config", writeConfig(t, mr.Port(), "0.2"), "--fake-input", writeToneWAV(t, 8000, 0.5))
	r.send(t, "record", "wait")

	select {
	case n := <-sizes:
		assert.Equal(t, encoder.WAVHeaderSize+1600*2, n)
	case <-time.After(10 * time.Second):
		t.Fatalf("no clip published\nstderr: %s", r.stderr.String())
	}
	require.Eventually(t, func() bool {
		return r.stdout.String() == "hello world\n"
	}, 10*time.Second, 20*time.Millisecond)

	r.send(t, "quit")
	assert.Equal(t, 0, r.wait(t))
	assert.Contains(t, r.stderr.String(), "recording\nidle\n")

	diag := readLog(t, r.logDir)
	assert.Contains(t, diag, "session_start")
	assert.Contains(t, diag, "recording_done")
	assert.Contains(t, diag, "session_end")
	assert.NotContains(t, diag, "hello world", "transcript text must not be logged")
}

func TestStopAbortsRecording(t *testing.T) {
	mr := miniredis.RunT(t)
	sizes := transcriber(t, mr, "unused")

	r := startHark(t, "--config", writeConfig(t, mr.Port(), "5"), "--fake-input", writeToneWAV(t, 8000, 6))
	r.send(t, "record", "sleep 300", "stop", "wait", "quit")
	assert.Equal(t, 0, r.wait(t))

	select {
	case <-sizes:
		t.Fatal("stopped recording was published")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Contains(t, readLog(t, r.logDir), "recording_aborted")
}

func TestStartupErrorsExitOne(t *testing.T) {
	mr := miniredis.RunT(t)
	wavPath := writeToneWAV(t, 8000, 0.1)

	t.Run("missing config", func(t *testing.T) {
		r := startHark(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--fake-input", wavPath)
		assert.Equal(t, 1, r.wait(t))
		assert.Contains(t, r.stderr.String(), "Error:")
	})

	t.Run("redis down", func(t *testing.T) {
		cfg := writeConfig(t, mr.Port(), "0.1")
		mr.Close()
		r := startHark(t, "--config", cfg, "--fake-input", wavPath)
		assert.Equal(t, 1, r.wait(t))
		assert.Contains(t, r.stderr.String(), "subscribe")
	})
}
