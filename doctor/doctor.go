// Package doctor checks that the configured device, Redis server and
// clipboard are usable before a real session.
package doctor

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"hark/app"
	"hark/audio"
	"hark/bus"
	"hark/clipboard"
	"hark/config"
)

// probeSeconds is how long the microphone check records.
const probeSeconds = 0.5

// Run executes the diagnostic checks and returns an exit code (0=all pass, 1=any fail).
// A nil actx skips the microphone check.
func Run(ctx context.Context, w io.Writer, configPath string, actx audio.Context) int {
	fmt.Fprintln(w, "hark doctor - system diagnostics")
	fmt.Fprintln(w, "================================")

	cfg, ok := checkConfig(w, configPath)
	allPass := ok
	if ok && !checkMicrophone(ctx, w, cfg, actx) {
		allPass = false
	}
	if ok && !checkRedis(ctx, w, cfg) {
		allPass = false
	}
	checkClipboard(w)

	fmt.Fprintln(w)
	if allPass {
		fmt.Fprintln(w, "All checks passed!")
		return 0
	}
	fmt.Fprintln(w, "Some checks failed. See details above.")
	return 1
}

func checkConfig(w io.Writer, path string) (*config.Config, bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[1/4] Configuration")

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return nil, false
	}
	fmt.Fprintf(w, "  PASS: %s (%d Hz, %d ch, %gs)\n", path,
		cfg.Recording.SampleRate, cfg.Recording.NumChannels, cfg.Recording.MaxDuration)
	return cfg, true
}

func checkMicrophone(ctx context.Context, w io.Writer, cfg *config.Config, actx audio.Context) bool {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[2/4] Microphone")

	if actx == nil {
		fmt.Fprintln(w, "  SKIP: no audio context")
		return true
	}

	dev, err := app.OpenDevice(actx, cfg.Recording)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	defer dev.Close()

	frames := int(math.Round(float64(cfg.Recording.SampleRate) * probeSeconds))
	c := audio.NewCapturer(dev, cfg.Recording.SampleRate, cfg.Recording.NumChannels, frames)
	start := time.Now()
	buf, err := c.Capture(ctx)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: recording error: %v\n", err)
		return false
	}
	if buf.Captured == 0 {
		fmt.Fprintf(w, "  FAIL: %s delivered no audio\n", dev.DeviceName())
		return false
	}

	fmt.Fprintf(w, "  PASS: %s, %d/%d frames in %s (peak %.3f)\n",
		dev.DeviceName(), buf.Captured, buf.Frames, time.Since(start).Round(time.Millisecond), buf.Peak())
	if buf.Peak() < 0.02 {
		fmt.Fprintln(w, "  Warning: input is silent, check the microphone level")
	}
	return true
}

func checkRedis(ctx context.Context, w io.Writer, cfg *config.Config) bool {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "[3/4] Redis at %s\n", cfg.Redis.Addr())

	client := bus.NewClient(cfg.Redis)
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(w, "  FAIL: ping: %v\n", err)
		return false
	}
	sub, err := bus.Subscribe(ctx, client, cfg.Redis.ChannelIn)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	sub.Close()

	fmt.Fprintf(w, "  PASS: reachable, subscribed to %q, publishing to %q\n",
		cfg.Redis.ChannelIn, cfg.Redis.ChannelOut)
	return true
}

// checkClipboard only warns: copying is optional.
func checkClipboard(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[4/4] Clipboard")

	if !clipboard.Available() {
		fmt.Fprintf(w, "  Warning: %v, copy is disabled\n", clipboard.ErrUnavailable)
		return
	}
	fmt.Fprintln(w, "  PASS: clipboard available")
}
