package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"hark/log"
	"hark/loop"
)

// Console is the headless frontend. Commands arrive one per line on stdin;
// transcript text goes to out and status lines to status.
//
//	record    start a recording
//	stop      abort the active recording
//	clear     clear the transcript
//	wait      block until the active recording has finished
//	sleep N   pause the command stream for N milliseconds
//	quit      shut down
type Console struct {
	out    io.Writer
	status io.Writer
	loop   *loop.Loop
	app    *App

	recording bool
	waiters   []chan struct{}
	quitOnce  sync.Once
}

func NewConsole(out, status io.Writer) *Console {
	return &Console{out: out, status: status, loop: loop.New()}
}

// Poster is the console's UI loop.
func (c *Console) Poster() loop.Poster { return c.loop }

// Run drives a until in is exhausted, a quit command arrives or ctx is done.
// It must be called on the goroutine that owns the console, and it closes a
// before returning.
func (c *Console) Run(ctx context.Context, a *App, in io.Reader) {
	c.app = a
	go c.read(in)
	go func() {
		select {
		case <-ctx.Done():
			c.loop.Post(c.quit)
		case <-c.loop.Done():
		}
	}()
	c.loop.Run()
}

func (c *Console) read(in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch cmd {
		case "":
		case "record":
			c.loop.Post(func() {
				if !c.app.Record() {
					c.statusf("%s", c.app.Refusal())
				}
			})
		case "stop":
			c.loop.Post(c.app.Stop)
		case "clear":
			c.loop.Post(c.app.Clear)
		case "wait":
			ch := make(chan struct{})
			c.loop.Post(func() { c.wait(ch) })
			select {
			case <-ch:
			case <-c.loop.Done():
				return
			}
		case "sleep":
			ms, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				c.loop.Post(func() { c.statusf("sleep: bad duration %q", arg) })
				continue
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case "quit":
			c.loop.Post(c.quit)
			return
		default:
			c.loop.Post(func() { c.statusf("unknown command %q", cmd) })
		}
	}
	if err := sc.Err(); err != nil {
		log.Warnf("reading commands: %v", err)
	}
	c.loop.Post(c.quit)
}

func (c *Console) wait(ch chan struct{}) {
	if !c.recording {
		close(ch)
		return
	}
	c.waiters = append(c.waiters, ch)
}

func (c *Console) quit() {
	c.quitOnce.Do(func() {
		c.app.Close()
		c.release()
		c.loop.Quit()
	})
}

func (c *Console) release() {
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
}

func (c *Console) statusf(format string, args ...any) {
	fmt.Fprintf(c.status, format+"\n", args...)
}

func (c *Console) SetRecording(recording bool) {
	c.recording = recording
	if recording {
		c.statusf("recording")
		return
	}
	c.statusf("idle")
	c.release()
}

func (c *Console) ShowError(err error) {
	c.statusf("error: %v", err)
}

func (c *Console) AppendTranscript(text string) {
	io.WriteString(c.out, text)
}

func (c *Console) ClearTranscript() {
	c.statusf("transcript cleared")
}
