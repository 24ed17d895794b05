package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hark/app"
	"hark/audio"
	"hark/bus"
	"hark/config"
	"hark/doctor"
	"hark/log"
	"hark/shutdown"
)

var version = "dev"

type rootFlags struct {
	configPath string
	logPath    string
	headless   bool
	gui        bool
	fakeInput  string
}

// session is everything a frontend needs to start the app.
type session struct {
	cfg    *config.Config
	device audio.CaptureDevice
	client *redis.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "hark",
		Short: "Record audio clips and show their transcripts",
		Long: `hark records fixed-length audio clips, publishes them as WAV over Redis
and shows the transcript fragments a transcription service sends back.`,
		Example: `  hark --config hark.yaml
  hark --config hark.yaml --headless < commands.txt
  hark devices --select`,
		Args: cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(flags.logPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flags.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "read commands from stdin instead of running the terminal UI")
	cmd.Flags().BoolVar(&flags.gui, "gui", false, "run the desktop window (needs a build with -tags gui)")
	cmd.Flags().StringVar(&flags.fakeInput, "fake-input", "", "replay a 16-bit WAV file instead of capturing from a device")
	_ = cmd.MarkFlagRequired("config")

	cmd.AddCommand(newDevicesCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hark %s\n", version)
		},
	}
}

func newDoctorCmd() *cobra.Command {
	var configPath, fakeInput string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the microphone, Redis and clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actx, err := openAudio(fakeInput)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			} else {
				defer actx.Close()
			}
			if code := doctor.Run(cmd.Context(), cmd.OutOrStdout(), configPath, actx); code != 0 {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().StringVar(&fakeInput, "fake-input", "", "replay a 16-bit WAV file instead of capturing from a device")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func setupLogging(flagPath string) {
	logPath, err := log.ResolveDir(flagPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to resolve log directory: %v\n", err)
		return
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		return
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
}

func run(ctx context.Context, flags rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	actx, err := openAudio(flags.fakeInput)
	if err != nil {
		return err
	}
	defer actx.Close()

	device, err := app.OpenDevice(actx, cfg.Recording)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		return err
	}
	defer device.Close()

	client := bus.NewClient(cfg.Redis)
	defer client.Close()

	frontend := pickFrontend(flags)
	log.SessionStart(log.SessionInfo{
		Device:      device.DeviceName(),
		SampleRate:  cfg.Recording.SampleRate,
		Channels:    cfg.Recording.NumChannels,
		MaxDuration: cfg.Recording.MaxDuration,
		RedisAddr:   cfg.Redis.Addr(),
		ChannelIn:   cfg.Redis.ChannelIn,
		ChannelOut:  cfg.Redis.ChannelOut,
		Frontend:    frontend,
	})

	// SIGINT and SIGTERM are handled like an exit request.
	ctx, cancel := shutdown.Context(ctx, func(sig os.Signal) {
		log.Infof("received %s, shutting down", sig)
	})
	defer cancel()

	s := session{cfg: cfg, device: device, client: client}
	switch frontend {
	case "gui":
		return runGUI(ctx, s)
	case "console":
		return runConsole(ctx, s)
	default:
		return runTUI(ctx, s)
	}
}

func openAudio(fakeInput string) (audio.Context, error) {
	if fakeInput != "" {
		actx, err := audio.NewFakeContextFromWAV(fakeInput)
		if err != nil {
			return nil, fmt.Errorf("loading fake input: %w", err)
		}
		return actx, nil
	}
	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		return nil, fmt.Errorf("initializing audio: %w", err)
	}
	return actx, nil
}

func pickFrontend(flags rootFlags) string {
	switch {
	case flags.gui:
		return "gui"
	case flags.headless, !term.IsTerminal(int(os.Stdout.Fd())):
		return "console"
	}
	return "tui"
}

func runConsole(ctx context.Context, s session) error {
	c := app.NewConsole(os.Stdout, os.Stderr)
	a, err := app.Start(ctx, app.Options{
		Config: s.cfg,
		Device: s.device,
		Client: s.client,
		Post:   c.Poster(),
		View:   c,
	})
	if err != nil {
		return err
	}
	c.Run(ctx, a, os.Stdin)
	return nil
}
