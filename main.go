// ABOUTME: Entry point for the brownnoise player
// ABOUTME: Parses CLI flags, sets up logging and config, and runs the player
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/brownnoise/internal/app"
	"github.com/harperreed/brownnoise/internal/config"
	"github.com/harperreed/brownnoise/internal/version"
	"github.com/harperreed/brownnoise/pkg/audio/output"
)

var opts struct {
	configPath string
	backend    string
	noFade     bool
	noTUI      bool
	remote     bool
	verbose    bool
	logFile    string
	play       bool
}

var rootCmd = &cobra.Command{
	Use:   "brownnoise",
	Short: "Endless brown noise for your speakers",
	Long: `brownnoise synthesizes brown noise and streams it to the default
audio output with a gentle fade-in.

Press space to start or stop playback. Playback stops when another
media player starts and stays stopped until you start it again.`,
	Version:       version.Version,
	SilenceUsage:  true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to config file (default: ~/.config/brownnoise/config.toml)")
	flags.StringVar(&opts.backend, "backend", "",
		fmt.Sprintf("Audio backend %v (overrides config)", output.Backends()))
	flags.BoolVar(&opts.noFade, "no-fade", false, "Start at full volume without fading in")
	flags.BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI, log to stderr")
	flags.BoolVar(&opts.remote, "remote", false, "Enable the remote control server")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&opts.logFile, "log-file", "brownnoise.log", "Log file path in TUI mode")
	flags.BoolVar(&opts.play, "play", false, "Start playing immediately")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	useTUI := !opts.noTUI

	closeLog, err := setupLogger(useTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	path := opts.configPath
	if path == "" {
		path = config.ConfigPath()
	}

	settings, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	backendSet := cmd.Flags().Changed("backend")
	overrides := func(c *config.Config) {
		if backendSet {
			c.Audio.Backend = opts.backend
		}
		if opts.noFade {
			c.Fade.Enabled = false
		}
		if opts.remote {
			c.Remote.Enabled = true
		}
	}
	overrides(settings)
	if err := settings.Validate(); err != nil {
		return err
	}

	slog.Info("starting", "version", version.Version, "backend", settings.Audio.Backend, "config", path)

	player, err := app.New(app.Config{
		Settings:   settings,
		ConfigPath: path,
		Overrides:  overrides,
		UseTUI:     useTUI,
		Autoplay:   opts.play,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return player.Run(ctx)
}

// setupLogger configures the global slog logger. The TUI owns the
// terminal, so in TUI mode logs go to a file only.
func setupLogger(useTUI bool) (func(), error) {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}

	if useTUI {
		f, err := os.OpenFile(opts.logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closeFn, nil
}
