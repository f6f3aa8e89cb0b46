// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates config, session, interruptions, remote control and UI
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harperreed/brownnoise/internal/config"
	"github.com/harperreed/brownnoise/internal/interrupt"
	"github.com/harperreed/brownnoise/internal/remote"
	"github.com/harperreed/brownnoise/internal/ui"
	"github.com/harperreed/brownnoise/pkg/audio/output"
	"github.com/harperreed/brownnoise/pkg/stream"
)

const shutdownTimeout = 5 * time.Second

// Config holds player configuration
type Config struct {
	// Settings is the loaded configuration file
	Settings *config.Config

	// ConfigPath is watched for changes when non-empty
	ConfigPath string

	// Overrides is applied to Settings and to every reloaded config, so
	// command line choices survive edits to the file
	Overrides func(*config.Config)

	UseTUI   bool
	Autoplay bool

	// Factory overrides the backend from Settings
	Factory output.Factory

	// Interruptions overrides the D-Bus source
	Interruptions stream.InterruptionSource

	Logger *slog.Logger
}

// Player represents the main player application
type Player struct {
	config   Config
	settings *config.Config
	logger   *slog.Logger

	session *stream.Session
	source  *interrupt.Source
	remote  *remote.Server
	watcher *config.Watcher

	mu  sync.Mutex
	tui *ui.UI

	closeOnce sync.Once
	closeErr  error
}

// New builds the session and its collaborators. Nothing plays until Run.
func New(cfg Config) (*Player, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Overrides != nil {
		cfg.Overrides(cfg.Settings)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	p := &Player{
		config:   cfg,
		settings: cfg.Settings,
		logger:   cfg.Logger,
	}

	factory := cfg.Factory
	if factory == nil {
		var err error
		factory, err = p.newFactory(cfg.Settings)
		if err != nil {
			return nil, err
		}
	}

	interruptions := cfg.Interruptions
	if interruptions == nil && cfg.Settings.Interruptions.Enabled {
		src, err := interrupt.Connect(interrupt.Options{Logger: p.logger})
		if err != nil {
			p.logger.Warn("interruption monitoring unavailable", "error", err)
		} else {
			p.source = src
			interruptions = src
		}
	}

	opts := cfg.Settings.SessionOptions()
	session, err := stream.NewSession(stream.Config{
		Factory:       factory,
		Format:        cfg.Settings.Format(),
		Options:       &opts,
		Interruptions: interruptions,
		OnStateChange: p.onStateChange,
		Logger:        p.logger,
	})
	if err != nil {
		p.closeSource()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	p.session = session

	if cfg.Settings.Remote.Enabled {
		p.remote = remote.New(remote.Config{
			Listen:    cfg.Settings.Remote.Listen,
			Name:      cfg.Settings.Remote.Name,
			Advertise: cfg.Settings.Remote.Advertise,
			Logger:    p.logger,
		}, p)
	}

	return p, nil
}

func (p *Player) newFactory(settings *config.Config) (output.Factory, error) {
	opts := settings.OutputOptions()
	opts.Logger = p.logger
	factory, err := output.NewFactory(settings.Audio.Backend, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to select audio backend: %w", err)
	}
	return factory, nil
}

// Run plays until ctx is cancelled or the TUI exits, then shuts down
func (p *Player) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if p.remote != nil {
		if err := p.remote.Start(); err != nil {
			return err
		}
	}

	p.startWatcher()

	if p.config.Autoplay {
		if err := p.Play(); err != nil {
			p.logger.Error("autoplay failed", "error", err)
		}
	}

	var runErr error
	if p.config.UseTUI {
		runErr = p.runTUI(ctx)
	} else {
		p.logger.Info("running headless", "backend", p.backend())
		<-ctx.Done()
	}

	if err := p.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (p *Player) runTUI(ctx context.Context) error {
	tui := ui.New(p, p.backend())

	p.mu.Lock()
	p.tui = tui
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- tui.Run()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		tui.Quit()
		err = <-done
	}

	p.mu.Lock()
	p.tui = nil
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (p *Player) startWatcher() {
	if p.config.ConfigPath == "" {
		return
	}
	if _, err := os.Stat(filepath.Dir(p.config.ConfigPath)); err != nil {
		p.logger.Debug("config directory missing, not watching", "path", p.config.ConfigPath)
		return
	}

	w, err := config.NewWatcher(p.config.ConfigPath, p.applySettings, p.logger)
	if err != nil {
		p.logger.Warn("failed to create config watcher", "error", err)
		return
	}
	if err := w.Start(); err != nil {
		p.logger.Warn("failed to watch config", "error", err)
		_ = w.Stop()
		return
	}
	p.watcher = w
}

// applySettings takes a reloaded config; changes apply from the next Play
func (p *Player) applySettings(settings *config.Config) {
	if p.config.Overrides != nil {
		p.config.Overrides(settings)
		if err := settings.Validate(); err != nil {
			p.logger.Warn("ignoring reloaded config", "error", err)
			return
		}
	}

	p.mu.Lock()
	prev := p.settings
	p.settings = settings
	p.mu.Unlock()

	p.session.SetOptions(settings.SessionOptions())

	if p.config.Factory == nil && (prev.Audio != settings.Audio || prev.Stream.PullBufferSize != settings.Stream.PullBufferSize) {
		factory, err := p.newFactory(settings)
		if err != nil {
			p.logger.Warn("keeping previous audio backend", "error", err)
		} else {
			p.session.SetFactory(factory)
		}
	}

	if prev.Remote != settings.Remote || prev.Interruptions != settings.Interruptions {
		p.logger.Info("remote and interruption changes apply after restart")
	}
	p.logger.Info("settings updated", "backend", settings.Audio.Backend, "fade", settings.Fade.Enabled)
}

func (p *Player) onStateChange(state stream.State) {
	p.logger.Debug("state change", "state", state)

	stats := p.session.Stats()

	if p.remote != nil {
		p.remote.Broadcast(stats)
	}

	p.mu.Lock()
	tui := p.tui
	p.mu.Unlock()
	if tui != nil {
		tui.Update(stats)
	}
}

func (p *Player) backend() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settings.Audio.Backend == "" {
		return config.DefaultBackend
	}
	return p.settings.Audio.Backend
}

// Play starts the noise
func (p *Player) Play() error {
	return p.session.Play()
}

// Stop stops the noise
func (p *Player) Stop() error {
	return p.session.Stop()
}

// Toggle flips between playing and stopped
func (p *Player) Toggle() error {
	return p.session.Toggle()
}

// Stats returns the session snapshot
func (p *Player) Stats() stream.Stats {
	return p.session.Stats()
}

// Close stops playback and releases everything in reverse order of setup.
// Safe to call repeatedly.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close()
	})
	return p.closeErr
}

func (p *Player) close() error {
	var errs []error

	if p.watcher != nil {
		if err := p.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("config watcher: %w", err))
		}
		p.watcher = nil
	}

	if p.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := p.remote.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("remote server: %w", err))
		}
		cancel()
	}

	if err := p.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}

	p.closeSource()

	return errors.Join(errs...)
}

func (p *Player) closeSource() {
	if p.source == nil {
		return
	}
	if err := p.source.Close(); err != nil {
		p.logger.Warn("interruption source close error", "error", err)
	}
	p.source = nil
}
