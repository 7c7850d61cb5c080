package launcher

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/blueberrycoding/bbmp-launcher/internal/config"
	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/repository/artifact"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/provision"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/release"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/supervisor"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/transport"
)

// Launcher wires the launch pipeline together and exposes the boundary operations.
type Launcher struct {
	// cfg is the validated configuration.
	cfg *config.Config
	// bus fans events out to subscribers.
	bus *events.Bus
	// artifacts caches and downloads artifacts.
	artifacts *artifact.FileRepository
	// runtimes detects and installs the runtime.
	runtimes *provision.Provisioner
	// supervisor owns the child process session.
	supervisor *supervisor.Supervisor
	// window backs the file picker and always-on-top toggle.
	window Window
}

// Option configures the launcher.
type Option func(*settings)

// settings collects options before the components are built.
type settings struct {
	// window overrides the headless window.
	window Window
	// httpClient overrides the transport's round tripper.
	httpClient *http.Client
	// bus replaces the private event bus.
	bus *events.Bus
	// provisionOptions are appended after the config-derived ones.
	provisionOptions []provision.Option
}

// WithWindow sets the desktop shell collaborator.
func WithWindow(window Window) Option {
	return func(s *settings) {
		s.window = window
	}
}

// WithHTTPClient replaces the HTTP client used for every download.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// WithBus publishes events on an existing bus.
func WithBus(bus *events.Bus) Option {
	return func(s *settings) {
		s.bus = bus
	}
}

// WithProvisionOptions adjusts the runtime provisioner.
func WithProvisionOptions(opts ...provision.Option) Option {
	return func(s *settings) {
		s.provisionOptions = append(s.provisionOptions, opts...)
	}
}

// New builds a launcher from a configuration. The configuration is validated
// and defaulted in place.
func New(cfg *config.Config, opts ...Option) (*Launcher, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	s := &settings{window: Headless{}}
	for _, opt := range opts {
		opt(s)
	}

	if s.bus == nil {
		s.bus = events.NewBus()
	}

	client := transport.New(
		transport.WithHTTPClient(s.httpClient),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithMaxRedirects(cfg.MaxRedirects),
	)

	artifacts := artifact.NewFileRepository(
		cfg.DataDir,
		cfg.ProductName,
		release.NewResolver(client, cfg.ReleaseURL),
		client,
		s.bus,
	)

	provisionOptions := []provision.Option{
		provision.WithCommand(cfg.Runtime.Command),
		provision.WithFeatureVersion(cfg.Runtime.FeatureVersion),
		provision.WithDistributionURL(cfg.Runtime.DistributionURL),
	}

	if cfg.Runtime.Extractor == config.ExtractorNative {
		provisionOptions = append(provisionOptions, provision.WithExtractor(provision.NativeExtractor{}))
	}

	runtimes := provision.New(cfg.DataDir, client, append(provisionOptions, s.provisionOptions...)...)

	return &Launcher{
		cfg:        cfg,
		bus:        s.bus,
		artifacts:  artifacts,
		runtimes:   runtimes,
		supervisor: supervisor.New(artifacts, runtimes, s.bus, cfg.DataDir),
		window:     s.window,
	}, nil
}

// Config returns the effective configuration.
func (l *Launcher) Config() *config.Config {
	return l.cfg
}

// Subscribe streams every event published after the call until ctx is done.
func (l *Launcher) Subscribe(ctx context.Context) <-chan events.Event {
	return l.bus.Subscribe(ctx)
}

// DownloadLatest ensures the latest release artifact is cached.
func (l *Launcher) DownloadLatest(ctx context.Context) DownloadResult {
	ctx = logger.WithName(ctx, "launcher")

	if err := l.ensureDataDir(); err != nil {
		return DownloadResult{Error: err.Error()}
	}

	record, err := l.artifacts.EnsureArtifact(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Download latest failed", "error", err)
	}

	return newDownloadResult(record, err)
}

// DownloadFromURL downloads an artifact from an arbitrary URL.
func (l *Launcher) DownloadFromURL(ctx context.Context, rawURL string) DownloadResult {
	ctx = logger.WithName(ctx, "launcher")

	if err := l.ensureDataDir(); err != nil {
		return DownloadResult{Error: err.Error()}
	}

	record, err := l.artifacts.DownloadFromURL(ctx, rawURL)
	if err != nil {
		logger.ErrorKV(ctx, "Download from URL failed", "url", rawURL, "error", err)
	}

	return newDownloadResult(record, err)
}

// Cached lists artifacts already present in the data directory.
func (l *Launcher) Cached(ctx context.Context) CachedResult {
	return newCachedResult(l.artifacts.Cached(ctx))
}

// CheckRuntime looks for a usable runtime.
func (l *Launcher) CheckRuntime(ctx context.Context) RuntimeCheck {
	detection := l.runtimes.Detect(ctx)

	return RuntimeCheck{OK: detection.Available, Path: detection.ExecutablePath}
}

// InstallRuntime downloads and extracts the runtime, publishing runtime progress.
func (l *Launcher) InstallRuntime(ctx context.Context) InstallResult {
	ctx = logger.WithName(ctx, "launcher")

	if err := l.ensureDataDir(); err != nil {
		return InstallResult{Error: err.Error()}
	}

	handle, err := l.runtimes.Install(ctx, events.Progress(l.bus, events.KindRuntimeProgress))
	if err != nil {
		logger.ErrorKV(ctx, "Install runtime failed", "error", err)

		return InstallResult{Error: err.Error()}
	}

	return InstallResult{OK: handle.Found(), JavaPath: handle.ExecutablePath}
}

// Launch starts the child with the request options, falling back to the
// configured launch defaults for unset fields.
func (l *Launcher) Launch(ctx context.Context, opts *launch.Options) LaunchResponse {
	ctx = logger.WithName(ctx, "launcher")

	if err := l.ensureDataDir(); err != nil {
		return LaunchResponse{Error: err.Error()}
	}

	result, err := l.supervisor.Launch(ctx, l.withDefaults(opts))
	if err != nil {
		logger.ErrorKV(ctx, "Launch failed", "error", err)

		return LaunchResponse{Error: err.Error()}
	}

	return LaunchResponse{OK: true, Cmd: result.Cmd, Version: result.Version}
}

// Stop requests termination of the running child.
func (l *Launcher) Stop(ctx context.Context) Ack {
	if err := l.supervisor.Stop(ctx); err != nil {
		return Ack{Error: err.Error()}
	}

	return Ack{OK: true}
}

// IsRunning reports whether a child is running.
func (l *Launcher) IsRunning() bool {
	return l.supervisor.IsRunning()
}

// Status returns the running flag and the session snapshot.
func (l *Launcher) Status() StatusResult {
	info, ok := l.supervisor.Session()
	if !ok {
		return StatusResult{Running: l.supervisor.IsRunning()}
	}

	return StatusResult{Running: true, Session: &info}
}

// PickRuntimeExecutable delegates to the window. Nil means canceled.
func (l *Launcher) PickRuntimeExecutable(ctx context.Context) *string {
	picked, err := l.window.PickRuntimeExecutable(ctx)
	if err != nil {
		logger.WarnKV(logger.WithName(ctx, "launcher"), "Runtime picker failed", "error", err)

		return nil
	}

	return picked
}

// SetAlwaysOnTop delegates to the window.
func (l *Launcher) SetAlwaysOnTop(ctx context.Context, enabled bool) Ack {
	if err := l.window.SetAlwaysOnTop(ctx, enabled); err != nil {
		return Ack{Error: err.Error()}
	}

	return Ack{OK: true}
}

// withDefaults fills unset request fields from the configured launch section.
func (l *Launcher) withDefaults(opts *launch.Options) *launch.Options {
	merged := launch.Options{}
	if opts != nil {
		merged = *opts
	}

	defaults := l.cfg.Launch

	if merged.Server == "" {
		merged.Server = defaults.Server
	}

	if merged.Port == 0 {
		merged.Port = defaults.Port
	}

	if merged.RemotePort == 0 {
		merged.RemotePort = defaults.RemotePort
	}

	if merged.JavaPath == "" {
		merged.JavaPath = defaults.JavaPath
	}

	// An explicit false in the request overrides a true default.
	if merged.DevMode == nil {
		merged.DevMode = launch.Bool(defaults.DevMode)
	}

	return &merged
}

// ensureDataDir creates the data directory.
func (l *Launcher) ensureDataDir() error {
	if err := os.MkdirAll(l.cfg.DataDir, 0o755); err != nil { //nolint:mnd // Conventional directory mode.
		return fmt.Errorf("create data directory: %w", err)
	}

	return nil
}
