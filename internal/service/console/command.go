package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/blueberrycoding/bbmp-launcher/internal/config"
	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/launcher"
	"github.com/blueberrycoding/bbmp-launcher/internal/tui"
)

// Action names a local operation.
type Action string

const (
	// ActionDownload caches the latest artifact, or the URL when set.
	ActionDownload Action = "download"
	// ActionCheckRuntime looks for a runtime.
	ActionCheckRuntime Action = "check-runtime"
	// ActionInstallRuntime installs the runtime.
	ActionInstallRuntime Action = "install-runtime"
	// ActionCached lists the artifacts in the data directory.
	ActionCached Action = "cached"
	// ActionLaunch runs the child in the foreground.
	ActionLaunch Action = "launch"
)

// Service is the slice of the launcher used by the console.
type Service interface {
	DownloadLatest(ctx context.Context) launcher.DownloadResult
	DownloadFromURL(ctx context.Context, rawURL string) launcher.DownloadResult
	CheckRuntime(ctx context.Context) launcher.RuntimeCheck
	InstallRuntime(ctx context.Context) launcher.InstallResult
	Cached(ctx context.Context) launcher.CachedResult
	Launch(ctx context.Context, opts *launch.Options) launcher.LaunchResponse
	Stop(ctx context.Context) launcher.Ack
	Subscribe(ctx context.Context) <-chan events.Event
}

// Options configures a local operation.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// DataDir overrides the configured data directory.
	DataDir string
	// Action selects the operation.
	Action Action
	// Launch carries the launch options for ActionLaunch.
	Launch launch.Options
	// URL selects a custom artifact for ActionDownload.
	URL string
	// Output receives results and child output. Defaults to stdout.
	Output io.Writer
	// Interactive renders progress bars instead of plain progress lines.
	Interactive bool
	// StopTimeout bounds the wait for the child after an interrupt.
	StopTimeout time.Duration
}

// ExitError reports a non-zero child exit code.
type ExitError struct {
	// Code is the child's exit code.
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// defaultStopTimeout bounds the wait for the exit event after Stop.
const defaultStopTimeout = 10 * time.Second

var (
	// ErrFailed is returned when an operation reports a failure.
	ErrFailed = errors.New("operation failed")
	// errUnknownAction is returned for an unsupported Action.
	errUnknownAction = errors.New("unknown action")
	// errNoExit is returned when the child does not exit after Stop in time.
	errNoExit = errors.New("child did not exit after stop")
)

// Run builds a launcher from the configuration and performs the action.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "launcher-console")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	svc, err := launcher.New(cfg)
	if err != nil {
		return fmt.Errorf("initialise launcher: %w", err)
	}

	return Execute(ctx, svc, opts)
}

// Execute performs the action against svc.
func Execute(ctx context.Context, svc Service, opts *Options) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Action {
	case ActionDownload:
		return withProgress(ctx, svc, opts, out, "Downloading artifact", func() (string, error) {
			result := download(ctx, svc, opts.URL)
			if result.Error != "" {
				return "", fmt.Errorf("%w: %s", ErrFailed, result.Error)
			}

			return fmt.Sprintf("Downloaded %s (%s)\n%s\n", result.Name, result.Version, result.Path), nil
		})
	case ActionCheckRuntime:
		result := svc.CheckRuntime(ctx)
		if !result.OK {
			_, _ = fmt.Fprintln(out, "Runtime not available")

			return nil
		}

		_, _ = fmt.Fprintf(out, "Runtime available: %s\n", result.Path)

		return nil
	case ActionInstallRuntime:
		return withProgress(ctx, svc, opts, out, "Installing runtime", func() (string, error) {
			result := svc.InstallRuntime(ctx)
			if result.Error != "" {
				return "", fmt.Errorf("%w: %s", ErrFailed, result.Error)
			}

			if !result.OK {
				return "Runtime installed but no executable was found\n", nil
			}

			return fmt.Sprintf("Runtime installed: %s\n", result.JavaPath), nil
		})
	case ActionCached:
		result := svc.Cached(ctx)
		if result.Error != "" {
			return fmt.Errorf("%w: %s", ErrFailed, result.Error)
		}

		_, _ = io.WriteString(out, FormatCached(result.Artifacts))

		return nil
	case ActionLaunch:
		return foreground(ctx, svc, opts, out)
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, opts.Action)
	}
}

// download picks the latest release or the custom URL.
func download(ctx context.Context, svc Service, rawURL string) launcher.DownloadResult {
	if rawURL != "" {
		return svc.DownloadFromURL(ctx, rawURL)
	}

	return svc.DownloadLatest(ctx)
}

// withProgress runs work while rendering progress events as bars or lines,
// then prints the summary work returned.
func withProgress(
	ctx context.Context,
	svc Service,
	opts *Options,
	out io.Writer,
	title string,
	work func() (string, error),
) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := svc.Subscribe(subCtx)

	var summary string

	if !opts.Interactive {
		printer := NewPrinter(out)
		done := make(chan struct{})

		go func() {
			defer close(done)

			for event := range feed {
				printer.Handle(event)
			}
		}()

		var err error

		summary, err = work()

		cancel()
		<-done

		if err != nil {
			return err
		}
	} else {
		err := tui.RunWithWork(ctx, out, tui.NewProgressModel(title), func(send func(tea.Msg)) error {
			go func() {
				for event := range feed {
					if event.Kind == events.KindDownloadProgress || event.Kind == events.KindRuntimeProgress {
						send(tui.ProgressMsg{Label: Label(event.Kind), Fraction: event.Fraction})
					}
				}
			}()

			var err error

			summary, err = work()

			return err
		})
		if err != nil {
			return err
		}
	}

	_, _ = io.WriteString(out, summary)

	return nil
}

// foreground launches the child and relays its output until it exits.
// Canceling ctx stops the child and waits for its exit event.
func foreground(ctx context.Context, svc Service, opts *Options, out io.Writer) error {
	// The subscription outlives ctx so the exit event is seen after an interrupt.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	printer := NewPrinter(out)
	exited := make(chan int, 1)
	feed := svc.Subscribe(subCtx)

	go func() {
		for event := range feed {
			printer.Handle(event)

			if event.Kind == events.KindExit {
				exited <- event.ExitCode

				return
			}
		}
	}()

	response := svc.Launch(ctx, &opts.Launch)
	if !response.OK {
		return fmt.Errorf("%w: %s", ErrFailed, response.Error)
	}

	printer.Printf("Launched %s\n%s\n", response.Version, response.Cmd)

	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	var deadline <-chan time.Time

	interrupted := ctx.Done()

	for {
		select {
		case <-interrupted:
			interrupted = nil

			logger.Info(ctx, "Interrupted, stopping child")

			if ack := svc.Stop(context.WithoutCancel(ctx)); !ack.OK {
				return fmt.Errorf("%w: %s", ErrFailed, ack.Error)
			}

			deadline = time.After(stopTimeout)
		case <-deadline:
			return errNoExit
		case code := <-exited:
			// A stopped child exits non-zero; only unrequested failures are reported.
			if code != 0 && deadline == nil {
				return &ExitError{Code: code}
			}

			return nil
		}
	}
}
