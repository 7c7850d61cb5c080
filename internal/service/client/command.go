package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blueberrycoding/bbmp-launcher/internal/config"
	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/common"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/console"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/launcher"
)

// Action names a remote operation.
type Action string

const (
	// ActionLaunch starts the child on the server.
	ActionLaunch Action = "launch"
	// ActionStop stops the child on the server.
	ActionStop Action = "stop"
	// ActionStatus prints the server's supervisor state.
	ActionStatus Action = "status"
	// ActionDownload caches the latest artifact, or the URL when set.
	ActionDownload Action = "download"
	// ActionCached lists the artifacts cached on the server.
	ActionCached Action = "cached"
	// ActionCheckRuntime looks for a runtime on the server.
	ActionCheckRuntime Action = "check-runtime"
	// ActionInstallRuntime installs the runtime on the server.
	ActionInstallRuntime Action = "install-runtime"
)

// Remote is the slice of the launcher client used by ctl.
type Remote interface {
	DownloadLatest(ctx context.Context) (*launcher.DownloadResult, error)
	DownloadFromURL(ctx context.Context, rawURL string) (*launcher.DownloadResult, error)
	CheckRuntime(ctx context.Context) (*launcher.RuntimeCheck, error)
	InstallRuntime(ctx context.Context) (*launcher.InstallResult, error)
	Cached(ctx context.Context) (*launcher.CachedResult, error)
	Launch(ctx context.Context, opts *launch.Options) (*launcher.LaunchResponse, error)
	Stop(ctx context.Context) (*launcher.Ack, error)
	Status(ctx context.Context) (*launcher.StatusResult, error)
}

// Options configures a remote call.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the listen address from config when specified.
	ServerAddress string
	// Timeout bounds each RPC. Zero means no deadline.
	Timeout time.Duration
	// Action selects the operation.
	Action Action
	// Launch carries the launch options for ActionLaunch.
	Launch launch.Options
	// URL selects a custom artifact for ActionDownload.
	URL string
	// RetryInterval is the delay between attempts while the server is unreachable.
	RetryInterval time.Duration
	// MaxAttempts bounds attempts. Zero means retry until ctx is done.
	MaxAttempts int
	// Output receives the human-readable result. Defaults to stdout.
	Output io.Writer
}

// defaultRetryInterval defines retry delay while the server is unreachable.
const defaultRetryInterval = 1 * time.Second

var (
	// ErrRemote is returned when the server reports a failed operation.
	ErrRemote = errors.New("remote operation failed")
	// errUnknownAction is returned for an unsupported Action.
	errUnknownAction = errors.New("unknown action")
)

// Run dials the server and performs the requested action.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithKV(logger.WithName(ctx, "launcher-ctl"), "action", opts.Action)

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Calling launcher server", "server_address", serverAddress)

	return Execute(ctx, client, opts)
}

// Execute performs the action against remote, retrying while it is unreachable.
//
//nolint:cyclop // Retry loop mirrors the immediate attempt.
func Execute(ctx context.Context, remote Remote, opts *Options) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	interval := opts.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	attempts := 0

	// attempt tries once, returns (completed, error).
	attempt := func() (bool, error) {
		attempts++

		err := perform(ctx, remote, opts, out)
		if err == nil {
			return true, nil
		}

		if !retryable(err) {
			return false, err
		}

		if opts.MaxAttempts > 0 && attempts >= opts.MaxAttempts {
			return false, err
		}

		// Log error but continue retrying while the server comes up.
		logger.WarnKV(ctx, "Launcher server unreachable, retrying", "error", err)

		return false, nil
	}

	// Attempt immediately before starting retry loop.
	if done, err := attempt(); err != nil {
		return err
	} else if done {
		return nil
	}

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Retry loop until success or cancellation.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// perform calls the action once and prints its result.
//
//nolint:cyclop,funlen // One branch per action.
func perform(ctx context.Context, remote Remote, opts *Options, out io.Writer) error {
	switch opts.Action {
	case ActionLaunch:
		result, err := remote.Launch(ctx, &opts.Launch)
		if err != nil {
			return err
		}

		if !result.OK {
			return remoteError(result.Error)
		}

		_, _ = fmt.Fprintf(out, "Launched %s\n%s\n", result.Version, result.Cmd)
	case ActionStop:
		result, err := remote.Stop(ctx)
		if err != nil {
			return err
		}

		if !result.OK {
			return remoteError(result.Error)
		}

		_, _ = fmt.Fprintln(out, "Stop requested")
	case ActionStatus:
		result, err := remote.Status(ctx)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(out, FormatStatus(result))
	case ActionDownload:
		var (
			result *launcher.DownloadResult
			err    error
		)

		if opts.URL != "" {
			result, err = remote.DownloadFromURL(ctx, opts.URL)
		} else {
			result, err = remote.DownloadLatest(ctx)
		}

		if err != nil {
			return err
		}

		if result.Error != "" {
			return remoteError(result.Error)
		}

		_, _ = fmt.Fprintf(out, "Downloaded %s (%s)\n%s\n", result.Name, result.Version, result.Path)
	case ActionCached:
		result, err := remote.Cached(ctx)
		if err != nil {
			return err
		}

		if result.Error != "" {
			return remoteError(result.Error)
		}

		_, _ = io.WriteString(out, console.FormatCached(result.Artifacts))
	case ActionCheckRuntime:
		result, err := remote.CheckRuntime(ctx)
		if err != nil {
			return err
		}

		if !result.OK {
			_, _ = fmt.Fprintln(out, "Runtime not available")

			return nil
		}

		_, _ = fmt.Fprintf(out, "Runtime available: %s\n", result.Path)
	case ActionInstallRuntime:
		result, err := remote.InstallRuntime(ctx)
		if err != nil {
			return err
		}

		if result.Error != "" {
			return remoteError(result.Error)
		}

		if !result.OK {
			_, _ = fmt.Fprintln(out, "Runtime installed but no executable was found")

			return nil
		}

		_, _ = fmt.Fprintf(out, "Runtime installed: %s\n", result.JavaPath)
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, opts.Action)
	}

	return nil
}

// FormatStatus renders a status result on one line.
func FormatStatus(result *launcher.StatusResult) string {
	if result == nil || !result.Running {
		return "Not running"
	}

	if result.Session == nil {
		return "Running"
	}

	alive := "alive"
	if !result.Session.Alive {
		alive = "not in process table"
	}

	return fmt.Sprintf("Running: session %s, pid %d, started %s (%s)",
		result.Session.ID,
		result.Session.PID,
		result.Session.StartedAt.Format(time.RFC3339),
		alive,
	)
}

// retryable reports whether err means the server could not be reached.
func retryable(err error) bool {
	return status.Code(err) == codes.Unavailable
}

// remoteError wraps a server-reported failure.
func remoteError(message string) error {
	return fmt.Errorf("%w: %s", ErrRemote, message)
}
