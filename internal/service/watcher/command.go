package watcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blueberrycoding/bbmp-launcher/internal/config"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/common"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/console"
)

// Options controls the watcher connection and output.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// RetryInterval defines the delay before reconnecting a dropped stream.
	RetryInterval time.Duration
	// Output receives the rendered events. Defaults to stdout.
	Output io.Writer
}

// Stream is the slice of the launcher client used by the watcher.
type Stream interface {
	Subscribe(ctx context.Context, handle func(events.Event)) error
}

// DefaultRetryInterval defines the reconnect delay.
const DefaultRetryInterval = 2 * time.Second

// Run dials the server and prints its events until ctx is done.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "launcher-watch")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command line argument overrides config.
	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress)
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching launcher events", "server_address", serverAddress)

	return Watch(ctx, client, opts)
}

// Watch relays events from stream into the output, reconnecting after each
// stream end or failure, until ctx is done.
func Watch(ctx context.Context, stream Stream, opts *Options) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	interval := opts.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}

	printer := console.NewPrinter(out)

	// Connect immediately, then on every tick after a drop.
	subscribe := func() {
		err := stream.Subscribe(ctx, printer.Handle)

		switch {
		case ctx.Err() != nil:
		case err != nil:
			logger.ErrorKV(ctx, "Event stream failed", "error", err)
		default:
			logger.Info(ctx, "Event stream closed by server")
		}
	}

	subscribe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			subscribe()
		}
	}
}
