package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/client"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/watcher"
)

var (
	// serverAddress overrides listen_addr for remote commands.
	serverAddress string
	// callTimeout bounds each RPC.
	callTimeout time.Duration
	// maxAttempts bounds retries while the server is unreachable.
	maxAttempts int
	// ctlURL selects a custom artifact for ctl download.
	ctlURL string
	// ctlLaunchOptions collects the ctl launch flags.
	ctlLaunchOptions launch.Options

	// ctlCmd groups remote operations.
	ctlCmd = &cobra.Command{
		Use:   "ctl",
		Short: "Control a running launcher server.",
		Long: `Sends a single request to a "serve" instance and prints the result.

Requests are retried while the server is unreachable.`,
	}

	// watchCmd streams remote events.
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream proxy output and progress from a launcher server.",
		Long: `Subscribes to the server's event stream and prints proxy output, progress and exits.

The stream is reopened after the server drops it, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return watcher.Run(ctx, &watcher.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
			})
		},
	}
)

// ctlAction builds a ctl subcommand performing action.
func ctlAction(action client.Action, short string, configure func(*client.Options)) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			opts := &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Timeout:       callTimeout,
				Action:        action,
				MaxAttempts:   maxAttempts,
			}

			if configure != nil {
				configure(opts)
			}

			return client.Run(ctx, opts)
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	ctlLaunch := ctlAction(client.ActionLaunch, "Start the proxy on the server.", func(opts *client.Options) {
		opts.Launch = ctlLaunchOptions
	})
	bindLaunchFlags(ctlLaunch.Flags(), &ctlLaunchOptions)

	ctlDownload := ctlAction(client.ActionDownload, "Cache the latest or a custom jar on the server.",
		func(opts *client.Options) {
			opts.URL = ctlURL
		})
	ctlDownload.Flags().StringVar(&ctlURL, "url", "", "download a custom jar from this URL")

	ctlCmd.AddCommand(
		ctlLaunch,
		ctlAction(client.ActionStop, "Stop the proxy on the server.", nil),
		ctlAction(client.ActionStatus, "Print the server's proxy state.", nil),
		ctlAction(client.ActionCached, "List the jars cached on the server.", nil),
		ctlDownload,
		ctlAction(client.ActionCheckRuntime, "Check for a Java runtime on the server.", nil),
		ctlAction(client.ActionInstallRuntime, "Install the Java runtime on the server.", nil),
	)

	for _, cmd := range []*cobra.Command{ctlCmd, watchCmd} {
		cmd.PersistentFlags().StringVarP(&serverAddress, "addr", "a", "", "launcher server address (overrides listen_addr)")
	}

	ctlCmd.PersistentFlags().DurationVarP(&callTimeout, "timeout", "t", 0, "per-request timeout, 0 for none")
	ctlCmd.PersistentFlags().IntVar(&maxAttempts, "attempts", 0, "maximum attempts while unreachable, 0 for unlimited")
}
