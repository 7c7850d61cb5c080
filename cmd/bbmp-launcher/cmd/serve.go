package cmd

import (
	"github.com/spf13/cobra"

	"github.com/blueberrycoding/bbmp-launcher/internal/service/server"
)

// serveCmd runs the gRPC launcher server.
var serveCmd = &cobra.Command{
	Use:   "serve [listen-address]",
	Short: "Run the launcher gRPC server.",
	Long: `Starts the gRPC launcher server that owns the data directory and the proxy process.

The server listens on listen_addr from the configuration file. A listen address
can be provided as argument to override it (e.g., 127.0.0.1:9090).
Stopping the server also stops a running proxy.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		var listenAddress string
		if len(args) > 0 {
			listenAddress = args[0]
		}

		return server.Run(ctx, &server.Options{
			ConfigPath:    configPath,
			ListenAddress: listenAddress,
			DataDir:       dataDir,
		})
	},
}
