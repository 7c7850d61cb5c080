package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blueberrycoding/bbmp-launcher/internal/config"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/console"
	"github.com/blueberrycoding/bbmp-launcher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// dataDir overrides the configured data directory.
	dataDir string
	// logLevel selects the zap level.
	logLevel string

	// errInvalidLogLevel is returned for an unparsable --log-level.
	errInvalidLogLevel = errors.New("invalid log level")

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "bbmp-launcher",
		Short: "Download, provision and run BlueBerryMinecraftProxy.",
		Long: `Launcher for BlueBerryMinecraftProxy.

Resolves the latest release, caches the jar in the data directory, provisions
a Java runtime when none is available and supervises the proxy process.
Operations run locally, or remotely against a "serve" instance over gRPC.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %q", errInvalidLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the CLI and exits with non-zero status on error.
// A foreground child that exits on its own passes its code through.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *console.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	os.Exit(1)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// interactive reports whether stdout is a terminal.
func interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // Fd fits in int.
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&dataDir, "data-dir", "", "override the data directory")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, downloadCmd, runtimeCmd, launchCmd, ctlCmd, watchCmd)
}
