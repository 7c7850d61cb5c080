package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/console"
)

var (
	// downloadURL selects a custom artifact.
	downloadURL string
	// downloadList prints the cache instead of downloading.
	downloadList bool
	// launchOptions collects the launch flags.
	launchOptions launch.Options

	// downloadCmd caches an artifact locally.
	downloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Cache the latest release jar, or a custom jar with --url.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if downloadList {
				return runConsole(&console.Options{Action: console.ActionCached})
			}

			return runConsole(&console.Options{Action: console.ActionDownload, URL: downloadURL})
		},
	}

	// runtimeCmd groups runtime operations.
	runtimeCmd = &cobra.Command{
		Use:   "runtime",
		Short: "Check for or install the Java runtime.",
	}

	// runtimeCheckCmd looks for a runtime.
	runtimeCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Report whether a usable Java runtime is available.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConsole(&console.Options{Action: console.ActionCheckRuntime})
		},
	}

	// runtimeInstallCmd installs the runtime into the data directory.
	runtimeInstallCmd = &cobra.Command{
		Use:   "install",
		Short: "Download and unpack a Java runtime into the data directory.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConsole(&console.Options{Action: console.ActionInstallRuntime})
		},
	}

	// launchCmd runs the proxy in the foreground.
	launchCmd = &cobra.Command{
		Use:   "launch",
		Short: "Run the proxy in the foreground.",
		Long: `Ensures the latest jar is cached, resolves a Java runtime and runs the proxy.

Proxy output is printed as it arrives. Ctrl-C stops the proxy and waits for it to exit.
Unset flags fall back to the launch section of the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConsole(&console.Options{Action: console.ActionLaunch, Launch: launchOptions})
		},
	}
)

// runConsole performs a local operation with the shared flags applied.
func runConsole(opts *console.Options) error {
	ctx, stop := signalContext()
	defer stop()

	opts.ConfigPath = configPath
	opts.DataDir = dataDir
	opts.Interactive = interactive()

	return console.Run(ctx, opts)
}

// bindLaunchFlags registers the launch option flags.
func bindLaunchFlags(flags *pflag.FlagSet, opts *launch.Options) {
	flags.StringVar(&opts.Server, "server", "", "upstream server address")
	flags.IntVar(&opts.Port, "port", 0, "local listen port")
	flags.IntVar(&opts.RemotePort, "rport", 0, "upstream server port")
	devMode := flags.VarPF(optionalBool{target: &opts.DevMode}, "devmode", "",
		"run the proxy in developer mode (--devmode=false overrides the config)")
	devMode.NoOptDefVal = "true"
	flags.StringVar(&opts.JavaPath, "java", "", "java executable to use instead of detection")
}

// optionalBool is a bool flag that stays nil until it is given.
type optionalBool struct {
	target **bool
}

// String implements pflag.Value.
func (b optionalBool) String() string {
	if *b.target == nil {
		return ""
	}

	return strconv.FormatBool(**b.target)
}

// Set implements pflag.Value.
func (b optionalBool) Set(value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}

	*b.target = &parsed

	return nil
}

// Type implements pflag.Value.
func (optionalBool) Type() string {
	return "bool"
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	downloadCmd.Flags().StringVar(&downloadURL, "url", "", "download a custom jar from this URL")
	downloadCmd.Flags().BoolVarP(&downloadList, "list", "l", false, "list cached jars instead of downloading")
	downloadCmd.MarkFlagsMutuallyExclusive("url", "list")

	runtimeCmd.AddCommand(runtimeCheckCmd, runtimeInstallCmd)

	bindLaunchFlags(launchCmd.Flags(), &launchOptions)
}
