package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds launcher settings shared by the CLI, the API server and the services.
type Config struct {
	// DataDir is the user-scoped directory for downloaded artifacts and runtimes.
	DataDir string `yaml:"data_dir"`
	// ProductName prefixes cached artifact filenames (<product>-<tag>.jar).
	ProductName string `yaml:"product_name"`
	// ReleaseURL is the release metadata endpoint returning the latest release.
	ReleaseURL string `yaml:"release_url"`
	// UserAgent is the product token sent with every HTTP request.
	UserAgent string `yaml:"user_agent"`
	// ListenAddress is the local gRPC address served by `bbmp-launcher serve`.
	ListenAddress string `yaml:"listen_addr"`
	// HTTPTimeout bounds each HTTP request. Zero means no deadline.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// MaxRedirects caps redirect hops. Zero means unlimited.
	MaxRedirects int `yaml:"max_redirects"`
	// Runtime configures runtime detection and installation.
	Runtime Runtime `yaml:"runtime"`
	// Launch holds default launch options.
	Launch Launch `yaml:"launch"`
}

// Runtime configures the Java runtime provisioner.
type Runtime struct {
	// FeatureVersion is the Java feature release to install (17 for Temurin 17).
	FeatureVersion int `yaml:"feature_version"`
	// DistributionURL is the base of the binary distribution API.
	DistributionURL string `yaml:"distribution_url"`
	// Command is the runtime command checked during detection. Empty means java/java.exe.
	Command string `yaml:"command"`
	// Extractor selects how archives are unpacked: "command" or "native".
	Extractor string `yaml:"extractor"`
}

// Launch holds the launch options used when a request leaves them unset.
type Launch struct {
	// Server is the upstream server address passed as -ip.
	Server string `yaml:"server"`
	// Port is the local listen port passed as -port.
	Port int `yaml:"port"`
	// RemotePort is the upstream port passed as -rport.
	RemotePort int `yaml:"rport"`
	// DevMode appends "-devmode true" to the launch arguments.
	DevMode bool `yaml:"devmode"`
	// JavaPath forces a runtime executable and skips detection.
	JavaPath string `yaml:"java_path"`
}

const (
	// DefaultConfigFilename is the default filename for launcher settings.
	DefaultConfigFilename = "bbmp-launcher.yaml"

	// DefaultProductName is the product prefix of cached artifacts.
	DefaultProductName = "BlueBerryMinecraftProxy"

	// DefaultReleaseURL is the GitHub endpoint describing the latest release.
	DefaultReleaseURL = "https://api.github.com/repos/BlueBerryCodingGroup/BBMP/releases/latest"

	// DefaultUserAgent is the product token sent to the release feed.
	DefaultUserAgent = "BBMP-Launcher"

	// DefaultListenAddress is the loopback address of the local API.
	DefaultListenAddress = "127.0.0.1:47613"

	// DefaultDistributionURL is the Adoptium binary API base.
	DefaultDistributionURL = "https://api.adoptium.net/v3/binary/latest"

	// DefaultFeatureVersion is the Java feature release installed on demand.
	DefaultFeatureVersion = 17

	// DefaultServer is the upstream server used when none is requested.
	DefaultServer = "play.hypixel.net"

	// DefaultPort is used for both the local and the remote port.
	DefaultPort = 25565

	// ExtractorCommand unpacks archives by spawning tar or Expand-Archive.
	ExtractorCommand = "command"

	// ExtractorNative unpacks archives in-process.
	ExtractorNative = "native"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// dataDirName is the directory created under the user config dir.
	dataDirName = "bbmp-launcher"

	// maxPort is the largest valid TCP port.
	maxPort = 65535
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidPort is returned when a port is outside 0..65535.
	errInvalidPort = errors.New("port out of range")
	// errUnknownExtractor is returned for an unsupported runtime.extractor value.
	errUnknownExtractor = errors.New("unknown extractor")
	// errNegativeValue is returned for negative timeouts and redirect caps.
	errNegativeValue = errors.New("value must not be negative")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Validate only fails on malformed values; defaults are well-formed.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings for malformed values and fills in defaults.
//
//nolint:cyclop // A flat list of field checks reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.DataDir == "" {
		settings.DataDir = DefaultDataDir()
	}

	if settings.ProductName == "" {
		settings.ProductName = DefaultProductName
	}

	if settings.ReleaseURL == "" {
		settings.ReleaseURL = DefaultReleaseURL
	}

	if _, err := url.ParseRequestURI(settings.ReleaseURL); err != nil {
		return fmt.Errorf("invalid release URL: %w", err)
	}

	if settings.UserAgent == "" {
		settings.UserAgent = DefaultUserAgent
	}

	if settings.ListenAddress == "" {
		settings.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if settings.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout %s: %w", settings.HTTPTimeout, errNegativeValue)
	}

	if settings.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects %d: %w", settings.MaxRedirects, errNegativeValue)
	}

	if err := validateRuntime(&settings.Runtime); err != nil {
		return err
	}

	return validateLaunch(&settings.Launch)
}

// validateRuntime fills runtime defaults and checks the distribution URL and extractor.
func validateRuntime(rt *Runtime) error {
	if rt.FeatureVersion <= 0 {
		rt.FeatureVersion = DefaultFeatureVersion
	}

	if rt.DistributionURL == "" {
		rt.DistributionURL = DefaultDistributionURL
	}

	if _, err := url.ParseRequestURI(rt.DistributionURL); err != nil {
		return fmt.Errorf("invalid distribution URL: %w", err)
	}

	if rt.Command == "" {
		rt.Command = DefaultRuntimeCommand()
	}

	switch rt.Extractor {
	case "":
		rt.Extractor = ExtractorCommand
	case ExtractorCommand, ExtractorNative:
	default:
		return fmt.Errorf("%w: %q", errUnknownExtractor, rt.Extractor)
	}

	return nil
}

// validateLaunch checks port ranges. Zero ports and an empty server are
// resolved to defaults at launch time, so they stay as written here.
func validateLaunch(l *Launch) error {
	for name, port := range map[string]int{"port": l.Port, "rport": l.RemotePort} {
		if port < 0 || port > maxPort {
			return fmt.Errorf("launch %s %d: %w", name, port, errInvalidPort)
		}
	}

	return nil
}

// DefaultDataDir returns <user config dir>/bbmp-launcher, or a relative
// directory when the user config dir cannot be determined.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return dataDirName
	}

	return filepath.Join(base, dataDirName)
}

// DefaultRuntimeCommand returns the bare runtime command for the current OS.
func DefaultRuntimeCommand() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}

	return "java"
}
