package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/transport"
)

// Downloader streams a URL to a local file.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress transport.ProgressFunc) (string, error)
}

// Provisioner finds or installs the runtime below a data directory.
type Provisioner struct {
	// dataDir receives the archive and the install directory.
	dataDir string
	// command is the system runtime command checked first.
	command string
	// feature is the runtime feature release, e.g. 17.
	feature int
	// baseURL is the binary distribution endpoint.
	baseURL string
	// platform holds the OS-specific distribution parameters.
	platform Platform
	// arch is the distribution's architecture identifier.
	arch string
	// downloader fetches the archive.
	downloader Downloader
	// extractor unpacks the archive.
	extractor Extractor
}

// Option configures the provisioner.
type Option func(*Provisioner)

const (
	// DefaultFeatureVersion is the runtime feature release installed by default.
	DefaultFeatureVersion = 17
	// DefaultDistributionURL is the binary distribution endpoint.
	DefaultDistributionURL = "https://api.adoptium.net/v3/binary/latest"

	// versionMarker is searched for in the version check's stderr.
	versionMarker = "version"
)

// WithCommand overrides the system runtime command.
func WithCommand(command string) Option {
	return func(p *Provisioner) {
		if command != "" {
			p.command = command
		}
	}
}

// WithFeatureVersion sets the runtime feature release.
func WithFeatureVersion(feature int) Option {
	return func(p *Provisioner) {
		if feature > 0 {
			p.feature = feature
		}
	}
}

// WithDistributionURL sets the binary distribution endpoint.
func WithDistributionURL(base string) Option {
	return func(p *Provisioner) {
		if base != "" {
			p.baseURL = base
		}
	}
}

// WithPlatform overrides the host GOOS and GOARCH.
func WithPlatform(goos, goarch string) Option {
	return func(p *Provisioner) {
		p.platform = PlatformFor(goos)
		p.arch = ArchFor(goarch)
	}
}

// WithExtractor replaces the archive extractor.
func WithExtractor(extractor Extractor) Option {
	return func(p *Provisioner) {
		if extractor != nil {
			p.extractor = extractor
		}
	}
}

// New creates a provisioner for the current host.
func New(dataDir string, downloader Downloader, opts ...Option) *Provisioner {
	p := &Provisioner{
		dataDir:    dataDir,
		feature:    DefaultFeatureVersion,
		baseURL:    DefaultDistributionURL,
		platform:   PlatformFor(runtime.GOOS),
		arch:       ArchFor(runtime.GOARCH),
		downloader: downloader,
		extractor:  CommandExtractor{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.command == "" {
		p.command = p.platform.Executable
	}

	return p
}

// Command returns the system runtime command.
func (p *Provisioner) Command() string {
	return p.command
}

// InstallDir returns <dataDir>/jre<feature>.
func (p *Provisioner) InstallDir() string {
	return filepath.Join(p.dataDir, "jre"+strconv.Itoa(p.feature))
}

// ArchivePath returns <dataDir>/temurin<feature><ext>.
func (p *Provisioner) ArchivePath() string {
	return filepath.Join(p.dataDir, "temurin"+strconv.Itoa(p.feature)+p.platform.Ext)
}

// URL returns the archive download URL for this host.
func (p *Provisioner) URL() string {
	return DistributionURL(p.baseURL, p.feature, p.platform, p.arch)
}

// Detect checks the system command, then a previously installed runtime.
func (p *Provisioner) Detect(ctx context.Context) launch.Detection {
	ctx = logger.WithName(ctx, "provision")

	if ReportsVersion(ctx, p.command) {
		return launch.Detection{Available: true, ExecutablePath: p.command}
	}

	installed := p.Locate()
	if installed.Found() && ReportsVersion(ctx, installed.ExecutablePath) {
		logger.InfoKV(ctx, "Using installed runtime", "path", installed.ExecutablePath)

		return launch.Detection{Available: true, ExecutablePath: installed.ExecutablePath}
	}

	return launch.Detection{}
}

// Install downloads and extracts the runtime, then locates its executable.
// A missing executable after a successful extraction yields an absent handle.
func (p *Provisioner) Install(ctx context.Context, onProgress transport.ProgressFunc) (*launch.RuntimeHandle, error) {
	ctx = logger.WithName(ctx, "provision")

	if onProgress == nil {
		onProgress = func(float64) {}
	}

	archivePath := p.ArchivePath()
	installDir := p.InstallDir()

	logger.InfoKV(ctx, "Installing runtime", "url", p.URL(), "dir", installDir)

	if _, err := p.downloader.DownloadFile(ctx, p.URL(), archivePath, onProgress); err != nil {
		return nil, fmt.Errorf("%w: download: %w", launch.ErrInstall, err)
	}

	if err := os.RemoveAll(installDir); err != nil {
		return nil, fmt.Errorf("%w: clear %s: %w", launch.ErrInstall, installDir, err)
	}

	if err := os.MkdirAll(installDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", launch.ErrInstall, installDir, err)
	}

	if err := p.extractor.Extract(ctx, p.platform.Archive, archivePath, installDir); err != nil {
		return nil, fmt.Errorf("%w: extract: %w", launch.ErrInstall, err)
	}

	handle := p.Locate()
	if !handle.Found() {
		logger.WarnKV(ctx, "Runtime executable not found after extraction", "dir", installDir)

		return handle, nil
	}

	logger.InfoKV(ctx, "Runtime installed", "path", handle.ExecutablePath)

	return handle, nil
}

// Locate searches the install directory for the runtime executable.
func (p *Provisioner) Locate() *launch.RuntimeHandle {
	dir := p.InstallDir()
	root := os.DirFS(dir)

	for _, candidate := range p.candidates() {
		matches, err := fs.Glob(root, candidate)
		if err != nil {
			continue
		}

		for _, match := range matches {
			full := filepath.Join(dir, filepath.FromSlash(match))
			if isFile(full) {
				return &launch.RuntimeHandle{ExecutablePath: full}
			}
		}
	}

	return &launch.RuntimeHandle{}
}

// candidates lists slash-separated executable patterns in search order.
func (p *Provisioner) candidates() []string {
	jdk := "jdk-" + strconv.Itoa(p.feature)

	return []string{
		"bin/java",
		"bin/java.exe",
		path.Join(jdk, "bin/java"),
		path.Join(jdk, "bin/java.exe"),
		path.Join("jdk-*/bin", p.platform.Executable),
		"jdk-*/Contents/Home/bin/java",
	}
}

// ReportsVersion runs `<command> -version` and reports whether stderr mentions a version.
// A command that cannot be started is reported as unavailable.
func ReportsVersion(ctx context.Context, command string) bool {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, command, "-version")
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			logger.DebugKV(ctx, "Runtime version check failed to start", "command", command, "error", err)

			return false
		}
	}

	return strings.Contains(stderr.String(), versionMarker)
}

// isFile reports whether path exists and is not a directory.
func isFile(name string) bool {
	info, err := os.Stat(name)

	return err == nil && !info.IsDir()
}
