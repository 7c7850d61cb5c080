package launch

import (
	"strconv"
	"time"
)

const (
	// DefaultServer is the upstream server used when a launch request has none.
	DefaultServer = "play.hypixel.net"
	// DefaultPort is used for -port and -rport when a launch request has none.
	DefaultPort = 25565
	// CustomVersion labels artifacts whose filename carries no version.
	CustomVersion = "custom"
	// LatestTag is used when release metadata has no tag name.
	LatestTag = "latest"
)

// ReleaseDescriptor identifies the downloadable artifact of one release.
type ReleaseDescriptor struct {
	// Tag is the release tag, e.g. "v2.1".
	Tag string
	// AssetURL is the download URL of the selected asset.
	AssetURL string
	// AssetName is the filename of the selected asset.
	AssetName string
}

// ArtifactRecord is a cached or freshly downloaded artifact on disk.
type ArtifactRecord struct {
	// LocalPath is the absolute path of the artifact file.
	LocalPath string
	// VersionTag is the release tag or the label guessed from the filename.
	VersionTag string
	// Name is the artifact filename.
	Name string
}

// RuntimeHandle points at a runtime executable. An empty path means absent.
type RuntimeHandle struct {
	// ExecutablePath is the located runtime binary.
	ExecutablePath string
}

// Found reports whether the handle carries a usable path.
func (h *RuntimeHandle) Found() bool {
	return h != nil && h.ExecutablePath != ""
}

// Detection is the outcome of probing for a runtime.
type Detection struct {
	// Available is true when a checked runtime reported its version.
	Available bool
	// ExecutablePath is the checked command or installed executable.
	ExecutablePath string
}

// Options are the caller-supplied launch parameters.
type Options struct {
	// Server is the upstream address passed as -ip.
	Server string `json:"server,omitempty"`
	// Port is the local port passed as -port.
	Port int `json:"port,omitempty"`
	// RemotePort is the upstream port passed as -rport.
	RemotePort int `json:"rport,omitempty"`
	// DevMode appends "-devmode true" when set to true. Nil means unset.
	DevMode *bool `json:"devmode,omitempty"`
	// JavaPath forces the runtime executable.
	JavaPath string `json:"javaPath,omitempty"`
}

// Args builds the positional argument list for the artifact at jarPath.
func (o *Options) Args(jarPath string) []string {
	server := o.Server
	if server == "" {
		server = DefaultServer
	}

	args := []string{
		"-jar", jarPath,
		"-port", strconv.Itoa(orDefaultPort(o.Port)),
		"-ip", server,
		"-rport", strconv.Itoa(orDefaultPort(o.RemotePort)),
	}

	if o.DevMode != nil && *o.DevMode {
		args = append(args, "-devmode", "true")
	}

	return args
}

// Bool returns a pointer to v for optional Options fields.
func Bool(v bool) *bool {
	return &v
}

// Result describes a successful launch.
type Result struct {
	// Cmd is the full command line that was spawned.
	Cmd string
	// Version is the artifact version tag that was launched.
	Version string
}

// SessionInfo is a read-only snapshot of the running session.
type SessionInfo struct {
	// ID uniquely identifies the session.
	ID string `json:"id"`
	// PID is the child process id.
	PID int `json:"pid"`
	// Executable is the runtime executable that was spawned.
	Executable string `json:"executable"`
	// Args are the arguments passed to the executable.
	Args []string `json:"args"`
	// StartedAt is when the child was spawned.
	StartedAt time.Time `json:"startedAt"`
	// Alive is true when the OS process table still lists the child.
	Alive bool `json:"alive"`
}

// orDefaultPort maps an unset port to DefaultPort.
func orDefaultPort(port int) int {
	if port <= 0 {
		return DefaultPort
	}

	return port
}
