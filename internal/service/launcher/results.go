package launcher

import "github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"

// DownloadResult is the outcome of an artifact download.
type DownloadResult struct {
	// Path is the local artifact path.
	Path string `json:"path,omitempty"`
	// Version is the release tag or guessed label.
	Version string `json:"version,omitempty"`
	// Name is the artifact filename.
	Name string `json:"name,omitempty"`
	// Error is set instead of the fields above on failure.
	Error string `json:"error,omitempty"`
}

// RuntimeCheck is the outcome of runtime detection.
type RuntimeCheck struct {
	// OK is true when a runtime answered the version check.
	OK bool `json:"ok"`
	// Path is the detected executable.
	Path string `json:"path,omitempty"`
}

// InstallResult is the outcome of a runtime installation.
type InstallResult struct {
	// OK is true when an executable was found after installation.
	OK bool `json:"ok"`
	// JavaPath is the installed executable.
	JavaPath string `json:"javaPath,omitempty"`
	// Error is set when the installation failed.
	Error string `json:"error,omitempty"`
}

// LaunchResponse is the outcome of a launch request.
type LaunchResponse struct {
	// OK is true when the child was spawned.
	OK bool `json:"ok"`
	// Cmd is the spawned command line.
	Cmd string `json:"cmd,omitempty"`
	// Version is the launched artifact version.
	Version string `json:"version,omitempty"`
	// Error is set when the launch failed.
	Error string `json:"error,omitempty"`
}

// Ack acknowledges a request without payload.
type Ack struct {
	// OK is true when the request was handled.
	OK bool `json:"ok"`
	// Error is set when the request failed.
	Error string `json:"error,omitempty"`
}

// CachedResult lists the artifacts present in the data directory.
type CachedResult struct {
	// Artifacts are the cached artifacts sorted by path.
	Artifacts []CachedArtifact `json:"artifacts,omitempty"`
	// Error is set when the data directory could not be read.
	Error string `json:"error,omitempty"`
}

// CachedArtifact is one cached artifact.
type CachedArtifact struct {
	// Path is the local artifact path.
	Path string `json:"path"`
	// Version is the release tag or guessed label.
	Version string `json:"version"`
	// Name is the artifact filename.
	Name string `json:"name"`
}

// StatusResult describes the supervisor state.
type StatusResult struct {
	// Running mirrors IsRunning.
	Running bool `json:"running"`
	// Session is set while a child is running.
	Session *launch.SessionInfo `json:"session,omitempty"`
}

// newDownloadResult converts an artifact record or error into a result.
func newDownloadResult(record *launch.ArtifactRecord, err error) DownloadResult {
	if err != nil {
		return DownloadResult{Error: err.Error()}
	}

	return DownloadResult{
		Path:    record.LocalPath,
		Version: record.VersionTag,
		Name:    record.Name,
	}
}

// newCachedResult converts artifact records or an error into a result.
func newCachedResult(records []launch.ArtifactRecord, err error) CachedResult {
	if err != nil {
		return CachedResult{Error: err.Error()}
	}

	result := CachedResult{Artifacts: make([]CachedArtifact, 0, len(records))}

	for _, record := range records {
		result.Artifacts = append(result.Artifacts, CachedArtifact{
			Path:    record.LocalPath,
			Version: record.VersionTag,
			Name:    record.Name,
		})
	}

	return result
}
