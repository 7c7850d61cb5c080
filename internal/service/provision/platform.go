package provision

import (
	"fmt"
	"net/url"
	"strings"
)

// ArchiveKind names a runtime archive format.
type ArchiveKind string

const (
	// ArchiveZip is extracted with Expand-Archive or the zip reader.
	ArchiveZip ArchiveKind = "zip"
	// ArchiveTarGz is extracted with tar or the gzip+tar readers.
	ArchiveTarGz ArchiveKind = "tar.gz"
)

// Platform describes how the runtime is distributed for one host OS.
type Platform struct {
	// OS is the distribution's name for the operating system.
	OS string
	// Ext is the archive filename extension, including the leading dot.
	Ext string
	// Archive selects the extraction method.
	Archive ArchiveKind
	// Executable is the runtime binary name.
	Executable string
}

//nolint:gochecknoglobals // Read-only lookup table.
var (
	// platforms maps GOOS to its distribution parameters.
	platforms = map[string]Platform{
		"windows": {OS: "windows", Ext: ".zip", Archive: ArchiveZip, Executable: "java.exe"},
		"darwin":  {OS: "mac", Ext: ".tar.gz", Archive: ArchiveTarGz, Executable: "java"},
	}

	// defaultPlatform covers Linux and every other Unix-like GOOS.
	defaultPlatform = Platform{OS: "linux", Ext: ".tar.gz", Archive: ArchiveTarGz, Executable: "java"}

	// architectures maps GOARCH to the distribution's architecture names.
	architectures = map[string]string{
		"amd64": "x64",
		"arm64": "aarch64",
		"386":   "x86-32",
	}
)

// PlatformFor returns the distribution parameters for goos.
func PlatformFor(goos string) Platform {
	if p, ok := platforms[strings.ToLower(goos)]; ok {
		return p
	}

	return defaultPlatform
}

// ArchFor maps goarch to the distribution's architecture identifier.
// Unknown values are passed through unchanged.
func ArchFor(goarch string) string {
	if arch, ok := architectures[goarch]; ok {
		return arch
	}

	return goarch
}

// DistributionURL builds the binary download URL for a feature release.
func DistributionURL(base string, feature int, p Platform, arch string) string {
	return fmt.Sprintf(
		"%s/%d/ga/%s/%s/jdk/hotspot/normal/eclipse?project=jdk",
		strings.TrimRight(base, "/"),
		feature,
		url.PathEscape(p.OS),
		url.PathEscape(arch),
	)
}
