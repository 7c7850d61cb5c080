package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/transport"
)

// Repository defines the artifact operations the launcher depends on.
type Repository interface {
	EnsureArtifact(ctx context.Context) (*launch.ArtifactRecord, error)
	DownloadFromURL(ctx context.Context, rawURL string) (*launch.ArtifactRecord, error)
}

// ReleaseResolver returns the latest release descriptor.
type ReleaseResolver interface {
	Latest(ctx context.Context) (*launch.ReleaseDescriptor, error)
}

// Downloader streams a URL to a local file.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress transport.ProgressFunc) (string, error)
}

// FileRepository stores artifacts as <dir>/<product>-<tag>.jar.
type FileRepository struct {
	// dir is the user-data directory.
	dir string
	// product prefixes cached filenames.
	product string
	// resolver finds the latest release.
	resolver ReleaseResolver
	// downloader fetches missing artifacts.
	downloader Downloader
	// publisher receives download progress events.
	publisher events.Publisher
	// mu serializes downloads so two callers never write the same path at once.
	mu sync.Mutex
}

const (
	// fallbackFilename is used when a URL has no usable last segment.
	fallbackFilename = "bbmp.jar"
)

// versionPattern is a best-effort version guess, e.g. "v2.1" in "bbmp-v2.1.jar".
var versionPattern = regexp.MustCompile(`(?i)v[\d._-]+`)

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(
	dir, product string,
	resolver ReleaseResolver,
	downloader Downloader,
	publisher events.Publisher,
) *FileRepository {
	if publisher == nil {
		publisher = events.Discard
	}

	return &FileRepository{
		dir:        filepath.Clean(dir),
		product:    product,
		resolver:   resolver,
		downloader: downloader,
		publisher:  publisher,
	}
}

// PathFor returns the cache path of a release tag.
func (r *FileRepository) PathFor(tag string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s-%s.jar", r.product, tag))
}

// EnsureArtifact returns the cached latest release or downloads it.
func (r *FileRepository) EnsureArtifact(ctx context.Context) (*launch.ArtifactRecord, error) {
	latest, err := r.resolver.Latest(ctx)
	if err != nil {
		return nil, err
	}

	record := &launch.ArtifactRecord{
		LocalPath:  r.PathFor(latest.Tag),
		VersionTag: latest.Tag,
		Name:       latest.AssetName,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if exists(record.LocalPath) {
		logger.InfoKV(ctx, "Artifact cache hit", "version", record.VersionTag, "path", record.LocalPath)

		return record, nil
	}

	logger.InfoKV(ctx, "Downloading artifact", "version", record.VersionTag, "url", latest.AssetURL)

	if err = r.download(ctx, latest.AssetURL, record.LocalPath); err != nil {
		// A partial file would otherwise be mistaken for a cached copy.
		_ = os.Remove(record.LocalPath)

		return nil, err
	}

	return record, nil
}

// DownloadFromURL downloads an arbitrary artifact URL, bypassing release resolution.
func (r *FileRepository) DownloadFromURL(ctx context.Context, rawURL string) (*launch.ArtifactRecord, error) {
	name := FilenameFromURL(rawURL)
	record := &launch.ArtifactRecord{
		LocalPath:  filepath.Join(r.dir, name),
		VersionTag: GuessVersion(name),
		Name:       name,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	logger.InfoKV(ctx, "Downloading custom artifact", "url", rawURL, "version", record.VersionTag)

	if err := r.download(ctx, rawURL, record.LocalPath); err != nil {
		return nil, err
	}

	return record, nil
}

// Cached lists the jar files currently present in the data directory.
func (r *FileRepository) Cached(_ context.Context) ([]launch.ArtifactRecord, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read artifact dir: %w", err)
	}

	prefix := r.product + "-"
	records := make([]launch.ArtifactRecord, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".jar") {
			continue
		}

		tag := GuessVersion(name)
		if strings.HasPrefix(name, prefix) {
			tag = strings.TrimSuffix(strings.TrimPrefix(name, prefix), filepath.Ext(name))
		}

		records = append(records, launch.ArtifactRecord{
			LocalPath:  filepath.Join(r.dir, name),
			VersionTag: tag,
			Name:       name,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	return records, nil
}

// download fetches url into dest while publishing download progress.
func (r *FileRepository) download(ctx context.Context, rawURL, dest string) error {
	onProgress := events.Progress(r.publisher, events.KindDownloadProgress)

	if _, err := r.downloader.DownloadFile(ctx, rawURL, dest, onProgress); err != nil {
		return fmt.Errorf("download artifact: %w", err)
	}

	return nil
}

// FilenameFromURL returns the last path segment of rawURL or the fallback name.
func FilenameFromURL(rawURL string) string {
	candidate := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		candidate = parsed.Path
	}

	if idx := strings.LastIndex(candidate, "/"); idx >= 0 {
		candidate = candidate[idx+1:]
	}

	candidate = path.Clean("/" + candidate)[1:]
	if candidate == "" || candidate == "." || candidate == ".." {
		return fallbackFilename
	}

	return candidate
}

// GuessVersion returns the first v<digits/separators> run in name, or "custom".
func GuessVersion(name string) string {
	if match := versionPattern.FindString(name); match != "" {
		return match
	}

	return launch.CustomVersion
}

// exists reports whether path is present on disk.
func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
