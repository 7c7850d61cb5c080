package release

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
)

// JSONFetcher is the slice of the transport the resolver needs.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, url string, v any) error
}

// githubAsset is one downloadable file of a GitHub release.
type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// githubRelease is the subset of the GitHub release payload used here.
type githubRelease struct {
	TagName string        `json:"tag_name"`
	Assets  []githubAsset `json:"assets"`
}

// jarPattern accepts any jar; the release process renames the artifact between versions.
var jarPattern = regexp.MustCompile(`(?i)\.jar$`)

// Resolver queries a fixed release endpoint.
type Resolver struct {
	fetcher  JSONFetcher
	endpoint string
}

// NewResolver creates a resolver for the given endpoint.
func NewResolver(fetcher JSONFetcher, endpoint string) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		endpoint: endpoint,
	}
}

// Latest returns the first jar asset of the latest release.
func (r *Resolver) Latest(ctx context.Context) (*launch.ReleaseDescriptor, error) {
	var payload githubRelease
	if err := r.fetcher.FetchJSON(ctx, r.endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}

	descriptor, err := selectJar(&payload)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Resolved latest release", "tag", descriptor.Tag, "asset", descriptor.AssetName)

	return descriptor, nil
}

// selectJar picks the first asset in listed order whose name ends with .jar.
func selectJar(payload *githubRelease) (*launch.ReleaseDescriptor, error) {
	for _, asset := range payload.Assets {
		if !jarPattern.MatchString(asset.Name) {
			continue
		}

		tag := payload.TagName
		if tag == "" {
			tag = launch.LatestTag
		}

		return &launch.ReleaseDescriptor{
			Tag:       tag,
			AssetURL:  asset.BrowserDownloadURL,
			AssetName: asset.Name,
		}, nil
	}

	names := make([]string, 0, len(payload.Assets))
	for _, asset := range payload.Assets {
		names = append(names, asset.Name)
	}

	return nil, fmt.Errorf("%w. Assets: %s", launch.ErrNoAssetFound, strings.Join(names, ", "))
}
