package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
)

// ProgressFunc receives download progress as a fraction in [0,1].
type ProgressFunc func(fraction float64)

// Client issues GET requests with manual redirect handling.
type Client struct {
	// httpClient performs single requests; it never follows redirects itself.
	httpClient *http.Client
	// userAgent is sent with every request.
	userAgent string
	// maxRedirects caps redirect hops; zero means unlimited.
	maxRedirects int
	// maxJSONSize bounds JSON body reads.
	maxJSONSize int64
}

// Option configures the client.
type Option func(*Client)

const (
	// defaultMaxJSONSize bounds release metadata reads.
	defaultMaxJSONSize int64 = 16 << 20

	// dirPermissions is used for destination directories.
	dirPermissions = 0o755
)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxRedirects caps the number of followed redirects.
func WithMaxRedirects(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxRedirects = limit
		}
	}
}

// WithHTTPClient replaces the underlying round tripper, keeping the redirect policy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}

		clone := *hc
		clone.CheckRedirect = stopRedirects
		c.httpClient = &clone
	}
}

// New creates a client. Without options it has no deadline and no redirect cap.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			CheckRedirect: stopRedirects,
		},
		maxJSONSize: defaultMaxJSONSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchJSON GETs url and decodes the JSON body into v.
func (c *Client) FetchJSON(ctx context.Context, url string, v any) error {
	response, err := c.get(ctx, url)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(response.Body, c.maxJSONSize))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", launch.ErrNetwork, url, err)
	}

	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}

	return nil
}

// DownloadFile streams url into destPath and returns destPath.
// A failed transfer may leave a partial file behind.
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress ProgressFunc) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), dirPermissions); err != nil {
		return "", fmt.Errorf("prepare download destination: %w", err)
	}

	response, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	file, err := os.Create(filepath.Clean(destPath))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", destPath, err)
	}

	var body io.Reader = response.Body
	if response.ContentLength > 0 && onProgress != nil {
		body = &progressReader{
			reader:     response.Body,
			total:      response.ContentLength,
			onProgress: onProgress,
		}
	}

	written, err := io.Copy(file, body)
	if err != nil {
		_ = file.Close()

		return "", fmt.Errorf("%w: download %s: %w", launch.ErrNetwork, url, err)
	}

	if err = file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", destPath, err)
	}

	logger.InfoKV(ctx, "Download completed",
		"url", url, "path", destPath, "size", humanize.Bytes(uint64(written))) //nolint:gosec // written is non-negative.

	return destPath, nil
}

// get performs the request and follows redirects until a non-3xx response.
// The caller owns the returned body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	for hops := 0; ; hops++ {
		response, err := c.do(ctx, url)
		if err != nil {
			return nil, err
		}

		if !isRedirect(response.StatusCode) {
			if response.StatusCode != http.StatusOK {
				_ = response.Body.Close()

				return nil, &launch.HTTPStatusError{URL: url, StatusCode: response.StatusCode}
			}

			return response, nil
		}

		location, locErr := response.Location()

		_ = response.Body.Close()

		if locErr != nil {
			return nil, &launch.HTTPStatusError{URL: url, StatusCode: response.StatusCode}
		}

		if c.maxRedirects > 0 && hops >= c.maxRedirects {
			return nil, fmt.Errorf("%w: %s after %d hops", launch.ErrTooManyRedirects, url, hops)
		}

		logger.DebugKV(ctx, "Following redirect", "from", url, "to", location.String())

		url = location.String()
	}
}

// do issues a single GET without following redirects.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", url, err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", launch.ErrNetwork, url, err)
	}

	return response, nil
}

// isRedirect reports whether the status is in the 3xx range.
func isRedirect(status int) bool {
	return status >= http.StatusMultipleChoices && status < http.StatusBadRequest
}

// stopRedirects hands 3xx responses back to get.
func stopRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}
