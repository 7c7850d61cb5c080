package launcher

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycoding/bbmp-launcher/internal/config"
	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/provision"
)

const (
	fakeJava    = "#!/bin/sh\necho 'openjdk version \"17.0.9\"' 1>&2\necho \"started $*\"\nexit 7\n"
	waitTimeout = 10 * time.Second
)

var errPickerClosed = errors.New("picker closed")

// feed serves release metadata, the jar asset and a runtime archive.
type feed struct {
	server  *httptest.Server
	assets  []string
	runtime []byte
}

// newFeed starts a release feed whose latest release is v2.1.
func newFeed(t *testing.T, assets ...string) *feed {
	t.Helper()

	f := &feed{assets: assets}
	mux := http.NewServeMux()

	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		type asset struct {
			Name string `json:"name"`
			URL  string `json:"browser_download_url"`
		}

		body := struct {
			Tag    string  `json:"tag_name"`
			Assets []asset `json:"assets"`
		}{Tag: "v2.1"}

		for _, name := range f.assets {
			body.Assets = append(body.Assets, asset{Name: name, URL: f.server.URL + "/download/" + name})
		}

		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("PK\x03\x04jar"))
	})
	mux.HandleFunc("/binary/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(f.runtime)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

// newLauncher builds a launcher against the feed with a temp data dir.
func newLauncher(t *testing.T, f *feed, mutate func(*config.Config), opts ...Option) *Launcher {
	t.Helper()

	cfg := &config.Config{
		DataDir:     t.TempDir(),
		ProductName: "product",
		ReleaseURL:  f.server.URL + "/releases/latest",
		Runtime: config.Runtime{
			Command:         filepath.Join(t.TempDir(), "no-java"),
			DistributionURL: f.server.URL + "/binary",
			Extractor:       config.ExtractorNative,
		},
	}

	if mutate != nil {
		mutate(cfg)
	}

	l, err := New(cfg, opts...)
	require.NoError(t, err)

	return l
}

// writeScript writes an executable shell script.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "java")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))

	return path
}

// skipWindows skips tests relying on shell-script runtimes.
func skipWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell-script runtimes require a Unix-like system")
	}
}

// collect reads events until done accepts one.
func collect(t *testing.T, ch <-chan events.Event, done func(events.Event) bool) []events.Event {
	t.Helper()

	var got []events.Event

	timeout := time.After(waitTimeout)

	for {
		select {
		case event := <-ch:
			got = append(got, event)
			if done(event) {
				return got
			}
		case <-timeout:
			t.Fatalf("timed out, got %+v", got)
		}
	}
}

// completed matches the final progress event of the given kind.
func completed(kind events.Kind) func(events.Event) bool {
	return func(event events.Event) bool {
		return event.Kind == kind && event.Fraction >= 1
	}
}

// exited matches an exit event.
func exited(event events.Event) bool {
	return event.Kind == events.KindExit
}

// pickerWindow returns a fixed path and records pin requests.
type pickerWindow struct {
	path   *string
	err    error
	pinned bool
}

// PickRuntimeExecutable returns the configured path.
func (w *pickerWindow) PickRuntimeExecutable(context.Context) (*string, error) {
	return w.path, w.err
}

// SetAlwaysOnTop records the request.
func (w *pickerWindow) SetAlwaysOnTop(_ context.Context, enabled bool) error {
	w.pinned = enabled

	return nil
}

func TestDownloadLatest(t *testing.T) {
	t.Parallel()

	f := newFeed(t, "notes.txt", "app-v2.1.jar")
	l := newLauncher(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := l.Subscribe(ctx)

	result := l.DownloadLatest(ctx)
	require.Empty(t, result.Error)
	require.Equal(t, DownloadResult{
		Path:    filepath.Join(l.Config().DataDir, "product-v2.1.jar"),
		Version: "v2.1",
		Name:    "app-v2.1.jar",
	}, result)

	progress := collect(t, sub, completed(events.KindDownloadProgress))
	for i := 1; i < len(progress); i++ {
		require.GreaterOrEqual(t, progress[i].Fraction, progress[i-1].Fraction)
	}

	cached := l.Cached(ctx)
	require.Empty(t, cached.Error)
	require.Len(t, cached.Artifacts, 1)
	require.Equal(t, "v2.1", cached.Artifacts[0].Version)
	require.Equal(t, result.Path, cached.Artifacts[0].Path)
}

func TestDownloadLatest_NoJarAsset(t *testing.T) {
	t.Parallel()

	f := newFeed(t, "a.zip", "b.txt")
	l := newLauncher(t, f, nil)

	result := l.DownloadLatest(context.Background())
	require.Equal(t, "no jar asset found in latest release. Assets: a.zip, b.txt", result.Error)
	require.Empty(t, result.Path)
}

func TestDownloadFromURL(t *testing.T) {
	t.Parallel()

	f := newFeed(t)
	l := newLauncher(t, f, nil)

	result := l.DownloadFromURL(context.Background(), f.server.URL+"/download/custom-build.jar")
	require.Empty(t, result.Error)
	require.Equal(t, "custom", result.Version)
	require.Equal(t, filepath.Join(l.Config().DataDir, "custom-build.jar"), result.Path)

	result = l.DownloadFromURL(context.Background(), "http://127.0.0.1:1/missing.jar")
	require.NotEmpty(t, result.Error)
}

func TestCheckRuntime(t *testing.T) {
	t.Parallel()
	skipWindows(t)

	f := newFeed(t)

	missing := newLauncher(t, f, nil)
	require.Equal(t, RuntimeCheck{}, missing.CheckRuntime(context.Background()))

	java := writeScript(t, fakeJava)
	present := newLauncher(t, f, func(cfg *config.Config) { cfg.Runtime.Command = java })
	require.Equal(t, RuntimeCheck{OK: true, Path: java}, present.CheckRuntime(context.Background()))
}

func TestInstallRuntime(t *testing.T) {
	t.Parallel()

	f := newFeed(t)
	f.runtime = runtimeArchive(t)

	l := newLauncher(t, f, nil, WithProvisionOptions(provision.WithPlatform("linux", "amd64")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := l.Subscribe(ctx)

	result := l.InstallRuntime(ctx)
	require.Empty(t, result.Error)
	require.True(t, result.OK)
	require.Equal(t, filepath.Join(l.Config().DataDir, "jre17", "jdk-17.0.9+9", "bin", "java"), result.JavaPath)

	progress := collect(t, sub, completed(events.KindRuntimeProgress))
	require.InDelta(t, 1.0, progress[len(progress)-1].Fraction, 1e-9)
}

func TestInstallRuntime_DownloadFailure(t *testing.T) {
	t.Parallel()

	f := newFeed(t)
	l := newLauncher(t, f, func(cfg *config.Config) {
		cfg.Runtime.DistributionURL = f.server.URL + "/missing"
	})

	result := l.InstallRuntime(context.Background())
	require.False(t, result.OK)
	require.Contains(t, result.Error, "HTTP 404")
}

func TestLaunch_EndToEnd(t *testing.T) {
	t.Parallel()
	skipWindows(t)

	f := newFeed(t, "app-v2.1.jar")
	java := writeScript(t, fakeJava)
	l := newLauncher(t, f, func(cfg *config.Config) {
		cfg.Runtime.Command = java
		cfg.Launch.Server = "mc.example.net"
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := l.Subscribe(ctx)

	response := l.Launch(ctx, &launch.Options{Port: 25570})
	require.True(t, response.OK, response.Error)
	require.Equal(t, "v2.1", response.Version)
	require.Equal(t,
		java+" -jar "+filepath.Join(l.Config().DataDir, "product-v2.1.jar")+
			" -port 25570 -ip mc.example.net -rport 25565",
		response.Cmd,
	)

	got := collect(t, sub, exited)

	var logs strings.Builder

	for _, event := range got {
		if event.Kind == events.KindLog {
			logs.WriteString(event.Text)
		}
	}

	require.Contains(t, logs.String(), "started -jar")
	require.Equal(t, 7, got[len(got)-1].ExitCode)
	require.False(t, l.IsRunning())
	require.Equal(t, StatusResult{}, l.Status())
}

func TestLaunch_AlreadyRunning(t *testing.T) {
	t.Parallel()
	skipWindows(t)

	f := newFeed(t, "app-v2.1.jar")
	java := writeScript(t, "#!/bin/sh\nexec sleep 30\n")
	l := newLauncher(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := l.Subscribe(ctx)

	response := l.Launch(ctx, &launch.Options{JavaPath: java})
	require.True(t, response.OK, response.Error)
	require.True(t, l.IsRunning())

	status := l.Status()
	require.True(t, status.Running)
	require.NotNil(t, status.Session)
	require.Equal(t, java, status.Session.Executable)

	response = l.Launch(ctx, &launch.Options{JavaPath: java})
	require.False(t, response.OK)
	require.Equal(t, "already running", response.Error)

	require.Equal(t, Ack{OK: true}, l.Stop(ctx))

	got := collect(t, sub, exited)
	require.Equal(t, -1, got[len(got)-1].ExitCode)
	require.Equal(t, Ack{OK: true}, l.Stop(ctx))
}

func TestWindowDelegation(t *testing.T) {
	t.Parallel()

	f := newFeed(t)

	headless := newLauncher(t, f, nil)
	require.Nil(t, headless.PickRuntimeExecutable(context.Background()))
	require.Equal(t, Ack{OK: true}, headless.SetAlwaysOnTop(context.Background(), true))

	path := "/opt/jdk/bin/java"
	window := &pickerWindow{path: &path}
	desktop := newLauncher(t, f, nil, WithWindow(window))

	require.Equal(t, &path, desktop.PickRuntimeExecutable(context.Background()))
	require.Equal(t, Ack{OK: true}, desktop.SetAlwaysOnTop(context.Background(), true))
	require.True(t, window.pinned)

	window.err = errPickerClosed
	require.Nil(t, desktop.PickRuntimeExecutable(context.Background()))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(&config.Config{Runtime: config.Runtime{Extractor: "zip-bomb"}})
	require.Error(t, err)
}

// runtimeArchive builds a tar.gz resembling a runtime distribution.
func runtimeArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	body := []byte(fakeJava)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "jdk-17.0.9+9/bin/java",
		Mode:     0o755,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))

	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

func TestWithDefaults_DevMode(t *testing.T) {
	t.Parallel()

	f := newFeed(t, "app-v2.1.jar")
	l := newLauncher(t, f, func(cfg *config.Config) {
		cfg.Launch.DevMode = true
		cfg.Launch.Port = 25570
	})

	tests := []struct {
		name    string
		request *launch.Options
		devMode bool
	}{
		{name: "nil request", request: nil, devMode: true},
		{name: "unset", request: &launch.Options{}, devMode: true},
		{name: "explicit false", request: &launch.Options{DevMode: launch.Bool(false)}, devMode: false},
		{name: "explicit true", request: &launch.Options{DevMode: launch.Bool(true)}, devMode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			merged := l.withDefaults(tt.request)
			require.NotNil(t, merged.DevMode)
			require.Equal(t, tt.devMode, *merged.DevMode)
			require.Equal(t, 25570, merged.Port)

			if tt.devMode {
				require.Contains(t, merged.Args("a.jar"), "-devmode")
			} else {
				require.NotContains(t, merged.Args("a.jar"), "-devmode")
			}
		})
	}
}
