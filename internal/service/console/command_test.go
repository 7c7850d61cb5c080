package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/launcher"
)

// scriptedService publishes scripted events on a real bus.
type scriptedService struct {
	bus      *events.Bus
	download launcher.DownloadResult
	launch   launcher.LaunchResponse
	cached   launcher.CachedResult
	// exitCode is published after launch unless holdUntilStop is set.
	exitCode      int
	holdUntilStop bool

	mu      sync.Mutex
	stopped bool
}

func newScripted() *scriptedService {
	return &scriptedService{bus: events.NewBus()}
}

func (s *scriptedService) DownloadLatest(context.Context) launcher.DownloadResult {
	for _, fraction := range []float64{0.05, 0.12, 0.18, 0.5, 1} {
		s.bus.Publish(events.Event{Kind: events.KindDownloadProgress, Fraction: fraction})
	}

	return s.download
}

func (s *scriptedService) DownloadFromURL(_ context.Context, rawURL string) launcher.DownloadResult {
	return launcher.DownloadResult{Path: "/d/" + rawURL, Version: "custom", Name: rawURL}
}

func (s *scriptedService) CheckRuntime(context.Context) launcher.RuntimeCheck {
	return launcher.RuntimeCheck{OK: true, Path: "java"}
}

func (s *scriptedService) InstallRuntime(context.Context) launcher.InstallResult {
	s.bus.Publish(events.Event{Kind: events.KindRuntimeProgress, Fraction: 1})

	return launcher.InstallResult{OK: true, JavaPath: "/d/jre17/bin/java"}
}

func (s *scriptedService) Cached(context.Context) launcher.CachedResult {
	return s.cached
}

func (s *scriptedService) Launch(context.Context, *launch.Options) launcher.LaunchResponse {
	if !s.launch.OK {
		return s.launch
	}

	s.bus.Publish(events.Event{Kind: events.KindLog, Text: "Proxy listening\n", SessionID: "s"})

	if !s.holdUntilStop {
		s.bus.Publish(events.Event{Kind: events.KindExit, ExitCode: s.exitCode, SessionID: "s"})
	}

	return s.launch
}

func (s *scriptedService) Stop(context.Context) launcher.Ack {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.bus.Publish(events.Event{Kind: events.KindExit, ExitCode: -1, SessionID: "s"})

	return launcher.Ack{OK: true}
}

func (s *scriptedService) Subscribe(ctx context.Context) <-chan events.Event {
	return s.bus.Subscribe(ctx)
}

func TestExecute_DownloadPlain(t *testing.T) {
	t.Parallel()

	svc := newScripted()
	svc.download = launcher.DownloadResult{Path: "/d/p-v2.1.jar", Version: "v2.1", Name: "app.jar"}

	var out bytes.Buffer

	require.NoError(t, Execute(context.Background(), svc, &Options{Action: ActionDownload, Output: &out}))
	require.True(t, strings.HasSuffix(out.String(), "Downloaded app.jar (v2.1)\n/d/p-v2.1.jar\n"), out.String())

	// Progress lines delivered before the summary are whole steps.
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "Downloaded app.jar (v2.1)\n/d/p-v2.1.jar\n"), "\n") {
		if line != "" {
			require.Contains(t, []string{"artifact 0%", "artifact 10%", "artifact 50%", "artifact 100%"}, line)
		}
	}
}

func TestExecute_DownloadFailure(t *testing.T) {
	t.Parallel()

	svc := newScripted()
	svc.download = launcher.DownloadResult{Error: "no jar asset found in latest release. Assets: a.zip"}

	err := Execute(context.Background(), svc, &Options{Action: ActionDownload, Output: new(bytes.Buffer)})
	require.ErrorIs(t, err, ErrFailed)
	require.Contains(t, err.Error(), "Assets: a.zip")
}

func TestExecute_RuntimeActions(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	svc := newScripted()

	require.NoError(t, Execute(context.Background(), svc, &Options{Action: ActionCheckRuntime, Output: &out}))
	require.NoError(t, Execute(context.Background(), svc, &Options{Action: ActionInstallRuntime, Output: &out}))
	require.True(t, strings.HasPrefix(out.String(), "Runtime available: java\n"))
	require.True(t, strings.HasSuffix(out.String(), "Runtime installed: /d/jre17/bin/java\n"))

	err := Execute(context.Background(), svc, &Options{Action: "explode", Output: &out})
	require.ErrorIs(t, err, errUnknownAction)
}

func TestExecute_Cached(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	svc := newScripted()

	require.NoError(t, Execute(context.Background(), svc, &Options{Action: ActionCached, Output: &out}))
	require.Equal(t, "No cached artifacts\n", out.String())

	out.Reset()

	svc.cached = launcher.CachedResult{Artifacts: []launcher.CachedArtifact{
		{Path: "/d/p-v2.1.jar", Version: "v2.1", Name: "p-v2.1.jar"},
		{Path: "/d/p-v2.0.jar", Version: "v2.0", Name: "p-v2.0.jar"},
	}}

	require.NoError(t, Execute(context.Background(), svc, &Options{Action: ActionCached, Output: &out}))
	require.Equal(t, "v2.1         /d/p-v2.1.jar\nv2.0         /d/p-v2.0.jar\n", out.String())

	svc.cached = launcher.CachedResult{Error: "permission denied"}

	err := Execute(context.Background(), svc, &Options{Action: ActionCached, Output: &out})
	require.ErrorIs(t, err, ErrFailed)
}

func TestExecute_ForegroundExit(t *testing.T) {
	t.Parallel()

	svc := newScripted()
	svc.launch = launcher.LaunchResponse{OK: true, Cmd: "java -jar p.jar", Version: "v2.1"}

	var out bytes.Buffer

	require.NoError(t, Execute(context.Background(), svc, &Options{Action: ActionLaunch, Output: &out}))
	require.Contains(t, out.String(), "Proxy listening\n")
	require.Contains(t, out.String(), "Launched v2.1\njava -jar p.jar\n")
	require.Contains(t, out.String(), "Process exited with code 0\n")

	svc = newScripted()
	svc.launch = launcher.LaunchResponse{OK: true, Cmd: "java -jar p.jar", Version: "v2.1"}
	svc.exitCode = 3

	err := Execute(context.Background(), svc, &Options{Action: ActionLaunch, Output: new(bytes.Buffer)})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.Code)
}

func TestExecute_ForegroundInterrupt(t *testing.T) {
	t.Parallel()

	svc := newScripted()
	svc.launch = launcher.LaunchResponse{OK: true, Cmd: "java -jar p.jar", Version: "v2.1"}
	svc.holdUntilStop = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out bytes.Buffer

	require.NoError(t, Execute(ctx, svc, &Options{Action: ActionLaunch, Output: &out, StopTimeout: 5 * time.Second}))
	require.True(t, svc.stopped)
	require.Contains(t, out.String(), "Process exited with code -1\n")
}

func TestExecute_ForegroundLaunchFailure(t *testing.T) {
	t.Parallel()

	svc := newScripted()
	svc.launch = launcher.LaunchResponse{Error: "already running"}

	err := Execute(context.Background(), svc, &Options{Action: ActionLaunch, Output: new(bytes.Buffer)})
	require.ErrorIs(t, err, ErrFailed)
	require.Contains(t, err.Error(), "already running")
}
