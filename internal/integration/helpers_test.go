package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blueberrycoding/bbmp-launcher/internal/config"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/server"
)

// proxyScript answers the runtime version check and otherwise behaves like a long-running proxy.
const proxyScript = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo 'openjdk version "17.0.9"' 1>&2
  exit 0
fi
echo "Proxy listening $*"
exec sleep 30
`

// waitTimeout bounds every wait on the live server.
const waitTimeout = 10 * time.Second

// skipWindows skips tests relying on shell-script runtimes.
func skipWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell-script runtimes require a Unix-like system")
	}
}

// startFeed serves a latest release v3.0 with a single jar asset.
func startFeed(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tag_name": "v3.0",
			"assets": []map[string]string{
				{"name": "notes.txt", "browser_download_url": srv.URL + "/download/notes.txt"},
				{"name": "bbmp.jar", "browser_download_url": srv.URL + "/download/bbmp.jar"},
			},
		})
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, _ *http.Request) {
		body := bytes.Repeat([]byte("jar"), 4096)

		// Progress is only reported for a known length.
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// writeConfig saves a configuration pointing at feed and a fake runtime.
func writeConfig(t *testing.T, feed *httptest.Server, addr string) (cfgPath string, dataDir string) {
	t.Helper()

	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	java := filepath.Join(dir, "java")

	require.NoError(t, os.WriteFile(java, []byte(proxyScript), 0o755))

	cfgPath = filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(cfgPath, &config.Config{
		DataDir:       dataDir,
		ProductName:   "bbmp",
		ReleaseURL:    feed.URL + "/releases/latest",
		ListenAddress: addr,
		HTTPTimeout:   5 * time.Second,
		Runtime: config.Runtime{
			Command:         java,
			DistributionURL: feed.URL + "/binary",
		},
		Launch: config.Launch{Server: "mc.example.net"},
	}))

	return cfgPath, dataDir
}

// startServer runs server.Run in the background. The returned stop cancels
// it and returns its result.
func startServer(t *testing.T, cfgPath string) (stop func() error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	var once sync.Once

	var result error

	stop = func() error {
		once.Do(func() {
			cancel()

			select {
			case result = <-done:
			case <-time.After(waitTimeout):
				t.Error("server did not stop")
			}
		})

		return result
	}

	t.Cleanup(func() { _ = stop() })

	return stop
}

// eventLog collects streamed events for assertions.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
	// changed receives a signal after every event.
	changed chan struct{}
}

func newEventLog() *eventLog {
	return &eventLog{changed: make(chan struct{}, 1)}
}

// Handle records an event.
func (l *eventLog) Handle(event events.Event) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	select {
	case l.changed <- struct{}{}:
	default:
	}
}

// has reports whether an event of kind was recorded.
func (l *eventLog) has(kind events.Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, event := range l.events {
		if event.Kind == kind {
			return true
		}
	}

	return false
}

// waitFor blocks until match accepts a recorded event.
func (l *eventLog) waitFor(t *testing.T, match func(events.Event) bool) events.Event {
	t.Helper()

	timeout := time.After(waitTimeout)

	for {
		l.mu.Lock()
		for _, event := range l.events {
			if match(event) {
				l.mu.Unlock()

				return event
			}
		}
		l.mu.Unlock()

		select {
		case <-l.changed:
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}
