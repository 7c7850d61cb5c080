package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-ps"
	"golang.org/x/sync/errgroup"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/transport"
)

// ArtifactSource provides the artifact to launch.
type ArtifactSource interface {
	EnsureArtifact(ctx context.Context) (*launch.ArtifactRecord, error)
}

// RuntimeProvider finds or installs the runtime executable.
type RuntimeProvider interface {
	Command() string
	Detect(ctx context.Context) launch.Detection
	Install(ctx context.Context, onProgress transport.ProgressFunc) (*launch.RuntimeHandle, error)
}

// state is the supervisor lifecycle stage.
type state int

const (
	// stateIdle means no session and no launch in progress.
	stateIdle state = iota
	// stateLaunching means a launch holds the reservation but has not spawned yet.
	stateLaunching
	// stateRunning means a child process is alive.
	stateRunning
)

// chunkSize bounds a single log event.
const chunkSize = 4096

// session is the live child process.
type session struct {
	// info is the snapshot returned to callers.
	info launch.SessionInfo
	// cmd is the spawned child.
	cmd *exec.Cmd
}

// Supervisor enforces a single running child and relays its output.
type Supervisor struct {
	// artifacts ensures the artifact is on disk.
	artifacts ArtifactSource
	// runtimes resolves the executable.
	runtimes RuntimeProvider
	// publisher receives log, exit and runtime progress events.
	publisher events.Publisher
	// workDir is the child's working directory.
	workDir string

	// mu guards state and current.
	mu sync.Mutex
	// state is the lifecycle stage.
	state state
	// current is the active session, nil unless running.
	current *session
}

// New creates an idle supervisor.
func New(artifacts ArtifactSource, runtimes RuntimeProvider, publisher events.Publisher, workDir string) *Supervisor {
	if publisher == nil {
		publisher = events.Discard
	}

	return &Supervisor{
		artifacts: artifacts,
		runtimes:  runtimes,
		publisher: publisher,
		workDir:   workDir,
	}
}

// Launch ensures the artifact and runtime, then spawns the child.
// It fails with launch.ErrAlreadyRunning while another launch or session is active.
func (s *Supervisor) Launch(ctx context.Context, opts *launch.Options) (*launch.Result, error) {
	ctx = logger.WithName(ctx, "supervisor")

	if opts == nil {
		opts = &launch.Options{}
	}

	if err := s.reserve(); err != nil {
		return nil, err
	}

	result, err := s.launch(ctx, opts)
	if err != nil {
		s.release()

		return nil, err
	}

	return result, nil
}

// Stop sends a termination request to the running child and returns immediately.
// It is a no-op without a session.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	logger.InfoKV(logger.WithName(ctx, "supervisor"), "Stopping child", "session", s.current.info.ID, "pid", s.current.info.PID)

	if err := terminate(s.current.cmd.Process); err != nil {
		return fmt.Errorf("terminate process: %w", err)
	}

	return nil
}

// IsRunning reports whether a child process is alive.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == stateRunning
}

// Session returns a snapshot of the running session.
func (s *Supervisor) Session() (launch.SessionInfo, bool) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()

		return launch.SessionInfo{}, false
	}

	info := s.current.info
	info.Args = append([]string(nil), info.Args...)
	s.mu.Unlock()

	info.Alive = processAlive(info.PID)

	return info, true
}

// reserve moves Idle to Launching.
func (s *Supervisor) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return launch.ErrAlreadyRunning
	}

	s.state = stateLaunching

	return nil
}

// release moves Launching back to Idle after a failed launch.
func (s *Supervisor) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateLaunching {
		s.state = stateIdle
	}
}

// launch runs the artifact, runtime and spawn steps while reserved.
func (s *Supervisor) launch(ctx context.Context, opts *launch.Options) (*launch.Result, error) {
	record, err := s.artifacts.EnsureArtifact(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure artifact: %w", err)
	}

	executable, err := s.resolveRuntime(ctx, opts)
	if err != nil {
		return nil, err
	}

	args := opts.Args(record.LocalPath)

	// The child outlives the request context.
	cmd := exec.Command(executable, args...) //nolint:gosec,noctx // Executable is resolved or chosen by the user.
	cmd.Dir = s.workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", launch.ErrSpawn, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", launch.ErrSpawn, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", launch.ErrSpawn, err)
	}

	current := &session{
		info: launch.SessionInfo{
			ID:         uuid.NewString(),
			PID:        cmd.Process.Pid,
			Executable: executable,
			Args:       args,
			StartedAt:  time.Now(),
		},
		cmd: cmd,
	}

	s.mu.Lock()
	s.current = current
	s.state = stateRunning
	s.mu.Unlock()

	sessionCtx := logger.WithFields(ctx, "session", current.info.ID, "pid", current.info.PID)

	logger.InfoKV(sessionCtx, "Child started", "version", record.VersionTag)

	go s.supervise(context.WithoutCancel(sessionCtx), current, stdout, stderr)

	return &launch.Result{
		Cmd:     strings.Join(append([]string{executable}, args...), " "),
		Version: record.VersionTag,
	}, nil
}

// resolveRuntime picks the executable: explicit path, detected runtime,
// freshly installed runtime, then the bare command name.
func (s *Supervisor) resolveRuntime(ctx context.Context, opts *launch.Options) (string, error) {
	if opts.JavaPath != "" {
		return opts.JavaPath, nil
	}

	if detection := s.runtimes.Detect(ctx); detection.Available {
		return detection.ExecutablePath, nil
	}

	logger.Info(ctx, "No runtime detected, installing")

	handle, err := s.runtimes.Install(ctx, events.Progress(s.publisher, events.KindRuntimeProgress))
	if err != nil {
		return "", fmt.Errorf("install runtime: %w", err)
	}

	if handle.Found() {
		return handle.ExecutablePath, nil
	}

	logger.WarnKV(ctx, "Installed runtime not found, using bare command", "command", s.runtimes.Command())

	return s.runtimes.Command(), nil
}

// supervise pumps both output streams, waits for exit and clears the session.
func (s *Supervisor) supervise(ctx context.Context, current *session, stdout, stderr io.Reader) {
	var group errgroup.Group

	group.Go(func() error { return s.pump(current.info.ID, stdout) })
	group.Go(func() error { return s.pump(current.info.ID, stderr) })

	if err := group.Wait(); err != nil {
		logger.WarnKV(ctx, "Output pump failed", "error", err)
	}

	err := current.cmd.Wait()

	code := -1
	if current.cmd.ProcessState != nil {
		code = current.cmd.ProcessState.ExitCode()
	} else if err != nil {
		logger.WarnKV(ctx, "Wait failed", "error", err)
	}

	logger.InfoKV(ctx, "Child exited", "code", code)

	// Publishing under the lock orders the exit event before any later launch.
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.state = stateIdle

	s.publisher.Publish(events.Event{
		Kind:      events.KindExit,
		ExitCode:  code,
		SessionID: current.info.ID,
	})
}

// pump forwards raw chunks from r as log events until EOF.
func (s *Supervisor) pump(sessionID string, r io.Reader) error {
	buf := make([]byte, chunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.publisher.Publish(events.Event{
				Kind:      events.KindLog,
				Text:      string(buf[:n]),
				SessionID: sessionID,
			})
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}
	}
}

// processAlive reports whether the OS process table lists pid.
func processAlive(pid int) bool {
	process, err := ps.FindProcess(pid)

	return err == nil && process != nil
}
