package events

import "time"

// Kind names an event channel.
type Kind string

const (
	// KindDownloadProgress reports artifact download progress.
	KindDownloadProgress Kind = "download-progress"
	// KindRuntimeProgress reports runtime download progress.
	KindRuntimeProgress Kind = "runtime-progress"
	// KindLog carries a raw output chunk of the child process.
	KindLog Kind = "log"
	// KindExit carries the exit code of the child process.
	KindExit Kind = "exit"
)

// Event is a single notification from the launcher to its front-ends.
type Event struct {
	// Kind selects which of the fields below are meaningful.
	Kind Kind `json:"kind"`
	// Fraction is the progress in [0,1] for progress events.
	Fraction float64 `json:"fraction,omitempty"`
	// Text is the raw output chunk for log events.
	Text string `json:"text,omitempty"`
	// ExitCode is the child exit code for exit events (-1 when killed by a signal).
	ExitCode int `json:"exitCode"`
	// SessionID identifies the session for log and exit events.
	SessionID string `json:"sessionId,omitempty"`
	// Time is when the event was published.
	Time time.Time `json:"time"`
}

// Publisher accepts events. Implementations must not block for long.
type Publisher interface {
	Publish(event Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(event Event)

// Publish calls f(event).
func (f PublisherFunc) Publish(event Event) {
	f(event)
}

// Discard drops every event.
//
//nolint:gochecknoglobals // Stateless sink shared by callers without subscribers.
var Discard Publisher = PublisherFunc(func(Event) {})

// Progress returns a callback publishing progress fractions of the given kind.
func Progress(p Publisher, kind Kind) func(fraction float64) {
	return func(fraction float64) {
		p.Publish(Event{Kind: kind, Fraction: fraction})
	}
}
