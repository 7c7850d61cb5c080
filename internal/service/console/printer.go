package console

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/launcher"
)

// progressStep is the percentage granularity of plain progress lines.
const progressStep = 10

// Printer renders events as plain text.
type Printer struct {
	// mu serializes writes to out.
	mu sync.Mutex
	// out receives child output and status lines.
	out io.Writer
	// last is the last printed percentage of the transfer in flight per progress kind.
	last map[events.Kind]int
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:  out,
		last: make(map[events.Kind]int),
	}
}

// Handle prints one event. Log text is written verbatim; progress is printed
// in steps; exit events are printed as a status line.
func (p *Printer) Handle(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Kind {
	case events.KindLog:
		_, _ = io.WriteString(p.out, event.Text)
	case events.KindExit:
		_, _ = fmt.Fprintf(p.out, "Process exited with code %d\n", event.ExitCode)
	case events.KindDownloadProgress, events.KindRuntimeProgress:
		percent := int(math.Floor(event.Fraction * 100)) //nolint:mnd // Percent.
		step := percent - percent%progressStep

		// Fractions only grow within a transfer, so a lower step starts a new one.
		last, seen := p.last[event.Kind]
		if seen && step == last {
			return
		}

		p.last[event.Kind] = step
		if step >= 100 { //nolint:mnd // Percent.
			delete(p.last, event.Kind)
		}

		_, _ = fmt.Fprintf(p.out, "%s %d%%\n", Label(event.Kind), step)
	default:
	}
}

// Label names a progress kind for display.
func Label(kind events.Kind) string {
	switch kind {
	case events.KindDownloadProgress:
		return "artifact"
	case events.KindRuntimeProgress:
		return "runtime"
	default:
		return string(kind)
	}
}

// FormatCached renders one line per cached artifact as "<version> <path>".
func FormatCached(artifacts []launcher.CachedArtifact) string {
	if len(artifacts) == 0 {
		return "No cached artifacts\n"
	}

	var b strings.Builder

	for _, artifact := range artifacts {
		_, _ = fmt.Fprintf(&b, "%-12s %s\n", artifact.Version, artifact.Path)
	}

	return b.String()
}

// Printf writes a formatted status line.
func (p *Printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintf(p.out, format, args...)
}
