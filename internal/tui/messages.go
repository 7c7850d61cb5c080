package tui

// ProgressMsg updates the bar identified by Label.
type ProgressMsg struct {
	Label    string
	Fraction float64
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
