package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// barWidth is the rendered width of each progress bar.
const barWidth = 40

// bar is one labelled progress line.
type bar struct {
	label    string
	fraction float64
}

// ProgressModel is a bubbletea model rendering one bar per label, in the
// order the labels first appear.
type ProgressModel struct {
	title    string
	bars     []bar
	index    map[string]int
	renderer progress.Model
	done     bool
	canceled bool
	err      error
}

// NewProgressModel creates a model with pre-registered labels.
func NewProgressModel(title string, labels ...string) ProgressModel {
	m := ProgressModel{
		title:    title,
		index:    make(map[string]int),
		renderer: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
	}

	for _, label := range labels {
		m.ensure(label)
	}

	return m
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		idx := m.ensure(msg.Label)
		m.bars[idx].fraction = clamp(msg.Fraction)

		return m, nil

	case WorkDoneMsg:
		m.done = true

		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true

		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.canceled = true
			m.done = true

			return m, tea.Quit
		}
	}

	return m, nil
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	var b strings.Builder

	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteByte('\n')
	}

	for _, entry := range m.bars {
		line := m.renderer.ViewAs(entry.fraction)
		if entry.fraction >= 1 {
			line = DoneStyle.Render(line)
		}

		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(entry.label), line)
	}

	if m.err != nil {
		b.WriteString(ErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteByte('\n')
	}

	return b.String()
}

// Err returns the error that ended the program, if any.
func (m ProgressModel) Err() error {
	return m.err
}

// Canceled reports whether the user interrupted the program.
func (m ProgressModel) Canceled() bool {
	return m.canceled
}

// Fraction returns the current fraction of a label, or -1 when unknown.
func (m ProgressModel) Fraction(label string) float64 {
	idx, ok := m.index[label]
	if !ok {
		return -1
	}

	return m.bars[idx].fraction
}

// ensure returns the bar index of label, registering it on first use.
func (m *ProgressModel) ensure(label string) int {
	if idx, ok := m.index[label]; ok {
		return idx
	}

	m.index[label] = len(m.bars)
	m.bars = append(m.bars, bar{label: label})

	return len(m.bars) - 1
}

// clamp bounds a fraction to [0,1].
func clamp(fraction float64) float64 {
	return min(max(fraction, 0), 1)
}
