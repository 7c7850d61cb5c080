// Package tui renders download and install progress as bubbletea progress bars
// when the launcher runs in an interactive terminal.
package tui
