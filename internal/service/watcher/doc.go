// Package watcher streams launcher events from a remote server to the
// terminal and reconnects when the stream drops.
package watcher
