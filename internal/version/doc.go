// Package version exposes build metadata for the launcher.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// UserAgent derives the HTTP User-Agent sent to release and runtime feeds.
package version
