// Package provision detects, downloads and extracts the Java runtime the
// proxy artifact needs.
//
// Platform differences (distribution OS name, archive format, extractor)
// live in a lookup table keyed by GOOS so they can be tested on any host.
package provision
