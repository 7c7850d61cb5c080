// Package console runs launcher operations in-process for the CLI: one-shot
// downloads and runtime checks, and a foreground launch that streams the
// child's output to the terminal until it exits.
package console
