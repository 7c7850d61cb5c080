// Package supervisor owns the single child process session: it resolves the
// artifact and runtime, spawns the child, relays its output as log events and
// reports its exit code exactly once.
package supervisor
