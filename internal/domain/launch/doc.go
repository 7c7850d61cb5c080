// Package launch contains the core domain types of the launcher.
//
// It defines the release, artifact, runtime and session records exchanged
// between the orchestrator components, the launch options and result, and
// the error taxonomy shared by every layer.
package launch
