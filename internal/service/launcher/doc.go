// Package launcher is the orchestrator context object behind every front-end.
//
// A Launcher owns the event bus, the artifact store, the runtime provisioner
// and the process supervisor. Its boundary operations never return Go errors:
// failures are reported in the result's Error field so remote and local
// front-ends render them the same way.
package launcher
