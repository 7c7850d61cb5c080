// Package client implements `bbmp-launcher ctl`: one-shot remote calls against
// a running launcher server.
//
// Calls are retried while the server is unreachable, so ctl can be started
// alongside `serve`. Failures reported by the server are not retried.
package client
