// Package server runs the launcher gRPC API: it builds the launcher from the
// configuration and serves it until the context is canceled.
package server
