// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper for the launcher API with
// optional per-call timeouts and typed results.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
