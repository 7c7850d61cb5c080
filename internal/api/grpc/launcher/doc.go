// Package launcher implements the gRPC transport for the launcher service.
//
// The service is declared by hand on top of protobuf well-known types:
// results and events travel as google.protobuf.Struct values built from the
// JSON shape of the Go result types, so no generated code is required.
package launcher
