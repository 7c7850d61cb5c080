// Package transport performs the launcher's HTTP GET requests.
//
// It follows redirects by re-issuing the request against the Location
// header, decodes JSON bodies, and streams downloads straight to their
// destination file while reporting fractional progress.
package transport
