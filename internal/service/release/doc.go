// Package release resolves the latest published release of the launched
// application and picks its jar asset.
package release
