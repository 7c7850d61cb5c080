// Package config defines launcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// Settings cover the user-data directory, the release feed, the runtime
// distribution feed, the local API listen address and the default launch
// options a front-end would otherwise keep in its own storage.
package config
