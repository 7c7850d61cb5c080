// Package artifact implements the on-disk artifact cache.
//
// The FileRepository maps release tags to jar files in the user-data
// directory. Cache presence is decided purely by path existence; there is
// no metadata file and no eviction.
package artifact
