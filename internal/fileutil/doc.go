// Package fileutil holds the filesystem primitives the renamer relies on:
// an existence check that treats dangling symlinks as occupied, a streaming
// content hash, and a rename that never overwrites its destination.
package fileutil
