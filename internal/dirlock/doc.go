// Package dirlock keeps two picname processes from renaming in the same
// directory at once, using flock(2) on a per-directory file in the state
// directory.
package dirlock
