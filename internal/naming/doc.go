// Package naming picks collision-free destination paths.
//
// Resolve is the bare algorithm: the plain name first, then numbered
// "_N" suffixes in ascending order, giving up after a fixed number of
// attempts so a pathological directory becomes a reported failure instead of
// an unbounded loop. Resolver wraps it for a whole run, remembering what it
// handed out and serializing resolve-then-commit per directory.
package naming
