// Package textutil turns untrusted model output into text that is safe to use
// on disk or in a log line.
//
// SanitizeFilename is the only path from a description to a filename stem.
// It is pure and deterministic so the same description always produces the
// same token, and it never fails: callers decide what an empty token means.
package textutil
