// Package desccache remembers image descriptions in a local SQLite database.
//
// Entries are keyed by the SHA-256 of the image bytes together with the model
// and prompt that produced them, so renaming a file does not invalidate its
// entry while switching models does. The main use is running a preview and
// then the same batch with --apply without describing every image twice.
//
// The cache is disabled by default. Enable it in config.toml:
//
//	[cache]
//	enabled = true
//	path = "~/.local/share/picname/descriptions.db"
//
// CLI commands for inspection and management:
//
//	picname cache stats   # entry counts per model, size on disk
//	picname cache clear   # remove all entries
package desccache
