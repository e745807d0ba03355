// Package scan lists the files the renamer may touch.
//
// A Listing reads one directory lazily and only once; subdirectories are
// reported but never entered. Whether an entry is eligible depends solely on
// its extension, compared case-insensitively against the configured
// allowlist. Image content is not inspected.
package scan
