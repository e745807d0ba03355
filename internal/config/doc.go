// Package config loads, normalizes, and validates picname configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PICNAME_API_KEY. The Config type is constructed once per process and passed
// explicitly to the renamer and the inference client; nothing here is global
// mutable state.
package config
