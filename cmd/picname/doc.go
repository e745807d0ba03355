// Package main hosts the picname CLI entrypoint and command graph.
//
// The root command scans a directory, asks the configured vision model for a
// description of each image, and prints (or applies) the resulting renames.
// Subcommands cover the inference health check, configuration scaffolding,
// and the optional description cache. Per-file diagnostics are logged to
// stderr; stdout carries plan lines, the summary table, or JSON.
package main
