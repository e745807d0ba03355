// Package notifications sends a short message when a rename batch finishes.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set.
package notifications
