// Package services defines shared utilities consumed by the rename pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp the run identifier and the file being
//     processed for logging.
//   - Structured error markers plus the Wrap helper. Markers let the renamer
//     tell a fatal precondition (missing directory) apart from per-file
//     failures that only change the batch counters.
//
// Use these helpers when wiring new pipeline steps so failures stay
// classifiable and log lines stay correlated across a run.
package services
