// Package preflight provides readiness checks for the inference endpoint and
// the local paths picname depends on.
//
// The CLI "picname check" command runs RunAll and renders each Result. Only
// Required checks decide the exit status; a missing default image directory
// or an unusable cache is reported but does not block a run.
package preflight
