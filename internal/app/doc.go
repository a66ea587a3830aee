// Package app is the composition root of the orchestrator. It owns the
// logger, loads the pipeline definition, expands the build matrix, and
// drives a run through execution, summary, and the release phase.
package app
