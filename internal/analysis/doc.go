// Package analysis turns workload state, events and metrics into health
// snapshots, correlations, trend predictions and failure explanations.
//
// Every entry point returns a value even when its collaborators fail:
// collection errors are dropped per query and unexpected failures are
// recorded on the result's Error field together with a system_error insight.
package analysis
