// Package runtime holds the transition state machine.
//
// A run builds a pipeline in the fixed state order, executes it against a
// fresh pipeline.Context and, on failure, unwinds through the forced cleanup,
// classifies the error and applies the matching policy (retry affordances,
// cache clearing, a single fallback run).
package runtime
