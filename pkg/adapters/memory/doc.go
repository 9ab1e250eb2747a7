// Package memory provides in-memory collaborators for the transition orchestrator.
// They simulate loading, caching and presentation with failure injection, and
// back both the test suites and the `transit run` demo.
package memory
