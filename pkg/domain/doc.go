/*
Package domain contains the core models of the transition orchestrator.

It is kept free of I/O so that every other package (pipeline, runtime, adapters)
can share the same vocabulary.

# Key Entities

  - Request: The immutable description of a transition (destination, fades, gates, fallback).
  - Status: The fixed-order states a run passes through, plus the Failed terminal state.
  - FailureKind / Policy: The closed failure taxonomy and its static recovery table.
  - StatusEvent / LifecycleHooks: What observers receive while a run progresses.
*/
package domain
