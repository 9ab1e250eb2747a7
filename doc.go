/*
Package transit orchestrates transitions between content contexts: block input,
show a loading presentation, fade, unload the old content, wait for external
gates, load and activate the new content, then reveal it again.

Every run passes through the same fixed order of states. Any failure along the
way forces a cleanup that restores the previous content, classifies the error
and exposes the recommended recovery (retry, clear cache and retry, or a single
automatic fallback run).

# Collaborators

The orchestrator owns no content. It drives capabilities injected at
construction time (see package ports):

  - ContentLoader: loads and unloads content by ref.
  - ContentCache: cache invalidation for ClearCacheAndRetry.
  - InputBlocker, Fader, LoadingPresenter, SpillContainer: presentation.

Package pkg/adapters/memory provides in-memory versions of each, and
pkg/adapters/redis provides a Redis cache and a pub/sub gate bridge.

# Usage

	loader := memory.NewLoader()
	orch, err := transit.New(loader,
		transit.WithPresenter("overlay", presenter),
		transit.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}

	err = orch.Run(ctx, transit.Request{
		Destination: "level-2",
		Fallback:    domain.FallbackOptions{Enabled: true, Destination: "menu"},
	})

	var terr *domain.TransitionError
	if errors.As(err, &terr) && terr.Policy.SuggestRetry {
		// offer a retry button
	}

# Gates

A gate pauses a run until an external party releases it. Gates that were never
held do not block:

	orch.Gates().Hold(domain.GateBeforeActivation)
	// ... later, from the network layer:
	orch.Gates().Release(domain.GateBeforeActivation)
*/
package transit
