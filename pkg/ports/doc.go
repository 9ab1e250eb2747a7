/*
Package ports defines the collaborator interfaces the transition orchestrator consumes.

None of these are implemented by the core. In-memory versions live in
pkg/adapters/memory, Redis-backed ones in pkg/adapters/redis.

# Key Interfaces

  - ContentLoader / Handle: Loads, activates and unloads content.
  - ContentCache: Invalidates cached content for ClearCacheAndRetry.
  - InputBlocker, Fader, LoadingPresenter: Presentation side effects of a transition.
  - SpillContainer: Holds spawned objects across the content cut (anti-spill).
  - Controller / GateController: What outer adapters (HTTP, CLI) drive.
*/
package ports
