package ports

import (
	"context"
	"time"
)

// InputBlocker disables user input while content is swapped.
type InputBlocker interface {
	Block()
	Unblock()
}

// Fader covers the screen during the content cut.
type Fader interface {
	// FadeIn brings the cover up over the current content.
	FadeIn(ctx context.Context, d time.Duration) error
	// FadeOut removes the cover, revealing the new content.
	FadeOut(ctx context.Context, d time.Duration) error
}

// LoadingPresenter renders a loading display. It is driven by the progress hub.
type LoadingPresenter interface {
	Show(loadingKey string)
	Hide()
	SetProgress(realtime, smoothed float64)
	SetMessage(text string)
}

// SpillContainer holds dynamically spawned objects across the content cut.
type SpillContainer interface {
	// Stash moves spawned objects into the holding container.
	Stash(ctx context.Context) error
	// Flush moves stashed objects back into the live context.
	Flush(ctx context.Context) error
	// Discard destroys stashed objects.
	Discard(ctx context.Context) error
}
