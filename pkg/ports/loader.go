package ports

import "context"

// ProgressFunc receives load progress in [0,1].
type ProgressFunc func(progress float64)

// LoadOptions are passed through to the content loader untouched.
type LoadOptions struct {
	// Additive keeps existing content alive next to the new content.
	Additive bool
	Params   map[string]any
}

// Handle refers to one piece of loaded content.
type Handle interface {
	// Ref is the identifier the content was loaded by.
	Ref() string
	// Activate makes loaded content the live context.
	Activate(ctx context.Context) error
}

// ContentLoader resolves content references into live content.
// The orchestrator only reacts to the errors it reports; it never retries a load itself.
type ContentLoader interface {
	// Load resolves ref, calling progress (which may be nil) as it goes.
	// The returned handle is not yet active.
	Load(ctx context.Context, ref string, opts LoadOptions, progress ProgressFunc) (Handle, error)

	// Unload releases content previously returned by Load.
	Unload(ctx context.Context, h Handle) error
}
