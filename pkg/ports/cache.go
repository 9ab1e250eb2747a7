package ports

import "context"

// ContentCache is the persistent cache behind the content loader.
type ContentCache interface {
	// ClearAll drops every cached entry.
	ClearAll(ctx context.Context) error
	// ClearByKey drops the entry for key and the dependencies recorded for it.
	ClearByKey(ctx context.Context, key string) error
	// CleanUnused drops entries no longer referenced.
	CleanUnused(ctx context.Context) error
}
