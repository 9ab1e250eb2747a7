package ports

import (
	"context"

	"github.com/aretw0/transit/pkg/domain"
)

// GateController lets an external party hold and release gates.
type GateController interface {
	Hold(id domain.GateID)
	Release(id domain.GateID)
	Held() []domain.GateID
}

// Controller is the surface adapters (HTTP, CLI) drive the orchestrator through.
type Controller interface {
	Run(ctx context.Context, req domain.Request) error
	CancelCurrent()
	Retry(ctx context.Context) error
	ClearCacheAndRetry(ctx context.Context) error
	Status() domain.Snapshot
	Gates() GateController
}
