package pipeline

import (
	"log/slog"
	"slices"

	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/gate"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/aretw0/transit/pkg/progress"
)

// Context is the mutable, run-scoped state shared by every step of one run.
// It is never shared across runs.
type Context struct {
	RunID    string
	Request  domain.Request
	Fallback bool

	Loader    ports.ContentLoader
	Gates     *gate.Registry[domain.GateID]
	Progress  *progress.Hub
	Presenter ports.LoadingPresenter
	Input     ports.InputBlocker
	Fader     ports.Fader
	Spill     ports.SpillContainer

	// Previous is the content that was active when the run started.
	Previous []ports.Handle

	Cleanup    CleanupPlan
	FailedStep string
	Logger     *slog.Logger

	// OnStatus receives every status a step reports.
	OnStatus func(domain.Status)
}

// CleanupPlan records what the run changed so a failure can put it back.
type CleanupPlan struct {
	InputBlocked bool
	LoadingShown bool
	Faded        bool
	Stashed      bool
	Activated    bool

	// Unloaded is previous content this run removed.
	Unloaded []ports.Handle
	// Loaded is new content this run brought in.
	Loaded []ports.Handle
	// Restored is previous content reloaded by cleanup.
	Restored []ports.Handle
}

// RestorePrevious reports whether cleanup has previous content to bring back.
func (p *CleanupPlan) RestorePrevious() bool {
	return len(p.Unloaded) > 0
}

// Emit reports a status transition.
func (c *Context) Emit(s domain.Status) {
	if s == "" || c.OnStatus == nil {
		return
	}
	c.OnStatus(s)
}

// Log returns the run logger, never nil.
func (c *Context) Log() *slog.Logger {
	if c.Logger == nil {
		return logging.NewNop()
	}
	return c.Logger
}

// Active is the content live after the run: previous content it did not
// unload, anything cleanup restored, and anything it loaded.
func (c *Context) Active() []ports.Handle {
	var active []ports.Handle
	for _, h := range c.Previous {
		if !slices.Contains(c.Cleanup.Unloaded, h) {
			active = append(active, h)
		}
	}
	active = append(active, c.Cleanup.Restored...)
	return append(active, c.Cleanup.Loaded...)
}
