package domain

// Status is the orchestrator state reported while a transition runs.
type Status string

const (
	StatusIdle                  Status = "idle"
	StatusLoadStarted           Status = "load_started"
	StatusBeforeEntryFade       Status = "before_entry_fade"
	StatusEntryFade             Status = "entry_fade"
	StatusAfterEntryFade        Status = "after_entry_fade"
	StatusUnloading             Status = "unloading"
	StatusWaitingForServer      Status = "waiting_for_server"
	StatusBeforeSceneActivation Status = "before_scene_activation"
	StatusActivated             Status = "activated"
	StatusAfterSceneActivation  Status = "after_scene_activation"
	StatusExitFade              Status = "exit_fade"
	StatusComplete              Status = "complete"
	StatusFailed                Status = "failed" // Terminal, reachable from any point
)

// RunOrder lists the states every successful run passes through, in order.
var RunOrder = []Status{
	StatusLoadStarted,
	StatusBeforeEntryFade,
	StatusEntryFade,
	StatusAfterEntryFade,
	StatusUnloading,
	StatusWaitingForServer,
	StatusBeforeSceneActivation,
	StatusActivated,
	StatusAfterSceneActivation,
	StatusExitFade,
	StatusComplete,
}

// IsTerminal reports whether no further status follows s within the same run.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Snapshot is a point-in-time view of the orchestrator.
type Snapshot struct {
	RunID       string       `json:"run_id,omitempty"`
	Destination string       `json:"destination,omitempty"`
	Status      Status       `json:"status"`
	Fallback    bool         `json:"fallback,omitempty"`
	Failure     *FailureInfo `json:"failure,omitempty"`
}

// FailureInfo is the user-facing summary of a failed run.
type FailureInfo struct {
	Kind          FailureKind `json:"kind"`
	MessageKey    string      `json:"message_key"`
	CanRetry      bool        `json:"can_retry"`
	CanClearCache bool        `json:"can_clear_cache"`
	Error         string      `json:"error,omitempty"`
}
