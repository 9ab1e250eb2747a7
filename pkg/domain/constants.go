package domain

// Message keys shared by presenters and status observers.
const (
	// MessageLoading is set on the presenter while content loads.
	MessageLoading = "transition.loading"
	// MessageWaitingForServer is set while a server gate holds the run.
	MessageWaitingForServer = "transition.waiting_for_server"
	// MessageActivating is set right before loaded content is activated.
	MessageActivating = "transition.activating"
)
