package engine

// State is one step of the per-action execution lifecycle. Every action
// starts Pending and terminates in Success or Failed; the full transition
// trace is recorded on its Result.
type State string

const (
	// StatePending is the initial state before any work happens.
	StatePending State = "PENDING"

	// StateGenerating means a snippet is being requested from the generator.
	StateGenerating State = "GENERATING"

	// StateRunning means a generated snippet is executing in the scope.
	StateRunning State = "RUNNING"

	// StateRetrying means an attempt failed recoverably and another follows.
	StateRetrying State = "RETRYING"

	// StateSuccess is terminal: the action's snippet ran to completion.
	StateSuccess State = "SUCCESS"

	// StateFailed is terminal: the attempt budget is spent or the failure
	// was fatal.
	StateFailed State = "FAILED"
)
