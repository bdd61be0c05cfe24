package scheduler

// State is the lifecycle state of a crawl run.
type State int32

const (
	// StateInit restores state and seeds the frontier.
	StateInit State = iota

	// StateRunning dispatches pending URLs.
	StateRunning

	// StateDraining waits for in-flight tasks after a stop request.
	StateDraining

	// StateStopped is terminal.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
