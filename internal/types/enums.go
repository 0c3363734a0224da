package types

import "strconv"

// Mode selects which transport adapter feeds the store.
type Mode int

const (
	ModePull Mode = iota // one-shot REST fetch of the full universe
	ModePush             // long-lived websocket stream
)

// String implements the fmt.Stringer interface for Mode.
func (m Mode) String() string {
	switch m {
	case ModePull:
		return "pull"
	case ModePush:
		return "push"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode maps a config string onto a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "pull", "Pull", "PULL":
		return ModePull, true
	case "push", "Push", "PUSH":
		return ModePush, true
	default:
		return ModePull, false
	}
}

// ControllerState is the lifecycle state of the producer owned by the
// controller.
type ControllerState int

const (
	StateIdle ControllerState = iota
	StateStarting
	StateRunning
	StateStopping
	StateFailed
)

// String implements the fmt.Stringer interface for ControllerState.
func (s ControllerState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateFailed:
		return "Failed"
	default:
		return "ControllerState(" + strconv.Itoa(int(s)) + ")"
	}
}
