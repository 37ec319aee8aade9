package gate

import "fmt"

// State is the phase of the control loop.
type State int32

const (
	Idle State = iota
	Capturing
	Deciding
	Annotating
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Deciding:
		return "deciding"
	case Annotating:
		return "annotating"
	case Publishing:
		return "publishing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
