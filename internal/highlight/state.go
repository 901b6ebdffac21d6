package highlight

import "github.com/unkn0wn-root/textanchor/internal/anchor"

type State int

const (
	Idle State = iota
	Selecting
	Captured
	Committed
	Cleared
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Captured:
		return "captured"
	case Committed:
		return "committed"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Reason explains why an operation ended without the usual result.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonWrongState       Reason = "wrong-state"
	ReasonNoContainer      Reason = "no-textblock"
	ReasonInvalidSelection Reason = "invalid-selection"
	ReasonDisconnected     Reason = "disconnected"
	ReasonRestoreFailed    Reason = "restore-failed"
	ReasonNotFound         Reason = "not-found"
	ReasonNothingWrapped   Reason = "nothing-wrapped"
)

// Outcome reports what an operation did. Failures are folded into Reason
// rather than returned as errors; none of them need handling by callers.
type Outcome struct {
	State    State
	Reason   Reason
	Range    anchor.OffsetRange
	Wrapped  int
	Degraded bool
	MarkerID string
}

func (o Outcome) OK() bool { return o.Reason == ReasonNone }

// Highlighted reports whether at least one marker was inserted.
func (o Outcome) Highlighted() bool { return o.Wrapped > 0 }
