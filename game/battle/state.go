package battle

import "fmt"

// Phase is the coarse state of a session.
type Phase int

const (
	PhaseAwaitingAction Phase = iota
	PhaseResolving
	PhaseAwaitingSwitch
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAction:
		return "awaiting-action"
	case PhaseResolving:
		return "resolving"
	case PhaseAwaitingSwitch:
		return "awaiting-switch"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for v := PhaseAwaitingAction; v <= PhaseFinished; v++ {
		if v.String() == string(b) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("battle: unknown phase %q", b)
}

// State pairs a phase with the side it concerns: the expected actor while
// awaiting an action or switch, the winner once finished.
type State struct {
	Phase Phase `json:"phase"`
	Side  Side  `json:"side"`
}

func AwaitingAction(s Side) State { return State{Phase: PhaseAwaitingAction, Side: s} }
func AwaitingSwitch(s Side) State { return State{Phase: PhaseAwaitingSwitch, Side: s} }
func Finished(winner Side) State { return State{Phase: PhaseFinished, Side: winner} }

// EndReason explains how a session finished.
type EndReason string

const (
	EndKnockout EndReason = "knockout"
	EndForfeit  EndReason = "forfeit"
	EndIdle     EndReason = "idle"
)
