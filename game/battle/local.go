package battle

import "fmt"

// maxAIActions bounds one RunAI call; a policy never needs more than a
// forced switch plus one action.
const maxAIActions = 4

// LocalBattle drives a session where one side is a human and the other is
// played by a Policy in the same process.
type LocalBattle struct {
	Session *Session
	Human   Side
	Policy  Policy
}

// NewLocalBattle pairs a session with a policy for the non-human side.
func NewLocalBattle(s *Session, human Side, p Policy) *LocalBattle {
	return &LocalBattle{Session: s, Human: human, Policy: p}
}

func (lb *LocalBattle) AI() Side { return lb.Human.Opponent() }

// Move submits a human move, then lets the policy respond.
func (lb *LocalBattle) Move(moveID int) ([]LogEntry, error) {
	res, err := lb.Session.SubmitMove(lb.Human, moveID)
	if err != nil {
		return nil, err
	}
	more, err := lb.RunAI()
	return append(res.Entries, more...), err
}

// Switch submits a human switch, then lets the policy respond.
func (lb *LocalBattle) Switch(slot int) ([]LogEntry, error) {
	res, err := lb.Session.SubmitSwitch(lb.Human, slot)
	if err != nil {
		return nil, err
	}
	more, err := lb.RunAI()
	return append(res.Entries, more...), err
}

func (lb *LocalBattle) aiToAct() bool {
	st := lb.Session.State()
	return st.Phase != PhaseFinished && st.Side == lb.AI()
}

// RunAI acts for the policy side until the human is expected to act or the
// battle is over. A rejected decision falls back to the first legal action.
func (lb *LocalBattle) RunAI() ([]LogEntry, error) {
	var out []LogEntry
	for i := 0; i < maxAIActions && lb.aiToAct(); i++ {
		res, err := lb.apply(lb.Policy.Decide(lb.Session, lb.AI()))
		if err != nil {
			res, err = lb.apply(lb.fallback())
		}
		if err != nil {
			return out, fmt.Errorf("battle: policy stuck: %w", err)
		}
		out = append(out, res.Entries...)
	}
	return out, nil
}

func (lb *LocalBattle) apply(d Decision) (*Result, error) {
	if d.Switch {
		return lb.Session.SubmitSwitch(lb.AI(), d.Slot)
	}
	return lb.Session.SubmitMove(lb.AI(), d.MoveID)
}

func (lb *LocalBattle) fallback() Decision {
	team := lb.Session.Team(lb.AI())
	if lb.Session.State().Phase == PhaseAwaitingSwitch {
		return Decision{Switch: true, Slot: team.FirstLiveReserve()}
	}
	return Decision{MoveID: team.Active().Moves[0].ID}
}
