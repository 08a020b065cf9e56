package battle

import "fmt"

const MaxTeamSize = 6

// Team is an ordered roster. Slot 0 is always the active combatant.
type Team struct {
	Members []*Combatant
}

// NewTeam validates the 1..6 size bound and a live lead.
func NewTeam(members ...*Combatant) (*Team, error) {
	if len(members) == 0 || len(members) > MaxTeamSize {
		return nil, fmt.Errorf("battle: team needs 1..%d members, got %d", MaxTeamSize, len(members))
	}
	for i, m := range members {
		if m == nil {
			return nil, fmt.Errorf("battle: team slot %d is empty", i)
		}
	}
	if members[0].Fainted() {
		return nil, fmt.Errorf("battle: team lead is fainted")
	}
	return &Team{Members: members}, nil
}

func (t *Team) Size() int { return len(t.Members) }

func (t *Team) Active() *Combatant { return t.Members[0] }

// Member returns the combatant at slot, or nil when out of range.
func (t *Team) Member(slot int) *Combatant {
	if slot < 0 || slot >= len(t.Members) {
		return nil
	}
	return t.Members[slot]
}

// CanSwitchTo reports whether slot is a legal switch target.
func (t *Team) CanSwitchTo(slot int) error {
	if slot <= 0 || slot >= len(t.Members) {
		return Errorf(CodeInvalidSlot, "slot %d is not a reserve slot", slot)
	}
	if t.Members[slot].Fainted() {
		return Errorf(CodeInvalidSlot, "%s has fainted", t.Members[slot].Name)
	}
	return nil
}

// swap moves slot into the active position and clears the outgoing
// combatant's volatile state.
func (t *Team) swap(slot int) {
	t.Members[0].ResetVolatile()
	t.Members[0], t.Members[slot] = t.Members[slot], t.Members[0]
}

// FirstLiveReserve returns the lowest live reserve slot, or -1.
func (t *Team) FirstLiveReserve() int {
	for i := 1; i < len(t.Members); i++ {
		if !t.Members[i].Fainted() {
			return i
		}
	}
	return -1
}

func (t *Team) HasLiveReserve() bool { return t.FirstLiveReserve() > 0 }

func (t *Team) LiveCount() int {
	n := 0
	for _, m := range t.Members {
		if !m.Fainted() {
			n++
		}
	}
	return n
}

func (t *Team) AllFainted() bool { return t.LiveCount() == 0 }
