package battle

import (
	"testing"

	"github.com/kasuganosora/creaturebattle/server/resource"
)

func aiSession(t *testing.T, bLeadHP int, rng Rand) *Session {
	t.Helper()
	first := SideB
	bLead := mkCombatant(t, "Lead", 100, 50, 50, normal(), mvTackle, mvSplash, mvStrike)
	bLead.TakeDamage(100 - bLeadHP)
	s, err := NewSession(Config{
		Participants: [2]string{"human", "ai"},
		Teams: [2]*Team{
			mkTeam(t, mkCombatant(t, "Rock", 100, 50, 50, []resource.Type{resource.Rock}, mvTackle)),
			mkTeam(t, bLead, mkCombatant(t, "Bench", 100, 50, 50, normal(), mvTackle)),
		},
		Rand:       rng,
		FirstActor: &first,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRankMoves(t *testing.T) {
	atk := mkCombatant(t, "A", 10, 10, 10, normal(), mvTackle, mvSplash, mvGrowl, mvStrike)
	rock := mkCombatant(t, "Rock", 10, 10, 10, []resource.Type{resource.Rock}, mvTackle)
	ranked := RankMoves(atk, rock)
	// Splash 2, Strike 2, Growl 1, Tackle 0.5; ties keep list order.
	want := []int{mvSplash.ID, mvStrike.ID, mvGrowl.ID, mvTackle.ID}
	for i, m := range ranked {
		if m.ID != want[i] {
			t.Fatalf("ranked[%d] = %s", i, m.Name)
		}
	}
	if atk.Moves[0] != mvTackle {
		t.Error("RankMoves reordered the combatant's own list")
	}
}

func TestHeuristicPolicy_PicksBestMove(t *testing.T) {
	rng := &scriptRand{floats: []float64{0.1}}
	s := aiSession(t, 100, rng)
	p := NewHeuristicPolicy(rng)
	d := p.Decide(s, SideB)
	if d.Switch || d.MoveID != mvSplash.ID {
		t.Errorf("decision = %+v, want Splash", d)
	}
}

func TestHeuristicPolicy_RandomMove(t *testing.T) {
	rng := &scriptRand{floats: []float64{0.9}, ints: []int{2}}
	s := aiSession(t, 100, rng)
	d := NewHeuristicPolicy(rng).Decide(s, SideB)
	if d.Switch || d.MoveID != mvStrike.ID {
		t.Errorf("decision = %+v, want the third listed move", d)
	}
}

func TestHeuristicPolicy_LowHPSwitch(t *testing.T) {
	rng := &scriptRand{floats: []float64{0.2}}
	s := aiSession(t, 20, rng)
	d := NewHeuristicPolicy(rng).Decide(s, SideB)
	if !d.Switch || d.Slot != 1 {
		t.Errorf("decision = %+v, want switch to slot 1", d)
	}

	// Losing the coin keeps it in.
	rng = &scriptRand{floats: []float64{0.8, 0.1}}
	s = aiSession(t, 20, rng)
	if d := NewHeuristicPolicy(rng).Decide(s, SideB); d.Switch {
		t.Errorf("decision = %+v, want a move", d)
	}
}

func TestHeuristicPolicy_ForcedSwitch(t *testing.T) {
	s := newTestSession(t, &scriptRand{}, 2)
	if _, err := s.SubmitMove(SideA, mvStrike.ID); err != nil {
		t.Fatal(err)
	}
	d := NewHeuristicPolicy(&scriptRand{}).Decide(s, SideB)
	if !d.Switch || d.Slot != 1 {
		t.Errorf("decision = %+v", d)
	}
}
