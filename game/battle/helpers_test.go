package battle

import (
	"testing"
	"time"

	"github.com/kasuganosora/creaturebattle/server/resource"
)

// scriptRand replays fixed draws. Once a script runs out, Float64 returns
// 0.5 (hits, no critical) and Intn returns 0.
type scriptRand struct {
	floats []float64
	ints   []int
	draws  int
}

func (r *scriptRand) Float64() float64 {
	r.draws++
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

var (
	mvStrike = &resource.MoveDefinition{ID: 1, Name: "Strike", Type: resource.Fighting, Power: 90, Accuracy: 100}
	mvTackle = &resource.MoveDefinition{ID: 2, Name: "Tackle", Type: resource.Normal, Power: 40, Accuracy: 100}
	mvSplash = &resource.MoveDefinition{ID: 3, Name: "Splash", Type: resource.Water, Power: 40, Accuracy: 100}
	mvFlame  = &resource.MoveDefinition{ID: 4, Name: "Flame", Type: resource.Fire, Power: 40, Accuracy: 100}
	mvGrowl  = &resource.MoveDefinition{ID: 5, Name: "Growl", Type: resource.Normal, Accuracy: 100, Effect: &resource.StatEffect{Stat: resource.StatAttack, Stages: -1}}
	mvDance  = &resource.MoveDefinition{ID: 6, Name: "Dance", Type: resource.Normal, Accuracy: 100, Effect: &resource.StatEffect{Stat: resource.StatAttack, Stages: 2, Self: true}}
)

func mkCombatant(t *testing.T, name string, hp, atk, def int, types []resource.Type, moves ...*resource.MoveDefinition) *Combatant {
	t.Helper()
	c, err := NewCombatant(CombatantConfig{
		Name:  name,
		Level: 50,
		Types: types,
		Stats: &resource.Stats{HP: hp, Attack: atk, Defense: def, SpAttack: atk, SpDefense: def, Speed: 50},
		Moves: moves,
	})
	if err != nil {
		t.Fatalf("NewCombatant(%s): %v", name, err)
	}
	return c
}

func mkTeam(t *testing.T, members ...*Combatant) *Team {
	t.Helper()
	team, err := NewTeam(members...)
	if err != nil {
		t.Fatalf("NewTeam: %v", err)
	}
	return team
}

func normal() []resource.Type { return []resource.Type{resource.Normal} }

// newTestSession builds a session where A opens. Side A hits hard; side B's
// lead has 10 hp so any hit from A faints it.
func newTestSession(t *testing.T, rng Rand, bReserves int) *Session {
	t.Helper()
	a := mkTeam(t,
		mkCombatant(t, "Brawler", 200, 100, 50, []resource.Type{resource.Fighting}, mvStrike, mvGrowl, mvDance),
		mkCombatant(t, "Backup", 200, 50, 50, normal(), mvTackle),
	)
	bMembers := []*Combatant{mkCombatant(t, "Frail", 10, 50, 50, normal(), mvTackle, mvGrowl)}
	for i := 0; i < bReserves; i++ {
		bMembers = append(bMembers, mkCombatant(t, "Reserve", 300, 50, 500, normal(), mvTackle))
	}
	first := SideA
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSession(Config{
		ID:           "battle-1",
		Participants: [2]string{"alice", "bob"},
		Teams:        [2]*Team{a, mkTeam(t, bMembers...)},
		Rand:         rng,
		FirstActor:   &first,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}
