package battle

import (
	"testing"

	"github.com/kasuganosora/creaturebattle/server/resource"
)

func TestComputeStats(t *testing.T) {
	// Pikachu base stats at level 50.
	got := ComputeStats(resource.Stats{HP: 35, Attack: 55, Defense: 40, SpAttack: 50, SpDefense: 50, Speed: 90}, 50)
	want := resource.Stats{HP: 95, Attack: 60, Defense: 45, SpAttack: 55, SpDefense: 55, Speed: 95}
	if got != want {
		t.Errorf("ComputeStats = %+v, want %+v", got, want)
	}
}

func TestNewCombatant_FromSpecies(t *testing.T) {
	sp := &resource.CreatureDefinition{
		ID: 25, Name: "Pikachu", Types: []resource.Type{resource.Electric},
		BaseStats: resource.Stats{HP: 35, Attack: 55, Defense: 40, SpAttack: 50, SpDefense: 50, Speed: 90},
	}
	c, err := NewCombatant(CombatantConfig{Species: sp, Level: 50, Moves: []*resource.MoveDefinition{mvTackle}, Shiny: true})
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Pikachu" || c.SpeciesID != 25 || !c.Shiny {
		t.Errorf("unexpected identity: %+v", c)
	}
	if c.HP() != 95 || c.MaxHP() != 95 {
		t.Errorf("hp = %d/%d, want 95/95", c.HP(), c.MaxHP())
	}
	if !c.HasType(resource.Electric) || c.HasType(resource.Water) {
		t.Error("types not inherited from species")
	}
}

func TestNewCombatant_Validation(t *testing.T) {
	stats := &resource.Stats{HP: 10}
	cases := map[string]CombatantConfig{
		"level zero": {Name: "x", Level: 0, Types: normal(), Stats: stats, Moves: []*resource.MoveDefinition{mvTackle}},
		"level 101":  {Name: "x", Level: 101, Types: normal(), Stats: stats, Moves: []*resource.MoveDefinition{mvTackle}},
		"no moves":   {Name: "x", Level: 5, Types: normal(), Stats: stats},
		"five moves": {Name: "x", Level: 5, Types: normal(), Stats: stats, Moves: []*resource.MoveDefinition{mvTackle, mvTackle, mvTackle, mvTackle, mvTackle}},
		"nil move":   {Name: "x", Level: 5, Types: normal(), Stats: stats, Moves: []*resource.MoveDefinition{nil}},
		"no types":   {Name: "x", Level: 5, Stats: stats, Moves: []*resource.MoveDefinition{mvTackle}},
		"no hp":      {Name: "x", Level: 5, Types: normal(), Stats: &resource.Stats{}, Moves: []*resource.MoveDefinition{mvTackle}},
		"no name":    {Level: 5, Types: normal(), Stats: stats, Moves: []*resource.MoveDefinition{mvTackle}},
	}
	for name, cfg := range cases {
		if _, err := NewCombatant(cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCombatant_HPBounds(t *testing.T) {
	c := mkCombatant(t, "A", 50, 10, 10, normal(), mvTackle)
	if got := c.TakeDamage(-5); got != 0 || c.HP() != 50 {
		t.Errorf("negative damage applied: %d, hp %d", got, c.HP())
	}
	if got := c.TakeDamage(30); got != 30 || c.HP() != 20 {
		t.Errorf("TakeDamage(30) = %d, hp %d", got, c.HP())
	}
	if got := c.Heal(100); got != 30 || c.HP() != 50 {
		t.Errorf("Heal(100) = %d, hp %d", got, c.HP())
	}
	if got := c.TakeDamage(999); got != 50 || c.HP() != 0 {
		t.Errorf("overkill = %d, hp %d", got, c.HP())
	}
	if !c.Fainted() {
		t.Error("expected fainted")
	}
	if got := c.Heal(10); got != 0 {
		t.Error("fainted combatants cannot be healed")
	}
}

func TestStageMultiplier(t *testing.T) {
	cases := map[int]float64{0: 1, 1: 1.5, 2: 2, 6: 4, -1: 2.0 / 3, -2: 0.5, -6: 0.25}
	for stage, want := range cases {
		if got := StageMultiplier(stage); got != want {
			t.Errorf("StageMultiplier(%d) = %v, want %v", stage, got, want)
		}
	}
}

func TestCombatant_Boosts(t *testing.T) {
	c := mkCombatant(t, "A", 50, 101, 10, normal(), mvTackle)
	if got := c.ApplyBoost(resource.StatAttack, -1); got != -1 {
		t.Errorf("applied %d", got)
	}
	if got := c.EffectiveStat(resource.StatAttack); got != 67 { // floor(101 * 2/3)
		t.Errorf("EffectiveStat = %d, want 67", got)
	}
	c.ApplyBoost(resource.StatAttack, 10)
	if c.Boost(resource.StatAttack) != MaxStage {
		t.Errorf("stage = %d, want clamp at %d", c.Boost(resource.StatAttack), MaxStage)
	}
	if got := c.ApplyBoost(resource.StatAttack, 1); got != 0 {
		t.Errorf("boost past max applied %d", got)
	}
	c.ApplyBoost(resource.StatEvasion, -20)
	if c.Boost(resource.StatEvasion) != MinStage {
		t.Errorf("evasion = %d, want %d", c.Boost(resource.StatEvasion), MinStage)
	}
	if c.EffectiveStat(resource.StatEvasion) != 0 {
		t.Error("evasion has no base stat")
	}

	c.Volatile.Confused = true
	c.ResetVolatile()
	if c.Boosts() != [resource.NumStats]int{} || c.Volatile.Confused {
		t.Error("ResetVolatile left state behind")
	}
}

func TestTeam(t *testing.T) {
	if _, err := NewTeam(); err == nil {
		t.Error("empty team accepted")
	}
	seven := make([]*Combatant, 7)
	for i := range seven {
		seven[i] = mkCombatant(t, "x", 10, 10, 10, normal(), mvTackle)
	}
	if _, err := NewTeam(seven...); err == nil {
		t.Error("seven members accepted")
	}

	lead := mkCombatant(t, "Lead", 10, 10, 10, normal(), mvTackle)
	down := mkCombatant(t, "Down", 10, 10, 10, normal(), mvTackle)
	up := mkCombatant(t, "Up", 10, 10, 10, normal(), mvTackle)
	down.TakeDamage(10)
	team := mkTeam(t, lead, down, up)

	if team.Active() != lead {
		t.Error("slot 0 must be active")
	}
	if team.FirstLiveReserve() != 2 || !team.HasLiveReserve() {
		t.Errorf("FirstLiveReserve = %d", team.FirstLiveReserve())
	}
	for _, slot := range []int{-1, 0, 1, 3} {
		if err := team.CanSwitchTo(slot); CodeOf(err) != CodeInvalidSlot {
			t.Errorf("slot %d: err = %v", slot, err)
		}
	}
	if err := team.CanSwitchTo(2); err != nil {
		t.Errorf("slot 2: %v", err)
	}

	lead.ApplyBoost(resource.StatSpeed, 2)
	team.swap(2)
	if team.Active() != up || team.Member(2) != lead {
		t.Error("swap did not exchange slots")
	}
	if lead.Boost(resource.StatSpeed) != 0 {
		t.Error("outgoing combatant kept its boosts")
	}
	if team.LiveCount() != 2 || team.AllFainted() {
		t.Errorf("LiveCount = %d", team.LiveCount())
	}
}
