package battle

import (
	"math"
	"testing"

	"github.com/kasuganosora/creaturebattle/server/resource"
)

func TestBaseDamage(t *testing.T) {
	// ((2*50/5+2) * 90 * 100/50) / 50 + 2 = 81.2
	if got := BaseDamage(50, 90, 100, 50); got != 81 {
		t.Errorf("BaseDamage = %d, want 81", got)
	}
	if got := BaseDamage(1, 40, 10, 0); got <= 0 {
		t.Errorf("zero defense should not divide by zero, got %d", got)
	}
}

func TestResolveAttack_FloorSequence(t *testing.T) {
	atk := mkCombatant(t, "Brawler", 200, 100, 50, []resource.Type{resource.Fighting}, mvStrike)
	def := mkCombatant(t, "Target", 200, 50, 50, normal(), mvTackle)

	// hit, no critical, variance forced to 1.0
	rng := &scriptRand{floats: []float64{0, 0.99, 1.0}}
	res := ResolveAttack(atk, def, mvStrike, WeatherNone, rng)

	if !res.Hit || res.Critical {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if res.Effectiveness != 2 {
		t.Errorf("effectiveness = %v, want 2", res.Effectiveness)
	}
	// 81 -> x2 = 162 -> STAB 243
	if res.Damage != 243 {
		t.Errorf("damage = %d, want 243", res.Damage)
	}
	if atk.HP() != 200 || def.HP() != 200 {
		t.Error("ResolveAttack must not mutate combatants")
	}
}

func TestResolveAttack_Critical(t *testing.T) {
	atk := mkCombatant(t, "Brawler", 200, 100, 50, []resource.Type{resource.Fighting}, mvStrike)
	def := mkCombatant(t, "Target", 200, 50, 50, normal(), mvTackle)
	res := ResolveAttack(atk, def, mvStrike, WeatherNone, &scriptRand{floats: []float64{0, 0, 1.0}})
	if !res.Critical {
		t.Fatal("expected a critical hit")
	}
	if res.Damage != 364 { // floor(243 * 1.5)
		t.Errorf("damage = %d, want 364", res.Damage)
	}
}

func TestResolveAttack_LowVariance(t *testing.T) {
	atk := mkCombatant(t, "Brawler", 200, 100, 50, []resource.Type{resource.Fighting}, mvStrike)
	def := mkCombatant(t, "Target", 200, 50, 50, normal(), mvTackle)
	res := ResolveAttack(atk, def, mvStrike, WeatherNone, &scriptRand{floats: []float64{0, 0.99, 0}})
	if res.Damage != 206 { // floor(243 * 0.85)
		t.Errorf("damage = %d, want 206", res.Damage)
	}
}

func TestVarianceFactor_ReachesBothEnds(t *testing.T) {
	cases := []struct {
		draw float64
		want float64
	}{
		{0, 0.85},
		{1.0 / 16, 0.86},
		{0.5, 0.93},
		{15.0 / 16, 1.00},
		{0.999999, 1.00},
		{1, 1.00},
	}
	for _, c := range cases {
		if got := varianceFactor(c.draw); got != c.want {
			t.Errorf("varianceFactor(%v) = %v, want %v", c.draw, got, c.want)
		}
	}

	atk := mkCombatant(t, "Brawler", 200, 100, 50, []resource.Type{resource.Fighting}, mvStrike)
	def := mkCombatant(t, "Target", 200, 50, 50, normal(), mvTackle)
	// The top step is a real draw, not only a scripted 1.
	res := ResolveAttack(atk, def, mvStrike, WeatherNone, &scriptRand{floats: []float64{0, 0.99, 0.97}})
	if res.Damage != 243 {
		t.Errorf("damage at top step = %d, want 243", res.Damage)
	}
}

func TestResolveAttack_MissShortCircuits(t *testing.T) {
	move := &resource.MoveDefinition{ID: 9, Name: "Wild", Type: resource.Normal, Power: 100, Accuracy: 50}
	atk := mkCombatant(t, "A", 100, 100, 50, normal(), move)
	def := mkCombatant(t, "B", 100, 50, 50, normal(), mvTackle)
	rng := &scriptRand{floats: []float64{0.6}}

	res := ResolveAttack(atk, def, move, WeatherNone, rng)
	if res.Hit || res.Damage != 0 || res.Critical {
		t.Errorf("expected a clean miss, got %+v", res)
	}
	if rng.draws != 1 {
		t.Errorf("a miss should draw once, drew %d", rng.draws)
	}
}

func TestResolveAttack_ImmuneForcesZero(t *testing.T) {
	atk := mkCombatant(t, "A", 100, 500, 50, normal(), mvTackle)
	ghost := mkCombatant(t, "Ghost", 100, 50, 1, []resource.Type{resource.Ghost}, mvTackle)
	res := ResolveAttack(atk, ghost, mvTackle, WeatherNone, &scriptRand{floats: []float64{0, 0, 1}})
	if !res.Hit {
		t.Fatal("immunity is not a miss")
	}
	if res.Effectiveness != 0 || res.Damage != 0 {
		t.Errorf("got %+v, want zero damage", res)
	}
}

func TestResolveAttack_MinimumOne(t *testing.T) {
	weak := &resource.MoveDefinition{ID: 9, Name: "Ember", Type: resource.Fire, Power: 10, Accuracy: 100}
	atk := mkCombatant(t, "A", 100, 1, 50, normal(), weak)
	def := mkCombatant(t, "B", 100, 50, 999, []resource.Type{resource.Water, resource.Dragon}, mvTackle)
	res := ResolveAttack(atk, def, weak, WeatherRain, &scriptRand{floats: []float64{0, 0.99, 0}})
	if res.Damage != 1 {
		t.Errorf("damage = %d, want 1", res.Damage)
	}
	if res.Effectiveness != 0.25 {
		t.Errorf("effectiveness = %v, want 0.25", res.Effectiveness)
	}
}

func TestResolveAttack_Weather(t *testing.T) {
	atk := mkCombatant(t, "A", 100, 100, 50, normal(), mvSplash, mvFlame)
	def := mkCombatant(t, "B", 100, 50, 50, normal(), mvTackle)
	draws := func() *scriptRand { return &scriptRand{floats: []float64{0, 0.99, 1}} }

	plain := ResolveAttack(atk, def, mvSplash, WeatherNone, draws()).Damage
	rain := ResolveAttack(atk, def, mvSplash, WeatherRain, draws()).Damage
	sun := ResolveAttack(atk, def, mvSplash, WeatherSun, draws()).Damage
	if rain != int(math.Floor(float64(plain)*1.5)) {
		t.Errorf("rain water = %d, plain %d", rain, plain)
	}
	if sun != plain/2 {
		t.Errorf("sun water = %d, plain %d", sun, plain)
	}

	fire := ResolveAttack(atk, def, mvFlame, WeatherNone, draws()).Damage
	fireSun := ResolveAttack(atk, def, mvFlame, WeatherSun, draws()).Damage
	fireRain := ResolveAttack(atk, def, mvFlame, WeatherRain, draws()).Damage
	if fireSun <= fire || fireRain >= fire {
		t.Errorf("fire: plain %d sun %d rain %d", fire, fireSun, fireRain)
	}
}

func TestResolveAttack_STABMonotonic(t *testing.T) {
	def := mkCombatant(t, "B", 500, 50, 60, normal(), mvTackle)
	for _, variance := range []float64{0, 0.3, 0.77, 1} {
		with := mkCombatant(t, "With", 100, 90, 50, []resource.Type{resource.Fighting}, mvStrike)
		without := mkCombatant(t, "Without", 100, 90, 50, []resource.Type{resource.Psychic}, mvStrike)
		a := ResolveAttack(with, def, mvStrike, WeatherNone, &scriptRand{floats: []float64{0, 0.99, variance}})
		b := ResolveAttack(without, def, mvStrike, WeatherNone, &scriptRand{floats: []float64{0, 0.99, variance}})
		if a.Damage < b.Damage {
			t.Errorf("variance %v: STAB %d < plain %d", variance, a.Damage, b.Damage)
		}
	}
}

func TestResolveAttack_SpecialUsesSpecialStats(t *testing.T) {
	atk := mkCombatant(t, "A", 100, 100, 50, normal(), mvFlame)
	atk.Stats.Attack = 1 // physical stat must be ignored
	def := mkCombatant(t, "B", 100, 50, 50, normal(), mvTackle)
	def.Stats.Defense = 999
	res := ResolveAttack(atk, def, mvFlame, WeatherNone, &scriptRand{floats: []float64{0, 0.99, 1}})
	want := BaseDamage(50, 40, 100, 50)
	if res.Damage != want {
		t.Errorf("damage = %d, want %d", res.Damage, want)
	}
}

func TestHitChance_Stages(t *testing.T) {
	atk := mkCombatant(t, "A", 100, 100, 50, normal(), mvTackle)
	def := mkCombatant(t, "B", 100, 50, 50, normal(), mvTackle)
	if got := HitChance(atk, def, mvTackle); got != 100 {
		t.Errorf("neutral chance = %v", got)
	}
	def.ApplyBoost(resource.StatEvasion, 1)
	if got := HitChance(atk, def, mvTackle); math.Abs(got-66.666) > 0.01 {
		t.Errorf("evasion +1 chance = %v", got)
	}
	if RollHit(atk, def, mvTackle, &scriptRand{floats: []float64{0.7}}) {
		t.Error("draw 70 should miss against 66.7")
	}
	atk.ApplyBoost(resource.StatAccuracy, 6)
	if got := HitChance(atk, def, mvTackle); got != 100 {
		t.Errorf("chance should clamp at 100, got %v", got)
	}
}

func TestParseWeather(t *testing.T) {
	for in, want := range map[string]Weather{"": WeatherNone, "rain": WeatherRain, "SUN": WeatherSun, "none": WeatherNone} {
		got, err := ParseWeather(in)
		if err != nil || got != want {
			t.Errorf("ParseWeather(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseWeather("hail"); err == nil {
		t.Error("expected error for hail")
	}
}
