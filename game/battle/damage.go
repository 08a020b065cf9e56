package battle

import (
	"fmt"
	"math"
	"strings"

	"github.com/kasuganosora/creaturebattle/server/resource"
)

// Weather modifies fire and water damage.
type Weather int

const (
	WeatherNone Weather = iota
	WeatherRain
	WeatherSun
)

func (w Weather) String() string {
	switch w {
	case WeatherRain:
		return "rain"
	case WeatherSun:
		return "sun"
	default:
		return "none"
	}
}

// ParseWeather accepts "", "none", "rain" and "sun".
func ParseWeather(s string) (Weather, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "clear":
		return WeatherNone, nil
	case "rain":
		return WeatherRain, nil
	case "sun":
		return WeatherSun, nil
	}
	return WeatherNone, fmt.Errorf("battle: unknown weather %q", s)
}

func (w Weather) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *Weather) UnmarshalText(b []byte) error {
	v, err := ParseWeather(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

const (
	CritChance     = 1.0 / 16
	CritMultiplier = 1.5
	STABMultiplier = 1.5
	VarianceFloor  = 0.85
	WeatherBoost   = 1.5
	WeatherPenalty = 0.5
)

// AttackResult is the outcome of one resolved attack.
type AttackResult struct {
	Hit           bool    `json:"hit"`
	Critical      bool    `json:"critical"`
	Effectiveness float64 `json:"effectiveness"`
	Damage        int     `json:"damage"`
}

// HitChance is the move accuracy scaled by the attacker's accuracy stage and
// the defender's evasion stage, clamped to [0, 100].
func HitChance(attacker, defender *Combatant, move *resource.MoveDefinition) float64 {
	chance := float64(move.Accuracy) *
		StageMultiplier(attacker.Boost(resource.StatAccuracy)) /
		StageMultiplier(defender.Boost(resource.StatEvasion))
	return math.Max(0, math.Min(100, chance))
}

// RollHit draws once from rng.
func RollHit(attacker, defender *Combatant, move *resource.MoveDefinition, rng Rand) bool {
	return rng.Float64()*100 < HitChance(attacker, defender, move)
}

// BaseDamage is the level/power/stat core of the formula, floored.
func BaseDamage(level, power, attack, defense int) int {
	if defense <= 0 {
		defense = 1
	}
	lv := float64(2*level)/5 + 2
	return int(math.Floor(lv*float64(power)*float64(attack)/float64(defense)/50 + 2))
}

func offenseStats(t resource.Type) (atk, def resource.Stat) {
	if t.IsSpecial() {
		return resource.StatSpAttack, resource.StatSpDefense
	}
	return resource.StatAttack, resource.StatDefense
}

func weatherFactor(w Weather, t resource.Type) float64 {
	switch {
	case w == WeatherRain && t == resource.Water, w == WeatherSun && t == resource.Fire:
		return WeatherBoost
	case w == WeatherRain && t == resource.Fire, w == WeatherSun && t == resource.Water:
		return WeatherPenalty
	}
	return 1
}

// ResolveAttack runs the hit check and the damage pipeline for a damaging
// move. It draws from rng in a fixed order (hit, critical, variance) and does
// not mutate either combatant. Every multiplier step is floored.
func ResolveAttack(attacker, defender *Combatant, move *resource.MoveDefinition, weather Weather, rng Rand) AttackResult {
	if !RollHit(attacker, defender, move, rng) {
		return AttackResult{Effectiveness: 1}
	}
	res := AttackResult{Hit: true}

	atkStat, defStat := offenseStats(move.Type)
	dmg := BaseDamage(attacker.Level, move.Power, attacker.EffectiveStat(atkStat), defender.EffectiveStat(defStat))

	res.Effectiveness = resource.Effectiveness(move.Type, defender.Types...)
	dmg = floorMul(dmg, res.Effectiveness)

	if attacker.HasType(move.Type) {
		dmg = floorMul(dmg, STABMultiplier)
	}

	if rng.Float64() < CritChance {
		res.Critical = true
		dmg = floorMul(dmg, CritMultiplier)
	}

	dmg = floorMul(dmg, varianceFactor(rng.Float64()))
	dmg = floorMul(dmg, weatherFactor(weather, move.Type))

	if res.Effectiveness == 0 {
		res.Damage = 0
		return res
	}
	if dmg < 1 {
		dmg = 1
	}
	res.Damage = dmg
	return res
}

// VarianceSteps is the number of whole-percent factors from VarianceFloor
// to 1.00, both ends included.
const VarianceSteps = 16

// varianceFactor maps a draw in [0, 1) onto one of 0.85, 0.86 ... 1.00.
// A scripted draw of exactly 1 lands on the top step.
func varianceFactor(draw float64) float64 {
	step := int(draw * VarianceSteps)
	if step >= VarianceSteps {
		step = VarianceSteps - 1
	}
	if step < 0 {
		step = 0
	}
	return float64(85+step) / 100
}

func floorMul(v int, f float64) int {
	return int(math.Floor(float64(v) * f))
}
