package battle

import (
	"fmt"

	"github.com/kasuganosora/creaturebattle/server/resource"
)

const (
	MinLevel = 1
	MaxLevel = 100

	MinStage = -6
	MaxStage = 6
)

// Volatile holds transient in-battle flags. Cleared on switch-out.
type Volatile struct {
	Confused bool `json:"confused,omitempty"`
	Flinched bool `json:"flinched,omitempty"`
	Bound    bool `json:"bound,omitempty"`
	Seeded   bool `json:"seeded,omitempty"`
}

// CombatantConfig describes one combatant to build.
type CombatantConfig struct {
	Species *resource.CreatureDefinition
	Name    string
	Level   int
	Types   []resource.Type
	Stats   *resource.Stats // overrides the level-derived stats when set
	Moves   []*resource.MoveDefinition
	Shiny   bool
}

// Combatant is the mutable battle state of one creature. It is owned by a
// single Session and must not be shared.
type Combatant struct {
	SpeciesID int
	Name      string
	Level     int
	Types     []resource.Type
	Stats     resource.Stats // Stats.HP is the max hp
	Moves     []*resource.MoveDefinition
	Shiny     bool
	Volatile  Volatile

	hp     int
	boosts [resource.NumStats]int
}

// ComputeStats applies the level formula to a base stat block.
func ComputeStats(base resource.Stats, level int) resource.Stats {
	other := func(b int) int { return 2*b*level/100 + 5 }
	return resource.Stats{
		HP:        2*base.HP*level/100 + level + 10,
		Attack:    other(base.Attack),
		Defense:   other(base.Defense),
		SpAttack:  other(base.SpAttack),
		SpDefense: other(base.SpDefense),
		Speed:     other(base.Speed),
	}
}

// NewCombatant builds a combatant at full hp.
func NewCombatant(cfg CombatantConfig) (*Combatant, error) {
	if cfg.Level < MinLevel || cfg.Level > MaxLevel {
		return nil, fmt.Errorf("battle: level %d out of range", cfg.Level)
	}
	if len(cfg.Moves) == 0 || len(cfg.Moves) > resource.MaxMoves {
		return nil, fmt.Errorf("battle: combatant needs 1..%d moves", resource.MaxMoves)
	}
	for _, m := range cfg.Moves {
		if m == nil {
			return nil, fmt.Errorf("battle: nil move")
		}
	}
	c := &Combatant{
		Name:  cfg.Name,
		Level: cfg.Level,
		Types: cfg.Types,
		Moves: cfg.Moves,
		Shiny: cfg.Shiny,
	}
	if sp := cfg.Species; sp != nil {
		c.SpeciesID = sp.ID
		if c.Name == "" {
			c.Name = sp.Name
		}
		if len(c.Types) == 0 {
			c.Types = sp.Types
		}
		c.Stats = ComputeStats(sp.BaseStats, cfg.Level)
	}
	if cfg.Stats != nil {
		c.Stats = *cfg.Stats
	}
	if c.Name == "" || len(c.Types) == 0 {
		return nil, fmt.Errorf("battle: combatant needs a name and at least one type")
	}
	if c.Stats.HP <= 0 {
		return nil, fmt.Errorf("battle: combatant %s has no hp", c.Name)
	}
	c.hp = c.Stats.HP
	return c, nil
}

func (c *Combatant) HP() int { return c.hp }
func (c *Combatant) MaxHP() int { return c.Stats.HP }
func (c *Combatant) Fainted() bool { return c.hp == 0 }

// HPRatio is current/max in [0, 1].
func (c *Combatant) HPRatio() float64 {
	return float64(c.hp) / float64(c.Stats.HP)
}

// TakeDamage lowers hp, never below zero, and returns the hp actually lost.
func (c *Combatant) TakeDamage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > c.hp {
		n = c.hp
	}
	c.hp -= n
	return n
}

// Heal raises hp, never above max, and returns the hp actually gained.
func (c *Combatant) Heal(n int) int {
	if n <= 0 || c.Fainted() {
		return 0
	}
	if room := c.Stats.HP - c.hp; n > room {
		n = room
	}
	c.hp += n
	return n
}

// Boost returns the current stage of s.
func (c *Combatant) Boost(s resource.Stat) int { return c.boosts[s] }

// Boosts returns a copy of all stages.
func (c *Combatant) Boosts() [resource.NumStats]int { return c.boosts }

// ApplyBoost shifts a stage within [MinStage, MaxStage] and returns the
// change actually applied.
func (c *Combatant) ApplyBoost(s resource.Stat, delta int) int {
	before := c.boosts[s]
	after := before + delta
	if after > MaxStage {
		after = MaxStage
	}
	if after < MinStage {
		after = MinStage
	}
	c.boosts[s] = after
	return after - before
}

// StageMultiplier maps a boost stage to its stat factor.
func StageMultiplier(stage int) float64 {
	if stage >= 0 {
		return float64(2+stage) / 2
	}
	return 2 / float64(2-stage)
}

// EffectiveStat returns the floored, boost-adjusted value of an offensive,
// defensive or speed stat. Accuracy and evasion have no base value and
// return 0.
func (c *Combatant) EffectiveStat(s resource.Stat) int {
	var base int
	switch s {
	case resource.StatAttack:
		base = c.Stats.Attack
	case resource.StatDefense:
		base = c.Stats.Defense
	case resource.StatSpAttack:
		base = c.Stats.SpAttack
	case resource.StatSpDefense:
		base = c.Stats.SpDefense
	case resource.StatSpeed:
		base = c.Stats.Speed
	default:
		return 0
	}
	return int(float64(base) * StageMultiplier(c.boosts[s]))
}

// ResetVolatile clears boosts and transient flags.
func (c *Combatant) ResetVolatile() {
	c.boosts = [resource.NumStats]int{}
	c.Volatile = Volatile{}
}

// Move returns the move with the given id from this combatant's list.
func (c *Combatant) Move(id int) *resource.MoveDefinition {
	for _, m := range c.Moves {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (c *Combatant) HasType(t resource.Type) bool {
	for _, own := range c.Types {
		if own == t {
			return true
		}
	}
	return false
}
