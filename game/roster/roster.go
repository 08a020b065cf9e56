// Package roster turns a client's join request into a battle team.
package roster

import (
	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/resource"
)

// ShinyOdds is the 1-in-N chance of a shiny creature in a random team.
const ShinyOdds = 4096

// Entry is one requested team member.
type Entry struct {
	SpeciesID int   `json:"species_id"`
	Level     int   `json:"level,omitempty"`
	Moves     []int `json:"moves,omitempty"`
	Shiny     bool  `json:"shiny,omitempty"`
}

// Request selects a team: an explicit roster, a preset id, or neither for a
// random team.
type Request struct {
	TeamID string  `json:"team_id,omitempty"`
	Team   []Entry `json:"team,omitempty"`
}

// Builder resolves requests against the catalog.
type Builder struct {
	res          *resource.ResourceLoader
	defaultLevel int
	randomSize   int
}

// NewBuilder creates a Builder. Out-of-range sizes fall back to sane values.
func NewBuilder(res *resource.ResourceLoader, defaultLevel, randomSize int) *Builder {
	if defaultLevel < battle.MinLevel || defaultLevel > battle.MaxLevel {
		defaultLevel = 50
	}
	if randomSize < 1 || randomSize > battle.MaxTeamSize {
		randomSize = 3
	}
	return &Builder{res: res, defaultLevel: defaultLevel, randomSize: randomSize}
}

// Build validates the request and constructs fresh combatants. Failures are
// *battle.Error values with CodeBadRequest.
func (b *Builder) Build(req Request, rng battle.Rand) (*battle.Team, error) {
	entries := req.Team
	switch {
	case len(entries) > 0:
	case req.TeamID != "":
		preset := b.res.Team(req.TeamID)
		if preset == nil {
			return nil, battle.Errorf(battle.CodeBadRequest, "unknown team %q", req.TeamID)
		}
		for _, id := range preset.Species {
			entries = append(entries, Entry{SpeciesID: id})
		}
	default:
		entries = b.randomEntries(rng)
	}

	if len(entries) > battle.MaxTeamSize {
		return nil, battle.Errorf(battle.CodeBadRequest, "team has %d members, max %d", len(entries), battle.MaxTeamSize)
	}
	members := make([]*battle.Combatant, 0, len(entries))
	for i, e := range entries {
		c, err := b.combatant(e)
		if err != nil {
			return nil, battle.Errorf(battle.CodeBadRequest, "slot %d: %v", i, err)
		}
		members = append(members, c)
	}
	team, err := battle.NewTeam(members...)
	if err != nil {
		return nil, battle.Errorf(battle.CodeBadRequest, "%v", err)
	}
	return team, nil
}

func (b *Builder) combatant(e Entry) (*battle.Combatant, error) {
	sp := b.res.SpeciesByID(e.SpeciesID)
	if sp == nil {
		return nil, battle.Errorf(battle.CodeBadRequest, "unknown species %d", e.SpeciesID)
	}
	level := e.Level
	if level == 0 {
		level = b.defaultLevel
	}
	ids := e.Moves
	if len(ids) == 0 {
		ids = sp.Moves
	}
	moves := make([]*resource.MoveDefinition, 0, len(ids))
	for _, id := range ids {
		m := b.res.MoveByID(id)
		if m == nil {
			return nil, battle.Errorf(battle.CodeBadRequest, "unknown move %d", id)
		}
		moves = append(moves, m)
	}
	return battle.NewCombatant(battle.CombatantConfig{
		Species: sp,
		Level:   level,
		Moves:   moves,
		Shiny:   e.Shiny,
	})
}

// randomEntries picks distinct non-legendary species.
func (b *Builder) randomEntries(rng battle.Rand) []Entry {
	var pool []*resource.CreatureDefinition
	for _, sp := range b.res.Species() {
		if !sp.Legendary {
			pool = append(pool, sp)
		}
	}
	n := b.randomSize
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		out = append(out, Entry{
			SpeciesID: pool[i].ID,
			Shiny:     rng.Intn(ShinyOdds) == 0,
		})
	}
	return out
}
