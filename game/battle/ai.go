package battle

import (
	"sort"

	"github.com/kasuganosora/creaturebattle/server/resource"
)

// Decision is what a Policy wants its side to do next.
type Decision struct {
	Switch bool
	MoveID int
	Slot   int
}

// Policy picks actions for a non-human side.
type Policy interface {
	Decide(s *Session, side Side) Decision
}

// HeuristicPolicy switches out a badly hurt lead some of the time and
// otherwise prefers the move with the best type matchup.
type HeuristicPolicy struct {
	Rand           Rand
	LowHP          float64 // hp ratio below which a switch is considered
	SwitchChance   float64
	BestMoveChance float64
}

// NewHeuristicPolicy returns the default difficulty.
func NewHeuristicPolicy(rng Rand) *HeuristicPolicy {
	if rng == nil {
		rng = NewRand(0)
	}
	return &HeuristicPolicy{
		Rand:           rng,
		LowHP:          0.25,
		SwitchChance:   0.5,
		BestMoveChance: 0.7,
	}
}

func (p *HeuristicPolicy) Decide(s *Session, side Side) Decision {
	team := s.Team(side)
	if s.State().Phase == PhaseAwaitingSwitch {
		return Decision{Switch: true, Slot: team.FirstLiveReserve()}
	}

	active := team.Active()
	if active.HPRatio() < p.LowHP && team.HasLiveReserve() && p.Rand.Float64() < p.SwitchChance {
		return Decision{Switch: true, Slot: team.FirstLiveReserve()}
	}

	ranked := RankMoves(active, s.Team(side.Opponent()).Active())
	if p.Rand.Float64() < p.BestMoveChance {
		return Decision{MoveID: ranked[0].ID}
	}
	return Decision{MoveID: active.Moves[p.Rand.Intn(len(active.Moves))].ID}
}

// RankMoves orders attacker's moves by type effectiveness against defender,
// best first. Status moves rank as neutral. Ties keep move-list order.
func RankMoves(attacker, defender *Combatant) []*resource.MoveDefinition {
	ranked := make([]*resource.MoveDefinition, len(attacker.Moves))
	copy(ranked, attacker.Moves)
	score := func(m *resource.MoveDefinition) float64 {
		if m.IsStatus() {
			return 1
		}
		return resource.Effectiveness(m.Type, defender.Types...)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	return ranked
}
