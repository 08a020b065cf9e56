package battle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/creaturebattle/server/resource"
)

// Config configures a Session.
type Config struct {
	ID           string    // "" = random uuid
	Participants [2]string // participant ids, indexed by Side
	Names        [2]string // display names; default to participant ids
	Teams        [2]*Team
	Weather      Weather
	Rand         Rand             // injectable for testing
	FirstActor   *Side            // nil = coin flip
	Now          func() time.Time // nil = time.Now
}

// Result reports what one accepted action changed.
type Result struct {
	Entries []LogEntry
	State   State
	Turn    int
}

// Session is the aggregate root of one battle. It is not safe for concurrent
// use; callers serialize access.
type Session struct {
	id           string
	participants [2]string
	names        [2]string
	teams        [2]*Team
	weather      Weather
	rng          Rand
	now          func() time.Time

	state     State
	first     Side
	turn      int
	reason    EndReason
	log       []LogEntry
	createdAt time.Time
	lastSeen  time.Time
}

// NewSession creates a session in AwaitingAction for the first actor and
// appends the start entry.
func NewSession(cfg Config) (*Session, error) {
	for i, t := range cfg.Teams {
		if t == nil || t.Size() == 0 {
			return nil, fmt.Errorf("battle: side %s has no team", Side(i))
		}
	}
	if cfg.Participants[0] == "" || cfg.Participants[1] == "" {
		return nil, fmt.Errorf("battle: both participants are required")
	}
	if cfg.Participants[0] == cfg.Participants[1] {
		return nil, fmt.Errorf("battle: participant %s cannot battle itself", cfg.Participants[0])
	}
	if cfg.Rand == nil {
		cfg.Rand = NewRand(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	s := &Session{
		id:           cfg.ID,
		participants: cfg.Participants,
		names:        cfg.Names,
		teams:        cfg.Teams,
		weather:      cfg.Weather,
		rng:          cfg.Rand,
		now:          cfg.Now,
		turn:         1,
	}
	for i := range s.names {
		if s.names[i] == "" {
			s.names[i] = s.participants[i]
		}
	}
	if cfg.FirstActor != nil && cfg.FirstActor.Valid() {
		s.first = *cfg.FirstActor
	} else if s.rng.Float64() < 0.5 {
		s.first = SideA
	} else {
		s.first = SideB
	}
	s.state = AwaitingAction(s.first)
	s.createdAt = s.now()
	s.lastSeen = s.createdAt
	s.appendEntry(newEntry(LogStart, SideNone, fmt.Sprintf("Battle between %s and %s started!",
		s.teams[SideA].Active().Name, s.teams[SideB].Active().Name)))
	return s, nil
}

func (s *Session) ID() string { return s.id }
func (s *Session) State() State { return s.state }
func (s *Session) Turn() int { return s.turn }
func (s *Session) Weather() Weather { return s.weather }
func (s *Session) FirstActor() Side { return s.first }
func (s *Session) Reason() EndReason { return s.reason }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActivity is the time of the most recent accepted action.
func (s *Session) LastActivity() time.Time { return s.lastSeen }

func (s *Session) Finished() bool { return s.state.Phase == PhaseFinished }

// Winner returns the winning side once finished.
func (s *Session) Winner() (Side, bool) {
	if !s.Finished() {
		return SideNone, false
	}
	return s.state.Side, true
}

// Participant returns the participant id of side.
func (s *Session) Participant(side Side) string {
	if !side.Valid() {
		return ""
	}
	return s.participants[side]
}

// Name returns the display name of side.
func (s *Session) Name(side Side) string {
	if !side.Valid() {
		return ""
	}
	return s.names[side]
}

// SideOf maps a participant id to its side.
func (s *Session) SideOf(participantID string) (Side, bool) {
	for i, p := range s.participants {
		if p == participantID {
			return Side(i), true
		}
	}
	return SideNone, false
}

// Team returns the team of side, or nil.
func (s *Session) Team(side Side) *Team {
	if !side.Valid() {
		return nil
	}
	return s.teams[side]
}

// Log returns a copy of the full log.
func (s *Session) Log() []LogEntry {
	out := make([]LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// LogSince returns a copy of the entries after the first n.
func (s *Session) LogSince(n int) []LogEntry {
	if n < 0 {
		n = 0
	}
	if n >= len(s.log) {
		return nil
	}
	out := make([]LogEntry, len(s.log)-n)
	copy(out, s.log[n:])
	return out
}

func (s *Session) LogLen() int { return len(s.log) }

func (s *Session) appendEntry(e LogEntry) {
	e.Seq = len(s.log) + 1
	e.Timestamp = s.now()
	s.log = append(s.log, e)
}

func (s *Session) result(from int) *Result {
	return &Result{Entries: s.LogSince(from), State: s.state, Turn: s.turn}
}

func (s *Session) checkActor(side Side, phase Phase) error {
	if s.Finished() {
		return Errorf(CodeBattleFinished, "battle %s is over", s.id)
	}
	if !side.Valid() {
		return Errorf(CodeNotYourTurn, "unknown side")
	}
	if s.state.Side != side {
		return Errorf(CodeNotYourTurn, "waiting for %s", s.names[s.state.Side])
	}
	if s.state.Phase != phase {
		if s.state.Phase == PhaseAwaitingSwitch {
			return Errorf(CodeNotYourTurn, "a switch is required")
		}
		return Errorf(CodeNotYourTurn, "no switch is pending")
	}
	return nil
}

// passTurn hands the action to the other side. The turn counter advances
// when the action returns to the side that opened the battle.
func (s *Session) passTurn(actor Side) Side {
	next := actor.Opponent()
	if next == s.first {
		s.turn++
	}
	return next
}

// SubmitMove resolves side's active combatant using moveID against the
// opposing active combatant.
func (s *Session) SubmitMove(side Side, moveID int) (*Result, error) {
	if err := s.checkActor(side, PhaseAwaitingAction); err != nil {
		return nil, err
	}
	attacker := s.teams[side].Active()
	move := attacker.Move(moveID)
	if move == nil {
		return nil, Errorf(CodeInvalidMove, "%s does not know move %d", attacker.Name, moveID)
	}

	from := len(s.log)
	s.state = State{Phase: PhaseResolving, Side: side}
	s.lastSeen = s.now()

	defSide := side.Opponent()
	defender := s.teams[defSide].Active()

	used := newEntry(LogMoveUsed, side, fmt.Sprintf("%s used %s!", attacker.Name, move.Name))
	used.Creature = attacker.Name
	used.MoveID = move.ID
	s.appendEntry(used)

	if move.IsStatus() {
		s.applyStatusMove(side, attacker, defender, move)
		s.state = AwaitingAction(s.passTurn(side))
		return s.result(from), nil
	}

	res := ResolveAttack(attacker, defender, move, s.weather, s.rng)
	if !res.Hit {
		s.appendEntry(newEntry(LogMissed, side, fmt.Sprintf("%s's attack missed!", attacker.Name)))
		s.state = AwaitingAction(s.passTurn(side))
		return s.result(from), nil
	}
	if txt := effectivenessText(res.Effectiveness, defender.Name); txt != "" {
		s.appendEntry(newEntry(LogEffectiveness, side, txt))
	}
	if res.Critical {
		s.appendEntry(newEntry(LogCritical, side, "A critical hit!"))
	}
	if res.Damage > 0 {
		dealt := defender.TakeDamage(res.Damage)
		e := newEntry(LogDamageApplied, defSide, fmt.Sprintf("%s took %d damage!", defender.Name, dealt))
		e.Creature = defender.Name
		e.MoveID = move.ID
		e.Damage = dealt
		s.appendEntry(e)
	}

	if !defender.Fainted() {
		s.state = AwaitingAction(s.passTurn(side))
		return s.result(from), nil
	}

	fainted := newEntry(LogFainted, defSide, defender.Name+" fainted!")
	fainted.Creature = defender.Name
	s.appendEntry(fainted)

	if s.teams[defSide].AllFainted() {
		s.finish(side, EndKnockout)
		return s.result(from), nil
	}
	s.passTurn(side)
	s.state = AwaitingSwitch(defSide)
	return s.result(from), nil
}

func (s *Session) applyStatusMove(side Side, attacker, defender *Combatant, move *resource.MoveDefinition) {
	eff := move.Effect
	if eff == nil {
		return
	}
	target, targetSide := defender, side.Opponent()
	if eff.Self {
		target, targetSide = attacker, side
	} else if !RollHit(attacker, defender, move, s.rng) {
		s.appendEntry(newEntry(LogMissed, side, fmt.Sprintf("%s's attack missed!", attacker.Name)))
		return
	}
	applied := target.ApplyBoost(eff.Stat, eff.Stages)
	e := newEntry(LogStatChanged, targetSide, statChangeText(target.Name, eff.Stat, eff.Stages, applied))
	e.Creature = target.Name
	e.MoveID = move.ID
	s.appendEntry(e)
}

func statChangeText(name string, stat resource.Stat, want, applied int) string {
	switch {
	case applied == 0 && want > 0:
		return fmt.Sprintf("%s's %s won't go any higher!", name, stat)
	case applied == 0:
		return fmt.Sprintf("%s's %s won't go any lower!", name, stat)
	case applied >= 2:
		return fmt.Sprintf("%s's %s rose sharply!", name, stat)
	case applied > 0:
		return fmt.Sprintf("%s's %s rose!", name, stat)
	case applied <= -2:
		return fmt.Sprintf("%s's %s harshly fell!", name, stat)
	}
	return fmt.Sprintf("%s's %s fell!", name, stat)
}

// SubmitSwitch brings slot into the active position. A switch forced by a
// faint does not consume the turn; a voluntary one does.
func (s *Session) SubmitSwitch(side Side, slot int) (*Result, error) {
	if s.Finished() {
		return nil, Errorf(CodeBattleFinished, "battle %s is over", s.id)
	}
	if !side.Valid() || s.state.Side != side {
		return nil, s.checkActor(side, s.state.Phase)
	}
	forced := s.state.Phase == PhaseAwaitingSwitch
	team := s.teams[side]
	if err := team.CanSwitchTo(slot); err != nil {
		return nil, err
	}

	from := len(s.log)
	s.lastSeen = s.now()
	team.swap(slot)
	in := team.Active()
	e := newEntry(LogSwitched, side, fmt.Sprintf("%s sent out %s!", s.names[side], in.Name))
	e.Creature = in.Name
	s.appendEntry(e)

	if forced {
		s.state = AwaitingAction(side)
	} else {
		s.state = AwaitingAction(s.passTurn(side))
	}
	return s.result(from), nil
}

// Forfeit ends the battle in favor of the other side. It is accepted
// regardless of whose turn it is.
func (s *Session) Forfeit(side Side, reason EndReason) (*Result, error) {
	if s.Finished() {
		return nil, Errorf(CodeBattleFinished, "battle %s is over", s.id)
	}
	if !side.Valid() {
		return nil, Errorf(CodeBadRequest, "unknown side")
	}
	if reason == "" {
		reason = EndForfeit
	}
	from := len(s.log)
	s.lastSeen = s.now()
	s.finish(side.Opponent(), reason)
	return s.result(from), nil
}

func (s *Session) finish(winner Side, reason EndReason) {
	s.state = Finished(winner)
	s.reason = reason
	s.appendEntry(newEntry(LogWin, winner, s.names[winner]+" wins!"))
}

// AppendChat records a chat line from side.
func (s *Session) AppendChat(side Side, text string) (LogEntry, error) {
	if s.Finished() {
		return LogEntry{}, Errorf(CodeBattleFinished, "battle %s is over", s.id)
	}
	if !side.Valid() {
		return LogEntry{}, Errorf(CodeBadRequest, "unknown side")
	}
	s.appendEntry(newEntry(LogChat, side, text))
	return s.log[len(s.log)-1], nil
}
