// Package match pairs connected participants into battles and mediates every
// action through the battle state machine. All registry state is owned by a
// single loop goroutine; nothing here takes a lock.
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	"github.com/kasuganosora/creaturebattle/server/game/roster"
)

// ErrStopped is returned by Submit once Run has exited.
var ErrStopped = errors.New("match: manager stopped")

// AIName is the display name of the policy-driven opponent.
const AIName = "Rival"

const aiPrefix = "ai:"

// IsAI reports whether a participant id belongs to a policy-driven side.
func IsAI(participantID string) bool { return strings.HasPrefix(participantID, aiPrefix) }

// Config configures a Manager.
type Config struct {
	Roster      *roster.Builder
	Rand        battle.Rand // shared by team building, coin flips and damage rolls
	Weather     battle.Weather
	IdleForfeit time.Duration // 0 disables idle sweeps
	Sink        OutcomeSink
	NewPolicy   func(rng battle.Rand) battle.Policy // nil = heuristic
	Now         func() time.Time
	InboxSize   int
	Logger      *zap.Logger
}

type waiter struct {
	p        Participant
	name     string
	team     *battle.Team
	joinedAt time.Time
}

type room struct {
	session *battle.Session
	members [2]Participant // nil on the AI side
	local   *battle.LocalBattle
}

func (r *room) member(side battle.Side) Participant {
	if !side.Valid() {
		return nil
	}
	return r.members[side]
}

// Manager is the session registry and FIFO waiting queue.
type Manager struct {
	cfg    Config
	logger *zap.Logger
	inbox  chan Msg
	done   chan struct{}

	waiting       []*waiter
	battles       map[string]*room
	byParticipant map[string]*room
	finished      int
}

// NewManager creates a Manager. Call Run to start processing the inbox, or
// drive Handle directly.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rand == nil {
		cfg.Rand = battle.NewRand(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewPolicy == nil {
		cfg.NewPolicy = func(rng battle.Rand) battle.Policy { return battle.NewHeuristicPolicy(rng) }
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	return &Manager{
		cfg:           cfg,
		logger:        cfg.Logger,
		inbox:         make(chan Msg, cfg.InboxSize),
		done:          make(chan struct{}),
		battles:       make(map[string]*room),
		byParticipant: make(map[string]*room),
	}
}

// Run processes messages one at a time until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.done)
	m.logger.Info("match manager started")
	for {
		select {
		case <-ctx.Done():
			// Leaves queued during shutdown still end their battles.
			for drained := false; !drained; {
				select {
				case msg := <-m.inbox:
					m.handleSafe(msg)
				default:
					drained = true
				}
			}
			m.logger.Info("match manager stopped",
				zap.Int("battles", len(m.battles)),
				zap.Int("waiting", len(m.waiting)))
			return ctx.Err()
		case msg := <-m.inbox:
			m.handleSafe(msg)
		}
	}
}

// Submit queues msg for the loop.
func (m *Manager) Submit(ctx context.Context, msg Msg) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}
	select {
	case m.inbox <- msg:
		return nil
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats asks the running loop for a snapshot.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := m.Submit(ctx, StatsMsg{Reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-m.done:
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (m *Manager) handleSafe(msg Msg) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in match handler",
				zap.Any("panic", r),
				zap.String("msg", fmt.Sprintf("%T", msg)))
		}
	}()
	m.Handle(msg)
}

// Handle processes one message synchronously. It must only be called from
// the goroutine that owns the manager.
func (m *Manager) Handle(msg Msg) {
	switch msg := msg.(type) {
	case JoinMsg:
		m.join(msg)
	case LeaveMsg:
		m.leave(msg)
	case MoveMsg:
		m.move(msg)
	case SwitchMsg:
		m.switchSlot(msg)
	case ChatMsg:
		m.chat(msg)
	case SweepMsg:
		m.sweep(msg.Now)
	case StatsMsg:
		if msg.Reply == nil {
			return
		}
		// Reply must be buffered; a reader that gave up must not stall the loop.
		select {
		case msg.Reply <- m.snapshot():
		default:
			m.logger.Warn("stats reply dropped")
		}
	default:
		m.logger.Warn("unknown match message", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (m *Manager) snapshot() Stats {
	st := Stats{Battles: len(m.battles), Waiting: len(m.waiting), Finished: m.finished}
	for _, r := range m.battles {
		if r.local != nil {
			st.AIBattles++
		}
	}
	return st
}

// ---------- join / leave ----------

func (m *Manager) queued(id string) int {
	for i, w := range m.waiting {
		if w.p.ID() == id {
			return i
		}
	}
	return -1
}

func (m *Manager) join(msg JoinMsg) {
	if msg.From == nil {
		return
	}
	id := msg.From.ID()
	if m.queued(id) >= 0 {
		m.sendError(msg.From, battle.Errorf(battle.CodeBadRequest, "already waiting for an opponent"))
		return
	}
	if _, ok := m.byParticipant[id]; ok {
		m.sendError(msg.From, battle.Errorf(battle.CodeBadRequest, "already in a battle"))
		return
	}
	if msg.Mode != "" && msg.Mode != ModePvP && msg.Mode != ModeAI {
		m.sendError(msg.From, battle.Errorf(battle.CodeBadRequest, "unknown mode %q", msg.Mode))
		return
	}
	team, err := m.cfg.Roster.Build(msg.Request, m.cfg.Rand)
	if err != nil {
		m.sendError(msg.From, err)
		return
	}
	name := msg.Name
	if name == "" {
		name = id
	}
	self := &waiter{p: msg.From, name: name, team: team, joinedAt: m.cfg.Now()}

	switch msg.Mode {
	case ModeAI:
		m.startAI(self)
	default:
		if len(m.waiting) == 0 {
			m.waiting = append(m.waiting, self)
			m.send(msg.From, EventWaiting, WaitingView{Message: "Waiting for an opponent...", Position: 1})
			m.logger.Debug("participant queued", zap.String("participant", id))
			return
		}
		head := m.waiting[0]
		m.waiting[0] = nil
		m.waiting = m.waiting[1:]
		m.startPvP(head, self)
	}
}

func (m *Manager) newSession(a *waiter, bID, bName string, bTeam *battle.Team) (*battle.Session, error) {
	return battle.NewSession(battle.Config{
		Participants: [2]string{a.p.ID(), bID},
		Names:        [2]string{a.name, bName},
		Teams:        [2]*battle.Team{a.team, bTeam},
		Weather:      m.cfg.Weather,
		Rand:         m.cfg.Rand,
		Now:          m.cfg.Now,
	})
}

func (m *Manager) startPvP(a, b *waiter) {
	s, err := m.newSession(a, b.p.ID(), b.name, b.team)
	if err != nil {
		m.logger.Error("create battle failed", zap.Error(err))
		m.sendError(b.p, battle.Errorf(battle.CodeBadRequest, "%v", err))
		// the head keeps its place
		m.waiting = append([]*waiter{a}, m.waiting...)
		return
	}
	r := &room{session: s, members: [2]Participant{a.p, b.p}}
	m.register(r)
	for side := battle.SideA; side <= battle.SideB; side++ {
		m.send(r.members[side], EventBattleStart, BuildView(s, side, s.Log()))
	}
	m.logger.Info("battle started",
		zap.String("battle_id", s.ID()),
		zap.String("a", a.p.ID()),
		zap.String("b", b.p.ID()),
		zap.Duration("waited", m.cfg.Now().Sub(a.joinedAt)))
}

func (m *Manager) startAI(h *waiter) {
	aiTeam, err := m.cfg.Roster.Build(roster.Request{}, m.cfg.Rand)
	if err != nil {
		m.sendError(h.p, err)
		return
	}
	s, err := m.newSession(h, aiPrefix+h.p.ID(), AIName, aiTeam)
	if err != nil {
		m.sendError(h.p, battle.Errorf(battle.CodeBadRequest, "%v", err))
		return
	}
	r := &room{
		session: s,
		members: [2]Participant{h.p, nil},
		local:   battle.NewLocalBattle(s, battle.SideA, m.cfg.NewPolicy(m.cfg.Rand)),
	}
	m.register(r)
	m.send(h.p, EventBattleStart, BuildView(s, battle.SideA, s.Log()))
	m.logger.Info("ai battle started", zap.String("battle_id", s.ID()), zap.String("participant", h.p.ID()))

	// the policy may hold the opening move
	entries, err := r.local.RunAI()
	if err != nil {
		m.logger.Error("ai opening failed", zap.String("battle_id", s.ID()), zap.Error(err))
	}
	if len(entries) > 0 {
		m.broadcastUpdate(r, entries)
	}
	if s.Finished() {
		m.end(r)
	}
}

func (m *Manager) register(r *room) {
	m.battles[r.session.ID()] = r
	for _, p := range r.members {
		if p != nil {
			m.byParticipant[p.ID()] = r
		}
	}
}

func (m *Manager) unregister(r *room) {
	delete(m.battles, r.session.ID())
	for _, p := range r.members {
		if p != nil && m.byParticipant[p.ID()] == r {
			delete(m.byParticipant, p.ID())
		}
	}
}

func (m *Manager) leave(msg LeaveMsg) {
	if msg.From == nil {
		return
	}
	id := msg.From.ID()
	// Entries are matched by connection, not just id: a displaced socket's
	// late disconnect must not touch what its replacement has since done.
	if i := m.queued(id); i >= 0 && m.waiting[i].p == msg.From {
		m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
		m.logger.Debug("participant dequeued", zap.String("participant", id), zap.Bool("disconnect", msg.Disconnect))
		return
	}
	r, side, ok := m.owned(msg.From)
	if !ok {
		if msg.Disconnect {
			m.logger.Debug("stale disconnect ignored", zap.String("participant", id))
		} else {
			m.sendError(msg.From, battle.Errorf(battle.CodeNotConnected, "not in a battle"))
		}
		return
	}
	if _, err := r.session.Forfeit(side, battle.EndForfeit); err != nil {
		m.logger.Warn("forfeit rejected", zap.String("battle_id", r.session.ID()), zap.Error(err))
	}
	m.end(r)
}

// owned returns the room in which p itself, not merely its id, holds a side.
func (m *Manager) owned(p Participant) (*room, battle.Side, bool) {
	r, ok := m.byParticipant[p.ID()]
	if !ok {
		return nil, battle.SideNone, false
	}
	side, ok := r.session.SideOf(p.ID())
	if !ok || r.member(side) != p {
		return nil, battle.SideNone, false
	}
	return r, side, true
}

// ---------- actions ----------

// resolve finds the room and side for an action. An explicit battle id that
// is unknown or not the sender's yields SessionNotFound; no battle at all
// yields NotConnected.
func (m *Manager) resolve(p Participant, battleID string) (*room, battle.Side, error) {
	id := p.ID()
	if battleID != "" {
		r, ok := m.battles[battleID]
		if !ok {
			return nil, battle.SideNone, battle.Errorf(battle.CodeSessionNotFound, "battle %s not found", battleID)
		}
		side, ok := r.session.SideOf(id)
		if !ok || r.member(side) != p {
			return nil, battle.SideNone, battle.Errorf(battle.CodeSessionNotFound, "battle %s not found", battleID)
		}
		return r, side, nil
	}
	r, side, ok := m.owned(p)
	if !ok {
		return nil, battle.SideNone, battle.Errorf(battle.CodeNotConnected, "not in a battle")
	}
	return r, side, nil
}

func (m *Manager) move(msg MoveMsg) {
	if msg.From == nil {
		return
	}
	r, side, err := m.resolve(msg.From, msg.BattleID)
	if err != nil {
		m.sendError(msg.From, err)
		return
	}
	if msg.Slot != 0 {
		m.sendError(msg.From, battle.Errorf(battle.CodeInvalidSlot, "only the active slot can act"))
		return
	}
	var entries []battle.LogEntry
	if r.local != nil {
		entries, err = r.local.Move(msg.MoveID)
	} else {
		var res *battle.Result
		if res, err = r.session.SubmitMove(side, msg.MoveID); err == nil {
			entries = res.Entries
		}
	}
	m.applied(r, msg.From, entries, err)
}

func (m *Manager) switchSlot(msg SwitchMsg) {
	if msg.From == nil {
		return
	}
	r, side, err := m.resolve(msg.From, msg.BattleID)
	if err != nil {
		m.sendError(msg.From, err)
		return
	}
	if msg.FromSlot != 0 {
		m.sendError(msg.From, battle.Errorf(battle.CodeInvalidSlot, "can only switch out the active slot"))
		return
	}
	var entries []battle.LogEntry
	if r.local != nil {
		entries, err = r.local.Switch(msg.ToSlot)
	} else {
		var res *battle.Result
		if res, err = r.session.SubmitSwitch(side, msg.ToSlot); err == nil {
			entries = res.Entries
		}
	}
	m.applied(r, msg.From, entries, err)
}

// applied fans out the result of an action. A rule failure with no entries
// goes privately to the submitter; partial AI progress is still broadcast.
func (m *Manager) applied(r *room, from Participant, entries []battle.LogEntry, err error) {
	if err != nil && len(entries) == 0 {
		m.sendError(from, err)
		return
	}
	if err != nil {
		m.logger.Error("ai turn failed", zap.String("battle_id", r.session.ID()), zap.Error(err))
	}
	m.broadcastUpdate(r, entries)
	if r.session.Finished() {
		m.end(r)
	}
}

func (m *Manager) chat(msg ChatMsg) {
	if msg.From == nil {
		return
	}
	r, side, err := m.resolve(msg.From, msg.BattleID)
	if err != nil {
		m.sendError(msg.From, err)
		return
	}
	if msg.Text == "" {
		m.sendError(msg.From, battle.Errorf(battle.CodeBadRequest, "empty chat message"))
		return
	}
	e, err := r.session.AppendChat(side, msg.Text)
	if err != nil {
		m.sendError(msg.From, err)
		return
	}
	view := ChatView{
		BattleID:  r.session.ID(),
		From:      msg.From.ID(),
		Name:      r.session.Name(side),
		Message:   msg.Text,
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
	}
	for _, p := range r.members {
		m.send(p, EventChat, view)
	}
}

// ---------- idle sweep ----------

func (m *Manager) sweep(now time.Time) {
	if m.cfg.IdleForfeit <= 0 {
		return
	}
	if now.IsZero() {
		now = m.cfg.Now()
	}
	for _, r := range m.battles {
		s := r.session
		st := s.State()
		if st.Phase == battle.PhaseFinished || r.member(st.Side) == nil {
			continue
		}
		idle := now.Sub(s.LastActivity())
		if idle < m.cfg.IdleForfeit {
			continue
		}
		if _, err := s.Forfeit(st.Side, battle.EndIdle); err != nil {
			continue
		}
		m.logger.Info("idle forfeit",
			zap.String("battle_id", s.ID()),
			zap.String("participant", s.Participant(st.Side)),
			zap.Duration("idle", idle))
		m.end(r)
	}
}

// ---------- fan-out ----------

func (m *Manager) broadcastUpdate(r *room, entries []battle.LogEntry) {
	for side := battle.SideA; side <= battle.SideB; side++ {
		if p := r.members[side]; p != nil {
			m.send(p, EventBattleUpdate, BuildView(r.session, side, entries))
		}
	}
}

// end broadcasts battle-end, reports the outcome and removes the room.
func (m *Manager) end(r *room) {
	s := r.session
	winner, ok := s.Winner()
	if !ok {
		return
	}
	for side := battle.SideA; side <= battle.SideB; side++ {
		if p := r.members[side]; p != nil {
			m.send(p, EventBattleEnd, BuildEndView(s, side))
		}
	}
	m.unregister(r)
	m.finished++

	loser := winner.Opponent()
	o := Outcome{
		BattleID:   s.ID(),
		WinnerID:   s.Participant(winner),
		WinnerName: s.Name(winner),
		LoserID:    s.Participant(loser),
		LoserName:  s.Name(loser),
		Reason:     s.Reason(),
		Turns:      s.Turn(),
		VsAI:       r.local != nil,
		FinishedAt: m.cfg.Now(),
	}
	m.logger.Info("battle finished",
		zap.String("battle_id", o.BattleID),
		zap.String("winner", o.WinnerID),
		zap.String("reason", string(o.Reason)),
		zap.Int("turns", o.Turns))
	if m.cfg.Sink != nil {
		m.cfg.Sink.Record(o)
	}
}

func (m *Manager) send(p Participant, typ string, v interface{}) {
	if p == nil {
		return
	}
	pkt, err := player.NewPacket(typ, v)
	if err != nil {
		m.logger.Error("marshal packet", zap.String("type", typ), zap.Error(err))
		return
	}
	p.Send(pkt)
}

func (m *Manager) sendError(p Participant, err error) {
	code := battle.CodeOf(err)
	if code == "" {
		code = battle.CodeBadRequest
	}
	msg := err.Error()
	var be *battle.Error
	if errors.As(err, &be) && be.Message != "" {
		msg = be.Message
	}
	m.send(p, EventBattleError, ErrorView{Code: code, Message: msg})
}
