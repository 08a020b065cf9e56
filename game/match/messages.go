package match

import (
	"time"

	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	"github.com/kasuganosora/creaturebattle/server/game/roster"
)

// Outbound event names.
const (
	EventWaiting      = "waiting"
	EventBattleStart  = "battle-start"
	EventBattleUpdate = "battle-update"
	EventBattleError  = "battle-error"
	EventBattleEnd    = "battle-end"
	EventChat         = "chat"
)

// Mode selects the opponent for a join.
type Mode string

const (
	ModePvP Mode = "pvp"
	ModeAI  Mode = "ai"
)

// Participant is a connected client the manager can address.
type Participant interface {
	ID() string
	Send(pkt *player.Packet)
}

// Msg is anything the manager's loop accepts.
type Msg interface{ isMatchMsg() }

// JoinMsg enqueues From or pairs it with the head of the queue.
type JoinMsg struct {
	From    Participant
	Name    string
	Mode    Mode
	Request roster.Request
}

// LeaveMsg dequeues or forfeits. Disconnect suppresses the NotConnected reply.
type LeaveMsg struct {
	From       Participant
	Disconnect bool
}

// MoveMsg relays a use-move. BattleID may be empty.
type MoveMsg struct {
	From     Participant
	BattleID string
	MoveID   int
	Slot     int
}

// SwitchMsg relays a switch from FromSlot (always the active slot, 0) to ToSlot.
type SwitchMsg struct {
	From     Participant
	BattleID string
	FromSlot int
	ToSlot   int
}

// ChatMsg relays a chat line.
type ChatMsg struct {
	From     Participant
	BattleID string
	Text     string
}

// SweepMsg forfeits battles whose expected actor has been idle too long.
type SweepMsg struct{ Now time.Time }

// StatsMsg asks for a snapshot. Reply should be buffered; the loop never
// waits on it.
type StatsMsg struct{ Reply chan Stats }

func (JoinMsg) isMatchMsg()   {}
func (LeaveMsg) isMatchMsg()  {}
func (MoveMsg) isMatchMsg()   {}
func (SwitchMsg) isMatchMsg() {}
func (ChatMsg) isMatchMsg()   {}
func (SweepMsg) isMatchMsg()  {}
func (StatsMsg) isMatchMsg()  {}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Battles   int `json:"battles"`
	AIBattles int `json:"ai_battles"`
	Waiting   int `json:"waiting"`
	Finished  int `json:"finished"`
}

// Outcome is handed to the OutcomeSink once per finished battle.
type Outcome struct {
	BattleID   string           `json:"battle_id"`
	WinnerID   string           `json:"winner_id"`
	WinnerName string           `json:"winner_name"`
	LoserID    string           `json:"loser_id"`
	LoserName  string           `json:"loser_name"`
	Reason     battle.EndReason `json:"reason"`
	Turns      int              `json:"turns"`
	VsAI       bool             `json:"vs_ai"`
	FinishedAt time.Time        `json:"finished_at"`
}

// OutcomeSink consumes finished battles. Record must not block the loop.
type OutcomeSink interface {
	Record(o Outcome)
}
