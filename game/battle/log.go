package battle

import (
	"time"

	"github.com/google/uuid"
)

// Side indexes the two participants of a session.
type Side int

const (
	SideNone Side = -1
	SideA    Side = 0
	SideB    Side = 1
)

func (s Side) Opponent() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	}
	return SideNone
}

func (s Side) Valid() bool { return s == SideA || s == SideB }

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	}
	return "-"
}

// LogKind tags a battle log entry.
type LogKind string

const (
	LogStart         LogKind = "start"
	LogMoveUsed      LogKind = "move-used"
	LogMissed        LogKind = "missed"
	LogEffectiveness LogKind = "effectiveness"
	LogCritical      LogKind = "critical"
	LogDamageApplied LogKind = "damage-applied"
	LogStatChanged   LogKind = "stat-changed"
	LogFainted       LogKind = "fainted"
	LogSwitched      LogKind = "switched"
	LogChat          LogKind = "chat"
	LogWin           LogKind = "win"
)

// LogEntry is one append-only record of the battle log. Seq starts at 1.
type LogEntry struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Kind      LogKind   `json:"type"`
	Side      Side      `json:"side"`
	Message   string    `json:"message"`
	Creature  string    `json:"creature,omitempty"`
	MoveID    int       `json:"move_id,omitempty"`
	Damage    int       `json:"damage,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newEntry(kind LogKind, side Side, msg string) LogEntry {
	return LogEntry{
		ID:      uuid.New().String(),
		Kind:    kind,
		Side:    side,
		Message: msg,
	}
}

func effectivenessText(eff float64, defender string) string {
	switch {
	case eff == 0:
		return "It doesn't affect " + defender + "..."
	case eff > 1:
		return "It's super effective!"
	case eff < 1:
		return "It's not very effective..."
	}
	return ""
}
