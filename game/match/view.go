package match

import (
	"time"

	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/resource"
)

// MoveView is a move as shown to clients.
type MoveView struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Type     resource.Type `json:"type"`
	Power    int           `json:"power"`
	Accuracy int           `json:"accuracy"`
	PP       int           `json:"pp"`
}

// CombatantView is one team member from a recipient's perspective.
type CombatantView struct {
	Slot      int             `json:"slot"`
	SpeciesID int             `json:"species_id"`
	Name      string          `json:"name"`
	Level     int             `json:"level"`
	Types     []resource.Type `json:"types"`
	HP        int             `json:"hp"`
	MaxHP     int             `json:"max_hp"`
	Stats     resource.Stats  `json:"stats"`
	Boosts    map[string]int  `json:"boosts,omitempty"`
	Volatile  battle.Volatile `json:"volatile"`
	Moves     []MoveView      `json:"moves"`
	Shiny     bool            `json:"shiny,omitempty"`
	Fainted   bool            `json:"fainted"`
	Active    bool            `json:"active"`
}

// LogView is a log entry with its side rewritten relative to the recipient.
type LogView struct {
	ID        string         `json:"id"`
	Seq       int            `json:"seq"`
	Type      battle.LogKind `json:"type"`
	Actor     string         `json:"actor,omitempty"` // "player", "opponent" or empty
	Message   string         `json:"message"`
	Creature  string         `json:"creature,omitempty"`
	MoveID    int            `json:"move_id,omitempty"`
	Damage    int            `json:"damage,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// BattleView is the payload of battle-start and battle-update.
type BattleView struct {
	BattleID      string          `json:"battle_id"`
	Turn          int             `json:"turn"`
	Phase         battle.Phase    `json:"phase"`
	CurrentPlayer string          `json:"current_player,omitempty"`
	YourTurn      bool            `json:"your_turn"`
	MustSwitch    bool            `json:"must_switch"`
	Weather       battle.Weather  `json:"weather"`
	OpponentID    string          `json:"opponent_id"`
	OpponentName  string          `json:"opponent_name"`
	PlayerTeam    []CombatantView `json:"player_team"`
	OpponentTeam  []CombatantView `json:"opponent_team"`
	Logs          []LogView       `json:"logs"`
}

// EndView is the payload of battle-end.
type EndView struct {
	BattleID   string           `json:"battle_id"`
	WinnerID   string           `json:"winner_id"`
	WinnerName string           `json:"winner_name"`
	YouWon     bool             `json:"you_won"`
	Reason     battle.EndReason `json:"reason"`
	Turn       int              `json:"turn"`
	Logs       []LogView        `json:"logs"`
}

// ChatView is the payload of a relayed chat line.
type ChatView struct {
	BattleID  string    `json:"battle_id"`
	From      string    `json:"from"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorView is the payload of battle-error.
type ErrorView struct {
	Code    battle.Code `json:"code"`
	Message string      `json:"message"`
}

// WaitingView is the payload sent to a queued participant.
type WaitingView struct {
	Message  string `json:"message"`
	Position int    `json:"position"`
}

func viewTeam(t *battle.Team) []CombatantView {
	out := make([]CombatantView, len(t.Members))
	for i, c := range t.Members {
		moves := make([]MoveView, len(c.Moves))
		for j, m := range c.Moves {
			moves[j] = MoveView{ID: m.ID, Name: m.Name, Type: m.Type, Power: m.Power, Accuracy: m.Accuracy, PP: m.PP}
		}
		var boosts map[string]int
		for s, v := range c.Boosts() {
			if v == 0 {
				continue
			}
			if boosts == nil {
				boosts = make(map[string]int)
			}
			boosts[resource.Stat(s).String()] = v
		}
		out[i] = CombatantView{
			Slot:      i,
			SpeciesID: c.SpeciesID,
			Name:      c.Name,
			Level:     c.Level,
			Types:     c.Types,
			HP:        c.HP(),
			MaxHP:     c.MaxHP(),
			Stats:     c.Stats,
			Boosts:    boosts,
			Volatile:  c.Volatile,
			Moves:     moves,
			Shiny:     c.Shiny,
			Fainted:   c.Fainted(),
			Active:    i == 0,
		}
	}
	return out
}

func viewLogs(entries []battle.LogEntry, side battle.Side) []LogView {
	out := make([]LogView, len(entries))
	for i, e := range entries {
		actor := ""
		switch e.Side {
		case side:
			actor = "player"
		case side.Opponent():
			actor = "opponent"
		}
		out[i] = LogView{
			ID:        e.ID,
			Seq:       e.Seq,
			Type:      e.Kind,
			Actor:     actor,
			Message:   e.Message,
			Creature:  e.Creature,
			MoveID:    e.MoveID,
			Damage:    e.Damage,
			Timestamp: e.Timestamp,
		}
	}
	return out
}

// BuildView renders s for the participant on side, attaching entries.
// Teams are stored neutrally by side; mirroring happens only here.
func BuildView(s *battle.Session, side battle.Side, entries []battle.LogEntry) BattleView {
	st := s.State()
	v := BattleView{
		BattleID:     s.ID(),
		Turn:         s.Turn(),
		Phase:        st.Phase,
		Weather:      s.Weather(),
		OpponentID:   s.Participant(side.Opponent()),
		OpponentName: s.Name(side.Opponent()),
		PlayerTeam:   viewTeam(s.Team(side)),
		OpponentTeam: viewTeam(s.Team(side.Opponent())),
		Logs:         viewLogs(entries, side),
	}
	if st.Phase != battle.PhaseFinished {
		v.CurrentPlayer = s.Participant(st.Side)
		v.YourTurn = st.Side == side
		v.MustSwitch = v.YourTurn && st.Phase == battle.PhaseAwaitingSwitch
	}
	return v
}

// BuildEndView renders the terminal payload for side.
func BuildEndView(s *battle.Session, side battle.Side) EndView {
	winner, _ := s.Winner()
	return EndView{
		BattleID:   s.ID(),
		WinnerID:   s.Participant(winner),
		WinnerName: s.Name(winner),
		YouWon:     winner == side,
		Reason:     s.Reason(),
		Turn:       s.Turn(),
		Logs:       viewLogs(s.Log(), side),
	}
}
