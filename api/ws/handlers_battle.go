package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	"github.com/kasuganosora/creaturebattle/server/game/roster"
	"go.uber.org/zap"
)

const (
	submitTimeout = 2 * time.Second
	maxChatLen    = 280
)

// Submitter is the part of match.Manager the handlers need.
type Submitter interface {
	Submit(ctx context.Context, msg match.Msg) error
}

// BattleHandlers translates battle packets into match messages.
type BattleHandlers struct {
	mgr    Submitter
	logger *zap.Logger
}

// NewBattleHandlers creates a new BattleHandlers.
func NewBattleHandlers(mgr Submitter, logger *zap.Logger) *BattleHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BattleHandlers{mgr: mgr, logger: logger}
}

// RegisterHandlers registers all battle handlers on the router.
func (bh *BattleHandlers) RegisterHandlers(r *Router) {
	r.On("ping", bh.HandlePing)
	r.On("join", bh.HandleJoin)
	r.On("leave", bh.HandleLeave)
	r.On("use-move", bh.HandleUseMove)
	r.On("switch", bh.HandleSwitch)
	r.On("chat", bh.HandleChat)
}

func (bh *BattleHandlers) submit(ctx context.Context, msg match.Msg) error {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()
	if err := bh.mgr.Submit(ctx, msg); err != nil {
		if errors.Is(err, match.ErrStopped) {
			return battle.Errorf(battle.CodeNotConnected, "server is shutting down")
		}
		return fmt.Errorf("submit %T: %w", msg, err)
	}
	return nil
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return battle.Errorf(battle.CodeBadRequest, "undecodable payload: %v", err)
	}
	return nil
}

// ------------------------------------------------------------------ ping

type pingPayload struct {
	TS int64 `json:"ts"`
}

// HandlePing answers client heartbeats.
func (bh *BattleHandlers) HandlePing(_ context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var p pingPayload
	_ = json.Unmarshal(raw, &p)
	s.SendJSON("pong", map[string]int64{"ts": p.TS, "server_ts": time.Now().UnixMilli()})
	return nil
}

// ------------------------------------------------------------------ join / leave

type joinReq struct {
	Mode   match.Mode     `json:"mode,omitempty"`
	TeamID string         `json:"team_id,omitempty"`
	Team   []roster.Entry `json:"team,omitempty"`
}

// HandleJoin queues the sender or pairs them with a waiting opponent.
func (bh *BattleHandlers) HandleJoin(ctx context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var req joinReq
	if err := decode(raw, &req); err != nil {
		return err
	}
	return bh.submit(ctx, match.JoinMsg{
		From:    s,
		Name:    s.Name,
		Mode:    req.Mode,
		Request: roster.Request{TeamID: req.TeamID, Team: req.Team},
	})
}

// HandleLeave dequeues or forfeits.
func (bh *BattleHandlers) HandleLeave(ctx context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	return bh.submit(ctx, match.LeaveMsg{From: s})
}

// ------------------------------------------------------------------ actions

type useMoveReq struct {
	BattleID string `json:"battle_id,omitempty"`
	MoveID   int    `json:"move_id"`
	Slot     int    `json:"slot"`
}

// HandleUseMove relays a move choice.
func (bh *BattleHandlers) HandleUseMove(ctx context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var req useMoveReq
	if err := decode(raw, &req); err != nil {
		return err
	}
	if req.MoveID <= 0 {
		return battle.Errorf(battle.CodeInvalidMove, "move_id is required")
	}
	return bh.submit(ctx, match.MoveMsg{From: s, BattleID: req.BattleID, MoveID: req.MoveID, Slot: req.Slot})
}

type switchReq struct {
	BattleID string `json:"battle_id,omitempty"`
	FromSlot int    `json:"from_slot"`
	ToSlot   *int   `json:"to_slot"`
}

// HandleSwitch relays a switch.
func (bh *BattleHandlers) HandleSwitch(ctx context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var req switchReq
	if err := decode(raw, &req); err != nil {
		return err
	}
	if req.ToSlot == nil {
		return battle.Errorf(battle.CodeInvalidSlot, "to_slot is required")
	}
	return bh.submit(ctx, match.SwitchMsg{From: s, BattleID: req.BattleID, FromSlot: req.FromSlot, ToSlot: *req.ToSlot})
}

// ------------------------------------------------------------------ chat

type chatReq struct {
	BattleID string `json:"battle_id,omitempty"`
	Message  string `json:"message"`
}

// HandleChat relays a chat line, exactly as sent, to both members of the
// sender's battle. Lines over maxChatLen runes are refused, not cut.
func (bh *BattleHandlers) HandleChat(ctx context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var req chatReq
	if err := decode(raw, &req); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(req.Message); n > maxChatLen {
		return battle.Errorf(battle.CodeBadRequest, "chat message too long: %d > %d", n, maxChatLen)
	}
	return bh.submit(ctx, match.ChatMsg{From: s, BattleID: req.BattleID, Text: req.Message})
}
