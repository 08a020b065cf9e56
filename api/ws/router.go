package ws

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	mw "github.com/kasuganosora/creaturebattle/server/middleware"
	"go.uber.org/zap"
)

// HandlerFunc processes a decoded WS message payload. A returned *battle.Error
// is reported to the sender as battle-error; anything else is only logged.
type HandlerFunc func(ctx context.Context, session *player.PlayerSession, payload json.RawMessage) error

// Router dispatches incoming WS packets to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	limiter  *mw.LimiterSet
	logger   *zap.Logger
}

// NewRouter creates a new Router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Limit caps how many packets each participant may send; excess packets are
// dropped with a BadRequest battle-error.
func (r *Router) Limit(l *mw.LimiterSet) { r.limiter = l }

// Forget releases per-participant state held by the router.
func (r *Router) Forget(participantID string) {
	if r.limiter != nil {
		r.limiter.Forget(participantID)
	}
}

// On registers a HandlerFunc for the given message type.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw bytes, validates seq, and invokes the appropriate handler.
func (r *Router) Dispatch(s *player.PlayerSession, raw []byte) {
	var pkt player.Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet",
			zap.String("participant_id", s.ParticipantID),
			zap.Error(err))
		reject(s, battle.Errorf(battle.CodeBadRequest, "malformed packet"))
		return
	}

	// Monotonic seq check (anti-replay). Seq == 0 means no seq tracking.
	if pkt.Seq != 0 && pkt.Seq <= s.LastSeq {
		r.logger.Warn("replayed or out-of-order packet",
			zap.String("participant_id", s.ParticipantID),
			zap.Uint64("seq", pkt.Seq),
			zap.Uint64("last_seq", s.LastSeq))
		return
	}
	if pkt.Seq != 0 {
		s.LastSeq = pkt.Seq
	}

	if r.limiter != nil && !r.limiter.Allow(s.ParticipantID) {
		reject(s, battle.Errorf(battle.CodeBadRequest, "too many messages"))
		return
	}

	s.TraceID = uuid.NewString()
	ctx := context.WithValue(context.Background(), ctxKeyTraceID{}, s.TraceID)

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Debug("unhandled message type",
			zap.String("type", pkt.Type),
			zap.String("participant_id", s.ParticipantID))
		reject(s, battle.Errorf(battle.CodeBadRequest, "unknown message type %q", pkt.Type))
		return
	}

	if err := r.call(ctx, fn, s, pkt); err != nil {
		var be *battle.Error
		if errors.As(err, &be) {
			reject(s, be)
			return
		}
		r.logger.Error("handler error",
			zap.String("type", pkt.Type),
			zap.String("participant_id", s.ParticipantID),
			zap.String("trace_id", s.TraceID),
			zap.Error(err))
	}
}

func (r *Router) call(ctx context.Context, fn HandlerFunc, s *player.PlayerSession, pkt player.Packet) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in ws handler",
				zap.String("type", pkt.Type),
				zap.String("participant_id", s.ParticipantID),
				zap.String("trace_id", s.TraceID),
				zap.Any("recover", rec),
				zap.String("stack", string(debug.Stack())))
			err = errors.New("handler panic")
		}
	}()
	return fn(ctx, s, pkt.Payload)
}

func reject(s *player.PlayerSession, be *battle.Error) {
	msg := be.Message
	if msg == "" {
		msg = be.Error()
	}
	s.SendJSON(match.EventBattleError, match.ErrorView{Code: be.Code, Message: msg})
}

type ctxKeyTraceID struct{}

// TraceIDFromCtx extracts the trace ID from a handler context.
func TraceIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTraceID{}).(string); ok {
		return v
	}
	return ""
}
