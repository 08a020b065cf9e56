package player

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadlineS = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewPacket marshals v as the payload of a typed packet.
func NewPacket(typ string, v interface{}) (*Packet, error) {
	if v == nil {
		return &Packet{Type: typ}, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Packet{Type: typ, Payload: payload}, nil
}

// PlayerSession is one participant's WebSocket connection.
type PlayerSession struct {
	ParticipantID string
	Name          string

	Conn        *websocket.Conn
	SendChan    chan []byte
	Done        chan struct{}
	TraceID     string
	LastSeq     uint64
	ConnectedAt time.Time

	mu     sync.Mutex
	logger *zap.Logger
}

// NewPlayerSession creates a new PlayerSession with write goroutine started.
func NewPlayerSession(participantID, name string, conn *websocket.Conn, logger *zap.Logger) *PlayerSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PlayerSession{
		ParticipantID: participantID,
		Name:          name,
		Conn:          conn,
		SendChan:      make(chan []byte, sendChanBuf),
		Done:          make(chan struct{}),
		ConnectedAt:   time.Now(),
		logger:        logger,
	}
	go s.writePump()
	return s
}

// ID returns the participant id.
func (s *PlayerSession) ID() string { return s.ParticipantID }

func (s *PlayerSession) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

// writePump drains SendChan and writes to the WebSocket connection.
// Also sends periodic WebSocket pings to detect dead connections quickly.
func (s *PlayerSession) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data, ok := <-s.SendChan:
			if !ok {
				return
			}
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log().Warn("ws write error",
					zap.String("participant_id", s.ParticipantID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done:
			s.flush()
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued, so a final battle-end reaches the
// client before the close frame.
func (s *PlayerSession) flush() {
	for {
		select {
		case data := <-s.SendChan:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Send encodes pkt and sends it non-blocking. Drops if channel full or closed.
func (s *PlayerSession) Send(pkt *Packet) {
	if s.IsClosed() {
		return
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		s.log().Error("marshal packet", zap.String("type", pkt.Type), zap.Error(err))
		return
	}
	select {
	case s.SendChan <- data:
	case <-s.Done:
	default:
		if !s.IsClosed() {
			s.log().Warn("send channel full, dropping packet",
				zap.String("participant_id", s.ParticipantID),
				zap.String("type", pkt.Type))
		}
	}
}

// SendJSON wraps v in a typed packet and sends it.
func (s *PlayerSession) SendJSON(typ string, v interface{}) {
	pkt, err := NewPacket(typ, v)
	if err != nil {
		s.log().Error("marshal payload", zap.String("type", typ), zap.Error(err))
		return
	}
	s.Send(pkt)
}

// Close signals the writePump to shut down.
func (s *PlayerSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.Done:
	default:
		close(s.Done)
	}
}

// IsClosed returns true if the session has been closed.
func (s *PlayerSession) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

// SetReadDeadline resets the WebSocket read deadline to 60 s from now.
func (s *PlayerSession) SetReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadlineS))
}
