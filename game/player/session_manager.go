package player

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionManager maintains the registry of all connected PlayerSessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*PlayerSession // participantID → session
	logger   *zap.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*PlayerSession),
		logger:   logger,
	}
}

// Register adds a session and returns the one it displaced, if any. The
// caller is responsible for closing the displaced session.
func (sm *SessionManager) Register(s *PlayerSession) *PlayerSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	old := sm.sessions[s.ParticipantID]
	if old != nil {
		sm.logger.Info("duplicate session displaced",
			zap.String("participant_id", s.ParticipantID))
	}
	sm.sessions[s.ParticipantID] = s
	sm.logger.Info("participant session registered",
		zap.String("participant_id", s.ParticipantID),
		zap.String("name", s.Name))
	return old
}

// Unregister removes s. It reports false when s was already displaced by a
// newer connection for the same participant.
func (sm *SessionManager) Unregister(s *PlayerSession) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.sessions[s.ParticipantID] != s {
		return false
	}
	delete(sm.sessions, s.ParticipantID)
	sm.logger.Info("participant session unregistered", zap.String("participant_id", s.ParticipantID))
	return true
}

// Get returns the session for a participant, or nil if not found.
func (sm *SessionManager) Get(participantID string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[participantID]
}

// IsOnline reports whether a participant is currently connected.
func (sm *SessionManager) IsOnline(participantID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.sessions[participantID]
	return ok
}

// Count returns the number of currently connected sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// All returns a snapshot slice of all current sessions.
func (sm *SessionManager) All() []*PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*PlayerSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s)
	}
	return out
}

// CloseAllSessions closes every session and waits up to maxWait for the
// read loops to unregister them.
func (sm *SessionManager) CloseAllSessions(maxWait time.Duration) {
	sessions := sm.All()
	sm.logger.Info("closing all sessions", zap.Int("count", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}

	start := time.Now()
	for time.Since(start) < maxWait {
		if sm.Count() == 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
}
