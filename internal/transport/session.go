package transport

import (
	"sync"
	"time"

	"github.com/JamesPrial/pokeflow/pkg/logging"
)

// DefaultSessionTimeout is how long an idle session survives
const DefaultSessionTimeout = 30 * time.Minute

// SessionManager tracks widget sessions and expires idle ones
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	onExpire func(sessionID string)
}

// NewSessionManager creates a session manager sweeping every five minutes
func NewSessionManager(timeout time.Duration) *SessionManager {
	return newSessionManager(timeout, 5*time.Minute)
}

func newSessionManager(timeout, interval time.Duration) *SessionManager {
	sm := &SessionManager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		interval: interval,
		stop:     make(chan struct{}),
	}
	go sm.cleanupExpiredSessions()
	return sm
}

// CreateSession registers a new session for transport
func (sm *SessionManager) CreateSession(transport string) *Session {
	now := time.Now().Unix()
	session := &Session{
		ID:           logging.GenerateID(),
		Transport:    transport,
		CreatedAt:    now,
		LastActivity: now,
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	count := len(sm.sessions)
	sm.mu.Unlock()

	logging.GetGlobalMetricsCollector().SetSessions(count)
	return session
}

// GetSession looks up a session and marks it active
func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if exists {
		session.LastActivity = time.Now().Unix()
	}
	return session, exists
}

// RemoveSession removes a session
func (sm *SessionManager) RemoveSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	count := len(sm.sessions)
	sm.mu.Unlock()

	logging.GetGlobalMetricsCollector().SetSessions(count)
}

// OnExpire registers fn to run for every session removed by the sweeper
func (sm *SessionManager) OnExpire(fn func(sessionID string)) {
	sm.mu.Lock()
	sm.onExpire = fn
	sm.mu.Unlock()
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func (sm *SessionManager) cleanupExpiredSessions() {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.expire(time.Now())
		}
	}
}

func (sm *SessionManager) expire(now time.Time) {
	cutoff := now.Add(-sm.timeout).Unix()

	var expired []string
	sm.mu.RLock()
	for id, session := range sm.sessions {
		if session.LastActivity < cutoff {
			expired = append(expired, id)
		}
	}
	onExpire := sm.onExpire
	sm.mu.RUnlock()

	for _, id := range expired {
		sm.RemoveSession(id)
		if onExpire != nil {
			onExpire(id)
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stop)
	})
}
