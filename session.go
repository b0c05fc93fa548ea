package main

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	PlayerMaxHP = 100
	maxNameLen  = 16
)

var (
	ErrNameInUse     = errors.New("name in use")
	ErrInvalidName   = errors.New("invalid name")
	ErrAlreadyJoined = errors.New("connection already joined")
)

// SessionState is the lifecycle position of a session
type SessionState int

const (
	StateActive       SessionState = 1
	StateDisconnected SessionState = 2 // grace period, name still reserved
	StateRemoved      SessionState = 3
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	case StateRemoved:
		return "removed"
	}
	return "connecting"
}

// Session is one connected identity and its authoritative game state
type Session struct {
	ID       string // connection id
	Name     string
	X, Y     float64
	Rotation float64
	Speed    float64
	Health   int
	Dead     bool // health hit zero, respawn pending
	State    SessionState

	JoinedAt          time.Time
	LastShotTime      time.Time
	LastActiveTime    time.Time
	LastHeartbeatTime time.Time
	GraceDeadline     time.Time

	client Broadcaster // nil while disconnected
}

// Vessel returns the kinematic view of the session
func (s *Session) Vessel() Vessel {
	return Vessel{ID: s.ID, X: s.X, Y: s.Y, Rotation: s.Rotation, Speed: s.Speed}
}

// ToRecord converts to protocol state
func (s *Session) ToRecord() PlayerRecord {
	return PlayerRecord{
		ID:        s.ID,
		Name:      s.Name,
		X:         s.X,
		Y:         s.Y,
		Rotation:  s.Rotation,
		Speed:     s.Speed,
		Health:    s.Health,
		Connected: s.State == StateActive,
	}
}

// JoinResult is the outcome of a successful join
type JoinResult struct {
	Session *Session
	// Evicted is the grace-period session that held the name, if any
	Evicted *Session
}

// SessionManager owns the registry of sessions. It is pure bookkeeping: it
// holds no timers and no locks, and must only be used from the relay loop.
type SessionManager struct {
	sessions         map[string]*Session // by connection id
	byName           map[string]*Session
	gracePeriod      time.Duration
	heartbeatTimeout time.Duration
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(gracePeriod, heartbeatTimeout time.Duration) *SessionManager {
	return &SessionManager{
		sessions:         make(map[string]*Session),
		byName:           make(map[string]*Session),
		gracePeriod:      gracePeriod,
		heartbeatTimeout: heartbeatTimeout,
	}
}

// NormalizeName trims a display name and caps its length
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	return name, nil
}

// Join admits a new active session under name. A name held by an active
// session is rejected. A name held by a session in its grace period is taken
// over when reclaim is true or the grace deadline already passed; the old
// session is removed and returned in JoinResult.Evicted.
func (m *SessionManager) Join(name, connID string, now time.Time, reclaim bool) (JoinResult, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return JoinResult{}, err
	}
	if _, ok := m.sessions[connID]; ok {
		return JoinResult{}, ErrAlreadyJoined
	}

	var res JoinResult
	if old, ok := m.byName[name]; ok {
		switch {
		case old.State == StateActive:
			return JoinResult{}, ErrNameInUse
		case !reclaim && now.Before(old.GraceDeadline):
			return JoinResult{}, ErrNameInUse
		}
		m.remove(old)
		res.Evicted = old
	}

	s := &Session{
		ID:                connID,
		Name:              name,
		Health:            PlayerMaxHP,
		State:             StateActive,
		JoinedAt:          now,
		LastActiveTime:    now,
		LastHeartbeatTime: now,
	}
	m.sessions[connID] = s
	m.byName[name] = s
	res.Session = s
	return res, nil
}

// Disconnect moves an active session into its grace period
func (m *SessionManager) Disconnect(connID string, now time.Time) (*Session, bool) {
	s, ok := m.sessions[connID]
	if !ok || s.State != StateActive {
		return nil, false
	}
	s.State = StateDisconnected
	s.GraceDeadline = now.Add(m.gracePeriod)
	s.client = nil
	return s, true
}

// Heartbeat records liveness for an active session
func (m *SessionManager) Heartbeat(connID string, now time.Time) bool {
	s, ok := m.sessions[connID]
	if !ok || s.State != StateActive {
		return false
	}
	s.LastHeartbeatTime = now
	return true
}

// ExpireGrace removes a session whose grace period has run out
func (m *SessionManager) ExpireGrace(connID string, now time.Time) (*Session, bool) {
	s, ok := m.sessions[connID]
	if !ok || s.State != StateDisconnected || now.Before(s.GraceDeadline) {
		return nil, false
	}
	m.remove(s)
	return s, true
}

// Sweep removes every active session that has not been heard from within the
// heartbeat timeout. Sessions in their grace period are left alone.
func (m *SessionManager) Sweep(now time.Time) []*Session {
	var evicted []*Session
	for _, s := range m.sessions {
		if s.State == StateActive && now.Sub(s.LastHeartbeatTime) > m.heartbeatTimeout {
			evicted = append(evicted, s)
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i].ID < evicted[j].ID })
	for _, s := range evicted {
		m.remove(s)
	}
	return evicted
}

// Remove drops a session immediately, whatever its state
func (m *SessionManager) Remove(connID string) (*Session, bool) {
	s, ok := m.sessions[connID]
	if !ok {
		return nil, false
	}
	m.remove(s)
	return s, true
}

func (m *SessionManager) remove(s *Session) {
	delete(m.sessions, s.ID)
	if m.byName[s.Name] == s {
		delete(m.byName, s.Name)
	}
	s.State = StateRemoved
}

// Get returns a non-removed session by connection id
func (m *SessionManager) Get(connID string) *Session {
	return m.sessions[connID]
}

// Active returns the active session for a connection id
func (m *SessionManager) Active(connID string) *Session {
	s := m.sessions[connID]
	if s == nil || s.State != StateActive {
		return nil
	}
	return s
}

// ByName returns the non-removed session holding name
func (m *SessionManager) ByName(name string) *Session {
	return m.byName[name]
}

// ActiveCount returns the number of active sessions
func (m *SessionManager) ActiveCount() int {
	n := 0
	for _, s := range m.sessions {
		if s.State == StateActive {
			n++
		}
	}
	return n
}

// All returns every non-removed session ordered by id
func (m *SessionManager) All() []*Session {
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
