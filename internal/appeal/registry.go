package appeal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Session is an active appeal relay.
type Session struct {
	UserID    string
	ChannelID string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Attached reports whether the session has a relay running. A session
// without a channel is only a reservation held while the reason is asked.
func (s *Session) Attached() bool { return s.ChannelID != "" }

// Registry maps users to their appeal session. It is the only record of
// which relays are running.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Reserve claims userID for a new appeal. It returns false when the user
// already has a session or a reservation.
func (r *Registry) Reserve(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[userID]; ok {
		return false
	}
	r.sessions[userID] = &Session{UserID: userID}
	return true
}

// Release drops a reservation that never got a relay.
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok && !s.Attached() {
		delete(r.sessions, userID)
	}
}

// Attach binds a relay to userID, completing a reservation or creating the
// session directly. It returns nil when a relay is already attached.
func (r *Registry) Attach(userID, channelID string, cancel context.CancelFunc, done chan struct{}) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok && s.Attached() {
		return nil
	}
	s := &Session{
		UserID:    userID,
		ChannelID: channelID,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      done,
	}
	r.sessions[userID] = s
	return s
}

// Has reports whether userID has a session or reservation.
func (r *Registry) Has(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[userID]
	return ok
}

// ByChannel finds the user whose relay is bound to channelID.
func (r *Registry) ByChannel(channelID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.ChannelID == channelID {
			return id, true
		}
	}
	return "", false
}

// Remove deletes the session of userID and returns it.
func (r *Registry) Remove(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	delete(r.sessions, userID)
	return s
}

// removeIf deletes the entry of userID only if it is still s.
func (r *Registry) removeIf(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[userID] == s {
		delete(r.sessions, userID)
	}
}

// All returns the attached sessions ordered by start time.
func (r *Registry) All() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Attached() {
			out = append(out, Session{UserID: s.UserID, ChannelID: s.ChannelID, StartedAt: s.StartedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Len returns the number of sessions, reservations included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CancelAll stops every relay and empties the registry.
func (r *Registry) CancelAll() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.cancel != nil {
			s.cancel()
		}
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}
