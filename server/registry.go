package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"hospital/models"
)

// Identity is the authenticated portion of a session. It is immutable and
// swapped as a whole on LOGIN/LOGOUT so a concurrent broadcast never
// observes a half-updated user.
type Identity struct {
	UserID string
	Nombre string
	Rol    models.Role
}

// Session is the server's view of one connected client.
type Session struct {
	ConnID string

	conn         net.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex

	identity atomic.Pointer[Identity]
}

func newSession(connID string, conn net.Conn, writeTimeout time.Duration) *Session {
	return &Session{
		ConnID:       connID,
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Identity returns the current identity, or nil while unauthenticated.
func (s *Session) Identity() *Identity {
	return s.identity.Load()
}

func (s *Session) Authenticated() bool {
	return s.identity.Load() != nil
}

func (s *Session) setIdentity(id *Identity) {
	s.identity.Store(id)
}

// Send writes one already-encoded line to the client. Concurrent senders
// (the handler's own replies and pushes from other connections) are
// serialized so lines never interleave.
func (s *Session) Send(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	_, err := s.conn.Write([]byte(line))
	return err
}

// Registry is the thread-safe set of connected sessions. Sessions are added
// on accept and removed when the connection closes for any reason.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by ConnID
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ConnID] = s
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.ConnID)
}

// FindByUserID returns the authenticated session for a user id, or nil.
func (r *Registry) FindByUserID(userID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if id := s.Identity(); id != nil && id.UserID == userID {
			return s
		}
	}
	return nil
}

// AllAuthenticated returns a point-in-time snapshot of the authenticated
// sessions; callers may iterate while other handlers add or remove.
func (r *Registry) AllAuthenticated() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Authenticated() {
			out = append(out, s)
		}
	}
	return out
}

// Snapshot returns every session, authenticated or not.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
