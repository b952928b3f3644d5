package relay

import (
	"time"

	"github.com/google/uuid"
)

// Session binds an authenticated username to a live connection.
type Session struct {
	// ID is a generated identifier for this login.
	ID string
	// Username is the account name the session was opened for.
	Username string
	// Endpoint is the connection the session is bound to.
	Endpoint Endpoint
	// StartedAt is when the login succeeded.
	StartedAt time.Time
}

// Registry maps usernames to live sessions and keeps the reverse
// connection-id index. It performs no locking; Hub serializes access.
type Registry struct {
	byUser map[string]*Session // username → session
	byConn map[string]*Session // connection id → session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Session),
		byConn: make(map[string]*Session),
	}
}

// Add installs a session for username on ep.
//
// Postcondition: Returns the new session, or ErrAlreadyLoggedIn if username
// already has a session or ep is already bound to one.
func (r *Registry) Add(username string, ep Endpoint) (*Session, error) {
	if _, exists := r.byUser[username]; exists {
		return nil, ErrAlreadyLoggedIn
	}
	if _, exists := r.byConn[ep.ID()]; exists {
		return nil, ErrAlreadyLoggedIn
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Endpoint:  ep,
		StartedAt: time.Now(),
	}
	r.byUser[username] = sess
	r.byConn[ep.ID()] = sess
	return sess, nil
}

// RemoveByConn removes the session bound to connID.
//
// Postcondition: Returns the removed session and true, or nil and false if the
// connection had no session.
func (r *Registry) RemoveByConn(connID string) (*Session, bool) {
	sess, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	delete(r.byConn, connID)
	delete(r.byUser, sess.Username)
	return sess, true
}

// ByConn returns the session bound to connID.
func (r *Registry) ByConn(connID string) (*Session, bool) {
	sess, ok := r.byConn[connID]
	return sess, ok
}

// ByUser returns the session for username.
func (r *Registry) ByUser(username string) (*Session, bool) {
	sess, ok := r.byUser[username]
	return sess, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.byUser)
}
