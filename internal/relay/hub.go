// Package relay implements the match relay: sessions, the matchmaking queue,
// rooms and the command dispatcher that drives them.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/chessrelay/internal/protocol"
	"github.com/cory-johannsen/chessrelay/internal/storage"
)

// CredentialStore is the persistent account store used for REGISTER and LOGIN.
type CredentialStore interface {
	Register(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) (bool, error)
}

// Stats is a point-in-time snapshot of the hub's shared state.
type Stats struct {
	Sessions int
	Queued   int
	Rooms    int
}

// Hub owns the session registry, the matchmaking queue and the room store.
// A single mutex covers all three, so every operation is atomic with respect
// to every other. Credential store calls are made outside the lock.
type Hub struct {
	mu       sync.Mutex
	sessions *Registry
	queue    *Queue
	rooms    *RoomStore
	accounts CredentialStore
	logger   *zap.Logger
}

// NewHub creates a Hub backed by accounts.
//
// Precondition: accounts and logger must be non-nil.
func NewHub(accounts CredentialStore, logger *zap.Logger) *Hub {
	h := &Hub{
		sessions: NewRegistry(),
		queue:    NewQueue(),
		accounts: accounts,
		logger:   logger,
	}
	h.rooms = NewRoomStore(h.deliver)
	return h
}

// deliver queues line on to. Failures are logged and otherwise ignored; state
// changes that triggered the send are never rolled back.
func (h *Hub) deliver(to Endpoint, line string) {
	if to == nil {
		return
	}
	if err := to.Send(line); err != nil {
		h.logger.Warn("relay send failed",
			zap.String("conn_id", to.ID()),
			zap.Error(err),
		)
	}
}

// Register creates an account.
//
// Postcondition: Returns nil, ErrMalformedRequest for a password the store
// cannot hash, ErrUsernameTaken, or ErrStoreError.
func (h *Hub) Register(ctx context.Context, username, password string) error {
	if len(password) > storage.MaxPasswordLength {
		return ErrMalformedRequest
	}
	start := time.Now()
	err := h.accounts.Register(ctx, username, password)
	switch {
	case err == nil:
		h.logger.Info("account registered",
			zap.String("username", username),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	case errors.Is(err, storage.ErrAccountExists):
		return ErrUsernameTaken
	case errors.Is(err, storage.ErrPasswordTooLong):
		return ErrMalformedRequest
	default:
		h.logger.Error("registering account",
			zap.String("username", username),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return ErrStoreError
	}
}

// Login opens a session for username on ep. Any room membership ep held is
// released on success.
//
// Postcondition: Returns nil, ErrAlreadyLoggedIn, ErrInvalidCredentials or
// ErrStoreError. A rejected login never displaces an existing session.
func (h *Hub) Login(ctx context.Context, username, password string, ep Endpoint) error {
	h.mu.Lock()
	_, userTaken := h.sessions.ByUser(username)
	_, connBound := h.sessions.ByConn(ep.ID())
	h.mu.Unlock()
	if userTaken || connBound {
		return ErrAlreadyLoggedIn
	}

	start := time.Now()
	ok, err := h.accounts.Verify(ctx, username, password)
	if err != nil {
		h.logger.Error("verifying credentials",
			zap.String("username", username),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return ErrStoreError
	}
	if !ok {
		return ErrInvalidCredentials
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Another connection may have won the race while the store was consulted.
	sess, err := h.sessions.Add(username, ep)
	if err != nil {
		return err
	}
	h.leaveRoomLocked(ep.ID())

	h.logger.Info("player logged in",
		zap.String("conn_id", ep.ID()),
		zap.String("username", username),
		zap.String("session_id", sess.ID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Logout closes ep's session and releases its queue entry and room seat.
//
// Postcondition: Returns the username that was logged out, or ErrNotLoggedIn.
func (h *Hub) Logout(ep Endpoint) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions.RemoveByConn(ep.ID())
	if !ok {
		return "", ErrNotLoggedIn
	}
	h.queue.Remove(ep.ID())
	h.leaveRoomLocked(ep.ID())

	h.logger.Info("player logged out",
		zap.String("conn_id", ep.ID()),
		zap.String("username", sess.Username),
		zap.Duration("session_duration", time.Since(sess.StartedAt)),
	)
	return sess.Username, nil
}

// Disconnect releases everything bound to ep: its session, queue entry and
// room seat. Safe to call for endpoints that hold nothing.
func (h *Hub) Disconnect(ep Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fields := []zap.Field{zap.String("conn_id", ep.ID())}
	if sess, ok := h.sessions.RemoveByConn(ep.ID()); ok {
		fields = append(fields, zap.String("username", sess.Username))
	}
	if h.queue.Remove(ep.ID()) {
		fields = append(fields, zap.Bool("was_queued", true))
	}
	h.leaveRoomLocked(ep.ID())

	h.logger.Debug("endpoint released", fields...)
}

// Authenticated reports whether ep holds a session.
func (h *Hub) Authenticated(ep Endpoint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions.ByConn(ep.ID())
	return ok
}

// Enqueue adds ep to the matchmaking queue. When two connections are waiting
// the oldest two are paired: the first takes slot A (white), the second slot B.
//
// Postcondition: Returns matched=true if ep's arrival completed a pair, or
// ErrAlreadyQueued / ErrAlreadyInRoom without changing state.
func (h *Hub) Enqueue(ep Endpoint) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.queue.Contains(ep.ID()) {
		return false, ErrAlreadyQueued
	}
	if _, ok := h.rooms.FindByMember(ep.ID()); ok {
		return false, ErrAlreadyInRoom
	}
	if err := h.queue.Push(ep); err != nil {
		return false, err
	}

	first, second, ok := h.queue.PopPair()
	if !ok {
		return false, nil
	}
	room := h.rooms.Pair(first, second)
	h.deliver(first, protocol.Success("%s", SlotA.Color()))
	h.deliver(second, protocol.Success("%s", SlotB.Color()))

	h.logger.Info("match started",
		zap.String("room_id", room.ID),
		zap.String("white", first.ID()),
		zap.String("black", second.ID()),
	)
	return true, nil
}

// LeaveQueue removes ep from the matchmaking queue and, if it was already
// paired, from its room.
func (h *Hub) LeaveQueue(ep Endpoint) (wasQueued, leftRoom bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasQueued = h.queue.Remove(ep.ID())
	leftRoom = h.leaveRoomLocked(ep.ID())
	return wasQueued, leftRoom
}

// CreateRoom opens an explicit room named code with ep in slot A.
//
// Postcondition: Returns nil, ErrAlreadyQueued, ErrAlreadyInRoom or ErrRoomExists.
func (h *Hub) CreateRoom(code string, ep Endpoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.queue.Contains(ep.ID()) {
		return ErrAlreadyQueued
	}
	room, err := h.rooms.Create(code, ep)
	if err != nil {
		return err
	}
	h.logger.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("room_code", code),
		zap.String("conn_id", ep.ID()),
	)
	return nil
}

// JoinRoom seats ep in the room named code.
//
// Postcondition: Returns the slot taken, or ErrAlreadyQueued, ErrAlreadyInRoom,
// ErrRoomNotFound or ErrRoomFull.
func (h *Hub) JoinRoom(code string, ep Endpoint) (Slot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.queue.Contains(ep.ID()) {
		return SlotA, ErrAlreadyQueued
	}
	room, slot, err := h.rooms.Join(code, ep)
	if err != nil {
		return SlotA, err
	}
	h.logger.Info("room joined",
		zap.String("room_id", room.ID),
		zap.String("room_code", code),
		zap.String("conn_id", ep.ID()),
		zap.Stringer("slot", slot),
	)
	return slot, nil
}

// Move relays a move from ep to its opponent.
func (h *Hub) Move(ep Endpoint, from, to string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms.FindByMember(ep.ID())
	if !ok {
		return ErrNotInRoom
	}
	return room.Move(from, to, ep)
}

// Chat relays message from ep to its opponent.
func (h *Hub) Chat(ep Endpoint, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms.FindByMember(ep.ID())
	if !ok {
		return ErrNotInRoom
	}
	return room.Chat(message, ep)
}

// Restart records ep's restart vote.
//
// Postcondition: Returns true when both players have agreed.
func (h *Hub) Restart(ep Endpoint) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms.FindByMember(ep.ID())
	if !ok {
		return false, ErrNotInRoom
	}
	agreed, err := room.RequestRestart(ep)
	if err != nil {
		return false, err
	}
	if agreed {
		h.logger.Info("game restarted", zap.String("room_id", room.ID))
	}
	return agreed, nil
}

// LeaveRoom removes ep from its room.
//
// Postcondition: Returns nil or ErrNotInRoom.
func (h *Hub) LeaveRoom(ep Endpoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.leaveRoomLocked(ep.ID()) {
		return ErrNotInRoom
	}
	return nil
}

// Stats returns a consistent snapshot of the hub's state.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Sessions: h.sessions.Len(),
		Queued:   h.queue.Len(),
		Rooms:    h.rooms.Len(),
	}
}

// leaveRoomLocked removes connID from its room, if any. h.mu must be held.
func (h *Hub) leaveRoomLocked(connID string) bool {
	room, destroyed, ok := h.rooms.RemoveMember(connID)
	if !ok {
		return false
	}
	h.logger.Info("left room",
		zap.String("conn_id", connID),
		zap.String("room_id", room.ID),
		zap.Bool("destroyed", destroyed),
		zap.Duration("room_age", time.Since(room.CreatedAt)),
	)
	return true
}
