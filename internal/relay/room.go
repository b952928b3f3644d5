package relay

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/chessrelay/internal/protocol"
)

// Slot is one of the two seats in a room.
type Slot int

const (
	// SlotA plays white and moves first.
	SlotA Slot = iota
	// SlotB plays black.
	SlotB
)

// Other returns the opposing slot.
func (s Slot) Other() Slot {
	return 1 - s
}

func (s Slot) String() string {
	if s == SlotA {
		return "A"
	}
	return "B"
}

// Color returns the piece color played from the slot.
func (s Slot) Color() string {
	if s == SlotA {
		return "white"
	}
	return "black"
}

// State is a room's lifecycle state.
type State int

const (
	StateAwaitingOpponent State = iota
	StateActive
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateAwaitingOpponent:
		return "awaiting_opponent"
	case StateActive:
		return "active"
	default:
		return "destroyed"
	}
}

// Notifier delivers a line to an endpoint without blocking. Delivery failures
// are the notifier's concern; callers never see them.
type Notifier func(to Endpoint, line string)

// Room is one two-player match: membership, turn pointer and restart votes.
// It performs no locking; Hub serializes access.
type Room struct {
	// ID identifies the room in logs.
	ID string
	// Code is the caller-chosen room id, empty for matchmade rooms.
	Code string
	// CreatedAt is when the room was created.
	CreatedAt time.Time

	slots     [2]Endpoint
	turn      Slot
	votes     [2]bool
	destroyed bool
	notify    Notifier
}

func newRoom(code string, notify Notifier) *Room {
	return &Room{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedAt: time.Now(),
		notify:    notify,
	}
}

// State returns the room's lifecycle state.
func (r *Room) State() State {
	switch {
	case r.destroyed:
		return StateDestroyed
	case r.IsFull():
		return StateActive
	default:
		return StateAwaitingOpponent
	}
}

// IsFull reports whether both slots are occupied.
func (r *Room) IsFull() bool {
	return r.slots[SlotA] != nil && r.slots[SlotB] != nil
}

// IsEmpty reports whether both slots are empty.
func (r *Room) IsEmpty() bool {
	return r.slots[SlotA] == nil && r.slots[SlotB] == nil
}

// Occupant returns the endpoint in slot s, or nil.
func (r *Room) Occupant(s Slot) Endpoint {
	return r.slots[s]
}

// SlotOf returns the slot held by connID.
func (r *Room) SlotOf(connID string) (Slot, bool) {
	for _, s := range []Slot{SlotA, SlotB} {
		if ep := r.slots[s]; ep != nil && ep.ID() == connID {
			return s, true
		}
	}
	return SlotA, false
}

// Turn returns the slot whose move is accepted next.
func (r *Room) Turn() Slot {
	return r.turn
}

// RestartVotes returns which slots have asked for a restart since the last clear.
func (r *Room) RestartVotes() (a, b bool) {
	return r.votes[SlotA], r.votes[SlotB]
}

// seat places ep in the first empty slot, A before B.
//
// Postcondition: Returns the filled slot, or ErrRoomFull. When the room becomes
// Active the turn returns to slot A and restart votes are cleared.
func (r *Room) seat(ep Endpoint) (Slot, error) {
	if r.destroyed {
		return SlotA, ErrRoomNotFound
	}
	for _, s := range []Slot{SlotA, SlotB} {
		if r.slots[s] == nil {
			r.slots[s] = ep
			if r.IsFull() {
				r.reset()
			}
			return s, nil
		}
	}
	return SlotA, ErrRoomFull
}

// vacate clears the slot held by connID.
//
// Postcondition: Returns the cleared slot and true, or false if connID is not
// a member. Restart votes are cleared. A room left empty is Destroyed.
func (r *Room) vacate(connID string) (Slot, bool) {
	s, ok := r.SlotOf(connID)
	if !ok {
		return SlotA, false
	}
	r.slots[s] = nil
	r.votes = [2]bool{}
	if r.IsEmpty() {
		r.destroyed = true
	}
	return s, true
}

func (r *Room) reset() {
	r.turn = SlotA
	r.votes = [2]bool{}
}

// member resolves actor to its slot in an Active room.
func (r *Room) member(actor Endpoint) (Slot, error) {
	s, ok := r.SlotOf(actor.ID())
	if !ok {
		return SlotA, ErrNotInRoom
	}
	if r.State() != StateActive {
		return s, ErrRoomNotReady
	}
	return s, nil
}

// Move relays a move from actor to the opponent and passes the turn.
// The squares are not interpreted.
//
// Postcondition: On error the turn and both slots are unchanged.
func (r *Room) Move(from, to string, actor Endpoint) error {
	s, err := r.member(actor)
	if err != nil {
		return err
	}
	if s != r.turn {
		return ErrNotYourTurn
	}
	r.turn = s.Other()
	r.notify(r.slots[s.Other()], protocol.Move(from, to))
	return nil
}

// Chat relays message from actor to the opponent regardless of turn.
func (r *Room) Chat(message string, actor Endpoint) error {
	s, err := r.member(actor)
	if err != nil {
		return err
	}
	r.notify(r.slots[s.Other()], protocol.Chat(message))
	return nil
}

// RequestRestart records actor's restart vote.
//
// Postcondition: Returns true once both slots have voted; the votes are then
// cleared, the turn returns to slot A and both occupants are notified.
func (r *Room) RequestRestart(actor Endpoint) (bool, error) {
	s, err := r.member(actor)
	if err != nil {
		return false, err
	}
	r.votes[s] = true
	if !r.votes[SlotA] || !r.votes[SlotB] {
		return false, nil
	}
	r.reset()
	r.notify(r.slots[SlotA], protocol.Success("restart game"))
	r.notify(r.slots[SlotB], protocol.Success("restart game"))
	return true, nil
}
