package relay

import (
	"github.com/cory-johannsen/chessrelay/internal/protocol"
)

// RoomStore owns every live room, indexed by room code and by member
// connection id. It performs no locking; Hub serializes access.
type RoomStore struct {
	byCode   map[string]*Room // room code → room (explicit rooms only)
	byMember map[string]*Room // connection id → room
	notify   Notifier
}

// NewRoomStore creates an empty RoomStore whose rooms deliver through notify.
//
// Precondition: notify must be non-nil.
func NewRoomStore(notify Notifier) *RoomStore {
	return &RoomStore{
		byCode:   make(map[string]*Room),
		byMember: make(map[string]*Room),
		notify:   notify,
	}
}

// Pair creates an Active matchmade room with a in slot A and b in slot B.
//
// Precondition: Neither a nor b is a member of any room.
func (s *RoomStore) Pair(a, b Endpoint) *Room {
	room := newRoom("", s.notify)
	_, _ = room.seat(a)
	_, _ = room.seat(b)
	s.byMember[a.ID()] = room
	s.byMember[b.ID()] = room
	return room
}

// Create opens an explicit room with ep in slot A.
//
// Postcondition: Returns the room, ErrRoomExists if code is taken, or
// ErrAlreadyInRoom if ep is already a member of a room.
func (s *RoomStore) Create(code string, ep Endpoint) (*Room, error) {
	if _, ok := s.byMember[ep.ID()]; ok {
		return nil, ErrAlreadyInRoom
	}
	if _, ok := s.byCode[code]; ok {
		return nil, ErrRoomExists
	}
	room := newRoom(code, s.notify)
	_, _ = room.seat(ep)
	s.byCode[code] = room
	s.byMember[ep.ID()] = room
	return room, nil
}

// Join seats ep in the empty slot of the room with the given code and
// notifies the existing occupant.
//
// Postcondition: Returns the room and the slot taken, or ErrAlreadyInRoom,
// ErrRoomNotFound or ErrRoomFull.
func (s *RoomStore) Join(code string, ep Endpoint) (*Room, Slot, error) {
	if _, ok := s.byMember[ep.ID()]; ok {
		return nil, SlotA, ErrAlreadyInRoom
	}
	room, ok := s.byCode[code]
	if !ok {
		return nil, SlotA, ErrRoomNotFound
	}
	slot, err := room.seat(ep)
	if err != nil {
		return nil, SlotA, err
	}
	s.byMember[ep.ID()] = room
	if peer := room.Occupant(slot.Other()); peer != nil {
		s.notify(peer, protocol.TagJoinRoom+" A player has joined the room as "+slot.Color())
	}
	return room, slot, nil
}

// FindByMember returns the room connID belongs to.
func (s *RoomStore) FindByMember(connID string) (*Room, bool) {
	room, ok := s.byMember[connID]
	return room, ok
}

// Lookup returns the explicit room registered under code.
func (s *RoomStore) Lookup(code string) (*Room, bool) {
	room, ok := s.byCode[code]
	return room, ok
}

// RemoveMember takes connID out of its room. The remaining occupant, if any,
// is told the opponent left; a room left empty is destroyed and forgotten.
//
// Postcondition: ok is false if connID was in no room.
func (s *RoomStore) RemoveMember(connID string) (room *Room, destroyed bool, ok bool) {
	room, ok = s.byMember[connID]
	if !ok {
		return nil, false, false
	}
	delete(s.byMember, connID)

	slot, _ := room.vacate(connID)
	if room.State() == StateDestroyed {
		if room.Code != "" {
			delete(s.byCode, room.Code)
		}
		return room, true, true
	}
	if peer := room.Occupant(slot.Other()); peer != nil {
		s.notify(peer, protocol.TagOpponentLeft)
	}
	return room, false, true
}

// Len returns the number of live rooms.
func (s *RoomStore) Len() int {
	seen := make(map[*Room]struct{}, len(s.byMember))
	for _, room := range s.byMember {
		seen[room] = struct{}{}
	}
	return len(seen)
}
