package relay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/chessrelay/internal/testutil"
)

func sendNotifier(to Endpoint, line string) {
	if to != nil {
		_ = to.Send(line)
	}
}

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Fatalf(format string, args ...any)
}

func activeRoom(t fataler) (*Room, *testutil.RecordingEndpoint, *testutil.RecordingEndpoint) {
	a := testutil.NewRecordingEndpoint("a")
	b := testutil.NewRecordingEndpoint("b")
	room := newRoom("r1", sendNotifier)
	if _, err := room.seat(a); err != nil {
		t.Fatalf("seating a: %v", err)
	}
	if _, err := room.seat(b); err != nil {
		t.Fatalf("seating b: %v", err)
	}
	return room, a, b
}

func TestSlot(t *testing.T) {
	assert.Equal(t, SlotB, SlotA.Other())
	assert.Equal(t, SlotA, SlotB.Other())
	assert.Equal(t, "white", SlotA.Color())
	assert.Equal(t, "black", SlotB.Color())
	assert.Equal(t, "A", SlotA.String())
	assert.Equal(t, "B", SlotB.String())
}

func TestRoom_Lifecycle(t *testing.T) {
	room := newRoom("r1", sendNotifier)
	a := testutil.NewRecordingEndpoint("a")
	b := testutil.NewRecordingEndpoint("b")

	assert.NotEmpty(t, room.ID)
	slot, err := room.seat(a)
	require.NoError(t, err)
	assert.Equal(t, SlotA, slot)
	assert.Equal(t, StateAwaitingOpponent, room.State())

	slot, err = room.seat(b)
	require.NoError(t, err)
	assert.Equal(t, SlotB, slot)
	assert.Equal(t, StateActive, room.State())
	assert.True(t, room.IsFull())

	_, err = room.seat(testutil.NewRecordingEndpoint("c"))
	assert.ErrorIs(t, err, ErrRoomFull)

	_, ok := room.vacate("a")
	require.True(t, ok)
	assert.Equal(t, StateAwaitingOpponent, room.State())
	assert.Nil(t, room.Occupant(SlotA))

	_, ok = room.vacate("a")
	assert.False(t, ok)

	_, ok = room.vacate("b")
	require.True(t, ok)
	assert.Equal(t, StateDestroyed, room.State())
	assert.Equal(t, "destroyed", room.State().String())

	_, err = room.seat(a)
	assert.ErrorIs(t, err, ErrRoomNotFound, "a destroyed room never comes back")
}

func TestRoom_SeatFillsEmptiedSlot(t *testing.T) {
	room, _, b := activeRoom(t)
	_, ok := room.vacate("a")
	require.True(t, ok)

	c := testutil.NewRecordingEndpoint("c")
	slot, err := room.seat(c)
	require.NoError(t, err)
	assert.Equal(t, SlotA, slot)
	assert.Same(t, b, room.Occupant(SlotB))
}

func TestRoom_MoveRelaysAndFlipsTurn(t *testing.T) {
	room, a, b := activeRoom(t)

	require.NoError(t, room.Move("e2", "e4", a))
	assert.Equal(t, []string{"MOVE e2 e4"}, b.Lines())
	assert.Empty(t, a.Lines())
	assert.Equal(t, SlotB, room.Turn())

	err := room.Move("d2", "d4", a)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Equal(t, SlotB, room.Turn())
	assert.Len(t, b.Lines(), 1)

	require.NoError(t, room.Move("e7", "e5", b))
	assert.Equal(t, []string{"MOVE e7 e5"}, a.Lines())
	assert.Equal(t, SlotA, room.Turn())
}

func TestRoom_MoveIsNotValidated(t *testing.T) {
	room, a, b := activeRoom(t)
	require.NoError(t, room.Move("zz9", "??", a))
	assert.Equal(t, "MOVE zz9 ??", b.Last())
}

func TestRoom_MoveFlipsTurnEvenIfDeliveryFails(t *testing.T) {
	room, a, b := activeRoom(t)
	b.Break()

	require.NoError(t, room.Move("e2", "e4", a))
	assert.Equal(t, SlotB, room.Turn())
}

func TestRoom_OperationsRequireActive(t *testing.T) {
	room := newRoom("r1", sendNotifier)
	a := testutil.NewRecordingEndpoint("a")
	_, err := room.seat(a)
	require.NoError(t, err)

	assert.ErrorIs(t, room.Move("e2", "e4", a), ErrRoomNotReady)
	assert.ErrorIs(t, room.Chat("hi", a), ErrRoomNotReady)
	_, err = room.RequestRestart(a)
	assert.ErrorIs(t, err, ErrRoomNotReady)
	assert.Equal(t, SlotA, room.Turn())

	stranger := testutil.NewRecordingEndpoint("x")
	assert.ErrorIs(t, room.Move("e2", "e4", stranger), ErrNotInRoom)
}

func TestRoom_ChatIgnoresTurn(t *testing.T) {
	room, a, b := activeRoom(t)

	require.NoError(t, room.Chat("hello there", b))
	require.NoError(t, room.Chat("hi", a))
	assert.Equal(t, []string{"CHAT hello there"}, a.Lines())
	assert.Equal(t, []string{"CHAT hi"}, b.Lines())
	assert.Equal(t, SlotA, room.Turn())
}

func TestRoom_RestartConsensus(t *testing.T) {
	room, a, b := activeRoom(t)
	require.NoError(t, room.Move("e2", "e4", a))
	b.Drain()

	agreed, err := room.RequestRestart(a)
	require.NoError(t, err)
	assert.False(t, agreed)

	agreed, err = room.RequestRestart(a)
	require.NoError(t, err)
	assert.False(t, agreed, "voting twice is still one vote")

	agreed, err = room.RequestRestart(b)
	require.NoError(t, err)
	assert.True(t, agreed)

	assert.Equal(t, []string{"SUCCESS: restart game"}, a.Lines())
	assert.Equal(t, []string{"SUCCESS: restart game"}, b.Lines())
	assert.Equal(t, SlotA, room.Turn())
	va, vb := room.RestartVotes()
	assert.False(t, va)
	assert.False(t, vb)
}

func TestRoom_VacateClearsVotes(t *testing.T) {
	room, a, _ := activeRoom(t)
	_, err := room.RequestRestart(a)
	require.NoError(t, err)

	_, ok := room.vacate("b")
	require.True(t, ok)
	_, err = room.seat(testutil.NewRecordingEndpoint("c"))
	require.NoError(t, err)

	va, vb := room.RestartVotes()
	assert.False(t, va)
	assert.False(t, vb)
}

// Successful moves always alternate slots, and a rejected move changes nothing.
func TestPropertyTurnAlternation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		room, a, b := activeRoom(rt)
		actors := map[Slot]*testutil.RecordingEndpoint{SlotA: a, SlotB: b}

		var lastMover Slot
		moved := false
		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := range steps {
			slot := Slot(rapid.IntRange(0, 1).Draw(rt, fmt.Sprintf("actor%d", i)))
			before := room.Turn()

			err := room.Move("a1", "a2", actors[slot])
			if slot != before {
				if err == nil {
					rt.Fatalf("slot %s moved out of turn", slot)
				}
				if room.Turn() != before {
					rt.Fatalf("rejected move changed turn")
				}
				continue
			}
			if err != nil {
				rt.Fatalf("slot %s on turn was rejected: %v", slot, err)
			}
			if moved && slot == lastMover {
				rt.Fatalf("slot %s moved twice in a row", slot)
			}
			if room.Turn() != slot.Other() {
				rt.Fatalf("turn did not pass to %s", slot.Other())
			}
			lastMover, moved = slot, true
		}
	})
}

// Restart is agreed exactly when both slots have voted since the last clear.
func TestPropertyRestartConsensus(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		room, a, b := activeRoom(rt)
		actors := map[Slot]*testutil.RecordingEndpoint{SlotA: a, SlotB: b}
		votes := map[Slot]bool{}

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := range steps {
			slot := Slot(rapid.IntRange(0, 1).Draw(rt, fmt.Sprintf("voter%d", i)))
			votes[slot] = true
			agreed, err := room.RequestRestart(actors[slot])
			if err != nil {
				rt.Fatalf("restart: %v", err)
			}
			want := votes[SlotA] && votes[SlotB]
			if agreed != want {
				rt.Fatalf("agreed=%v with votes %v", agreed, votes)
			}
			if agreed {
				votes = map[Slot]bool{}
			}
		}
	})
}
