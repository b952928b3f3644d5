package relay

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/chessrelay/internal/storage/sqlite"
	"github.com/cory-johannsen/chessrelay/internal/testutil"
)

type dispatchFixture struct {
	t        *testing.T
	d        *Dispatcher
	hub      *Hub
	accounts *testutil.MemoryAccounts
}

func newDispatchFixture(t *testing.T, requireLogin bool) *dispatchFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	accounts := testutil.NewMemoryAccounts()
	hub := NewHub(accounts, logger)
	return &dispatchFixture{
		t:        t,
		d:        NewDispatcher(hub, requireLogin, logger),
		hub:      hub,
		accounts: accounts,
	}
}

// do sends line from ep and asserts the reply.
func (f *dispatchFixture) do(ep Endpoint, line, want string) {
	f.t.Helper()
	got, ok := f.d.Handle(context.Background(), ep, line)
	require.True(f.t, ok, "no reply for %q", line)
	assert.Equal(f.t, want, got, "reply to %q", line)
}

func TestDispatcher_ExplicitRoomScenario(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")
	b := testutil.NewRecordingEndpoint("b")

	f.do(a, "CREATE_ROOM r1", "SUCCESS: Room r1 created. Waiting for opponent.")
	f.do(b, "JOIN_ROOM r1", "SUCCESS: You have joined room r1 as black")
	assert.Equal(t, []string{"JOIN_ROOM: A player has joined the room as black"}, a.Drain())

	f.do(a, "MOVE e2 e4", "SUCCESS: Move sent")
	assert.Equal(t, []string{"MOVE e2 e4"}, b.Drain())

	f.do(a, "MOVE e7 e5", "ERROR: NotYourTurn")
	assert.Empty(t, b.Lines())

	f.do(b, "MOVE e7 e5", "SUCCESS: Move sent")
	assert.Equal(t, []string{"MOVE e7 e5"}, a.Drain())
}

func TestDispatcher_FindMatchScenario(t *testing.T) {
	f := newDispatchFixture(t, false)
	x := testutil.NewRecordingEndpoint("x")
	y := testutil.NewRecordingEndpoint("y")

	f.do(x, "FIND_MATCH", "WAITING: Finding match...")
	f.do(y, "FIND_MATCH", "SUCCESS: Match started")

	assert.Equal(t, []string{"SUCCESS: white"}, x.Lines())
	assert.Equal(t, []string{"SUCCESS: black"}, y.Lines())

	f.do(y, "MOVE e7 e5", "ERROR: NotYourTurn")
	f.do(x, "MOVE e2 e4", "SUCCESS: Move sent")
}

func TestDispatcher_Accounts(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")
	b := testutil.NewRecordingEndpoint("b")

	f.do(a, "REGISTER alice pw", "SUCCESS: Registered")
	f.do(b, "REGISTER alice pw2", "ERROR: UsernameTaken")
	f.do(a, "LOGIN alice nope", "ERROR: InvalidCredentials")
	f.do(a, "LOGIN alice pw", "SUCCESS: logged in")
	f.do(b, "LOGIN alice pw", "ERROR: AlreadyLoggedIn")
	f.do(a, "LOGOUT", "SUCCESS: Logged out.")
	f.do(a, "LOGOUT", "ERROR: NotLoggedIn")
	f.do(b, "LOGIN alice pw", "SUCCESS: logged in")

	f.accounts.SetFailing(true)
	f.do(a, "REGISTER carol pw", "ERROR: StoreError")
}

func TestDispatcher_RegisterOverlongPassword(t *testing.T) {
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "players.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := zaptest.NewLogger(t)
	f := &dispatchFixture{t: t, d: NewDispatcher(NewHub(store, logger), false, logger)}
	a := testutil.NewRecordingEndpoint("a")

	f.do(a, "REGISTER alice "+strings.Repeat("x", 73), "ERROR: MalformedRequest")
	f.do(a, "LOGIN alice "+strings.Repeat("x", 73), "ERROR: InvalidCredentials")
	f.do(a, "REGISTER alice "+strings.Repeat("x", 72), "SUCCESS: Registered")
	f.do(a, "LOGIN alice "+strings.Repeat("x", 72), "SUCCESS: logged in")
}

func TestDispatcher_ArityAndUnknown(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")

	for _, line := range []string{
		"REGISTER", "REGISTER alice", "LOGIN bob",
		"CREATE_ROOM", "JOIN_ROOM", "MOVE", "MOVE e2", "CHAT", "CHAT   ",
	} {
		f.do(a, line, "ERROR: MalformedRequest")
	}
	assert.Equal(t, 0, f.accounts.Calls(), "malformed requests never reach the store")
	assert.Equal(t, Stats{}, f.hub.Stats())

	f.do(a, "XYZZY", "ERROR: UnknownCommand")
	f.do(a, "MOVES e2 e4", "ERROR: UnknownCommand")
}

func TestDispatcher_CaseInsensitiveCommand(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")

	f.do(a, "create_room Lobby", "SUCCESS: Room Lobby created. Waiting for opponent.")
	_, ok := f.hub.rooms.Lookup("Lobby")
	assert.True(t, ok, "arguments keep their case")
	f.do(a, "Exit_Room", "EXIT_ROOM")
}

func TestDispatcher_BlankLinesIgnored(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")

	for _, line := range []string{"", " ", "\t \t"} {
		_, ok := f.d.Handle(context.Background(), a, line)
		assert.False(t, ok)
	}
}

func TestDispatcher_ChatKeepsPayload(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")
	b := testutil.NewRecordingEndpoint("b")

	f.do(a, "CREATE_ROOM r1", "SUCCESS: Room r1 created. Waiting for opponent.")
	f.do(a, "CHAT anyone?", "ERROR: RoomNotReady")
	f.do(b, "JOIN_ROOM r1", "SUCCESS: You have joined room r1 as black")
	a.Drain()

	f.do(b, "chat   well   played,  friend", "SUCCESS: Message sent")
	assert.Equal(t, []string{"CHAT well   played,  friend"}, a.Lines())
}

func TestDispatcher_RestartAndExit(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")
	b := testutil.NewRecordingEndpoint("b")

	f.do(a, "RESTART", "ERROR: NotInRoom")
	f.do(a, "EXIT_ROOM", "ERROR: NotInRoom")

	f.do(a, "FIND_MATCH", "WAITING: Finding match...")
	f.do(b, "FIND_MATCH", "SUCCESS: Match started")
	a.Drain()
	b.Drain()

	f.do(a, "RESTART", "WAITING: Waiting for the other player to agree.")
	f.do(b, "RESTART", "SUCCESS: Game restarted successfully.")
	assert.Equal(t, []string{"SUCCESS: restart game"}, a.Drain())
	assert.Equal(t, []string{"SUCCESS: restart game"}, b.Drain())

	f.do(b, "EXIT_ROOM", "EXIT_ROOM")
	assert.Equal(t, []string{"OPPONENT_LEFT"}, a.Drain())
	f.do(a, "RESTART", "ERROR: RoomNotReady")
	f.do(a, "EXIT_WAITING", "EXIT_WAITING")
	assert.Equal(t, 0, f.hub.Stats().Rooms)
}

func TestDispatcher_GameOverIsStateless(t *testing.T) {
	f := newDispatchFixture(t, true)
	a := testutil.NewRecordingEndpoint("a")
	f.do(a, "GAMEOVER", "GAMEOVER")
	f.do(a, "GAMEOVER extra tokens", "GAMEOVER")
	assert.Equal(t, Stats{}, f.hub.Stats())
}

func TestDispatcher_RequireLogin(t *testing.T) {
	f := newDispatchFixture(t, true)
	a := testutil.NewRecordingEndpoint("a")

	for _, line := range []string{"FIND_MATCH", "CREATE_ROOM r1", "JOIN_ROOM r1", "MOVE a b", "CHAT hi", "RESTART", "EXIT_ROOM", "EXIT_WAITING", "LOGOUT"} {
		f.do(a, line, "ERROR: NotLoggedIn")
	}
	f.do(a, "MOVE a", "ERROR: MalformedRequest")

	f.do(a, "REGISTER alice pw", "SUCCESS: Registered")
	f.do(a, "LOGIN alice pw", "SUCCESS: logged in")
	f.do(a, "CREATE_ROOM r1", "SUCCESS: Room r1 created. Waiting for opponent.")
}

func TestDispatcher_Disconnect(t *testing.T) {
	f := newDispatchFixture(t, false)
	a := testutil.NewRecordingEndpoint("a")
	b := testutil.NewRecordingEndpoint("b")

	f.do(a, "REGISTER alice pw", "SUCCESS: Registered")
	f.do(a, "LOGIN alice pw", "SUCCESS: logged in")
	f.do(a, "CREATE_ROOM r1", "SUCCESS: Room r1 created. Waiting for opponent.")
	f.do(b, "JOIN_ROOM r1", "SUCCESS: You have joined room r1 as black")

	f.d.Disconnect(a)
	assert.Equal(t, "OPPONENT_LEFT", b.Last())
	f.d.Disconnect(b)

	assert.Equal(t, Stats{}, f.hub.Stats())
	f.do(testutil.NewRecordingEndpoint("c"), "JOIN_ROOM r1", "ERROR: RoomNotFound")
}

// Arbitrary input never panics and always yields exactly one reply for a
// non-blank line.
func TestPropertyDispatcherTotal(t *testing.T) {
	f := newDispatchFixture(t, false)
	rapid.Check(t, func(rt *rapid.T) {
		ep := testutil.NewRecordingEndpoint(rapid.StringMatching(`c[0-9]`).Draw(rt, "conn"))
		line := rapid.OneOf(
			rapid.StringMatching(`(?i)(register|login|logout|find_match|exit_waiting|create_room|join_room|move|chat|restart|exit_room|gameover|bogus)( [a-z0-9]{1,4}){0,3}`),
			rapid.String(),
		).Draw(rt, "line")

		reply, ok := f.d.Handle(context.Background(), ep, line)
		if ok && reply == "" {
			rt.Fatalf("empty reply for %q", line)
		}
	})
}
