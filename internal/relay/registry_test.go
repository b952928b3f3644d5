package relay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/chessrelay/internal/testutil"
)

func TestRegistry_AddAndLookup(t *testing.T) {
	r := NewRegistry()
	ep := testutil.NewRecordingEndpoint("c1")

	sess, err := r.Add("alice", ep)
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.NotEmpty(t, sess.ID)

	got, ok := r.ByUser("alice")
	require.True(t, ok)
	assert.Same(t, sess, got)

	got, ok = r.ByConn("c1")
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SecondLoginRejectedWithoutDisplacing(t *testing.T) {
	r := NewRegistry()
	first := testutil.NewRecordingEndpoint("c1")
	second := testutil.NewRecordingEndpoint("c2")

	_, err := r.Add("alice", first)
	require.NoError(t, err)

	_, err = r.Add("alice", second)
	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)

	sess, ok := r.ByUser("alice")
	require.True(t, ok)
	assert.Equal(t, "c1", sess.Endpoint.ID())
	_, ok = r.ByConn("c2")
	assert.False(t, ok)
}

func TestRegistry_ConnectionHoldsOneSession(t *testing.T) {
	r := NewRegistry()
	ep := testutil.NewRecordingEndpoint("c1")

	_, err := r.Add("alice", ep)
	require.NoError(t, err)
	_, err = r.Add("bob", ep)
	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)
	_, ok := r.ByUser("bob")
	assert.False(t, ok)
}

func TestRegistry_UsernamesAreCaseSensitive(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("alice", testutil.NewRecordingEndpoint("c1"))
	require.NoError(t, err)
	_, err = r.Add("Alice", testutil.NewRecordingEndpoint("c2"))
	assert.NoError(t, err)
}

func TestRegistry_RemoveByConn(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("alice", testutil.NewRecordingEndpoint("c1"))
	require.NoError(t, err)

	sess, ok := r.RemoveByConn("c1")
	require.True(t, ok)
	assert.Equal(t, "alice", sess.Username)

	_, ok = r.RemoveByConn("c1")
	assert.False(t, ok, "removal is idempotent")
	_, ok = r.ByUser("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	_, err = r.Add("alice", testutil.NewRecordingEndpoint("c2"))
	assert.NoError(t, err)
}

func TestPropertyRegistryIndexesAgree(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := NewRegistry()
		users := []string{"u0", "u1", "u2", "u3"}
		conns := []string{"c0", "c1", "c2", "c3", "c4"}

		ops := rapid.IntRange(1, 60).Draw(rt, "ops")
		for i := range ops {
			conn := rapid.SampledFrom(conns).Draw(rt, fmt.Sprintf("conn%d", i))
			if rapid.Bool().Draw(rt, fmt.Sprintf("add%d", i)) {
				user := rapid.SampledFrom(users).Draw(rt, fmt.Sprintf("user%d", i))
				_, _ = r.Add(user, testutil.NewRecordingEndpoint(conn))
			} else {
				r.RemoveByConn(conn)
			}

			if len(r.byUser) != len(r.byConn) {
				rt.Fatalf("index sizes diverged: %d users, %d conns", len(r.byUser), len(r.byConn))
			}
			for user, sess := range r.byUser {
				if sess.Username != user {
					rt.Fatalf("session for %s carries username %s", user, sess.Username)
				}
				if r.byConn[sess.Endpoint.ID()] != sess {
					rt.Fatalf("reverse index missing %s", sess.Endpoint.ID())
				}
			}
		}
	})
}
