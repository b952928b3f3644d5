package lineproto

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/chessrelay/internal/config"
	"github.com/cory-johannsen/chessrelay/internal/testutil"
)

// echoHandler is a test SessionHandler that echoes lines back to the client.
type echoHandler struct {
	sessionCount atomic.Int32
	ended        atomic.Int32
}

func (h *echoHandler) HandleSession(_ context.Context, conn *Conn) error {
	h.sessionCount.Add(1)
	defer h.ended.Add(1)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		if line == "quit" {
			_ = conn.WriteLine("bye")
			return nil
		}
		_ = conn.WriteLine("echo: " + line)
	}
}

func testListenerConfig() config.ListenerConfig {
	return config.ListenerConfig{
		Host:         "127.0.0.1",
		Port:         0, // random port
		WriteTimeout: 5 * time.Second,
		OutboxSize:   16,
	}
}

func startAcceptor(t *testing.T, handler SessionHandler) (*Acceptor, <-chan error) {
	t.Helper()
	acc := NewAcceptor(testListenerConfig(), handler, zaptest.NewLogger(t))

	errCh := make(chan error, 1)
	go func() {
		errCh <- acc.ListenAndServe()
	}()

	require.Eventually(t, func() bool {
		return acc.IsRunning() && acc.Addr() != ""
	}, 2*time.Second, 10*time.Millisecond, "acceptor did not start in time")
	return acc, errCh
}

func TestAcceptorStartAndStop(t *testing.T) {
	handler := &echoHandler{}
	acc, errCh := startAcceptor(t, handler)

	client := testutil.NewLineClient(t, acc.Addr())
	client.Send("hello")
	client.Expect("echo: hello")
	client.Send("quit")
	client.Expect("bye")
	client.Close()

	acc.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not stop in time")
	}

	assert.Equal(t, int32(1), handler.sessionCount.Load())
	assert.False(t, acc.IsRunning())
}

func TestAcceptorMultipleClients(t *testing.T) {
	handler := &echoHandler{}
	acc, _ := startAcceptor(t, handler)
	defer acc.Stop()

	const numClients = 3
	clients := make([]*testutil.LineClient, numClients)
	for i := range numClients {
		clients[i] = testutil.NewLineClient(t, acc.Addr())
	}
	for _, c := range clients {
		c.Send("quit")
		c.Expect("bye")
	}

	assert.Eventually(t, func() bool {
		return handler.ended.Load() == numClients
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(numClients), handler.sessionCount.Load())
}

func TestAcceptorStopClosesOpenSessions(t *testing.T) {
	handler := &echoHandler{}
	acc, errCh := startAcceptor(t, handler)

	client := testutil.NewLineClient(t, acc.Addr())
	client.Send("ping")
	client.Expect("echo: ping")
	require.Eventually(t, func() bool { return acc.Sessions() == 1 }, time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		acc.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on an idle session")
	}
	assert.NoError(t, <-errCh)
	assert.Equal(t, int32(1), handler.ended.Load())
	assert.Equal(t, 0, acc.Sessions())

	acc.Stop()
}
