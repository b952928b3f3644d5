// Package handlers binds transport connections to the relay.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chessrelay/internal/frontend/lineproto"
	"github.com/cory-johannsen/chessrelay/internal/observability"
	"github.com/cory-johannsen/chessrelay/internal/relay"
)

// RelayHandler runs the read loop for one connection and owns its outbox.
type RelayHandler struct {
	dispatcher *relay.Dispatcher
	outboxSize int
	logger     *zap.Logger
}

var _ lineproto.SessionHandler = (*RelayHandler)(nil)

// NewRelayHandler creates a RelayHandler.
//
// Precondition: dispatcher and logger must be non-nil.
func NewRelayHandler(dispatcher *relay.Dispatcher, outboxSize int, logger *zap.Logger) *RelayHandler {
	return &RelayHandler{
		dispatcher: dispatcher,
		outboxSize: outboxSize,
		logger:     logger,
	}
}

// HandleSession assigns the connection an id, then reads and dispatches lines
// until the client goes away. Replies and relayed lines share one outbox, so
// the client sees them in the order they were produced.
//
// Postcondition: The connection's session, queue entry and room seat are
// released exactly once. Returns nil on a clean EOF. Every handled line gets
// its reply, or the session ends with an error wrapping relay.ErrOutboxFull.
func (h *RelayHandler) HandleSession(ctx context.Context, conn *lineproto.Conn) error {
	start := time.Now()
	box := relay.NewOutbox(uuid.NewString(), h.outboxSize)
	logger := h.logger.With(observability.ConnFields(box.ID(), conn.RemoteAddr().String())...)
	logger.Info("client connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(conn, box, logger)
	}()

	defer func() {
		h.dispatcher.Disconnect(box)
		_ = box.Close()
		wg.Wait()
		logger.Info("client disconnected", zap.Duration("duration", time.Since(start)))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		reply, ok := h.dispatcher.Handle(ctx, box, line)
		if !ok {
			continue
		}
		// A client too far behind to take its own reply is dropped.
		if err := box.Send(reply); err != nil {
			return fmt.Errorf("queueing reply: %w", err)
		}
	}
}

// writeLoop drains box to conn. A write failure closes the connection, which
// ends the read loop; later lines are discarded.
func (h *RelayHandler) writeLoop(conn *lineproto.Conn, box *relay.Outbox, logger *zap.Logger) {
	failed := false
	for line := range box.Lines() {
		if failed {
			continue
		}
		if err := conn.WriteLine(line); err != nil {
			logger.Warn("writing to client", zap.Error(err))
			failed = true
			_ = conn.Close()
		}
	}
}
