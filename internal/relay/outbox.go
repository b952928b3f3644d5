package relay

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrOutboxFull is returned by Send when the client has fallen a full
	// buffer behind.
	ErrOutboxFull = errors.New("outbox buffer full")

	// ErrOutboxClosed is returned by Send after Close.
	ErrOutboxClosed = errors.New("outbox closed")
)

// Endpoint is a connected client as the relay sees it: a stable identity and
// a non-blocking way to queue one outbound line.
type Endpoint interface {
	// ID returns the connection id. It is unique for the life of the process.
	ID() string
	// Send queues line for delivery. It must not block.
	Send(line string) error
}

// Outbox is the Endpoint for one transport connection. Lines are queued on a
// bounded channel which the connection's writer goroutine drains.
type Outbox struct {
	id     string
	lines  chan string
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given connection id.
//
// Precondition: id must be non-empty.
// Postcondition: Returns an open Outbox. A non-positive size falls back to 64.
func NewOutbox(id string, size int) *Outbox {
	if size <= 0 {
		size = 64
	}
	return &Outbox{
		id:    id,
		lines: make(chan string, size),
	}
}

// ID returns the connection id.
func (o *Outbox) ID() string {
	return o.id
}

// Send queues line without blocking.
//
// Postcondition: The line is queued, or ErrOutboxClosed or ErrOutboxFull is
// returned.
func (o *Outbox) Send(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("connection %s: %w", o.id, ErrOutboxClosed)
	}
	select {
	case o.lines <- line:
		return nil
	default:
		return fmt.Errorf("connection %s: %w", o.id, ErrOutboxFull)
	}
}

// Lines returns the channel the writer goroutine drains. It is closed by Close.
func (o *Outbox) Lines() <-chan string {
	return o.lines
}

// Close stops accepting lines and closes the channel. Safe to call repeatedly.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.lines)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
