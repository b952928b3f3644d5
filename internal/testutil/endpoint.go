package testutil

import (
	"errors"
	"sync"
)

// ErrEndpointBroken is returned by a RecordingEndpoint marked broken.
var ErrEndpointBroken = errors.New("endpoint broken")

// RecordingEndpoint captures every line sent to it.
type RecordingEndpoint struct {
	id string

	mu     sync.Mutex
	lines  []string
	broken bool
}

// NewRecordingEndpoint returns an endpoint with the given connection id.
func NewRecordingEndpoint(id string) *RecordingEndpoint {
	return &RecordingEndpoint{id: id}
}

// ID returns the connection id.
func (e *RecordingEndpoint) ID() string { return e.id }

// Send records line, or fails if the endpoint is broken.
func (e *RecordingEndpoint) Send(line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.broken {
		return ErrEndpointBroken
	}
	e.lines = append(e.lines, line)
	return nil
}

// Break makes every later Send fail.
func (e *RecordingEndpoint) Break() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broken = true
}

// Lines returns a copy of everything received so far.
func (e *RecordingEndpoint) Lines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.lines...)
}

// Last returns the most recent line, or "" if none.
func (e *RecordingEndpoint) Last() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.lines) == 0 {
		return ""
	}
	return e.lines[len(e.lines)-1]
}

// Drain returns and clears everything received so far.
func (e *RecordingEndpoint) Drain() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.lines
	e.lines = nil
	return out
}
