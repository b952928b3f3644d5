package relay

// Queue is the FIFO of connections waiting for a random opponent.
// It performs no locking; Hub serializes access.
type Queue struct {
	entries []Endpoint
	members map[string]struct{}
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{members: make(map[string]struct{})}
}

// Push appends ep to the tail.
//
// Postcondition: ep is queued, or ErrAlreadyQueued is returned and the queue
// is unchanged.
func (q *Queue) Push(ep Endpoint) error {
	if _, ok := q.members[ep.ID()]; ok {
		return ErrAlreadyQueued
	}
	q.entries = append(q.entries, ep)
	q.members[ep.ID()] = struct{}{}
	return nil
}

// PopPair removes and returns the two oldest entries.
//
// Postcondition: Returns ok=false and leaves the queue unchanged if fewer than
// two entries are waiting.
func (q *Queue) PopPair() (first, second Endpoint, ok bool) {
	if len(q.entries) < 2 {
		return nil, nil, false
	}
	first, second = q.entries[0], q.entries[1]
	q.entries[0], q.entries[1] = nil, nil
	q.entries = q.entries[2:]
	delete(q.members, first.ID())
	delete(q.members, second.ID())
	return first, second, true
}

// Remove deletes the entry for connID. It reports whether an entry was removed.
func (q *Queue) Remove(connID string) bool {
	if _, ok := q.members[connID]; !ok {
		return false
	}
	delete(q.members, connID)
	for i, ep := range q.entries {
		if ep.ID() == connID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether connID is waiting.
func (q *Queue) Contains(connID string) bool {
	_, ok := q.members[connID]
	return ok
}

// Len returns the number of waiting connections.
func (q *Queue) Len() int {
	return len(q.entries)
}
