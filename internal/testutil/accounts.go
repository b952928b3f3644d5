package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/cory-johannsen/chessrelay/internal/storage"
)

// ErrStoreDown is returned by MemoryAccounts while failing is set.
var ErrStoreDown = errors.New("account store unavailable")

// MemoryAccounts is an in-memory storage.AccountStore. Passwords are kept in
// plaintext; it exists only for tests.
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]string
	failing  bool
	calls    int
}

var _ storage.AccountStore = (*MemoryAccounts)(nil)

// NewMemoryAccounts returns an empty store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[string]string)}
}

// SetFailing makes every subsequent call return ErrStoreDown until cleared.
func (m *MemoryAccounts) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Calls returns how many Register and Verify calls were made.
func (m *MemoryAccounts) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Register stores the account unless username is taken.
func (m *MemoryAccounts) Register(_ context.Context, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failing {
		return ErrStoreDown
	}
	if _, ok := m.accounts[username]; ok {
		return storage.ErrAccountExists
	}
	m.accounts[username] = password
	return nil
}

// Verify reports whether password matches.
func (m *MemoryAccounts) Verify(_ context.Context, username, password string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failing {
		return false, ErrStoreDown
	}
	stored, ok := m.accounts[username]
	return ok && stored == password, nil
}

// Health fails while the store is failing.
func (m *MemoryAccounts) Health(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrStoreDown
	}
	return nil
}

// Close is a no-op.
func (m *MemoryAccounts) Close() error { return nil }
