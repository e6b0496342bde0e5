// Package credential stores endpoint passwords outside the endpoint registry.
//
// Two stores are provided: Memory, for tests and sessions without a master
// key, and File, an encrypted keyring sealed with a key derived from a master
// passphrase.
package credential

import (
	"errors"
	"strings"
	"sync"
)

// ErrLocked is returned when a keyring cannot be opened with the supplied passphrase.
var ErrLocked = errors.New("credential store locked: wrong master key")

// Getter resolves the password for an endpoint identity. A missing password
// is reported with ok=false and a nil error.
type Getter interface {
	Password(endpointID string) (password string, ok bool, err error)
}

// Store is a Getter that can also be written.
type Store interface {
	Getter
	SetPassword(endpointID, password string) error
	ClearPassword(endpointID string) error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*File)(nil)
)

// Memory keeps passwords in process memory. The zero value is ready to use.
type Memory struct {
	mu        sync.RWMutex
	passwords map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Password implements Getter.
func (m *Memory) Password(endpointID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pw, ok := m.passwords[endpointID]
	return pw, ok, nil
}

// SetPassword stores a password. An empty password clears the entry.
func (m *Memory) SetPassword(endpointID, password string) error {
	if strings.TrimSpace(endpointID) == "" {
		return errors.New("endpoint id is empty")
	}
	if password == "" {
		return m.ClearPassword(endpointID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.passwords == nil {
		m.passwords = make(map[string]string)
	}
	m.passwords[endpointID] = password
	return nil
}

// ClearPassword removes the password for an endpoint, if any.
func (m *Memory) ClearPassword(endpointID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.passwords, endpointID)
	return nil
}
