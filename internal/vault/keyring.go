package vault

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no secret is stored under the requested key.
var ErrNotFound = errors.New("secret not found")

// Keyring is the minimal surface of an OS keyring, abstracted so tests can
// substitute an in-memory implementation.
type Keyring interface {
	Get(service, user string) (string, error)
	Set(service, user, value string) error
	Delete(service, user string) error
}

// systemKeyring backs Keyring with the operating system's secret store.
type systemKeyring struct{}

func (systemKeyring) Get(service, user string) (string, error) {
	v, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (systemKeyring) Set(service, user, value string) error {
	return keyring.Set(service, user, value)
}

func (systemKeyring) Delete(service, user string) error {
	err := keyring.Delete(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// MemoryKeyring is a volatile Keyring for tests and environments without a
// system secret store.
type MemoryKeyring struct {
	mu      sync.Mutex
	secrets map[string]string
}

// NewMemoryKeyring returns an empty in-memory keyring.
func NewMemoryKeyring() *MemoryKeyring {
	return &MemoryKeyring{secrets: make(map[string]string)}
}

func (m *MemoryKeyring) key(service, user string) string {
	return service + "\x00" + user
}

// Get returns the stored secret or ErrNotFound.
func (m *MemoryKeyring) Get(service, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.secrets[m.key(service, user)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores or replaces a secret.
func (m *MemoryKeyring) Set(service, user, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[m.key(service, user)] = value
	return nil
}

// Delete removes a secret; deleting a missing key returns ErrNotFound.
func (m *MemoryKeyring) Delete(service, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(service, user)
	if _, ok := m.secrets[k]; !ok {
		return ErrNotFound
	}
	delete(m.secrets, k)
	return nil
}
