// Package vault stores remote-host tokens in the OS keyring, keyed by
// username, and keeps a cross-workspace registry of which usernames have a
// stored token. The registry is what lets an account added in one workspace
// be discovered from another.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

const (
	tokenKeyPrefix = "token-"
	registryUser   = "registry"
)

// Entry pairs a registered username with its resolved secret.
type Entry struct {
	Username string
	Secret   string
}

// Vault provides per-username secret storage plus registry maintenance.
type Vault struct {
	ring    Keyring
	service string
}

// New returns a Vault backed by the system keyring under the given service
// name.
func New(service string) *Vault {
	return NewWithKeyring(service, systemKeyring{})
}

// NewWithKeyring returns a Vault backed by an explicit Keyring. Tests use
// this with a MemoryKeyring.
func NewWithKeyring(service string, ring Keyring) *Vault {
	return &Vault{ring: ring, service: service}
}

func tokenKey(username string) string {
	return tokenKeyPrefix + username
}

// Store saves the secret for username and adds it to the registry if absent.
func (v *Vault) Store(username, secret string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if err := v.ring.Set(v.service, tokenKey(username), secret); err != nil {
		return fmt.Errorf("storing token for %s: %w", username, err)
	}

	reg, err := v.registry()
	if err != nil {
		return err
	}
	for _, u := range reg {
		if u == username {
			return nil
		}
	}
	return v.saveRegistry(append(reg, username))
}

// Get returns the secret for username, or ErrNotFound.
func (v *Vault) Get(username string) (string, error) {
	secret, err := v.ring.Get(v.service, tokenKey(username))
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: no token for %s", ErrNotFound, username)
	}
	if err != nil {
		return "", fmt.Errorf("reading token for %s: %w", username, err)
	}
	return secret, nil
}

// Delete removes the secret for username and drops it from the registry.
// Deleting an absent secret is not an error; the registry entry is still
// removed.
func (v *Vault) Delete(username string) error {
	if err := v.ring.Delete(v.service, tokenKey(username)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("deleting token for %s: %w", username, err)
	}

	reg, err := v.registry()
	if err != nil {
		return err
	}
	kept := reg[:0]
	for _, u := range reg {
		if u != username {
			kept = append(kept, u)
		}
	}
	return v.saveRegistry(kept)
}

// ListAll resolves every registered username to its secret. Registry entries
// whose secret no longer resolves (deleted externally, without a matching
// Delete call) are pruned and the trimmed registry persisted.
func (v *Vault) ListAll() ([]Entry, error) {
	reg, err := v.registry()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var alive []string
	pruned := false
	for _, username := range reg {
		secret, err := v.ring.Get(v.service, tokenKey(username))
		if errors.Is(err, ErrNotFound) {
			pruned = true
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading token for %s: %w", username, err)
		}
		alive = append(alive, username)
		entries = append(entries, Entry{Username: username, Secret: secret})
	}

	if pruned {
		if err := v.saveRegistry(alive); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Usernames returns the registered usernames in sorted order without
// resolving secrets.
func (v *Vault) Usernames() ([]string, error) {
	reg, err := v.registry()
	if err != nil {
		return nil, err
	}
	sort.Strings(reg)
	return reg, nil
}

func (v *Vault) registry() ([]string, error) {
	raw, err := v.ring.Get(v.service, registryUser)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading vault registry: %w", err)
	}
	var reg []string
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		// A mangled registry is rebuilt from scratch rather than kept broken.
		return nil, nil
	}
	return reg, nil
}

func (v *Vault) saveRegistry(reg []string) error {
	if reg == nil {
		reg = []string{}
	}
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encoding vault registry: %w", err)
	}
	if err := v.ring.Set(v.service, registryUser, string(data)); err != nil {
		return fmt.Errorf("writing vault registry: %w", err)
	}
	return nil
}
