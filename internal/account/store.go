package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the workspace-relative directory holding gitswitch state.
	DirName = ".gitswitch"
	// FileName is the accounts file name inside DirName.
	FileName = "accounts.json"

	backupSuffix = ".bak"
	importMarker = ".imported"
)

// ErrFormat indicates the accounts file is corrupt or structurally invalid.
// Callers are expected to treat it as "no data" rather than propagate; the
// offending file has already been preserved as a backup by the time Load
// returns it.
var ErrFormat = errors.New("invalid accounts file")

// Store persists the account list for one workspace as a JSON array.
//
// There is no locking: all mutation is triggered by serialized user actions,
// so concurrent callers read-modify-write and the last write wins.
type Store struct {
	root string

	// Exclude, when set, is called after every successful save with the
	// workspace-relative path of the accounts directory so the caller can
	// keep it out of version-control tracking. Best effort: failures are
	// ignored and never fail the save.
	Exclude func(relPath string) error
}

// NewStore returns a Store rooted at the given workspace directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the absolute path of the accounts file.
func (s *Store) Path() string {
	return filepath.Join(s.root, DirName, FileName)
}

// Load reads and parses the accounts file. A missing file yields an empty
// list. A corrupt or schema-invalid file is copied to a .bak sibling, reset,
// and reported via an error wrapping ErrFormat alongside the empty list, so
// a corrupted file never bricks the caller.
func (s *Store) Load() ([]Account, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading accounts file: %w", err)
	}

	if err := validateRaw(data); err != nil {
		if errors.Is(err, ErrFormat) {
			s.backupCorrupt(path, data)
			return nil, err
		}
		return nil, err
	}

	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		s.backupCorrupt(path, data)
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return accounts, nil
}

// backupCorrupt preserves a corrupted accounts file and resets the original
// so the next save starts clean.
func (s *Store) backupCorrupt(path string, data []byte) {
	_ = os.WriteFile(path+backupSuffix, data, 0600)
	_ = os.Remove(path)
}

// Save serializes the full account list, creating the state directory if
// needed. As a side effect it asks the Exclude hook to keep the state
// directory out of version-control tracking; that is best effort and never
// fails the save.
func (s *Store) Save(accounts []Account) error {
	path := s.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	if accounts == nil {
		accounts = []Account{}
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing accounts file: %w", err)
	}

	if s.Exclude != nil {
		_ = s.Exclude(DirName + "/")
	}
	return nil
}

// Imported reports whether the one-time import notice has already been shown
// for this workspace.
func (s *Store) Imported() bool {
	_, err := os.Stat(filepath.Join(s.root, DirName, importMarker))
	return err == nil
}

// MarkImported records that the import notice has been shown. Merging itself
// still re-runs on every import; only the notification is suppressed.
func (s *Store) MarkImported() error {
	dir := filepath.Join(s.root, DirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, importMarker), []byte{}, 0600)
}
