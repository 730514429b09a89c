package account

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(t.TempDir())
	accounts, err := s.Load()
	assert.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	want := []Account{
		{Label: "work", Name: "Ada", Email: "a@corp.com", Username: "ada-corp", Authenticated: true},
		{Label: "home", Name: "Ada", Email: "me@x.com"},
	}

	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// File permissions stay private.
	fi, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
}

func TestStoreLoadCorruptFileBacksUpAndResets(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	dir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(dir, 0700))
	corrupt := []byte(`{"not": "an array"`)
	require.NoError(t, os.WriteFile(s.Path(), corrupt, 0600))

	accounts, err := s.Load()
	assert.ErrorIs(t, err, ErrFormat)
	assert.Empty(t, accounts)

	// The original bytes survive as a backup, and the live file is gone so
	// the next save starts clean.
	backup, err := os.ReadFile(s.Path() + ".bak")
	require.NoError(t, err)
	assert.Equal(t, corrupt, backup)
	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))

	// A subsequent save works without touching the backup.
	require.NoError(t, s.Save([]Account{{Label: "x", Name: "X", Email: "x@x.com"}}))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStoreLoadSchemaViolation(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, DirName), 0700))
	// Valid JSON, but entries are missing required fields.
	bad := []byte(`[{"label": "work"}]`)
	require.NoError(t, os.WriteFile(s.Path(), bad, 0600))

	accounts, err := s.Load()
	assert.ErrorIs(t, err, ErrFormat)
	assert.Empty(t, accounts)

	backup, err := os.ReadFile(s.Path() + ".bak")
	require.NoError(t, err)
	assert.Equal(t, bad, backup)
}

func TestStoreSaveNilWritesEmptyArray(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Save(nil))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Empty(t, raw)
}

func TestStoreSaveCallsExcludeHook(t *testing.T) {
	s := NewStore(t.TempDir())
	var excluded []string
	s.Exclude = func(relPath string) error {
		excluded = append(excluded, relPath)
		return nil
	}

	require.NoError(t, s.Save([]Account{{Label: "x", Name: "X", Email: "x@x.com"}}))
	assert.Equal(t, []string{DirName + "/"}, excluded)
}

func TestStoreImportMarker(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.False(t, s.Imported())
	require.NoError(t, s.MarkImported())
	assert.True(t, s.Imported())

	// Marking again is idempotent.
	require.NoError(t, s.MarkImported())
	assert.True(t, s.Imported())
}
