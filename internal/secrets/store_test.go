package secrets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), testCodec(t))
	require.NoError(t, err)
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		stateDir := filepath.Join(t.TempDir(), "state")

		store, err := NewStore(stateDir, testCodec(t))
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(stateDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("creates state file on initialization", func(t *testing.T) {
		tmpDir := t.TempDir()
		_, err := NewStore(tmpDir, testCodec(t))
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(tmpDir, stateFile))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})
}

func TestStore_SetGet(t *testing.T) {
	store := testStore(t)

	err := store.Set(EntryAccessToken, "a1", RetentionAccessToken)
	require.NoError(t, err)

	value, ok := store.Get(EntryAccessToken)
	require.True(t, ok)
	assert.Equal(t, "a1", value)
}

func TestStore_ValueIsCiphertextOnDisk(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir, testCodec(t))
	require.NoError(t, err)

	require.NoError(t, store.Set(EntryAccessToken, "super-secret-token", RetentionAccessToken))

	data, err := os.ReadFile(filepath.Join(tmpDir, stateFile))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret-token")
}

func TestStore_SetPlain(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir, testCodec(t))
	require.NoError(t, err)

	require.NoError(t, store.SetPlain(EntryExpiry, "1735689600000", RetentionAccessToken))

	// Expiry entry stays readable without the codec
	data, err := os.ReadFile(filepath.Join(tmpDir, stateFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "1735689600000")

	value, ok := store.Get(EntryExpiry)
	require.True(t, ok)
	assert.Equal(t, "1735689600000", value)
}

func TestStore_GetAbsent(t *testing.T) {
	store := testStore(t)

	_, ok := store.Get(EntryRefreshToken)
	assert.False(t, ok)
}

func TestStore_RetentionExpiryPurgesEntry(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Set(EntryAccessToken, "a1", 24*time.Hour))

	// Advance the clock past the retention window
	store.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, ok := store.Get(EntryAccessToken)
	assert.False(t, ok)

	// Entry was purged, not just hidden
	st, err := store.loadState()
	require.NoError(t, err)
	_, exists := st.Entries[EntryAccessToken]
	assert.False(t, exists)
}

func TestStore_CorruptEntryIsAMiss(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir, testCodec(t))
	require.NoError(t, err)

	require.NoError(t, store.Set(EntryAccessToken, "a1", RetentionAccessToken))

	// Corrupt the sealed value in place
	statePath := filepath.Join(tmpDir, stateFile)
	data, err := os.ReadFile(statePath)
	require.NoError(t, err)

	var st state
	require.NoError(t, json.Unmarshal(data, &st))
	e := st.Entries[EntryAccessToken]
	e.Value = "not-real-ciphertext"
	st.Entries[EntryAccessToken] = e
	data, err = json.Marshal(st)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(statePath, data, 0600))

	_, ok := store.Get(EntryAccessToken)
	assert.False(t, ok)
}

func TestStore_ForeignKeyIsAMiss(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir, testCodec(t))
	require.NoError(t, err)
	require.NoError(t, store.Set(EntryRefreshToken, "r1", RetentionRefreshToken))

	// Reopen the same state with a different key
	otherCodec, err := CodecFromPassphrase("rotated-passphrase")
	require.NoError(t, err)
	reopened, err := NewStore(tmpDir, otherCodec)
	require.NoError(t, err)

	_, ok := reopened.Get(EntryRefreshToken)
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Set(EntryAccessToken, "a1", RetentionAccessToken))
	require.NoError(t, store.Clear(EntryAccessToken))

	_, ok := store.Get(EntryAccessToken)
	assert.False(t, ok)

	// Clearing an absent entry is fine
	require.NoError(t, store.Clear(EntryAccessToken))
}

func TestStore_ClearAll(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Set(EntryAccessToken, "a1", RetentionAccessToken))
	require.NoError(t, store.Set(EntryRefreshToken, "r1", RetentionRefreshToken))
	require.NoError(t, store.SetPlain(EntryExpiry, "123", RetentionAccessToken))

	require.NoError(t, store.ClearAll())

	for _, name := range []string{EntryAccessToken, EntryRefreshToken, EntryExpiry} {
		_, ok := store.Get(name)
		assert.False(t, ok, name)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	codec := testCodec(t)

	store, err := NewStore(tmpDir, codec)
	require.NoError(t, err)
	require.NoError(t, store.Set(EntryRefreshToken, "r1", RetentionRefreshToken))

	reopened, err := NewStore(tmpDir, codec)
	require.NoError(t, err)

	value, ok := reopened.Get(EntryRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "r1", value)
}
