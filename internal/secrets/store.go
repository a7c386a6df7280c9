package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry names used by the session layer. Each entry has its own retention
// window; the refresh token deliberately outlives the access token.
const (
	EntryAccessToken  = "access-token"
	EntryRefreshToken = "refresh-token"
	EntryExpiry       = "session-expiry"
	EntryUserMeta     = "user-meta"
)

// Default retention windows.
const (
	RetentionAccessToken  = 24 * time.Hour
	RetentionRefreshToken = 7 * 24 * time.Hour
	RetentionUserMeta     = 7 * 24 * time.Hour
)

const stateFile = "session.json"

type entry struct {
	Value     string    `json:"value"`
	Encrypted bool      `json:"encrypted"`
	ExpiresAt time.Time `json:"expires_at"`
}

type state struct {
	Version int              `json:"version"`
	Entries map[string]entry `json:"entries"`
}

// Store persists named session entries on the local filesystem. Token
// material is sealed by the codec before it touches disk; reads that fail
// to decrypt behave exactly like misses so a corrupted state file can never
// break session rehydration.
type Store struct {
	baseDir string
	codec   *Codec

	// now is overridable in tests.
	now func() time.Time
}

// NewStore creates a session store rooted at baseDir.
// If baseDir is empty, uses ~/.scoop-admin/
func NewStore(baseDir string, codec *Codec) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".scoop-admin")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	store := &Store{baseDir: baseDir, codec: codec, now: time.Now}

	if err := store.ensureState(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("baseDir", baseDir).
		Str("keyFingerprint", codec.Fingerprint()).
		Msg("session store initialized")

	return store, nil
}

// Set encrypts value and stores it under name with the given retention.
func (s *Store) Set(name, value string, retention time.Duration) error {
	sealed, err := s.codec.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt entry %q: %w", name, err)
	}
	return s.put(name, entry{
		Value:     sealed,
		Encrypted: true,
		ExpiresAt: s.now().Add(retention),
	})
}

// SetPlain stores value without encryption. Used for the expiry entry,
// which is a plain epoch-millisecond string.
func (s *Store) SetPlain(name, value string, retention time.Duration) error {
	return s.put(name, entry{
		Value:     value,
		ExpiresAt: s.now().Add(retention),
	})
}

// Get returns the decrypted value for name. The second return is false when
// the entry is absent, past its retention window, or fails to decrypt.
// Expired entries are purged on read.
func (s *Store) Get(name string) (string, bool) {
	e, ok := s.get(name)
	if !ok {
		return "", false
	}

	if !e.Encrypted {
		return e.Value, true
	}

	value, err := s.codec.Decrypt(e.Value)
	if err != nil {
		// Treated as a miss so foreign or corrupted state never propagates.
		log.Debug().Str("name", name).Msg("entry failed to decrypt, treating as absent")
		return "", false
	}

	return value, true
}

// Clear removes a single entry. Removing an absent entry is not an error.
func (s *Store) Clear(name string) error {
	st, err := s.loadState()
	if err != nil {
		return err
	}

	if _, ok := st.Entries[name]; !ok {
		return nil
	}

	delete(st.Entries, name)

	return s.saveState(st)
}

// ClearAll removes every entry.
func (s *Store) ClearAll() error {
	st, err := s.loadState()
	if err != nil {
		return err
	}

	st.Entries = make(map[string]entry)

	if err := s.saveState(st); err != nil {
		return err
	}

	log.Debug().Msg("session store cleared")

	return nil
}

func (s *Store) get(name string) (entry, bool) {
	st, err := s.loadState()
	if err != nil {
		log.Debug().Err(err).Str("name", name).Msg("failed to load session state, treating as absent")
		return entry{}, false
	}

	e, ok := st.Entries[name]
	if !ok {
		return entry{}, false
	}

	if !e.ExpiresAt.IsZero() && !s.now().Before(e.ExpiresAt) {
		delete(st.Entries, name)
		if err := s.saveState(st); err != nil {
			log.Debug().Err(err).Str("name", name).Msg("failed to purge expired entry")
		}
		return entry{}, false
	}

	return e, true
}

func (s *Store) put(name string, e entry) error {
	st, err := s.loadState()
	if err != nil {
		return err
	}

	st.Entries[name] = e

	return s.saveState(st)
}

// ensureState creates an empty state file if it doesn't exist.
func (s *Store) ensureState() error {
	statePath := filepath.Join(s.baseDir, stateFile)

	if _, err := os.Stat(statePath); err == nil {
		return nil
	}

	return s.saveState(&state{
		Version: 1,
		Entries: make(map[string]entry),
	})
}

// loadState reads the state file.
func (s *Store) loadState() (*state, error) {
	statePath := filepath.Join(s.baseDir, stateFile)

	data, err := os.ReadFile(statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &state{Version: 1, Entries: make(map[string]entry)}, nil
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}

	if st.Entries == nil {
		st.Entries = make(map[string]entry)
	}

	return &st, nil
}

// saveState writes the state file atomically.
func (s *Store) saveState(st *state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	statePath := filepath.Join(s.baseDir, stateFile)
	tempPath := statePath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}

	if err := os.Rename(tempPath, statePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session state: %w", err)
	}

	return nil
}
