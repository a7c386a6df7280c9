package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mrushidany/scoop-pos-admin-sub001/internal/api"
	"github.com/mrushidany/scoop-pos-admin-sub001/internal/secrets"
	"github.com/mrushidany/scoop-pos-admin-sub001/internal/session"
	"github.com/mrushidany/scoop-pos-admin-sub001/internal/transport"
)

type Globals struct {
	Debug   bool
	Version string
}

// ClientFlags are the connection flags shared by every command.
type ClientFlags struct {
	Server     string `help:"Back-office API URL" default:"https://localhost:8080" env:"SCOOP_SERVER"`
	StateDir   string `help:"Directory for local session state" env:"SCOOP_STATE_DIR"`
	CacheDir   string `help:"Directory for the HTTP response cache" env:"SCOOP_CACHE_DIR"`
	SessionKey string `help:"Passphrase protecting locally stored tokens" env:"SCOOP_SESSION_KEY" required:""`
	Config     string `help:"YAML config file path" env:"SCOOP_CONFIG"`
}

// fileConfig mirrors ClientFlags for the optional YAML config file. Flags
// and env take precedence over file values.
type fileConfig struct {
	Server   string `yaml:"server"`
	StateDir string `yaml:"stateDir"`
	CacheDir string `yaml:"cacheDir"`
}

func (f *ClientFlags) applyConfigFile() error {
	if f.Config == "" {
		return nil
	}

	data, err := os.ReadFile(f.Config)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if f.Server == "" || f.Server == "https://localhost:8080" {
		if cfg.Server != "" {
			f.Server = cfg.Server
		}
	}
	if f.StateDir == "" {
		f.StateDir = cfg.StateDir
	}
	if f.CacheDir == "" {
		f.CacheDir = cfg.CacheDir
	}

	return nil
}

// newSessionManager wires the codec, the session store, and the manager.
func newSessionManager(f *ClientFlags) (*session.Manager, error) {
	if err := f.applyConfigFile(); err != nil {
		return nil, err
	}

	codec, err := secrets.CodecFromPassphrase(f.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session key: %w", err)
	}

	store, err := secrets.NewStore(f.StateDir, codec)
	if err != nil {
		return nil, err
	}

	return session.NewManager(f.Server, store, nil), nil
}

// newAPIClient builds the authenticated resource client on top of the
// refreshing transport.
func newAPIClient(f *ClientFlags, globals *Globals, sessions *session.Manager) *api.Client {
	cfg := transport.Config{
		BaseURL:  f.Server,
		Debug:    globals.Debug,
		CacheDir: f.CacheDir,
	}

	httpClient := transport.NewClient(cfg, sessions, log.Logger)

	return api.NewClient(f.Server, httpClient)
}

// requireSession rehydrates the session and refuses to continue without a
// valid one.
func requireSession(sessions *session.Manager) error {
	if err := sessions.Initialize(); err != nil {
		return err
	}

	if err := sessions.Require(); err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			return fmt.Errorf("session expired, run 'scoop-admin login' again")
		}
		return fmt.Errorf("not logged in, run 'scoop-admin login' first")
	}

	return nil
}
