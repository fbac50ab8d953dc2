// Package config handles the XDG configuration directory, config file and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "dialdesk"

	// ConfigFile is the optional YAML settings filename.
	ConfigFile = "config.yaml"

	// StateFile is the sqlite database holding durable client-local state.
	StateFile = "state.db"

	// EnvFile is the dotenv filename looked up in the working and config directories.
	EnvFile = ".env"

	// EnvPrefix prefixes every environment override, e.g. DIALDESK_API_URL.
	EnvPrefix = "DIALDESK"

	// DefaultAPIURL is the versioned API base used when nothing is configured.
	DefaultAPIURL = "http://localhost:8000/api/v1"

	// DefaultHistoryLimit is the number of chat messages hydrated on bootstrap.
	DefaultHistoryLimit = 50

	// DefaultAPITimeout bounds every single API call.
	DefaultAPITimeout = 15 * time.Second
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// APIURL is the versioned API base, e.g. https://api.example.com/api/v1.
	APIURL string

	// Token overrides the stored auth token (DIALDESK_TOKEN).
	Token string

	// ActorPhone and ActorEmail identify the human on task submissions.
	ActorPhone string
	ActorEmail string

	// ProjectID scopes task submissions.
	ProjectID string

	// HistoryLimit caps chat history hydration.
	HistoryLimit int

	// APITimeout bounds each API call.
	APITimeout time.Duration
}

// New creates a new Config with the default or specified config directory
// and built-in defaults. It does not read files; see Load.
// If configDir is empty, uses XDG_CONFIG_HOME/dialdesk or $HOME/.config/dialdesk.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:          dir,
		APIURL:       DefaultAPIURL,
		HistoryLimit: DefaultHistoryLimit,
		APITimeout:   DefaultAPITimeout,
	}, nil
}

// Load creates a Config and layers, lowest first: defaults, config.yaml in the
// config dir, .env files (working dir, then config dir), and DIALDESK_* env vars.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if err := loadDotenv(EnvFile, filepath.Join(cfg.Dir, EnvFile)); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("api_url", cfg.APIURL)
	v.SetDefault("history_limit", cfg.HistoryLimit)
	v.SetDefault("api_timeout", cfg.APITimeout)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"token", "actor_phone", "actor_email", "project_id"} {
		_ = v.BindEnv(key)
	}

	if _, err := os.Stat(cfg.FilePath()); err == nil {
		v.SetConfigFile(cfg.FilePath())
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	}

	cfg.APIURL = strings.TrimRight(v.GetString("api_url"), "/")
	cfg.Token = v.GetString("token")
	cfg.ActorPhone = v.GetString("actor_phone")
	cfg.ActorEmail = v.GetString("actor_email")
	cfg.ProjectID = v.GetString("project_id")
	cfg.HistoryLimit = v.GetInt("history_limit")
	cfg.APITimeout = v.GetDuration("api_timeout")

	if cfg.APIURL == "" {
		return nil, errors.New("api_url must not be empty")
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = DefaultAPITimeout
	}
	return cfg, nil
}

// loadDotenv loads each existing file. Real environment variables win.
func loadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("invalid %s: %w", p, err)
		}
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to config.yaml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// StatePath returns the path to the local state database.
func (c *Config) StatePath() string {
	return filepath.Join(c.Dir, StateFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasState checks if the local state database exists.
func (c *Config) HasState() bool {
	_, err := os.Stat(c.StatePath())
	return err == nil
}
