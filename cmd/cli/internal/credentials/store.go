package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

// Sentinel errors
var (
	// ErrProfileNotFound is returned when a profile doesn't exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoDefaultProfile is returned when no default is set.
	ErrNoDefaultProfile = errors.New("no default profile set")

	// ErrInvalidProfileName is returned for names that cannot be used as keys.
	ErrInvalidProfileName = errors.New("invalid profile name")
)

var profileNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,63}$`)

// Profile is a stored login against one server.
type Profile struct {
	Name         string    `json:"name"`
	Server       string    `json:"server"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Config represents the credentials configuration file.
type Config struct {
	Version        int                `json:"version"`
	DefaultProfile string             `json:"default_profile,omitempty"`
	Profiles       map[string]Profile `json:"profiles"`
}

// Store manages profile storage on the local filesystem.
type Store struct {
	baseDir string
	now     func() time.Time
}

// NewStore creates a new profile store.
// If baseDir is empty, uses ~/.hostelsec/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".hostelsec")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	store := &Store{baseDir: baseDir, now: time.Now}

	if err := store.ensureConfig(); err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Msg("credential store initialized")

	return store, nil
}

// Save creates or replaces a profile. The first profile saved becomes the default.
func (s *Store) Save(p Profile) (*Profile, error) {
	if !profileNameRe.MatchString(p.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProfileName, p.Name)
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if existing, ok := cfg.Profiles[p.Name]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	cfg.Profiles[p.Name] = p
	if len(cfg.Profiles) == 1 {
		cfg.DefaultProfile = p.Name
	}

	if err := s.saveConfig(cfg); err != nil {
		return nil, err
	}

	log.Debug().Str("name", p.Name).Str("server", p.Server).Msg("profile saved")

	return &p, nil
}

// UpdateTokens replaces the token pair of an existing profile.
func (s *Store) UpdateTokens(name, accessToken, refreshToken string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	p, ok := cfg.Profiles[name]
	if !ok {
		return ErrProfileNotFound
	}

	p.AccessToken = accessToken
	p.RefreshToken = refreshToken
	p.UpdatedAt = s.now().UTC()
	cfg.Profiles[name] = p

	return s.saveConfig(cfg)
}

// Get retrieves a profile by name.
func (s *Store) Get(name string) (*Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	p, ok := cfg.Profiles[name]
	if !ok {
		return nil, ErrProfileNotFound
	}

	return &p, nil
}

// GetDefault retrieves the default profile.
// Returns ErrNoDefaultProfile if none is set.
func (s *Store) GetDefault() (*Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.DefaultProfile == "" {
		return nil, ErrNoDefaultProfile
	}

	return s.Get(cfg.DefaultProfile)
}

// Resolve returns the named profile, or the default when name is empty.
func (s *Store) Resolve(name string) (*Profile, error) {
	if name == "" {
		return s.GetDefault()
	}
	return s.Get(name)
}

// List returns all stored profiles and the name of the default.
func (s *Store) List() ([]Profile, string, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, "", err
	}

	profiles := make([]Profile, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		profiles = append(profiles, p)
	}

	return profiles, cfg.DefaultProfile, nil
}

// Delete removes a profile.
func (s *Store) Delete(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Profiles[name]; !ok {
		return ErrProfileNotFound
	}

	delete(cfg.Profiles, name)

	if cfg.DefaultProfile == name {
		cfg.DefaultProfile = ""
	}

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().Str("name", name).Msg("profile deleted")

	return nil
}

// SetDefault sets the default profile.
func (s *Store) SetDefault(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Profiles[name]; !ok {
		return ErrProfileNotFound
	}

	cfg.DefaultProfile = name

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().Str("name", name).Msg("default profile set")

	return nil
}

// ensureConfig creates an empty config if it doesn't exist.
func (s *Store) ensureConfig() error {
	if _, err := os.Stat(s.configPath()); err == nil {
		return nil
	}

	return s.saveConfig(&Config{
		Version:  1,
		Profiles: make(map[string]Profile),
	})
}

func (s *Store) configPath() string {
	return filepath.Join(s.baseDir, "credentials.json")
}

func (s *Store) loadConfig() (*Config, error) {
	data, err := os.ReadFile(s.configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// saveConfig writes the config file atomically. Tokens are secrets so the
// file is only readable by its owner.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := s.configPath()
	tempPath := configPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
