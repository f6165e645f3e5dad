package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	dbFileName       = "journal.db"
	settingsFileName = "config.yaml"
)

// Default custom field names on the project board. These match the fields
// the import stamps: a text field holding each row's issue id and a number
// field holding estimates.
const (
	DefaultExternalIDField = "IssueID"
	DefaultEstimateField   = "Estimate"
)

// Config holds resolved paths for the stevedore directory and its files.
type Config struct {
	StevedoreDir string // resolved .stevedore directory path
	DBPath       string // full path to journal.db
	SettingsPath string // full path to config.yaml
	EnvVarSet    bool   // whether STEVEDORE_PATH was used
}

// Resolve returns the current configuration by checking STEVEDORE_PATH
// first, then falling back to $PWD/.stevedore.
func Resolve() (*Config, error) {
	var dir string
	var envVarSet bool

	if envPath := os.Getenv("STEVEDORE_PATH"); envPath != "" {
		dir = envPath
		envVarSet = true
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cwd, ".stevedore")
	}

	return &Config{
		StevedoreDir: dir,
		DBPath:       filepath.Join(dir, dbFileName),
		SettingsPath: filepath.Join(dir, settingsFileName),
		EnvVarSet:    envVarSet,
	}, nil
}

// Exists checks if the stevedore directory and journal file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.StevedoreDir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(c.DBPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Settings are the tunables read from config.yaml.
type Settings struct {
	// ExternalIDField is the board text field stamped with each row's
	// issue id. An explicit empty value disables stamping and the
	// idempotency lookup that rides on it.
	ExternalIDField string `yaml:"external_id_field"`

	// EstimateField is the board number field for estimates. An explicit
	// empty value disables estimate writes.
	EstimateField string `yaml:"estimate_field"`

	// APIURL and GraphQLURL point at a GitHub Enterprise instance when
	// set. Empty means the public API.
	APIURL     string `yaml:"api_url"`
	GraphQLURL string `yaml:"graphql_url"`

	// MaxRetries bounds retries for rate-limited and transport failures.
	// Zero means the client default.
	MaxRetries int `yaml:"max_retries"`
}

// DefaultSettings returns the settings used when config.yaml is absent.
func DefaultSettings() Settings {
	return Settings{
		ExternalIDField: DefaultExternalIDField,
		EstimateField:   DefaultEstimateField,
	}
}

// LoadSettings reads config.yaml. Keys missing from the file keep their
// defaults; a missing file returns the defaults unchanged.
func (c *Config) LoadSettings() (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(c.SettingsPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parsing %s: %w", c.SettingsPath, err)
		}
	case os.IsNotExist(err):
		// No file; keep defaults.
	default:
		return s, fmt.Errorf("reading %s: %w", c.SettingsPath, err)
	}

	return s, nil
}

// WithEnvOverrides returns a copy with the GITHUB_API_URL and
// GITHUB_GRAPHQL_URL environment variables applied. Commands that talk to
// GitHub use the overridden copy; writers persist the file values unchanged.
func (s Settings) WithEnvOverrides() Settings {
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		s.APIURL = v
	}
	if v := os.Getenv("GITHUB_GRAPHQL_URL"); v != "" {
		s.GraphQLURL = v
	}
	return s
}

// SaveSettings writes the settings to config.yaml.
func (c *Config) SaveSettings(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.WriteFile(c.SettingsPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.SettingsPath, err)
	}
	return nil
}

// Token returns the GitHub token from the environment: GITHUB_TOKEN first,
// then GH_TOKEN. Tokens never come from flags or files, so they stay out of
// shell history and the journal.
func Token() string {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("GH_TOKEN")
}
