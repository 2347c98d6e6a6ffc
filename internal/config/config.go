package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/nikbrunner/bmtools/internal/model"
)

// Environment variables that override the config file.
const (
	EnvConfig   = "BMTOOLS_CONFIG"
	EnvProfile  = "BMTOOLS_PROFILE"
	EnvLogLevel = "BMTOOLS_LOG_LEVEL"
	EnvJournal  = "BMTOOLS_JOURNAL"
)

// Config holds application configuration.
type Config struct {
	// ProfilePath is the bookmark file used when a call names none.
	// Empty means the platform default.
	ProfilePath string `yaml:"profilePath"`
	// RootLabels adds path labels for the roots, label -> bar|other|synced.
	RootLabels map[string]string `yaml:"rootLabels" validate:"dive,oneof=bar other synced"`
	// Collation is the BCP 47 tag used to sort folder contents.
	Collation string `yaml:"collation" validate:"required"`
	Scan      ScanConfig   `yaml:"scan"`
	Export    ExportConfig `yaml:"export"`
	// JournalPath is the SQLite backup journal. Empty disables it.
	JournalPath    string `yaml:"journalPath"`
	UpdateChecksum bool   `yaml:"updateChecksum"`
	LogLevel       string `yaml:"logLevel" validate:"oneof=debug info warn error"`
}

// ScanConfig configures link checking.
type ScanConfig struct {
	Limit       int           `yaml:"limit" validate:"gte=1"`
	BatchSize   int           `yaml:"batchSize" validate:"gte=1,lte=100"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	SkipDomains []string      `yaml:"skipDomains"`
}

// ExportConfig configures HTML export.
type ExportConfig struct {
	// Dir is where exports are written. Empty means the working directory.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	journalPath := ""
	if dir, err := DefaultDir(); err == nil {
		journalPath = filepath.Join(dir, "journal.db")
	}
	return Config{
		RootLabels: map[string]string{},
		Collation:  "zh-TW",
		Scan: ScanConfig{
			Limit:       100,
			BatchSize:   20,
			Timeout:     10 * time.Second,
			SkipDomains: []string{},
		},
		JournalPath:    journalPath,
		UpdateChecksum: true,
		LogLevel:       "info",
	}
}

// DefaultDir returns ~/.config/bmtools.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bmtools"), nil
}

// DefaultPath returns the config file path: $BMTOOLS_CONFIG or ~/.config/bmtools/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads config from the YAML file at path, applies environment
// overrides and validates the result. A missing file yields the defaults,
// which are written to path on a best-effort basis.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Non-fatal: keep defaults even if the file cannot be created
		_ = Save(path, &config)
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	config.applyEnv()
	if config.RootLabels == nil {
		config.RootLabels = map[string]string{}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvProfile); v != "" {
		c.ProfilePath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvJournal); ok {
		c.JournalPath = v
	}
}

var validate = validator.New()

// Validate checks field ranges and the collation tag.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := language.Parse(c.Collation); err != nil {
		return fmt.Errorf("collation %q: %w", c.Collation, err)
	}
	return nil
}

// Save writes config to the YAML file.
// Creates the directory if it doesn't exist.
func Save(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// CollationTag returns the parsed collation, falling back to the default.
func (c *Config) CollationTag() language.Tag {
	tag, err := language.Parse(c.Collation)
	if err != nil {
		return model.DefaultCollation
	}
	return tag
}

// Labels returns the root labels to resolve paths with: the built-in
// labels plus the configured ones.
func (c *Config) Labels() model.RootLabels {
	extra := make(model.RootLabels, len(c.RootLabels))
	for label, root := range c.RootLabels {
		for _, r := range model.Roots {
			if r.String() == root {
				extra[label] = r
			}
		}
	}
	return model.DefaultRootLabels().Merge(extra)
}
