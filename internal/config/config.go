// Package config loads the rule synchronisation configuration.
//
// Configuration comes from an optional YAML file; anything left unset takes the defaults
// below. CLI flags and MINOS_* environment variables are layered on top by the command
// package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/minos/internal/syncerr"
	"github.com/stacklok/minos/internal/telemetry"
	"github.com/stacklok/minos/internal/versions"
)

const (
	// EnvPrefix is the prefix of environment variables read by the CLI
	EnvPrefix = "MINOS"

	// DefaultCacheDir is the rule cache root when none is configured
	DefaultCacheDir = "~/.minos/rules"

	// DefaultFetchTimeout bounds one remote fetch
	DefaultFetchTimeout = 60 * time.Second

	// DefaultMaxArchiveBytes bounds one downloaded archive
	DefaultMaxArchiveBytes int64 = 512 * 1024 * 1024

	// DefaultCleanupKeep is the retention applied after a multi-regulation sync
	DefaultCleanupKeep = 1

	// Placeholders substituted in regulation source templates
	RegulationPlaceholder = "{regulation}"
	VersionPlaceholder    = "{version}"
)

// DefaultRegulations is the regulation set synced when none is requested
var DefaultRegulations = []string{"gdpr", "ccpa", "cpra", "lgpd", "pipl", "appi"}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return errors.New("path is required")
		}

		// Resolves symlinks and cleans the path
		realPath, err := filepath.EvalSymlinks(ExpandHome(path))
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// CacheDir is the cache root; "~" is expanded
	CacheDir string `yaml:"cacheDir,omitempty"`

	// VersionOrdering is "lexical" (default) or "semver"
	VersionOrdering string `yaml:"versionOrdering,omitempty"`

	Fetch       FetchConfig       `yaml:"fetch,omitempty"`
	Regulations RegulationsConfig `yaml:"regulations,omitempty"`

	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// FetchConfig configures remote sources
type FetchConfig struct {
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	MaxArchiveBytes int64         `yaml:"maxArchiveBytes,omitempty"`

	// OCIInsecure allows plain HTTP OCI registries
	OCIInsecure bool `yaml:"ociInsecure,omitempty"`

	Git GitConfig `yaml:"git,omitempty"`
}

// GitConfig holds optional HTTP basic credentials for git sources
type GitConfig struct {
	Username string `yaml:"username,omitempty"`

	// PasswordFile is read at load time so secrets stay out of the config file
	PasswordFile string `yaml:"passwordFile,omitempty"`

	password string
}

// Password returns the password read from PasswordFile
func (g *GitConfig) Password() string {
	return g.password
}

// RegulationsConfig configures the multi-regulation sync
type RegulationsConfig struct {
	// Defaults replaces DefaultRegulations when non-empty
	Defaults []string `yaml:"defaults,omitempty"`

	// Sources maps a regulation to its source template
	Sources map[string]string `yaml:"sources,omitempty"`

	// SourceTemplate is used for regulations missing from Sources
	SourceTemplate string `yaml:"sourceTemplate,omitempty"`

	// SHA256 maps a regulation to the expected digest of its package
	SHA256 map[string]string `yaml:"sha256,omitempty"`

	// CleanupKeep is the number of versions retained per regulation, 0 disables cleanup
	CleanupKeep *int `yaml:"cleanupKeep,omitempty"`

	Retries int `yaml:"retries,omitempty"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from the configured file, or returns defaults
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Fetch.Git.loadPassword(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	c.CacheDir = ExpandHome(c.CacheDir)
	if c.VersionOrdering == "" {
		c.VersionOrdering = string(versions.OrderingLexical)
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = DefaultFetchTimeout
	}
	if c.Fetch.MaxArchiveBytes == 0 {
		c.Fetch.MaxArchiveBytes = DefaultMaxArchiveBytes
	}
	if len(c.Regulations.Defaults) == 0 {
		c.Regulations.Defaults = append([]string(nil), DefaultRegulations...)
	}
	if c.Regulations.CleanupKeep == nil {
		keep := DefaultCleanupKeep
		c.Regulations.CleanupKeep = &keep
	}
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	var errs []error
	if _, err := versions.ParseOrdering(c.VersionOrdering); err != nil {
		errs = append(errs, err)
	}
	if c.Fetch.Timeout < 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout))
	}
	if c.Fetch.MaxArchiveBytes < 0 {
		errs = append(errs, fmt.Errorf("fetch.maxArchiveBytes must be positive, got %d", c.Fetch.MaxArchiveBytes))
	}
	if c.Regulations.Retries < 0 {
		errs = append(errs, fmt.Errorf("regulations.retries must not be negative, got %d", c.Regulations.Retries))
	}
	if c.Regulations.CleanupKeep != nil && *c.Regulations.CleanupKeep < 0 {
		errs = append(errs, fmt.Errorf("regulations.cleanupKeep must not be negative, got %d", *c.Regulations.CleanupKeep))
	}
	for _, reg := range c.Regulations.Defaults {
		if err := ValidateRegulation(reg); err != nil {
			errs = append(errs, fmt.Errorf("regulations.defaults: %w", err))
		}
	}
	for reg := range c.Regulations.Sources {
		if err := ValidateRegulation(reg); err != nil {
			errs = append(errs, fmt.Errorf("regulations.sources: %w", err))
		}
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	return errors.Join(errs...)
}

// Ordering returns the parsed version ordering
func (c *Config) Ordering() versions.Ordering {
	o, err := versions.ParseOrdering(c.VersionOrdering)
	if err != nil {
		return versions.OrderingLexical
	}
	return o
}

// GetCleanupKeep returns the configured retention
func (r *RegulationsConfig) GetCleanupKeep() int {
	if r.CleanupKeep == nil {
		return DefaultCleanupKeep
	}
	return *r.CleanupKeep
}

// SourceFor resolves the source string of regulation at version
func (r *RegulationsConfig) SourceFor(regulation, version string) (string, error) {
	tmpl, ok := r.Sources[regulation]
	if !ok {
		tmpl = r.SourceTemplate
	}
	if tmpl == "" {
		return "", syncerr.Newf(syncerr.KindInvalidSource, "resolve source",
			"no source configured for regulation %q", regulation)
	}
	return strings.NewReplacer(RegulationPlaceholder, regulation, VersionPlaceholder, version).Replace(tmpl), nil
}

// ExpectedSHA256 returns the pinned digest of regulation, if any
func (r *RegulationsConfig) ExpectedSHA256(regulation string) string {
	return r.SHA256[regulation]
}

// ValidateRegulation rejects regulation identifiers that are not one visible path segment
func ValidateRegulation(name string) error {
	switch {
	case name == "":
		return syncerr.Newf(syncerr.KindInvalidSource, "validate regulation", "regulation cannot be empty")
	case name == "." || name == ".." || strings.HasPrefix(name, "."):
		return syncerr.Newf(syncerr.KindInvalidSource, "validate regulation", "invalid regulation %q", name)
	case strings.ContainsAny(name, `/\`):
		return syncerr.Newf(syncerr.KindInvalidSource, "validate regulation",
			"regulation %q must not contain path separators", name)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func (g *GitConfig) loadPassword() error {
	if g.PasswordFile == "" {
		return nil
	}
	// #nosec G304 -- the password file is chosen by the operator
	data, err := os.ReadFile(ExpandHome(g.PasswordFile))
	if err != nil {
		return fmt.Errorf("failed to read git password file: %w", err)
	}
	g.password = strings.TrimSpace(string(data))
	return nil
}
