// Package config provides configuration management for sugicron.
// It uses koanf v2 to load configuration from a YAML file, applies defaults
// for optional settings and validates the result.
//
// Configuration is loaded from /etc/sugicron/config.yaml by default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	goyaml "gopkg.in/yaml.v3"

	"github.com/SugiPHP/Cron/internal/crontab"
	"github.com/SugiPHP/Cron/internal/executor"
	"github.com/SugiPHP/Cron/internal/hooks"
)

// DefaultConfigPath is the default location of the configuration file.
const DefaultConfigPath = "/etc/sugicron/config.yaml"

// Config holds the daemon configuration. Fields are tagged for both koanf
// (loading) and yaml (saving).
type Config struct {
	// Crontab is the path of the crontab file to schedule. Required.
	Crontab string `koanf:"crontab" yaml:"crontab"`

	// LogLevel is one of "debug", "info", "warn", "error". Default: "info".
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// Shell runs each command as `shell -c command`. Must be one of
	// executor.ValidShells, by name or absolute path. Default: "sh".
	Shell string `koanf:"shell" yaml:"shell"`

	// JobTimeout is the per-job timeout in seconds. Default: 3600.
	JobTimeout int `koanf:"job_timeout" yaml:"job_timeout"`

	// MaxParallel bounds concurrent jobs per minute. Default: 4.
	MaxParallel int `koanf:"max_parallel" yaml:"max_parallel"`

	// OnParseError is "skip" (load the valid lines, report the rest) or
	// "abort" (refuse the whole crontab). Default: "skip".
	OnParseError string `koanf:"on_parse_error" yaml:"on_parse_error"`

	// StrictFields enables per-alternative grammar and range checks at load.
	StrictFields bool `koanf:"strict_fields" yaml:"strict_fields"`

	// JournalPath is the bbolt run log. Empty disables journaling.
	JournalPath string `koanf:"journal_path" yaml:"journal_path,omitempty"`

	// JournalKeep is how many runs the journal retains. Default: 1000.
	JournalKeep int `koanf:"journal_keep" yaml:"journal_keep"`

	// JobEnv is added to the environment of every job.
	JobEnv map[string]string `koanf:"job_env" yaml:"job_env,omitempty"`

	// WebhookURL receives job events as JSON POSTs when set.
	WebhookURL string `koanf:"webhook_url" yaml:"webhook_url,omitempty"`

	// WebhookEvents lists the event kinds posted to WebhookURL.
	// Default: [end, error].
	WebhookEvents []string `koanf:"webhook_events" yaml:"webhook_events,omitempty"`

	// NATSServers is a comma-separated list of NATS URLs. When set, job
	// events are published to NATSSubject.<event>.
	NATSServers string `koanf:"nats_servers" yaml:"nats_servers,omitempty"`

	// NATSNKeySeed is an optional NKey user seed for NATS authentication.
	NATSNKeySeed string `koanf:"nats_nkey_seed" yaml:"nats_nkey_seed,omitempty"`

	// NATSSubject is the subject prefix. Default: "sugicron.events".
	NATSSubject string `koanf:"nats_subject" yaml:"nats_subject"`
}

// Validation errors returned by Load.
var (
	ErrCrontabRequired     = errors.New("crontab is required")
	ErrInvalidTimeout      = errors.New("job_timeout must be positive")
	ErrInvalidParallel     = errors.New("max_parallel must be positive")
	ErrInvalidParsePolicy  = errors.New("on_parse_error must be skip or abort")
	ErrInvalidShell        = errors.New("shell is not allowed")
	ErrInvalidJournalKeep  = errors.New("journal_keep must not be negative")
	ErrInvalidWebhookEvent = errors.New("webhook_events must list start, end or error")
	ErrInvalidJobEnv       = errors.New("job_env names must be non-empty and contain no '='")
)

// Load reads configuration from the YAML file at path, applies defaults and
// validates required fields.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Relative crontab and journal paths are relative to the config file.
	base := filepath.Dir(path)
	cfg.Crontab = resolvePath(base, cfg.Crontab)
	cfg.JournalPath = resolvePath(base, cfg.JournalPath)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Shell == "" {
		c.Shell = "sh"
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = 3600
	}
	if c.MaxParallel == 0 {
		c.MaxParallel = 4
	}
	if c.OnParseError == "" {
		c.OnParseError = "skip"
	}
	if c.JournalKeep == 0 {
		c.JournalKeep = 1000
	}
	if len(c.WebhookEvents) == 0 {
		c.WebhookEvents = []string{string(hooks.KindEnd), string(hooks.KindError)}
	}
	if c.NATSSubject == "" {
		c.NATSSubject = "sugicron.events"
	}
}

// validate checks that required fields are present and values are sane.
func (c *Config) validate() error {
	if c.Crontab == "" {
		return ErrCrontabRequired
	}
	if c.JobTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxParallel < 0 {
		return ErrInvalidParallel
	}
	if _, err := crontab.ParsePolicyFromString(c.OnParseError); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidParsePolicy, c.OnParseError)
	}
	if !executor.IsValidShell(filepath.Base(c.Shell)) {
		return fmt.Errorf("%w: %q (allowed: %v)", ErrInvalidShell, c.Shell, executor.ValidShells)
	}
	if c.JournalKeep < 0 {
		return ErrInvalidJournalKeep
	}
	for _, ev := range c.WebhookEvents {
		if _, err := hooks.ParseKind(ev); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidWebhookEvent, ev)
		}
	}
	for name := range c.JobEnv {
		if name == "" || strings.Contains(name, "=") {
			return fmt.Errorf("%w: %q", ErrInvalidJobEnv, name)
		}
	}
	return nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Timeout returns JobTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.JobTimeout) * time.Second
}

// LoadOptions returns the crontab loader options implied by the config.
func (c *Config) LoadOptions() crontab.LoadOptions {
	policy, _ := crontab.ParsePolicyFromString(c.OnParseError)
	return crontab.LoadOptions{Policy: policy, Strict: c.StrictFields}
}

// WebhookKinds returns WebhookEvents as hook kinds. Unknown names are
// dropped; Load has already rejected them.
func (c *Config) WebhookKinds() []hooks.Kind {
	kinds := make([]hooks.Kind, 0, len(c.WebhookEvents))
	for _, ev := range c.WebhookEvents {
		if k, err := hooks.ParseKind(ev); err == nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Environ returns JobEnv as sorted NAME=value pairs.
func (c *Config) Environ() []string {
	env := make([]string, 0, len(c.JobEnv))
	for name, value := range c.JobEnv {
		env = append(env, name+"="+value)
	}
	sort.Strings(env)
	return env
}

// JournalEnabled reports whether runs should be journaled.
func (c *Config) JournalEnabled() bool {
	return c.JournalPath != ""
}

// NATSEnabled reports whether job events should be published to NATS.
func (c *Config) NATSEnabled() bool {
	return c.NATSServers != ""
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := goyaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path with 0600 permissions, since it may
// hold an NKey seed.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}

	return nil
}
