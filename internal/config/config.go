// Package config handles showme configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/showme/config.yaml, /etc/showme/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "showme", "config.yaml"))
	}

	paths = append(paths, "/etc/showme/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all showme configuration.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Answer   AnswerConfig   `yaml:"answer"`
	Session  SessionConfig  `yaml:"session"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Safety   SafetyConfig   `yaml:"safety"`
	Resolver ResolverConfig `yaml:"resolver"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// TwilioConfig defines the outbound SMS transport. When AccountSID is
// empty the console sender is used and messages are logged instead of
// sent.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
}

// Configured reports whether Twilio credentials are complete.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// AnswerConfig defines the generative-answer collaborator. The endpoint
// is any OpenAI-compatible chat completions server.
type AnswerConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// SessionConfig selects the session store driver.
type SessionConfig struct {
	// Driver is "memory" (default) or "redis".
	Driver string      `yaml:"driver"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig defines the optional Redis-backed session store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// TTLHours is the session key lifetime in hours (default 24).
	TTLHours int `yaml:"ttl_hours"`
}

// TTL returns the configured key lifetime.
func (c RedisConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// MQTTConfig defines the optional show-event publisher.
type MQTTConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Broker     string `yaml:"broker"` // e.g. mqtt://broker:1883 or mqtts://...
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DeviceName string `yaml:"device_name"`
}

// SafetyConfig extends the built-in denylist with deployment-specific
// terms. Terms are matched as lower-cased substrings of topic tokens.
type SafetyConfig struct {
	ExtraBlockedTerms []string `yaml:"extra_blocked_terms"`
}

// ResolverConfig tunes the topic resolver.
type ResolverConfig struct {
	// ExtractInline enables "show me <topic>" extraction from the
	// utterance itself. Disabled, every show-request falls back to the
	// remembered session topic.
	ExtractInline *bool `yaml:"extract_inline"`
	// CacheQueries stores synthesized queries in the session for reuse
	// by later implicit requests.
	CacheQueries *bool `yaml:"cache_queries"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 5002},
		Session: SessionConfig{
			Driver: "memory",
			Redis:  RedisConfig{TTLHours: 24},
		},
		MQTT: MQTTConfig{
			DeviceName: "showme",
		},
		DataDir: ".",
	}
}
