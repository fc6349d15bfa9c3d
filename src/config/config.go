// Package config provides configuration management for the status relay.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"status-relay/src/contracts"
)

// Relay modes.
const (
	ModeDirect = "direct"
	ModeQueued = "queued"
)

// GeneraliDEAlias is the token name historically routed to GENERALI_DE_TOKEN.
const GeneraliDEAlias = "generali_de"

// Config holds the application configuration. It is read once at startup and not
// modified afterwards.
type Config struct {
	// RESTAPI is the base URL of the source-hosting REST API, e.g. https://gitlab.com/api/v4/.
	RESTAPI string `env:"REST_API"`
	// Token is the default bearer credential.
	Token string `env:"TOKEN"`
	// GeneraliDEToken is the credential for the generali_de alias.
	GeneraliDEToken string `env:"GENERALI_DE_TOKEN"`
	// TokenAliases holds further alias credentials ("alias:token,alias2:token2").
	TokenAliases map[string]string `env:"TOKEN_ALIASES" envSeparator:"," envKeyValSeparator:":"`

	Port      int    `env:"PORT" envDefault:"3000"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Mode          string   `env:"RELAY_MODE" envDefault:"direct"`
	Brokers       []string `env:"REDPANDA_BROKERS" envSeparator:","`
	Topic         string   `env:"RELAY_TOPIC" envDefault:"status-relay.requests"`
	ConsumerGroup string   `env:"RELAY_CONSUMER_GROUP" envDefault:"status-relay-forwarder"`

	// DatabaseURL selects the Postgres delivery log; empty keeps it in memory.
	DatabaseURL string `env:"DATABASE_URL"`

	// ForwardTimeout bounds each outbound request; zero means no timeout.
	ForwardTimeout time.Duration `env:"FORWARD_TIMEOUT" envDefault:"0s"`
	// ForwardRetryMax is the number of extra attempts on retryable failures.
	ForwardRetryMax int `env:"FORWARD_RETRY_MAX" envDefault:"0"`
	// DedupeTTL suppresses identical webhooks inside the window; zero disables it.
	DedupeTTL       time.Duration `env:"DEDUPE_TTL" envDefault:"0s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return finish(&cfg)
}

// LoadFromMap loads configuration from the given variables instead of the process environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return finish(&cfg)
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func finish(cfg *Config) (*Config, error) {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Topic == "" {
		cfg.Topic = contracts.RelayTopic
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = contracts.RelayConsumerGroup
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeDirect, ModeQueued:
	default:
		return fmt.Errorf("RELAY_MODE must be %q or %q, got %q", ModeDirect, ModeQueued, c.Mode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.ForwardRetryMax < 0 {
		return fmt.Errorf("FORWARD_RETRY_MAX must not be negative, got %d", c.ForwardRetryMax)
	}
	if c.RESTAPI != "" {
		u, err := url.Parse(c.RESTAPI)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("REST_API must be an absolute http(s) URL, got %q", c.RESTAPI)
		}
	}
	return nil
}

// RequireForwarding checks the settings needed to post commit statuses.
func (c *Config) RequireForwarding() error {
	if c.RESTAPI == "" {
		return fmt.Errorf("REST_API environment variable is required")
	}
	if c.Token == "" {
		return fmt.Errorf("TOKEN environment variable is required")
	}
	return nil
}

// Aliases returns every alias credential, including GENERALI_DE_TOKEN.
// An explicit TOKEN_ALIASES entry for generali_de wins over GENERALI_DE_TOKEN.
func (c *Config) Aliases() map[string]string {
	aliases := make(map[string]string, len(c.TokenAliases)+1)
	if c.GeneraliDEToken != "" {
		aliases[GeneraliDEAlias] = c.GeneraliDEToken
	}
	for name, token := range c.TokenAliases {
		aliases[strings.TrimSpace(name)] = strings.TrimSpace(token)
	}
	return aliases
}

// Distributed reports whether the queue is an external Redpanda cluster.
func (c *Config) Distributed() bool {
	return len(c.Brokers) > 0
}

// ListenAddr is the address the webhook server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
