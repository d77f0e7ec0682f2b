// Package config provides the service configuration.
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/pkg/llmfactory"
	"github.com/effective-security/edxai/workflows"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

// Defaults
const (
	DefaultListenAddr   = ":8080"
	DefaultServerName   = "openedx_server"
	DefaultReapInterval = time.Minute
	DefaultRedisPrefix  = "edxai"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Event sinks
const (
	SinkNone  = "none"
	SinkLog   = "log"
	SinkRedis = "redis"
)

// Config of the service
type Config struct {
	HTTP         HTTP              `json:"http" yaml:"http"`
	MCP          MCP               `json:"mcp" yaml:"mcp"`
	Redis        Redis             `json:"redis" yaml:"redis"`
	LLM          llmfactory.Config `json:"llm" yaml:"llm"`
	Workflows    workflows.Configs `json:"workflows" yaml:"workflows"`
	ContentStore ContentStore      `json:"content_store" yaml:"content_store"`
	Events       Events            `json:"events" yaml:"events"`
}

// HTTP server settings
type HTTP struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
}

// MCP server settings
type MCP struct {
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	// SessionTTL is the idle timeout of sessions, for example 30m
	SessionTTL string `json:"session_ttl,omitempty" yaml:"session_ttl,omitempty"`
	// ReapInterval of the memory session store
	ReapInterval       string `json:"reap_interval,omitempty" yaml:"reap_interval,omitempty"`
	StrictRegistration bool   `json:"strict_registration,omitempty" yaml:"strict_registration,omitempty"`
	// SessionStore is memory or redis
	SessionStore  string `json:"session_store,omitempty" yaml:"session_store,omitempty"`
	Instructions  string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	PageSize      int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	WorkflowStore string `json:"workflow_store,omitempty" yaml:"workflow_store,omitempty"`
}

// Redis connection settings
type Redis struct {
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// ContentStore settings, the memory store is used when BaseURL is empty
type ContentStore struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Events settings
type Events struct {
	// Sink is none, log or redis
	Sink        string `json:"sink,omitempty" yaml:"sink,omitempty"`
	Channel     string `json:"channel,omitempty" yaml:"channel,omitempty"`
	PlatformURL string `json:"platform_url,omitempty" yaml:"platform_url,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`
	Workers     int    `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Load returns the configuration from file with environment variables expanded
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
		return nil, errors.WithMessagef(err, "failed to load config %s", file)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.HTTP.ListenAddr = values.StringsCoalesce(c.HTTP.ListenAddr, DefaultListenAddr)
	c.MCP.ServerName = values.StringsCoalesce(c.MCP.ServerName, DefaultServerName)
	c.MCP.SessionStore = values.StringsCoalesce(c.MCP.SessionStore, StoreMemory)
	c.MCP.WorkflowStore = values.StringsCoalesce(c.MCP.WorkflowStore, c.MCP.SessionStore)
	c.MCP.PageSize = values.NumbersCoalesce(c.MCP.PageSize, mcp.DefaultPageSize)
	c.Redis.Prefix = values.StringsCoalesce(c.Redis.Prefix, DefaultRedisPrefix)
	c.Events.Sink = values.StringsCoalesce(c.Events.Sink, SinkLog)
}

// Validate returns an error for inconsistent settings
func (c *Config) Validate() error {
	for _, d := range []string{c.MCP.SessionTTL, c.MCP.ReapInterval, c.ContentStore.Timeout} {
		if d == "" {
			continue
		}
		if v, err := time.ParseDuration(d); err != nil || v <= 0 {
			return errors.Errorf("invalid duration: %q", d)
		}
	}
	for _, kind := range []string{c.MCP.SessionStore, c.MCP.WorkflowStore} {
		switch kind {
		case StoreMemory:
		case StoreRedis:
			if c.Redis.URL == "" {
				return errors.New("redis.url is required for the redis store")
			}
		default:
			return errors.Errorf("unsupported store: %q", kind)
		}
	}
	switch c.Events.Sink {
	case SinkNone, SinkLog:
	case SinkRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis event sink")
		}
	default:
		return errors.Errorf("unsupported event sink: %q", c.Events.Sink)
	}
	if err := c.Workflows.Validate(); err != nil {
		return err
	}
	for name, p := range c.LLM.Profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SessionTTL returns the session idle timeout
func (c *Config) SessionTTL() time.Duration {
	return duration(c.MCP.SessionTTL, mcp.DefaultSessionTTL)
}

// ReapInterval returns the interval of the memory session reaper
func (c *Config) ReapInterval() time.Duration {
	return duration(c.MCP.ReapInterval, DefaultReapInterval)
}

// ContentStoreTimeout returns the timeout of content requests
func (c *Config) ContentStoreTimeout() time.Duration {
	return duration(c.ContentStore.Timeout, 0)
}

func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
