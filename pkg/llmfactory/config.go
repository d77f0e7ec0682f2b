package llmfactory

import (
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

const (
	// DefaultProfile is the name of the profile used when none is specified
	DefaultProfile = "default"
	// DefaultTimeout of a backend call
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// Profiles specifies named model settings used by processors.
	// Use `default` as the profile for processors with no profile.
	Profiles map[string]*Profile `json:"profiles" yaml:"profiles"`
}

// ProviderConfig for the LLM provider
type ProviderConfig struct {
	Name            string          `json:"name" yaml:"name"`
	Token           string          `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string          `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string        `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	OpenAI          OpenAIConfig    `json:"open_ai" yaml:"open_ai"`
	Anthropic       AnthropicConfig `json:"anthropic" yaml:"anthropic"`
}

// AnthropicConfig specifies options of the ANTHROPIC provider
type AnthropicConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// MCPBeta is the beta version enabling remote tool servers,
	// for example mcp-client-2025-04-04
	MCPBeta string `json:"mcp_beta,omitempty" yaml:"mcp_beta,omitempty"`
}

// OpenAIConfig specifies options config
type OpenAIConfig struct {
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|AZURE|AZURE_AD|ANTHROPIC
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

// Profile is a named model configuration
type Profile struct {
	// Name is set from the key in Config.Profiles
	Name string `json:"-" yaml:"-"`
	// Provider is the name of the provider, the default provider is used if empty
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	// Model overrides the default model of the provider
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// APIKey overrides the token of the provider
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// Timeout of a backend call, for example 30s
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Temperature is sent only when set
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// MaxTokens is sent only when set
	MaxTokens *int64 `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// MaxRetries of transient failures, 0 disables retries
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// GetTimeout returns the configured timeout or DefaultTimeout
func (p *Profile) GetTimeout() time.Duration {
	if p.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Validate returns an error if the profile has invalid values
func (p *Profile) Validate() error {
	if p.Timeout != "" {
		if d, err := time.ParseDuration(p.Timeout); err != nil || d <= 0 {
			return errors.Errorf("profile %s: invalid timeout %q", p.Name, p.Timeout)
		}
	}
	if p.MaxRetries < 0 {
		return errors.Errorf("profile %s: invalid max_retries %d", p.Name, p.MaxRetries)
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return errors.Errorf("profile %s: invalid max_tokens %d", p.Name, *p.MaxTokens)
	}
	return nil
}

// ResolveModel returns the model if it is allowed by the provider,
// or the default model of the provider if model is empty.
func (c *ProviderConfig) ResolveModel(model string) (string, error) {
	if model == "" {
		return c.DefaultModel, nil
	}
	if len(c.AvailableModels) > 0 && !slices.Contains(c.AvailableModels, model) {
		return "", errors.Errorf("model %s is not available for provider %s", model, c.Name)
	}
	return model, nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) provider(name string) *ProviderConfig {
	name = values.StringsCoalesce(name, c.DefaultProvider)
	for _, p := range c.Providers {
		if p.Name == name {
			return p
		}
	}
	if name == "" && len(c.Providers) > 0 {
		return c.Providers[0]
	}
	return nil
}
