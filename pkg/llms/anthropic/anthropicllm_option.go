package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"
)

const (
	TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec

	// DefaultBaseURL of the Messages API
	DefaultBaseURL = "https://api.anthropic.com"
	// DefaultMCPBeta enables remote tool servers on the Messages API
	DefaultMCPBeta = anthropic.AnthropicBetaMCPClient2025_04_04
)

// Options of the backend
type Options struct {
	Token   string
	Model   string
	BaseURL string
	// MCPBeta is the `anthropic-beta` version sent with requests
	// that reference a remote tool server.
	MCPBeta anthropic.AnthropicBeta
}

type Option func(*Options)

// WithToken sets the API key, ANTHROPIC_API_KEY is used if not set.
// The API key of a request takes precedence.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel sets the model used when a request has none
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL overrides DefaultBaseURL
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		if baseURL != "" {
			opts.BaseURL = baseURL
		}
	}
}

// WithMCPBeta overrides DefaultMCPBeta
func WithMCPBeta(beta string) Option {
	return func(opts *Options) {
		if beta != "" {
			opts.MCPBeta = beta
		}
	}
}
