// Package processor calls an LLM backend with a fixed system instruction
// per function and returns a result that never carries an error across the boundary.
package processor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/llmfactory"
	"github.com/effective-security/edxai/pkg/llms"
	"github.com/effective-security/edxai/pkg/metricskey"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "processor")

// Supported functions
const (
	FunctionSummarizeContent = "summarize_content"
	FunctionExplainLikeFive  = "explain_like_five"
)

// Tool reference defaults
const (
	DefaultServerLabel     = "openedx_server"
	DefaultRequireApproval = "never"
)

// StatusSuccess is the status of a successful result
const StatusSuccess = "success"

// ErrAPIKeyNotConfigured is reported when the profile has no API key
var ErrAPIKeyNotConfigured = errors.New("AI API key not configured")

var systemRoles = map[string]string{
	FunctionSummarizeContent: "You are an assistant that summarizes educational content. " +
		"Summarize the content clearly and accurately for a learner. " +
		"Keep the most important ideas and leave out minor details. " +
		"Keep the summary short, no more than one paragraph.",
	FunctionExplainLikeFive: "You are a friendly teacher who explains things to young children. " +
		"Explain the content in very simple words, like you're talking to a 5-year-old. " +
		"Use short sentences, simple words, and make it fun and easy to understand. " +
		"Keep your explanation very brief - no more than 3-4 simple sentences.",
}

// Functions returns the names of supported functions
func Functions() []string {
	return []string{FunctionExplainLikeFive, FunctionSummarizeContent}
}

// UnknownFunctionError is returned for functions that are not supported
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return "unknown processor function: " + e.Name
}

// MCPConfig is the remote tool server the model may call
type MCPConfig struct {
	ServerLabel     string `json:"server_label,omitempty" yaml:"server_label,omitempty"`
	ServerURL       string `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	RequireApproval string `json:"require_approval,omitempty" yaml:"require_approval,omitempty"`
}

// Config of the processor
type Config struct {
	// Profile is the LLM profile name, the default profile is used if empty
	Profile string `json:"config,omitempty" yaml:"config,omitempty"`
	// Function is the processing function, summarize_content is used if empty
	Function string `json:"function,omitempty" yaml:"function,omitempty"`
	// MCP enables tool use when the server URL is set
	MCP *MCPConfig `json:"mcp_config,omitempty" yaml:"mcp_config,omitempty"`
}

// Result is the outcome of processing.
// A result with Error set is a failure, all other members are empty then.
type Result struct {
	Response   string `json:"response,omitempty"`
	TokensUsed int64  `json:"tokens_used,omitempty"`
	ModelUsed  string `json:"model_used,omitempty"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Failed returns true if the result is an error
func (r *Result) Failed() bool {
	return r.Error != ""
}

// newBackOff is replaced in tests
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// Processor calls the backend of the configured profile
type Processor struct {
	function string
	system   string
	profile  *llmfactory.Profile
	backend  llms.Backend
	tool     *llms.ToolReference
}

// New returns a processor for the config
func New(cfg Config, factory llmfactory.Factory) (*Processor, error) {
	function := values.StringsCoalesce(cfg.Function, FunctionSummarizeContent)
	system, ok := systemRoles[function]
	if !ok {
		return nil, &UnknownFunctionError{Name: function}
	}

	profile, err := factory.Profile(cfg.Profile)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to resolve LLM profile")
	}
	backend, err := factory.Backend(profile)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create LLM backend")
	}

	if profile.APIKey == "" {
		logger.KV(xlog.ERROR, "reason", "no_api_key", "profile", profile.Name)
	}

	p := &Processor{
		function: function,
		system:   system,
		profile:  profile,
		backend:  backend,
	}
	if cfg.MCP != nil && cfg.MCP.ServerURL != "" {
		p.tool = &llms.ToolReference{
			ServerLabel:     values.StringsCoalesce(cfg.MCP.ServerLabel, DefaultServerLabel),
			ServerURL:       cfg.MCP.ServerURL,
			RequireApproval: values.StringsCoalesce(cfg.MCP.RequireApproval, DefaultRequireApproval),
		}
	}
	return p, nil
}

// Function returns the processing function
func (p *Processor) Function() string {
	return p.function
}

// Model returns the model of the profile
func (p *Processor) Model() string {
	return p.profile.Model
}

// Process sends the input as the context of the function
func (p *Processor) Process(ctx context.Context, input string) *Result {
	return p.ProcessMessages(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: input},
	})
}

// ProcessMessages sends the messages after the system instruction of the function
func (p *Processor) ProcessMessages(ctx context.Context, messages []llms.Message) *Result {
	if p.profile.APIKey == "" {
		return &Result{Error: ErrAPIKeyNotConfigured.Error()}
	}

	req := &llms.Request{
		Model:       p.profile.Model,
		Messages:    append([]llms.Message{{Role: llms.RoleSystem, Content: p.system}}, messages...),
		APIKey:      p.profile.APIKey,
		Temperature: p.profile.Temperature,
		MaxTokens:   p.profile.MaxTokens,
		Tool:        p.tool,
	}

	started := time.Now()
	defer metricskey.PerfLLMCall.MeasureSince(started, p.function, p.profile.Model)

	resp, err := p.call(ctx, req)
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, p.function, p.profile.Model)
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "llm_call",
			"function", p.function,
			"profile", p.profile.Name,
			"model", p.profile.Model,
			"err", err.Error(),
		)
		return &Result{Error: "AI processing failed: " + err.Error()}
	}

	tokens := resp.TotalTokens()
	metricskey.StatsLLMCallsSucceeded.IncrCounter(1, p.function, p.profile.Model)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokens), p.function, p.profile.Model)

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "llm_call",
		"function", p.function,
		"model", p.profile.Model,
		"tokens", tokens,
		"duration", time.Since(started).String(),
	)

	return &Result{
		Response:   resp.OutputText(),
		TokensUsed: tokens,
		ModelUsed:  p.profile.Model,
		Status:     StatusSuccess,
	}
}

func (p *Processor) call(ctx context.Context, req *llms.Request) (*llms.Response, error) {
	var resp *llms.Response
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.profile.GetTimeout())
		defer cancel()

		var err error
		resp, err = p.backend.CreateResponse(callCtx, req)
		if err != nil {
			if ctx.Err() != nil || !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if resp == nil {
			return backoff.Permanent(errors.New("empty response"))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		metricskey.StatsLLMCallsRetried.IncrCounter(1, p.function, p.profile.Model)
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "retry",
			"function", p.function,
			"wait", wait.String(),
			"err", err.Error(),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(p.profile.MaxRetries)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

type temporary interface {
	Temporary() bool
}

// isTransient returns true for per-call timeouts and errors reporting a temporary condition
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}
