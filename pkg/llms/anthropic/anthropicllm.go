package anthropic

import (
	"context"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/llms"
	"github.com/effective-security/x/values"
)

var (
	ErrMissingToken        = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrNoMessages          = errors.New("anthropic: at least one message is required")
	ErrUnsupportedRoleType = errors.New("anthropic: unsupported message role")
)

const (
	DefaultMaxTokens = 4096
)

// LLM is a Backend over the Anthropic Messages API
type LLM struct {
	Client  *anthropic.Client
	Options *Options
}

var _ llms.Backend = (*LLM)(nil)

// New creates a new Anthropic backend using the official Anthropic SDK.
//
// If no token is provided via options, it will attempt to read the API key
// from the ANTHROPIC_API_KEY environment variable.
// The API key of a request takes precedence over the token.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:   os.Getenv(TokenEnvVarName),
		BaseURL: DefaultBaseURL,
		MCPBeta: DefaultMCPBeta,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	// retries are owned by the caller
	sdkOpts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithBaseURL(options.BaseURL),
	}
	if options.Token != "" {
		sdkOpts = append(sdkOpts, option.WithAPIKey(options.Token))
	}

	c := anthropic.NewClient(sdkOpts...)
	return &LLM{
		Client:  &c,
		Options: options,
	}, nil
}

// GetProviderType implements the Backend interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// CreateResponse implements the Backend interface.
//
// System messages are joined into the system prompt,
// when only system messages are given the last one is sent as the user message.
// A request with a tool reference is sent to the beta Messages API
// with the tool server in mcp_servers.
func (o *LLM) CreateResponse(ctx context.Context, req *llms.Request) (*llms.Response, error) {
	p, err := newPrompt(req.Messages)
	if err != nil {
		return nil, err
	}

	var callOpts []option.RequestOption
	if req.APIKey != "" {
		callOpts = append(callOpts, option.WithAPIKey(req.APIKey))
	} else if o.Options.Token == "" {
		return nil, ErrMissingToken
	}

	if req.Tool != nil {
		return o.createWithTool(ctx, req, p, callOpts)
	}

	params := anthropic.MessageNewParams{
		Model:     o.model(req),
		MaxTokens: maxTokens(req),
	}
	for _, t := range p.turns {
		block := anthropic.NewTextBlock(t.text)
		if t.role == llms.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	if p.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	result, err := o.Client.Messages.New(ctx, params, callOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}

	item := llms.OutputItem{Type: llms.OutputTypeMessage}
	for _, block := range result.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			item.Content = append(item.Content, llms.ContentPart{
				Type: llms.ContentTypeOutputText,
				Text: text.Text,
			})
		}
	}
	return newResponse(string(result.Model), item, result.Usage.InputTokens, result.Usage.OutputTokens), nil
}

func (o *LLM) createWithTool(ctx context.Context, req *llms.Request, p *prompt, callOpts []option.RequestOption) (*llms.Response, error) {
	params := anthropic.BetaMessageNewParams{
		Model:     o.model(req),
		MaxTokens: maxTokens(req),
		MCPServers: []anthropic.BetaRequestMCPServerURLDefinitionParam{
			{
				Name: req.Tool.ServerLabel,
				URL:  req.Tool.ServerURL,
			},
		},
		Betas: []anthropic.AnthropicBeta{o.Options.MCPBeta},
	}
	for _, t := range p.turns {
		role := anthropic.BetaMessageParamRoleUser
		if t.role == llms.RoleAssistant {
			role = anthropic.BetaMessageParamRoleAssistant
		}
		params.Messages = append(params.Messages, anthropic.BetaMessageParam{
			Role:    role,
			Content: []anthropic.BetaContentBlockParamUnion{anthropic.NewBetaTextBlock(t.text)},
		})
	}
	if p.system != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: p.system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	result, err := o.Client.Beta.Messages.New(ctx, params, callOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}

	// tool use and tool result blocks are handled by the API,
	// only the text of the final answer is returned
	item := llms.OutputItem{Type: llms.OutputTypeMessage}
	for _, block := range result.Content {
		if text, ok := block.AsAny().(anthropic.BetaTextBlock); ok {
			item.Content = append(item.Content, llms.ContentPart{
				Type: llms.ContentTypeOutputText,
				Text: text.Text,
			})
		}
	}
	return newResponse(string(result.Model), item, result.Usage.InputTokens, result.Usage.OutputTokens), nil
}

func (o *LLM) model(req *llms.Request) anthropic.Model {
	return anthropic.Model(values.StringsCoalesce(req.Model, o.Options.Model))
}

func maxTokens(req *llms.Request) int64 {
	if req.MaxTokens != nil {
		return *req.MaxTokens
	}
	return DefaultMaxTokens
}

func newResponse(model string, item llms.OutputItem, in, out int64) *llms.Response {
	return &llms.Response{
		Model:  model,
		Output: []llms.OutputItem{item},
		Usage: &llms.Usage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}
}

type turn struct {
	role string
	text string
}

// prompt is the provider neutral form of the messages
type prompt struct {
	system string
	turns  []turn
}

func newPrompt(messages []llms.Message) (*prompt, error) {
	var system []string
	p := &prompt{}
	for _, m := range messages {
		switch m.Role {
		case llms.RoleSystem:
			system = append(system, m.Content)
		case llms.RoleUser, llms.RoleAssistant:
			p.turns = append(p.turns, turn{role: m.Role, text: m.Content})
		default:
			return nil, errors.WithMessagef(ErrUnsupportedRoleType, "role %q", m.Role)
		}
	}
	if len(p.turns) == 0 {
		if len(system) == 0 {
			return nil, ErrNoMessages
		}
		last := system[len(system)-1]
		system = system[:len(system)-1]
		p.turns = append(p.turns, turn{role: llms.RoleUser, text: last})
	}
	p.system = strings.Join(system, "\n\n")
	return p, nil
}
