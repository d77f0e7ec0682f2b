package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/llms"
	"github.com/effective-security/edxai/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/x/values"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
)

// StatusError is returned when the API replies with a non-200 status
type StatusError = openaiclient.StatusError

// LLM is a Backend over the OpenAI Responses API
type LLM struct {
	client *openaiclient.Client
}

var _ llms.Backend = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client: c,
	}, nil
}

func newClient(opts ...Option) (*openaiclient.Client, error) {
	options := &options{
		token:        os.Getenv(tokenEnvVarName),
		model:        os.Getenv(modelEnvVarName),
		baseURL:      os.Getenv(baseURLEnvVarName),
		organization: os.Getenv(organizationEnvVarName),
		provider:     ProviderOpenAI,
		httpClient:   http.DefaultClient,
	}

	for _, opt := range opts {
		opt(options)
	}

	if openaiclient.IsAzure(options.provider) {
		options.apiVersion = values.StringsCoalesce(options.apiVersion, DefaultAPIVersion)
		if options.model == "" {
			return nil, errors.New("openai: model is required for Azure")
		}
	}

	return openaiclient.New(options.provider, options.model, options.token,
		options.baseURL, options.organization, options.apiVersion, options.httpClient)
}

// GetProviderType implements the Backend interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	if openaiclient.IsAzure(o.client.Provider) {
		return llms.ProviderAzure
	}
	return llms.ProviderOpenAI
}

// CreateResponse implements the Backend interface.
func (o *LLM) CreateResponse(ctx context.Context, req *llms.Request) (*llms.Response, error) {
	params := ToResponseParams(req)
	resp, err := o.client.CreateResponse(ctx, req.APIKey, params)
	if err != nil {
		return nil, errors.WithMessage(err, "openai")
	}
	return FromResponse(resp), nil
}

// ToResponseParams converts the request into Responses API params,
// optional parameters are set only when present in the request.
func ToResponseParams(req *llms.Request) *responses.ResponseNewParams {
	input := make(responses.ResponseInputParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, toRole(m.Role)))
	}

	params := &responses.ResponseNewParams{
		Model: req.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxOutputTokens = param.NewOpt(*req.MaxTokens)
	}
	if req.Tool != nil {
		mcp := &responses.ToolMcpParam{
			ServerLabel: req.Tool.ServerLabel,
		}
		if req.Tool.ServerURL != "" {
			mcp.ServerURL = param.NewOpt(req.Tool.ServerURL)
		}
		if req.Tool.RequireApproval != "" {
			mcp.RequireApproval = responses.ToolMcpRequireApprovalUnionParam{
				OfMcpToolApprovalSetting: param.NewOpt(req.Tool.RequireApproval),
			}
		}
		params.Tools = []responses.ToolUnionParam{{OfMcp: mcp}}
	}
	return params
}

func toRole(role string) responses.EasyInputMessageRole {
	switch role {
	case llms.RoleSystem:
		return responses.EasyInputMessageRoleSystem
	case llms.RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	default:
		return responses.EasyInputMessageRoleUser
	}
}

// FromResponse converts the Responses API reply
func FromResponse(resp *responses.Response) *llms.Response {
	res := &llms.Response{
		Model:  string(resp.Model),
		Output: make([]llms.OutputItem, 0, len(resp.Output)),
	}
	for _, item := range resp.Output {
		out := llms.OutputItem{Type: item.Type}
		for _, c := range item.Content {
			out.Content = append(out.Content, llms.ContentPart{
				Type: c.Type,
				Text: c.Text,
			})
		}
		res.Output = append(res.Output, out)
	}
	if resp.Usage.TotalTokens > 0 || resp.Usage.InputTokens > 0 {
		res.Usage = &llms.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}
	return res
}
