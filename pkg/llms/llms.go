package llms

//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llms_mock.gen.go -package mockllms

import (
	"context"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI Responses API provider.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAzure is the Azure OpenAI provider.
	ProviderAzure ProviderType = "AZURE"
	// ProviderAnthropic is the Anthropic Messages API provider.
	ProviderAnthropic ProviderType = "ANTHROPIC"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Output item and content part types
const (
	OutputTypeMessage     = "message"
	OutputTypeMCPCall     = "mcp_call"
	ContentTypeOutputText = "output_text"
)

// Backend is implemented by LLM providers
type Backend interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// CreateResponse sends the request and returns the normalized response.
	CreateResponse(ctx context.Context, req *Request) (*Response, error)
}

// Message is a single input message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolReference is a remote tool server the model may call
type ToolReference struct {
	ServerLabel     string `json:"server_label"`
	ServerURL       string `json:"server_url"`
	RequireApproval string `json:"require_approval"`
}

// Request is a provider independent request.
// Optional parameters are sent only when set.
type Request struct {
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages"`
	APIKey      string         `json:"-"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int64         `json:"max_tokens,omitempty"`
	Tool        *ToolReference `json:"tool,omitempty"`
}

// ContentPart is a typed part of an output item
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// OutputItem is an item produced by the model
type OutputItem struct {
	Type    string        `json:"type"`
	Content []ContentPart `json:"content,omitempty"`
}

// Usage reports token consumption
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Response is a provider independent response
type Response struct {
	Model  string       `json:"model"`
	Output []OutputItem `json:"output"`
	Usage  *Usage       `json:"usage,omitempty"`
}

// OutputText returns the text of the first "output_text" part
// found in "message" items, or empty string.
func (r *Response) OutputText() string {
	for _, item := range r.Output {
		if item.Type != OutputTypeMessage {
			continue
		}
		for _, part := range item.Content {
			if part.Type == ContentTypeOutputText {
				return part.Text
			}
		}
	}
	return ""
}

// TotalTokens returns the total tokens, or 0 if usage is not reported
func (r *Response) TotalTokens() int64 {
	if r.Usage == nil {
		return 0
	}
	return r.Usage.TotalTokens
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v
func Int(v int64) *int64 {
	return &v
}
