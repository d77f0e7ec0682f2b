package mcp

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ContentTypeText is the type of text content
const ContentTypeText = "text"

// Content is a content item of a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the result of tools/call
type ToolResult struct {
	Content           []Content `json:"content"`
	StructuredContent any       `json:"structuredContent,omitempty"`
	IsError           bool      `json:"isError,omitempty"`
}

// NewTextResult returns a result with a single text content
func NewTextResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: ContentTypeText, Text: text}},
	}
}

// NewStructuredResult returns a result with structured content
// and its JSON representation as text content.
func NewStructuredResult(v any) (*ToolResult, error) {
	js, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool result")
	}
	return &ToolResult{
		Content:           []Content{{Type: ContentTypeText, Text: string(js)}},
		StructuredContent: v,
	}, nil
}

// Text returns concatenated text content
func (r *ToolResult) Text() string {
	var text string
	for _, c := range r.Content {
		if c.Type == ContentTypeText {
			text += c.Text
		}
	}
	return text
}
