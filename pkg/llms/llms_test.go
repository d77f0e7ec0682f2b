package llms_test

import (
	"testing"

	"github.com/effective-security/edxai/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestOutputText(t *testing.T) {
	tcases := []struct {
		name string
		resp *llms.Response
		text string
	}{
		{"empty", &llms.Response{}, ""},
		{
			name: "first message",
			resp: &llms.Response{Output: []llms.OutputItem{
				{Type: llms.OutputTypeMCPCall},
				{Type: llms.OutputTypeMessage, Content: []llms.ContentPart{
					{Type: "refusal", Text: "no"},
					{Type: llms.ContentTypeOutputText, Text: "first"},
					{Type: llms.ContentTypeOutputText, Text: "second"},
				}},
				{Type: llms.OutputTypeMessage, Content: []llms.ContentPart{
					{Type: llms.ContentTypeOutputText, Text: "other"},
				}},
			}},
			text: "first",
		},
		{
			name: "message without text",
			resp: &llms.Response{Output: []llms.OutputItem{
				{Type: llms.OutputTypeMessage},
				{Type: llms.OutputTypeMessage, Content: []llms.ContentPart{
					{Type: llms.ContentTypeOutputText, Text: "next"},
				}},
			}},
			text: "next",
		},
		{
			name: "no message",
			resp: &llms.Response{Output: []llms.OutputItem{
				{Type: llms.OutputTypeMCPCall, Content: []llms.ContentPart{
					{Type: llms.ContentTypeOutputText, Text: "ignored"},
				}},
			}},
			text: "",
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.text, tc.resp.OutputText())
		})
	}
}

func TestTotalTokens(t *testing.T) {
	assert.Equal(t, int64(0), (&llms.Response{}).TotalTokens())
	assert.Equal(t, int64(42), (&llms.Response{Usage: &llms.Usage{TotalTokens: 42}}).TotalTokens())
	assert.Equal(t, 0.5, *llms.Float(0.5))
	assert.Equal(t, int64(7), *llms.Int(7))
}
