package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/edxai/pkg/llms"
	"github.com/effective-security/edxai/pkg/llms/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageBody = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-5",
	"content": [{"type": "text", "text": "Plants eat sunlight."}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 20, "output_tokens": 5}
}`

func TestNew(t *testing.T) {
	_, err := anthropic.New(anthropic.WithToken("k"))
	assert.EqualError(t, err, "anthropic: model is required")

	llm, err := anthropic.New(anthropic.WithToken("k"), anthropic.WithModel("claude-sonnet-4-5"))
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
}

func TestCreateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "request-key", r.Header.Get("X-Api-Key"))

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))

		assert.Equal(t, "claude-haiku-4-5", body["model"])
		assert.EqualValues(t, anthropic.DefaultMaxTokens, body["max_tokens"])
		assert.NotContains(t, body, "temperature")

		system := body["system"].([]any)
		require.Len(t, system, 1)
		assert.Equal(t, "Explain simply.", system[0].(map[string]any)["text"])

		messages := body["messages"].([]any)
		require.Len(t, messages, 1)
		msg := messages[0].(map[string]any)
		assert.Equal(t, "user", msg["role"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageBody))
	}))
	defer srv.Close()

	llm, err := anthropic.New(
		anthropic.WithBaseURL(srv.URL),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithToken("client-key"),
	)
	require.NoError(t, err)

	resp, err := llm.CreateResponse(context.Background(), &llms.Request{
		Model:  "claude-haiku-4-5",
		APIKey: "request-key",
		Messages: []llms.Message{
			{Role: llms.RoleSystem, Content: "Explain simply."},
			{Role: llms.RoleSystem, Content: "course_id: c1\nunit_id: u1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Plants eat sunlight.", resp.OutputText())
	assert.Equal(t, int64(25), resp.TotalTokens())
	assert.Equal(t, "claude-sonnet-4-5", resp.Model)
}

func TestCreateResponse_WithTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("beta"))
		assert.Contains(t, r.Header.Values("Anthropic-Beta"), anthropic.DefaultMCPBeta)

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))

		servers, ok := body["mcp_servers"].([]any)
		require.True(t, ok, "mcp_servers: %s", string(data))
		require.Len(t, servers, 1)
		server := servers[0].(map[string]any)
		assert.Equal(t, "url", server["type"])
		assert.Equal(t, "openedx_server", server["name"])
		assert.Equal(t, "https://lms.example.com/openedx-ai-extensions/v1/mcp", server["url"])
		assert.EqualValues(t, 0.7, body["temperature"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_2",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [
				{"type": "mcp_tool_use", "id": "t1", "name": "get_unit_content", "server_name": "openedx_server", "input": {}},
				{"type": "mcp_tool_result", "tool_use_id": "t1", "is_error": false, "content": [{"type": "text", "text": "unit"}]},
				{"type": "text", "text": "The unit is about plants."}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 7}
		}`))
	}))
	defer srv.Close()

	llm, err := anthropic.New(
		anthropic.WithBaseURL(srv.URL),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithToken("client-key"),
	)
	require.NoError(t, err)

	resp, err := llm.CreateResponse(context.Background(), &llms.Request{
		Messages: []llms.Message{
			{Role: llms.RoleSystem, Content: "Summarize."},
			{Role: llms.RoleSystem, Content: "course_id: c1\nunit_id: u1"},
		},
		Temperature: llms.Float(0.7),
		Tool: &llms.ToolReference{
			ServerLabel:     "openedx_server",
			ServerURL:       "https://lms.example.com/openedx-ai-extensions/v1/mcp",
			RequireApproval: "never",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "The unit is about plants.", resp.OutputText())
	assert.Equal(t, int64(37), resp.TotalTokens())
}

func TestCreateResponse_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	llm, err := anthropic.New(
		anthropic.WithBaseURL(srv.URL),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithToken("client-key"),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = llm.CreateResponse(ctx, &llms.Request{
		Messages: []llms.Message{{Role: llms.RoleUser, Content: "hi"}},
		Tool:     &llms.ToolReference{ServerLabel: "openedx_server", ServerURL: "http://x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: failed to create message")

	_, err = llm.CreateResponse(ctx, &llms.Request{})
	assert.ErrorIs(t, err, anthropic.ErrNoMessages)

	_, err = llm.CreateResponse(ctx, &llms.Request{
		Messages: []llms.Message{{Role: "tool", Content: "x"}},
	})
	assert.ErrorIs(t, err, anthropic.ErrUnsupportedRoleType)

	_, err = llm.CreateResponse(ctx, &llms.Request{
		Messages:    []llms.Message{{Role: llms.RoleUser, Content: "hi"}},
		Temperature: llms.Float(0.2),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: failed to create message")
}
