package httptransport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/mcp/transport/httptransport"
	"github.com/effective-security/edxai/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	srv := mcp.NewServer("test", "1.0", store.NewMemorySessionStore(0))
	require.NoError(t, srv.RegisterTool(mcp.Tool{
		Name: "echo",
		Handler: func(_ context.Context, call *mcp.CallContext) (*mcp.ToolResult, error) {
			return mcp.NewTextResult(string(call.Arguments)), nil
		},
	}))
	ts := httptest.NewServer(httptransport.New(srv))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, session, body string) (*http.Response, string) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Mcp-Session-Id", session)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestHTTPTransport(t *testing.T) {
	ts := newServer(t)

	resp, body := do(t, http.MethodPost, ts.URL, "",
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := resp.Header.Get("Mcp-Session-Id")
	require.NotEmpty(t, session)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rpc mcp.Response
	require.NoError(t, json.Unmarshal([]byte(body), &rpc))
	var init mcp.InitializeResult
	require.NoError(t, json.Unmarshal(rpc.Result, &init))
	assert.Equal(t, "2025-03-26", init.ProtocolVersion)

	resp, _ = do(t, http.MethodPost, ts.URL, session, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, body = do(t, http.MethodPost, ts.URL, session,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"a":1}}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `{\"a\":1}`)

	// missing and unknown sessions
	for _, s := range []string{"", "unknown"} {
		resp, body = do(t, http.MethodPost, ts.URL, s, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, s)
		assert.Contains(t, body, "-32002")
	}

	// parse errors are JSON-RPC errors
	resp, body = do(t, http.MethodPost, ts.URL, session, `{`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "-32700")

	resp, _ = do(t, http.MethodGet, ts.URL, session, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	for range 2 {
		resp, body = do(t, http.MethodDelete, ts.URL, session, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Session destroyed", body)
	}

	resp, _ = do(t, http.MethodDelete, ts.URL, "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL, session, `{"jsonrpc":"2.0","id":4,"method":"ping"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPTransport_RejectedNotification(t *testing.T) {
	ts := newServer(t)
	resp, body := do(t, http.MethodPost, ts.URL, "gone", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "-32002")
}
