package localtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp"
)

// ClientName is sent in initialize by default
const ClientName = "edxai-client"

// Client is a protocol client over a Handler
type Client struct {
	handler Handler
	headers map[string]string
	nextID  atomic.Int64

	lock      sync.RWMutex
	sessionID string
}

// NewClient returns a client using the handler
func NewClient(h Handler) *Client {
	return &Client{
		handler: h,
		headers: make(map[string]string),
	}
}

// WithHeader adds a header to every request
func (c *Client) WithHeader(key, value string) *Client {
	c.headers[key] = value
	return c
}

// SessionID returns the current session
func (c *Client) SessionID() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.sessionID
}

// Initialize creates a session and confirms it with notifications/initialized
func (c *Client) Initialize(ctx context.Context, name, version string) (*mcp.InitializeResult, error) {
	params := &mcp.InitializeParams{
		ProtocolVersion: mcp.LatestProtocolVersion,
		ClientInfo:      &mcp.Implementation{Name: name, Version: version},
	}
	if params.ClientInfo.Name == "" {
		params.ClientInfo.Name = ClientName
	}

	var res mcp.InitializeResult
	resp, err := c.call(ctx, mcp.MethodInitialize, params, &res)
	if err != nil {
		return nil, err
	}
	sessionID := resp.Headers[HeaderSessionID]
	if sessionID == "" {
		return nil, errors.New("server did not return a session")
	}
	c.lock.Lock()
	c.sessionID = sessionID
	c.lock.Unlock()

	if err = c.notify(ctx, mcp.MethodInitialized); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ping checks the session
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, mcp.MethodPing, nil, nil)
	return err
}

// ListTools returns a page of tools
func (c *Client) ListTools(ctx context.Context, cursor string) (*mcp.ListToolsResult, error) {
	var res mcp.ListToolsResult
	if _, err := c.call(ctx, mcp.MethodListTools, &mcp.ListToolsParams{Cursor: cursor}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListAllTools follows the cursor until all tools are returned
func (c *Client) ListAllTools(ctx context.Context) ([]mcp.ToolInfo, error) {
	var (
		list   []mcp.ToolInfo
		cursor string
	)
	for {
		page, err := c.ListTools(ctx, cursor)
		if err != nil {
			return nil, err
		}
		list = append(list, page.Tools...)
		if page.NextCursor == "" {
			return list, nil
		}
		cursor = page.NextCursor
	}
}

// CallTool calls the tool, args is marshalled to JSON unless it is json.RawMessage
func (c *Client) CallTool(ctx context.Context, name string, args any) (*mcp.ToolResult, error) {
	var raw json.RawMessage
	switch v := args.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	default:
		js, err := json.Marshal(args)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal arguments")
		}
		raw = js
	}

	var res mcp.ToolResult
	if _, err := c.call(ctx, mcp.MethodCallTool, &mcp.CallToolParams{Name: name, Arguments: raw}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Close terminates the session
func (c *Client) Close(ctx context.Context) error {
	sessionID := c.SessionID()
	if sessionID == "" {
		return nil
	}
	resp, err := c.handler.HandleMCP(ctx, &ProxyRequest{
		Method:  http.MethodDelete,
		Headers: c.requestHeaders(sessionID),
	})
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return errors.Errorf("server returned %d: %s", resp.Status, string(resp.Body))
	}
	c.lock.Lock()
	c.sessionID = ""
	c.lock.Unlock()
	return nil
}

func (c *Client) requestHeaders(sessionID string) map[string]string {
	h := make(map[string]string, len(c.headers)+2)
	for k, v := range c.headers {
		h[k] = v
	}
	h["Content-Type"] = "application/json"
	if sessionID != "" {
		h[HeaderSessionID] = sessionID
	}
	return h
}

func (c *Client) notify(ctx context.Context, method string) error {
	req, err := mcp.NewRequest(0, method, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	body, _ := json.Marshal(req)
	resp, err := c.handler.HandleMCP(ctx, &ProxyRequest{
		Method:  http.MethodPost,
		Body:    body,
		Headers: c.requestHeaders(c.SessionID()),
	})
	if err != nil {
		return err
	}
	if resp.Status >= 300 {
		return errors.Errorf("server returned %d: %s", resp.Status, string(resp.Body))
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) (*ProxyResponse, error) {
	req, err := mcp.NewRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	resp, err := c.handler.HandleMCP(ctx, &ProxyRequest{
		Method:  http.MethodPost,
		Body:    body,
		Headers: c.requestHeaders(c.SessionID()),
	})
	if err != nil {
		return nil, err
	}

	var rpc mcp.Response
	if err = json.Unmarshal(resp.Body, &rpc); err != nil {
		if resp.Status != http.StatusOK {
			return nil, errors.Errorf("server returned %d: %s", resp.Status, string(resp.Body))
		}
		return nil, errors.Wrap(err, "failed to decode response")
	}
	if rpc.Error != nil {
		return nil, rpc.Error
	}
	if result != nil && len(rpc.Result) > 0 {
		if err = json.Unmarshal(rpc.Result, result); err != nil {
			return nil, errors.Wrap(err, "failed to decode result")
		}
	}
	return resp, nil
}

// HTTPHandler is a Handler sending requests to a remote endpoint
type HTTPHandler struct {
	url        string
	httpClient *http.Client
}

var _ Handler = (*HTTPHandler)(nil)

// NewHTTPHandler returns a handler for the endpoint URL
func NewHTTPHandler(url string, httpClient *http.Client) *HTTPHandler {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPHandler{url: url, httpClient: httpClient}
}

// HandleMCP implements Handler
func (h *HTTPHandler) HandleMCP(ctx context.Context, req *ProxyRequest) (*ProxyResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, h.url, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	resp, err := h.httpClient.Do(hreq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	res := &ProxyResponse{
		Status:  resp.StatusCode,
		Body:    data,
		Headers: make(map[string]string, len(resp.Header)),
	}
	for k := range resp.Header {
		res.Headers[k] = resp.Header.Get(k)
	}
	return res, nil
}
