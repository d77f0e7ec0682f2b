// Package localtransport serves the protocol in process and provides a protocol client.
package localtransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai/mcp/transport", "localtransport")

// HeaderSessionID carries the session id
const HeaderSessionID = "Mcp-Session-Id"

// SessionDestroyed is the body of a successful DELETE
const SessionDestroyed = "Session destroyed"

// ProxyRequest is a transport independent protocol request
type ProxyRequest struct {
	// Method is the HTTP method, POST is used if empty
	Method  string            `json:"method,omitempty"`
	Body    []byte            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ProxyResponse is a transport independent protocol response
type ProxyResponse struct {
	Status  int               `json:"status"`
	Body    []byte            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Handler handles protocol requests in process or by proxy
type Handler interface {
	HandleMCP(ctx context.Context, req *ProxyRequest) (*ProxyResponse, error)
}

// Local is a Handler bound to a server
type Local struct {
	server *mcp.Server
}

var _ Handler = (*Local)(nil)

// New returns a handler for the server
func New(server *mcp.Server) *Local {
	return &Local{server: server}
}

// HandleMCP implements Handler
func (l *Local) HandleMCP(ctx context.Context, req *ProxyRequest) (*ProxyResponse, error) {
	sessionID := req.Headers[HeaderSessionID]

	switch req.Method {
	case "", http.MethodPost:
	case http.MethodDelete:
		return l.terminate(ctx, sessionID), nil
	default:
		return &ProxyResponse{
			Status:  http.StatusMethodNotAllowed,
			Body:    []byte("method not allowed"),
			Headers: map[string]string{"Allow": "POST, DELETE"},
		}, nil
	}

	reply := l.server.HandleMessage(ctx, sessionID, req.Body)

	res := &ProxyResponse{
		Status:  http.StatusOK,
		Headers: map[string]string{},
	}
	if reply.SessionID != "" {
		res.Headers[HeaderSessionID] = reply.SessionID
	}
	if reply.Error != nil && reply.Error.Code == mcp.CodeSessionRequired {
		res.Status = http.StatusBadRequest
	}

	if reply.Response == nil {
		if res.Status == http.StatusOK {
			res.Status = http.StatusAccepted
		} else {
			res.Headers["Content-Type"] = "application/json"
			res.Body, _ = json.Marshal(reply.Error)
		}
		return res, nil
	}

	body, err := json.Marshal(reply.Response)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "marshal", "err", err.Error())
		return &ProxyResponse{
			Status: http.StatusInternalServerError,
			Body:   []byte("failed to encode response"),
		}, nil
	}
	res.Headers["Content-Type"] = "application/json"
	res.Body = body
	return res, nil
}

func (l *Local) terminate(ctx context.Context, sessionID string) *ProxyResponse {
	if err := l.server.Terminate(ctx, sessionID); err != nil {
		e := mcp.ToError(err)
		status := http.StatusInternalServerError
		if e.Code == mcp.CodeSessionRequired {
			status = http.StatusBadRequest
		} else {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "terminate", "session", sessionID, "err", err.Error())
		}
		return &ProxyResponse{
			Status: status,
			Body:   []byte(e.Message),
		}
	}
	return &ProxyResponse{
		Status:  http.StatusOK,
		Body:    []byte(SessionDestroyed),
		Headers: map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}
