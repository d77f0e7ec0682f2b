package mcp

import (
	"encoding/json"
)

// JSONRPCVersion is the only supported JSON-RPC version
const JSONRPCVersion = "2.0"

// Protocol methods
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodListTools   = "tools/list"
	MethodCallTool    = "tools/call"
)

// Request is a JSON-RPC request or notification.
// Notifications have no ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification returns true if the request does not expect a response
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is a JSON-RPC response
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewRequest returns a request with marshalled params
func NewRequest(id int64, method string, params any) (*Request, error) {
	req := &Request{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
	if id > 0 {
		req.ID = json.RawMessage(marshalID(id))
	}
	if params != nil {
		js, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = js
	}
	return req, nil
}

func newResult(id json.RawMessage, result any) *Response {
	js, err := json.Marshal(result)
	if err != nil {
		return newError(id, &Error{Code: CodeInternalError, Message: "failed to encode result"})
	}
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  js,
	}
}

func newError(id json.RawMessage, e *Error) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   e,
	}
}

func marshalID(id int64) []byte {
	js, _ := json.Marshal(id)
	return js
}
