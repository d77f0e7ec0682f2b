package mcp

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Server defined codes
	CodeToolFailed      = -32001
	CodeSessionRequired = -32002
	CodeToolTimeout     = -32003
	CodeUnknownTool     = -32004
)

var (
	// ErrDuplicateTool is returned by a strict registry on repeated registration
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrRegistryFrozen is returned when a tool is registered after the server started serving
	ErrRegistryFrozen = errors.New("tool registry is frozen")
	// ErrSessionNotFound is returned by a SessionStore for unknown or expired sessions
	ErrSessionNotFound = errors.New("session not found")
)

// Error is a protocol error object
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// UnknownToolError is returned when a tool is not registered
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

// SessionRequiredError is returned for requests without a live session
type SessionRequiredError struct {
	SessionID string
}

func (e *SessionRequiredError) Error() string {
	if e.SessionID == "" {
		return "session required"
	}
	return fmt.Sprintf("session required: unknown session %q", e.SessionID)
}

// InvalidArgumentsError is returned by tools that cannot decode or validate arguments
type InvalidArgumentsError struct {
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return "invalid arguments: " + e.Reason
}

// ToError converts err into a protocol error with a stable code
func ToError(err error) *Error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	var unknown *UnknownToolError
	if errors.As(err, &unknown) {
		return &Error{Code: CodeUnknownTool, Message: unknown.Error()}
	}
	var invalid *InvalidArgumentsError
	if errors.As(err, &invalid) {
		return &Error{Code: CodeInvalidParams, Message: invalid.Error()}
	}
	var session *SessionRequiredError
	if errors.As(err, &session) {
		return &Error{Code: CodeSessionRequired, Message: session.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeToolTimeout, Message: "tool call timed out"}
	}
	return &Error{Code: CodeToolFailed, Message: err.Error()}
}
