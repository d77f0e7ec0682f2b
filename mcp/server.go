package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "mcp")

// LatestProtocolVersion is the protocol version offered to clients
const LatestProtocolVersion = "2025-06-18"

// SupportedProtocolVersions lists accepted client versions, latest first
var SupportedProtocolVersions = []string{
	LatestProtocolVersion,
	"2025-03-26",
	"2024-11-05",
}

// DefaultPageSize is the number of tools returned by tools/list
const DefaultPageSize = 50

// InitializeParams are the params of initialize
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    map[string]any  `json:"capabilities,omitempty"`
	ClientInfo      *Implementation `json:"clientInfo,omitempty"`
}

// ToolsCapability describes tools support
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities are negotiated in initialize
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// InitializeResult is the result of initialize
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// ListToolsParams are the params of tools/list
type ListToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is the result of tools/list
type ListToolsResult struct {
	Tools      []ToolInfo `json:"tools"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// CallToolParams are the params of tools/call
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Reply is the outcome of HandleMessage
type Reply struct {
	// Response is nil for notifications
	Response *Response
	// SessionID is set when initialize created a session
	SessionID string
	// Error is set when the message was rejected,
	// including rejected notifications that have no Response.
	Error *Error
}

// Option configures the Server
type Option func(*Server)

// WithMiddleware appends middlewares after the built-in stages
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mws...)
	}
}

// WithStrictRegistration makes repeated tool registration fail
func WithStrictRegistration() Option {
	return func(s *Server) {
		s.registry.strict = true
	}
}

// WithPageSize sets the number of tools in a tools/list page
func WithPageSize(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithInstructions sets instructions returned by initialize
func WithInstructions(instructions string) Option {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithCallLogger replaces the logger of the logging stage
func WithCallLogger(log KeyValueLogger) Option {
	return func(s *Server) {
		s.callLogger = log
	}
}

// Server is a session oriented tool protocol server
type Server struct {
	info         Implementation
	instructions string
	registry     *Registry
	sessions     SessionStore
	middlewares  []Middleware
	callLogger   KeyValueLogger
	pageSize     int

	handler    ToolHandler
	freezeOnce sync.Once
}

// NewServer returns a server that keeps sessions in the store
func NewServer(name, version string, sessions SessionStore, opts ...Option) *Server {
	s := &Server{
		info:       Implementation{Name: name, Version: version},
		registry:   NewRegistry(false),
		sessions:   sessions,
		callLogger: logger,
		pageSize:   DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	chain := append([]Middleware{
		LoggingMiddleware(s.callLogger),
		ErrorMiddleware,
		MetricsMiddleware,
	}, s.middlewares...)
	s.handler = Chain(s.invoke, chain...)

	return s
}

// Info returns the server name and version
func (s *Server) Info() Implementation {
	return s.info
}

// Registry returns the tool registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// RegisterTool registers the tool, tools must be registered before serving
func (s *Server) RegisterTool(t Tool) error {
	return s.registry.Register(t)
}

// Serve freezes the registry, it is called implicitly on the first request
func (s *Server) Serve() {
	s.freezeOnce.Do(func() {
		s.registry.Freeze()
		logger.KV(xlog.INFO,
			"status", "serving",
			"server", s.info.Name,
			"tools", s.registry.Len(),
		)
	})
}

// Initialize creates a new session
func (s *Server) Initialize(ctx context.Context, params *InitializeParams) (*Session, *InitializeResult, error) {
	s.Serve()

	version := LatestProtocolVersion
	if params != nil && slices.Contains(SupportedProtocolVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}

	now := time.Now().UTC()
	sess := &Session{
		CreatedAt:       now,
		LastSeenAt:      now,
		ProtocolVersion: version,
	}
	if params != nil {
		sess.ClientInfo = params.ClientInfo
	}

	sess, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to create session")
	}

	kv := []any{"status", "initialized", "session", sess.ID, "protocol", version}
	if sess.ClientInfo != nil {
		kv = append(kv, "client", sess.ClientInfo.Name, "client_version", sess.ClientInfo.Version)
	}
	logger.ContextKV(ctx, xlog.DEBUG, kv...)

	return sess, &InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}, nil
}

// ListTools returns a page of registered tools
func (s *Server) ListTools(ctx context.Context, sessionID, cursor string) (*ListToolsResult, error) {
	if _, err := s.session(ctx, sessionID, MethodListTools); err != nil {
		return nil, err
	}

	list := s.registry.List()
	start := 0
	if cursor != "" {
		after, err := base64.RawURLEncoding.DecodeString(cursor)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "invalid cursor"}
		}
		start, _ = slices.BinarySearchFunc(list, string(after), func(t ToolInfo, name string) int {
			return strings.Compare(t.Name, name)
		})
		if start < len(list) && list[start].Name == string(after) {
			start++
		}
	}

	end := min(start+s.pageSize, len(list))
	res := &ListToolsResult{
		Tools: list[start:end],
	}
	if end < len(list) {
		res.NextCursor = base64.RawURLEncoding.EncodeToString([]byte(list[end-1].Name))
	}
	return res, nil
}

// CallTool executes the tool through the middleware chain
func (s *Server) CallTool(ctx context.Context, sessionID string, params *CallToolParams) (*ToolResult, error) {
	sess, err := s.session(ctx, sessionID, MethodCallTool)
	if err != nil {
		return nil, err
	}
	if params == nil || params.Name == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "tool name is required"}
	}

	call := &CallContext{
		ToolName:  params.Name,
		Arguments: params.Arguments,
		SessionID: sess.ID,
		RequestID: requestIDFromContext(ctx),
		Started:   time.Now(),
	}
	return s.handler(WithSession(ctx, sess), call)
}

// Terminate destroys the session. Calls already in flight are not cancelled.
func (s *Server) Terminate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &SessionRequiredError{}
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return errors.WithMessage(err, "failed to destroy session")
	}
	logger.ContextKV(ctx, xlog.DEBUG, "status", "terminated", "session", sessionID)
	return nil
}

// HandleMessage processes a JSON-RPC message received for sessionID
func (s *Server) HandleMessage(ctx context.Context, sessionID string, body []byte) *Reply {
	s.Serve()

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		trimmed := strings.TrimSpace(string(body))
		if strings.HasPrefix(trimmed, "[") {
			return rejected(nil, &Error{Code: CodeInvalidRequest, Message: "batch requests are not supported"})
		}
		return rejected(nil, &Error{Code: CodeParseError, Message: "parse error"})
	}
	if req.JSONRPC != JSONRPCVersion || req.Method == "" {
		return rejected(req.ID, &Error{Code: CodeInvalidRequest, Message: "invalid request"})
	}

	ctx = withRequestID(ctx, string(req.ID))

	var (
		result any
		err    error
	)
	switch req.Method {
	case MethodInitialize:
		var params InitializeParams
		if perr := decodeParams(req.Params, &params); perr != nil {
			return rejected(req.ID, perr)
		}
		sess, res, ierr := s.Initialize(ctx, &params)
		if ierr != nil {
			return rejected(req.ID, internalError(ctx, ierr))
		}
		return &Reply{
			Response:  newResult(req.ID, res),
			SessionID: sess.ID,
		}

	case MethodInitialized:
		err = s.markInitialized(ctx, sessionID)

	case MethodPing:
		if _, err = s.session(ctx, sessionID, MethodPing); err == nil {
			result = struct{}{}
		}

	case MethodListTools:
		var params ListToolsParams
		if perr := decodeParams(req.Params, &params); perr != nil {
			return rejected(req.ID, perr)
		}
		result, err = s.ListTools(ctx, sessionID, params.Cursor)

	case MethodCallTool:
		var params CallToolParams
		if perr := decodeParams(req.Params, &params); perr != nil {
			return rejected(req.ID, perr)
		}
		result, err = s.CallTool(ctx, sessionID, &params)

	default:
		err = &Error{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
	}

	if err != nil {
		return rejected(req.ID, s.toProtocolError(ctx, err), req.IsNotification())
	}
	if req.IsNotification() {
		return &Reply{}
	}
	return &Reply{Response: newResult(req.ID, result)}
}

func (s *Server) invoke(ctx context.Context, call *CallContext) (*ToolResult, error) {
	t, err := s.registry.Resolve(call.ToolName)
	if err != nil {
		return nil, err
	}
	return t.Handler(ctx, call)
}

func (s *Server) session(ctx context.Context, sessionID, method string) (*Session, error) {
	if sessionID == "" {
		metricskey.StatsSessionsRejected.IncrCounter(1, method)
		return nil, &SessionRequiredError{}
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			metricskey.StatsSessionsRejected.IncrCounter(1, method)
			return nil, &SessionRequiredError{SessionID: sessionID}
		}
		return nil, errors.WithMessage(err, "failed to load session")
	}
	if err = s.sessions.Touch(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "touch_session", "session", sessionID, "err", err.Error())
	}
	return sess, nil
}

func (s *Server) markInitialized(ctx context.Context, sessionID string) error {
	sess, err := s.session(ctx, sessionID, MethodInitialized)
	if err != nil {
		return err
	}
	if sess.Initialized {
		return nil
	}
	sess.Initialized = true
	return s.sessions.Update(ctx, sess)
}

func (s *Server) toProtocolError(ctx context.Context, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	var session *SessionRequiredError
	if errors.As(err, &session) {
		return ToError(err)
	}
	return internalError(ctx, err)
}

func internalError(ctx context.Context, err error) *Error {
	logger.ContextKV(ctx, xlog.ERROR, "reason", "internal", "err", err.Error())
	return &Error{Code: CodeInternalError, Message: "internal error"}
}

func rejected(id json.RawMessage, e *Error, notification ...bool) *Reply {
	r := &Reply{Error: e}
	if len(notification) == 0 || !notification[0] {
		r.Response = newError(id, e)
	}
	return r
}

func decodeParams(raw json.RawMessage, v any) *Error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

const keyRequestID contextKey = keySession + 1

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}
