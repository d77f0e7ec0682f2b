// Package api serves the workflow endpoint and mounts the tool protocol endpoint.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/opaquekeys"
	"github.com/effective-security/edxai/workflows"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "api")

// Routes
const (
	PathWorkflows = "/openedx-ai-extensions/v1/workflows/"
	PathMCP       = "/openedx-ai-extensions/v1/mcp"
	PathMCPLegacy = "/openedx-ai-extensions/mcp"
)

// HeaderUser carries the authenticated user set by the platform
const HeaderUser = "X-Edx-User"

// MaxBodySize limits the request body
const MaxBodySize = 1 << 20

// Response statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WorkflowRequest is the body of POST workflows
type WorkflowRequest struct {
	Action    string         `json:"action" validate:"required"`
	CourseID  string         `json:"courseId" validate:"required"`
	Context   map[string]any `json:"context,omitempty"`
	UserInput map[string]any `json:"user_input,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// WorkflowResponse is the body of the POST workflows response.
// Response is set on success, Error on failure.
type WorkflowResponse struct {
	RequestID       string              `json:"requestId"`
	Timestamp       string              `json:"timestamp"`
	WorkflowCreated bool                `json:"workflow_created"`
	Status          string              `json:"status"`
	Response        *string             `json:"response,omitempty"`
	Error           string              `json:"error,omitempty"`
	Metadata        *workflows.Metadata `json:"metadata,omitempty"`
}

// ActionsResponse is the body of GET workflows
type ActionsResponse struct {
	Status    string   `json:"status"`
	Actions   []string `json:"actions"`
	Timestamp string   `json:"timestamp"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationError is returned for malformed requests
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Executor runs workflows, workflows.Runner implements it
type Executor interface {
	Execute(ctx context.Context, req *workflows.Request) (*workflows.Result, error)
	Actions() []string
}

// WorkflowHandler serves the workflow endpoint
type WorkflowHandler struct {
	executor Executor
	now      func() time.Time
}

// NewWorkflowHandler returns a handler running workflows with the executor
func NewWorkflowHandler(executor Executor) *WorkflowHandler {
	return &WorkflowHandler{
		executor: executor,
		now:      time.Now,
	}
}

func (h *WorkflowHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

// ServeHTTP implements http.Handler
func (h *WorkflowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get(HeaderUser)
	if user == "" {
		writeJSON(w, http.StatusUnauthorized, &ErrorResponse{Error: "authentication required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, &ActionsResponse{
			Status:    StatusOK,
			Actions:   h.executor.Actions(),
			Timestamp: h.timestamp(),
		})
	case http.MethodPost:
		h.post(w, r, user)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, &ErrorResponse{Error: "method not allowed"})
	}
}

func (h *WorkflowHandler) post(w http.ResponseWriter, r *http.Request, user string) {
	ctx := r.Context()

	req, err := decodeRequest(r, w)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "validation", "user", user, "err", err.Error())
		writeJSON(w, http.StatusBadRequest, &WorkflowResponse{
			RequestID: req.RequestID,
			Timestamp: h.timestamp(),
			Status:    StatusError,
			Error:     err.Error(),
		})
		return
	}

	res, err := h.executor.Execute(ctx, &workflows.Request{
		Action:    req.Action,
		CourseID:  req.CourseID,
		UserID:    user,
		Context:   req.Context,
		UserInput: req.UserInput,
		RequestID: req.RequestID,
	})
	if err != nil {
		status, msg := errorStatus(err)
		if status >= 500 {
			logger.ContextKV(ctx, xlog.ERROR,
				"request", req.RequestID,
				"action", req.Action,
				"err", err.Error(),
			)
		}
		writeJSON(w, status, &WorkflowResponse{
			RequestID: req.RequestID,
			Timestamp: h.timestamp(),
			Status:    StatusError,
			Error:     msg,
		})
		return
	}

	env := res.Envelope
	body := &WorkflowResponse{
		RequestID:       req.RequestID,
		Timestamp:       h.timestamp(),
		WorkflowCreated: res.Created,
		Status:          env.Status,
		Metadata:        env.Metadata,
	}
	if env.Failed() {
		body.Error = env.Error
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	response := env.Response
	body.Response = &response
	writeJSON(w, http.StatusOK, body)
}

// decodeRequest returns the validated request, the returned request is never nil
func decodeRequest(r *http.Request, w http.ResponseWriter) (*WorkflowRequest, error) {
	req := &WorkflowRequest{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err := dec.Decode(req); err != nil {
		req.RequestID = uuid.NewString()
		return req, &ValidationError{Reason: "invalid JSON body"}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return req, &ValidationError{Reason: verrs[0].Field() + " is required"}
		}
		return req, &ValidationError{Reason: err.Error()}
	}
	if _, err := opaquekeys.ParseCourseKey(req.CourseID); err != nil {
		return req, &ValidationError{Reason: err.Error()}
	}
	return req, nil
}

func errorStatus(err error) (int, string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Error()
	}
	if errors.Is(err, workflows.ErrUnknownAction) {
		return http.StatusBadRequest, err.Error()
	}
	var oerr *workflows.UnknownOrchestratorError
	if errors.As(err, &oerr) {
		return http.StatusInternalServerError, oerr.Error()
	}
	return http.StatusInternalServerError, "workflow failed"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.KV(xlog.DEBUG, "reason", "write", "err", err.Error())
	}
}
