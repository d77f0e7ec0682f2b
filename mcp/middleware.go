package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/effective-security/edxai/pkg/llmutils"
	"github.com/effective-security/edxai/pkg/metricskey"
	"github.com/effective-security/xlog"
)

// MaxArgumentSummary is the max length of arguments written to the log
const MaxArgumentSummary = 256

// CallContext is the per call state passed through the middleware chain
type CallContext struct {
	ToolName  string
	Arguments json.RawMessage
	SessionID string
	RequestID string
	Started   time.Time

	fields []any
}

// AddFields appends key/value pairs to the call log entry
func (c *CallContext) AddFields(kv ...any) {
	c.fields = append(c.fields, kv...)
}

// Fields returns key/value pairs accumulated by the middleware
func (c *CallContext) Fields() []any {
	return c.fields
}

// Middleware wraps a ToolHandler
type Middleware func(next ToolHandler) ToolHandler

// Chain composes middlewares around the handler,
// the first middleware is the outermost one.
func Chain(h ToolHandler, mws ...Middleware) ToolHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// KeyValueLogger is the logging interface used by the logging middleware,
// xlog.PackageLogger implements it.
type KeyValueLogger interface {
	ContextKV(ctx context.Context, level xlog.LogLevel, entries ...any)
}

// LoggingMiddleware writes exactly one entry per call
func LoggingMiddleware(log KeyValueLogger) Middleware {
	return func(next ToolHandler) ToolHandler {
		return func(ctx context.Context, call *CallContext) (*ToolResult, error) {
			res, err := next(ctx, call)

			kv := []any{
				"tool", call.ToolName,
				"session", call.SessionID,
				"args", llmutils.StringUpto(string(call.Arguments), MaxArgumentSummary),
				"duration", time.Since(call.Started).String(),
			}
			kv = append(kv, call.Fields()...)

			level := xlog.INFO
			if err != nil {
				code := ToError(err).Code
				level = xlog.WARNING
				if code == CodeInternalError {
					level = xlog.ERROR
				}
				kv = append(kv, "outcome", "error", "code", code, "err", err.Error())
			} else {
				kv = append(kv, "outcome", "success")
			}
			log.ContextKV(ctx, level, kv...)
			return res, err
		}
	}
}

// ErrorMiddleware recovers panics and converts errors from inner stages
// into protocol errors with stable codes.
func ErrorMiddleware(next ToolHandler) ToolHandler {
	return func(ctx context.Context, call *CallContext) (res *ToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				// reported by the logging stage
				call.AddFields(
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
				res = nil
				err = &Error{Code: CodeInternalError, Message: "internal error"}
			}
		}()

		res, err = next(ctx, call)
		if err != nil {
			return nil, ToError(err)
		}
		if res == nil {
			res = NewTextResult("")
		}
		return res, nil
	}
}

// MetricsMiddleware records call duration and outcome counters
func MetricsMiddleware(next ToolHandler) ToolHandler {
	return func(ctx context.Context, call *CallContext) (*ToolResult, error) {
		defer metricskey.PerfToolCall.MeasureSince(call.Started, call.ToolName)

		res, err := next(ctx, call)
		if err != nil {
			if ToError(err).Code == CodeUnknownTool {
				metricskey.StatsToolCallsNotFound.IncrCounter(1, call.ToolName)
			} else {
				metricskey.StatsToolCallsFailed.IncrCounter(1, call.ToolName)
			}
		} else {
			metricskey.StatsToolCallsSucceeded.IncrCounter(1, call.ToolName)
		}
		return res, err
	}
}
