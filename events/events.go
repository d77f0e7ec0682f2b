// Package events emits workflow notifications to the host platform.
package events

//go:generate mockgen -source=events.go -destination=../mocks/mockevents/events_mock.gen.go -package mockevents

import (
	"context"
	"time"

	"github.com/effective-security/edxai/pkg/llmutils"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "events")

// EventWorkflowCompleted is emitted when a workflow completed successfully
const EventWorkflowCompleted = "openedx.ai.workflow.completed"

// Event is a notification about a workflow
type Event struct {
	Name      string         `json:"name"`
	CourseID  string         `json:"course_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Emitter delivers events
type Emitter interface {
	Emit(ctx context.Context, e *Event) error
}

// LogEmitter writes events to the log
type LogEmitter struct{}

// Emit implements Emitter
func (LogEmitter) Emit(ctx context.Context, e *Event) error {
	logger.ContextKV(ctx, xlog.INFO,
		"event", e.Name,
		"course", e.CourseID,
		"user", e.UserID,
		"data", llmutils.ToJSON(e.Data),
	)
	return nil
}

// NopEmitter discards events
type NopEmitter struct{}

// Emit implements Emitter
func (NopEmitter) Emit(context.Context, *Event) error {
	return nil
}
