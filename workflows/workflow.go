package workflows

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xdb/pkg/flake"
)

// ErrWorkflowNotFound is returned by a Store for unknown workflows
var ErrWorkflowNotFound = errors.New("workflow not found")

// Workflow is a workflow record bound to a user, an action and a unit of content
type Workflow struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	CourseID     string    `json:"course_id"`
	UnitID       string    `json:"unit_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Orchestrator string    `json:"orchestrator"`
	CreatedAt    time.Time `json:"created_at"`

	// ExtraContext is the request context, it is not persisted
	ExtraContext map[string]any `json:"-"`
	// Config is the resolved configuration, it is not persisted
	Config *Config `json:"-"`
}

// Key returns the lookup key fields of the workflow
func (w *Workflow) Key() []string {
	return []string{w.UserID, w.Action, w.CourseID, w.UnitID}
}

// NewWorkflowID returns a new unique workflow ID
func NewWorkflowID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}

// Store keeps workflow records
type Store interface {
	// FindOrCreate returns the stored workflow with the same key,
	// or stores w and returns it with created set to true.
	FindOrCreate(ctx context.Context, w *Workflow) (found *Workflow, created bool, err error)
	// Get returns the workflow by ID, or ErrWorkflowNotFound
	Get(ctx context.Context, id string) (*Workflow, error)
}
