package workflows

import (
	"context"
	"maps"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/events"
	"github.com/effective-security/edxai/pkg/llmfactory"
	"github.com/effective-security/edxai/pkg/metricskey"
	"github.com/effective-security/edxai/processor"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "workflows")

// ContextUnitID is the request context key of the unit
const ContextUnitID = "unitId"

// Request to run a workflow action
type Request struct {
	Action    string
	CourseID  string
	UserID    string
	Context   map[string]any
	UserInput map[string]any
	RequestID string
}

// Result of a workflow run
type Result struct {
	Workflow *Workflow
	Created  bool
	Envelope *Envelope
}

// Runner resolves the workflow for a request and runs its orchestrator
type Runner struct {
	configs      Configs
	store        Store
	emitter      events.Emitter
	newProcessor ProcessorFactory
}

// NewRunner returns a runner, emitter may be nil
func NewRunner(configs Configs, store Store, emitter events.Emitter, newProcessor ProcessorFactory) *Runner {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Runner{
		configs:      configs,
		store:        store,
		emitter:      emitter,
		newProcessor: newProcessor,
	}
}

// ProcessorFactoryFor returns a ProcessorFactory backed by the LLM factory
func ProcessorFactoryFor(f llmfactory.Factory) ProcessorFactory {
	return func(cfg processor.Config) (Processor, error) {
		return processor.New(cfg, f)
	}
}

// Actions returns the configured actions
func (r *Runner) Actions() []string {
	return r.configs.Actions()
}

// Execute runs the workflow for the request.
// A processor failure is returned in the envelope, not as an error.
func (r *Runner) Execute(ctx context.Context, req *Request) (*Result, error) {
	unitID, _ := req.Context[ContextUnitID].(string)

	cfg, err := r.configs.Resolve(req.Action, req.CourseID, unitID)
	if err != nil {
		return nil, err
	}

	orchestrator, err := NewOrchestrator(cfg.Orchestrator, r.newProcessor)
	if err != nil {
		return nil, err
	}

	w, created, err := r.store.FindOrCreate(ctx, &Workflow{
		Action:       cfg.Action,
		CourseID:     req.CourseID,
		UnitID:       unitID,
		UserID:       req.UserID,
		Orchestrator: cfg.Orchestrator,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to find workflow")
	}

	extra := make(map[string]any, len(cfg.ExtraContext)+len(req.Context))
	maps.Copy(extra, cfg.ExtraContext)
	maps.Copy(extra, req.Context)
	w.ExtraContext = extra
	w.Config = cfg

	started := time.Now()
	env, err := orchestrator.Run(ctx, &Input{Workflow: w, UserInput: req.UserInput})
	metricskey.PerfWorkflowRun.MeasureSince(started, cfg.Action, cfg.Orchestrator)

	if err == nil && env.Failed() {
		metricskey.StatsWorkflowsFailed.IncrCounter(1, cfg.Action, cfg.Orchestrator)
		logger.ContextKV(ctx, xlog.WARNING,
			"workflow", w.ID,
			"action", cfg.Action,
			"request", req.RequestID,
			"status", env.Status,
			"err", env.Error,
		)
		return &Result{Workflow: w, Created: created, Envelope: env}, nil
	}
	if err != nil {
		metricskey.StatsWorkflowsFailed.IncrCounter(1, cfg.Action, cfg.Orchestrator)
		logger.ContextKV(ctx, xlog.ERROR,
			"workflow", w.ID,
			"action", cfg.Action,
			"request", req.RequestID,
			"err", err.Error(),
		)
		return nil, err
	}

	metricskey.StatsWorkflowsSucceeded.IncrCounter(1, cfg.Action, cfg.Orchestrator)
	logger.ContextKV(ctx, xlog.INFO,
		"workflow", w.ID,
		"action", cfg.Action,
		"orchestrator", cfg.Orchestrator,
		"request", req.RequestID,
		"created", created,
		"elapsed", time.Since(started).String(),
	)

	r.emitCompleted(ctx, w)

	return &Result{Workflow: w, Created: created, Envelope: env}, nil
}

func (r *Runner) emitCompleted(ctx context.Context, w *Workflow) {
	err := r.emitter.Emit(ctx, &events.Event{
		Name:      events.EventWorkflowCompleted,
		CourseID:  w.CourseID,
		UserID:    w.UserID,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"workflow_id": w.ID,
			"action":      w.Action,
			"course_id":   w.CourseID,
		},
	})
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "emit", "workflow", w.ID, "err", err.Error())
	}
}
