package workflows

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/processor"
)

// Orchestrator names
const (
	OrchestratorMock      = "mock"
	OrchestratorDirectLLM = "direct_llm_response"
)

// Envelope statuses
const (
	StatusCompleted = "completed"
	// StatusProcessorError marks an envelope with a processor failure
	StatusProcessorError = "LLMProcessor error"
)

// Metadata of an LLM response
type Metadata struct {
	TokensUsed int64  `json:"tokens_used"`
	ModelUsed  string `json:"model_used"`
}

// Envelope is the result of an orchestrator run.
// Error is set on failure, Response is meaningful only on success.
type Envelope struct {
	Response string    `json:"response"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Failed returns true if the envelope carries an error
func (e *Envelope) Failed() bool {
	return e.Error != ""
}

// Input of an orchestrator run
type Input struct {
	Workflow  *Workflow
	UserInput map[string]any
}

// Orchestrator decides how a workflow action is fulfilled
type Orchestrator interface {
	Run(ctx context.Context, in *Input) (*Envelope, error)
}

// Processor is implemented by processor.Processor
type Processor interface {
	Process(ctx context.Context, input string) *processor.Result
}

// ProcessorFactory creates a processor for the configuration
type ProcessorFactory func(cfg processor.Config) (Processor, error)

// Factory creates an orchestrator
type Factory func(newProcessor ProcessorFactory) Orchestrator

// UnknownOrchestratorError is returned for orchestrator names that are not registered
type UnknownOrchestratorError struct {
	Name string
}

func (e *UnknownOrchestratorError) Error() string {
	return fmt.Sprintf("unknown orchestrator: %q", e.Name)
}

var orchestrators = map[string]Factory{
	OrchestratorMock:      newMockResponse,
	OrchestratorDirectLLM: newDirectLLMResponse,
}

var aliases = map[string]string{
	"mockresponse":      OrchestratorMock,
	"directllmresponse": OrchestratorDirectLLM,
}

// Orchestrators returns sorted names of registered orchestrators
func Orchestrators() []string {
	return slices.Sorted(maps.Keys(orchestrators))
}

// NewOrchestrator returns the orchestrator by name,
// names are case insensitive and MockResponse or DirectLLMResponse are accepted.
func NewOrchestrator(name string, newProcessor ProcessorFactory) (Orchestrator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	f, ok := orchestrators[key]
	if !ok {
		return nil, &UnknownOrchestratorError{Name: name}
	}
	return f(newProcessor), nil
}

// MockResponse returns a placeholder result without calling a backend
type MockResponse struct{}

func newMockResponse(ProcessorFactory) Orchestrator {
	return MockResponse{}
}

// Run implements Orchestrator
func (MockResponse) Run(_ context.Context, in *Input) (*Envelope, error) {
	return &Envelope{
		Response: "Mock response for " + in.Workflow.Action,
		Status:   StatusCompleted,
	}, nil
}

// DirectLLMResponse sends the workflow context to the processor
type DirectLLMResponse struct {
	newProcessor ProcessorFactory
}

func newDirectLLMResponse(newProcessor ProcessorFactory) Orchestrator {
	return &DirectLLMResponse{newProcessor: newProcessor}
}

// Run implements Orchestrator
func (o *DirectLLMResponse) Run(ctx context.Context, in *Input) (*Envelope, error) {
	if o.newProcessor == nil {
		return nil, errors.New("processor factory is not configured")
	}
	w := in.Workflow

	var cfg processor.Config
	tmpl := ""
	if w.Config != nil {
		cfg = w.Config.ProcessorConfig
		tmpl = w.Config.ContextTemplate
	}

	input, err := RenderContext(tmpl, in)
	if err != nil {
		return nil, err
	}

	p, err := o.newProcessor(cfg)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create processor")
	}

	res := p.Process(ctx, input)
	if res.Failed() {
		return &Envelope{
			Error:  res.Error,
			Status: StatusProcessorError,
		}, nil
	}
	return &Envelope{
		Response: res.Response,
		Status:   StatusCompleted,
		Metadata: &Metadata{
			TokensUsed: res.TokensUsed,
			ModelUsed:  res.ModelUsed,
		},
	}, nil
}

// RenderContext returns the processor input for the workflow.
// The template is executed with sprig functions and the values
// course_id, unit_id, action, user_id, context and user_input.
func RenderContext(tmpl string, in *Input) (string, error) {
	w := in.Workflow
	unitID := w.UnitID
	if v, ok := w.ExtraContext[ContextUnitID].(string); ok && v != "" {
		unitID = v
	}

	if tmpl == "" {
		return fmt.Sprintf("course_id: %s\nunit_id: %s", w.CourseID, unitID), nil
	}

	t, err := template.New("context").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "invalid context template")
	}

	data := map[string]any{
		"course_id":  w.CourseID,
		"unit_id":    unitID,
		"action":     w.Action,
		"user_id":    w.UserID,
		"context":    w.ExtraContext,
		"user_input": in.UserInput,
	}
	var buf bytes.Buffer
	if err = t.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to render context template")
	}
	return buf.String(), nil
}
