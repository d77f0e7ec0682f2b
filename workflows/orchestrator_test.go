package workflows_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/processor"
	"github.com/effective-security/edxai/workflows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	cfg    processor.Config
	input  string
	result *processor.Result
}

func (f *fakeProcessor) Process(_ context.Context, input string) *processor.Result {
	f.input = input
	return f.result
}

func factoryFor(p *fakeProcessor) workflows.ProcessorFactory {
	return func(cfg processor.Config) (workflows.Processor, error) {
		p.cfg = cfg
		return p, nil
	}
}

func testWorkflow() *workflows.Workflow {
	return &workflows.Workflow{
		ID:       "1",
		Action:   "summarize",
		CourseID: "course-v1:edX+DemoX+2024",
		UserID:   "learner",
		ExtraContext: map[string]any{
			"unitId": "block-v1:edX+DemoX+2024+type@vertical+block@u1",
		},
		Config: &workflows.Config{
			Action:       "summarize",
			Orchestrator: "direct_llm_response",
			ProcessorConfig: processor.Config{
				Profile:  "tutor",
				Function: processor.FunctionExplainLikeFive,
			},
		},
	}
}

func TestNewOrchestrator(t *testing.T) {
	for _, name := range []string{"mock", "MOCK", "MockResponse", " mockresponse ", "direct_llm_response", "DirectLLMResponse"} {
		o, err := workflows.NewOrchestrator(name, nil)
		require.NoError(t, err, name)
		assert.NotNil(t, o)
	}

	_, err := workflows.NewOrchestrator("threaded", nil)
	require.Error(t, err)
	var uerr *workflows.UnknownOrchestratorError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "threaded", uerr.Name)
	assert.Equal(t, `unknown orchestrator: "threaded"`, err.Error())

	assert.Equal(t, []string{"direct_llm_response", "mock"}, workflows.Orchestrators())
}

func TestMockResponse(t *testing.T) {
	o, err := workflows.NewOrchestrator("mock", nil)
	require.NoError(t, err)
	env, err := o.Run(context.Background(), &workflows.Input{Workflow: testWorkflow()})
	require.NoError(t, err)
	assert.Equal(t, "Mock response for summarize", env.Response)
	assert.Equal(t, workflows.StatusCompleted, env.Status)
	assert.False(t, env.Failed())
	assert.Nil(t, env.Metadata)
}

func TestDirectLLMResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		p := &fakeProcessor{result: &processor.Result{
			Response:   "A unit about fractions.",
			TokensUsed: 33,
			ModelUsed:  "gpt-5-mini",
			Status:     processor.StatusSuccess,
		}}
		o, err := workflows.NewOrchestrator("direct_llm_response", factoryFor(p))
		require.NoError(t, err)

		env, err := o.Run(ctx, &workflows.Input{Workflow: testWorkflow()})
		require.NoError(t, err)
		assert.Equal(t, "course_id: course-v1:edX+DemoX+2024\nunit_id: block-v1:edX+DemoX+2024+type@vertical+block@u1", p.input)
		assert.Equal(t, "tutor", p.cfg.Profile)
		assert.Equal(t, "A unit about fractions.", env.Response)
		assert.Equal(t, workflows.StatusCompleted, env.Status)
		require.NotNil(t, env.Metadata)
		assert.Equal(t, int64(33), env.Metadata.TokensUsed)
		assert.Equal(t, "gpt-5-mini", env.Metadata.ModelUsed)
	})

	t.Run("empty response passes through", func(t *testing.T) {
		p := &fakeProcessor{result: &processor.Result{Status: processor.StatusSuccess}}
		o, _ := workflows.NewOrchestrator("direct_llm_response", factoryFor(p))
		env, err := o.Run(ctx, &workflows.Input{Workflow: testWorkflow()})
		require.NoError(t, err)
		assert.Empty(t, env.Response)
		assert.Equal(t, workflows.StatusCompleted, env.Status)
	})

	t.Run("processor error", func(t *testing.T) {
		p := &fakeProcessor{result: &processor.Result{Error: "AI processing failed: boom"}}
		o, _ := workflows.NewOrchestrator("direct_llm_response", factoryFor(p))
		env, err := o.Run(ctx, &workflows.Input{Workflow: testWorkflow()})
		require.NoError(t, err)
		assert.True(t, env.Failed())
		assert.Equal(t, workflows.StatusProcessorError, env.Status)
		assert.Equal(t, "AI processing failed: boom", env.Error)
		assert.Nil(t, env.Metadata)
	})

	t.Run("factory error", func(t *testing.T) {
		o, _ := workflows.NewOrchestrator("direct_llm_response", func(processor.Config) (workflows.Processor, error) {
			return nil, &processor.UnknownFunctionError{Name: "translate"}
		})
		_, err := o.Run(ctx, &workflows.Input{Workflow: testWorkflow()})
		assert.EqualError(t, err, "failed to create processor: unknown processor function: translate")
	})

	t.Run("no factory", func(t *testing.T) {
		o, _ := workflows.NewOrchestrator("direct_llm_response", nil)
		_, err := o.Run(ctx, &workflows.Input{Workflow: testWorkflow()})
		assert.Error(t, err)
	})
}

func TestRenderContext(t *testing.T) {
	w := testWorkflow()
	w.ExtraContext["topic"] = "fractions"
	in := &workflows.Input{Workflow: w, UserInput: map[string]any{"question": "why?"}}

	s, err := workflows.RenderContext(`{{ .action | upper }} {{ .course_id }} {{ .context.topic }} {{ .user_input.question | quote }}`, in)
	require.NoError(t, err)
	assert.Equal(t, `SUMMARIZE course-v1:edX+DemoX+2024 fractions "why?"`, s)

	w.ExtraContext = nil
	w.UnitID = "u2"
	s, err = workflows.RenderContext("", in)
	require.NoError(t, err)
	assert.Equal(t, "course_id: course-v1:edX+DemoX+2024\nunit_id: u2", s)

	_, err = workflows.RenderContext("{{ .action ", in)
	assert.ErrorContains(t, err, "invalid context template")

	_, err = workflows.RenderContext(`{{ fail "nope" }}`, in)
	assert.ErrorContains(t, err, "failed to render context template")
}
