package workflows_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/workflows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigs() workflows.Configs {
	return workflows.Configs{
		{Action: "summarize", Orchestrator: "direct_llm_response"},
		{Action: "summarize", Orchestrator: "mock", CourseID: "course-v1:edX+DemoX+2024"},
		{Action: "summarize", Orchestrator: "MockResponse", UnitID: "unit1"},
		{Action: "explain", Orchestrator: "mock"},
	}
}

func TestConfigs_Resolve(t *testing.T) {
	cfgs := testConfigs()
	require.NoError(t, cfgs.Validate())

	tcases := []struct {
		action, course, unit string
		exp                  string
	}{
		{"summarize", "course-v1:other+X+1", "", "direct_llm_response"},
		{"summarize", "course-v1:edX+DemoX+2024", "", "mock"},
		{"summarize", "course-v1:edX+DemoX+2024", "unit1", "MockResponse"},
		{"summarize", "course-v1:other+X+1", "unit1", "MockResponse"},
		{"explain", "", "", "mock"},
	}
	for _, tc := range tcases {
		cfg, err := cfgs.Resolve(tc.action, tc.course, tc.unit)
		require.NoError(t, err)
		assert.Equal(t, tc.exp, cfg.Orchestrator, "%s/%s/%s", tc.action, tc.course, tc.unit)
	}

	_, err := cfgs.Resolve("translate", "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflows.ErrUnknownAction))
	assert.Contains(t, err.Error(), `"translate"`)

	assert.Equal(t, []string{"explain", "summarize"}, cfgs.Actions())
}

func TestConfigs_Validate(t *testing.T) {
	assert.EqualError(t, workflows.Configs{{Orchestrator: "mock"}}.Validate(), "workflow 0: action is required")
	assert.EqualError(t, workflows.Configs{{Action: "a"}}.Validate(), "workflow a: orchestrator is required")
	assert.EqualError(t, workflows.Configs{{Action: "b", Orchestrator: "threaded"}}.Validate(), `workflow b: unknown orchestrator: "threaded"`)
	assert.NoError(t, workflows.Configs{{Action: "c", Orchestrator: "DirectLLMResponse"}}.Validate())
	assert.NoError(t, workflows.Configs(nil).Validate())
}
