package store

import (
	"testing"

	"github.com/effective-security/edxai/workflows"
	"github.com/stretchr/testify/assert"
)

func TestRedisWorkflowStore_KeyIndex(t *testing.T) {
	st := NewRedisWorkflowStore(nil, "edxai")

	tcases := []struct {
		a, b *workflows.Workflow
	}{
		{
			a: &workflows.Workflow{UserID: "staff/a", Action: "summarize", CourseID: "c"},
			b: &workflows.Workflow{UserID: "staff", Action: "a/summarize", CourseID: "c"},
		},
		{
			a: &workflows.Workflow{UserID: "u", Action: "summarize", CourseID: "edX/DemoX/2024"},
			b: &workflows.Workflow{UserID: "u", Action: "summarize", CourseID: "edX/DemoX", UnitID: "2024"},
		},
		{
			a: &workflows.Workflow{UserID: "", Action: "summarize", CourseID: "c"},
			b: &workflows.Workflow{UserID: "summarize", Action: "c", CourseID: ""},
		},
	}
	for _, tc := range tcases {
		assert.NotEqual(t, st.keyIndex(tc.a), st.keyIndex(tc.b))
	}

	assert.Equal(t, "edxai/workflows/key/42/summarize/course-v1:edX+DemoX+2024/",
		st.keyIndex(&workflows.Workflow{UserID: "42", Action: "summarize", CourseID: "course-v1:edX+DemoX+2024"}))
}
