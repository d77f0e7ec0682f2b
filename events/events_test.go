package events_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/events"
	"github.com/effective-security/edxai/mocks/mockevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func workflowEvent(id string) *events.Event {
	return &events.Event{
		Name:      events.EventWorkflowCompleted,
		CourseID:  "course-v1:edX+DemoX+2024",
		UserID:    "learner",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Data: map[string]any{
			"workflow_id": id,
			"action":      "summarize",
			"course_id":   "course-v1:edX+DemoX+2024",
		},
	}
}

func TestLogEmitter(t *testing.T) {
	assert.NoError(t, events.LogEmitter{}.Emit(context.Background(), workflowEvent("1")))
	assert.NoError(t, events.NopEmitter{}.Emit(context.Background(), workflowEvent("1")))
}

func TestAsyncEmitter_Delivers(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := mockevents.NewMockEmitter(ctrl)

	var count atomic.Int32
	mock.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, e *events.Event) error {
		assert.Equal(t, events.EventWorkflowCompleted, e.Name)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		count.Add(1)
		return nil
	}).Times(10)

	a := events.NewAsyncEmitter(mock, 0, 2)

	// a cancelled request context must not prevent delivery
	ctx, cancel := context.WithCancel(context.Background())
	for range 10 {
		require.NoError(t, a.Emit(ctx, workflowEvent("1")))
	}
	cancel()

	require.NoError(t, a.Close())
	assert.Equal(t, int32(10), count.Load())

	// closed emitter drops without error
	assert.NoError(t, a.Emit(context.Background(), workflowEvent("2")))
	assert.NoError(t, a.Close())
}

type blockingEmitter struct {
	release chan struct{}
	got     atomic.Int32
}

func (b *blockingEmitter) Emit(context.Context, *events.Event) error {
	<-b.release
	b.got.Add(1)
	return nil
}

func TestAsyncEmitter_NeverBlocks(t *testing.T) {
	b := &blockingEmitter{release: make(chan struct{})}
	a := events.NewAsyncEmitter(b, 1, 1)

	done := make(chan struct{})
	go func() {
		for range 20 {
			_ = a.Emit(context.Background(), workflowEvent("1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	close(b.release)
	require.NoError(t, a.Close())
	// one in flight plus one queued at most
	assert.LessOrEqual(t, b.got.Load(), int32(2))
	assert.GreaterOrEqual(t, b.got.Load(), int32(1))
}

type failingEmitter struct{ panics bool }

func (f failingEmitter) Emit(context.Context, *events.Event) error {
	if f.panics {
		panic("sink exploded")
	}
	return errors.New("sink unavailable")
}

func TestAsyncEmitter_Failures(t *testing.T) {
	for _, f := range []failingEmitter{{panics: false}, {panics: true}} {
		a := events.NewAsyncEmitter(f, 4, 1)
		assert.NoError(t, a.Emit(context.Background(), workflowEvent("1")))
		assert.NoError(t, a.Close())
	}
}

func TestTransformer(t *testing.T) {
	tr := &events.Transformer{PlatformURL: "https://lms.example.com/"}
	st := tr.Transform(workflowEvent("42"))

	assert.NotEmpty(t, st.ID)
	assert.Equal(t, events.VerbCompleted, st.Verb.ID)
	assert.Equal(t, "https://lms.example.com/xapi/activity/ai_workflow/42", st.Object.ID)
	assert.Equal(t, "AI Workflow: summarize", st.Object.Definition.Name[events.LangEN])
	assert.Equal(t, "learner", st.Actor.Account.Name)
	assert.Equal(t, "2026-01-02T03:04:05Z", st.Timestamp)
	require.NotNil(t, st.Context)
	require.Len(t, st.Context.ContextActivities.Grouping, 1)
	assert.Equal(t, "https://lms.example.com/xapi/activity/course/course-v1:edX+DemoX+2024",
		st.Context.ContextActivities.Grouping[0].ID)

	js, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"objectType":"Agent"`)

	noCourse := workflowEvent("7")
	noCourse.CourseID = ""
	delete(noCourse.Data, "action")
	st = tr.Transform(noCourse)
	assert.Nil(t, st.Context)
	assert.Equal(t, "AI Workflow: unknown_action", st.Object.Definition.Name[events.LangEN])
}
