package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/workflows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemorySessionStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore(time.Minute)

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	s, err := st.Create(ctx, &mcp.Session{ProtocolVersion: mcp.LatestProtocolVersion})
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.LastSeenAt)

	got, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// returned sessions are copies
	got.ProtocolVersion = "changed"
	got2, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, mcp.LatestProtocolVersion, got2.ProtocolVersion)

	got2.Initialized = true
	require.NoError(t, st.Update(ctx, got2))
	got3, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got3.Initialized)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = st.Get(ctx, "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mcp.ErrSessionNotFound))
	assert.True(t, errors.Is(st.Touch(ctx, "unknown"), mcp.ErrSessionNotFound))
	assert.True(t, errors.Is(st.Update(ctx, &mcp.Session{ID: "unknown"}), mcp.ErrSessionNotFound))

	require.NoError(t, st.Destroy(ctx, s.ID))
	// idempotent
	require.NoError(t, st.Destroy(ctx, s.ID))
	_, err = st.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, mcp.ErrSessionNotFound))

	count, err = st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func Test_MemorySessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore(time.Minute)

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	s1, err := st.Create(ctx, &mcp.Session{})
	require.NoError(t, err)
	s2, err := st.Create(ctx, &mcp.Session{})
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	require.NoError(t, st.Touch(ctx, s2.ID))

	now = now.Add(20 * time.Second)
	// s1 is idle for 70s and expired before the reaper runs
	_, err = st.Get(ctx, s1.ID)
	assert.True(t, errors.Is(err, mcp.ErrSessionNotFound))
	_, err = st.Get(ctx, s2.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, st.Reap())
	assert.Equal(t, 0, st.Reap())
	assert.Len(t, st.sessions, 1)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, st.Reap())
	assert.Empty(t, st.sessions)
}

func Test_MemorySessionStore_Reaper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := NewMemorySessionStore(time.Millisecond)
	defer st.Close()

	_, err := st.Create(ctx, &mcp.Session{})
	require.NoError(t, err)

	st.Start(ctx, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		st.mu.RLock()
		defer st.mu.RUnlock()
		return len(st.sessions) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, st.Close())
	// close is idempotent
	require.NoError(t, st.Close())
}

func Test_MemorySessionStore_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore(0)
	assert.Equal(t, mcp.DefaultSessionTTL, st.ttl)

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	ids := make(chan string, workers*perWorker)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				s, err := st.Create(ctx, &mcp.Session{})
				if assert.NoError(t, err) {
					ids <- s.ID
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func Test_MemorySessionStore_Collision(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore(time.Minute)

	n := 0
	mcp.NewSessionID = func() string {
		n++
		return fmt.Sprintf("id-%d", min(n, 2))
	}
	defer func() {
		mcp.NewSessionID = defaultSessionID
	}()

	s1, err := st.Create(ctx, &mcp.Session{})
	require.NoError(t, err)
	assert.Equal(t, "id-1", s1.ID)

	s2, err := st.Create(ctx, &mcp.Session{})
	require.NoError(t, err)
	assert.Equal(t, "id-2", s2.ID)

	// all attempts collide with id-2
	_, err = st.Create(ctx, &mcp.Session{})
	assert.EqualError(t, err, "failed to generate unique session ID")
}

var defaultSessionID = mcp.NewSessionID

func Test_MemoryWorkflowStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryWorkflowStore()

	w := &workflows.Workflow{
		Action:       "summarize",
		CourseID:     "course-v1:edX+DemoX+Demo_Course",
		UnitID:       "u1",
		UserID:       "42",
		Orchestrator: "mock",
		ExtraContext: map[string]any{"unitId": "u1"},
	}

	created, ok, err := st.FindOrCreate(ctx, w)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.ExtraContext)

	found, ok, err := st.FindOrCreate(ctx, &workflows.Workflow{
		Action:   "summarize",
		CourseID: "course-v1:edX+DemoX+Demo_Course",
		UnitID:   "u1",
		UserID:   "42",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, created.ID, found.ID)

	other, ok, err := st.FindOrCreate(ctx, &workflows.Workflow{
		Action:   "summarize",
		CourseID: "course-v1:edX+DemoX+Demo_Course",
		UnitID:   "u2",
		UserID:   "42",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, created.ID, other.ID)

	got, err := st.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "mock", got.Orchestrator)

	_, err = st.Get(ctx, "missing")
	assert.True(t, errors.Is(err, workflows.ErrWorkflowNotFound))
}
