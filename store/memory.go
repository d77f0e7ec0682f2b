package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/pkg/metricskey"
	"github.com/effective-security/edxai/workflows"
	"github.com/effective-security/xlog"
)

const memoryStoreTag = "memory"

// MemorySessionStore keeps sessions in memory and expires them after the idle TTL
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*mcp.Session
	ttl      time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

var _ mcp.SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore returns a store with the idle TTL,
// mcp.DefaultSessionTTL is used if ttl is zero.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = mcp.DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]*mcp.Session),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Create stores a copy of the session with a new unique ID
func (m *MemorySessionStore) Create(_ context.Context, s *mcp.Session) (*mcp.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for range maxIDAttempts {
		id := mcp.NewSessionID()
		if _, exists := m.sessions[id]; exists {
			continue
		}

		c := *s
		c.ID = id
		c.LastSeenAt = m.now()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = c.LastSeenAt
		}
		m.sessions[id] = &c
		metricskey.StatsSessionsCreated.IncrCounter(1, memoryStoreTag)
		m.reportActive()

		res := c
		return &res, nil
	}
	return nil, errors.New("failed to generate unique session ID")
}

// Get returns a copy of the live session
func (m *MemorySessionStore) Get(_ context.Context, id string) (*mcp.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || s.Expired(m.now(), m.ttl) {
		return nil, errors.WithMessagef(mcp.ErrSessionNotFound, "session %s", id)
	}
	c := *s
	return &c, nil
}

// Update stores the session state
func (m *MemorySessionStore) Update(_ context.Context, s *mcp.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[s.ID]
	if !ok || cur.Expired(m.now(), m.ttl) {
		return errors.WithMessagef(mcp.ErrSessionNotFound, "session %s", s.ID)
	}
	c := *s
	c.LastSeenAt = m.now()
	m.sessions[s.ID] = &c
	return nil
}

// Touch refreshes the idle timer of the session
func (m *MemorySessionStore) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Expired(m.now(), m.ttl) {
		return errors.WithMessagef(mcp.ErrSessionNotFound, "session %s", id)
	}
	s.LastSeenAt = m.now()
	return nil
}

// Destroy removes the session
func (m *MemorySessionStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		metricskey.StatsSessionsDestroyed.IncrCounter(1, memoryStoreTag)
		m.reportActive()
	}
	return nil
}

// Count returns the number of live sessions
func (m *MemorySessionStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	count := 0
	for _, s := range m.sessions {
		if !s.Expired(now, m.ttl) {
			count++
		}
	}
	return count, nil
}

// Reap removes sessions idle longer than the TTL, and returns the number removed
func (m *MemorySessionStore) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now, m.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metricskey.StatsSessionsExpired.IncrCounter(float64(removed), memoryStoreTag)
		logger.KV(xlog.DEBUG, "status", "reaped", "sessions", removed)
	}
	m.reportActive()
	return removed
}

// reportActive must be called with the lock held
func (m *MemorySessionStore) reportActive() {
	metricskey.StatsSessionsActive.SetGauge(float64(len(m.sessions)), memoryStoreTag)
}

// Start runs the reaper until ctx is done or the store is closed,
// the reaper runs every half of the TTL if interval is zero.
func (m *MemorySessionStore) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.Reap()
			}
		}
	}()
}

// Close stops the reaper
func (m *MemorySessionStore) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	return nil
}

// MemoryWorkflowStore keeps workflow records in memory
type MemoryWorkflowStore struct {
	mu    sync.Mutex
	byKey map[string]*workflows.Workflow
	byID  map[string]*workflows.Workflow
}

var _ workflows.Store = (*MemoryWorkflowStore)(nil)

// NewMemoryWorkflowStore returns an empty store
func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{
		byKey: make(map[string]*workflows.Workflow),
		byID:  make(map[string]*workflows.Workflow),
	}
}

// FindOrCreate returns the stored workflow with the same key, or stores w
func (m *MemoryWorkflowStore) FindOrCreate(_ context.Context, w *workflows.Workflow) (*workflows.Workflow, bool, error) {
	key := strings.Join(w.Key(), "\x00")

	m.mu.Lock()
	defer m.mu.Unlock()

	if found, ok := m.byKey[key]; ok {
		c := *found
		return &c, false, nil
	}

	c := *w
	if c.ID == "" {
		c.ID = workflows.NewWorkflowID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.ExtraContext = nil
	c.Config = nil
	m.byKey[key] = &c
	m.byID[c.ID] = &c

	res := c
	return &res, true, nil
}

// Get returns the workflow by ID
func (m *MemoryWorkflowStore) Get(_ context.Context, id string) (*workflows.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.byID[id]
	if !ok {
		return nil, errors.WithMessagef(workflows.ErrWorkflowNotFound, "workflow %s", id)
	}
	c := *w
	return &c, nil
}
