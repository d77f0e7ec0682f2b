package store

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/pkg/metricskey"
	"github.com/effective-security/edxai/workflows"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

const redisStoreTag = "redis"

// RedisSessionStore keeps sessions in Redis with the idle TTL as key expiration
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ mcp.SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore returns a store, mcp.DefaultSessionTTL is used if ttl is zero
func NewRedisSessionStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = mcp.DefaultSessionTTL
	}
	return &RedisSessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (m *RedisSessionStore) sessionKey(id string) string {
	return path.Join(m.prefix, "mcp", "sessions", id)
}

// Create stores the session with a new unique ID
func (m *RedisSessionStore) Create(ctx context.Context, s *mcp.Session) (*mcp.Session, error) {
	c := *s
	c.LastSeenAt = time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.LastSeenAt
	}

	for range maxIDAttempts {
		c.ID = mcp.NewSessionID()
		data, err := json.Marshal(&c)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal session")
		}

		ok, err := m.client.SetNX(ctx, m.sessionKey(c.ID), data, m.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, "failed to store session in Redis")
		}
		if ok {
			metricskey.StatsSessionsCreated.IncrCounter(1, redisStoreTag)
			return &c, nil
		}
	}
	return nil, errors.New("failed to generate unique session ID")
}

// Get returns the session
func (m *RedisSessionStore) Get(ctx context.Context, id string) (*mcp.Session, error) {
	data, err := m.client.Get(ctx, m.sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.WithMessagef(mcp.ErrSessionNotFound, "session %s", id)
		}
		return nil, errors.Wrap(err, "failed to get session from Redis")
	}

	s := new(mcp.Session)
	if err = json.Unmarshal([]byte(data), s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}
	return s, nil
}

// Update stores the session state and refreshes its expiration
func (m *RedisSessionStore) Update(ctx context.Context, s *mcp.Session) error {
	c := *s
	c.LastSeenAt = time.Now().UTC()
	data, err := json.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	ok, err := m.client.SetXX(ctx, m.sessionKey(s.ID), data, m.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to store session in Redis")
	}
	if !ok {
		return errors.WithMessagef(mcp.ErrSessionNotFound, "session %s", s.ID)
	}
	return nil
}

// Touch refreshes the expiration of the session
func (m *RedisSessionStore) Touch(ctx context.Context, id string) error {
	ok, err := m.client.Expire(ctx, m.sessionKey(id), m.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to refresh session in Redis")
	}
	if !ok {
		return errors.WithMessagef(mcp.ErrSessionNotFound, "session %s", id)
	}
	return nil
}

// Destroy removes the session
func (m *RedisSessionStore) Destroy(ctx context.Context, id string) error {
	n, err := m.client.Del(ctx, m.sessionKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, "failed to delete session from Redis")
	}
	if n > 0 {
		metricskey.StatsSessionsDestroyed.IncrCounter(1, redisStoreTag)
	}
	return nil
}

// Count returns the number of live sessions
func (m *RedisSessionStore) Count(ctx context.Context) (int, error) {
	// Use SCAN instead of KEYS for better performance
	iter := m.client.Scan(ctx, 0, m.sessionKey("*"), 0).Iterator()
	count := 0
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, errors.Wrap(err, "failed to scan sessions from Redis")
	}
	return count, nil
}

// RedisWorkflowStore keeps workflow records in Redis
type RedisWorkflowStore struct {
	client redis.UniversalClient
	prefix string
}

var _ workflows.Store = (*RedisWorkflowStore)(nil)

// NewRedisWorkflowStore returns a store
func NewRedisWorkflowStore(client redis.UniversalClient, prefix string) *RedisWorkflowStore {
	return &RedisWorkflowStore{
		client: client,
		prefix: prefix,
	}
}

// keyIndex escapes each part of the workflow key,
// empty parts are kept so that every tuple maps to its own key.
func (m *RedisWorkflowStore) keyIndex(w *workflows.Workflow) string {
	parts := w.Key()
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return path.Join(m.prefix, "workflows", "key") + "/" + strings.Join(escaped, "/")
}

func (m *RedisWorkflowStore) recordKey(id string) string {
	return path.Join(m.prefix, "workflows", "id", id)
}

// FindOrCreate returns the stored workflow with the same key, or stores w
func (m *RedisWorkflowStore) FindOrCreate(ctx context.Context, w *workflows.Workflow) (*workflows.Workflow, bool, error) {
	c := *w
	if c.ID == "" {
		c.ID = workflows.NewWorkflowID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.ExtraContext = nil
	c.Config = nil

	data, err := json.Marshal(&c)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to marshal workflow")
	}

	// the record is written before the key, so a key always points to a record
	recordKey := m.recordKey(c.ID)
	if err = m.client.Set(ctx, recordKey, data, 0).Err(); err != nil {
		return nil, false, errors.Wrap(err, "failed to store workflow in Redis")
	}

	indexKey := m.keyIndex(&c)
	ok, err := m.client.SetNX(ctx, indexKey, c.ID, 0).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to store workflow key in Redis")
	}
	if ok {
		return &c, true, nil
	}

	if err = m.client.Del(ctx, recordKey).Err(); err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "delete_orphan_workflow", "id", c.ID, "err", err.Error())
	}
	id, err := m.client.Get(ctx, indexKey).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get workflow key from Redis")
	}
	found, err := m.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return found, false, nil
}

// Get returns the workflow by ID
func (m *RedisWorkflowStore) Get(ctx context.Context, id string) (*workflows.Workflow, error) {
	data, err := m.client.Get(ctx, m.recordKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.WithMessagef(workflows.ErrWorkflowNotFound, "workflow %s", id)
		}
		return nil, errors.Wrap(err, "failed to get workflow from Redis")
	}

	w := new(workflows.Workflow)
	if err = json.Unmarshal([]byte(data), w); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal workflow")
	}
	return w, nil
}
