package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is the idle time after which a session expires
const DefaultSessionTTL = 30 * time.Minute

// NewSessionID returns a new random session id,
// it can be replaced in tests.
var NewSessionID = uuid.NewString

// Implementation describes a client or server
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Session is a protocol session created by initialize
type Session struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	LastSeenAt      time.Time       `json:"last_seen_at"`
	ProtocolVersion string          `json:"protocol_version,omitempty"`
	ClientInfo      *Implementation `json:"client_info,omitempty"`
	// Initialized is set when the client confirmed initialization
	Initialized bool `json:"initialized,omitempty"`
}

// Expired returns true if the session was idle longer than ttl
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastSeenAt) > ttl
}

// SessionStore keeps protocol sessions.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Create stores a new session and assigns a unique ID to it
	Create(ctx context.Context, s *Session) (*Session, error)
	// Get returns the session, or ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, error)
	// Update stores the session state and refreshes its idle timer
	Update(ctx context.Context, s *Session) error
	// Touch refreshes the idle timer of the session
	Touch(ctx context.Context, id string) error
	// Destroy removes the session, destroying an unknown session is not an error
	Destroy(ctx context.Context, id string) error
	// Count returns the number of live sessions
	Count(ctx context.Context) (int, error)
}

type contextKey int

const (
	keySession contextKey = iota
)

// WithSession returns a new context with the Session value
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, keySession, s)
}

// SessionFromContext returns the Session of the current request, or nil
func SessionFromContext(ctx context.Context) *Session {
	if v, ok := ctx.Value(keySession).(*Session); ok {
		return v
	}
	return nil
}
