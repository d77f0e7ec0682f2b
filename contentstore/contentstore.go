// Package contentstore reads course content blocks from the platform.
package contentstore

//go:generate mockgen -source=contentstore.go -destination=../mocks/mockcontentstore/contentstore_mock.gen.go -package mockcontentstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/opaquekeys"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "contentstore")

// Block categories with text content
const (
	CategoryHTML     = "html"
	CategoryProblem  = "problem"
	CategoryVertical = "vertical"
)

// ErrNotFound is returned for unknown blocks
var ErrNotFound = errors.New("block not found")

// Block is a content block
type Block struct {
	// ID is the usage key of the block
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Data        string   `json:"data,omitempty"`
	Children    []string `json:"children,omitempty"`
}

// Store provides content blocks by usage key
type Store interface {
	// GetUnit returns the unit with its children keys
	GetUnit(ctx context.Context, key *opaquekeys.UsageKey) (*Block, error)
	// GetItem returns any block
	GetItem(ctx context.Context, key *opaquekeys.UsageKey) (*Block, error)
}

// MemoryStore is a Store backed by a map
type MemoryStore struct {
	lock   sync.RWMutex
	blocks map[string]*Block
}

// NewMemoryStore returns a store with the blocks
func NewMemoryStore(blocks ...*Block) *MemoryStore {
	m := &MemoryStore{
		blocks: make(map[string]*Block),
	}
	m.Put(blocks...)
	return m
}

// Put adds or replaces blocks
func (m *MemoryStore) Put(blocks ...*Block) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, b := range blocks {
		c := *b
		c.Children = slices.Clone(b.Children)
		m.blocks[b.ID] = &c
	}
}

// Keys returns sorted keys of stored blocks
func (m *MemoryStore) Keys() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return slices.Sorted(maps.Keys(m.blocks))
}

// GetUnit implements Store
func (m *MemoryStore) GetUnit(ctx context.Context, key *opaquekeys.UsageKey) (*Block, error) {
	return m.GetItem(ctx, key)
}

// GetItem implements Store
func (m *MemoryStore) GetItem(_ context.Context, key *opaquekeys.UsageKey) (*Block, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	b, ok := m.blocks[key.String()]
	if !ok {
		return nil, errors.WithMessagef(ErrNotFound, "%s", key.String())
	}
	c := *b
	c.Children = slices.Clone(b.Children)
	return &c, nil
}
