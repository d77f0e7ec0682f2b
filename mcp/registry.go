package mcp

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// ToolHandler executes a tool call
type ToolHandler func(ctx context.Context, call *CallContext) (*ToolResult, error)

// Tool is an invocable capability exposed to clients
type Tool struct {
	Name        string
	Description string
	// InputSchema is the JSON schema of the arguments,
	// an object schema with no properties is used if nil.
	InputSchema any
	Handler     ToolHandler
}

// ToolInfo describes a tool in tools/list
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema"`
}

var emptyObjectSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

// Registry holds registered tools.
// By default a repeated registration replaces the previous tool,
// in strict mode it fails with ErrDuplicateTool.
type Registry struct {
	lock   sync.RWMutex
	tools  map[string]*Tool
	strict bool
	frozen bool
}

// NewRegistry returns an empty registry
func NewRegistry(strict bool) *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		strict: strict,
	}
}

// Register adds the tool to the registry
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return errors.New("tool name is required")
	}
	if t.Handler == nil {
		return errors.Errorf("tool %s: handler is required", name)
	}
	if t.InputSchema == nil {
		t.InputSchema = emptyObjectSchema
	}
	t.Name = name

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.frozen {
		return errors.WithMessagef(ErrRegistryFrozen, "tool %s", name)
	}
	if _, ok := r.tools[name]; ok {
		if r.strict {
			return errors.WithMessagef(ErrDuplicateTool, "tool %s", name)
		}
		logger.KV(xlog.WARNING, "reason", "replace_tool", "tool", name)
	}
	r.tools[name] = &t
	return nil
}

// Resolve returns the tool by name
func (r *Registry) Resolve(name string) (*Tool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// List returns registered tools sorted by name
func (r *Registry) List() []ToolInfo {
	r.lock.RLock()
	list := make([]ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	r.lock.RUnlock()

	slices.SortFunc(list, func(a, b ToolInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return list
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.tools)
}

// Freeze prevents further registrations
func (r *Registry) Freeze() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.frozen = true
}
