package tools

import (
	"context"
	"reflect"
	"strings"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/pkg/llmutils"
	"github.com/effective-security/edxai/pkg/schema"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Func is a typed tool implementation
type Func[I any, O any] func(ctx context.Context, in *I) (*O, error)

// Tool is a typed tool
type Tool[I any, O any] struct {
	name        string
	description string
	schema      *schema.Schema
	fn          Func[I, O]
}

// New returns a typed tool, the input schema is reflected from I
func New[I any, O any](name, description string, fn Func[I, O]) (*Tool[I, O], error) {
	if fn == nil {
		return nil, errors.Errorf("tool %s: function is required", name)
	}
	sc, err := schema.New(reflect.TypeFor[I]())
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", name)
	}
	return &Tool[I, O]{
		name:        name,
		description: description,
		schema:      sc,
		fn:          fn,
	}, nil
}

// Name returns the name of the tool
func (t *Tool[I, O]) Name() string {
	return t.name
}

// Description returns the description of the tool
func (t *Tool[I, O]) Description() string {
	return t.description
}

// Parameters returns the input schema
func (t *Tool[I, O]) Parameters() any {
	return t.schema.Parameters
}

// Run executes the tool with decoded input
func (t *Tool[I, O]) Run(ctx context.Context, in *I) (*O, error) {
	return t.fn(ctx, in)
}

// Decode parses and validates the arguments.
// Arguments produced by models are decoded leniently.
func (t *Tool[I, O]) Decode(args []byte) (*I, error) {
	var in I
	data := llmutils.CleanJSON(args)
	if len(strings.TrimSpace(string(data))) == 0 || string(data) == "null" {
		data = []byte("{}")
	}
	if err := ljson.Unmarshal(data, &in); err != nil {
		return nil, &mcp.InvalidArgumentsError{Reason: err.Error()}
	}
	if err := validate.Struct(&in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, &mcp.InvalidArgumentsError{Reason: verrs.Error()}
		}
		return nil, errors.Wrap(err, "failed to validate arguments")
	}
	return &in, nil
}

// Handle implements mcp.ToolHandler
func (t *Tool[I, O]) Handle(ctx context.Context, call *mcp.CallContext) (*mcp.ToolResult, error) {
	in, err := t.Decode(call.Arguments)
	if err != nil {
		return nil, err
	}
	out, err := t.fn(ctx, in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return mcp.NewTextResult(""), nil
	}
	if s, ok := any(out).(*string); ok {
		return mcp.NewTextResult(*s), nil
	}
	return mcp.NewStructuredResult(out)
}

// MCPTool returns the registry form of the tool
func (t *Tool[I, O]) MCPTool() mcp.Tool {
	return mcp.Tool{
		Name:        t.name,
		Description: t.description,
		InputSchema: t.schema.Parameters,
		Handler:     t.Handle,
	}
}

// Registrar accepts tools, mcp.Server implements it
type Registrar interface {
	RegisterTool(t mcp.Tool) error
}

// MCPTool is implemented by tools that can be served
type MCPTool interface {
	MCPTool() mcp.Tool
}

// Register adds the tools to the registrar
func Register(r Registrar, list ...MCPTool) error {
	for _, t := range list {
		mt := t.MCPTool()
		if err := r.RegisterTool(mt); err != nil {
			return errors.WithMessagef(err, "failed to register %s", mt.Name)
		}
	}
	return nil
}
