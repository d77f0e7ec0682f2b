package mcp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textTool(name, text string) Tool {
	return Tool{
		Name: name,
		Handler: func(context.Context, *CallContext) (*ToolResult, error) {
			return NewTextResult(text), nil
		},
	}
}

func Test_Registry(t *testing.T) {
	r := NewRegistry(false)

	assert.EqualError(t, r.Register(Tool{Name: " "}), "tool name is required")
	assert.EqualError(t, r.Register(Tool{Name: "x"}), "tool x: handler is required")

	require.NoError(t, r.Register(textTool("b", "first")))
	require.NoError(t, r.Register(textTool(" a ", "a")))
	// last registration wins
	require.NoError(t, r.Register(textTool("b", "second")))
	assert.Equal(t, 2, r.Len())

	tool, err := r.Resolve("b")
	require.NoError(t, err)
	res, err := tool.Handler(context.Background(), &CallContext{})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Text())

	_, err = r.Resolve("c")
	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "c", unknown.Name)

	want := []ToolInfo{
		{Name: "a", InputSchema: emptyObjectSchema},
		{Name: "b", InputSchema: emptyObjectSchema},
	}
	if diff := cmp.Diff(want, r.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	r.Freeze()
	assert.ErrorIs(t, r.Register(textTool("c", "c")), ErrRegistryFrozen)
}

func Test_Registry_Strict(t *testing.T) {
	r := NewRegistry(true)
	require.NoError(t, r.Register(textTool("a", "1")))
	assert.ErrorIs(t, r.Register(textTool("a", "2")), ErrDuplicateTool)

	tool, err := r.Resolve("a")
	require.NoError(t, err)
	res, err := tool.Handler(context.Background(), &CallContext{})
	require.NoError(t, err)
	assert.Equal(t, "1", res.Text())
}

func Test_ToError(t *testing.T) {
	assert.Nil(t, ToError(nil))

	tcases := []struct {
		err  error
		code int
		msg  string
	}{
		{&UnknownToolError{Name: "x"}, CodeUnknownTool, "unknown tool: x"},
		{&InvalidArgumentsError{Reason: "unitId is required"}, CodeInvalidParams, "invalid arguments: unitId is required"},
		{&SessionRequiredError{}, CodeSessionRequired, "session required"},
		{&SessionRequiredError{SessionID: "s1"}, CodeSessionRequired, `session required: unknown session "s1"`},
		{context.DeadlineExceeded, CodeToolTimeout, "tool call timed out"},
		{&Error{Code: CodeInternalError, Message: "internal error"}, CodeInternalError, "internal error"},
		{assert.AnError, CodeToolFailed, assert.AnError.Error()},
	}
	for _, tc := range tcases {
		e := ToError(tc.err)
		assert.Equal(t, tc.code, e.Code)
		assert.Equal(t, tc.msg, e.Message)
	}
}
