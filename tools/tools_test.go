package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/store"
	"github.com/effective-security/edxai/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetRequest struct {
	Name  string `json:"name" validate:"required" jsonschema:"description=Who to greet"`
	Times int    `json:"times,omitempty" validate:"gte=0,lte=3"`
}

type greetResult struct {
	Greeting string `json:"greeting"`
}

func greet(_ context.Context, in *greetRequest) (*greetResult, error) {
	if in.Name == "nobody" {
		return nil, errors.New("nobody to greet")
	}
	return &greetResult{Greeting: "hello " + in.Name}, nil
}

func TestTool_Handle(t *testing.T) {
	tool, err := tools.New("greet", "Greets", greet)
	require.NoError(t, err)
	assert.Equal(t, "greet", tool.Name())
	assert.Equal(t, "Greets", tool.Description())
	assert.NotNil(t, tool.Parameters())

	ctx := context.Background()
	res, err := tool.Handle(ctx, &mcp.CallContext{Arguments: json.RawMessage(`{"name":"ada"}`)})
	require.NoError(t, err)
	assert.Equal(t, `{"greeting":"hello ada"}`, res.Text())
	assert.Equal(t, &greetResult{Greeting: "hello ada"}, res.StructuredContent)

	// fenced arguments are accepted
	res, err = tool.Handle(ctx, &mcp.CallContext{Arguments: json.RawMessage("```json\n{\"name\":\"bob\"}\n```")})
	require.NoError(t, err)
	assert.Equal(t, `{"greeting":"hello bob"}`, res.Text())

	tcases := []struct {
		args string
		exp  string
	}{
		{``, "invalid arguments: Key: 'greetRequest.Name' Error:Field validation for 'Name' failed on the 'required' tag"},
		{`{"name":"ada","times":9}`, "invalid arguments: Key: 'greetRequest.Times' Error:Field validation for 'Times' failed on the 'lte' tag"},
	}
	for _, tc := range tcases {
		_, err = tool.Handle(ctx, &mcp.CallContext{Arguments: json.RawMessage(tc.args)})
		require.Error(t, err, tc.args)
		var ierr *mcp.InvalidArgumentsError
		assert.True(t, errors.As(err, &ierr))
		assert.Equal(t, tc.exp, err.Error())
		assert.Equal(t, mcp.CodeInvalidParams, mcp.ToError(err).Code)
	}

	_, err = tool.Handle(ctx, &mcp.CallContext{Arguments: json.RawMessage(`{"name":"nobody"}`)})
	assert.EqualError(t, err, "nobody to greet")
	assert.Equal(t, mcp.CodeToolFailed, mcp.ToError(err).Code)
}

func TestTool_StringOutput(t *testing.T) {
	tool, err := tools.New("echo", "Echo", func(_ context.Context, in *greetRequest) (*string, error) {
		return &in.Name, nil
	})
	require.NoError(t, err)
	res, err := tool.Handle(context.Background(), &mcp.CallContext{Arguments: json.RawMessage(`{"name":"x"}`)})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Text())
	assert.Nil(t, res.StructuredContent)
}

func TestNew_Errors(t *testing.T) {
	_, err := tools.New[greetRequest, greetResult]("greet", "", nil)
	assert.EqualError(t, err, "tool greet: function is required")

	_, err = tools.New("bad", "", func(_ context.Context, in *string) (*string, error) { return in, nil })
	assert.EqualError(t, err, "tool bad: schema: string is not a struct")
}

func TestRegister(t *testing.T) {
	tool, err := tools.New("greet", "Greets", greet)
	require.NoError(t, err)

	srv := mcp.NewServer("test", "1.0", store.NewMemorySessionStore(0), mcp.WithStrictRegistration())
	require.NoError(t, tools.Register(srv, tool))

	err = tools.Register(srv, tool)
	assert.True(t, errors.Is(err, mcp.ErrDuplicateTool))

	list := srv.Registry().List()
	require.Len(t, list, 1)
	assert.Equal(t, "greet", list[0].Name)
}
