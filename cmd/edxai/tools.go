package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/mcp/transport/localtransport"
	"github.com/effective-security/edxai/pkg/llmutils"
)

// ToolsCmd lists tools
type ToolsCmd struct {
	URL    string `short:"u" long:"url" description:"remote MCP endpoint, the configured tools are listed if empty"`
	Schema bool   `long:"schema" description:"print input schemas"`
}

// Execute implements flags.Commander
func (c *ToolsCmd) Execute(_ []string) error {
	ctx := context.Background()
	client, closer, err := newClient(ctx, c.URL)
	if err != nil {
		return err
	}
	defer closer()

	list, err := client.ListAllTools(ctx)
	if err != nil {
		return err
	}
	for _, t := range list {
		fmt.Printf("%s\t%s\n", t.Name, t.Description)
		if c.Schema {
			fmt.Println(llmutils.ToJSONIndent(t.InputSchema))
		}
	}
	return nil
}

// CallCmd calls a tool
type CallCmd struct {
	URL  string `short:"u" long:"url" description:"remote MCP endpoint, the configured tools are called if empty"`
	Tool string `short:"t" long:"tool" description:"tool name" required:"yes"`
	Args string `short:"a" long:"args" description:"JSON arguments" default:"{}"`
}

// Execute implements flags.Commander
func (c *CallCmd) Execute(_ []string) error {
	if !json.Valid([]byte(c.Args)) {
		return errors.New("--args must be a JSON object")
	}

	ctx := context.Background()
	client, closer, err := newClient(ctx, c.URL)
	if err != nil {
		return err
	}
	defer closer()

	res, err := client.CallTool(ctx, c.Tool, json.RawMessage(c.Args))
	if err != nil {
		return err
	}
	if res.StructuredContent != nil {
		fmt.Println(llmutils.ToJSONIndent(res.StructuredContent))
	} else {
		fmt.Println(res.Text())
	}
	if res.IsError {
		closer()
		os.Exit(2)
	}
	return nil
}

// newClient returns an initialized client for the remote URL or the configured server
func newClient(ctx context.Context, url string) (*localtransport.Client, func(), error) {
	var (
		handler localtransport.Handler
		svc     *service
	)
	if url != "" {
		handler = localtransport.NewHTTPHandler(url, nil)
	} else {
		var err error
		svc, err = loadService()
		if err != nil {
			return nil, nil, err
		}
		handler = localtransport.New(svc.server)
	}

	client := localtransport.NewClient(handler)
	if _, err := client.Initialize(ctx, "edxai-cli", Version); err != nil {
		if svc != nil {
			_ = svc.Close()
		}
		return nil, nil, errors.WithMessage(err, "failed to initialize session")
	}

	closer := func() {
		_ = client.Close(ctx)
		if svc != nil {
			_ = svc.Close()
		}
	}
	return client, closer, nil
}
