package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/edxai/config"
	"github.com/effective-security/edxai/mcp/transport/localtransport"
	"github.com/effective-security/edxai/tools/unitcontent"
	"github.com/effective-security/edxai/workflows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	file := filepath.Join(t.TempDir(), "edxai.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o600))
	return file
}

func TestService(t *testing.T) {
	opts.Config = writeConfig(t, `
mcp:
  session_ttl: 10m
  strict_registration: true
events:
  sink: none
workflows:
  - action: mock
    orchestrator: mock
`)

	svc, err := loadService()
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.start(ctx)

	client := localtransport.NewClient(localtransport.New(svc.server))
	_, err = client.Initialize(ctx, "test", "1")
	require.NoError(t, err)

	list, err := client.ListAllTools(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, unitcontent.ToolName, list[0].Name)

	res, err := client.CallTool(ctx, unitcontent.ToolName, json.RawMessage(`{"unit_id":""}`))
	require.NoError(t, err)
	assert.Equal(t, `{"error":"Missing unitId in context"}`, res.Text())

	wr, err := svc.runner.Execute(ctx, &workflows.Request{Action: "mock", CourseID: "course-v1:a+b+c", UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response for mock", wr.Envelope.Response)
	assert.Equal(t, []string{"mock"}, svc.runner.Actions())
}

func TestService_InvalidContentStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.ContentStore.BaseURL = "::bad"
	cfg.Events.Sink = config.SinkLog
	_, err := newService(cfg)
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	for _, l := range []string{"debug", "NOTICE", "warning", "error", "info", "bogus"} {
		setupLogging(l)
	}
	setupLogging("INFO")
}
