package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/llmutils"
	"github.com/effective-security/edxai/workflows"
	"github.com/google/uuid"
)

// WorkflowCmd runs a workflow action with the configured workflows
type WorkflowCmd struct {
	Action   string `short:"a" long:"action" description:"workflow action" required:"yes"`
	CourseID string `long:"course" description:"course key" required:"yes"`
	UserID   string `long:"user" description:"user id" default:"cli"`
	UnitID   string `long:"unit" description:"unit usage key"`
	Context  string `long:"context" description:"JSON context object"`
	Input    string `long:"input" description:"JSON user input object"`
	JSON     bool   `long:"json" description:"print result as JSON instead of YAML"`
	List     bool   `long:"list" description:"list configured actions and exit"`
}

// Execute implements flags.Commander
func (c *WorkflowCmd) Execute(_ []string) error {
	svc, err := loadService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if c.List {
		for _, a := range svc.runner.Actions() {
			fmt.Println(a)
		}
		return nil
	}

	req := &workflows.Request{
		Action:    c.Action,
		CourseID:  c.CourseID,
		UserID:    c.UserID,
		RequestID: uuid.NewString(),
		Context:   map[string]any{},
	}
	if c.Context != "" {
		if err = json.Unmarshal([]byte(c.Context), &req.Context); err != nil {
			return errors.Wrap(err, "invalid --context")
		}
	}
	if c.UnitID != "" {
		req.Context[workflows.ContextUnitID] = c.UnitID
	}
	if c.Input != "" {
		if err = json.Unmarshal([]byte(c.Input), &req.UserInput); err != nil {
			return errors.Wrap(err, "invalid --input")
		}
	}

	res, err := svc.runner.Execute(context.Background(), req)
	if err != nil {
		return err
	}

	out := map[string]any{
		"requestId":        req.RequestID,
		"workflow_id":      res.Workflow.ID,
		"workflow_created": res.Created,
		"envelope":         res.Envelope,
	}
	if c.JSON {
		fmt.Println(llmutils.ToJSONIndent(out))
	} else {
		fmt.Print(llmutils.ToYAML(out))
	}
	if res.Envelope.Failed() {
		_ = svc.Close()
		os.Exit(2)
	}
	return nil
}
