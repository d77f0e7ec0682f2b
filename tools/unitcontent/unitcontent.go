// Package unitcontent provides the get_unit_content tool.
package unitcontent

import (
	"context"

	"github.com/effective-security/edxai/contentstore"
	"github.com/effective-security/edxai/pkg/opaquekeys"
	"github.com/effective-security/edxai/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "tools/unitcontent")

// ToolName of the tool
const ToolName = "get_unit_content"

// ErrMissingUnitID is the result error for an empty unit id
const ErrMissingUnitID = "Missing unitId in context"

// Request is the tool input
type Request struct {
	CourseID string `json:"course_id,omitempty" jsonschema:"title=Course ID,description=Course key of the unit"`
	UnitID   string `json:"unit_id" jsonschema:"title=Unit ID,description=Usage key of the unit"`
}

// BlockInfo describes a child block of the unit
type BlockInfo struct {
	BlockID     string `json:"block_id"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Content     string `json:"content,omitempty"`
}

// Result is the tool output, Error is set when the content is not available
type Result struct {
	UnitID      string       `json:"unit_id,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Category    string       `json:"category,omitempty"`
	Blocks      []*BlockInfo `json:"blocks,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// New returns the tool reading from the content store
func New(store contentstore.Store) (*tools.Tool[Request, Result], error) {
	return tools.New(ToolName, "Extract unit content from Open edX modulestore",
		func(ctx context.Context, in *Request) (*Result, error) {
			return GetUnitContent(ctx, store, in), nil
		})
}

// GetUnitContent returns the unit with the content of its text blocks.
// Children that cannot be loaded are skipped.
func GetUnitContent(ctx context.Context, store contentstore.Store, in *Request) *Result {
	if in.UnitID == "" {
		return &Result{Error: ErrMissingUnitID}
	}

	key, err := opaquekeys.ParseUsageKey(in.UnitID)
	if err != nil {
		return accessError(ctx, in.UnitID, err)
	}
	unit, err := store.GetUnit(ctx, key)
	if err != nil {
		return accessError(ctx, in.UnitID, err)
	}

	res := &Result{
		UnitID:      unit.ID,
		DisplayName: unit.DisplayName,
		Category:    unit.Category,
		Blocks:      []*BlockInfo{},
	}

	for _, child := range unit.Children {
		ck, err := opaquekeys.ParseUsageKey(child)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "child_key", "block", child, "err", err.Error())
			continue
		}
		b, err := store.GetItem(ctx, ck)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "child_block", "block", child, "err", err.Error())
			continue
		}
		info := &BlockInfo{
			BlockID:     b.ID,
			DisplayName: b.DisplayName,
			Category:    b.Category,
		}
		switch b.Category {
		case contentstore.CategoryHTML, contentstore.CategoryProblem:
			info.Content = b.Data
		}
		res.Blocks = append(res.Blocks, info)
	}
	return res
}

func accessError(ctx context.Context, unitID string, err error) *Result {
	logger.ContextKV(ctx, xlog.ERROR, "unit", unitID, "err", err.Error())
	return &Result{Error: "Error accessing content: " + err.Error()}
}
