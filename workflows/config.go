package workflows

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/processor"
)

// ErrUnknownAction is returned when no configuration matches the action
var ErrUnknownAction = errors.New("no workflow configured for action")

// Config binds an action to an orchestrator and a processor configuration.
// CourseID and UnitID narrow the scope of the binding when set.
type Config struct {
	Action          string           `json:"action" yaml:"action"`
	Orchestrator    string           `json:"orchestrator" yaml:"orchestrator"`
	CourseID        string           `json:"course_id,omitempty" yaml:"course_id,omitempty"`
	UnitID          string           `json:"unit_id,omitempty" yaml:"unit_id,omitempty"`
	ProcessorConfig processor.Config `json:"processor_config" yaml:"processor_config"`
	ExtraContext    map[string]any   `json:"extra_context,omitempty" yaml:"extra_context,omitempty"`
	// ContextTemplate is rendered as the processor input,
	// the default is "course_id: <course>\nunit_id: <unit>".
	ContextTemplate string `json:"context_template,omitempty" yaml:"context_template,omitempty"`
}

// Configs is a list of workflow configurations
type Configs []*Config

// Validate returns an error if a configuration is incomplete
func (c Configs) Validate() error {
	for i, cfg := range c {
		if cfg.Action == "" {
			return errors.Errorf("workflow %d: action is required", i)
		}
		if cfg.Orchestrator == "" {
			return errors.Errorf("workflow %s: orchestrator is required", cfg.Action)
		}
		if _, err := NewOrchestrator(cfg.Orchestrator, nil); err != nil {
			return errors.WithMessagef(err, "workflow %s", cfg.Action)
		}
	}
	return nil
}

// Resolve returns the most specific configuration for the action,
// a unit match is more specific than a course match.
func (c Configs) Resolve(action, courseID, unitID string) (*Config, error) {
	var (
		found *Config
		score = -1
	)
	for _, cfg := range c {
		if cfg.Action != action {
			continue
		}
		if cfg.CourseID != "" && cfg.CourseID != courseID {
			continue
		}
		if cfg.UnitID != "" && cfg.UnitID != unitID {
			continue
		}
		s := 0
		if cfg.CourseID != "" {
			s++
		}
		if cfg.UnitID != "" {
			s += 2
		}
		if s > score {
			found = cfg
			score = s
		}
	}
	if found == nil {
		return nil, errors.WithMessagef(ErrUnknownAction, "action %q", action)
	}
	return found, nil
}

// Actions returns sorted unique configured actions
func (c Configs) Actions() []string {
	var list []string
	for _, cfg := range c {
		if !slices.Contains(list, cfg.Action) {
			list = append(list, cfg.Action)
		}
	}
	slices.Sort(list)
	return list
}
