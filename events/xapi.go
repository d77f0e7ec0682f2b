package events

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// xAPI identifiers
const (
	VerbCompleted          = "http://adlnet.gov/expapi/verbs/completed"
	ActivityTypeAIWorkflow = "https://w3id.org/xapi/openedx/activity/ai-workflow"
	ActivityTypeCourse     = "http://adlnet.gov/expapi/activities/course"
	LangEN                 = "en"
	XAPIVersion            = "1.0.3"
)

// LanguageMap maps a language to a text
type LanguageMap map[string]string

// Account identifies the actor on the platform
type Account struct {
	HomePage string `json:"homePage"`
	Name     string `json:"name"`
}

// Actor of a statement
type Actor struct {
	ObjectType string   `json:"objectType"`
	Account    *Account `json:"account,omitempty"`
}

// Verb of a statement
type Verb struct {
	ID      string      `json:"id"`
	Display LanguageMap `json:"display"`
}

// ActivityDefinition describes an activity
type ActivityDefinition struct {
	Type        string      `json:"type"`
	Name        LanguageMap `json:"name,omitempty"`
	Description LanguageMap `json:"description,omitempty"`
}

// Activity is the object of a statement
type Activity struct {
	ObjectType string              `json:"objectType"`
	ID         string              `json:"id"`
	Definition *ActivityDefinition `json:"definition,omitempty"`
}

// ContextActivities groups related activities
type ContextActivities struct {
	Grouping []*Activity `json:"grouping,omitempty"`
}

// StatementContext of a statement
type StatementContext struct {
	Registration      string             `json:"registration,omitempty"`
	ContextActivities *ContextActivities `json:"contextActivities,omitempty"`
	Extensions        map[string]any     `json:"extensions,omitempty"`
}

// Statement is an xAPI statement
type Statement struct {
	ID        string            `json:"id"`
	Actor     Actor             `json:"actor"`
	Verb      Verb              `json:"verb"`
	Object    Activity          `json:"object"`
	Context   *StatementContext `json:"context,omitempty"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
}

// Transformer converts events into xAPI statements
type Transformer struct {
	// PlatformURL is the root URL of the platform used for IRIs
	PlatformURL string
}

func (t *Transformer) objectIRI(kind, id string) string {
	return strings.TrimSuffix(t.PlatformURL, "/") + "/xapi/activity/" + kind + "/" + url.PathEscape(id)
}

// Transform returns the statement for a workflow completion event
func (t *Transformer) Transform(e *Event) *Statement {
	workflowID, _ := e.Data["workflow_id"].(string)
	action, _ := e.Data["action"].(string)
	if action == "" {
		action = "unknown_action"
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	st := &Statement{
		ID: uuid.NewString(),
		Actor: Actor{
			ObjectType: "Agent",
			Account: &Account{
				HomePage: t.PlatformURL,
				Name:     e.UserID,
			},
		},
		Verb: Verb{
			ID:      VerbCompleted,
			Display: LanguageMap{LangEN: "completed"},
		},
		Object: Activity{
			ObjectType: "Activity",
			ID:         t.objectIRI("ai_workflow", workflowID),
			Definition: &ActivityDefinition{
				Type:        ActivityTypeAIWorkflow,
				Name:        LanguageMap{LangEN: "AI Workflow: " + action},
				Description: LanguageMap{LangEN: "AI-powered workflow completed by learner"},
			},
		},
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Version:   XAPIVersion,
	}

	if e.CourseID != "" {
		st.Context = &StatementContext{
			ContextActivities: &ContextActivities{
				Grouping: []*Activity{
					{
						ObjectType: "Activity",
						ID:         t.objectIRI("course", e.CourseID),
						Definition: &ActivityDefinition{
							Type: ActivityTypeCourse,
							Name: LanguageMap{LangEN: e.CourseID},
						},
					},
				},
			},
		}
	}
	return st
}
