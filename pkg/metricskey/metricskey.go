package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsToolCallsSucceeded is base for counter metric for tool calls that returned a result
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total calls to unknown tools",
		RequiredTags: []string{"tool"},
	}

	StatsSessionsActive = metrics.Describe{
		Type:         metrics.TypeGauge,
		Name:         "stats_mcp_sessions_active",
		Help:         "stats_mcp_sessions_active provides number of protocol sessions held by the store",
		RequiredTags: []string{"store"},
	}

	StatsSessionsCreated = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_sessions_created",
		Help:         "stats_mcp_sessions_created provides total protocol sessions created",
		RequiredTags: []string{"store"},
	}

	StatsSessionsDestroyed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_sessions_destroyed",
		Help:         "stats_mcp_sessions_destroyed provides total protocol sessions destroyed by clients",
		RequiredTags: []string{"store"},
	}

	StatsSessionsExpired = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_sessions_expired",
		Help:         "stats_mcp_sessions_expired provides total protocol sessions reaped after idle timeout",
		RequiredTags: []string{"store"},
	}

	StatsSessionsRejected = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_sessions_rejected",
		Help:         "stats_mcp_sessions_rejected provides total requests rejected for missing session",
		RequiredTags: []string{"method"},
	}

	StatsLLMCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_succeeded",
		Help:         "stats_llm_calls_succeeded provides total LLM backend calls succeeded",
		RequiredTags: []string{"function", "model"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total LLM backend calls failed",
		RequiredTags: []string{"function", "model"},
	}

	StatsLLMCallsRetried = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_retried",
		Help:         "stats_llm_calls_retried provides total LLM backend calls retried",
		RequiredTags: []string{"function", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"function", "model"},
	}

	StatsWorkflowsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_workflows_succeeded",
		Help:         "stats_workflows_succeeded provides total workflows completed",
		RequiredTags: []string{"action", "orchestrator"},
	}

	StatsWorkflowsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_workflows_failed",
		Help:         "stats_workflows_failed provides total workflows failed",
		RequiredTags: []string{"action", "orchestrator"},
	}

	StatsEventsDropped = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_events_dropped",
		Help:         "stats_events_dropped provides total events that could not be delivered",
		RequiredTags: []string{"event"},
	}
)

// Perf
var (
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of LLM backend call",
		RequiredTags: []string{"function", "model"},
	}

	PerfWorkflowRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_workflow_run",
		Help:         "perf_workflow_run provides duration of workflow run",
		RequiredTags: []string{"action", "orchestrator"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfLLMCall,
	&PerfToolCall,
	&PerfWorkflowRun,
	&StatsEventsDropped,
	&StatsLLMCallsFailed,
	&StatsLLMCallsRetried,
	&StatsLLMCallsSucceeded,
	&StatsLLMTotalTokens,
	&StatsSessionsActive,
	&StatsSessionsCreated,
	&StatsSessionsDestroyed,
	&StatsSessionsExpired,
	&StatsSessionsRejected,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsWorkflowsFailed,
	&StatsWorkflowsSucceeded,
}
