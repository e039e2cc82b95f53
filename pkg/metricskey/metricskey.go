package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsSessionsOpened = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_sessions_opened",
		Help:         "stats_mcp_sessions_opened provides total provider sessions opened",
		RequiredTags: []string{"provider"},
	}

	StatsSessionsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_sessions_failed",
		Help:         "stats_mcp_sessions_failed provides total provider sessions that failed to open",
		RequiredTags: []string{"provider"},
	}

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
		Help:         "stats_tool_calls_not_found provides total tool calls for unknown tool names",
		RequiredTags: []string{"tool"},
	}

	StatsToolArgsParseErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_args_parse_errors",
		Help:         "stats_tool_args_parse_errors provides total tool calls with malformed arguments",
		RequiredTags: []string{"tool"},
	}

	StatsChatTurns = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns",
		Help:         "stats_chat_turns provides total chat loop turns executed",
		RequiredTags: []string{"model"},
	}

	StatsChatRunsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_runs_succeeded",
		Help:         "stats_chat_runs_succeeded provides total chat runs that produced a final answer",
		RequiredTags: []string{"model"},
	}

	StatsChatRunsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_runs_failed",
		Help:         "stats_chat_runs_failed provides total chat runs that failed",
		RequiredTags: []string{"model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"model"},
	}
)

// Perf
var (
	PerfChatRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_run",
		Help:         "perf_chat_run provides duration of a full chat run",
		RequiredTags: []string{"model"},
	}

	PerfProviderInit = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_provider_init",
		Help:         "perf_provider_init provides duration of provider session initialization",
		RequiredTags: []string{"provider"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfChatRun,
	&PerfProviderInit,
	&PerfToolCall,
	&StatsChatRunsFailed,
	&StatsChatRunsSucceeded,
	&StatsChatTurns,
	&StatsLLMInputTokens,
	&StatsLLMOutputTokens,
	&StatsSessionsFailed,
	&StatsSessionsOpened,
	&StatsToolArgsParseErrors,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
