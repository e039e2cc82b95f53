package agent

import (
	"context"

	"github.com/effective-security/biomcp/pkg/llms"
)

// EventKind discriminates observable chat-loop events.
type EventKind string

const (
	// EventToolCall is emitted when the model requests a tool invocation.
	EventToolCall EventKind = "tool_call"
	// EventToolResult is emitted when a tool invocation resolves.
	EventToolResult EventKind = "tool_result"
	// EventFinal is emitted exactly once, with the final answer.
	EventFinal EventKind = "final"
)

// Event is one observable step of a chat run. The event stream is lazy,
// finite and non-restartable; it always ends with exactly one final event.
type Event struct {
	Kind EventKind

	// Tool and Provider are set on tool_call and tool_result events.
	Tool     string
	Provider string
	// Input is the tool arguments as supplied by the model.
	Input string
	// Output is the tool result text, or readable error text.
	Output string

	// Text is the final answer, set on final events.
	Text string
}

// IAgent is the read-only view of an agent given to callbacks.
type IAgent interface {
	// Name returns the name of the agent.
	Name() string
	// Description returns the description of the agent.
	Description() string
}

// Callback observes the chat loop. All methods are optional no-ops in
// implementations that only care about a subset.
type Callback interface {
	OnChatStart(ctx context.Context, agent IAgent, input string)
	OnChatEnd(ctx context.Context, agent IAgent, input string, final string, messages []llms.Message)
	OnChatError(ctx context.Context, agent IAgent, input string, err error, messages []llms.Message)

	OnLLMCallStart(ctx context.Context, agent IAgent, model llms.Model, messages []llms.Message)
	OnLLMCallEnd(ctx context.Context, agent IAgent, model llms.Model, resp *llms.ContentResponse)

	OnToolCall(ctx context.Context, agent IAgent, tool, provider, input string)
	OnToolResult(ctx context.Context, agent IAgent, tool, provider, input, output string)
	OnToolNotFound(ctx context.Context, agent IAgent, tool string)
}
