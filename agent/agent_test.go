package agent_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/effective-security/biomcp/agent"
	"github.com/effective-security/biomcp/catalog"
	"github.com/effective-security/biomcp/chatmodel"
	"github.com/effective-security/biomcp/mcp"
	"github.com/effective-security/biomcp/mocks/mockllms"
	"github.com/effective-security/biomcp/pkg/llms"
	"github.com/effective-security/biomcp/registry"
	"github.com/effective-security/biomcp/store"
)

// mapInvoker resolves tool calls from a fixed table.
type mapInvoker struct {
	mu      sync.Mutex
	calls   []string
	outputs map[string]string
	errs    map[string]error
	delays  map[string]time.Duration
}

func (m *mapInvoker) Invoke(ctx context.Context, providerName, toolName string, args map[string]any) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, toolName)
	delay := m.delays[toolName]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err := m.errs[toolName]; err != nil {
		return "", err
	}
	return m.outputs[toolName], nil
}

func newTestRouter(inv catalog.Invoker) *catalog.Router {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
	}
	cat := catalog.Build([]registry.ProviderTools{
		{
			Provider: "pubmed",
			Tools:    []mcp.Tool{{Name: "search_pubmed", Description: "Search PubMed.", InputSchema: schema}},
		},
		{
			Provider: "opentargets",
			Tools:    []mcp.Tool{{Name: "search_targets", Description: "Search targets.", InputSchema: schema}},
		},
	})
	return catalog.NewRouter(cat, inv)
}

func newMockModel(t *testing.T) *mockllms.MockModel {
	t.Helper()
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetName().Return("gpt-4o-mini").AnyTimes()
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return model
}

func callOptions(opts []llms.CallOption) llms.CallOptions {
	var o llms.CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "stop"}},
	}
}

func toolResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{StopReason: "tool_calls", ToolCalls: calls}},
	}
}

func collectEvents(r *agent.Run) []agent.Event {
	var events []agent.Event
	for ev := range r.Events() {
		events = append(events, ev)
	}
	return events
}

func TestAgentDirectAnswer(t *testing.T) {
	model := newMockModel(t)
	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
			// Tools are offered on regular turns.
			o := callOptions(opts)
			assert.Len(t, o.Tools, 2)

			require.Len(t, messages, 2)
			assert.Equal(t, llms.RoleSystem, messages[0].Role)
			assert.Equal(t, llms.RoleHuman, messages[1].Role)
			assert.Equal(t, "What is BRCA1?", messages[1].GetContent())
			return textResponse("BRCA1 is a tumor suppressor gene."), nil
		})

	a := agent.New(model, newTestRouter(&mapInvoker{}))
	run := a.Run(context.Background(), "What is BRCA1?")

	events := collectEvents(run)
	require.NoError(t, run.Err())
	require.Len(t, events, 1)
	assert.Equal(t, agent.EventFinal, events[0].Kind)
	assert.Equal(t, "BRCA1 is a tumor suppressor gene.", events[0].Text)
}

func TestAgentToolCallFlow(t *testing.T) {
	model := newMockModel(t)
	inv := &mapInvoker{outputs: map[string]string{
		"search_pubmed": "Title: BRCA1 and breast cancer\nPMID: 12345",
	}}

	gomock.InOrder(
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(llms.ToolCall{
				FunctionCall: &llms.FunctionCall{
					Name:      "search_pubmed",
					Arguments: `{"query":"BRCA1"}`,
				},
			}), nil),
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
				// The conversation replays the assistant tool request and
				// its response, correlated by the backfilled call id.
				require.Len(t, messages, 4)
				assert.Equal(t, llms.RoleAI, messages[2].Role)
				tc, ok := messages[2].Parts[0].(llms.ToolCall)
				require.True(t, ok)
				assert.Equal(t, "call_0", tc.ID)
				assert.Equal(t, "function", tc.Type)

				assert.Equal(t, llms.RoleTool, messages[3].Role)
				tr, ok := messages[3].Parts[0].(llms.ToolCallResponse)
				require.True(t, ok)
				assert.Equal(t, "call_0", tr.ToolCallID)
				assert.Equal(t, "search_pubmed", tr.Name)
				assert.Contains(t, tr.Content, "PMID: 12345")
				return textResponse("BRCA1 is linked to hereditary breast cancer."), nil
			}),
	)

	a := agent.New(model, newTestRouter(inv))
	events := collectEvents(a.Run(context.Background(), "Find BRCA1 studies"))

	require.Len(t, events, 3)
	assert.Equal(t, agent.EventToolCall, events[0].Kind)
	assert.Equal(t, "search_pubmed", events[0].Tool)
	assert.Equal(t, "pubmed", events[0].Provider)
	assert.Equal(t, `{"query":"BRCA1"}`, events[0].Input)

	assert.Equal(t, agent.EventToolResult, events[1].Kind)
	assert.Equal(t, "search_pubmed", events[1].Tool)
	assert.Contains(t, events[1].Output, "PMID: 12345")

	assert.Equal(t, agent.EventFinal, events[2].Kind)
	assert.Equal(t, "BRCA1 is linked to hereditary breast cancer.", events[2].Text)
}

func TestAgentMaxTurnsForcesFinal(t *testing.T) {
	model := newMockModel(t)
	inv := &mapInvoker{outputs: map[string]string{"search_pubmed": "PMID: 1"}}

	var llmCalls int
	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
			llmCalls++
			o := callOptions(opts)
			if len(o.Tools) == 0 {
				// Forced final turn: tools withheld, wrap-up instruction added.
				last := messages[len(messages)-1]
				assert.Equal(t, llms.RoleHuman, last.Role)
				assert.Contains(t, last.GetContent(), "Provide your final answer now")
				return textResponse("Summary of findings."), nil
			}
			return toolResponse(llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "search_pubmed", Arguments: `{"query":"BRCA1"}`},
			}), nil
		}).
		Times(3)

	a := agent.New(model, newTestRouter(inv), agent.WithMaxTurns(2))
	answer, err := a.Call(context.Background(), "Find everything about BRCA1")
	require.NoError(t, err)
	assert.Equal(t, "Summary of findings.", answer)
	assert.Equal(t, 3, llmCalls)
	assert.Equal(t, []string{"search_pubmed", "search_pubmed"}, inv.calls)
}

func TestAgentUnknownToolRecovers(t *testing.T) {
	model := newMockModel(t)
	inv := &mapInvoker{}

	gomock.InOrder(
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "search_everything", Arguments: `{}`},
			}), nil),
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
				tr, ok := messages[len(messages)-1].Parts[0].(llms.ToolCallResponse)
				require.True(t, ok)
				assert.Contains(t, tr.Content, "tool search_everything is not available")
				assert.Contains(t, tr.Content, "search_pubmed, search_targets")
				return textResponse("Let me use the available tools instead."), nil
			}),
	)

	a := agent.New(model, newTestRouter(inv))
	events := collectEvents(a.Run(context.Background(), "search everything"))

	require.Len(t, events, 3)
	assert.Equal(t, agent.EventToolResult, events[1].Kind)
	assert.Contains(t, events[1].Output, "is not available")
	assert.Equal(t, agent.EventFinal, events[2].Kind)
	// The invoker must not be reached for an unknown name.
	assert.Empty(t, inv.calls)
}

func TestAgentMalformedArgumentsRecovers(t *testing.T) {
	model := newMockModel(t)
	inv := &mapInvoker{}

	gomock.InOrder(
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "search_pubmed", Arguments: `42`},
			}), nil),
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("I will retry with proper arguments."), nil),
	)

	a := agent.New(model, newTestRouter(inv))
	events := collectEvents(a.Run(context.Background(), "search"))

	require.Len(t, events, 3)
	assert.Equal(t, agent.EventToolResult, events[1].Kind)
	assert.Contains(t, events[1].Output, "invalid arguments for tool search_pubmed")
	assert.Empty(t, inv.calls)
}

func TestAgentToolFailureRecovers(t *testing.T) {
	model := newMockModel(t)
	inv := &mapInvoker{errs: map[string]error{
		"search_pubmed": errors.New("upstream timeout"),
	}}

	gomock.InOrder(
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "search_pubmed", Arguments: `{"query":"BRCA1"}`},
			}), nil),
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("PubMed is unavailable right now."), nil),
	)

	a := agent.New(model, newTestRouter(inv))
	run := a.Run(context.Background(), "search")
	events := collectEvents(run)

	require.NoError(t, run.Err())
	require.Len(t, events, 3)
	assert.Equal(t, agent.EventToolResult, events[1].Kind)
	assert.Contains(t, events[1].Output, "tool search_pubmed failed")
	assert.Contains(t, events[1].Output, "upstream timeout")
}

func TestAgentConcurrentCallsKeepRequestOrder(t *testing.T) {
	model := newMockModel(t)
	inv := &mapInvoker{
		outputs: map[string]string{
			"search_pubmed":  "PMID: 12345",
			"search_targets": "ENSG00000012048",
		},
		// The first requested call resolves last.
		delays: map[string]time.Duration{"search_pubmed": 50 * time.Millisecond},
	}

	gomock.InOrder(
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(
				llms.ToolCall{FunctionCall: &llms.FunctionCall{Name: "search_pubmed", Arguments: `{"query":"BRCA1"}`}},
				llms.ToolCall{FunctionCall: &llms.FunctionCall{Name: "search_targets", Arguments: `{"query":"BRCA1"}`}},
			), nil),
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
				// system, human, assistant, tool, tool
				require.Len(t, messages, 5)
				first, _ := messages[3].Parts[0].(llms.ToolCallResponse)
				second, _ := messages[4].Parts[0].(llms.ToolCallResponse)
				assert.Equal(t, "search_pubmed", first.Name)
				assert.Equal(t, "search_targets", second.Name)
				return textResponse("done"), nil
			}),
	)

	a := agent.New(model, newTestRouter(inv))
	events := collectEvents(a.Run(context.Background(), "search both"))

	require.Len(t, events, 5)
	kinds := make([]agent.EventKind, 0, len(events))
	tools := make([]string, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
		tools = append(tools, ev.Tool)
	}
	assert.Equal(t, []agent.EventKind{
		agent.EventToolCall, agent.EventToolResult,
		agent.EventToolCall, agent.EventToolResult,
		agent.EventFinal,
	}, kinds)
	assert.Equal(t, []string{"search_pubmed", "search_pubmed", "search_targets", "search_targets", ""}, tools)
}

func TestAgentModelFailure(t *testing.T) {
	model := newMockModel(t)
	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("429 too many requests"))

	a := agent.New(model, newTestRouter(&mapInvoker{}))
	run := a.Run(context.Background(), "search")

	events := collectEvents(run)
	assert.Empty(t, events)

	err := run.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model call failed")
	assert.Contains(t, err.Error(), "429 too many requests")
}

func TestAgentStoreKeepsHistory(t *testing.T) {
	model := newMockModel(t)
	history := store.NewMemoryStore()

	ctx, err := chatmodel.SetChatID(context.Background(), "")
	require.NoError(t, err)

	gomock.InOrder(
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, messages, 2)
				return textResponse("BRCA1 is a gene."), nil
			}),
		model.EXPECT().
			GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
				// system + prior human/AI pair + new human input
				require.Len(t, messages, 4)
				assert.Equal(t, "What is BRCA1?", messages[1].GetContent())
				assert.Equal(t, "BRCA1 is a gene.", messages[2].GetContent())
				assert.Equal(t, "And BRCA2?", messages[3].GetContent())
				return textResponse("BRCA2 is related."), nil
			}),
	)

	a := agent.New(model, newTestRouter(&mapInvoker{}), agent.WithStore(history))

	answer, err := a.Call(ctx, "What is BRCA1?")
	require.NoError(t, err)
	assert.Equal(t, "BRCA1 is a gene.", answer)

	answer, err = a.Call(ctx, "And BRCA2?")
	require.NoError(t, err)
	assert.Equal(t, "BRCA2 is related.", answer)

	msgs := history.Messages(ctx)
	require.Len(t, msgs, 4)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, llms.RoleAI, msgs[3].Role)
}

func TestAgentCallOptionsForwarded(t *testing.T) {
	model := newMockModel(t)
	model.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
			o := callOptions(opts)
			assert.Equal(t, 1024, o.MaxTokens)
			assert.True(t, o.HasTemperature)
			assert.InDelta(t, 0.2, o.Temperature, 0.0001)
			assert.Len(t, o.Tools, 2)
			return textResponse("ok"), nil
		})

	a := agent.New(model, newTestRouter(&mapInvoker{}),
		agent.WithCallOptions(llms.WithMaxTokens(1024), llms.WithTemperature(0.2)))
	_, err := a.Call(context.Background(), "hi")
	require.NoError(t, err)
}
