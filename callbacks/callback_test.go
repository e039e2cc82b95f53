package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/effective-security/biomcp/agent"
	"github.com/effective-security/biomcp/callbacks"
	"github.com/effective-security/biomcp/pkg/llms"
)

type namedAgent struct{}

func (namedAgent) Name() string        { return "biomcp" }
func (namedAgent) Description() string { return "biomedical research agent" }

type countingCallback struct {
	chatStarts int
	chatEnds   int
	chatErrors int
	llmStarts  int
	llmEnds    int
	toolCalls  int
	results    int
	notFound   int
}

func (c *countingCallback) OnChatStart(ctx context.Context, a agent.IAgent, input string) {
	c.chatStarts++
}
func (c *countingCallback) OnChatEnd(ctx context.Context, a agent.IAgent, input string, final string, messages []llms.Message) {
	c.chatEnds++
}
func (c *countingCallback) OnChatError(ctx context.Context, a agent.IAgent, input string, err error, messages []llms.Message) {
	c.chatErrors++
}
func (c *countingCallback) OnLLMCallStart(ctx context.Context, a agent.IAgent, llm llms.Model, payload []llms.Message) {
	c.llmStarts++
}
func (c *countingCallback) OnLLMCallEnd(ctx context.Context, a agent.IAgent, llm llms.Model, resp *llms.ContentResponse) {
	c.llmEnds++
}
func (c *countingCallback) OnToolCall(ctx context.Context, a agent.IAgent, tool, provider, input string) {
	c.toolCalls++
}
func (c *countingCallback) OnToolResult(ctx context.Context, a agent.IAgent, tool, provider, input, output string) {
	c.results++
}
func (c *countingCallback) OnToolNotFound(ctx context.Context, a agent.IAgent, tool string) {
	c.notFound++
}

func TestFanout(t *testing.T) {
	t.Parallel()

	first := &countingCallback{}
	second := &countingCallback{}
	fanout := callbacks.NewFanout(first, callbacks.NewNoop())
	fanout.Add(second)

	ctx := context.Background()
	a := namedAgent{}

	fanout.OnChatStart(ctx, a, "hi")
	fanout.OnToolCall(ctx, a, "search_pubmed", "pubmed", "{}")
	fanout.OnToolResult(ctx, a, "search_pubmed", "pubmed", "{}", "PMID: 1")
	fanout.OnToolNotFound(ctx, a, "search_everything")
	fanout.OnChatError(ctx, a, "hi", errors.New("boom"), nil)
	fanout.OnChatEnd(ctx, a, "hi", "done", nil)

	for _, c := range []*countingCallback{first, second} {
		assert.Equal(t, 1, c.chatStarts)
		assert.Equal(t, 1, c.toolCalls)
		assert.Equal(t, 1, c.results)
		assert.Equal(t, 1, c.notFound)
		assert.Equal(t, 1, c.chatErrors)
		assert.Equal(t, 1, c.chatEnds)
	}
}

func TestPrinter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)
	ctx := context.Background()
	a := namedAgent{}

	p.OnChatStart(ctx, a, "What is BRCA1?")
	p.OnToolCall(ctx, a, "search_pubmed", "pubmed", `{"query":"BRCA1"}`)
	p.OnToolResult(ctx, a, "search_pubmed", "pubmed", `{"query":"BRCA1"}`, "PMID: 12345")
	p.OnChatEnd(ctx, a, "What is BRCA1?", "BRCA1 is a gene.", nil)

	out := buf.String()
	assert.Contains(t, out, "Chat Start: biomcp")
	assert.Contains(t, out, "Tool Call: search_pubmed (pubmed)")
	// Verbose mode includes the tool output and the final answer.
	assert.Contains(t, out, "Output: PMID: 12345")
	assert.Contains(t, out, "BRCA1 is a gene.")
}

func TestPrinterDefaultMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := callbacks.NewPrinter(&buf, callbacks.ModeDefault)
	ctx := context.Background()
	a := namedAgent{}

	p.OnToolResult(ctx, a, "search_pubmed", "pubmed", "{}", "PMID: 12345")
	p.OnChatEnd(ctx, a, "q", "final answer", nil)

	out := buf.String()
	assert.NotContains(t, out, "PMID: 12345")
	assert.NotContains(t, out, "final answer")
}
