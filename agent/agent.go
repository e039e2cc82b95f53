// Package agent runs a bounded tool-use chat loop: the model alternates
// between requesting tool calls and producing text until it answers or
// the turn budget runs out, and the caller consumes a lazy event stream.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/catalog"
	"github.com/effective-security/biomcp/chatmodel"
	"github.com/effective-security/biomcp/pkg/llms"
	"github.com/effective-security/biomcp/pkg/llmutils"
	"github.com/effective-security/biomcp/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/biomcp", "agent")

// Agent drives the chat loop over one model and one tool router.
type Agent struct {
	llm    llms.Model
	router *catalog.Router
	cfg    Config
}

var _ IAgent = (*Agent)(nil)

// New creates an agent over the model and router.
func New(llm llms.Model, router *catalog.Router, opts ...Option) *Agent {
	cfg := Config{
		Name:         "biomcp",
		SystemPrompt: DefaultSystemPrompt,
		MaxTurns:     DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Agent{
		llm:    llm,
		router: router,
		cfg:    cfg,
	}
}

// Name implements IAgent.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// Description implements IAgent.
func (a *Agent) Description() string {
	return a.cfg.Description
}

// Run is one in-flight chat run. Events must be drained; the channel is
// closed after the final event, or after a run-level failure, which Err
// reports once the channel is closed.
type Run struct {
	events chan Event
	done   chan struct{}

	err   error
	final string
}

// Events returns the event stream of the run.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Err blocks until the run finishes and returns its terminal error, if any.
func (r *Run) Err() error {
	<-r.done
	return r.err
}

// Run starts the chat loop for input and returns a lazily-consumed run.
// The stream carries tool_call and tool_result events as the model works,
// and ends with exactly one final event unless the run fails.
func (a *Agent) Run(ctx context.Context, input string) *Run {
	r := &Run{
		events: make(chan Event),
		done:   make(chan struct{}),
	}
	ctx, _ = chatmodel.EnsureChatID(ctx)
	go a.run(ctx, input, r)
	return r
}

// Call runs the chat loop to completion and returns the final answer.
func (a *Agent) Call(ctx context.Context, input string) (string, error) {
	r := a.Run(ctx, input)
	for range r.Events() {
	}
	if err := r.Err(); err != nil {
		return "", err
	}
	return r.final, nil
}

func (a *Agent) run(ctx context.Context, input string, r *Run) {
	defer close(r.done)
	defer close(r.events)

	started := time.Now()
	if a.cfg.Callback != nil {
		a.cfg.Callback.OnChatStart(ctx, a, input)
	}

	final, msgs, err := a.loop(ctx, input, r)
	metricskey.PerfChatRun.MeasureSince(started, a.cfg.Name)
	if err != nil {
		metricskey.StatsChatRunsFailed.IncrCounter(1, a.cfg.Name)
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "chat_run_failed",
			"agent", a.cfg.Name,
			"err", err.Error(),
		)
		if a.cfg.Callback != nil {
			a.cfg.Callback.OnChatError(ctx, a, input, err, msgs)
		}
		r.err = err
		return
	}

	if a.cfg.Store != nil {
		if serr := a.cfg.Store.Add(ctx, msgs...); serr != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "store_add_failed",
				"err", serr.Error(),
			)
		}
	}

	r.final = final
	metricskey.StatsChatRunsSucceeded.IncrCounter(1, a.cfg.Name)
	if !a.emit(ctx, r, Event{Kind: EventFinal, Text: final}) {
		r.err = ctx.Err()
		return
	}
	if a.cfg.Callback != nil {
		a.cfg.Callback.OnChatEnd(ctx, a, input, final, msgs)
	}
}

// loop runs the turn loop and returns the final answer together with the
// messages created during this run, in conversation order.
func (a *Agent) loop(ctx context.Context, input string, r *Run) (string, []llms.Message, error) {
	conv := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, a.cfg.SystemPrompt),
	}
	if a.cfg.Store != nil {
		conv = append(conv, a.cfg.Store.Messages(ctx)...)
	}

	var created []llms.Message
	add := func(m llms.Message) {
		conv = append(conv, m)
		created = append(created, m)
	}
	add(llms.MessageFromTextParts(llms.RoleHuman, input))

	tools := a.router.Catalog().Definitions()

	for turn := 0; turn < a.cfg.MaxTurns; turn++ {
		metricskey.StatsChatTurns.IncrCounter(1, a.cfg.Name)

		choice, err := a.generate(ctx, conv, tools)
		if err != nil {
			return "", created, err
		}
		if len(choice.ToolCalls) == 0 {
			add(llms.MessageFromTextParts(llms.RoleAI, choice.Content))
			return choice.Content, created, nil
		}

		calls := normalizeCallIDs(choice.ToolCalls)
		add(llms.MessageFromToolCalls(llms.RoleAI, calls...))

		for _, res := range a.executeToolCalls(ctx, calls) {
			name := res.call.FunctionCall.Name
			if !a.emit(ctx, r, Event{
				Kind:     EventToolCall,
				Tool:     name,
				Provider: res.provider,
				Input:    res.call.FunctionCall.Arguments,
			}) {
				return "", created, errors.WithStack(ctx.Err())
			}
			if a.cfg.Callback != nil {
				a.cfg.Callback.OnToolCall(ctx, a, name, res.provider, res.call.FunctionCall.Arguments)
			}
			if !a.emit(ctx, r, Event{
				Kind:     EventToolResult,
				Tool:     name,
				Provider: res.provider,
				Input:    res.call.FunctionCall.Arguments,
				Output:   res.output,
			}) {
				return "", created, errors.WithStack(ctx.Err())
			}
			if a.cfg.Callback != nil {
				a.cfg.Callback.OnToolResult(ctx, a, name, res.provider, res.call.FunctionCall.Arguments, res.output)
			}
			add(llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
				ToolCallID: res.call.ID,
				Name:       name,
				Content:    res.output,
			}))
		}
	}

	// Turn budget exhausted: one last model call with tools withheld
	// produces the forced final answer.
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "max_turns_reached",
		"agent", a.cfg.Name,
		"max_turns", a.cfg.MaxTurns,
	)
	add(llms.MessageFromTextParts(llms.RoleHuman,
		"Provide your final answer now based on the information gathered so far. Do not request any more tools."))
	choice, err := a.generate(ctx, conv, nil)
	if err != nil {
		return "", created, err
	}
	add(llms.MessageFromTextParts(llms.RoleAI, choice.Content))
	return choice.Content, created, nil
}

// generate runs one model call. A nil tools list withholds tools.
func (a *Agent) generate(ctx context.Context, conv []llms.Message, tools []llms.Tool) (*llms.ContentChoice, error) {
	opts := make([]llms.CallOption, 0, len(a.cfg.CallOptions)+1)
	opts = append(opts, a.cfg.CallOptions...)
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	if a.cfg.Callback != nil {
		a.cfg.Callback.OnLLMCallStart(ctx, a, a.llm, conv)
	}
	resp, err := a.llm.GenerateContent(ctx, conv, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "model call failed")
	}
	if a.cfg.Callback != nil {
		a.cfg.Callback.OnLLMCallEnd(ctx, a, a.llm, resp)
	}
	metricskey.StatsLLMInputTokens.IncrCounter(float64(resp.InputTokens), a.llm.GetName())
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(resp.OutputTokens), a.llm.GetName())
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}
	return resp.Choices[0], nil
}

type toolResult struct {
	index    int
	call     llms.ToolCall
	provider string
	output   string
}

// executeToolCalls dispatches the requested calls concurrently and returns
// their results in request order.
func (a *Agent) executeToolCalls(ctx context.Context, calls []llms.ToolCall) []toolResult {
	resCh := make(chan toolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc llms.ToolCall) {
			defer wg.Done()
			provider, output := a.invokeTool(ctx, tc)
			resCh <- toolResult{
				index:    idx,
				call:     tc,
				provider: provider,
				output:   output,
			}
		}(i, call)
	}
	wg.Wait()
	close(resCh)

	ordered := make([]toolResult, len(calls))
	for res := range resCh {
		ordered[res.index] = res
	}
	return ordered
}

// invokeTool runs one tool call. Failures never escape: a parse error,
// an unknown tool or a provider failure all come back as readable text
// for the model to recover from.
func (a *Agent) invokeTool(ctx context.Context, tc llms.ToolCall) (string, string) {
	name := tc.FunctionCall.Name
	args, err := llmutils.ParseArgs(tc.FunctionCall.Arguments)
	if err != nil {
		metricskey.StatsToolArgsParseErrors.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_args_parse_failed",
			"tool", name,
			"err", err.Error(),
		)
		return "", fmt.Sprintf("invalid arguments for tool %s: %s", name, err.Error())
	}

	provider, output, err := a.router.Route(ctx, name, args)
	if err != nil {
		if errors.Is(err, catalog.ErrToolNotFound) {
			if a.cfg.Callback != nil {
				a.cfg.Callback.OnToolNotFound(ctx, a, name)
			}
			return "", fmt.Sprintf("tool %s is not available, use one of: %s",
				name, strings.Join(a.router.Catalog().Names(), ", "))
		}
		return provider, fmt.Sprintf("tool %s failed: %s", name, err.Error())
	}
	return provider, output
}

// emit delivers an event, giving up when the context is canceled.
func (a *Agent) emit(ctx context.Context, r *Run, ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// normalizeCallIDs backfills missing tool-call IDs so the provider replay
// of the assistant message stays correlated with the tool responses.
func normalizeCallIDs(calls []llms.ToolCall) []llms.ToolCall {
	out := make([]llms.ToolCall, len(calls))
	copy(out, calls)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = fmt.Sprintf("call_%d", i)
		}
		if out[i].Type == "" {
			out[i].Type = "function"
		}
	}
	return out
}
