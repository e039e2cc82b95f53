package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/agent"
	"github.com/effective-security/biomcp/pkg/llms"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ agent.Callback = (*Noop)(nil)
	_ agent.Callback = (*Printer)(nil)
	_ agent.Callback = (*PackageLogger)(nil)
	_ agent.Callback = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []agent.Callback
}

func NewFanout(callbacks ...agent.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback agent.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnChatStart(ctx context.Context, a agent.IAgent, input string) {
	for _, callback := range l.callbacks {
		callback.OnChatStart(ctx, a, input)
	}
}

func (l *Fanout) OnChatEnd(ctx context.Context, a agent.IAgent, input string, final string, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnChatEnd(ctx, a, input, final, messages)
	}
}

func (l *Fanout) OnChatError(ctx context.Context, a agent.IAgent, input string, err error, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnChatError(ctx, a, input, err, messages)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, a agent.IAgent, llm llms.Model, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, a, llm, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, a agent.IAgent, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, a, llm, resp)
	}
}

func (l *Fanout) OnToolCall(ctx context.Context, a agent.IAgent, tool, provider, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolCall(ctx, a, tool, provider, input)
	}
}

func (l *Fanout) OnToolResult(ctx context.Context, a agent.IAgent, tool, provider, input, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolResult(ctx, a, tool, provider, input, output)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, a agent.IAgent, tool string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, a, tool)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnChatStart(ctx context.Context, a agent.IAgent, input string) {}
func (l *Noop) OnChatEnd(ctx context.Context, a agent.IAgent, input string, final string, messages []llms.Message) {
}
func (l *Noop) OnChatError(ctx context.Context, a agent.IAgent, input string, err error, messages []llms.Message) {
}
func (l *Noop) OnLLMCallStart(ctx context.Context, a agent.IAgent, llm llms.Model, payload []llms.Message) {
}
func (l *Noop) OnLLMCallEnd(ctx context.Context, a agent.IAgent, llm llms.Model, resp *llms.ContentResponse) {
}
func (l *Noop) OnToolCall(ctx context.Context, a agent.IAgent, tool, provider, input string) {}
func (l *Noop) OnToolResult(ctx context.Context, a agent.IAgent, tool, provider, input, output string) {
}
func (l *Noop) OnToolNotFound(ctx context.Context, a agent.IAgent, tool string) {}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnChatStart(ctx context.Context, a agent.IAgent, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat Start: %s\n", a.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnChatEnd(ctx context.Context, a agent.IAgent, input string, final string, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat End: %s\n", a.Name())
	if l.Mode == ModeVerbose && final != "" {
		fmt.Fprintln(l.Out, final)
	}
}

func (l *Printer) OnChatError(ctx context.Context, a agent.IAgent, input string, err error, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat Error: %s: %s\n", a.Name(), err.Error())
}

func (l *Printer) OnLLMCallStart(ctx context.Context, a agent.IAgent, llm llms.Model, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s: %s model, %d messages\n", a.Name(), llm.GetName(), len(payload))
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, a agent.IAgent, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call End: %s: %s model, %d choices\n", a.Name(), llm.GetName(), len(resp.Choices))
}

func (l *Printer) OnToolCall(ctx context.Context, a agent.IAgent, tool, provider, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Call: %s (%s)\n", tool, provider)
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnToolResult(ctx context.Context, a agent.IAgent, tool, provider, input, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Result: %s (%s)\n", tool, provider)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", output)
	}
}

func (l *Printer) OnToolNotFound(ctx context.Context, a agent.IAgent, tool string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", tool)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnChatStart(ctx context.Context, a agent.IAgent, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_start",
		"agent", a.Name(),
		"input", input,
	)
}

func (l *PackageLogger) OnChatEnd(ctx context.Context, a agent.IAgent, input string, final string, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_end",
		"agent", a.Name(),
	)
	if final != "" {
		l.logger.ContextKV(ctx, xlog.DEBUG, "result", final)
	}
}

func (l *PackageLogger) OnChatError(ctx context.Context, a agent.IAgent, input string, err error, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "chat_error",
		"agent", a.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, a agent.IAgent, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"agent", a.Name(),
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, a agent.IAgent, llm llms.Model, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"agent", a.Name(),
		"model", llm.GetName(),
		"choices", len(resp.Choices),
	)
}

func (l *PackageLogger) OnToolCall(ctx context.Context, a agent.IAgent, tool, provider, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_call",
		"agent", a.Name(),
		"tool", tool,
		"provider", provider,
		"input", input,
	)
}

func (l *PackageLogger) OnToolResult(ctx context.Context, a agent.IAgent, tool, provider, input, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_result",
		"agent", a.Name(),
		"tool", tool,
		"provider", provider,
		"output", output,
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, a agent.IAgent, tool string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"agent", a.Name(),
		"tool", tool,
	)
}
