package catalog

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/pkg/metricskey"
)

// ErrToolNotFound is returned when a requested tool name is absent from the
// namespace. It is recovered locally by the caller; the conversation
// continues.
var ErrToolNotFound = errors.New("tool not found")

// Invoker forwards a resolved tool call to the owning provider session.
// The registry implements this.
type Invoker interface {
	Invoke(ctx context.Context, providerName, toolName string, args map[string]any) (string, error)
}

// Router dispatches a tool invocation to the provider that owns it.
type Router struct {
	catalog *Catalog
	invoker Invoker
}

// NewRouter creates a router over the catalog and invoker.
func NewRouter(catalog *Catalog, invoker Invoker) *Router {
	return &Router{
		catalog: catalog,
		invoker: invoker,
	}
}

// Catalog returns the namespace this router dispatches against.
func (r *Router) Catalog() *Catalog {
	return r.catalog
}

// Route resolves the owning provider of toolName and forwards the call.
// An unknown name yields ErrToolNotFound; a provider-level failure is
// returned as an error value. Neither aborts the surrounding conversation.
func (r *Router) Route(ctx context.Context, toolName string, args map[string]any) (string, string, error) {
	providerName, ok := r.catalog.Resolve(toolName)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool", toolName,
		)
		return "", "", errors.WithMessagef(ErrToolNotFound, "%s", toolName)
	}

	started := time.Now()
	result, err := r.invoker.Invoke(ctx, providerName, toolName, args)
	metricskey.PerfToolCall.MeasureSince(started, toolName)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"tool", toolName,
			"provider", providerName,
			"err", err.Error(),
		)
		return providerName, "", errors.WithMessagef(err, "failed to call tool %s on provider %s", toolName, providerName)
	}
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	return providerName, result, nil
}
