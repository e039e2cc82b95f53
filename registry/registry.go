// Package registry owns the set of named provider sessions for one
// orchestration run: it brings them all up, routes invocations to them by
// provider name, and guarantees ordered teardown.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"golang.org/x/sync/errgroup"

	"github.com/effective-security/biomcp/mcp"
	"github.com/effective-security/biomcp/mcp/transport/sse"
	"github.com/effective-security/biomcp/mcp/transport/stdio"
	"github.com/effective-security/biomcp/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/biomcp", "registry")

// ErrUnknownProvider is returned when an invocation names a provider
// without an open session.
var ErrUnknownProvider = errors.New("unknown provider")

// TransportKind selects how a provider is reached.
type TransportKind string

const (
	// KindStdio spawns the provider as a local subprocess.
	KindStdio TransportKind = "stdio"
	// KindSSE connects to the provider over a persistent event stream.
	KindSSE TransportKind = "sse"
)

// ProviderDescriptor describes one tool provider. Immutable, supplied at
// orchestration start.
type ProviderDescriptor struct {
	Name string        `json:"name" yaml:"name" validate:"required"`
	Kind TransportKind `json:"kind" yaml:"kind" validate:"required,oneof=stdio sse"`

	// Command, Args and Env apply to stdio providers.
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`

	// URL applies to sse providers.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ProviderTools is one provider's declared tool list, with provenance.
type ProviderTools struct {
	Provider string
	Tools    []mcp.Tool
}

// Dialer opens and initializes a session for one descriptor.
// Injectable so tests can substitute fakes for real transports.
type Dialer func(ctx context.Context, desc *ProviderDescriptor) (mcp.ISession, error)

// Option configures a Registry.
type Option func(*Registry)

// WithDialer overrides the default transport dialer.
func WithDialer(dialer Dialer) Option {
	return func(r *Registry) {
		r.dialer = dialer
	}
}

// Registry is the sole owner of all open provider sessions of one run.
// Initialize is all-or-nothing; Shutdown releases sessions in reverse order
// of acquisition.
type Registry struct {
	descriptors []*ProviderDescriptor
	dialer      Dialer

	mu       sync.Mutex
	sessions map[string]mcp.ISession
	order    []string
	shutdown bool
}

// New creates a registry for the given descriptors. Sessions are not
// opened until Initialize.
func New(descriptors []*ProviderDescriptor, opts ...Option) *Registry {
	r := &Registry{
		descriptors: descriptors,
		dialer:      dialSession,
		sessions:    make(map[string]mcp.ISession),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize establishes one session per descriptor, concurrently.
// The first failure cancels the remaining in-flight dials, tears down every
// session that already opened, and is returned; partial success is not a
// valid end state.
func (r *Registry) Initialize(ctx context.Context) error {
	names := make(map[string]bool, len(r.descriptors))
	for _, desc := range r.descriptors {
		if desc.Name == "" {
			return errors.New("provider descriptor without a name")
		}
		if names[desc.Name] {
			return errors.Errorf("duplicate provider name: %s", desc.Name)
		}
		names[desc.Name] = true
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, desc := range r.descriptors {
		group.Go(func() error {
			started := time.Now()
			session, err := r.dialer(groupCtx, desc)
			if err != nil {
				metricskey.StatsSessionsFailed.IncrCounter(1, desc.Name)
				return errors.WithMessagef(err, "failed to initialize provider %s", desc.Name)
			}
			metricskey.StatsSessionsOpened.IncrCounter(1, desc.Name)
			metricskey.PerfProviderInit.MeasureSince(started, desc.Name)

			r.mu.Lock()
			r.sessions[desc.Name] = session
			r.order = append(r.order, desc.Name)
			r.mu.Unlock()

			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "provider_session_open",
				"provider", desc.Name,
				"kind", desc.Kind,
			)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if shutdownErr := r.Shutdown(); shutdownErr != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "teardown_after_failed_init",
				"err", shutdownErr.Error(),
			)
		}
		return err
	}
	return nil
}

// ListAllTools queries every open session for its tool list and returns the
// union with provenance, in descriptor order.
func (r *Registry) ListAllTools(ctx context.Context) ([]ProviderTools, error) {
	result := make([]ProviderTools, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		r.mu.Lock()
		session := r.sessions[desc.Name]
		r.mu.Unlock()
		if session == nil {
			return nil, errors.WithMessagef(ErrUnknownProvider, "%s", desc.Name)
		}

		tools, err := session.ListTools(ctx)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to list tools of provider %s", desc.Name)
		}
		result = append(result, ProviderTools{
			Provider: desc.Name,
			Tools:    tools,
		})
	}
	return result, nil
}

// Invoke forwards a tool call to the named session and returns the textual
// result. An unknown provider name or a provider-side failure is an error.
func (r *Registry) Invoke(ctx context.Context, providerName, toolName string, args map[string]any) (string, error) {
	r.mu.Lock()
	session := r.sessions[providerName]
	r.mu.Unlock()
	if session == nil {
		return "", errors.WithMessagef(ErrUnknownProvider, "%s", providerName)
	}

	res, err := session.CallTool(ctx, toolName, args)
	if err != nil {
		return "", err
	}
	text := res.JoinedText()
	if res.IsError {
		return "", errors.Errorf("tool %s reported an error: %s", toolName, text)
	}
	return text, nil
}

// Shutdown releases every open session in reverse order of acquisition.
// Failures are collected and reported together; no failure aborts the
// remaining teardowns. Safe to call more than once.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil
	}
	r.shutdown = true
	order := r.order
	sessions := r.sessions
	r.order = nil
	r.sessions = make(map[string]mcp.ISession)
	r.mu.Unlock()

	var combined error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if err := sessions[name].Close(); err != nil {
			combined = errors.CombineErrors(combined,
				errors.WithMessagef(err, "failed to close provider %s", name))
		}
	}
	return combined
}

// dialSession is the default dialer: it builds the transport for the
// descriptor's kind and performs the MCP handshake.
func dialSession(ctx context.Context, desc *ProviderDescriptor) (mcp.ISession, error) {
	var tr interface {
		Close() error
	}
	var client *mcp.Client
	var err error

	switch desc.Kind {
	case KindStdio:
		if desc.Command == "" {
			return nil, errors.Errorf("provider %s: stdio transport requires a command", desc.Name)
		}
		t := stdio.New(desc.Command, desc.Args...).WithEnv(desc.Env...)
		tr = t
		client, err = mcp.NewClient(ctx, t)
	case KindSSE:
		if desc.URL == "" {
			return nil, errors.Errorf("provider %s: sse transport requires a url", desc.Name)
		}
		t := sse.New(desc.URL)
		tr = t
		client, err = mcp.NewClient(ctx, t)
	default:
		return nil, errors.Errorf("provider %s: unsupported transport kind: %s", desc.Name, desc.Kind)
	}
	if err != nil {
		return nil, err
	}

	if _, err := client.Initialize(ctx); err != nil {
		_ = tr.Close()
		return nil, err
	}
	return client, nil
}
