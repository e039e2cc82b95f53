package mcp

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/mcp/transport"
)

// clientInfo is sent in the initialize handshake.
var clientInfo = Implementation{
	Name:    "biomcp",
	Version: "1.0.0",
}

//go:generate mockgen -destination=../mocks/mockmcp/session_mock.gen.go -package mockmcp github.com/effective-security/biomcp/mcp ISession

// ISession is a single open connection to one tool provider.
// Sessions are owned exclusively by the registry for their lifetime.
type ISession interface {
	// Initialize performs the MCP handshake.
	Initialize(ctx context.Context) (*InitializeResult, error)
	// ListTools returns the tools declared by the provider.
	ListTools(ctx context.Context) ([]Tool, error)
	// CallTool invokes a tool by name with structured arguments.
	CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error)
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Client is an MCP session over any transport variant.
type Client struct {
	protocol   *protocol
	serverInfo *InitializeResult
}

var _ ISession = (*Client)(nil)

// NewClient creates a client and connects it to the transport.
func NewClient(ctx context.Context, tr transport.Transport) (*Client, error) {
	c := &Client{
		protocol: newProtocol(),
	}
	if err := c.protocol.Connect(ctx, tr); err != nil {
		return nil, errors.WithMessage(err, "failed to connect transport")
	}
	return c, nil
}

// Initialize performs the MCP handshake: the "initialize" request followed
// by the "notifications/initialized" notification.
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	req := InitializeRequest{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ClientCapabilities{},
		ClientInfo:      clientInfo,
	}
	raw, err := c.protocol.Request(ctx, "initialize", req, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "initialize failed")
	}

	var result InitializeResult
	if err := unmarshalResult(raw, &result); err != nil {
		return nil, errors.Wrap(err, "invalid initialize result")
	}
	c.serverInfo = &result

	if err := c.protocol.Notification(ctx, "notifications/initialized", struct{}{}); err != nil {
		return nil, errors.WithMessage(err, "failed to confirm initialization")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "session_initialized",
		"server", result.ServerInfo.Name,
		"version", result.ServerInfo.Version,
	)
	return &result, nil
}

// ServerInfo returns the handshake result, or nil before Initialize.
func (c *Client) ServerInfo() *InitializeResult {
	return c.serverInfo
}

// ListTools returns the tools declared by the provider.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	raw, err := c.protocol.Request(ctx, "tools/list", struct{}{}, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "tools/list failed")
	}

	var result ListToolsResult
	if err := unmarshalResult(raw, &result); err != nil {
		return nil, errors.Wrap(err, "invalid tools/list result")
	}
	return result.Tools, nil
}

// CallTool invokes a tool by name. A provider-side execution failure is
// returned as an error; the result's IsError flag is folded in as well.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	req := CallToolRequest{
		Name:      name,
		Arguments: args,
	}
	raw, err := c.protocol.Request(ctx, "tools/call", req, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "tools/call failed: %s", name)
	}

	var result CallToolResult
	if err := unmarshalResult(raw, &result); err != nil {
		return nil, errors.Wrap(err, "invalid tools/call result")
	}
	return &result, nil
}

// Close releases the session.
func (c *Client) Close() error {
	return c.protocol.Close()
}
