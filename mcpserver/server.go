// Package mcpserver implements the server side of the tool protocol over
// stdio: newline-delimited JSON-RPC on stdin/stdout. Provider binaries
// register typed tool handlers and serve one client for the lifetime of
// the process.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"reflect"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/mcp"
	"github.com/effective-security/biomcp/mcp/transport"
	"github.com/effective-security/biomcp/schema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/biomcp", "mcpserver")

// maxLineSize bounds a single request line.
const maxLineSize = 4 * 1024 * 1024

// ToolHandler executes one tool call with already-decoded arguments.
type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

type registeredTool struct {
	tool    mcp.Tool
	handler ToolHandler
}

// Server serves a registered tool set to a single client.
type Server struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool

	writeMu sync.Mutex
	out     io.Writer
}

// NewServer creates a server with the given implementation name.
func NewServer(name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool),
	}
}

// RegisterTool adds a tool with a raw JSON-schema and handler.
func (s *Server) RegisterTool(tool mcp.Tool, handler ToolHandler) error {
	if tool.Name == "" {
		return errors.New("tool name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tools[tool.Name]; ok {
		return errors.Errorf("tool already registered: %s", tool.Name)
	}
	s.tools[tool.Name] = &registeredTool{
		tool:    tool,
		handler: handler,
	}
	return nil
}

// AddTool registers a typed tool handler. The input schema is derived from
// the argument type by reflection.
func AddTool[T any](s *Server, name, description string, handler func(ctx context.Context, args T) (string, error)) error {
	var zero T
	sc, err := schema.New(reflect.TypeOf(zero))
	if err != nil {
		return errors.WithMessagef(err, "failed to reflect schema for tool %s", name)
	}
	inputSchema, err := sc.Object()
	if err != nil {
		return errors.WithMessagef(err, "failed to render schema for tool %s", name)
	}

	return s.RegisterTool(mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}, func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", errors.Wrap(err, "invalid arguments")
			}
		}
		return handler(ctx, args)
	})
}

// ServeStdio reads requests from in and writes responses to out until EOF
// or context cancellation.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := transport.ParseJsonRpcMessage(line)
		if err != nil {
			logger.KV(xlog.WARNING,
				"status", "invalid_message",
				"err", err.Error(),
			)
			continue
		}
		s.dispatch(ctx, msg)
	}
	return errors.WithStack(scanner.Err())
}

func (s *Server) dispatch(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
	switch msg.Type {
	case transport.BaseMessageTypeJSONRPCRequestType:
		s.handleRequest(ctx, msg.JsonRpcRequest)
	case transport.BaseMessageTypeJSONRPCNotificationType:
		// notifications/initialized and cancellations need no reply
	default:
		logger.KV(xlog.DEBUG,
			"status", "ignored_message",
			"type", msg.Type,
		)
	}
}

func (s *Server) handleRequest(ctx context.Context, req *transport.BaseJSONRPCRequest) {
	switch req.Method {
	case "initialize":
		s.replyResult(req.Id, mcp.InitializeResult{
			ProtocolVersion: mcp.ProtocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &mcp.ToolsCapability{},
			},
			ServerInfo: mcp.Implementation{
				Name:    s.name,
				Version: s.version,
			},
		})
	case "ping":
		s.replyResult(req.Id, struct{}{})
	case "tools/list":
		s.replyResult(req.Id, mcp.ListToolsResult{
			Tools: s.listTools(),
		})
	case "tools/call":
		s.handleCallTool(ctx, req)
	default:
		s.replyError(req.Id, -32601, "method not found: "+req.Method)
	}
}

func (s *Server) listTools() []mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]mcp.Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, s.tools[name].tool)
	}
	return tools
}

func (s *Server) handleCallTool(ctx context.Context, req *transport.BaseJSONRPCRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.replyError(req.Id, -32602, "invalid params: "+err.Error())
		return
	}

	s.mu.RLock()
	reg, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		s.replyError(req.Id, -32602, "unknown tool: "+params.Name)
		return
	}

	output, err := reg.handler(ctx, params.Arguments)
	if err != nil {
		// Tool failures are results, not protocol errors, so the model
		// can read and recover from them.
		s.replyResult(req.Id, mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(err.Error())},
			IsError: true,
		})
		return
	}
	s.replyResult(req.Id, mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(output)},
	})
}

func (s *Server) replyResult(id transport.RequestId, result any) {
	js, err := json.Marshal(result)
	if err != nil {
		s.replyError(id, -32603, "failed to marshal result: "+err.Error())
		return
	}
	s.send(transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
		Jsonrpc: "2.0",
		Id:      id,
		Result:  js,
	}))
}

func (s *Server) replyError(id transport.RequestId, code int, message string) {
	s.send(transport.NewBaseMessageError(&transport.BaseJSONRPCError{
		Jsonrpc: "2.0",
		Id:      id,
		Error: transport.BaseJSONRPCErrorInner{
			Code:    code,
			Message: message,
		},
	}))
}

func (s *Server) send(msg *transport.BaseJsonRpcMessage) {
	js, err := json.Marshal(msg)
	if err != nil {
		logger.KV(xlog.ERROR,
			"status", "marshal_failed",
			"err", err.Error(),
		)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, _ = s.out.Write(append(js, '\n'))
}
