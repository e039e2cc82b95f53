// Package mcp implements the client side of the Model Context Protocol:
// JSON-RPC message correlation over a pluggable transport, the initialize
// handshake, tool listing and tool invocation.
package mcp

import (
	"encoding/json"
	"strings"
)

// ProtocolVersion is the MCP revision spoken by this client.
const ProtocolVersion = "2024-11-05"

// Implementation identifies one side of an MCP connection.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities advertises what the client supports.
type ClientCapabilities struct {
	Experimental map[string]any `json:"experimental,omitempty"`
}

// ServerCapabilities advertises what the server supports.
type ServerCapabilities struct {
	Tools   *ToolsCapability `json:"tools,omitempty"`
	Prompts map[string]any   `json:"prompts,omitempty"`
}

// ToolsCapability is the server's tools capability block.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeRequest is the params of the "initialize" request.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the server's reply to "initialize".
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Tool is one tool declared by a provider. InputSchema is a JSON-schema
// object describing the accepted arguments.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ListToolsResult is the server's reply to "tools/list".
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolRequest is the params of a "tools/call" request.
type CallToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Content is one content block of a tool result. Only text blocks are
// produced by the providers in this repo.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewTextContent creates a text content block.
func NewTextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// CallToolResult is the server's reply to "tools/call".
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// JoinedText concatenates the text blocks of the result.
func (r *CallToolResult) JoinedText() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func unmarshalResult(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
