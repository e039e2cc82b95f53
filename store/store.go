// Package store keeps conversation history for an interactive session
// within one process run. Nothing is persisted across runs.
package store

import (
	"context"

	"github.com/effective-security/biomcp/pkg/llms"
)

// ChatHistory stores prior messages of one chat, keyed by the chat ID
// carried in the context.
type ChatHistory interface {
	// Messages returns the stored messages of the chat, in order.
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the chat.
	Add(ctx context.Context, messages ...llms.Message) error
	// Reset removes all messages of the chat.
	Reset(ctx context.Context) error
}
