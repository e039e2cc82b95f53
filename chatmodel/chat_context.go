// Package chatmodel carries chat-scoped identifiers through context.Context
// for log correlation across the orchestration layers.
package chatmodel

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrInvalidChatContext is returned when a chat ID is missing or malformed.
var ErrInvalidChatContext = errors.New("invalid chat context")

type contextKey int

const (
	keyChatID contextKey = iota
)

// NewChatID returns a new random chat ID.
func NewChatID() string {
	return uuid.NewString()
}

// SetChatID stores the chat ID in the context. An empty ID is replaced with
// a new random one; a malformed ID is rejected.
func SetChatID(ctx context.Context, chatID string) (context.Context, error) {
	if chatID == "" {
		chatID = NewChatID()
	} else if _, err := uuid.Parse(chatID); err != nil {
		return nil, errors.WithMessagef(ErrInvalidChatContext, "%s", chatID)
	}
	return context.WithValue(ctx, keyChatID, chatID), nil
}

// GetChatID returns the chat ID from the context, or empty.
func GetChatID(ctx context.Context) string {
	id, _ := ctx.Value(keyChatID).(string)
	return id
}

// EnsureChatID returns a context that carries a chat ID, creating one when
// absent, along with the ID.
func EnsureChatID(ctx context.Context) (context.Context, string) {
	if id := GetChatID(ctx); id != "" {
		return ctx, id
	}
	id := NewChatID()
	return context.WithValue(ctx, keyChatID, id), id
}
