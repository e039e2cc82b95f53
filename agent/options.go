package agent

import (
	"github.com/effective-security/biomcp/pkg/llms"
	"github.com/effective-security/biomcp/store"
)

// DefaultMaxTurns caps the number of model turns that may request tools
// before the final answer is forced.
const DefaultMaxTurns = 10

// DefaultSystemPrompt seeds the conversation when no prompt is configured.
const DefaultSystemPrompt = "You are an expert in the field of medical science. " +
	"Use the available tools to research the question, and keep using the tools until you reach the final objective. " +
	"When you have enough information, provide the final answer in plain text."

// Config describes agent behavior.
type Config struct {
	Name         string
	Description  string
	SystemPrompt string
	MaxTurns     int
	Callback     Callback
	Store        store.ChatHistory
	CallOptions  []llms.CallOption
}

// Option configures the agent.
type Option func(*Config)

// WithName sets the agent name.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithDescription sets the agent description.
func WithDescription(desc string) Option {
	return func(c *Config) {
		c.Description = desc
	}
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) {
		c.SystemPrompt = prompt
	}
}

// WithMaxTurns caps tool-requesting model turns. Values below 1 keep the
// default.
func WithMaxTurns(maxTurns int) Option {
	return func(c *Config) {
		if maxTurns > 0 {
			c.MaxTurns = maxTurns
		}
	}
}

// WithCallback registers an observer of the chat loop.
func WithCallback(cb Callback) Option {
	return func(c *Config) {
		c.Callback = cb
	}
}

// WithStore keeps conversation history across runs of the same chat.
func WithStore(s store.ChatHistory) Option {
	return func(c *Config) {
		c.Store = s
	}
}

// WithCallOptions passes extra options to every model call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(c *Config) {
		c.CallOptions = append(c.CallOptions, opts...)
	}
}
