package llms

import (
	"context"
)

// ProviderType is the type of LLM provider.
type ProviderType string

const (
	// ProviderAnthropic is the Anthropic provider.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderAzure is the Azure OpenAI provider.
	ProviderAzure ProviderType = "AZURE"
	// ProviderOpenAI is the OpenAI provider.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderPerplexity is the Perplexity provider.
	ProviderPerplexity ProviderType = "PERPLEXITY"
)

//go:generate mockgen -destination=../../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/effective-security/biomcp/pkg/llms Model

// Model is the interface chat models implement.
type Model interface {
	// GetName returns the model name, e.g. "gpt-4o-mini".
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages, optionally with tool definitions the model may invoke.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// CapabilityText is basic text or chat generation.
	CapabilityText Capability = 1 << iota

	// Structured response formats
	CapabilityJSONResponse
	CapabilityJSONSchema
	CapabilityJSONSchemaStrict

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling

	// System prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityJSONResponse |
		CapabilityJSONSchema |
		CapabilityJSONSchemaStrict |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderAzure: CapabilityText |
		CapabilityJSONResponse |
		CapabilityJSONSchema |
		CapabilityJSONSchemaStrict |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderAnthropic: CapabilityText |
		CapabilityJSONResponse |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderPerplexity: CapabilityText |
		CapabilitySystemPrompt |
		CapabilityJSONResponse,
}

// ProviderCapabilities returns the capability mask for the provider type.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

// Supports reports whether the provider supports the capability.
func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}

// FunctionDefinition describes a function the model may call.
type FunctionDefinition struct {
	// Name is the function name, unique within one orchestration run.
	Name string `json:"name"`
	// Description describes when the function should be called.
	Description string `json:"description"`
	// Strict requests strict schema adherence from the provider.
	Strict bool `json:"strict,omitempty"`
	// Parameters is a JSON-schema object describing the accepted arguments.
	Parameters any `json:"parameters,omitempty"`
}

// Tool is a tool definition advertised to the model.
type Tool struct {
	// Type is the tool type, always "function".
	Type string `json:"type"`
	// Function holds the function definition.
	Function *FunctionDefinition `json:"function,omitempty"`
}
