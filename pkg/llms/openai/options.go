package openai

import (
	"net/http"

	"github.com/effective-security/biomcp/pkg/llms"
)

// TokenEnvVarName is the environment variable holding the API key.
const TokenEnvVarName = "OPENAI_API_KEY"

// Options holds client configuration.
type Options struct {
	Token      string
	BaseURL    string
	Model      string
	HttpClient *http.Client

	// ProviderType marks OpenAI-compatible providers served through the
	// same wire protocol: AZURE, PERPLEXITY.
	ProviderType llms.ProviderType

	// APIVersion is the api-version query parameter for Azure deployments.
	APIVersion string
}

// Option configures the client.
type Option func(*Options)

// WithToken sets the API token.
func WithToken(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HttpClient = client
	}
}

// WithProviderType marks the compatible provider served by this endpoint.
func WithProviderType(pt llms.ProviderType) Option {
	return func(o *Options) {
		o.ProviderType = pt
	}
}

// WithAPIVersion sets the api-version query parameter, used by Azure.
func WithAPIVersion(version string) Option {
	return func(o *Options) {
		o.APIVersion = version
	}
}
