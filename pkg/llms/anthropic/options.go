package anthropic

import (
	"net/http"
)

// TokenEnvVarName is the environment variable holding the API key.
const TokenEnvVarName = "ANTHROPIC_API_KEY"

// Options holds client configuration.
type Options struct {
	Token      string
	BaseURL    string
	Model      string
	HttpClient *http.Client

	// AnthropicBetaHeader adds the anthropic-beta header to requests.
	AnthropicBetaHeader string
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

// WithAnthropicBetaHeader sets the anthropic-beta header value.
func WithAnthropicBetaHeader(value string) Option {
	return func(o *Options) {
		o.AnthropicBetaHeader = value
	}
}
