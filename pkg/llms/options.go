package llms

// CallOption is a function that configures a CallOptions.
type CallOption func(*CallOptions)

// CallOptions is a set of options for calling models.
type CallOptions struct {
	// Model is the model to use.
	Model string `json:"model"`
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens"`
	// Temperature is the temperature for sampling, between 0 and 1.
	Temperature float64 `json:"temperature"`
	// HasTemperature reports whether Temperature was set explicitly.
	HasTemperature bool `json:"-"`
	// StopWords is a list of words to stop on.
	StopWords []string `json:"stop_words"`
	// Tools is a list of tools the model may invoke.
	Tools []Tool `json:"tools,omitempty"`
	// ToolChoice is "none", "auto" (the default), or a specific tool.
	ToolChoice any `json:"tool_choice,omitempty"`
	// JSONMode requests a JSON object response.
	JSONMode bool `json:"json_mode,omitempty"`
}

// WithModel specifies which model to use.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens specifies the max number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature specifies the model temperature.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
		o.HasTemperature = true
	}
}

// WithStopWords specifies a list of words to stop generation on.
func WithStopWords(stopWords []string) CallOption {
	return func(o *CallOptions) {
		o.StopWords = stopWords
	}
}

// WithTools specifies the tools the model may invoke.
// An empty list withholds all tools, forcing a plain answer.
func WithTools(tools []Tool) CallOption {
	return func(o *CallOptions) {
		o.Tools = tools
	}
}

// WithToolChoice specifies the tool choice behavior.
func WithToolChoice(choice any) CallOption {
	return func(o *CallOptions) {
		o.ToolChoice = choice
	}
}

// WithJSONMode requests a JSON object response.
func WithJSONMode(jsonMode bool) CallOption {
	return func(o *CallOptions) {
		o.JSONMode = jsonMode
	}
}
