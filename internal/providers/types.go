// Package providers abstracts the LLM behind a narrow client interface.
// The decision engine and response generator only ever see Provider.
package providers

import "context"

// GenerateOptions are the per-call sampling settings.
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Response is the result of a completion call.
type Response struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is the interface all LLM providers implement.
type Provider interface {
	// Generate sends a single prompt and returns the completion.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error)

	// DefaultModel returns the provider's default model name.
	DefaultModel() string

	// Name returns the provider identifier (e.g. "openai").
	Name() string
}
