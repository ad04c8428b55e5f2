package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system", "tool"
	Content string
}

// Output formats understood by providers. Structured asks the model for a
// JSON-only response; Free leaves the output unconstrained.
const (
	FormatStructured = "json"
	FormatFree       = ""
)

// Option allows for optional parameters like Temperature, Format, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	Format      string // FormatStructured or FormatFree
	Complex     bool   // Hint: reasoning-heavy call, give the model more context
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

func WithComplexity(complex bool) Option {
	return func(o *Options) {
		o.Complex = complex
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
