package driven

import (
	"context"
	"encoding/json"
)

// LLMService provides language model generation for synthesis.
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Zero is sent as-is.
	Temperature float64

	// ResponseFormat requests JSON output; nil means free text.
	ResponseFormat *ResponseFormat
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	MaxTokens      int
	Temperature    float64
	ResponseFormat *ResponseFormat
}

// ResponseFormat constrains generation output to JSON.
// With a nil Schema any JSON object is accepted.
type ResponseFormat struct {
	Name   string
	Schema json.RawMessage
}
