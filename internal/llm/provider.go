package llm

import (
	"context"
)

// Provider is the core abstraction for generative-model interaction. Every
// analysis module delegates to a single Provider so model configuration stays
// in one place.
type Provider interface {
	// Generate sends a prompt to the model and returns its raw text output.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single-turn text generation call.
type Request struct {
	// Prompt is the complete instruction text, data payload included.
	Prompt string

	// Sampling parameters. Kept low-randomness so the model stays close to
	// the JSON shapes the prompts demand.
	Temperature float32
	TopP        float32
	TopK        float32

	// MaxOutputTokens bounds the response length.
	MaxOutputTokens int32
}

// Response holds the model's output.
type Response struct {
	// Text is the raw text returned by the model. It may still carry a
	// Markdown code fence; Invoke strips that before parsing.
	Text string

	// Model is the actual model that served the request.
	Model string
}
