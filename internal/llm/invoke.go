package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Shared sampling configuration for every analysis call. Low randomness
// biases the model toward the JSON shapes the prompts demand.
const (
	defaultTemperature     = 0.1
	defaultTopP            = 0.7
	defaultTopK            = 20
	defaultMaxOutputTokens = 4096
)

// DefaultTimeout is the per-call wall-clock budget when the caller passes
// zero.
const DefaultTimeout = 20 * time.Second

// The model sometimes wraps JSON in ```json ... ``` blocks. One layer is
// stripped; nested fences inside the payload are left alone.
var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")
	inlineFenceRe = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
)

// Invoke builds the full instruction text from the template and payload,
// calls the provider under a hard timeout, strips any Markdown code fencing
// from the response and returns the parsed JSON.
//
// The timeout cancels the underlying request via context; there is no
// secondary timer. Timeouts surface as ErrGenerationTimeout, parse failures
// as *MalformedResponseError. Invoke never retries and never caches.
func Invoke(ctx context.Context, provider Provider, promptTemplate string, payload any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	// The data section and trailing directive are always attached so every
	// module call carries full context and the JSON-only reminder.
	fullPrompt := promptTemplate +
		"\n\n# TEST DATA\n" + string(encoded) +
		"\n\nIMPORTANT: Return ONLY the JSON."

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := provider.Generate(callCtx, Request{
		Prompt:          fullPrompt,
		Temperature:     defaultTemperature,
		TopP:            defaultTopP,
		TopK:            defaultTopK,
		MaxOutputTokens: defaultMaxOutputTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrGenerationTimeout
		}
		return nil, err
	}

	jsonText := StripCodeFence(resp.Text)

	if !json.Valid([]byte(jsonText)) {
		return nil, &MalformedResponseError{
			Raw: resp.Text,
			Err: fmt.Errorf("response is not valid JSON"),
		}
	}

	return json.RawMessage(jsonText), nil
}

// StripCodeFence removes exactly one layer of Markdown code fencing, with or
// without a language tag. Fence-free input passes through unchanged apart
// from surrounding whitespace, so running it twice is a no-op.
func StripCodeFence(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := inlineFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
