// Package llm hides the model providers behind TextGenerator.
package llm

import (
	"context"
	"errors"
	"fmt"

	"petfoodverifai/internal/config"
	"petfoodverifai/internal/shared"
)

// systemInstruction is sent with every prompt, whatever the provider.
const systemInstruction = "You are a veterinary nutrition assistant. Reply with a single JSON object and nothing else."

const temperature = 0.1

// ErrNoContent is returned when the provider answered without any text.
var ErrNoContent = errors.New("no content generated")

// ContentResponse is the generated text and the tokens it cost.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator turns a prompt into model output.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is implemented by generators holding a connection.
type Closer interface {
	Close() error
}

// New returns the generator selected by cfg.LLMProvider.
func New(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	switch cfg.LLMProvider {
	case "groq":
		return NewGroqClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
