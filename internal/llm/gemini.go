package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"petfoodverifai/internal/config"
	"petfoodverifai/internal/shared"
)

const geminiModel = "gemini-1.5-flash"

type geminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClient creates a Gemini client in JSON response mode.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(geminiModel)
	model.SetTemperature(temperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	return &geminiClient{client: client, model: model}, nil
}

// GenerateContent joins the text parts of the first candidate.
func (c *geminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ContentResponse{}, ErrNoContent
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, ErrNoContent
	}

	out := ContentResponse{Content: sb.String(), Usage: shared.TokenUsage{Model: geminiModel}}
	if u := resp.UsageMetadata; u != nil {
		out.Usage.PromptTokens = int(u.PromptTokenCount)
		out.Usage.CompletionTokens = int(u.CandidatesTokenCount)
		out.Usage.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}

func (c *geminiClient) Close() error {
	return c.client.Close()
}
