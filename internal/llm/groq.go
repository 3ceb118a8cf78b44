package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"petfoodverifai/internal/config"
	"petfoodverifai/internal/shared"
)

const (
	groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	groqModel  = "llama-3.3-70b-versatile"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// groqClient talks to Groq's OpenAI-compatible chat completions endpoint.
type groqClient struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) TextGenerator {
	return &groqClient{
		apiKey:     cfg.GroqAPIKey,
		url:        groqAPIURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// GenerateContent sends the prompt in JSON mode and returns the first choice.
func (c *groqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model: groqModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
		Temperature:    temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(raw))
		var apiErr chatError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			detail = apiErr.Error.Message
		}
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d: %s", resp.StatusCode, detail)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return ContentResponse{}, ErrNoContent
	}

	model := out.Model
	if model == "" {
		model = groqModel
	}
	return ContentResponse{
		Content: out.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			Model:            model,
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}
