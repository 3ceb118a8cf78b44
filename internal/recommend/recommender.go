// Package recommend asks the LLM whether a product suits a pet.
package recommend

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"petfoodverifai/internal/llm"
	"petfoodverifai/internal/shared"
)

//go:embed recommender_prompt.md
var recommenderPrompt string

var promptTmpl = template.Must(template.New("recommender").Parse(recommenderPrompt))

const agentName = "Recommender"

const (
	Recommended    = "Recommended"
	NotRecommended = "NotRecommended"
)

// ErrInvalidRecommendation is returned when the model answers outside the allowed values.
var ErrInvalidRecommendation = errors.New("invalid recommendation value")

// Input describes the product and the pet.
type Input struct {
	ProductName    string
	ProductURL     string
	Species        string
	Breed          string
	Age            int
	AdditionalInfo string
	// Ingredients is empty when no ingredient list is available.
	Ingredients string
}

type Concern struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Recommendation is the structured model answer.
type Recommendation struct {
	Recommendation string    `json:"recommendation"`
	Justification  string    `json:"justification"`
	Concerns       []Concern `json:"concerns"`
}

type Result struct {
	Recommendation Recommendation
	Meta           shared.AgentMeta
}

// Recommender wraps a text generator.
type Recommender struct {
	textGen llm.TextGenerator
}

func New(textGen llm.TextGenerator) *Recommender {
	return &Recommender{textGen: textGen}
}

// Recommend builds the prompt, calls the model and parses its JSON answer.
// Meta is filled whenever the model answered, even if parsing failed.
func (r *Recommender) Recommend(ctx context.Context, in Input) (Result, error) {
	start := time.Now()

	prompt, err := buildPrompt(in)
	if err != nil {
		return Result{}, err
	}

	resp, err := r.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	meta := shared.AgentMeta{
		AgentName: agentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	var rec Recommendation
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &rec); err != nil {
		return Result{Meta: meta}, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}
	if err := normalize(&rec); err != nil {
		return Result{Meta: meta}, err
	}

	return Result{Recommendation: rec, Meta: meta}, nil
}

func buildPrompt(in Input) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("failed to build recommender prompt: %w", err)
	}
	return buf.String(), nil
}

func normalize(rec *Recommendation) error {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(rec.Recommendation)), " ", "") {
	case "recommended":
		rec.Recommendation = Recommended
	case "notrecommended":
		rec.Recommendation = NotRecommended
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRecommendation, rec.Recommendation)
	}
	rec.Justification = strings.TrimSpace(rec.Justification)
	if rec.Concerns == nil {
		rec.Concerns = []Concern{}
	}
	for i := range rec.Concerns {
		if rec.Concerns[i].Type == "" {
			rec.Concerns[i].Type = "Unknown"
		}
	}
	return nil
}

// stripFences removes a ```json fence some models wrap around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
