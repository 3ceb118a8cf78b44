// Package shared holds the LLM usage types passed between the model clients,
// the recommender and the metrics store.
package shared

import "time"

// TokenUsage is the token accounting reported by one model call.
type TokenUsage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	// TotalTokens is the provider's own total; zero when it did not report one.
	TotalTokens int
}

// Total returns the provider total, or prompt plus completion tokens.
func (u TokenUsage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// Empty reports whether the call consumed no tokens, e.g. it never reached
// the provider.
func (u TokenUsage) Empty() bool {
	return u.Total() == 0
}

// AgentMeta describes one agent execution for the usage metrics.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
