package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"petfoodverifai/internal/analyzeform"
)

// Step is the question a chat is currently answering.
type Step string

const (
	StepProductName    Step = "productName"
	StepProductURL     Step = "productUrl"
	StepSpecies        Step = "species"
	StepBreed          Step = "breed"
	StepAge            Step = "age"
	StepAdditionalInfo Step = "additionalInfo"
	StepIngredients    Step = "ingredients"
	StepRetry          Step = "retry"
)

// Draft is the persisted form state of one chat.
type Draft struct {
	Step        Step                    `json:"step"`
	Values      analyzeform.Values      `json:"values"`
	ScrapeState analyzeform.ScrapeState `json:"scrapeState"`
	UpdatedAt   time.Time               `json:"-"`
}

// SessionRepository stores drafts in the form_sessions table. Drafts older
// than the TTL are treated as absent.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	return &SessionRepository{db: db, ttl: ttl}
}

// Save creates or replaces the draft of chatID.
func (sr *SessionRepository) Save(ctx context.Context, chatID int64, d *Draft) error {
	state, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	d.UpdatedAt = time.Now().UTC()

	_, err = sr.db.ExecContext(ctx, `
		INSERT INTO form_sessions (chat_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		chatID, string(state), d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// GetActive returns the chat's draft, or nil when there is none or it expired.
func (sr *SessionRepository) GetActive(ctx context.Context, chatID int64, now time.Time) (*Draft, error) {
	var (
		state     string
		updatedAt time.Time
	)
	err := sr.db.QueryRowContext(ctx, `SELECT state, updated_at FROM form_sessions WHERE chat_id = ?`, chatID).
		Scan(&state, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if now.Sub(updatedAt) > sr.ttl {
		return nil, nil
	}

	var d Draft
	if err := json.Unmarshal([]byte(state), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	d.UpdatedAt = updatedAt
	return &d, nil
}

// Delete removes the chat's draft.
func (sr *SessionRepository) Delete(ctx context.Context, chatID int64) error {
	if _, err := sr.db.ExecContext(ctx, `DELETE FROM form_sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// CleanupExpired removes all expired drafts.
func (sr *SessionRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := sr.db.ExecContext(ctx, `DELETE FROM form_sessions WHERE updated_at < ?`, now.Add(-sr.ttl).UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up drafts: %w", err)
	}
	return res.RowsAffected()
}
