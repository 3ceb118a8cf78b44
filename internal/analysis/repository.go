package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"petfoodverifai/internal/backend"
)

// Repository is a database-backed repository for products, analyses and feedback.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertProduct inserts the product or updates the one with the same URL and
// returns the stored ID. Known ingredients are kept when p has none.
func (r *Repository) UpsertProduct(ctx context.Context, p Product) (string, error) {
	now := time.Now().UTC()
	var ingr interface{}
	if p.IngredientsText != nil {
		ingr = *p.IngredientsText
	}

	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, url, ingredients_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			name = excluded.name,
			ingredients_text = COALESCE(excluded.ingredients_text, products.ingredients_text),
			updated_at = excluded.updated_at
		RETURNING id`,
		p.ID, p.Name, p.URL, ingr, now, now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert product: %w", err)
	}
	return id, nil
}

// RecordScrapeFailure remembers that scraping url failed for userID at the given time.
func (r *Repository) RecordScrapeFailure(ctx context.Context, userID, url string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scrape_failures (user_id, product_url, failed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, product_url) DO UPDATE SET failed_at = excluded.failed_at`,
		userID, url, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record scrape failure: %w", err)
	}
	return nil
}

// LastScrapeFailure returns when scraping url last failed for userID, or
// ErrNotFound.
func (r *Repository) LastScrapeFailure(ctx context.Context, userID, url string) (time.Time, error) {
	var at time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT failed_at FROM scrape_failures WHERE user_id = ? AND product_url = ?`,
		userID, url,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get scrape failure: %w", err)
	}
	return at, nil
}

// ClearScrapeFailure forgets the user's failed scrape of url.
func (r *Repository) ClearScrapeFailure(ctx context.Context, userID, url string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM scrape_failures WHERE user_id = ? AND product_url = ?`, userID, url); err != nil {
		return fmt.Errorf("failed to clear scrape failure: %w", err)
	}
	return nil
}

// PurgeScrapeFailures removes failures recorded before cutoff.
func (r *Repository) PurgeScrapeFailures(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scrape_failures WHERE failed_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge scrape failures: %w", err)
	}
	return res.RowsAffected()
}

// InsertAnalysis stores a new analysis.
func (r *Repository) InsertAnalysis(ctx context.Context, a *Analysis) error {
	concerns, err := json.Marshal(a.Concerns)
	if err != nil {
		return fmt.Errorf("failed to marshal concerns to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analyses (id, user_id, product_id, species, breed, age, additional_info,
			ingredients_text, recommendation, justification, concerns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ProductID, int(a.Species), a.Breed, a.Age, a.AdditionalInfo,
		a.IngredientsText, a.Recommendation, a.Justification, string(concerns), a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

const selectAnalysis = `
	SELECT a.id, a.user_id, a.product_id, p.name, p.url, a.species, a.breed, a.age,
		a.additional_info, a.ingredients_text, a.recommendation, a.justification,
		a.concerns, f.is_positive, a.created_at
	FROM analyses a
	JOIN products p ON p.id = a.product_id
	LEFT JOIN feedback f ON f.analysis_id = a.id AND f.user_id = a.user_id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(s scanner) (*Analysis, error) {
	var (
		a        Analysis
		species  int
		info     sql.NullString
		ingr     sql.NullString
		concerns string
		feedback sql.NullBool
	)
	err := s.Scan(&a.ID, &a.UserID, &a.ProductID, &a.ProductName, &a.ProductURL, &species,
		&a.Breed, &a.Age, &info, &ingr, &a.Recommendation, &a.Justification, &concerns,
		&feedback, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Species = backend.Species(species)
	if info.Valid {
		a.AdditionalInfo = &info.String
	}
	if ingr.Valid {
		a.IngredientsText = &ingr.String
	}
	if feedback.Valid {
		a.Feedback = &feedback.Bool
	}
	if err := json.Unmarshal([]byte(concerns), &a.Concerns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal concerns JSON for analysis %s: %w", a.ID, err)
	}
	return &a, nil
}

// Get retrieves an analysis owned by userID.
func (r *Repository) Get(ctx context.Context, id, userID string) (*Analysis, error) {
	row := r.db.QueryRowContext(ctx, selectAnalysis+` WHERE a.id = ? AND a.user_id = ?`, id, userID)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis by ID: %w", err)
	}
	return a, nil
}

// ListByUser returns one page of the user's analyses, newest first, and the total count.
func (r *Repository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]Analysis, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectAnalysis+`
		WHERE a.user_id = ?
		ORDER BY a.created_at DESC, a.id
		LIMIT ? OFFSET ?`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	items := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan analysis: %w", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	return items, total, nil
}

// SaveFeedback records or replaces the user's verdict on their analysis.
func (r *Repository) SaveFeedback(ctx context.Context, analysisID, userID string, isPositive bool) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (analysis_id, user_id, is_positive, created_at)
		SELECT id, user_id, ?, ? FROM analyses WHERE id = ? AND user_id = ?
		ON CONFLICT (analysis_id, user_id) DO UPDATE SET
			is_positive = excluded.is_positive,
			created_at = excluded.created_at`,
		isPositive, time.Now().UTC(), analysisID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
