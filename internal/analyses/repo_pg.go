package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis row.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (id, user_id, type, status, content, delivered, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	content, err := marshalJSONB(analysis.Content)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.UserID,
		analysis.Type,
		analysis.Status,
		content,
		analysis.Delivered,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
SELECT id, user_id, type, status, content, delivered, created_at
FROM analyses
WHERE id = $1
LIMIT 1`
	var a Analysis
	var content sql.NullString
	err := r.DB.QueryRowContext(ctx, query, analysisID).Scan(
		&a.ID, &a.UserID, &a.Type, &a.Status, &content, &a.Delivered, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, err
	}
	if content.Valid && content.String != "" {
		if err := json.Unmarshal([]byte(content.String), &a.Content); err != nil {
			return Analysis{}, fmt.Errorf("analysis %s content: %w", analysisID, err)
		}
	}
	return a, nil
}

// MarkCompleted finalizes a processing record as completed.
func (r *PGRepo) MarkCompleted(ctx context.Context, analysisID string, content map[string]any) error {
	return r.finalize(ctx, analysisID, StatusCompleted, content)
}

// MarkFailed finalizes a processing record as failed.
func (r *PGRepo) MarkFailed(ctx context.Context, analysisID string, message string, failedAt time.Time) error {
	content := map[string]any{
		"error":    message,
		"failedAt": failedAt.UTC().Format(time.RFC3339),
	}
	return r.finalize(ctx, analysisID, StatusFailed, content)
}

// MarkDelivered flips the delivered flag.
func (r *PGRepo) MarkDelivered(ctx context.Context, analysisID string) error {
	const query = `UPDATE analyses SET delivered = TRUE WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, analysisID)
	if err != nil {
		return err
	}
	return requireRow(res, analysisID)
}

func (r *PGRepo) finalize(ctx context.Context, analysisID, status string, content map[string]any) error {
	// Only a processing row may be finalized; transitions are monotonic.
	const query = `
UPDATE analyses
SET status = $2, content = $3
WHERE id = $1 AND status = $4`
	payload, err := marshalJSONB(content)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, analysisID, status, payload, StatusProcessing)
	if err != nil {
		return err
	}
	return requireRow(res, analysisID)
}

func requireRow(res sql.Result, analysisID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("analysis %s: %w", analysisID, ErrNotFound)
	}
	return nil
}

func marshalJSONB(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

var _ Repo = (*PGRepo)(nil)
