package analyses

import (
	"context"
	"time"
)

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "analysis not found" }

// Repo persists analysis records. The pipeline orchestrator is the only
// writer; each record is created once and finalized once.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	// MarkCompleted finalizes the record with success content.
	MarkCompleted(ctx context.Context, analysisID string, content map[string]any) error
	// MarkFailed finalizes the record with an error message.
	MarkFailed(ctx context.Context, analysisID string, message string, failedAt time.Time) error
	// MarkDelivered flips the delivered flag after the report email attempt.
	MarkDelivered(ctx context.Context, analysisID string) error
}
