package analyses

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Analysis
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Analysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[analysis.ID]; exists {
		return fmt.Errorf("analysis %s already exists", analysis.ID)
	}
	r.records[analysis.ID] = analysis
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.records[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, analysisID string, content map[string]any) error {
	return r.finalize(ctx, analysisID, StatusCompleted, content)
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, analysisID string, message string, failedAt time.Time) error {
	content := map[string]any{
		"error":    message,
		"failedAt": failedAt.UTC().Format(time.RFC3339),
	}
	return r.finalize(ctx, analysisID, StatusFailed, content)
}

func (r *MemoryRepo) MarkDelivered(ctx context.Context, analysisID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[analysisID]
	if !ok {
		return ErrNotFound
	}
	a.Delivered = true
	r.records[analysisID] = a
	return nil
}

func (r *MemoryRepo) finalize(ctx context.Context, analysisID, status string, content map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[analysisID]
	if !ok {
		return ErrNotFound
	}
	if a.Status != StatusProcessing {
		return fmt.Errorf("analysis %s already finalized as %s", analysisID, a.Status)
	}
	a.Status = status
	a.Content = content
	r.records[analysisID] = a
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
