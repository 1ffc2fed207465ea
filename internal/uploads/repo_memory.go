package uploads

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	uploads []Upload
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Put stores an upload, mainly for tests and dev mode.
func (r *MemoryRepo) Put(u Upload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = append(r.uploads, u)
}

func (r *MemoryRepo) ListRecentByUser(ctx context.Context, userID string, since time.Time) ([]Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Upload
	for _, u := range r.uploads {
		if u.UserID == userID && !u.UploadedAt.Before(since) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
