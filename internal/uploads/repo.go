package uploads

import (
	"context"
	"time"
)

type Repo interface {
	// ListRecentByUser returns the user's uploads with uploaded_at >= since,
	// oldest first. The lookback scoping keeps a fresh analysis from
	// reprocessing the user's entire upload history.
	ListRecentByUser(ctx context.Context, userID string, since time.Time) ([]Upload, error)
}
