package uploads

import (
	"context"
	"database/sql"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// ListRecentByUser returns uploads within the lookback window, oldest first.
func (r *PGRepo) ListRecentByUser(ctx context.Context, userID string, since time.Time) ([]Upload, error) {
	const query = `
SELECT id, user_id, filename, storage_key, size_bytes, uploaded_at
FROM uploads
WHERE user_id = $1 AND uploaded_at >= $2
ORDER BY uploaded_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.UserID, &u.Filename, &u.StorageKey, &u.SizeBytes, &u.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
