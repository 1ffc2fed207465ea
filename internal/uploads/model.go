package uploads

import "time"

// Upload references one user-submitted source file already persisted to the
// object store. Immutable once written; the analysis core never mutates or
// deletes uploads.
type Upload struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storageKey"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}
