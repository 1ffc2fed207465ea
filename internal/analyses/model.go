package analyses

import "time"

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TypeFullReport is the discriminator for a full-report audit run.
const TypeFullReport = "full_report"

// Analysis is the persisted state-machine row for one audit run.
// Status moves processing -> exactly one of {completed, failed}; a fresh
// run always creates a fresh row, never resurrects an old one.
type Analysis struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Content   map[string]any `json:"content,omitempty"`
	Delivered bool           `json:"delivered"`
	CreatedAt time.Time      `json:"createdAt"`
}
