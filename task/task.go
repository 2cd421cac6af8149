package task

import "time"

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one user-initiated video -> stems conversion job. A task moves
// from processing to exactly one terminal state and is never deleted; the
// registry lives only for the process lifetime.
type Task struct {
	ID         string    `json:"task_id"`
	Status     Status    `json:"status"`
	Message    string    `json:"message"`
	SourceName string    `json:"-"` // original upload filename
	CreatedAt  time.Time `json:"-"`
}
