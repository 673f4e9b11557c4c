package queue

import (
	"time"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// Job represents one queued extraction run
type Job struct {
	ID         string          `json:"id"`
	JobName    string          `json:"job_name,omitempty"`
	Source     types.SourceRef `json:"source"`
	SourceType string          `json:"source_type"`
	Status     types.JobStatus `json:"status"`
	Response   *types.Response `json:"response,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// NewJob creates a new job with default values
func NewJob(id, sourceType string, src types.SourceRef) *Job {
	return &Job{
		ID:         id,
		Source:     src,
		SourceType: sourceType,
		Status:     types.StatusQueued,
		CreatedAt:  time.Now(),
	}
}
