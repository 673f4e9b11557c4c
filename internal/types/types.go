package types

import (
	"errors"
	"time"
)

// JobStatus is the lifecycle state reported by the transcription engine
type JobStatus string

// Job status constants
const (
	StatusQueued     JobStatus = "QUEUED"
	StatusSubmitted  JobStatus = "SUBMITTED"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further transition can occur from s
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source type constants
const (
	SourceEvent  = "event"
	SourceUpload = "upload"
)

// DefaultUnknownSpeaker labels words whose start time no speaker segment covers
const DefaultUnknownSpeaker = "unknown_speaker"

// Errors shared across packages. Call sites wrap these with %w.
var (
	ErrSubmission   = errors.New("submission error")
	ErrJobFailed    = errors.New("transcription job failed")
	ErrPollTimeout  = errors.New("poll timeout")
	ErrDeletion     = errors.New("deletion error")
	ErrNotFound     = errors.New("object not found")
	ErrInvalidEvent = errors.New("invalid event")
)

// SourceRef locates an uploaded media object
type SourceRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// JobHandle identifies a transcription job and its last observed status
type JobHandle struct {
	JobName       string    `json:"job_name"`
	Status        JobStatus `json:"status"`
	ResultURI     string    `json:"result_uri,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// WordItem is a single entry of the engine's item stream. StartTime is empty
// for non-speech artifacts such as punctuation.
type WordItem struct {
	StartTime string
	Content   string
}

// Timed reports whether the item carries a start time
func (w WordItem) Timed() bool {
	return w.StartTime != ""
}

// SpeakerSegment is a contiguous stretch of the timeline attributed to one speaker
type SpeakerSegment struct {
	SpeakerLabel string
	StartTimes   []string
}

// ConversationTurn is a maximal run of words attributed to one speaker
type ConversationTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Response is returned to the trigger source
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Succeeded reports whether the response carries a 2xx status
func (r Response) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// TranscriptRecord is a ledger row describing one invocation
type TranscriptRecord struct {
	JobName      string    `json:"job_name"`
	SourceBucket string    `json:"source_bucket"`
	SourceKey    string    `json:"source_key"`
	Status       JobStatus `json:"status"`
	OutputBucket string    `json:"output_bucket,omitempty"`
	OutputKey    string    `json:"output_key,omitempty"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
