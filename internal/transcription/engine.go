package transcription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// JobRequest describes a transcription job to start
type JobRequest struct {
	JobName         string
	MediaURI        string
	MediaFormat     string
	LanguageCode    string
	OutputContainer string
	Diarization     bool
	MaxSpeakers     int
	// Source is the uploaded object the media URI points at
	Source types.SourceRef
}

// Engine is the external asynchronous transcription service
type Engine interface {
	Start(ctx context.Context, req JobRequest) (types.JobHandle, error)
	Status(ctx context.Context, jobName string) (types.JobHandle, error)
}

// NewJobName returns a job identifier unique per invocation. The unix time
// keeps names sortable; the random suffix separates same-second submissions.
func NewJobName(now time.Time) string {
	return fmt.Sprintf("transcription-%d-%s", now.Unix(), uuid.New().String()[:8])
}

// SubmitterConfig holds the engine options applied to every submission
type SubmitterConfig struct {
	LanguageCode    string
	OutputContainer string
	MaxSpeakers     int
}

// Submitter builds job requests from uploaded objects and starts them
type Submitter struct {
	engine Engine
	cfg    SubmitterConfig
	log    *logger.Logger
	now    func() time.Time
}

// NewSubmitter creates a new job submitter
func NewSubmitter(engine Engine, cfg SubmitterConfig, log *logger.Logger) *Submitter {
	return &Submitter{
		engine: engine,
		cfg:    cfg,
		log:    log.With("component", "submitter"),
		now:    time.Now,
	}
}

// Submit starts one diarized transcription job for src. Any failure is
// wrapped in types.ErrSubmission and no retry is attempted.
func (s *Submitter) Submit(ctx context.Context, src types.SourceRef) (types.JobHandle, error) {
	format, err := MediaFormat(src.Key)
	if err != nil {
		return types.JobHandle{}, err
	}

	req := JobRequest{
		JobName:         NewJobName(s.now()),
		MediaURI:        MediaURI(src),
		MediaFormat:     format,
		LanguageCode:    s.cfg.LanguageCode,
		OutputContainer: s.cfg.OutputContainer,
		Diarization:     true,
		MaxSpeakers:     s.cfg.MaxSpeakers,
		Source:          src,
	}

	handle, err := s.engine.Start(ctx, req)
	if err != nil {
		return types.JobHandle{}, fmt.Errorf("%w: %v", types.ErrSubmission, err)
	}
	if handle.JobName == "" {
		handle.JobName = req.JobName
	}
	if handle.Status == "" {
		handle.Status = types.StatusInProgress
	}

	s.log.Info("transcription job with speaker diarization started",
		"job", handle.JobName, "media", req.MediaURI, "format", format, "max_speakers", req.MaxSpeakers)
	return handle, nil
}
