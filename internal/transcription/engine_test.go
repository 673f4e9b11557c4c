package transcription_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/testsupport"
	"github.com/codebuildervaibhav/transcript-extractor/internal/transcription"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

func TestSubmitBuildsDiarizedRequest(t *testing.T) {
	engine := &testsupport.Engine{}
	sub := transcription.NewSubmitter(engine, transcription.SubmitterConfig{
		LanguageCode:    "en-US",
		OutputContainer: "extractedtextimage",
		MaxSpeakers:     5,
	}, logger.Nop())

	handle, err := sub.Submit(context.Background(), types.SourceRef{Bucket: "uploads", Key: "team/Weekly Sync.MP4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(engine.StartCalls) != 1 {
		t.Fatalf("expected 1 start call, got %d", len(engine.StartCalls))
	}
	req := engine.StartCalls[0]
	if req.MediaURI != "s3://uploads/team/Weekly Sync.MP4" {
		t.Fatalf("unexpected media uri %q", req.MediaURI)
	}
	if req.MediaFormat != "mp4" || req.LanguageCode != "en-US" || req.OutputContainer != "extractedtextimage" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Source != (types.SourceRef{Bucket: "uploads", Key: "team/Weekly Sync.MP4"}) {
		t.Fatalf("request should carry its source, got %+v", req.Source)
	}
	if !req.Diarization || req.MaxSpeakers != 5 {
		t.Fatalf("expected diarization with 5 speakers, got %+v", req)
	}
	if !strings.HasPrefix(req.JobName, "transcription-") || handle.JobName != req.JobName {
		t.Fatalf("unexpected job name %q / handle %+v", req.JobName, handle)
	}
	if handle.Status != types.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS handle, got %s", handle.Status)
	}
}

func TestSubmitErrorsAreSubmissionErrors(t *testing.T) {
	engine := &testsupport.Engine{StartErr: errors.New("LimitExceededException")}
	sub := transcription.NewSubmitter(engine, transcription.SubmitterConfig{MaxSpeakers: 2}, logger.Nop())

	_, err := sub.Submit(context.Background(), types.SourceRef{Bucket: "b", Key: "a.wav"})
	if !errors.Is(err, types.ErrSubmission) || !strings.Contains(err.Error(), "LimitExceededException") {
		t.Fatalf("expected wrapped submission error, got %v", err)
	}

	_, err = sub.Submit(context.Background(), types.SourceRef{Bucket: "b", Key: "notes.docx"})
	if !errors.Is(err, types.ErrSubmission) {
		t.Fatalf("expected submission error for unsupported format, got %v", err)
	}
	if len(engine.StartCalls) != 1 {
		t.Fatalf("unsupported format must not reach the engine, got %d calls", len(engine.StartCalls))
	}
}

func TestNewJobNameIsUnique(t *testing.T) {
	now := time.Unix(1729000000, 0)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		name := transcription.NewJobName(now)
		if !strings.HasPrefix(name, "transcription-1729000000-") {
			t.Fatalf("unexpected job name %q", name)
		}
		if seen[name] {
			t.Fatalf("duplicate job name %q", name)
		}
		seen[name] = true
	}
}

func newPoller(engine transcription.Engine, cfg transcription.PollerConfig) *transcription.Poller {
	if cfg.Interval == 0 {
		cfg.Interval = time.Millisecond
	}
	return transcription.NewPoller(engine, cfg, logger.Nop())
}

func TestPollerWaitsForTerminalState(t *testing.T) {
	tests := []struct {
		name     string
		statuses []types.JobStatus
		want     types.JobStatus
		calls    int
	}{
		{"completed", []types.JobStatus{types.StatusQueued, types.StatusInProgress, types.StatusCompleted}, types.StatusCompleted, 3},
		{"failed", []types.JobStatus{types.StatusInProgress, types.StatusFailed}, types.StatusFailed, 2},
		{"immediately done", []types.JobStatus{types.StatusCompleted}, types.StatusCompleted, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := &testsupport.Engine{Statuses: tc.statuses, ResultURI: "https://s3/result.json"}
			p := newPoller(engine, transcription.PollerConfig{MaxAttempts: 10})

			handle, err := p.Wait(context.Background(), types.JobHandle{JobName: "job-1", Status: types.StatusInProgress})
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if handle.Status != tc.want || handle.JobName != "job-1" {
				t.Fatalf("unexpected handle %+v", handle)
			}
			if len(engine.StatusCalls) != tc.calls {
				t.Fatalf("expected %d status calls, got %d", tc.calls, len(engine.StatusCalls))
			}
		})
	}
}

func TestPollerMaxAttempts(t *testing.T) {
	engine := &testsupport.Engine{}
	p := newPoller(engine, transcription.PollerConfig{MaxAttempts: 4})

	_, err := p.Wait(context.Background(), types.JobHandle{JobName: "stuck"})
	if !errors.Is(err, types.ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if len(engine.StatusCalls) != 4 {
		t.Fatalf("expected exactly 4 status calls, got %d", len(engine.StatusCalls))
	}
}

func TestPollerDeadline(t *testing.T) {
	engine := &testsupport.Engine{}
	p := newPoller(engine, transcription.PollerConfig{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond})

	start := time.Now()
	_, err := p.Wait(context.Background(), types.JobHandle{JobName: "stuck"})
	if !errors.Is(err, types.ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("deadline not enforced, waited %s", elapsed)
	}
}

func TestPollerCancellation(t *testing.T) {
	engine := &testsupport.Engine{}
	p := newPoller(engine, transcription.PollerConfig{Interval: time.Hour, MaxAttempts: 100})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Wait(ctx, types.JobHandle{JobName: "cancelled"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, types.ErrPollTimeout) {
		t.Fatalf("cancellation must not be reported as a timeout")
	}
}

func TestPollerPropagatesStatusErrors(t *testing.T) {
	boom := errors.New("AccessDenied")
	engine := &testsupport.Engine{StatusErr: boom}
	p := newPoller(engine, transcription.PollerConfig{MaxAttempts: 3})

	_, err := p.Wait(context.Background(), types.JobHandle{JobName: "job"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected status error to propagate, got %v", err)
	}
	if len(engine.StatusCalls) != 1 {
		t.Fatalf("status errors must not be retried, got %d calls", len(engine.StatusCalls))
	}
}

func TestPollerCallerDeadlineIsNotPollTimeout(t *testing.T) {
	engine := &testsupport.Engine{}
	p := newPoller(engine, transcription.PollerConfig{Interval: 5 * time.Millisecond, Timeout: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx, types.JobHandle{JobName: "short-lived"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the caller's deadline, got %v", err)
	}
	if errors.Is(err, types.ErrPollTimeout) {
		t.Fatalf("a caller deadline must not be reported as a poll timeout: %v", err)
	}
}
