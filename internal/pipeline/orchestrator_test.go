package pipeline

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/notify"
	"github.com/codebuildervaibhav/transcript-extractor/internal/testsupport"
	"github.com/codebuildervaibhav/transcript-extractor/internal/transcription"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

const outputBucket = "extractedtextimage"

const rawResult = `{
  "jobName": "job",
  "status": "COMPLETED",
  "results": {
    "speaker_labels": {
      "speakers": 2,
      "segments": [
        {"speaker_label": "spk_0", "items": [{"start_time": "0.0"}, {"start_time": "0.5"}]},
        {"speaker_label": "spk_1", "items": [{"start_time": "1.0"}]}
      ]
    },
    "items": [
      {"start_time": "0.0", "type": "pronunciation", "alternatives": [{"content": "Hi"}]},
      {"start_time": "0.5", "type": "pronunciation", "alternatives": [{"content": "there"}]},
      {"type": "punctuation", "alternatives": [{"content": "."}]},
      {"start_time": "1.0", "type": "pronunciation", "alternatives": [{"content": "Hello"}]}
    ]
  }
}`

type fixture struct {
	engine    *testsupport.Engine
	store     *testsupport.Store
	publisher *testsupport.Publisher
	ledger    *testsupport.Ledger
	mirror    *testsupport.Mirror
	pollCfg   transcription.PollerConfig
	orch      *Orchestrator
}

func newFixture(t *testing.T, statuses ...types.JobStatus) *fixture {
	t.Helper()
	f := &fixture{
		store:     testsupport.NewStore(),
		publisher: &testsupport.Publisher{},
		ledger:    &testsupport.Ledger{},
		pollCfg:   transcription.PollerConfig{Interval: time.Millisecond, MaxAttempts: 20},
	}
	f.engine = &testsupport.Engine{
		Statuses:  statuses,
		ResultURI: "https://s3.amazonaws.com/" + outputBucket + "/result.json",
		OnComplete: func(jobName string) {
			if err := f.store.Put(context.Background(), outputBucket, jobName+".json", []byte(rawResult)); err != nil {
				t.Errorf("seed raw result: %v", err)
			}
		},
	}
	f.build(nil)
	return f
}

func (f *fixture) build(mirror Mirror) {
	log := logger.Nop()
	f.orch = New(Deps{
		Submitter: transcription.NewSubmitter(f.engine, transcription.SubmitterConfig{
			LanguageCode:    "en-US",
			OutputContainer: outputBucket,
			MaxSpeakers:     5,
		}, log),
		Poller:     transcription.NewPoller(f.engine, f.pollCfg, log),
		Reconciler: transcription.NewReconciler(transcription.ReconcilerOptions{}),
		Store:      f.store,
		Notifier:   notify.NewDispatcher(f.publisher, notify.Topics{Default: "arn:aws:sns:us-east-1:1:transcripts"}, log),
		Ledger:     f.ledger,
		Mirror:     mirror,
		Log:        log,
	}, outputBucket)
	f.orch.sleep = func(context.Context, time.Duration) error { return nil }
}

var src = types.SourceRef{Bucket: "uploads", Key: "team/Weekly Sync.mp4"}

func TestRunSuccess(t *testing.T) {
	f := newFixture(t, types.StatusQueued, types.StatusInProgress, types.StatusCompleted)

	resp := f.orch.Run(context.Background(), src)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	wantBody := "Transcription with speaker diarization successful! Transcription saved to team/Weekly Sync.txt"
	if resp.Body != wantBody {
		t.Fatalf("unexpected body %q", resp.Body)
	}

	got, err := f.store.Get(context.Background(), outputBucket, "team/Weekly Sync.txt")
	if err != nil {
		t.Fatalf("transcript not saved: %v", err)
	}
	if want := "**spk_0**:Hi there\n\n**spk_1**:Hello\n\n"; string(got) != want {
		t.Fatalf("unexpected transcript %q", got)
	}

	job := f.engine.LastJobName()
	if f.store.Has(outputBucket, job+".json") {
		t.Fatal("raw result should have been deleted")
	}

	wantStatuses := []string{"Upload Successful", "Extraction Completed"}
	if got := f.publisher.Statuses(); !reflect.DeepEqual(got, wantStatuses) {
		t.Fatalf("expected notifications %v, got %v", wantStatuses, got)
	}
	if p := f.publisher.Published[1].Payload; p.Bucket != outputBucket || p.JobID != src.Key {
		t.Fatalf("unexpected completion payload %+v", p)
	}

	if len(f.ledger.Submitted) != 1 || f.ledger.Submitted[0] != job {
		t.Fatalf("unexpected submitted %v", f.ledger.Submitted)
	}
	if len(f.ledger.Outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(f.ledger.Outcomes))
	}
	out := f.ledger.Outcomes[0]
	if out.Status != types.StatusCompleted || out.OutputBucket != outputBucket || out.OutputKey != "team/Weekly Sync.txt" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestRunSubmitError(t *testing.T) {
	f := newFixture(t)
	f.engine.StartErr = errors.New("LimitExceededException")

	resp := f.orch.Run(context.Background(), src)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Body, "Error starting transcription job: ") || !strings.Contains(resp.Body, "LimitExceededException") {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if len(f.engine.StatusCalls) != 0 {
		t.Fatalf("engine should not be polled after a submit error")
	}
	if got := f.publisher.Statuses(); !reflect.DeepEqual(got, []string{"Upload Successful"}) {
		t.Fatalf("expected only the upload notification, got %v", got)
	}
	if len(f.ledger.Submitted) != 0 || len(f.ledger.Outcomes) != 0 {
		t.Fatalf("ledger should be untouched, got %+v", f.ledger)
	}
}

func TestRunJobFailed(t *testing.T) {
	f := newFixture(t, types.StatusInProgress, types.StatusFailed)

	resp := f.orch.Run(context.Background(), src)
	if resp.StatusCode != http.StatusInternalServerError || resp.Body != "Transcription job failed." {
		t.Fatalf("unexpected response %+v", resp)
	}
	for key := range f.store.Objects {
		t.Fatalf("nothing should be written, found %s", key)
	}
	wantStatuses := []string{"Upload Successful", "Extraction Failed"}
	if got := f.publisher.Statuses(); !reflect.DeepEqual(got, wantStatuses) {
		t.Fatalf("expected notifications %v, got %v", wantStatuses, got)
	}
	if p := f.publisher.Published[1].Payload; p.Bucket != src.Bucket {
		t.Fatalf("failure notification should name the source bucket, got %+v", p)
	}
	if len(f.ledger.Outcomes) != 1 || f.ledger.Outcomes[0].Status != types.StatusFailed {
		t.Fatalf("expected FAILED outcome, got %+v", f.ledger.Outcomes)
	}
}

func TestRunPollTimeout(t *testing.T) {
	f := newFixture(t, types.StatusInProgress)

	resp := f.orch.Run(context.Background(), src)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Body, types.ErrPollTimeout.Error()) {
		t.Fatalf("expected poll timeout in body, got %q", resp.Body)
	}
	if got := f.publisher.Statuses(); !reflect.DeepEqual(got, []string{"Upload Successful", "Extraction Failed"}) {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestRunDeletionFailureStillSucceeds(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)
	f.store.DeleteErr = errors.New("AccessDenied")

	resp := f.orch.Run(context.Background(), src)
	if !resp.Succeeded() {
		t.Fatalf("deletion failure must not fail the run, got %+v", resp)
	}
	if !f.store.Has(outputBucket, "team/Weekly Sync.txt") {
		t.Fatal("transcript should be saved")
	}
	if len(f.store.Deleted) != 1 {
		t.Fatalf("expected one delete attempt, got %v", f.store.Deleted)
	}
}

func TestRunSaveFailure(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)
	seed := f.engine.OnComplete
	f.engine.OnComplete = func(jobName string) {
		seed(jobName)
		f.store.PutErr = errors.New("SlowDown")
	}

	resp := f.orch.Run(context.Background(), src)
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(resp.Body, "save transcript: SlowDown") {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !f.store.Has(outputBucket, f.engine.LastJobName()+".json") {
		t.Fatal("raw result must be kept when the transcript could not be saved")
	}
	if got := f.publisher.Statuses(); !reflect.DeepEqual(got, []string{"Upload Successful", "Extraction Failed"}) {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestRunMissingRawResult(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)
	f.engine.OnComplete = nil

	resp := f.orch.Run(context.Background(), src)
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(resp.Body, types.ErrNotFound.Error()) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRunNotificationFailuresAreIgnored(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)
	f.publisher.Err = errors.New("topic does not exist")

	if resp := f.orch.Run(context.Background(), src); !resp.Succeeded() {
		t.Fatalf("notification failures must not fail the run, got %+v", resp)
	}
}

func TestRunMirrorRetries(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)
	f.mirror = &testsupport.Mirror{FailTimes: 2}
	f.build(f.mirror)

	var slept []time.Duration
	f.orch.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if resp := f.orch.Run(context.Background(), src); !resp.Succeeded() {
		t.Fatalf("unexpected response %+v", resp)
	}
	if f.mirror.Calls != 3 || len(f.mirror.Names) != 1 || f.mirror.Names[0] != "team/Weekly Sync.txt" {
		t.Fatalf("unexpected mirror calls %+v", f.mirror)
	}
	if want := []time.Duration{time.Second, 4 * time.Second}; !reflect.DeepEqual(slept, want) {
		t.Fatalf("expected backoff %v, got %v", want, slept)
	}
}

func TestRunMirrorExhaustedIsNotFatal(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)
	f.mirror = &testsupport.Mirror{FailTimes: 10}
	f.build(f.mirror)

	if resp := f.orch.Run(context.Background(), src); !resp.Succeeded() {
		t.Fatalf("mirror failures must not fail the run, got %+v", resp)
	}
	if f.mirror.Calls != 3 {
		t.Fatalf("expected 3 mirror attempts, got %d", f.mirror.Calls)
	}
}

func TestRunMirrorStopsWhenContextEnds(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)
	f.mirror = &testsupport.Mirror{FailTimes: 10}
	f.build(f.mirror)
	f.orch.sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	if resp := f.orch.Run(context.Background(), src); !resp.Succeeded() {
		t.Fatalf("unexpected response %+v", resp)
	}
	if f.mirror.Calls != 1 {
		t.Fatalf("expected retries to stop after the first attempt, got %d calls", f.mirror.Calls)
	}
}

func TestRunFailureOutcomeSurvivesEndedContext(t *testing.T) {
	tests := []struct {
		name   string
		ctx    func() (context.Context, context.CancelFunc)
		expect error
	}{
		{
			name: "deadline",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 30*time.Millisecond)
			},
			expect: context.DeadlineExceeded,
		},
		{
			name: "cancelled",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				time.AfterFunc(30*time.Millisecond, cancel)
				return ctx, cancel
			},
			expect: context.Canceled,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, types.StatusInProgress)
			f.pollCfg = transcription.PollerConfig{Interval: 5 * time.Millisecond}
			f.build(nil)

			ctx, cancel := tc.ctx()
			defer cancel()

			resp := f.orch.Run(ctx, src)
			if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(resp.Body, tc.expect.Error()) {
				t.Fatalf("unexpected response %+v", resp)
			}
			want := []string{"Upload Successful", "Extraction Failed"}
			if got := f.publisher.Statuses(); !reflect.DeepEqual(got, want) {
				t.Fatalf("expected notifications %v, got %v (rejected %v)", want, got, f.publisher.Rejected)
			}
			if len(f.ledger.Outcomes) != 1 || f.ledger.Outcomes[0].Status != types.StatusFailed {
				t.Fatalf("expected FAILED outcome, got %+v", f.ledger.Outcomes)
			}
		})
	}
}

func TestRunJobReportsJobName(t *testing.T) {
	f := newFixture(t, types.StatusCompleted)

	var reported []string
	polledBefore := -1
	resp := f.orch.RunJob(context.Background(), src, func(jobName string) {
		reported = append(reported, jobName)
		polledBefore = len(f.engine.StatusCalls)
	})
	if !resp.Succeeded() {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(reported) != 1 || reported[0] != f.engine.LastJobName() {
		t.Fatalf("expected job name %q, got %v", f.engine.LastJobName(), reported)
	}
	if polledBefore != 0 {
		t.Fatalf("hook should fire before the first status query, saw %d", polledBefore)
	}
}
