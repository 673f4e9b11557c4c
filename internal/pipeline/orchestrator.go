package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/notify"
	"github.com/codebuildervaibhav/transcript-extractor/internal/storage"
	"github.com/codebuildervaibhav/transcript-extractor/internal/transcription"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// State is a step of one invocation
type State string

const (
	StateSubmitting  State = "SUBMITTING"
	StatePolling     State = "POLLING"
	StateExtracting  State = "EXTRACTING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
	StateSubmitError State = "SUBMIT_ERROR"
)

const jobFailedMessage = "Transcription job failed."

// terminalTimeout bounds the outcome notification and ledger write, which run
// even after the invocation's context has ended
const terminalTimeout = 10 * time.Second

// Notifier publishes lifecycle events
type Notifier interface {
	Notify(ctx context.Context, event notify.Event, bucket, jobID string)
}

// Ledger records job bookkeeping. Failures are logged, never fatal.
type Ledger interface {
	RecordSubmitted(jobName string, src types.SourceRef) error
	RecordOutcome(jobName string, status types.JobStatus, outputBucket, outputKey, message string) error
}

// Mirror copies a finished transcript to a secondary destination
type Mirror interface {
	Mirror(ctx context.Context, name, transcript string) (string, error)
}

// Deps are the collaborators of an Orchestrator. Ledger and Mirror are optional.
type Deps struct {
	Submitter  *transcription.Submitter
	Poller     *transcription.Poller
	Reconciler *transcription.Reconciler
	Store      storage.ObjectStore
	Notifier   Notifier
	Ledger     Ledger
	Mirror     Mirror
	Log        *logger.Logger
}

// Orchestrator drives one upload from submission to a stored transcript
type Orchestrator struct {
	submitter      *transcription.Submitter
	poller         *transcription.Poller
	reconciler     *transcription.Reconciler
	store          storage.ObjectStore
	notifier       Notifier
	ledger         Ledger
	mirror         Mirror
	outputBucket   string
	mirrorAttempts int
	log            *logger.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator writing transcripts to outputBucket, the same
// container the engine writes its raw results to.
func New(deps Deps, outputBucket string) *Orchestrator {
	return &Orchestrator{
		submitter:      deps.Submitter,
		poller:         deps.Poller,
		reconciler:     deps.Reconciler,
		store:          deps.Store,
		notifier:       deps.Notifier,
		ledger:         deps.Ledger,
		mirror:         deps.Mirror,
		outputBucket:   outputBucket,
		mirrorAttempts: 3,
		log:            deps.Log.With("component", "orchestrator"),
		sleep:          sleepCtx,
	}
}

// Run processes one uploaded object and returns the response for the trigger source
func (o *Orchestrator) Run(ctx context.Context, src types.SourceRef) types.Response {
	return o.RunJob(ctx, src, nil)
}

// RunJob is Run with a hook called once the engine has accepted the job,
// before polling starts
func (o *Orchestrator) RunJob(ctx context.Context, src types.SourceRef, onSubmitted func(jobName string)) types.Response {
	log := o.log.With("bucket", src.Bucket, "key", src.Key)

	o.notifier.Notify(ctx, notify.EventUploadReceived, src.Bucket, src.Key)

	log.Info("state", "state", StateSubmitting)
	handle, err := o.submitter.Submit(ctx, src)
	if err != nil {
		log.Error("error starting transcription job", "state", StateSubmitError, "error", err)
		return types.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       fmt.Sprintf("Error starting transcription job: %v", err),
		}
	}
	log = log.With("job", handle.JobName)
	o.recordSubmitted(log, handle.JobName, src)
	if onSubmitted != nil {
		onSubmitted(handle.JobName)
	}

	log.Info("state", "state", StatePolling)
	handle, err = o.poller.Wait(ctx, handle)
	if err != nil {
		return o.fail(ctx, log, src, handle.JobName, fmt.Sprintf("Error waiting for transcription job: %v", err), err)
	}

	if handle.Status != types.StatusCompleted {
		log.Warn("transcription job failed", "reason", handle.FailureReason)
		return o.fail(ctx, log, src, handle.JobName, jobFailedMessage, types.ErrJobFailed)
	}

	log.Info("state", "state", StateExtracting, "result_uri", handle.ResultURI)
	outputKey, err := o.extract(ctx, log, src, handle.JobName)
	if err != nil {
		return o.fail(ctx, log, src, handle.JobName, fmt.Sprintf("Error extracting transcript: %v", err), err)
	}

	tctx, cancel := terminalContext(ctx)
	defer cancel()
	o.notifier.Notify(tctx, notify.EventExtractionCompleted, o.outputBucket, src.Key)
	msg := fmt.Sprintf("Transcription with speaker diarization successful! Transcription saved to %s", outputKey)
	o.recordOutcome(log, handle.JobName, types.StatusCompleted, outputKey, msg)
	log.Info("state", "state", StateDone, "output_key", outputKey)

	return types.Response{StatusCode: http.StatusOK, Body: msg}
}

// extract turns the raw engine result into the saved transcript and purges
// the raw result. It returns the transcript's key.
func (o *Orchestrator) extract(ctx context.Context, log *logger.Logger, src types.SourceRef, jobName string) (string, error) {
	rawKey := jobName + ".json"

	data, err := o.store.Get(ctx, o.outputBucket, rawKey)
	if err != nil {
		return "", fmt.Errorf("fetch raw result: %w", err)
	}
	raw, err := transcription.ParseResult(data)
	if err != nil {
		return "", err
	}

	turns := o.reconciler.ReconcileResult(raw)
	transcript := transcription.FormatTranscript(turns)

	outputKey := transcription.TranscriptKey(src.Key)
	if err := o.store.Put(ctx, o.outputBucket, outputKey, []byte(transcript)); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	log.Info("transcript saved", "output_key", outputKey, "turns", len(turns))

	if err := o.store.Delete(ctx, o.outputBucket, rawKey); err != nil {
		log.Warn("error deleting raw result", "raw_key", rawKey, "error", fmt.Errorf("%w: %v", types.ErrDeletion, err))
	} else {
		log.Info("deleted temporary file", "raw_key", rawKey)
	}

	o.mirrorTranscript(ctx, log, outputKey, transcript)
	return outputKey, nil
}

// mirrorTranscript retries the optional mirror with quadratic backoff
func (o *Orchestrator) mirrorTranscript(ctx context.Context, log *logger.Logger, name, transcript string) {
	if o.mirror == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= o.mirrorAttempts; attempt++ {
		var url string
		url, err = o.mirror.Mirror(ctx, name, transcript)
		if err == nil {
			log.Info("transcript mirrored", "url", url)
			return
		}
		log.Warn("mirror attempt failed", "attempt", attempt, "max_attempts", o.mirrorAttempts, "error", err)
		if attempt < o.mirrorAttempts {
			if serr := o.sleep(ctx, time.Duration(attempt*attempt)*time.Second); serr != nil {
				log.Warn("mirror retries abandoned", "error", serr)
				return
			}
		}
	}
	log.Warn("mirror failed, transcript kept in primary store only", "error", err)
}

func (o *Orchestrator) fail(ctx context.Context, log *logger.Logger, src types.SourceRef, jobName, msg string, cause error) types.Response {
	log.Error("transcription failed", "state", StateFailed, "error", cause)
	tctx, cancel := terminalContext(ctx)
	defer cancel()
	o.notifier.Notify(tctx, notify.EventExtractionFailed, src.Bucket, src.Key)
	o.recordOutcome(log, jobName, types.StatusFailed, "", msg)
	return types.Response{StatusCode: http.StatusInternalServerError, Body: msg}
}

func (o *Orchestrator) recordSubmitted(log *logger.Logger, jobName string, src types.SourceRef) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.RecordSubmitted(jobName, src); err != nil {
		log.Warn("failed to record submitted job", "error", err)
	}
}

func (o *Orchestrator) recordOutcome(log *logger.Logger, jobName string, status types.JobStatus, outputKey, msg string) {
	if o.ledger == nil {
		return
	}
	bucket := ""
	if outputKey != "" {
		bucket = o.outputBucket
	}
	if err := o.ledger.RecordOutcome(jobName, status, bucket, outputKey, msg); err != nil && !errors.Is(err, types.ErrNotFound) {
		log.Warn("failed to record job outcome", "error", err)
	}
}

// terminalContext keeps the caller's values but not its cancellation, so the
// outcome still goes out when the invocation was cancelled or timed out
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalTimeout)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
