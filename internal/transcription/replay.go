package transcription

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// ResultStore is the object access the replay engine needs
type ResultStore interface {
	Get(ctx context.Context, container, key string) ([]byte, error)
	Put(ctx context.Context, container, key string, body []byte) error
}

// ReplayEngine stands in for the managed engine when objects live on local
// disk. Each job "completes" by copying a prepared result document into the
// output container as <job name>.json, where the managed engine would have
// written it. The document is the upload's sidecar (same key, .json
// extension) when one exists, otherwise the configured fallback.
type ReplayEngine struct {
	store    ResultStore
	fallback []byte

	mu   sync.Mutex
	jobs map[string]types.JobHandle
}

// NewReplayEngine creates a replay engine writing through store. fallback may
// be nil, in which case uploads without a sidecar cannot be submitted.
func NewReplayEngine(store ResultStore, fallback []byte) *ReplayEngine {
	return &ReplayEngine{
		store:    store,
		fallback: fallback,
		jobs:     make(map[string]types.JobHandle),
	}
}

// SidecarKey is where a prepared result for sourceKey is looked up
func SidecarKey(sourceKey string) string {
	return replaceExt(sourceKey, ".json")
}

func (e *ReplayEngine) Start(ctx context.Context, req JobRequest) (types.JobHandle, error) {
	if req.OutputContainer == "" {
		return types.JobHandle{}, fmt.Errorf("start replay job %s: no output container", req.JobName)
	}

	doc, err := e.document(ctx, req.Source)
	if err != nil {
		return types.JobHandle{}, fmt.Errorf("start replay job %s: %w", req.JobName, err)
	}

	handle := types.JobHandle{JobName: req.JobName, Status: types.StatusCompleted}
	if _, err := ParseResult(doc); err != nil {
		handle.Status = types.StatusFailed
		handle.FailureReason = err.Error()
	} else {
		key := req.JobName + ".json"
		if err := e.store.Put(ctx, req.OutputContainer, key, doc); err != nil {
			return types.JobHandle{}, fmt.Errorf("start replay job %s: write result: %w", req.JobName, err)
		}
		handle.ResultURI = req.OutputContainer + "/" + key
	}

	e.mu.Lock()
	e.jobs[req.JobName] = handle
	e.mu.Unlock()

	return types.JobHandle{JobName: req.JobName, Status: types.StatusInProgress}, nil
}

func (e *ReplayEngine) document(ctx context.Context, src types.SourceRef) ([]byte, error) {
	if src.Bucket != "" && src.Key != "" {
		doc, err := e.store.Get(ctx, src.Bucket, SidecarKey(src.Key))
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("read sidecar result: %w", err)
		}
	}
	if len(e.fallback) == 0 {
		return nil, fmt.Errorf("no sidecar result for %s/%s and no fallback configured", src.Bucket, src.Key)
	}
	return e.fallback, nil
}

func (e *ReplayEngine) Status(ctx context.Context, jobName string) (types.JobHandle, error) {
	if err := ctx.Err(); err != nil {
		return types.JobHandle{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	handle, ok := e.jobs[jobName]
	if !ok {
		return types.JobHandle{}, fmt.Errorf("%w: replay job %s", types.ErrNotFound, jobName)
	}
	return handle, nil
}

var _ Engine = (*ReplayEngine)(nil)
