// Package testsupport provides hand-written fakes for the pipeline's external
// collaborators. Every fake records its calls under a mutex and returns the
// configured error fields, so tests can assert on both sides of a call.
package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/codebuildervaibhav/transcript-extractor/internal/notify"
	"github.com/codebuildervaibhav/transcript-extractor/internal/storage"
	"github.com/codebuildervaibhav/transcript-extractor/internal/transcription"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// Engine is a fake transcription engine. Successive Status calls walk
// Statuses; the last entry repeats once the list is exhausted.
type Engine struct {
	mu sync.Mutex

	StartErr  error
	StatusErr error
	Statuses  []types.JobStatus
	ResultURI string

	// OnComplete, when set, runs the first time a Status call reports
	// COMPLETED; tests use it to seed the raw result under the job name.
	OnComplete func(jobName string)

	completed   bool
	StartCalls  []transcription.JobRequest
	StatusCalls []string
}

func (e *Engine) Start(ctx context.Context, req transcription.JobRequest) (types.JobHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StartCalls = append(e.StartCalls, req)
	if e.StartErr != nil {
		return types.JobHandle{}, e.StartErr
	}
	return types.JobHandle{JobName: req.JobName, Status: types.StatusInProgress}, nil
}

func (e *Engine) Status(ctx context.Context, jobName string) (types.JobHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StatusCalls = append(e.StatusCalls, jobName)
	if e.StatusErr != nil {
		return types.JobHandle{}, e.StatusErr
	}
	if err := ctx.Err(); err != nil {
		return types.JobHandle{}, err
	}
	status := types.StatusInProgress
	if n := len(e.Statuses); n > 0 {
		i := len(e.StatusCalls) - 1
		if i >= n {
			i = n - 1
		}
		status = e.Statuses[i]
	}
	handle := types.JobHandle{JobName: jobName, Status: status}
	if status == types.StatusCompleted {
		handle.ResultURI = e.ResultURI
		if e.OnComplete != nil && !e.completed {
			e.OnComplete(jobName)
		}
		e.completed = true
	}
	return handle, nil
}

// LastJobName returns the job name of the most recent Start call
func (e *Engine) LastJobName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.StartCalls) == 0 {
		return ""
	}
	return e.StartCalls[len(e.StartCalls)-1].JobName
}

var _ transcription.Engine = (*Engine)(nil)

// Store is an in-memory object store
type Store struct {
	mu sync.Mutex

	Objects   map[string][]byte
	PutErr    error
	DeleteErr error

	Deleted []string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{Objects: map[string][]byte{}}
}

func objectKey(container, key string) string {
	return container + "/" + key
}

func (s *Store) Get(ctx context.Context, container, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.Objects[objectKey(container, key)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", types.ErrNotFound, container, key)
	}
	return append([]byte(nil), body...), nil
}

func (s *Store) Put(ctx context.Context, container, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.Objects[objectKey(container, key)] = append([]byte(nil), body...)
	return nil
}

func (s *Store) Delete(ctx context.Context, container, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, objectKey(container, key))
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.Objects, objectKey(container, key))
	return nil
}

// Has reports whether an object exists
func (s *Store) Has(container, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[objectKey(container, key)]
	return ok
}

var _ storage.ObjectStore = (*Store)(nil)

// Published is one recorded notification
type Published struct {
	Topic   string
	Subject string
	Payload notify.Payload
}

// Publisher records notifications. Like a network client it rejects a
// context that has already ended, and then records nothing.
type Publisher struct {
	mu sync.Mutex

	Err       error
	Published []Published
	Rejected  []error
}

func (p *Publisher) Publish(ctx context.Context, topic, subject string, payload notify.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		p.Rejected = append(p.Rejected, err)
		return err
	}
	p.Published = append(p.Published, Published{Topic: topic, Subject: subject, Payload: payload})
	return p.Err
}

// Statuses returns the payload statuses in publish order
func (p *Publisher) Statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Published))
	for i, pub := range p.Published {
		out[i] = pub.Payload.Status
	}
	return out
}

var _ notify.Publisher = (*Publisher)(nil)

// Outcome is one recorded ledger outcome
type Outcome struct {
	JobName      string
	Status       types.JobStatus
	OutputBucket string
	OutputKey    string
	Message      string
}

// Ledger records job bookkeeping calls
type Ledger struct {
	mu sync.Mutex

	Err       error
	Submitted []string
	Outcomes  []Outcome
}

func (l *Ledger) RecordSubmitted(jobName string, src types.SourceRef) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Submitted = append(l.Submitted, jobName)
	return l.Err
}

func (l *Ledger) RecordOutcome(jobName string, status types.JobStatus, outputBucket, outputKey, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Outcomes = append(l.Outcomes, Outcome{
		JobName:      jobName,
		Status:       status,
		OutputBucket: outputBucket,
		OutputKey:    outputKey,
		Message:      message,
	})
	return l.Err
}

// Mirror records mirrored transcripts, failing the first FailTimes calls
type Mirror struct {
	mu sync.Mutex

	FailTimes int
	Calls     int
	Names     []string
}

func (m *Mirror) Mirror(ctx context.Context, name, transcript string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Calls <= m.FailTimes {
		return "", fmt.Errorf("mirror attempt %d failed", m.Calls)
	}
	m.Names = append(m.Names, name)
	return "https://drive.example/" + name, nil
}
