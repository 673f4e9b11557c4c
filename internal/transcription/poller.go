package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// PollerConfig bounds the wait for a terminal job status. At least one of
// MaxAttempts or Timeout should be set; zero disables that bound.
type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

// Poller queries job status at a fixed interval until the job is terminal
type Poller struct {
	engine Engine
	cfg    PollerConfig
	log    *logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a new job poller
func NewPoller(engine Engine, cfg PollerConfig, log *logger.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &Poller{
		engine: engine,
		cfg:    cfg,
		log:    log.With("component", "poller"),
		sleep:  sleepCtx,
	}
}

// Wait blocks until the job reaches COMPLETED or FAILED. It returns an error
// wrapping types.ErrPollTimeout once the attempt or time budget is spent,
// the context error when ctx ends, or the status query's own error.
func (p *Poller) Wait(ctx context.Context, handle types.JobHandle) (types.JobHandle, error) {
	parent := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		current, err := p.engine.Status(ctx, handle.JobName)
		if err != nil {
			if p.ownDeadline(parent, ctx) {
				return handle, fmt.Errorf("%w: job %s not terminal after %s", types.ErrPollTimeout, handle.JobName, p.cfg.Timeout)
			}
			return handle, fmt.Errorf("status query for job %s: %w", handle.JobName, err)
		}
		if current.JobName == "" {
			current.JobName = handle.JobName
		}
		handle = current

		if handle.Status.Terminal() {
			p.log.Info("transcription job reached terminal state",
				"job", handle.JobName, "status", handle.Status, "attempts", attempt)
			return handle, nil
		}

		if p.cfg.MaxAttempts > 0 && attempt >= p.cfg.MaxAttempts {
			return handle, fmt.Errorf("%w: job %s still %s after %d attempts",
				types.ErrPollTimeout, handle.JobName, handle.Status, attempt)
		}

		p.log.Debug("transcription in progress", "job", handle.JobName, "status", handle.Status, "attempt", attempt)
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			if p.ownDeadline(parent, ctx) {
				return handle, fmt.Errorf("%w: job %s still %s after %s",
					types.ErrPollTimeout, handle.JobName, handle.Status, p.cfg.Timeout)
			}
			return handle, err
		}
	}
}

// ownDeadline reports whether ctx ended because the poll timeout expired
// rather than because the caller's context ended first
func (p *Poller) ownDeadline(parent, ctx context.Context) bool {
	return p.cfg.Timeout > 0 && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
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
