package handlers

import (
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-extractor/internal/queue"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// EventsHandler accepts storage upload notifications over HTTP
type EventsHandler struct {
	queue JobQueue
	log   *logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(q JobQueue, log *logger.Logger) *EventsHandler {
	return &EventsHandler{
		queue: q,
		log:   log.With("handler", "events"),
	}
}

// Handle enqueues one job per record of an S3 event notification
func (h *EventsHandler) Handle(c *fiber.Ctx) error {
	var evt events.S3Event
	if err := c.BodyParser(&evt); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid event body", "ERR_INVALID_BODY")
	}
	if len(evt.Records) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Event has no records", "ERR_NO_RECORDS")
	}

	sources := make([]types.SourceRef, 0, len(evt.Records))
	for _, rec := range evt.Records {
		src, err := pipeline.SourceFromRecord(rec)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err.Error(), "ERR_INVALID_EVENT")
		}
		sources = append(sources, src)
	}

	jobIDs := make([]string, 0, len(sources))
	for _, src := range sources {
		job := queue.NewJob(uuid.New().String(), types.SourceEvent, src)
		if err := h.queue.EnqueueJob(job); err != nil {
			h.log.Error("failed to enqueue event job", "bucket", src.Bucket, "key", src.Key, "error", err)
			if errors.Is(err, queue.ErrQueueFull) {
				return errorJSON(c, fiber.StatusServiceUnavailable, "Job queue is full", "ERR_QUEUE_FULL")
			}
			return errorJSON(c, fiber.StatusServiceUnavailable, "Not accepting jobs", "ERR_UNAVAILABLE")
		}
		jobIDs = append(jobIDs, job.ID)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_ids": jobIDs,
		"status":  "queued",
	})
}
