package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/transcript-extractor/internal/storage"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// JobsHandler reports queued job state
type JobsHandler struct {
	queue JobQueue
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(q JobQueue) *JobsHandler {
	return &JobsHandler{queue: q}
}

// Get returns one job snapshot
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	job, ok := h.queue.Lookup(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "Job not found", "ERR_NOT_FOUND")
	}
	return c.JSON(job)
}

// TranscriptsHandler serves the extraction ledger and the saved transcripts
type TranscriptsHandler struct {
	index TranscriptIndex
	store storage.ObjectStore
}

// NewTranscriptsHandler creates a new transcripts handler
func NewTranscriptsHandler(index TranscriptIndex, store storage.ObjectStore) *TranscriptsHandler {
	return &TranscriptsHandler{index: index, store: store}
}

// List returns the newest ledger rows, capped by ?limit (default 50)
func (h *TranscriptsHandler) List(c *fiber.Ctx) error {
	if h.index == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "Transcript index disabled", "ERR_NO_INDEX")
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	transcripts, err := h.index.ListTranscripts(limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_INDEX")
	}
	return c.JSON(transcripts)
}

// Text returns a finished transcript document by job name
func (h *TranscriptsHandler) Text(c *fiber.Ctx) error {
	if h.index == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "Transcript index disabled", "ERR_NO_INDEX")
	}
	rec, err := h.index.GetTranscript(c.Params("id"))
	if errors.Is(err, types.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Transcript not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_INDEX")
	}
	if rec.Status != types.StatusCompleted || rec.OutputKey == "" {
		return errorJSON(c, fiber.StatusNotFound, "Transcript file not available", "ERR_NOT_FOUND")
	}

	content, err := h.store.Get(c.UserContext(), rec.OutputBucket, rec.OutputKey)
	if errors.Is(err, types.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Transcript file not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to read transcript file", "ERR_READ_FAILED")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(content)
}
