package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/queue"
	"github.com/codebuildervaibhav/transcript-extractor/internal/storage"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// JobQueue accepts extraction jobs and reports on them
type JobQueue interface {
	EnqueueJob(job *queue.Job) error
	Lookup(id string) (queue.Job, bool)
}

// TranscriptIndex lists the ledger of past extractions
type TranscriptIndex interface {
	GetTranscript(jobName string) (*types.TranscriptRecord, error)
	ListTranscripts(limit int) ([]types.TranscriptRecord, error)
}

// Deps wires the HTTP surface. Index and Logs may be nil.
type Deps struct {
	Queue       JobQueue
	Store       storage.ObjectStore
	Index       TranscriptIndex
	Logs        *logger.LogBuffer
	InputBucket string
	MaxSizeMB   int
	Log         *logger.Logger
}

// Register mounts every route on app
func Register(app *fiber.App, d Deps) {
	events := NewEventsHandler(d.Queue, d.Log)
	upload := NewUploadHandler(d.Queue, d.Store, d.InputBucket, d.MaxSizeMB, d.Log)
	jobs := NewJobsHandler(d.Queue)
	transcripts := NewTranscriptsHandler(d.Index, d.Store)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/events", events.Handle)
	app.Post("/upload", upload.Handle)
	app.Get("/jobs/:id", jobs.Get)
	app.Get("/transcripts", transcripts.List)
	app.Get("/transcripts/:id/text", transcripts.Text)

	app.Get("/logs", func(c *fiber.Ctx) error {
		var logs []string
		if d.Logs != nil {
			logs = d.Logs.GetLogs()
		}
		return c.JSON(fiber.Map{"logs": logs})
	})
}

func errorJSON(c *fiber.Ctx, status int, msg, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}
