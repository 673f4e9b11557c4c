package handlers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/queue"
	"github.com/codebuildervaibhav/transcript-extractor/internal/storage"
	"github.com/codebuildervaibhav/transcript-extractor/internal/transcription"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	queue       JobQueue
	store       storage.ObjectStore
	inputBucket string
	maxSizeMB   int
	log         *logger.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(q JobQueue, store storage.ObjectStore, inputBucket string, maxSizeMB int, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		queue:       q,
		store:       store,
		inputBucket: inputBucket,
		maxSizeMB:   maxSizeMB,
		log:         log.With("handler", "upload"),
	}
}

// Handle stores the uploaded media in the input bucket and queues its extraction
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "No file uploaded", "ERR_NO_FILE")
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	if !transcription.ValidateAudioFormat(file.Filename) {
		return errorJSON(c, fiber.StatusBadRequest, "Unsupported audio format", "ERR_INVALID_FORMAT")
	}

	f, err := file.Open()
	if err != nil {
		h.log.Error("failed to open uploaded file", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to read file", "ERR_SAVE_FAILED")
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		h.log.Error("failed to read uploaded file", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to read file", "ERR_SAVE_FAILED")
	}

	jobID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(file.Filename))
	src := types.SourceRef{Bucket: h.inputBucket, Key: "uploads/" + jobID + ext}

	if err := h.store.Put(c.UserContext(), src.Bucket, src.Key, body); err != nil {
		h.log.Error("failed to store uploaded file", "bucket", src.Bucket, "key", src.Key, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to save file", "ERR_SAVE_FAILED")
	}

	job := queue.NewJob(jobID, types.SourceUpload, src)
	if err := h.queue.EnqueueJob(job); err != nil {
		h.log.Error("failed to enqueue upload job", "job_id", jobID, "error", err)
		if errors.Is(err, queue.ErrQueueFull) {
			return errorJSON(c, fiber.StatusServiceUnavailable, "Job queue is full", "ERR_QUEUE_FULL")
		}
		return errorJSON(c, fiber.StatusServiceUnavailable, "Not accepting jobs", "ERR_UNAVAILABLE")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  jobID,
		"status":  "queued",
		"bucket":  src.Bucket,
		"key":     src.Key,
		"message": "File uploaded successfully, processing started",
	})
}
