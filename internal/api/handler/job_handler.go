package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/rankbot/internal/api/dto"
	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/cuongbtq/rankbot/internal/tracker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SubmitJob handles POST /api/v1/jobs
// Queues a keyword lookup whose reply goes to the given chat
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	action, err := domain.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "action must be one of: rank, intent",
		})
		return
	}

	// rejected here so the chat never sees a usage reply for an API mistake
	if strings.TrimSpace(req.Keyword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "keyword is required",
		})
		return
	}

	target := domain.ReplyTarget{ChatID: req.ChatID, MessageID: req.MessageID}
	job, err := h.intake.SubmitKeyword(c.Request.Context(), target, action, req.Keyword)
	if err != nil {
		h.logger.Error("Failed to submit job",
			slog.Int64("chat_id", req.ChatID),
			slog.String("error", err.Error()),
		)

		status := http.StatusServiceUnavailable
		if errors.Is(err, domain.ErrDeliveryFailed) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error": "Failed to submit job",
		})
		return
	}

	c.JSON(http.StatusAccepted, toJobDTO(tracker.Record{
		Job:       *job,
		Status:    domain.JobStatusQueued,
		UpdatedAt: job.CreatedAt,
	}))
}

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves the tracked state of a recent job
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	rec, err := h.jobs.Get(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, toJobDTO(rec))
}

// ListJobs handles GET /api/v1/jobs
// Lists recent jobs newest first with optional filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	filter := tracker.Filter{
		ChatID: req.ChatID,
		Limit:  req.PageSize + 1,
	}

	if req.Status != "" {
		filter.Status = strings.ToUpper(req.Status)
		if !validStatus(filter.Status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid status",
			})
			return
		}
	}

	if req.Action != "" {
		action, err := domain.ParseAction(req.Action)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid action",
			})
			return
		}
		filter.Action = action
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}
	filter.Before = cursor

	records := h.jobs.List(filter)

	hasMore := len(records) > req.PageSize
	if hasMore {
		records = records[:req.PageSize]
	}

	jobs := make([]dto.JobDTO, len(records))
	for i, rec := range records {
		jobs[i] = toJobDTO(rec)
	}

	var nextCursor string
	if hasMore {
		nextCursor = EncodeJobCursor(records[len(records)-1])
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobs,
		NextCursor: nextCursor,
	})
}

// Stats handles GET /api/v1/stats
func (h *JobHandler) Stats(c *gin.Context) {
	stats := h.jobs.Stats()

	resp := dto.StatsResponse{
		QueueBackend: h.queue.Backend(),
		Queued:       stats.Queued,
		Processing:   stats.Processing,
		Delivered:    stats.Delivered,
		Failed:       stats.Failed,
		Tracked:      stats.Tracked,
	}

	if n, err := h.queue.Len(c.Request.Context()); err != nil {
		h.logger.Warn("Failed to read queue length", slog.String("error", err.Error()))
	} else {
		resp.QueueLength = &n
	}

	c.JSON(http.StatusOK, resp)
}

func validStatus(status string) bool {
	switch status {
	case domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusDelivered, domain.JobStatusFailed:
		return true
	}
	return false
}

func toJobDTO(rec tracker.Record) dto.JobDTO {
	return dto.JobDTO{
		JobID:     rec.Job.ID,
		ChatID:    rec.Job.Target.ChatID,
		MessageID: rec.Job.Target.MessageID,
		Action:    string(rec.Job.Action),
		Keyword:   rec.Job.Keyword,
		Status:    rec.Status,
		Error:     rec.Error,
		CreatedAt: rec.Job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
}
