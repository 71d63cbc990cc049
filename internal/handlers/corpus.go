package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"medichat-backend/internal/middleware"
	"medichat-backend/internal/models"
	"medichat-backend/internal/repository"
)

const corpusImportQueue = "queue:corpus-import"

type CorpusHandler struct {
	jobRepo *repository.JobRepo
	queue   *redis.Client
}

func NewCorpusHandler(jobRepo *repository.JobRepo, queue *redis.Client) *CorpusHandler {
	return &CorpusHandler{jobRepo: jobRepo, queue: queue}
}

type importRequest struct {
	Path string `json:"path"`
}

// Import enqueues a corpus-import job for the worker pool. Progress is
// published to the session's WebSocket channel.
func (h *CorpusHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Path is required", r))
		return
	}

	config, _ := json.Marshal(models.CorpusImportConfig{Path: req.Path})
	job := &models.Job{
		SessionID:  middleware.GetSessionID(r.Context()),
		Type:       "corpus-import",
		ConfigJSON: config,
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	payload, _ := json.Marshal(job)
	if err := h.queue.RPush(r.Context(), corpusImportQueue, payload).Err(); err != nil {
		h.jobRepo.MarkFailed(r.Context(), job.ID, "failed to enqueue job")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID.String(),
		"status": job.Status,
	})
}

// GetJob returns the status of a corpus-import job owned by this session.
func (h *CorpusHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), jobID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load job", r))
		return
	}
	if job == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	if job.SessionID != middleware.GetSessionID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}
