package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tanadol/reelforge/internal/batch"
	"github.com/tanadol/reelforge/internal/models"
	"github.com/tanadol/reelforge/internal/services"
	"github.com/tanadol/reelforge/internal/storage"
)

// ProjectStore reads persisted generation records. Nil when no database is
// configured; the project endpoints then answer 503.
type ProjectStore interface {
	GetProject(ctx context.Context, id uuid.UUID) (*models.VideoProject, error)
	ListProjects(ctx context.Context, videoType, status string, limit, offset int) ([]models.VideoProject, error)
	CountProjects(ctx context.Context, status string) (int, error)
}

// Signer issues time-limited download URLs. Nil when no object store is
// configured.
type Signer interface {
	SignedURL(ctx context.Context, objectPath string, expiresIn int) (string, error)
}

type Handler struct {
	scheduler *batch.Scheduler
	projects  ProjectStore
	signer    Signer
	themes    *services.StoicLibrary
	lofi      *services.LofiLibrary
}

func NewHandler(scheduler *batch.Scheduler, projects ProjectStore, signer Signer) *Handler {
	return &Handler{
		scheduler: scheduler,
		projects:  projects,
		signer:    signer,
		themes:    services.NewStoicLibrary(),
		lofi:      services.NewLofiLibrary(),
	}
}

// SubmitBatch handles POST /v1/batches
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.scheduler.Submit(req.Name, req.Items)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, models.SubmitBatchResponse{
		BatchID:    job.ID,
		Name:       job.Name,
		TotalItems: job.TotalItems,
		Status:     job.Status,
	})
}

// ListBatches handles GET /v1/batches
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"batches": h.scheduler.List(),
	})
}

// GetBatch handles GET /v1/batches/{id}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	job, ok := h.scheduler.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Batch not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// CancelBatch handles DELETE /v1/batches/{id}
func (h *Handler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	if _, ok := h.scheduler.Get(id); !ok {
		respondError(w, http.StatusNotFound, "Batch not found")
		return
	}
	if !h.scheduler.Cancel(id) {
		respondError(w, http.StatusConflict, "Only running batches can be cancelled")
		return
	}

	job, _ := h.scheduler.Get(id)
	respondJSON(w, http.StatusOK, job)
}

// ListProjects handles GET /v1/projects
// Query params:
//   - type:   filter by video type (motivation, lofi)
//   - status: filter by project status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	if h.projects == nil {
		respondError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	typeFilter := r.URL.Query().Get("type")
	if typeFilter != "" {
		switch models.VideoType(typeFilter) {
		case models.VideoTypeMotivation, models.VideoTypeLofi:
		default:
			respondError(w, http.StatusBadRequest, "Invalid type filter. Allowed: motivation, lofi")
			return
		}
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.ProjectStatus(statusFilter) {
		case models.ProjectStatusInitializing, models.ProjectStatusGeneratingContent,
			models.ProjectStatusAcquiringMedia, models.ProjectStatusProcessingAudio,
			models.ProjectStatusComposingVideo, models.ProjectStatusUploading,
			models.ProjectStatusCompleted, models.ProjectStatusFailed:
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.projects.CountProjects(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count projects")
		return
	}

	projects, err := h.projects.ListProjects(r.Context(), typeFilter, statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetProject handles GET /v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	if h.projects == nil {
		respondError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// GetProjectDownload handles GET /v1/projects/{id}/download
func (h *Handler) GetProjectDownload(w http.ResponseWriter, r *http.Request) {
	if h.projects == nil {
		respondError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}
	if project.Status != models.ProjectStatusCompleted || project.VideoURL == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	if h.signer == nil {
		http.Redirect(w, r, *project.VideoURL, http.StatusTemporaryRedirect)
		return
	}

	// Signed URL valid for 1 hour
	signedURL, err := h.signer.SignedURL(r.Context(), storage.VideoPath(id), 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}
	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// ListThemes handles GET /v1/presets/themes
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"themes": h.themes.Themes(),
	})
}

// ListCategories handles GET /v1/presets/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"categories": h.lofi.Categories(),
	})
}

// SchedulerStats handles GET /v1/stats
func (h *Handler) SchedulerStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.Stats())
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
