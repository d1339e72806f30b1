package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/marcusvb/clipflow/internal/api/middleware"
	"github.com/marcusvb/clipflow/internal/api/response"
	"github.com/marcusvb/clipflow/internal/render"
	"github.com/marcusvb/clipflow/internal/shotstack"
	"github.com/marcusvb/clipflow/internal/store"
	"github.com/marcusvb/clipflow/pkg/models"
)

// StatusGetter defines the interface the status handler depends on.
type StatusGetter interface {
	GetStatus(ctx context.Context, userID uuid.UUID, jobID string) (*render.StatusResult, error)
}

// JobLister defines the interface the list handler depends on.
type JobLister interface {
	ListJobs(ctx context.Context, userID uuid.UUID, status string, page, limit int) ([]*models.RenderJob, int, error)
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/renders/{jobID}.
func NewStatusHandler(svc StatusGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		jobID := chi.URLParam(r, "jobID")
		if jobID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID is required", nil)
			return
		}

		result, err := svc.GetStatus(r.Context(), userID, jobID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND",
					"No render job with that id", nil)
			case errors.Is(err, shotstack.ErrRetriesExhausted),
				errors.Is(err, shotstack.ErrUnreachable),
				errors.Is(err, shotstack.ErrTimeout):
				response.Error(w, http.StatusBadGateway, "RENDER_ENGINE_UNAVAILABLE",
					"Could not reach the render engine; try again shortly", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, result)
	}
}

// NewListRendersHandler returns an http.HandlerFunc for GET /api/v1/renders.
func NewListRendersHandler(svc JobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		status := q.Get("status")

		jobs, total, err := svc.ListJobs(r.Context(), userID, status, page, limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		if page <= 0 {
			page = 1
		}
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		if jobs == nil {
			jobs = []*models.RenderJob{}
		}
		response.Collection(w, jobs, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}
