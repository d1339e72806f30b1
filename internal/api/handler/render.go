// Package handler contains the HTTP handlers for the ClipFlow API. Each
// handler is constructed from the narrow service interface it needs, so
// tests can substitute mocks without touching the real pipeline.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	mw "github.com/marcusvb/clipflow/internal/api/middleware"
	"github.com/marcusvb/clipflow/internal/api/response"
	"github.com/marcusvb/clipflow/internal/render"
	"github.com/marcusvb/clipflow/internal/shotstack"
	"github.com/marcusvb/clipflow/pkg/timeline"
)

// RenderSubmitter defines the interface the render handler depends on.
type RenderSubmitter interface {
	BuildAndSubmit(ctx context.Context, userID uuid.UUID, req render.SubmitRequest) (*render.SubmitResult, error)
}

// NewRenderHandler returns an http.HandlerFunc for POST /api/v1/renders.
func NewRenderHandler(svc RenderSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			VideoURLs        []string `json:"videoUrls"`
			OutputFormat     string   `json:"outputFormat"`
			OutputResolution string   `json:"outputResolution"`
			Title            string   `json:"title"`
			Transition       string   `json:"transition"`
			SoundtrackURL    string   `json:"soundtrackUrl"`
			ProjectName      string   `json:"projectName"`

			Template *struct {
				ID          string            `json:"id"`
				MergeFields map[string]string `json:"mergeFields"`
				Options     templateOptions   `json:"options"`
			} `json:"template"`

			Edit *timeline.Edit `json:"edit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		// Guard before invoking the pipeline: the common failure mode is a
		// request with no content at all, which deserves a hint, not a 500.
		if len(req.VideoURLs) == 0 && req.Template == nil && req.Edit == nil {
			response.Error(w, http.StatusBadRequest, "NO_CONTENT",
				"No content provided",
				map[string]string{"suggestion": "Supply videoUrls, a template, or a complete edit"})
			return
		}

		submitReq := render.SubmitRequest{
			VideoURLs:        req.VideoURLs,
			OutputFormat:     req.OutputFormat,
			OutputResolution: req.OutputResolution,
			Title:            req.Title,
			Transition:       req.Transition,
			SoundtrackURL:    req.SoundtrackURL,
			ProjectName:      req.ProjectName,
			Edit:             req.Edit,
		}
		if req.Template != nil {
			submitReq.Template = &render.TemplateRequest{
				ID:          req.Template.ID,
				MergeFields: req.Template.MergeFields,
				Options:     req.Template.Options.toTimeline(),
			}
		}

		result, err := svc.BuildAndSubmit(r.Context(), userID, submitReq)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		response.Accepted(w, map[string]any{
			"job_id":             result.JobID,
			"estimated_duration": result.EstimatedDuration,
			"edit_type":          result.EditType,
		})
	}
}

// templateOptions is the wire shape of template-mode options.
type templateOptions struct {
	ImageURLs       []string `json:"imageUrls"`
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	Music           string   `json:"music"`
	AspectRatio     string   `json:"aspectRatio"`
	Platform        string   `json:"platform"`
	TextStyle       string   `json:"textStyle"`
	TextColor       string   `json:"textColor"`
	BackgroundColor string   `json:"backgroundColor"`
	ImageDuration   float64  `json:"imageDuration"`
	Transition      string   `json:"transition"`
}

func (o templateOptions) toTimeline() timeline.TemplateOptions {
	return timeline.TemplateOptions{
		ImageURLs:       o.ImageURLs,
		Title:           o.Title,
		Subtitle:        o.Subtitle,
		Music:           o.Music,
		AspectRatio:     o.AspectRatio,
		Platform:        o.Platform,
		TextStyle:       o.TextStyle,
		TextColor:       o.TextColor,
		BackgroundColor: o.BackgroundColor,
		ImageDuration:   o.ImageDuration,
		Transition:      o.Transition,
	}
}

// writeSubmitError maps pipeline errors onto HTTP responses. Input and
// validation problems carry a suggestion the user can act on; engine
// problems surface as upstream failures.
func writeSubmitError(w http.ResponseWriter, err error) {
	var clipErr *timeline.InvalidClipError

	switch {
	case errors.Is(err, render.ErrNoContent):
		response.Error(w, http.StatusBadRequest, "NO_CONTENT", err.Error(),
			map[string]string{"suggestion": "Supply videoUrls, a template, or a complete edit"})

	case errors.Is(err, render.ErrNoTemplateContent):
		response.Error(w, http.StatusBadRequest, "NO_TEMPLATE_CONTENT", err.Error(),
			map[string]string{"suggestion": "Add imageUrls, a title, or a subtitle to the template options"})

	case errors.Is(err, timeline.ErrMissingTimeline):
		response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			"The edit has no timeline",
			map[string]string{"suggestion": "Include a timeline with at least one track of clips"})

	case errors.Is(err, timeline.ErrNoValidTracks):
		response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(),
			map[string]string{"suggestion": "Every track needs at least one clip with a valid asset"})

	case errors.As(err, &clipErr):
		response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", clipErr.Error(),
			map[string]string{"suggestion": "Each clip needs a typed asset, start >= 0, and length > 0"})

	case errors.Is(err, shotstack.ErrInvalidEdit):
		response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)

	case errors.Is(err, shotstack.ErrNoJobID):
		response.Error(w, http.StatusBadGateway, "RENDER_ENGINE_ERROR",
			"The render engine accepted the request but returned no job id", nil)

	case errors.Is(err, shotstack.ErrRetriesExhausted),
		errors.Is(err, shotstack.ErrUnreachable),
		errors.Is(err, shotstack.ErrTimeout):
		response.Error(w, http.StatusBadGateway, "RENDER_ENGINE_UNAVAILABLE",
			"The render engine is temporarily unavailable; try again shortly", nil)

	default:
		var statusErr *shotstack.StatusError
		if errors.As(err, &statusErr) {
			response.Error(w, http.StatusBadGateway, "RENDER_ENGINE_REJECTED", statusErr.Error(), nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
