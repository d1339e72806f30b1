package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/marcusvb/clipflow/internal/api/response"
	"github.com/marcusvb/clipflow/internal/shotstack"
)

// AssetIngester defines the interface the ingest handler depends on.
type AssetIngester interface {
	IngestAsset(ctx context.Context, srcURL, outputFormat string) (*shotstack.IngestHandle, error)
}

// MediaProber defines the interface the probe diagnostics handler depends on.
type MediaProber interface {
	ProbeMedia(ctx context.Context, mediaURL string) (*shotstack.ProbeMetadata, error)
}

// NewIngestHandler returns an http.HandlerFunc for POST /api/v1/assets/ingest.
func NewIngestHandler(svc AssetIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL    string `json:"url"`
			Output string `json:"output"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if !validMediaURL(req.URL) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"url must be an absolute http(s) URL", nil)
			return
		}

		handle, err := svc.IngestAsset(r.Context(), req.URL, req.Output)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		response.Accepted(w, map[string]string{
			"source_id": handle.SourceID,
			"status":    handle.Status,
		})
	}
}

// NewProbeHandler returns an http.HandlerFunc for POST /api/v1/assets/probe.
// A diagnostics surface: unlike the builder's probing, failures here are
// surfaced to the caller rather than recovered with a fallback.
func NewProbeHandler(svc MediaProber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if !validMediaURL(req.URL) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"url must be an absolute http(s) URL", nil)
			return
		}

		meta, err := svc.ProbeMedia(r.Context(), req.URL)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		response.JSON(w, map[string]any{
			"duration": meta.Duration,
			"format":   meta.Format,
		})
	}
}

func validMediaURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && parsed.IsAbs() && (parsed.Scheme == "http" || parsed.Scheme == "https")
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
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
