// Package shotstack wraps the Shotstack render API: edit submission, status
// polling, saved-template rendering, asset ingestion, and media probing.
// A generic retrying transport handles auth headers and backoff; the client
// layered on top knows the edit and envelope shapes.
package shotstack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marcusvb/clipflow/internal/config"
	"github.com/marcusvb/clipflow/pkg/timeline"
)

// Sentinel errors for domain-level failures.
var (
	ErrNoJobID     = errors.New("shotstack response missing job id")
	ErrInvalidEdit = errors.New("invalid edit config")
)

// Client is the interface for the Shotstack render engine.
type Client interface {
	Submit(ctx context.Context, edit *timeline.Edit, source timeline.Source) (*RenderHandle, error)
	GetStatus(ctx context.Context, jobID string) (*RenderStatus, error)
	SubmitTemplate(ctx context.Context, templateID string, mergeFields map[string]string) (*RenderHandle, error)
	IngestAsset(ctx context.Context, srcURL, outputFormat string) (*IngestHandle, error)
	Probe(ctx context.Context, mediaURL string) (*ProbeMetadata, error)
}

// RenderHandle identifies a submitted render.
type RenderHandle struct {
	JobID   string
	Message string
}

// RenderStatus is a point-in-time snapshot of a render job.
type RenderStatus struct {
	Status     string
	VideoURL   string
	Error      string
	Duration   float64
	RenderTime float64
}

// IngestHandle identifies an ingested source asset.
type IngestHandle struct {
	SourceID string
	Status   string
}

// ProbeMetadata is the media metadata returned by the probe endpoint.
type ProbeMetadata struct {
	Duration float64
	Format   string
}

// HTTPClient implements Client against the Shotstack HTTP API.
type HTTPClient struct {
	transport *transport
}

// NewHTTPClient creates a Shotstack client from explicit configuration.
// Construct once at application start and inject into request handlers.
func NewHTTPClient(cfg config.ShotstackConfig) *HTTPClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://api.shotstack.io/%s", cfg.Environment)
	}
	return &HTTPClient{
		transport: &transport{
			baseURL:    baseURL,
			apiKey:     cfg.APIKey,
			client:     &http.Client{Timeout: cfg.Timeout},
			maxRetries: cfg.MaxRetries,
			baseDelay:  cfg.RetryBaseDelay,
			debug:      cfg.Debug,
		},
	}
}

// Submit sends an edit to the render endpoint and returns its job handle.
// The edit is re-validated before any network call: the client does not
// trust that every caller path went through the shared validator, and a
// local rejection is cheaper and more actionable than the API's.
func (c *HTTPClient) Submit(ctx context.Context, edit *timeline.Edit, source timeline.Source) (*RenderHandle, error) {
	if err := timeline.Validate(edit, source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
	}

	var resp renderResponse
	if err := c.transport.do(ctx, http.MethodPost, "/render", edit, &resp); err != nil {
		return nil, err
	}
	if resp.Response.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoJobID, resp.Response.Message)
	}
	return &RenderHandle{JobID: resp.Response.ID, Message: resp.Response.Message}, nil
}

// GetStatus polls the status endpoint for a submitted render.
func (c *HTTPClient) GetStatus(ctx context.Context, jobID string) (*RenderStatus, error) {
	var resp statusResponse
	path := "/render/" + url.PathEscape(jobID)
	if err := c.transport.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &RenderStatus{
		Status:     resp.Response.Status,
		VideoURL:   resp.Response.URL,
		Error:      resp.Response.Error,
		Duration:   resp.Response.Duration,
		RenderTime: resp.Response.RenderTime,
	}, nil
}

// SubmitTemplate renders a saved template with merge-field substitutions.
func (c *HTTPClient) SubmitTemplate(ctx context.Context, templateID string, mergeFields map[string]string) (*RenderHandle, error) {
	merge := make([]mergeField, 0, len(mergeFields))
	for find, replace := range mergeFields {
		merge = append(merge, mergeField{Find: find, Replace: replace})
	}

	var resp renderResponse
	body := templateRequest{ID: templateID, Merge: merge}
	if err := c.transport.do(ctx, http.MethodPost, "/templates/render", body, &resp); err != nil {
		return nil, err
	}
	if resp.Response.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoJobID, resp.Response.Message)
	}
	return &RenderHandle{JobID: resp.Response.ID, Message: resp.Response.Message}, nil
}

// IngestAsset pulls a remote file into Shotstack-hosted storage.
func (c *HTTPClient) IngestAsset(ctx context.Context, srcURL, outputFormat string) (*IngestHandle, error) {
	body := ingestRequest{URL: srcURL, Output: outputFormat}

	var resp ingestResponse
	if err := c.transport.do(ctx, http.MethodPost, "/ingest", body, &resp); err != nil {
		return nil, err
	}
	return &IngestHandle{SourceID: resp.Response.ID, Status: resp.Response.Status}, nil
}

// Probe fetches codec and duration metadata for a media URL.
func (c *HTTPClient) Probe(ctx context.Context, mediaURL string) (*ProbeMetadata, error) {
	body := probeRequest{URL: mediaURL}

	var resp probeResponse
	if err := c.transport.do(ctx, http.MethodPost, "/probe", body, &resp); err != nil {
		return nil, err
	}

	// ffprobe reports duration as a decimal string.
	duration, err := strconv.ParseFloat(resp.Response.Metadata.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing probed duration %q: %w", resp.Response.Metadata.Format.Duration, err)
	}
	return &ProbeMetadata{
		Duration: duration,
		Format:   resp.Response.Metadata.Format.FormatName,
	}, nil
}

// --- Shotstack wire types ---

type renderResponse struct {
	Success  bool `json:"success"`
	Response struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"response"`
}

type statusResponse struct {
	Success  bool `json:"success"`
	Response struct {
		Status     string  `json:"status"`
		URL        string  `json:"url"`
		Error      string  `json:"error"`
		Duration   float64 `json:"duration"`
		RenderTime float64 `json:"render_time"`
	} `json:"response"`
}

type templateRequest struct {
	ID    string       `json:"template"`
	Merge []mergeField `json:"merge"`
}

type mergeField struct {
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

type ingestRequest struct {
	URL    string `json:"url"`
	Output string `json:"output,omitempty"`
}

type ingestResponse struct {
	Response struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"response"`
}

type probeRequest struct {
	URL string `json:"url"`
}

type probeResponse struct {
	Response struct {
		Metadata struct {
			Format struct {
				Duration   string `json:"duration"`
				FormatName string `json:"format_name"`
			} `json:"format"`
		} `json:"metadata"`
	} `json:"response"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
