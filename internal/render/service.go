// Package render orchestrates the build -> validate -> submit pipeline and
// the status-poll flow, tying the timeline builder, the Shotstack client,
// and job persistence together.
package render

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/marcusvb/clipflow/internal/cache"
	"github.com/marcusvb/clipflow/internal/shotstack"
	"github.com/marcusvb/clipflow/internal/store"
	"github.com/marcusvb/clipflow/pkg/models"
	"github.com/marcusvb/clipflow/pkg/timeline"
)

// Status-cache TTLs. In-flight statuses stay fresh; terminal snapshots
// never change, so they can live longer.
const (
	activeStatusTTL   = 5 * time.Second
	terminalStatusTTL = 10 * time.Minute
)

// TemplateRequest selects template-mode input. When MergeFields is set the
// saved template is rendered server-side by Shotstack; otherwise Options
// drive a local template build.
type TemplateRequest struct {
	ID          string
	MergeFields map[string]string
	Options     timeline.TemplateOptions
}

// SubmitRequest is the union of the three input modes. Exactly one of
// VideoURLs, Template, or Edit should be populated; they are checked in
// that order.
type SubmitRequest struct {
	VideoURLs        []string
	OutputFormat     string
	OutputResolution string
	Title            string
	Transition       string
	SoundtrackURL    string

	Template *TemplateRequest
	Edit     *timeline.Edit

	ProjectName string
}

// SubmitResult is returned to the route layer after a successful submission.
type SubmitResult struct {
	JobID             string
	EstimatedDuration float64
	EditType          string
}

// StatusResult is the latest polled snapshot of a render job.
type StatusResult struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	VideoURL string  `json:"video_url,omitempty"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Service runs the render pipeline. All collaborators are injected at
// construction; the service holds no lazily initialized state.
type Service struct {
	engine    shotstack.Client
	store     store.Store
	cache     cache.Cache
	durations timeline.DurationSource
}

// NewService creates a render Service. Called once at server startup.
func NewService(engine shotstack.Client, st store.Store, ca cache.Cache, durations timeline.DurationSource) *Service {
	return &Service{
		engine:    engine,
		store:     st,
		cache:     ca,
		durations: durations,
	}
}

// BuildAndSubmit chooses the input mode, builds and validates the edit,
// submits it to the render engine, and records the job. Input and
// validation failures are resolved before any render-engine call is made.
func (s *Service) BuildAndSubmit(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*SubmitResult, error) {
	var (
		edit      *timeline.Edit
		estimated float64
		source    timeline.Source
	)

	switch {
	case len(req.VideoURLs) > 0:
		source = timeline.SourceMedia
		edit, estimated = timeline.BuildFromMedia(ctx, s.durations, timeline.MediaInput{
			VideoURLs:        req.VideoURLs,
			OutputFormat:     req.OutputFormat,
			OutputResolution: req.OutputResolution,
			Title:            req.Title,
			Transition:       req.Transition,
			SoundtrackURL:    req.SoundtrackURL,
		})

	case req.Template != nil:
		source = timeline.SourceTemplate
		if len(req.Template.MergeFields) > 0 {
			return s.submitSavedTemplate(ctx, userID, req)
		}
		if !req.Template.Options.HasContent() {
			return nil, ErrNoTemplateContent
		}
		edit, estimated = timeline.BuildFromTemplate(req.Template.Options)

	case req.Edit != nil:
		source = timeline.SourceEdit
		edit = req.Edit
		estimated = timeline.EstimateDuration(edit)

	default:
		return nil, ErrNoContent
	}

	if err := timeline.Validate(edit, source); err != nil {
		return nil, err
	}

	handle, err := s.engine.Submit(ctx, edit, source)
	if err != nil {
		return nil, err
	}

	s.persistJob(ctx, userID, handle.JobID, req, edit, estimated, string(source))

	return &SubmitResult{
		JobID:             handle.JobID,
		EstimatedDuration: estimated,
		EditType:          string(source),
	}, nil
}

// submitSavedTemplate renders a Shotstack-hosted template with merge
// fields; no local build or validation applies.
func (s *Service) submitSavedTemplate(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*SubmitResult, error) {
	handle, err := s.engine.SubmitTemplate(ctx, req.Template.ID, req.Template.MergeFields)
	if err != nil {
		return nil, err
	}

	s.persistJob(ctx, userID, handle.JobID, req, nil, 0, string(timeline.SourceTemplate))

	return &SubmitResult{
		JobID:    handle.JobID,
		EditType: string(timeline.SourceTemplate),
	}, nil
}

// persistJob records the submitted job. A persistence failure must not mask
// a successful submission: the external job already exists, so the error is
// logged and the caller still gets the job id.
func (s *Service) persistJob(ctx context.Context, userID uuid.UUID, jobID string, req SubmitRequest, edit *timeline.Edit, estimated float64, editType string) {
	now := time.Now().UTC()
	job := &models.RenderJob{
		ID:             uuid.New(),
		UserID:         userID,
		ShotstackJobID: jobID,
		Status:         models.RenderStatusSubmitted,
		InputVideoURLs: req.VideoURLs,
		Metadata: map[string]any{
			"project_name":       req.ProjectName,
			"edit_type":          editType,
			"estimated_duration": estimated,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if edit != nil && edit.Output != nil {
		job.OutputFormat = edit.Output.Format
		job.OutputResolution = edit.Output.Resolution
	} else {
		job.OutputFormat = "mp4"
		job.OutputResolution = "hd"
	}

	if err := s.store.CreateRenderJob(ctx, job); err != nil {
		slog.Error("render job submitted but not persisted",
			"shotstack_job_id", jobID,
			"user_id", userID,
			"error", err,
		)
	}
}

// GetStatus returns the latest status snapshot for a job, serving from the
// cache when fresh and otherwise polling the render engine and writing the
// snapshot through to persistence. Polling a job already in a terminal
// state simply re-confirms the terminal snapshot.
func (s *Service) GetStatus(ctx context.Context, userID uuid.UUID, jobID string) (*StatusResult, error) {
	// Ownership gate: only the job's owner may poll it.
	if _, err := s.store.GetRenderJobByShotstackID(ctx, userID, jobID); err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.GetRenderStatus(ctx, jobID); err == nil && ok {
		var result StatusResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	} else if err != nil {
		slog.Warn("render status cache read failed", "shotstack_job_id", jobID, "error", err)
	}

	status, err := s.engine.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		JobID:    jobID,
		Status:   status.Status,
		VideoURL: status.VideoURL,
		Error:    status.Error,
		Duration: status.Duration,
	}

	s.recordStatus(ctx, jobID, status)
	s.cacheStatus(ctx, jobID, result)

	return result, nil
}

// recordStatus writes the polled snapshot through to the job row. Like
// persistJob, a bookkeeping failure never masks a successful poll.
func (s *Service) recordStatus(ctx context.Context, jobID string, status *shotstack.RenderStatus) {
	var opts []store.RenderJobUpdateOption
	if status.Status == models.RenderStatusDone && status.VideoURL != "" {
		opts = append(opts, store.WithVideoURL(status.VideoURL))
	}
	if status.Status == models.RenderStatusFailed && status.Error != "" {
		opts = append(opts, store.WithErrorMessage(status.Error))
	}

	if err := s.store.UpdateRenderJobStatus(ctx, jobID, status.Status, opts...); err != nil {
		slog.Warn("failed to persist render status snapshot",
			"shotstack_job_id", jobID,
			"status", status.Status,
			"error", err,
		)
	}
}

func (s *Service) cacheStatus(ctx context.Context, jobID string, result *StatusResult) {
	snapshot, err := json.Marshal(result)
	if err != nil {
		return
	}
	ttl := activeStatusTTL
	if models.TerminalRenderStatus(result.Status) {
		ttl = terminalStatusTTL
	}
	if err := s.cache.SetRenderStatus(ctx, jobID, snapshot, ttl); err != nil {
		slog.Warn("render status cache write failed", "shotstack_job_id", jobID, "error", err)
	}
}

// ListJobs returns a page of the user's render jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, userID uuid.UUID, status string, page, limit int) ([]*models.RenderJob, int, error) {
	return s.store.ListRenderJobs(ctx, store.RenderJobFilter{
		UserID: userID,
		Status: status,
		Page:   page,
		Limit:  limit,
	})
}

// IngestAsset pulls a remote media file into render-engine storage so
// subsequent edits can reference a stable URL.
func (s *Service) IngestAsset(ctx context.Context, srcURL, outputFormat string) (*shotstack.IngestHandle, error) {
	return s.engine.IngestAsset(ctx, srcURL, outputFormat)
}

// ProbeMedia exposes the raw probe for diagnostics endpoints. Unlike the
// builder path there is no fallback here; callers asked for the real
// metadata and get the real error.
func (s *Service) ProbeMedia(ctx context.Context, mediaURL string) (*shotstack.ProbeMetadata, error) {
	return s.engine.Probe(ctx, mediaURL)
}
