// Package models contains shared data models used across the ClipFlow codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Render job statuses. The machine is forward-only:
// submitted -> queued -> fetching -> rendering -> {done | failed}.
// Transitions are driven entirely by polling the render engine; the service
// only ever sets the initial "submitted" itself.
const (
	RenderStatusSubmitted = "submitted"
	RenderStatusQueued    = "queued"
	RenderStatusFetching  = "fetching"
	RenderStatusRendering = "rendering"
	RenderStatusDone      = "done"
	RenderStatusFailed    = "failed"
)

// RenderStatusRank orders statuses along the state machine. Both terminal
// states share the top rank; a terminal job only re-confirms itself.
var RenderStatusRank = map[string]int{
	RenderStatusSubmitted: 0,
	RenderStatusQueued:    1,
	RenderStatusFetching:  2,
	RenderStatusRendering: 3,
	RenderStatusDone:      4,
	RenderStatusFailed:    4,
}

// TerminalRenderStatus reports whether a status ends the job lifecycle.
func TerminalRenderStatus(status string) bool {
	return status == RenderStatusDone || status == RenderStatusFailed
}

// RenderJob records one submission to the render engine. The job id is
// issued externally by Shotstack; rows are keyed locally by UUID but looked
// up and patched by shotstack_job_id.
type RenderJob struct {
	ID               uuid.UUID      `db:"id"                 json:"id"`
	UserID           uuid.UUID      `db:"user_id"            json:"user_id"`
	ShotstackJobID   string         `db:"shotstack_job_id"   json:"shotstack_job_id"`
	Status           string         `db:"status"             json:"status"`
	InputVideoURLs   []string       `db:"input_video_urls"   json:"input_video_urls,omitempty"`
	OutputFormat     string         `db:"output_format"      json:"output_format"`
	OutputResolution string         `db:"output_resolution"  json:"output_resolution"`
	Metadata         map[string]any `db:"metadata"           json:"metadata,omitempty"`
	VideoURL         *string        `db:"video_url"          json:"video_url,omitempty"`
	ErrorMessage     *string        `db:"error_message"      json:"error_message,omitempty"`
	CreatedAt        time.Time      `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"         json:"updated_at"`
}
