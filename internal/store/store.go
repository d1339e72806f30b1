package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marcusvb/clipflow/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultUser(ctx context.Context) (*models.User, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	CreateRenderJob(ctx context.Context, job *models.RenderJob) error
	GetRenderJobByShotstackID(ctx context.Context, userID uuid.UUID, shotstackJobID string) (*models.RenderJob, error)
	UpdateRenderJobStatus(ctx context.Context, shotstackJobID, status string, opts ...RenderJobUpdateOption) error
	ListRenderJobs(ctx context.Context, filter RenderJobFilter) ([]*models.RenderJob, int, error)
}

// RenderJobFilter selects and paginates a user's render jobs.
type RenderJobFilter struct {
	UserID uuid.UUID
	Status string
	Page   int
	Limit  int
}

type renderJobUpdateParams struct {
	VideoURL     *string
	ErrorMessage *string
}

type RenderJobUpdateOption func(*renderJobUpdateParams)

func WithVideoURL(url string) RenderJobUpdateOption {
	return func(p *renderJobUpdateParams) {
		p.VideoURL = &url
	}
}

func WithErrorMessage(msg string) RenderJobUpdateOption {
	return func(p *renderJobUpdateParams) {
		p.ErrorMessage = &msg
	}
}
