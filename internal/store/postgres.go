package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marcusvb/clipflow/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetDefaultUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, created_at, updated_at FROM users WHERE email = 'default@clipflow.local' LIMIT 1`,
	).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default user: %w", err)
	}
	return &u, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Render Jobs ---

const renderJobColumns = `id, user_id, shotstack_job_id, status, input_video_urls, output_format, output_resolution, metadata, video_url, error_message, created_at, updated_at`

func (s *PostgresStore) CreateRenderJob(ctx context.Context, job *models.RenderJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO render_jobs (`+renderJobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.UserID, job.ShotstackJobID, job.Status, job.InputVideoURLs,
		job.OutputFormat, job.OutputResolution, job.Metadata, job.VideoURL,
		job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create render job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRenderJobByShotstackID(ctx context.Context, userID uuid.UUID, shotstackJobID string) (*models.RenderJob, error) {
	var j models.RenderJob
	err := s.pool.QueryRow(ctx,
		`SELECT `+renderJobColumns+` FROM render_jobs WHERE shotstack_job_id = $1 AND user_id = $2`,
		shotstackJobID, userID,
	).Scan(&j.ID, &j.UserID, &j.ShotstackJobID, &j.Status, &j.InputVideoURLs,
		&j.OutputFormat, &j.OutputResolution, &j.Metadata, &j.VideoURL,
		&j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get render job: %w", err)
	}
	return &j, nil
}

// UpdateRenderJobStatus writes the latest polled snapshot for a job. The
// status machine is forward-only; a write that would move the job backwards
// is rejected. Re-confirming the current status (including terminal states)
// is legal and refreshes updated_at only.
func (s *PostgresStore) UpdateRenderJobStatus(ctx context.Context, shotstackJobID, status string, opts ...RenderJobUpdateOption) error {
	params := &renderJobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	newRank, ok := models.RenderStatusRank[status]
	if !ok {
		return fmt.Errorf("unknown render job status %q", status)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM render_jobs WHERE shotstack_job_id = $1`, shotstackJobID,
	).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get render job status: %w", err)
	}

	curRank := models.RenderStatusRank[currentStatus]
	if newRank < curRank {
		return fmt.Errorf("invalid render job status transition: %s -> %s", currentStatus, status)
	}
	if models.TerminalRenderStatus(currentStatus) && status != currentStatus {
		return fmt.Errorf("invalid render job status transition: %s -> %s", currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE render_jobs SET status = $2, updated_at = $3`
	args := []any{shotstackJobID, status, now}
	argIdx := 4

	if params.VideoURL != nil {
		query += fmt.Sprintf(", video_url = $%d", argIdx)
		args = append(args, *params.VideoURL)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}

	query += " WHERE shotstack_job_id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update render job status: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRenderJobs(ctx context.Context, filter RenderJobFilter) ([]*models.RenderJob, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM render_jobs WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count render jobs: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT `+renderJobColumns+` FROM render_jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list render jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.RenderJob
	for rows.Next() {
		var j models.RenderJob
		if err := rows.Scan(&j.ID, &j.UserID, &j.ShotstackJobID, &j.Status, &j.InputVideoURLs,
			&j.OutputFormat, &j.OutputResolution, &j.Metadata, &j.VideoURL,
			&j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan render job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, total, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
