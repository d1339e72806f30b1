package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marcusvb/clipflow/internal/store"
	"github.com/marcusvb/clipflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("clipflow_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

// defaultUserID returns the UUID of the seeded default user.
func defaultUserID(t *testing.T, s store.Store) uuid.UUID {
	t.Helper()
	user, err := s.GetDefaultUser(context.Background())
	require.NoError(t, err)
	return user.ID
}

// newRenderJob returns a render job row in the initial submitted state.
func newRenderJob(userID uuid.UUID, shotstackJobID string) *models.RenderJob {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.RenderJob{
		ID:               uuid.New(),
		UserID:           userID,
		ShotstackJobID:   shotstackJobID,
		Status:           models.RenderStatusSubmitted,
		InputVideoURLs:   []string{"https://example.com/a.mp4", "https://example.com/b.mp4"},
		OutputFormat:     "mp4",
		OutputResolution: "hd",
		Metadata:         map[string]any{"edit_type": "videoUrls"},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// --- User Tests ---

func TestGetDefaultUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	user, err := s.GetDefaultUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default@clipflow.local", user.Email)
	assert.NotEqual(t, uuid.Nil, user.ID)
}

// --- API Key Tests ---

func TestAPIKey_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	now := time.Now().UTC().Truncate(time.Microsecond)
	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "test-key",
		KeyHash:   "bcrypt-hash-here",
		KeyPrefix: "cf_abcd",
		Scopes:    []string{"render", "read"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.CreateAPIKey(ctx, key)
	require.NoError(t, err)

	// Get by prefix
	keys, err := s.GetAPIKeyByPrefix(ctx, "cf_abcd")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, "test-key", keys[0].Name)
}

func TestAPIKey_UpdateLastUsed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "usage-key",
		KeyHash:   "hash",
		KeyPrefix: "cf_used",
		Scopes:    []string{"read"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))

	err := s.UpdateAPIKeyLastUsed(ctx, key.ID)
	require.NoError(t, err)

	keys, err := s.GetAPIKeyByPrefix(ctx, "cf_used")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestAPIKey_DuplicateID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	id := uuid.New()
	key := &models.APIKey{
		ID: id, UserID: userID, Name: "dup1", KeyHash: "h1", KeyPrefix: "cf_dup1",
		Scopes: []string{"read"}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))

	key2 := &models.APIKey{
		ID: id, UserID: userID, Name: "dup2", KeyHash: "h2", KeyPrefix: "cf_dup2",
		Scopes: []string{"read"}, CreatedAt: now, UpdatedAt: now,
	}
	err := s.CreateAPIKey(ctx, key2)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

// --- Render Job Tests ---

func TestRenderJob_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	job := newRenderJob(userID, "job-create")
	require.NoError(t, s.CreateRenderJob(ctx, job))

	got, err := s.GetRenderJobByShotstackID(ctx, userID, "job-create")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.RenderStatusSubmitted, got.Status)
	assert.Equal(t, []string{"https://example.com/a.mp4", "https://example.com/b.mp4"}, got.InputVideoURLs)
	assert.Equal(t, "videoUrls", got.Metadata["edit_type"])
	assert.Nil(t, got.VideoURL)
}

func TestRenderJob_GetScopedToUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-owned")))

	// Another user must not see the job.
	_, err := s.GetRenderJobByShotstackID(ctx, uuid.New(), "job-owned")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenderJob_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetRenderJobByShotstackID(context.Background(), uuid.New(), "no-such-job")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenderJob_DuplicateShotstackID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-dup")))

	err := s.CreateRenderJob(ctx, newRenderJob(userID, "job-dup"))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestRenderJob_StatusProgression(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-prog")))

	for _, status := range []string{
		models.RenderStatusQueued,
		models.RenderStatusFetching,
		models.RenderStatusRendering,
	} {
		require.NoError(t, s.UpdateRenderJobStatus(ctx, "job-prog", status))
	}

	err := s.UpdateRenderJobStatus(ctx, "job-prog", models.RenderStatusDone,
		store.WithVideoURL("https://cdn.shotstack.io/out.mp4"))
	require.NoError(t, err)

	got, err := s.GetRenderJobByShotstackID(ctx, userID, "job-prog")
	require.NoError(t, err)
	assert.Equal(t, models.RenderStatusDone, got.Status)
	require.NotNil(t, got.VideoURL)
	assert.Equal(t, "https://cdn.shotstack.io/out.mp4", *got.VideoURL)
}

func TestRenderJob_StatusSkipAhead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-skip")))

	// Polls can miss intermediate states; skipping forward is legal.
	err := s.UpdateRenderJobStatus(ctx, "job-skip", models.RenderStatusRendering)
	require.NoError(t, err)

	got, err := s.GetRenderJobByShotstackID(ctx, userID, "job-skip")
	require.NoError(t, err)
	assert.Equal(t, models.RenderStatusRendering, got.Status)
}

func TestRenderJob_StatusBackwardsRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-back")))
	require.NoError(t, s.UpdateRenderJobStatus(ctx, "job-back", models.RenderStatusRendering))

	err := s.UpdateRenderJobStatus(ctx, "job-back", models.RenderStatusQueued)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid render job status transition")

	got, err := s.GetRenderJobByShotstackID(ctx, userID, "job-back")
	require.NoError(t, err)
	assert.Equal(t, models.RenderStatusRendering, got.Status)
}

func TestRenderJob_TerminalStatusFrozen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-term")))
	require.NoError(t, s.UpdateRenderJobStatus(ctx, "job-term", models.RenderStatusFailed,
		store.WithErrorMessage("source not found")))

	// Re-confirming the terminal status is legal.
	require.NoError(t, s.UpdateRenderJobStatus(ctx, "job-term", models.RenderStatusFailed))

	// Crossing to the other terminal state is not.
	err := s.UpdateRenderJobStatus(ctx, "job-term", models.RenderStatusDone)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid render job status transition")

	got, err := s.GetRenderJobByShotstackID(ctx, userID, "job-term")
	require.NoError(t, err)
	assert.Equal(t, models.RenderStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "source not found", *got.ErrorMessage)
}

func TestRenderJob_UpdateUnknownStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.UpdateRenderJobStatus(context.Background(), "any-job", "exploded")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown render job status")
}

func TestRenderJob_UpdateStatusNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.UpdateRenderJobStatus(context.Background(), "no-such-job", models.RenderStatusQueued)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenderJob_List(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-list-"+uuid.NewString()[:8])))
	}

	jobs, total, err := s.ListRenderJobs(ctx, store.RenderJobFilter{
		UserID: userID, Page: 1, Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, jobs, 3)
}

func TestRenderJob_ListFilteredByStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-filter-a")))
	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-filter-b")))
	require.NoError(t, s.UpdateRenderJobStatus(ctx, "job-filter-b", models.RenderStatusDone,
		store.WithVideoURL("https://cdn.shotstack.io/out.mp4")))

	jobs, total, err := s.ListRenderJobs(ctx, store.RenderJobFilter{
		UserID: userID, Status: models.RenderStatusDone, Page: 1, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-filter-b", jobs[0].ShotstackJobID)
}

func TestRenderJob_ListScopedToUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	userID := defaultUserID(t, s)

	require.NoError(t, s.CreateRenderJob(ctx, newRenderJob(userID, "job-scoped")))

	jobs, total, err := s.ListRenderJobs(ctx, store.RenderJobFilter{
		UserID: uuid.New(), Page: 1, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, jobs)
}

// --- Ping Test ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.Ping(context.Background())
	assert.NoError(t, err)
}
