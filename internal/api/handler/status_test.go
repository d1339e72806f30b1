package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/marcusvb/clipflow/internal/api/middleware"
	"github.com/marcusvb/clipflow/internal/render"
	"github.com/marcusvb/clipflow/internal/shotstack"
	"github.com/marcusvb/clipflow/internal/store"
	"github.com/marcusvb/clipflow/pkg/models"
)

type mockStatusGetter struct {
	lastJobID string
	result    *render.StatusResult
	err       error
}

func (m *mockStatusGetter) GetStatus(ctx context.Context, userID uuid.UUID, jobID string) (*render.StatusResult, error) {
	m.lastJobID = jobID
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockJobLister struct {
	jobs  []*models.RenderJob
	total int
	err   error

	gotStatus string
	gotPage   int
	gotLimit  int
}

func (m *mockJobLister) ListJobs(ctx context.Context, userID uuid.UUID, status string, page, limit int) ([]*models.RenderJob, int, error) {
	m.gotStatus = status
	m.gotPage = page
	m.gotLimit = limit
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.jobs, m.total, nil
}

// statusReq builds a GET request routed through chi so URLParam resolves.
func statusReq(t *testing.T, jobID string, userID uuid.UUID) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/renders/"+jobID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("jobID", jobID)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(mw.SetUserID(ctx, userID))
}

func TestStatusHandler_Success(t *testing.T) {
	svc := &mockStatusGetter{result: &render.StatusResult{
		JobID:    "job-1",
		Status:   models.RenderStatusDone,
		VideoURL: "https://cdn.shotstack.io/out.mp4",
		Duration: 17,
	}}
	h := NewStatusHandler(svc)

	rec := httptest.NewRecorder()
	h(rec, statusReq(t, "job-1", uuid.New()))

	data := parseData(t, rec, http.StatusOK)
	if data["job_id"] != "job-1" || data["status"] != "done" {
		t.Errorf("unexpected body: %v", data)
	}
	if data["video_url"] != "https://cdn.shotstack.io/out.mp4" {
		t.Errorf("video_url = %v", data["video_url"])
	}
	if svc.lastJobID != "job-1" {
		t.Errorf("job id not forwarded: %q", svc.lastJobID)
	}
}

func TestStatusHandler_MissingUser(t *testing.T) {
	h := NewStatusHandler(&mockStatusGetter{})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/renders/job-1", nil)
	h(rec, r)

	code, errCode := parseErr(t, rec)
	if code != http.StatusUnauthorized || errCode != "INVALID_TOKEN" {
		t.Errorf("got %d %s", code, errCode)
	}
}

func TestStatusHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
		{"retries exhausted", shotstack.ErrRetriesExhausted, http.StatusBadGateway, "RENDER_ENGINE_UNAVAILABLE"},
		{"unreachable", shotstack.ErrUnreachable, http.StatusBadGateway, "RENDER_ENGINE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStatusHandler(&mockStatusGetter{err: tt.err})

			rec := httptest.NewRecorder()
			h(rec, statusReq(t, "job-1", uuid.New()))

			code, errCode := parseErr(t, rec)
			if code != tt.wantCode || errCode != tt.wantErr {
				t.Errorf("got %d %s, want %d %s", code, errCode, tt.wantCode, tt.wantErr)
			}
		})
	}
}

func TestListRendersHandler_DefaultsAndMeta(t *testing.T) {
	svc := &mockJobLister{jobs: []*models.RenderJob{{ShotstackJobID: "job-1"}}, total: 45}
	h := NewListRendersHandler(svc)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/renders", nil)
	h(rec, r.WithContext(mw.SetUserID(r.Context(), uuid.New())))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Page    int  `json:"page"`
			Limit   int  `json:"limit"`
			Total   int  `json:"total"`
			HasNext bool `json:"has_next"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 {
		t.Errorf("data length = %d", len(env.Data))
	}
	if env.Meta.Page != 1 || env.Meta.Limit != 20 || env.Meta.Total != 45 || !env.Meta.HasNext {
		t.Errorf("unexpected meta: %+v", env.Meta)
	}
}

func TestListRendersHandler_ForwardsQuery(t *testing.T) {
	svc := &mockJobLister{}
	h := NewListRendersHandler(svc)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/renders?page=3&limit=10&status=done", nil)
	h(rec, r.WithContext(mw.SetUserID(r.Context(), uuid.New())))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotPage != 3 || svc.gotLimit != 10 || svc.gotStatus != "done" {
		t.Errorf("query not forwarded: page=%d limit=%d status=%q", svc.gotPage, svc.gotLimit, svc.gotStatus)
	}
}

func TestListRendersHandler_EmptyListIsArray(t *testing.T) {
	h := NewListRendersHandler(&mockJobLister{})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/renders", nil)
	h(rec, r.WithContext(mw.SetUserID(r.Context(), uuid.New())))

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(env.Data) != "[]" {
		t.Errorf("expected empty array, got %s", env.Data)
	}
}
