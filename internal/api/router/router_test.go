package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/rankbot/internal/api/dto"
	"github.com/cuongbtq/rankbot/internal/api/handler"
	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/cuongbtq/rankbot/internal/intake"
	"github.com/cuongbtq/rankbot/internal/queue"
	"github.com/cuongbtq/rankbot/internal/tracker"
	"github.com/cuongbtq/rankbot/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeReplier) Reply(_ context.Context, _ domain.ReplyTarget, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

type testServer struct {
	engine  *gin.Engine
	queue   *queue.Memory
	tracker *tracker.Tracker
	replier *fakeReplier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		queue:   queue.NewMemory(),
		tracker: tracker.New(100),
		replier: &fakeReplier{},
	}
	t.Cleanup(func() { s.queue.Close() })

	in := intake.New(&intake.Config{
		Logger:   logger.NewNop(),
		Queue:    s.queue,
		Replier:  s.replier,
		Recorder: s.tracker,
	})

	s.engine = SetupRouter(&handler.Dependencies{
		Logger: logger.NewNop(),
		Jobs:   s.tracker,
		Intake: in,
		Queue:  s.queue,
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["queue"])
}

func TestSubmitJob(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantQueued int
	}{
		{
			name:       "valid keyword",
			body:       map[string]any{"chat_id": 42, "action": "rank", "keyword": "golang"},
			wantStatus: http.StatusAccepted,
			wantQueued: 1,
		},
		{
			name:       "intent action",
			body:       map[string]any{"chat_id": 42, "action": "intent", "keyword": "buy shoes"},
			wantStatus: http.StatusAccepted,
			wantQueued: 1,
		},
		{
			name:       "empty keyword",
			body:       map[string]any{"chat_id": 42, "action": "rank", "keyword": "   "},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown action",
			body:       map[string]any{"chat_id": 42, "action": "weather", "keyword": "golang"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing chat id",
			body:       map[string]any{"action": "rank", "keyword": "golang"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			w := s.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			n, err := s.queue.Len(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantQueued, n)

			if tt.wantStatus != http.StatusAccepted {
				assert.Empty(t, s.replier.texts)
				return
			}

			var job dto.JobDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
			assert.Equal(t, domain.JobStatusQueued, job.Status)
			assert.Equal(t, int64(42), job.ChatID)
			_, err = uuid.Parse(job.JobID)
			assert.NoError(t, err)
			assert.Equal(t, []string{domain.MessageProcessing}, s.replier.texts)
		})
	}
}

func TestSubmitJob_UnreachableChat(t *testing.T) {
	s := newTestServer(t)
	s.replier.err = errors.New("chat not found")

	w := s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"chat_id": 1, "action": "rank", "keyword": "golang"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetJob(t *testing.T) {
	s := newTestServer(t)

	job := &domain.Job{
		ID:        uuid.New().String(),
		Target:    domain.ReplyTarget{ChatID: 7},
		Action:    domain.ActionRank,
		Keyword:   "golang",
		CreatedAt: time.Now(),
	}
	s.tracker.Queued(job)
	s.tracker.Processing(job)
	s.tracker.Failed(job.ID, "lookup failed")

	t.Run("found", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got dto.JobDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, job.ID, got.JobID)
		assert.Equal(t, domain.JobStatusFailed, got.Status)
		assert.Equal(t, "lookup failed", got.Error)
	})

	t.Run("not found", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/jobs/"+uuid.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListJobs_Pagination(t *testing.T) {
	s := newTestServer(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		s.tracker.Queued(&domain.Job{
			ID:        uuid.New().String(),
			Target:    domain.ReplyTarget{ChatID: int64(i % 2)},
			Action:    domain.ActionRank,
			Keyword:   "kw",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	var seen []string
	cursor := ""
	for page := 0; page < 5; page++ {
		path := "/api/v1/jobs?page_size=2"
		if cursor != "" {
			path += "&cursor=" + cursor
		}

		w := s.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		for _, j := range resp.Jobs {
			seen = append(seen, j.JobID)
		}

		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	assert.Len(t, seen, 5)
	all := s.tracker.List(tracker.Filter{})
	for i, rec := range all {
		assert.Equal(t, rec.Job.ID, seen[i])
	}
}

func TestListJobs_Filters(t *testing.T) {
	s := newTestServer(t)

	for i, action := range []domain.Action{domain.ActionRank, domain.ActionIntent, domain.ActionRank} {
		s.tracker.Queued(&domain.Job{
			ID:        uuid.New().String(),
			Target:    domain.ReplyTarget{ChatID: int64(i + 1)},
			Action:    action,
			Keyword:   "kw",
			CreatedAt: time.Now(),
		})
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{name: "no filter", query: "", wantStatus: http.StatusOK, wantCount: 3},
		{name: "by action", query: "?action=intent", wantStatus: http.StatusOK, wantCount: 1},
		{name: "by chat", query: "?chat_id=3", wantStatus: http.StatusOK, wantCount: 1},
		{name: "by status lower case", query: "?status=queued", wantStatus: http.StatusOK, wantCount: 3},
		{name: "bad status", query: "?status=RUNNING", wantStatus: http.StatusBadRequest},
		{name: "bad action", query: "?action=weather", wantStatus: http.StatusBadRequest},
		{name: "bad cursor", query: "?cursor=bm90LWEtY3Vyc29y", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/jobs"+tt.query, nil)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp dto.ListJobsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Len(t, resp.Jobs, tt.wantCount)
			assert.Empty(t, resp.NextCursor)
		})
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"chat_id": 42, "action": "rank", "keyword": "golang"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "memory", stats.QueueBackend)
	require.NotNil(t, stats.QueueLength)
	assert.Equal(t, 1, *stats.QueueLength)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, 1, stats.Tracked)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodOptions, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
