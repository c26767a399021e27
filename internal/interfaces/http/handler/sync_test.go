package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/promosync/backend/internal/application/sync"
	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeExecutor struct {
	resp    *appsync.ExecutionResponse
	err     error
	lastReq appsync.ExecuteSyncRequest
}

func (f *fakeExecutor) Execute(ctx context.Context, req appsync.ExecuteSyncRequest, trigger string) (*appsync.ExecutionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeExecutionQueries struct {
	byID       map[uuid.UUID]*appsync.ExecutionResponse
	list       []appsync.ExecutionResponse
	running    []appsync.ExecutionResponse
	cancelErr  error
	lastFilter appsync.ExecutionListFilter
	cancelled  []uuid.UUID
}

func (f *fakeExecutionQueries) GetByID(ctx context.Context, id uuid.UUID) (*appsync.ExecutionResponse, error) {
	if resp, ok := f.byID[id]; ok {
		return resp, nil
	}
	return nil, sync.ErrExecutionNotFound
}

func (f *fakeExecutionQueries) List(ctx context.Context, filter appsync.ExecutionListFilter) ([]appsync.ExecutionResponse, error) {
	f.lastFilter = filter
	return f.list, nil
}

func (f *fakeExecutionQueries) ListRunning(ctx context.Context) ([]appsync.ExecutionResponse, error) {
	return f.running, nil
}

func (f *fakeExecutionQueries) Cancel(ctx context.Context, id uuid.UUID) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func finishedResponse() *appsync.ExecutionResponse {
	now := time.Now()
	return &appsync.ExecutionResponse{
		ID:        uuid.New(),
		Trigger:   sync.TriggerManual,
		Status:    sync.ExecutionStatusSuccess.String(),
		StartedAt: &now,
		Summary: sync.ExecutionSummary{
			TotalStores:     2,
			ProductsFetched: 10,
			ProductsSent:    10,
		},
		CreatedAt: now,
	}
}

func newSyncEngine(executor SyncExecutor, queries ExecutionQueries) *gin.Engine {
	r := gin.New()
	h := NewSyncHandler(executor, queries, zap.NewNop())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

// ---------------------------------------------------------------------------
// Execute Tests
// ---------------------------------------------------------------------------

func TestSyncHandler_Execute(t *testing.T) {
	t.Run("returns the finalized execution", func(t *testing.T) {
		executor := &fakeExecutor{resp: finishedResponse()}
		r := newSyncEngine(executor, &fakeExecutionQueries{})

		body, _ := json.Marshal(gin.H{
			"configuration_id": uuid.New(),
			"force_sync":       true,
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/execute", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, executor.lastReq.ForceSync)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("missing configuration_id is a 400", func(t *testing.T) {
		r := newSyncEngine(&fakeExecutor{}, &fakeExecutionQueries{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/execute", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("conflict returns 409 with the blocking execution ID", func(t *testing.T) {
		blocking := uuid.New()
		executor := &fakeExecutor{err: &sync.ConflictError{ExecutionID: blocking}}
		r := newSyncEngine(executor, &fakeExecutionQueries{})

		body, _ := json.Marshal(gin.H{"configuration_id": uuid.New()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/execute", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				ExecutionID uuid.UUID `json:"execution_id"`
			} `json:"data"`
			Error *dto.ErrorInfo `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeConflict, resp.Error.Code)
		assert.Equal(t, blocking, resp.Data.ExecutionID)
	})

	t.Run("lock held elsewhere is a 409", func(t *testing.T) {
		executor := &fakeExecutor{err: sync.ErrRunLockHeld}
		r := newSyncEngine(executor, &fakeExecutionQueries{})

		body, _ := json.Marshal(gin.H{"configuration_id": uuid.New()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/execute", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeConflict, resp.Error.Code)
	})

	t.Run("configuration problems are 422", func(t *testing.T) {
		executor := &fakeExecutor{err: &sync.ConfigurationError{Field: "credentials", Reason: "username required"}}
		r := newSyncEngine(executor, &fakeExecutionQueries{})

		body, _ := json.Marshal(gin.H{"configuration_id": uuid.New()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/execute", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown configuration is 404", func(t *testing.T) {
		executor := &fakeExecutor{err: sync.ErrConfigurationNotFound}
		r := newSyncEngine(executor, &fakeExecutionQueries{})

		body, _ := json.Marshal(gin.H{"configuration_id": uuid.New()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/execute", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// ---------------------------------------------------------------------------
// Query Tests
// ---------------------------------------------------------------------------

func TestSyncHandler_List(t *testing.T) {
	queries := &fakeExecutionQueries{
		list: []appsync.ExecutionResponse{*finishedResponse(), *finishedResponse()},
	}
	r := newSyncEngine(&fakeExecutor{}, queries)

	configID := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/executions?configuration_id="+configID.String()+"&limit=10", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, queries.lastFilter.ConfigurationID)
	assert.Equal(t, configID, *queries.lastFilter.ConfigurationID)
	assert.Equal(t, 10, queries.lastFilter.Limit)
}

func TestSyncHandler_Get(t *testing.T) {
	execution := finishedResponse()
	queries := &fakeExecutionQueries{
		byID: map[uuid.UUID]*appsync.ExecutionResponse{execution.ID: execution},
	}
	r := newSyncEngine(&fakeExecutor{}, queries)

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/executions/"+execution.ID.String(), nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown ID is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/executions/"+uuid.NewString(), nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed ID is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/executions/not-a-uuid", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandler_ListRunning(t *testing.T) {
	running := finishedResponse()
	running.Status = sync.ExecutionStatusRunning.String()
	queries := &fakeExecutionQueries{running: []appsync.ExecutionResponse{*running}}
	r := newSyncEngine(&fakeExecutor{}, queries)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/executions/running", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []appsync.ExecutionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "RUNNING", resp.Data[0].Status)
}

func TestSyncHandler_Cancel(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		queries := &fakeExecutionQueries{}
		r := newSyncEngine(&fakeExecutor{}, queries)

		id := uuid.New()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/executions/"+id.String()+"/cancel", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, queries.cancelled, 1)
		assert.Equal(t, id, queries.cancelled[0])
	})

	t.Run("finished execution is 422", func(t *testing.T) {
		queries := &fakeExecutionQueries{cancelErr: sync.ErrExecutionNotRunning}
		r := newSyncEngine(&fakeExecutor{}, queries)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/executions/"+uuid.NewString()+"/cancel", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unexpected errors are 500", func(t *testing.T) {
		queries := &fakeExecutionQueries{cancelErr: errors.New("db down")}
		r := newSyncEngine(&fakeExecutor{}, queries)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/executions/"+uuid.NewString()+"/cancel", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
