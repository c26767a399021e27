package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/promosync/backend/internal/application/sync"
	"github.com/promosync/backend/internal/domain/sync"
)

// SyncExecutor starts sync runs. Implemented by the application orchestrator.
type SyncExecutor interface {
	Execute(ctx context.Context, req appsync.ExecuteSyncRequest, trigger string) (*appsync.ExecutionResponse, error)
}

// ExecutionQueries reads and cancels execution records. Implemented by the
// application execution service.
type ExecutionQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appsync.ExecutionResponse, error)
	List(ctx context.Context, filter appsync.ExecutionListFilter) ([]appsync.ExecutionResponse, error)
	ListRunning(ctx context.Context) ([]appsync.ExecutionResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// SyncHandler exposes the run trigger and execution query surface.
type SyncHandler struct {
	BaseHandler
	executor   SyncExecutor
	executions ExecutionQueries
	logger     *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(executor SyncExecutor, executions ExecutionQueries, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{
		executor:   executor,
		executions: executions,
		logger:     logger,
	}
}

// RegisterRoutes registers the sync routes on the API group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync/execute", h.Execute)
	rg.GET("/executions", h.List)
	rg.GET("/executions/running", h.ListRunning)
	rg.GET("/executions/:id", h.Get)
	rg.POST("/executions/:id/cancel", h.Cancel)
}

// Execute starts a sync run and blocks until it finishes. The response is the
// finalized execution record. A run already in flight for the same
// configuration yields 409 with the blocking execution's ID unless force_sync
// is set.
func (h *SyncHandler) Execute(c *gin.Context) {
	var req appsync.ExecuteSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.executor.Execute(c.Request.Context(), req, sync.TriggerManual)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.logger.Info("Manual sync run finished",
		zap.String("execution_id", resp.ID.String()),
		zap.String("status", resp.Status),
	)
	h.Success(c, resp)
}

// List returns execution records, newest first, optionally filtered by
// configuration and status.
func (h *SyncHandler) List(c *gin.Context) {
	var filter appsync.ExecutionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	executions, err := h.executions.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, executions)
}

// ListRunning returns executions currently in RUNNING state.
func (h *SyncHandler) ListRunning(c *gin.Context) {
	executions, err := h.executions.ListRunning(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, executions)
}

// Get returns a single execution with its per-store results.
func (h *SyncHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid execution ID")
		return
	}

	execution, err := h.executions.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, execution)
}

// Cancel requests cooperative cancellation of a running execution. Stores
// already processed keep their results; the run finalizes as CANCELLED.
func (h *SyncHandler) Cancel(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid execution ID")
		return
	}

	if err := h.executions.Cancel(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.logger.Info("Execution cancellation requested",
		zap.String("execution_id", id.String()),
	)
	h.Accepted(c, gin.H{"execution_id": id})
}
