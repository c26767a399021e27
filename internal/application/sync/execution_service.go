package sync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
)

// RunCanceller requests cooperative cancellation of an in-flight run.
// The orchestrator implements it.
type RunCanceller interface {
	CancelExecution(executionID uuid.UUID) error
}

// ExecutionService exposes the execution audit trail: queries over past and
// in-flight runs, cancellation, and startup recovery.
type ExecutionService struct {
	executions sync.ExecutionRepository
	canceller  RunCanceller
	logger     *zap.Logger
}

// NewExecutionService creates a new ExecutionService.
func NewExecutionService(executions sync.ExecutionRepository, canceller RunCanceller, logger *zap.Logger) *ExecutionService {
	return &ExecutionService{
		executions: executions,
		canceller:  canceller,
		logger:     logger,
	}
}

// GetByID retrieves one execution with its full store results.
func (s *ExecutionService) GetByID(ctx context.Context, id uuid.UUID) (*ExecutionResponse, error) {
	execution, err := s.executions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToExecutionResponse(execution)
	return &resp, nil
}

// List retrieves executions matching the filter, newest first.
func (s *ExecutionService) List(ctx context.Context, filter ExecutionListFilter) ([]ExecutionResponse, error) {
	executions, err := s.executions.List(ctx, sync.ExecutionFilter{
		ConfigurationID: filter.ConfigurationID,
		Status:          filter.Status,
		Limit:           filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	responses := make([]ExecutionResponse, 0, len(executions))
	for i := range executions {
		responses = append(responses, ToExecutionResponse(&executions[i]))
	}
	return responses, nil
}

// ListRunning retrieves executions not yet in a terminal state.
func (s *ExecutionService) ListRunning(ctx context.Context) ([]ExecutionResponse, error) {
	executions, err := s.executions.FindRunning(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]ExecutionResponse, 0, len(executions))
	for i := range executions {
		responses = append(responses, ToExecutionResponse(&executions[i]))
	}
	return responses, nil
}

// Cancel requests cooperative cancellation of an in-flight run. The
// execution transitions to CANCELLED once its workers observe the request.
func (s *ExecutionService) Cancel(ctx context.Context, id uuid.UUID) error {
	execution, err := s.executions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if execution.Status.IsTerminal() {
		return sync.ErrExecutionAlreadyFinalized
	}
	return s.canceller.CancelExecution(id)
}

// RecoverInterrupted marks executions left in PENDING or RUNNING state by a
// previous process as failed. Called once on startup, before the scheduler
// or the HTTP surface can produce new runs.
func (s *ExecutionService) RecoverInterrupted(ctx context.Context) error {
	executions, err := s.executions.FindRunning(ctx)
	if err != nil {
		return err
	}
	for i := range executions {
		execution := &executions[i]
		if err := execution.Fail("interrupted by engine restart", execution.StoreResults); err != nil {
			continue
		}
		if err := s.executions.Update(ctx, execution); err != nil {
			s.logger.Error("Failed to recover interrupted execution",
				zap.String("execution_id", execution.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.logger.Warn("Recovered interrupted execution",
			zap.String("execution_id", execution.ID.String()),
		)
	}
	return nil
}
