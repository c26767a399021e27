package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/promosync/backend/internal/domain/sync"
)

// ==================== Execute DTOs ====================

// ExecuteSyncRequest represents a request to start a sync run. Option fields
// are pointers so the configuration's stored options apply when unset.
type ExecuteSyncRequest struct {
	ConfigurationID uuid.UUID `json:"configuration_id" binding:"required"`
	// StoreIDs narrows the run to a subset of the configuration's stores
	StoreIDs []uuid.UUID `json:"store_ids"`
	// ForceSync starts the run even when one is already in progress
	ForceSync bool `json:"force_sync"`
	// SkipComparison overrides the configuration's skip_comparison option
	SkipComparison *bool `json:"skip_comparison"`
	// BatchSize overrides the configuration's batch_size option
	BatchSize *int `json:"batch_size" binding:"omitempty,min=1,max=1000"`
	// MaxRetries overrides the configuration's max_retries option
	MaxRetries *int `json:"max_retries" binding:"omitempty,min=0,max=10"`
}

// ==================== Execution DTOs ====================

// ExecutionListFilter represents filter options for the execution list
type ExecutionListFilter struct {
	ConfigurationID *uuid.UUID            `form:"configuration_id"`
	Status          *sync.ExecutionStatus `form:"status"`
	Limit           int                   `form:"limit" binding:"omitempty,min=1,max=200"`
}

// StoreResultResponse represents one store's outcome in API responses
type StoreResultResponse struct {
	StoreID     uuid.UUID              `json:"store_id"`
	StoreReg    string                 `json:"store_reg"`
	Status      string                 `json:"status"`
	Fetched     int                    `json:"fetched"`
	Sent        int                    `json:"sent"`
	Comparison  *sync.ComparisonResult `json:"comparison,omitempty"`
	Error       string                 `json:"error,omitempty"`
	DurationMs  int64                  `json:"duration_ms"`
}

// ExecutionResponse represents an execution in API responses
type ExecutionResponse struct {
	ID              uuid.UUID             `json:"id"`
	ConfigurationID *uuid.UUID            `json:"configuration_id,omitempty"`
	Trigger         string                `json:"trigger"`
	Status          string                `json:"status"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	FinishedAt      *time.Time            `json:"finished_at,omitempty"`
	StoreResults    []StoreResultResponse `json:"store_results,omitempty"`
	Summary         sync.ExecutionSummary `json:"summary"`
	Error           string                `json:"error,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// ToExecutionResponse converts a domain execution to its API representation
func ToExecutionResponse(e *sync.Execution) ExecutionResponse {
	resp := ExecutionResponse{
		ID:              e.ID,
		ConfigurationID: e.ConfigurationID,
		Trigger:         e.Trigger,
		Status:          e.Status.String(),
		StartedAt:       e.StartedAt,
		FinishedAt:      e.FinishedAt,
		Summary:         e.Summary,
		Error:           e.Error,
		CreatedAt:       e.CreatedAt,
	}
	for i := range e.StoreResults {
		r := &e.StoreResults[i]
		resp.StoreResults = append(resp.StoreResults, StoreResultResponse{
			StoreID:    r.StoreID,
			StoreReg:   r.StoreReg,
			Status:     r.Status.String(),
			Fetched:    r.Fetched,
			Sent:       r.Sent,
			Comparison: r.Comparison,
			Error:      r.Error,
			DurationMs: r.Duration.Milliseconds(),
		})
	}
	return resp
}
