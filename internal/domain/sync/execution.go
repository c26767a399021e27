package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ExecutionStatus represents the lifecycle state of a run
// ---------------------------------------------------------------------------

// ExecutionStatus represents the lifecycle state of a run
type ExecutionStatus string

const (
	// ExecutionStatusPending indicates the execution was created but store
	// processing has not begun
	ExecutionStatusPending ExecutionStatus = "PENDING"
	// ExecutionStatusRunning indicates store processing is underway
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	// ExecutionStatusSuccess indicates every store step ended SUCCESS or SKIPPED
	ExecutionStatusSuccess ExecutionStatus = "SUCCESS"
	// ExecutionStatusPartial indicates at least one store succeeded and at least one failed
	ExecutionStatusPartial ExecutionStatus = "PARTIAL"
	// ExecutionStatusFailed indicates every non-skipped store failed
	ExecutionStatusFailed ExecutionStatus = "FAILED"
	// ExecutionStatusCancelled indicates the run was cancelled before natural completion
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsValid returns true if the status is valid
func (s ExecutionStatus) IsValid() bool {
	switch s {
	case ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusSuccess,
		ExecutionStatusPartial, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of ExecutionStatus
func (s ExecutionStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a final state
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusPartial, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// StoreStepStatus represents the terminal sub-state of one store step
// ---------------------------------------------------------------------------

// StoreStepStatus represents the terminal sub-state of one store step
type StoreStepStatus string

const (
	// StoreStepStatusSuccess indicates every batch for the store was uploaded
	StoreStepStatusSuccess StoreStepStatus = "SUCCESS"
	// StoreStepStatusPartial indicates some but not all batches were uploaded
	StoreStepStatusPartial StoreStepStatus = "PARTIAL"
	// StoreStepStatusFailed indicates no batch was uploaded for the store
	StoreStepStatusFailed StoreStepStatus = "FAILED"
	// StoreStepStatusSkipped indicates the store was not processed (inactive)
	StoreStepStatusSkipped StoreStepStatus = "SKIPPED"
)

// String returns the string representation of StoreStepStatus
func (s StoreStepStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// StoreSyncResult
// ---------------------------------------------------------------------------

// StoreSyncResult is the terminal outcome of processing one store within a
// run.
type StoreSyncResult struct {
	// StoreID is the processed store's ID
	StoreID uuid.UUID `json:"store_id"`
	// StoreReg is the processed store's registration
	StoreReg string `json:"store_reg"`
	// Status is the terminal sub-state of the step
	Status StoreStepStatus `json:"status"`
	// Fetched is the number of records retrieved from the source
	Fetched int `json:"fetched"`
	// Sent is the number of records successfully uploaded to the target
	Sent int `json:"sent"`
	// Comparison is the divergence snapshot, when comparison ran
	Comparison *ComparisonResult `json:"comparison,omitempty"`
	// Error describes the first unrecoverable failure, if any
	Error string `json:"error,omitempty"`
	// Duration is how long the step took
	Duration time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// ExecutionSummary
// ---------------------------------------------------------------------------

// ExecutionSummary aggregates per-store results into the run's audit record.
type ExecutionSummary struct {
	// TotalStores is the number of stores the run covered
	TotalStores int `json:"total_stores"`
	// ProductsFetched is the total number of records fetched from the source
	ProductsFetched int `json:"products_fetched"`
	// ProductsSent is the total number of records uploaded to the target
	ProductsSent int `json:"products_sent"`
	// Errors is the number of stores that recorded a failure
	Errors int `json:"errors"`
}

// SummarizeStoreResults folds store results into a summary. Counts from
// failed stores are preserved: a partially uploaded store still contributes
// its sent records.
func SummarizeStoreResults(results []StoreSyncResult) ExecutionSummary {
	summary := ExecutionSummary{TotalStores: len(results)}
	for i := range results {
		r := &results[i]
		summary.ProductsFetched += r.Fetched
		summary.ProductsSent += r.Sent
		if r.Status == StoreStepStatusFailed || r.Status == StoreStepStatusPartial {
			summary.Errors++
		}
	}
	return summary
}

// DeriveRunStatus maps a set of terminal store results to the run's terminal
// status: SUCCESS iff every step is SUCCESS or SKIPPED, FAILED iff every
// non-skipped step failed, PARTIAL otherwise.
func DeriveRunStatus(results []StoreSyncResult) ExecutionStatus {
	succeeded := 0
	failed := 0
	for i := range results {
		switch results[i].Status {
		case StoreStepStatusSuccess:
			succeeded++
		case StoreStepStatusFailed:
			failed++
		case StoreStepStatusPartial:
			// A partial store counts on both sides of the ledger.
			succeeded++
			failed++
		}
	}
	switch {
	case failed == 0:
		return ExecutionStatusSuccess
	case succeeded == 0:
		return ExecutionStatusFailed
	default:
		return ExecutionStatusPartial
	}
}

// Trigger values recorded on an execution.
const (
	// TriggerManual marks a run started through the API
	TriggerManual = "manual"
	// TriggerScheduled marks a run started by the cron scheduler
	TriggerScheduled = "scheduled"
)

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Execution is one run of a configuration (or an ad-hoc manual request).
// It is created at run start, mutated only by the orchestrator, and immutable
// once terminal.
type Execution struct {
	// ID is the unique identifier of the execution
	ID uuid.UUID
	// ConfigurationID references the configuration that produced this run;
	// nil for ad-hoc manual requests
	ConfigurationID *uuid.UUID
	// Trigger records how the run was started ("manual" or "scheduled")
	Trigger string
	// Status is the current lifecycle state
	Status ExecutionStatus
	// StartedAt is when store processing began
	StartedAt *time.Time
	// FinishedAt is when the run reached a terminal state
	FinishedAt *time.Time
	// StoreResults holds the terminal outcome of every store step
	StoreResults []StoreSyncResult
	// Summary aggregates the store results; populated only at finalization
	Summary ExecutionSummary
	// Error describes a run-level failure (configuration problems, timeout)
	Error string
	// CreatedAt is when the execution record was created
	CreatedAt time.Time
	// UpdatedAt is when the execution record was last written
	UpdatedAt time.Time
}

// NewExecution creates an execution in PENDING state.
func NewExecution(configurationID *uuid.UUID, trigger string) *Execution {
	now := time.Now()
	return &Execution{
		ID:              uuid.New(),
		ConfigurationID: configurationID,
		Trigger:         trigger,
		Status:          ExecutionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Start transitions PENDING -> RUNNING.
func (e *Execution) Start() error {
	if e.Status != ExecutionStatusPending {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
	e.UpdatedAt = now
	return nil
}

// Finalize transitions RUNNING to the terminal status derived from the store
// results, recording the summary in the same write. No partial summaries
// exist before this point.
func (e *Execution) Finalize(results []StoreSyncResult) error {
	if e.Status.IsTerminal() {
		return ErrExecutionAlreadyFinalized
	}
	if e.Status != ExecutionStatusRunning {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	e.StoreResults = results
	e.Summary = SummarizeStoreResults(results)
	e.Status = DeriveRunStatus(results)
	e.FinishedAt = &now
	e.UpdatedAt = now
	return nil
}

// Cancel transitions a non-terminal execution to CANCELLED, keeping whatever
// store results completed before the cancellation was observed.
func (e *Execution) Cancel(results []StoreSyncResult) error {
	if e.Status.IsTerminal() {
		return ErrExecutionAlreadyFinalized
	}
	now := time.Now()
	e.StoreResults = results
	e.Summary = SummarizeStoreResults(results)
	e.Status = ExecutionStatusCancelled
	e.FinishedAt = &now
	e.UpdatedAt = now
	return nil
}

// Fail transitions a non-terminal execution to FAILED with a run-level error
// (configuration problems caught before any store was processed, or timeout
// with no successful store).
func (e *Execution) Fail(reason string, results []StoreSyncResult) error {
	if e.Status.IsTerminal() {
		return ErrExecutionAlreadyFinalized
	}
	now := time.Now()
	e.StoreResults = results
	e.Summary = SummarizeStoreResults(results)
	e.Status = ExecutionStatusFailed
	e.Error = reason
	e.FinishedAt = &now
	e.UpdatedAt = now
	return nil
}

// Duration returns how long the run took, or zero if it never started.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// ---------------------------------------------------------------------------
// ExecutionRepository
// ---------------------------------------------------------------------------

// ExecutionFilter defines filter criteria for listing executions.
type ExecutionFilter struct {
	// ConfigurationID filters by configuration (optional)
	ConfigurationID *uuid.UUID
	// Status filters by lifecycle state (optional)
	Status *ExecutionStatus
	// Limit caps the number of returned records (0 = repository default)
	Limit int
}

// ExecutionRepository persists the lifecycle of runs. Every transition is
// written through this interface so a crash mid-run leaves the last durable
// state as RUNNING rather than silently lost.
type ExecutionRepository interface {
	// Create persists a new execution
	Create(ctx context.Context, execution *Execution) error

	// Update persists a state transition
	Update(ctx context.Context, execution *Execution) error

	// FindByID finds an execution by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Execution, error)

	// FindRunning returns executions currently in RUNNING or PENDING state
	FindRunning(ctx context.Context) ([]Execution, error)

	// FindRunningByConfiguration returns the in-flight execution for a
	// configuration, or nil when none is active
	FindRunningByConfiguration(ctx context.Context, configurationID uuid.UUID) (*Execution, error)

	// List returns executions matching the filter, newest first
	List(ctx context.Context, filter ExecutionFilter) ([]Execution, error)
}
