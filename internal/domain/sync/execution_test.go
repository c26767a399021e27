package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionStatus(t *testing.T) {
	t.Run("validity", func(t *testing.T) {
		for _, s := range []ExecutionStatus{
			ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusSuccess,
			ExecutionStatusPartial, ExecutionStatusFailed, ExecutionStatusCancelled,
		} {
			assert.True(t, s.IsValid(), s.String())
		}
		assert.False(t, ExecutionStatus("DONE").IsValid())
	})

	t.Run("terminal states", func(t *testing.T) {
		assert.False(t, ExecutionStatusPending.IsTerminal())
		assert.False(t, ExecutionStatusRunning.IsTerminal())
		assert.True(t, ExecutionStatusSuccess.IsTerminal())
		assert.True(t, ExecutionStatusPartial.IsTerminal())
		assert.True(t, ExecutionStatusFailed.IsTerminal())
		assert.True(t, ExecutionStatusCancelled.IsTerminal())
	})
}

func storeResult(status StoreStepStatus, fetched, sent int) StoreSyncResult {
	return StoreSyncResult{
		StoreID:  uuid.New(),
		StoreReg: "001",
		Status:   status,
		Fetched:  fetched,
		Sent:     sent,
	}
}

func TestSummarizeStoreResults(t *testing.T) {
	results := []StoreSyncResult{
		storeResult(StoreStepStatusSuccess, 100, 100),
		storeResult(StoreStepStatusPartial, 80, 40),
		storeResult(StoreStepStatusFailed, 50, 0),
		storeResult(StoreStepStatusSkipped, 0, 0),
	}

	summary := SummarizeStoreResults(results)

	assert.Equal(t, 4, summary.TotalStores)
	assert.Equal(t, 230, summary.ProductsFetched)
	assert.Equal(t, 140, summary.ProductsSent, "partial uploads still count toward sent")
	assert.Equal(t, 2, summary.Errors, "partial and failed stores both count as errors")
}

func TestDeriveRunStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []StoreStepStatus
		want     ExecutionStatus
	}{
		{"all success", []StoreStepStatus{StoreStepStatusSuccess, StoreStepStatusSuccess}, ExecutionStatusSuccess},
		{"success and skipped", []StoreStepStatus{StoreStepStatusSuccess, StoreStepStatusSkipped}, ExecutionStatusSuccess},
		{"only skipped", []StoreStepStatus{StoreStepStatusSkipped}, ExecutionStatusSuccess},
		{"no stores", nil, ExecutionStatusSuccess},
		{"all failed", []StoreStepStatus{StoreStepStatusFailed, StoreStepStatusFailed}, ExecutionStatusFailed},
		{"failed and skipped", []StoreStepStatus{StoreStepStatusFailed, StoreStepStatusSkipped}, ExecutionStatusFailed},
		{"mixed outcome", []StoreStepStatus{StoreStepStatusSuccess, StoreStepStatusFailed}, ExecutionStatusPartial},
		{"single partial store", []StoreStepStatus{StoreStepStatusPartial}, ExecutionStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]StoreSyncResult, len(tt.statuses))
			for i, s := range tt.statuses {
				results[i] = storeResult(s, 0, 0)
			}
			assert.Equal(t, tt.want, DeriveRunStatus(results))
		})
	}
}

func TestExecution_Lifecycle(t *testing.T) {
	t.Run("new execution starts pending", func(t *testing.T) {
		configID := uuid.New()
		execution := NewExecution(&configID, TriggerScheduled)

		assert.NotEqual(t, uuid.Nil, execution.ID)
		assert.Equal(t, ExecutionStatusPending, execution.Status)
		assert.Equal(t, TriggerScheduled, execution.Trigger)
		require.NotNil(t, execution.ConfigurationID)
		assert.Equal(t, configID, *execution.ConfigurationID)
		assert.Nil(t, execution.StartedAt)
	})

	t.Run("ad hoc execution has no configuration", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)
		assert.Nil(t, execution.ConfigurationID)
	})

	t.Run("start transitions pending to running", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)

		require.NoError(t, execution.Start())
		assert.Equal(t, ExecutionStatusRunning, execution.Status)
		assert.NotNil(t, execution.StartedAt)

		assert.ErrorIs(t, execution.Start(), ErrInvalidStatusTransition)
	})

	t.Run("finalize records summary and terminal status", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)
		require.NoError(t, execution.Start())

		results := []StoreSyncResult{
			storeResult(StoreStepStatusSuccess, 10, 10),
			storeResult(StoreStepStatusFailed, 5, 0),
		}
		require.NoError(t, execution.Finalize(results))

		assert.Equal(t, ExecutionStatusPartial, execution.Status)
		assert.Equal(t, 15, execution.Summary.ProductsFetched)
		assert.NotNil(t, execution.FinishedAt)
		assert.ErrorIs(t, execution.Finalize(results), ErrExecutionAlreadyFinalized)
	})

	t.Run("finalize requires running", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)
		assert.ErrorIs(t, execution.Finalize(nil), ErrInvalidStatusTransition)
	})

	t.Run("cancel keeps completed store results", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)
		require.NoError(t, execution.Start())

		results := []StoreSyncResult{storeResult(StoreStepStatusSuccess, 10, 10)}
		require.NoError(t, execution.Cancel(results))

		assert.Equal(t, ExecutionStatusCancelled, execution.Status)
		assert.Len(t, execution.StoreResults, 1)
		assert.Equal(t, 10, execution.Summary.ProductsSent)
		assert.ErrorIs(t, execution.Cancel(nil), ErrExecutionAlreadyFinalized)
	})

	t.Run("cancel works from pending", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)
		require.NoError(t, execution.Cancel(nil))
		assert.Equal(t, ExecutionStatusCancelled, execution.Status)
	})

	t.Run("fail records the run level error", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)
		require.NoError(t, execution.Start())

		require.NoError(t, execution.Fail("source integration misconfigured", nil))

		assert.Equal(t, ExecutionStatusFailed, execution.Status)
		assert.Equal(t, "source integration misconfigured", execution.Error)
		assert.ErrorIs(t, execution.Fail("again", nil), ErrExecutionAlreadyFinalized)
	})

	t.Run("duration is zero before completion", func(t *testing.T) {
		execution := NewExecution(nil, TriggerManual)
		assert.Zero(t, execution.Duration())

		require.NoError(t, execution.Start())
		assert.Zero(t, execution.Duration())

		started := execution.StartedAt.Add(-3 * time.Second)
		execution.StartedAt = &started
		require.NoError(t, execution.Finalize(nil))
		assert.GreaterOrEqual(t, execution.Duration(), 3*time.Second)
	})
}
