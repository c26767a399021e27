package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Gateway fakes
// ---------------------------------------------------------------------------

type fakeSourceGateway struct {
	records    []sync.ProductRecord
	errs       []error // consumed one per FetchAll call; exhausted means success
	calls      int
	onFetchAll func(ctx context.Context)
}

func (f *fakeSourceGateway) Authenticate(ctx context.Context) (string, error) {
	return "token", nil
}

func (f *fakeSourceGateway) FetchPage(ctx context.Context, storeReg string, cursor int64) (*sync.SourcePage, error) {
	return &sync.SourcePage{Records: f.records}, nil
}

func (f *fakeSourceGateway) FetchAll(ctx context.Context, storeReg string) ([]sync.ProductRecord, error) {
	idx := f.calls
	f.calls++
	if f.onFetchAll != nil {
		f.onFetchAll(ctx)
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	return f.records, nil
}

type fakeTargetGateway struct {
	existing      []sync.ProductRecord
	existingErr   error
	existingCalls int

	sendErrs  []error // consumed one per SendBatch call; exhausted means success
	sendCalls int
	batches   [][]sync.ProductRecord

	deactivated   []string
	deactivateErr error
}

func (f *fakeTargetGateway) FetchExisting(ctx context.Context, storeReg string) ([]sync.ProductRecord, error) {
	f.existingCalls++
	if f.existingErr != nil {
		return nil, f.existingErr
	}
	return f.existing, nil
}

func (f *fakeTargetGateway) SendBatch(ctx context.Context, storeReg string, records []sync.ProductRecord) (*sync.BatchResult, error) {
	idx := f.sendCalls
	f.sendCalls++
	f.batches = append(f.batches, append([]sync.ProductRecord(nil), records...))
	if idx < len(f.sendErrs) && f.sendErrs[idx] != nil {
		return nil, f.sendErrs[idx]
	}
	return &sync.BatchResult{Accepted: len(records)}, nil
}

func (f *fakeTargetGateway) DeactivateProducts(ctx context.Context, storeReg string, codes []string) error {
	f.deactivated = append(f.deactivated, codes...)
	return f.deactivateErr
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func activeStore() sync.Store {
	return sync.Store{ID: uuid.New(), Registration: "001", Name: "Store 001", Active: true}
}

func sourceRecord(code string) sync.ProductRecord {
	return sync.ProductRecord{
		Code:       code,
		StoreID:    "001",
		Price:      decimal.RequireFromString("10.00"),
		FinalPrice: decimal.RequireFromString("8.00"),
	}
}

func testOptions() sync.SyncOptions {
	return sync.SyncOptions{
		BatchSize:        100,
		MaxRetries:       0,
		RetryDelay:       time.Millisecond,
		Cleanup:          sync.CleanupPolicyNone,
		MaxExecutionTime: time.Minute,
	}
}

func newTestStep(source sync.SourceGateway, target sync.TargetGateway, options sync.SyncOptions) *StoreStep {
	comparator := sync.NewComparator(sync.DefaultComparatorThresholds())
	return NewStoreStep(source, target, comparator, options, zap.NewNop())
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestStoreStep_SkipsInactiveStore(t *testing.T) {
	source := &fakeSourceGateway{}
	target := &fakeTargetGateway{}
	step := newTestStep(source, target, testOptions())

	store := activeStore()
	store.Active = false
	result := step.Run(context.Background(), store)

	assert.Equal(t, sync.StoreStepStatusSkipped, result.Status)
	assert.Contains(t, result.Error, "not active")
	assert.Zero(t, source.calls)
	assert.Zero(t, target.sendCalls)
}

func TestStoreStep_FetchFailure(t *testing.T) {
	t.Run("permanent failure fails immediately", func(t *testing.T) {
		source := &fakeSourceGateway{errs: []error{&sync.PaginationOverrunError{StoreReg: "001", Limit: 100}}}
		target := &fakeTargetGateway{}
		options := testOptions()
		options.MaxRetries = 3
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusFailed, result.Status)
		assert.Equal(t, 1, source.calls, "permanent errors are not retried")
		assert.Zero(t, result.Fetched)
		assert.Zero(t, target.sendCalls)
	})

	t.Run("transient failure is retried until success", func(t *testing.T) {
		transient := &sync.SourceFetchError{StoreReg: "001", Err: errors.New("reset")}
		source := &fakeSourceGateway{
			records: []sync.ProductRecord{sourceRecord("SKU-1")},
			errs:    []error{transient, transient},
		}
		target := &fakeTargetGateway{}
		options := testOptions()
		options.MaxRetries = 2
		options.SkipComparison = true
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusSuccess, result.Status)
		assert.Equal(t, 3, source.calls)
		assert.Equal(t, 1, result.Fetched)
		assert.Equal(t, 1, result.Sent)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		transient := &sync.SourceFetchError{StoreReg: "001", Err: errors.New("reset")}
		source := &fakeSourceGateway{errs: []error{transient, transient, transient}}
		target := &fakeTargetGateway{}
		options := testOptions()
		options.MaxRetries = 2
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusFailed, result.Status)
		assert.Equal(t, 3, source.calls, "initial attempt plus max_retries")
		assert.Contains(t, result.Error, "source fetch failed")
	})
}

func TestStoreStep_Upload(t *testing.T) {
	records := []sync.ProductRecord{
		sourceRecord("SKU-1"), sourceRecord("SKU-2"),
		sourceRecord("SKU-3"), sourceRecord("SKU-4"),
	}

	t.Run("failed batch is retried with the identical payload", func(t *testing.T) {
		source := &fakeSourceGateway{records: records}
		target := &fakeTargetGateway{
			sendErrs: []error{&sync.TargetUploadError{StoreReg: "001", Batch: records, Err: errors.New("503")}},
		}
		options := testOptions()
		options.MaxRetries = 1
		options.SkipComparison = true
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusSuccess, result.Status)
		require.Equal(t, 2, target.sendCalls)
		assert.Equal(t, target.batches[0], target.batches[1], "retry must carry the same payload")
		assert.Equal(t, 4, result.Sent)
	})

	t.Run("one failing batch yields a partial step", func(t *testing.T) {
		source := &fakeSourceGateway{records: records}
		target := &fakeTargetGateway{
			sendErrs: []error{nil, errors.New("rejected")},
		}
		options := testOptions()
		options.BatchSize = 2
		options.SkipComparison = true
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusPartial, result.Status)
		assert.Equal(t, 4, result.Fetched)
		assert.Equal(t, 2, result.Sent, "the successful batch still counts")
		assert.Contains(t, result.Error, "rejected")
	})

	t.Run("every batch failing fails the step", func(t *testing.T) {
		source := &fakeSourceGateway{records: records}
		target := &fakeTargetGateway{
			sendErrs: []error{errors.New("down"), errors.New("down")},
		}
		options := testOptions()
		options.BatchSize = 2
		options.SkipComparison = true
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusFailed, result.Status)
		assert.Zero(t, result.Sent)
	})

	t.Run("empty source snapshot succeeds with nothing to send", func(t *testing.T) {
		source := &fakeSourceGateway{}
		target := &fakeTargetGateway{}
		options := testOptions()
		options.SkipComparison = true
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusSuccess, result.Status)
		assert.Zero(t, target.sendCalls)
	})

	t.Run("cancellation stops batching", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		source := &fakeSourceGateway{
			records:    records,
			onFetchAll: func(context.Context) { cancel() },
		}
		target := &fakeTargetGateway{}
		options := testOptions()
		options.SkipComparison = true
		step := newTestStep(source, target, options)

		result := step.Run(ctx, activeStore())

		assert.Equal(t, sync.StoreStepStatusFailed, result.Status)
		assert.Zero(t, target.sendCalls)
		assert.Contains(t, result.Error, "cancelled before batch upload")
	})
}

func TestStoreStep_Comparison(t *testing.T) {
	t.Run("diff is recorded against the target snapshot", func(t *testing.T) {
		source := &fakeSourceGateway{records: []sync.ProductRecord{sourceRecord("SKU-1"), sourceRecord("SKU-2")}}
		target := &fakeTargetGateway{existing: []sync.ProductRecord{sourceRecord("SKU-1")}}
		step := newTestStep(source, target, testOptions())

		result := step.Run(context.Background(), activeStore())

		require.NotNil(t, result.Comparison)
		assert.Len(t, result.Comparison.MissingInTarget, 1)
		assert.Equal(t, "SKU-2", result.Comparison.MissingInTarget[0].Code)
		assert.Equal(t, 1, target.existingCalls)
	})

	t.Run("skip comparison avoids the target fetch", func(t *testing.T) {
		source := &fakeSourceGateway{records: []sync.ProductRecord{sourceRecord("SKU-1")}}
		target := &fakeTargetGateway{}
		options := testOptions()
		options.SkipComparison = true
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Nil(t, result.Comparison)
		assert.Zero(t, target.existingCalls)
	})

	t.Run("unreachable target snapshot degrades without failing", func(t *testing.T) {
		source := &fakeSourceGateway{records: []sync.ProductRecord{sourceRecord("SKU-1")}}
		target := &fakeTargetGateway{existingErr: errors.New("timeout")}
		step := newTestStep(source, target, testOptions())

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusSuccess, result.Status)
		assert.Nil(t, result.Comparison)
		assert.Equal(t, 1, result.Sent)
	})
}

func TestStoreStep_Cleanup(t *testing.T) {
	now := time.Now()

	t.Run("expired only deactivates lapsed target records", func(t *testing.T) {
		expired := sourceRecord("SKU-OLD")
		expired.ExpiresAt = now.Add(-time.Hour)
		live := sourceRecord("SKU-1")
		live.ExpiresAt = now.Add(time.Hour)

		source := &fakeSourceGateway{records: []sync.ProductRecord{live}}
		target := &fakeTargetGateway{existing: []sync.ProductRecord{live, expired}}
		options := testOptions()
		options.Cleanup = sync.CleanupPolicyExpiredOnly
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusSuccess, result.Status)
		assert.Equal(t, []string{"SKU-OLD"}, target.deactivated)
	})

	t.Run("absent from source deactivates orphaned target records", func(t *testing.T) {
		kept := sourceRecord("SKU-1")
		orphan := sourceRecord("SKU-GONE")

		source := &fakeSourceGateway{records: []sync.ProductRecord{kept}}
		target := &fakeTargetGateway{existing: []sync.ProductRecord{kept, orphan}}
		options := testOptions()
		options.Cleanup = sync.CleanupPolicyAbsentFromSource
		step := newTestStep(source, target, options)

		step.Run(context.Background(), activeStore())

		assert.Equal(t, []string{"SKU-GONE"}, target.deactivated)
	})

	t.Run("nothing stale means no deactivation call", func(t *testing.T) {
		kept := sourceRecord("SKU-1")
		source := &fakeSourceGateway{records: []sync.ProductRecord{kept}}
		target := &fakeTargetGateway{existing: []sync.ProductRecord{kept}}
		options := testOptions()
		options.Cleanup = sync.CleanupPolicyAbsentFromSource
		step := newTestStep(source, target, options)

		step.Run(context.Background(), activeStore())

		assert.Empty(t, target.deactivated)
	})

	t.Run("cleanup failure never demotes a successful step", func(t *testing.T) {
		orphan := sourceRecord("SKU-GONE")
		source := &fakeSourceGateway{records: []sync.ProductRecord{sourceRecord("SKU-1")}}
		target := &fakeTargetGateway{
			existing:      []sync.ProductRecord{orphan},
			deactivateErr: errors.New("409"),
		}
		options := testOptions()
		options.Cleanup = sync.CleanupPolicyAbsentFromSource
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusSuccess, result.Status)
		assert.Contains(t, result.Error, "cleanup:")
	})

	t.Run("cleanup is skipped for partial steps", func(t *testing.T) {
		records := []sync.ProductRecord{sourceRecord("SKU-1"), sourceRecord("SKU-2")}
		source := &fakeSourceGateway{records: records}
		target := &fakeTargetGateway{
			existing: []sync.ProductRecord{sourceRecord("SKU-GONE")},
			sendErrs: []error{nil, errors.New("rejected")},
		}
		options := testOptions()
		options.BatchSize = 1
		options.Cleanup = sync.CleanupPolicyAbsentFromSource
		step := newTestStep(source, target, options)

		result := step.Run(context.Background(), activeStore())

		assert.Equal(t, sync.StoreStepStatusPartial, result.Status)
		assert.Empty(t, target.deactivated)
	})
}
