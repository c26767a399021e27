package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// StoreStep
// ---------------------------------------------------------------------------

// StoreStep processes one store within a run: fetch from the source, compare
// against the target, upload in batches, apply the cleanup policy. Every
// step always produces a terminal StoreSyncResult; errors are folded into the
// result instead of propagating, so one store can never abort its siblings.
type StoreStep struct {
	source     sync.SourceGateway
	target     sync.TargetGateway
	comparator *sync.Comparator
	options    sync.SyncOptions
	logger     *zap.Logger
}

// NewStoreStep creates a store step bound to one run's gateways and options.
func NewStoreStep(
	source sync.SourceGateway,
	target sync.TargetGateway,
	comparator *sync.Comparator,
	options sync.SyncOptions,
	logger *zap.Logger,
) *StoreStep {
	return &StoreStep{
		source:     source,
		target:     target,
		comparator: comparator,
		options:    options,
		logger:     logger,
	}
}

// Run processes a single store to completion.
func (s *StoreStep) Run(ctx context.Context, store sync.Store) sync.StoreSyncResult {
	started := time.Now()
	result := sync.StoreSyncResult{
		StoreID:  store.ID,
		StoreReg: store.Registration,
	}

	if !store.Active {
		result.Status = sync.StoreStepStatusSkipped
		result.Error = sync.ErrStoreInactive.Error()
		result.Duration = time.Since(started)
		s.logger.Info("Store skipped",
			zap.String("store_reg", store.Registration),
			zap.String("reason", "inactive"),
		)
		return result
	}

	// Fetch phase
	records, err := s.fetchSource(ctx, store.Registration)
	if err != nil {
		result.Status = sync.StoreStepStatusFailed
		result.Error = err.Error()
		result.Duration = time.Since(started)
		s.logger.Error("Store fetch failed",
			zap.String("store_reg", store.Registration),
			zap.Error(err),
		)
		return result
	}
	result.Fetched = len(records)

	// Comparison phase. The target snapshot is also reused by the cleanup
	// policies further down. A failure here degrades the step (no diff, no
	// cleanup input) but does not fail it.
	var existing []sync.ProductRecord
	var haveExisting bool
	if !s.options.SkipComparison || s.options.Cleanup != sync.CleanupPolicyNone {
		existing, err = s.fetchTarget(ctx, store.Registration)
		if err != nil {
			s.logger.Warn("Target snapshot unavailable, skipping comparison",
				zap.String("store_reg", store.Registration),
				zap.Error(err),
			)
		} else {
			haveExisting = true
		}
	}
	if !s.options.SkipComparison && haveExisting {
		result.Comparison = s.comparator.Diff(store.Registration, records, existing)
		s.logger.Info("Store comparison computed",
			zap.String("store_reg", store.Registration),
			zap.Int("total_differences", result.Comparison.TotalDifferences()),
			zap.String("severity", result.Comparison.Severity.String()),
		)
	}

	// Upload phase
	batches := sync.PartitionRecords(records, s.options.BatchSize)
	succeeded := 0
	for i, batch := range batches {
		if ctx.Err() != nil {
			result.Error = "cancelled before batch upload: " + ctx.Err().Error()
			break
		}
		if err := s.sendBatch(ctx, store.Registration, batch); err != nil {
			if result.Error == "" {
				result.Error = err.Error()
			}
			s.logger.Error("Batch upload failed",
				zap.String("store_reg", store.Registration),
				zap.Int("batch", i+1),
				zap.Int("batches", len(batches)),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}
		succeeded++
		result.Sent += len(batch)
	}

	switch {
	case len(batches) == 0 || succeeded == len(batches):
		result.Status = sync.StoreStepStatusSuccess
	case succeeded > 0:
		result.Status = sync.StoreStepStatusPartial
	default:
		result.Status = sync.StoreStepStatusFailed
	}

	// Cleanup phase. Runs only for fully uploaded stores; a cleanup failure
	// is recorded but never demotes the step status.
	if result.Status == sync.StoreStepStatusSuccess && s.options.Cleanup != sync.CleanupPolicyNone && haveExisting {
		if err := s.cleanup(ctx, store.Registration, records, existing); err != nil {
			result.Error = "cleanup: " + err.Error()
			s.logger.Warn("Cleanup failed",
				zap.String("store_reg", store.Registration),
				zap.String("policy", s.options.Cleanup.String()),
				zap.Error(err),
			)
		}
	}

	result.Duration = time.Since(started)
	s.logger.Info("Store step finished",
		zap.String("store_reg", store.Registration),
		zap.String("status", result.Status.String()),
		zap.Int("fetched", result.Fetched),
		zap.Int("sent", result.Sent),
		zap.Duration("duration", result.Duration),
	)
	return result
}

// fetchSource retrieves the full source snapshot with retries.
func (s *StoreStep) fetchSource(ctx context.Context, storeReg string) ([]sync.ProductRecord, error) {
	var records []sync.ProductRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.source.FetchAll(ctx, storeReg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// fetchTarget retrieves the target's current snapshot with retries.
func (s *StoreStep) fetchTarget(ctx context.Context, storeReg string) ([]sync.ProductRecord, error) {
	var records []sync.ProductRecord
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.target.FetchExisting(ctx, storeReg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// sendBatch uploads one batch with retries. Every attempt carries the
// identical payload.
func (s *StoreStep) sendBatch(ctx context.Context, storeReg string, batch []sync.ProductRecord) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.target.SendBatch(ctx, storeReg, batch)
		return err
	})
}

// cleanup applies the configured retention policy using the source and
// target snapshots already in hand.
func (s *StoreStep) cleanup(ctx context.Context, storeReg string, source, existing []sync.ProductRecord) error {
	var codes []string
	switch s.options.Cleanup {
	case sync.CleanupPolicyExpiredOnly:
		now := time.Now()
		for i := range existing {
			if !existing[i].IsActiveAt(now) {
				codes = append(codes, existing[i].Code)
			}
		}
	case sync.CleanupPolicyAbsentFromSource:
		sourceKeys := make(map[sync.RecordKey]struct{}, len(source))
		for i := range source {
			sourceKeys[source[i].Key()] = struct{}{}
		}
		for i := range existing {
			if _, ok := sourceKeys[existing[i].Key()]; !ok {
				codes = append(codes, existing[i].Code)
			}
		}
	default:
		return nil
	}

	if len(codes) == 0 {
		return nil
	}
	s.logger.Info("Deactivating stale target records",
		zap.String("store_reg", storeReg),
		zap.String("policy", s.options.Cleanup.String()),
		zap.Int("count", len(codes)),
	)
	return s.target.DeactivateProducts(ctx, storeReg, codes)
}

// withRetry runs op up to MaxRetries+1 times with a fixed delay between
// attempts. Permanent errors and context cancellation abort immediately.
func (s *StoreStep) withRetry(ctx context.Context, op func(context.Context) error) error {
	attempts := s.options.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.options.RetryDelay):
			}
		}
		if err = op(ctx); err == nil {
			return nil
		}
		if !sync.IsRetryable(err) {
			return err
		}
		if attempt < attempts {
			s.logger.Warn("Retryable operation failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err),
			)
		}
	}
	return err
}
