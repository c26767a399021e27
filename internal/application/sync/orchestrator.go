package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/logger"
)

// ---------------------------------------------------------------------------
// GatewayFactory
// ---------------------------------------------------------------------------

// GatewayFactory builds run-scoped gateways from integration descriptors.
// Implementations live in the infrastructure layer, one per provider.
type GatewayFactory interface {
	// SourceFor builds a source gateway for a SOURCE integration
	SourceFor(integration *sync.Integration) (sync.SourceGateway, error)

	// TargetFor builds a target gateway for a TARGET integration
	TargetFor(integration *sync.Integration) (sync.TargetGateway, error)
}

// ---------------------------------------------------------------------------
// OrchestratorConfig
// ---------------------------------------------------------------------------

// OrchestratorConfig holds the orchestrator's own limits, as opposed to the
// per-configuration SyncOptions.
type OrchestratorConfig struct {
	// MaxWorkers caps the store worker pool regardless of store count
	MaxWorkers int
	// LockMargin is added to max_execution_time when sizing the run lock TTL
	LockMargin time.Duration
	// Thresholds configure comparison severity classification
	Thresholds sync.ComparatorThresholds
}

// DefaultOrchestratorConfig returns default orchestrator limits.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxWorkers: 8,
		LockMargin: time.Minute,
		Thresholds: sync.DefaultComparatorThresholds(),
	}
}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// runHandle tracks one in-flight run so it can be cancelled from the outside.
type runHandle struct {
	cancel    context.CancelFunc
	cancelled bool
}

// Orchestrator drives complete sync runs: it resolves the configuration,
// guards against overlapping runs, fans store steps out over a bounded worker
// pool, and finalizes the execution record exactly once.
type Orchestrator struct {
	config         OrchestratorConfig
	configurations sync.SyncConfigurationRepository
	integrations   sync.IntegrationRepository
	stores         sync.StoreRepository
	executions     sync.ExecutionRepository
	gateways       GatewayFactory
	runLock        sync.RunLock
	notifier       sync.Notifier
	logger         *zap.Logger

	mu   gosync.Mutex
	runs map[uuid.UUID]*runHandle
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	config OrchestratorConfig,
	configurations sync.SyncConfigurationRepository,
	integrations sync.IntegrationRepository,
	stores sync.StoreRepository,
	executions sync.ExecutionRepository,
	gateways GatewayFactory,
	runLock sync.RunLock,
	notifier sync.Notifier,
	logger *zap.Logger,
) *Orchestrator {
	if config.MaxWorkers < 1 {
		config.MaxWorkers = DefaultOrchestratorConfig().MaxWorkers
	}
	if config.LockMargin <= 0 {
		config.LockMargin = DefaultOrchestratorConfig().LockMargin
	}
	return &Orchestrator{
		config:         config,
		configurations: configurations,
		integrations:   integrations,
		stores:         stores,
		executions:     executions,
		gateways:       gateways,
		runLock:        runLock,
		notifier:       notifier,
		logger:         logger,
		runs:           make(map[uuid.UUID]*runHandle),
	}
}

// Execute runs a configuration to completion and returns the finalized
// execution. The caller's context bounds the whole call; max_execution_time
// additionally bounds the store processing phase.
func (o *Orchestrator) Execute(ctx context.Context, req ExecuteSyncRequest, trigger string) (*ExecutionResponse, error) {
	configuration, err := o.configurations.FindByID(ctx, req.ConfigurationID)
	if err != nil {
		return nil, err
	}

	options := o.resolveOptions(configuration, req)

	// Overlap guard: a configuration runs at most once at a time unless the
	// caller forces through.
	if running, err := o.executions.FindRunningByConfiguration(ctx, configuration.ID); err != nil {
		return nil, err
	} else if running != nil && !options.ForceSync {
		return nil, &sync.ConflictError{ExecutionID: running.ID}
	}

	lockTTL := options.MaxExecutionTime + o.config.LockMargin
	acquired, err := o.runLock.Acquire(ctx, configuration.ID, lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired && !options.ForceSync {
		// The durable check above found nothing, so the lock most likely
		// belongs to another replica. Re-query so the conflict can name the
		// blocking execution when its record is visible by now.
		if running, err := o.executions.FindRunningByConfiguration(ctx, configuration.ID); err == nil && running != nil {
			return nil, &sync.ConflictError{ExecutionID: running.ID}
		}
		return nil, sync.ErrRunLockHeld
	}
	if acquired {
		// A forced run that was denied the lock borrows nothing: releasing
		// here would free the lock still guarding the run it forced past.
		defer func() {
			if err := o.runLock.Release(context.WithoutCancel(ctx), configuration.ID); err != nil {
				o.logger.Warn("Failed to release run lock",
					zap.String("configuration_id", configuration.ID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	source, target, err := o.resolveGateways(ctx, configuration)
	if err != nil {
		return nil, err
	}

	stores, err := o.resolveStores(ctx, configuration, req.StoreIDs)
	if err != nil {
		return nil, err
	}

	execution := sync.NewExecution(&configuration.ID, trigger)
	if err := o.executions.Create(ctx, execution); err != nil {
		return nil, err
	}
	if err := execution.Start(); err != nil {
		return nil, err
	}
	if err := o.executions.Update(ctx, execution); err != nil {
		return nil, err
	}

	// Every log line and DB query below this point carries the execution ID
	// through the context.
	ctx, runLogger := logger.WithExecutionID(ctx, o.logger, execution.ID.String())

	runLogger.Info("Sync run started",
		zap.String("configuration", configuration.Name),
		zap.String("trigger", trigger),
		zap.Int("stores", len(stores)),
		zap.Bool("parallel", options.ParallelProcessing),
	)
	o.notifier.Notify(ctx, sync.NotificationEventStart, execution, configuration.NotificationChannelID)

	runCtx, cancel := context.WithTimeout(ctx, options.MaxExecutionTime)
	defer cancel()

	handle := o.register(execution.ID, cancel)
	defer o.unregister(execution.ID)

	step := NewStoreStep(source, target, sync.NewComparator(o.config.Thresholds), options, runLogger)
	results := o.processStores(runCtx, step, stores, options)

	o.finalize(context.WithoutCancel(ctx), execution, results, runCtx, handle)
	o.notifyOutcome(context.WithoutCancel(ctx), execution, configuration.NotificationChannelID)

	resp := ToExecutionResponse(execution)
	return &resp, nil
}

// ExecuteScheduled runs a configuration off a cron tick with its stored
// options. Outcomes surface only through the execution record and
// notifications.
func (o *Orchestrator) ExecuteScheduled(ctx context.Context, configurationID uuid.UUID) error {
	_, err := o.Execute(ctx, ExecuteSyncRequest{ConfigurationID: configurationID}, sync.TriggerScheduled)
	return err
}

// CancelExecution requests cooperative cancellation of an in-flight run.
// Workers stop at the next store or batch boundary; the execution finalizes
// as CANCELLED with whatever results completed.
func (o *Orchestrator) CancelExecution(executionID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	handle, ok := o.runs[executionID]
	if !ok {
		return sync.ErrExecutionNotRunning
	}
	handle.cancelled = true
	if handle.cancel != nil {
		handle.cancel()
	}
	return nil
}

// resolveOptions merges the configuration's stored options with the
// request's overrides and normalizes the outcome.
func (o *Orchestrator) resolveOptions(configuration *sync.SyncConfiguration, req ExecuteSyncRequest) sync.SyncOptions {
	options := configuration.Options.Normalize()
	if req.ForceSync {
		options.ForceSync = true
	}
	if req.SkipComparison != nil {
		options.SkipComparison = *req.SkipComparison
	}
	if req.BatchSize != nil {
		options.BatchSize = *req.BatchSize
	}
	if req.MaxRetries != nil {
		options.MaxRetries = *req.MaxRetries
	}
	return options.Normalize()
}

// resolveGateways loads and validates both integrations and builds their
// run-scoped gateways.
func (o *Orchestrator) resolveGateways(ctx context.Context, configuration *sync.SyncConfiguration) (sync.SourceGateway, sync.TargetGateway, error) {
	sourceIntegration, err := o.integrations.FindByID(ctx, configuration.SourceIntegrationID)
	if err != nil {
		return nil, nil, err
	}
	if sourceIntegration.Type != sync.IntegrationTypeSource {
		return nil, nil, sync.ErrIntegrationWrongType
	}
	if err := sourceIntegration.Validate(); err != nil {
		return nil, nil, err
	}

	targetIntegration, err := o.integrations.FindByID(ctx, configuration.TargetIntegrationID)
	if err != nil {
		return nil, nil, err
	}
	if targetIntegration.Type != sync.IntegrationTypeTarget {
		return nil, nil, sync.ErrIntegrationWrongType
	}
	if err := targetIntegration.Validate(); err != nil {
		return nil, nil, err
	}

	source, err := o.gateways.SourceFor(sourceIntegration)
	if err != nil {
		return nil, nil, err
	}
	target, err := o.gateways.TargetFor(targetIntegration)
	if err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

// resolveStores resolves the run's store list: the request's subset when
// given, otherwise the configuration's selection, otherwise all active
// stores.
func (o *Orchestrator) resolveStores(ctx context.Context, configuration *sync.SyncConfiguration, override []uuid.UUID) ([]sync.Store, error) {
	ids := configuration.StoreIDs
	if len(override) > 0 {
		ids = override
	}
	if len(ids) == 0 {
		return o.stores.FindAllActive(ctx)
	}
	stores, err := o.stores.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, sync.ErrStoreNotFound
	}
	return stores, nil
}

// processStores fans store steps out over a bounded worker pool and collects
// one result per store, in store order. With parallel processing disabled
// the pool degenerates to a single worker.
func (o *Orchestrator) processStores(ctx context.Context, step *StoreStep, stores []sync.Store, options sync.SyncOptions) []sync.StoreSyncResult {
	workers := 1
	if options.ParallelProcessing {
		workers = len(stores)
		if workers > o.config.MaxWorkers {
			workers = o.config.MaxWorkers
		}
	}

	type job struct {
		index int
		store sync.Store
	}
	jobs := make(chan job)
	results := make([]sync.StoreSyncResult, len(stores))

	var wg gosync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					results[j.index] = sync.StoreSyncResult{
						StoreID:  j.store.ID,
						StoreReg: j.store.Registration,
						Status:   sync.StoreStepStatusFailed,
						Error:    "run cancelled before store was processed",
					}
					continue
				}
				logger.FromContext(ctx).Debug("Worker picked up store",
					zap.Int("worker_id", workerID),
					zap.String("store_reg", j.store.Registration),
				)
				results[j.index] = step.Run(ctx, j.store)
			}
		}(w)
	}

	for i, store := range stores {
		jobs <- job{index: i, store: store}
	}
	close(jobs)
	wg.Wait()

	return results
}

// finalize drives the execution to its terminal state exactly once and
// persists it. Summary and store results land in the same write.
func (o *Orchestrator) finalize(ctx context.Context, execution *sync.Execution, results []sync.StoreSyncResult, runCtx context.Context, handle *runHandle) {
	log := logger.FromContext(ctx)

	o.mu.Lock()
	cancelled := handle.cancelled
	o.mu.Unlock()

	var err error
	switch {
	case cancelled:
		err = execution.Cancel(results)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// Workers marked unprocessed stores as failed, so the derived
		// status reflects the truncation.
		execution.Error = "run exceeded max_execution_time"
		err = execution.Finalize(results)
	default:
		err = execution.Finalize(results)
	}
	if err != nil {
		log.Error("Execution finalization rejected", zap.Error(err))
		return
	}

	if err := o.executions.Update(ctx, execution); err != nil {
		log.Error("Failed to persist finalized execution", zap.Error(err))
	}

	log.Info("Sync run finished",
		zap.String("status", execution.Status.String()),
		zap.Int("stores", execution.Summary.TotalStores),
		zap.Int("fetched", execution.Summary.ProductsFetched),
		zap.Int("sent", execution.Summary.ProductsSent),
		zap.Int("errors", execution.Summary.Errors),
		zap.Duration("duration", execution.Duration()),
	)
}

// notifyOutcome dispatches the terminal notification for a run.
func (o *Orchestrator) notifyOutcome(ctx context.Context, execution *sync.Execution, channelID *uuid.UUID) {
	event := sync.NotificationEventFailure
	if execution.Status == sync.ExecutionStatusSuccess {
		event = sync.NotificationEventSuccess
	}
	o.notifier.Notify(ctx, event, execution, channelID)
}

// register tracks a run for external cancellation.
func (o *Orchestrator) register(executionID uuid.UUID, cancel context.CancelFunc) *runHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	handle := &runHandle{cancel: cancel}
	o.runs[executionID] = handle
	return handle
}

// unregister drops a finished run's handle.
func (o *Orchestrator) unregister(executionID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.runs, executionID)
}
