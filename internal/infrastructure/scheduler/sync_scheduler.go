package scheduler

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// RunTrigger Interface
// ---------------------------------------------------------------------------

// RunTrigger starts a scheduled sync run for one configuration. The
// orchestrator implements it; the scheduler never sees run internals.
type RunTrigger interface {
	// ExecuteScheduled runs the configuration with the scheduled trigger
	ExecuteScheduled(ctx context.Context, configurationID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// ReloadInterval is how often enabled configurations are re-read and
	// the cron entries rebuilt
	ReloadInterval time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:        true,
		ReloadInterval: 5 * time.Minute,
	}
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler drives scheduled sync runs: it keeps one cron entry per
// enabled SyncConfiguration with a schedule, and periodically reconciles the
// entries against the database. Run failures surface through the execution
// record and notifications, never by crashing the scheduler.
type SyncScheduler struct {
	config         SyncSchedulerConfig
	configurations sync.SyncConfigurationRepository
	trigger        RunTrigger
	logger         *zap.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	mu        gosync.Mutex
	isRunning bool
	entries   map[uuid.UUID]cron.EntryID
	schedules map[uuid.UUID]string
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, configurations sync.SyncConfigurationRepository, trigger RunTrigger, logger *zap.Logger) *SyncScheduler {
	if config.ReloadInterval <= 0 {
		config.ReloadInterval = DefaultSyncSchedulerConfig().ReloadInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config:         config,
		configurations: configurations,
		trigger:        trigger,
		logger:         logger,
		cron:           cron.New(),
		entries:        make(map[uuid.UUID]cron.EntryID),
		schedules:      make(map[uuid.UUID]string),
	}
}

// Start loads the initial entries and begins firing them
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.Reload(ctx); err != nil {
		s.logger.Error("Initial schedule load failed", zap.Error(err))
	}

	s.cron.Start()

	s.wg.Add(1)
	go s.reloadLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Int("entries", len(s.entries)),
		zap.Duration("reload_interval", s.config.ReloadInterval),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight cron jobs
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.logger.Info("Sync scheduler stopped")
}

// Reload reconciles the cron entries with the enabled configurations
func (s *SyncScheduler) Reload(ctx context.Context) error {
	configurations, err := s.configurations.FindAllEnabled(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(configurations))
	for _, configuration := range configurations {
		if configuration.Schedule == "" {
			continue
		}
		seen[configuration.ID] = true

		if s.schedules[configuration.ID] == configuration.Schedule {
			continue // unchanged
		}

		if entryID, ok := s.entries[configuration.ID]; ok {
			s.cron.Remove(entryID)
		}

		configurationID := configuration.ID
		entryID, err := s.cron.AddFunc(configuration.Schedule, func() {
			s.fire(configurationID)
		})
		if err != nil {
			s.logger.Error("Invalid schedule expression",
				zap.String("configuration_id", configuration.ID.String()),
				zap.String("schedule", configuration.Schedule),
				zap.Error(err),
			)
			delete(s.entries, configuration.ID)
			delete(s.schedules, configuration.ID)
			continue
		}

		s.entries[configuration.ID] = entryID
		s.schedules[configuration.ID] = configuration.Schedule
		s.logger.Info("Scheduled sync configuration",
			zap.String("configuration_id", configuration.ID.String()),
			zap.String("schedule", configuration.Schedule),
		)
	}

	// Drop entries whose configuration disappeared or was disabled
	for id, entryID := range s.entries {
		if !seen[id] {
			s.cron.Remove(entryID)
			delete(s.entries, id)
			delete(s.schedules, id)
			s.logger.Info("Unscheduled sync configuration",
				zap.String("configuration_id", id.String()),
			)
		}
	}

	return nil
}

// EntryCount returns the number of scheduled configurations (for monitoring)
func (s *SyncScheduler) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// reloadLoop periodically reconciles the entries until the context ends
func (s *SyncScheduler) reloadLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.Error("Schedule reload failed", zap.Error(err))
			}
		}
	}
}

// fire starts one scheduled run. An already-running configuration is not an
// error; the tick is simply skipped.
func (s *SyncScheduler) fire(configurationID uuid.UUID) {
	s.logger.Info("Scheduled sync fired",
		zap.String("configuration_id", configurationID.String()),
	)

	err := s.trigger.ExecuteScheduled(context.Background(), configurationID)
	if err == nil {
		return
	}

	var conflict *sync.ConflictError
	if errors.As(err, &conflict) {
		s.logger.Info("Scheduled sync skipped, run already active",
			zap.String("configuration_id", configurationID.String()),
			zap.String("running_execution_id", conflict.ExecutionID.String()),
		)
		return
	}

	s.logger.Error("Scheduled sync failed",
		zap.String("configuration_id", configurationID.String()),
		zap.Error(err),
	)
}
