package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// CleanupPolicy represents what happens to target records the source no longer offers
// ---------------------------------------------------------------------------

// CleanupPolicy represents what happens to target records the source no
// longer offers. The policy is explicit; there is no implicit default beyond
// doing nothing.
type CleanupPolicy string

const (
	// CleanupPolicyNone leaves target records untouched
	CleanupPolicyNone CleanupPolicy = "NONE"
	// CleanupPolicyExpiredOnly deactivates target records whose discount window has ended
	CleanupPolicyExpiredOnly CleanupPolicy = "EXPIRED_ONLY"
	// CleanupPolicyAbsentFromSource deactivates target records absent from the source snapshot
	CleanupPolicyAbsentFromSource CleanupPolicy = "ABSENT_FROM_SOURCE"
)

// IsValid returns true if the cleanup policy is valid
func (p CleanupPolicy) IsValid() bool {
	switch p {
	case CleanupPolicyNone, CleanupPolicyExpiredOnly, CleanupPolicyAbsentFromSource:
		return true
	default:
		return false
	}
}

// String returns the string representation of CleanupPolicy
func (p CleanupPolicy) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// SyncOptions
// ---------------------------------------------------------------------------

// SyncOptions is the per-configuration options bag consumed read-only by the
// engine for each run.
type SyncOptions struct {
	// BatchSize is the maximum number of records per target upload call
	BatchSize int `json:"batch_size"`
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries int `json:"max_retries"`
	// RetryDelay is the fixed delay between retry attempts
	RetryDelay time.Duration `json:"retry_delay"`
	// ParallelProcessing runs store steps concurrently when set
	ParallelProcessing bool `json:"parallel_processing"`
	// Cleanup selects the retention policy for stale target records
	Cleanup CleanupPolicy `json:"cleanup_old_data"`
	// SkipComparison skips the target fetch and diff phase
	SkipComparison bool `json:"skip_comparison"`
	// ForceSync allows a new run to start despite one already in RUNNING state
	ForceSync bool `json:"force_sync"`
	// MaxExecutionTime bounds the whole run; on expiry remaining workers are
	// cancelled cooperatively
	MaxExecutionTime time.Duration `json:"max_execution_time"`
}

// DefaultSyncOptions returns the option defaults applied when a
// configuration leaves fields unset.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		BatchSize:        100,
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		Cleanup:          CleanupPolicyNone,
		MaxExecutionTime: 15 * time.Minute,
	}
}

// Normalize fills unset fields with defaults and clamps nonsensical values.
func (o SyncOptions) Normalize() SyncOptions {
	def := DefaultSyncOptions()
	if o.BatchSize < 1 {
		o.BatchSize = def.BatchSize
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = def.RetryDelay
	}
	if !o.Cleanup.IsValid() {
		o.Cleanup = def.Cleanup
	}
	if o.MaxExecutionTime <= 0 {
		o.MaxExecutionTime = def.MaxExecutionTime
	}
	return o
}

// ---------------------------------------------------------------------------
// SyncConfiguration
// ---------------------------------------------------------------------------

// SyncConfiguration binds one source integration, one target integration, an
// optional notification channel, a store selection and a schedule. Created
// and edited by an administrator; the engine reads it once per run.
type SyncConfiguration struct {
	// ID is the unique identifier of the configuration
	ID uuid.UUID
	// Name is the administrator-assigned display name
	Name string
	// SourceIntegrationID references the SOURCE integration
	SourceIntegrationID uuid.UUID
	// TargetIntegrationID references the TARGET integration
	TargetIntegrationID uuid.UUID
	// NotificationChannelID optionally references a notification channel
	NotificationChannelID *uuid.UUID
	// StoreIDs is the explicit store selection; empty means all active stores
	StoreIDs []uuid.UUID
	// Schedule is a cron expression driving scheduled runs (empty = manual only)
	Schedule string
	// Options is the per-run options bag
	Options SyncOptions
	// Enabled gates scheduled execution
	Enabled bool
	// CreatedAt is when the configuration was created
	CreatedAt time.Time
	// UpdatedAt is when the configuration was last modified
	UpdatedAt time.Time
}

// SyncConfigurationRepository provides read access to sync configurations.
type SyncConfigurationRepository interface {
	// FindByID finds a configuration by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncConfiguration, error)

	// FindAllEnabled returns every enabled configuration with a schedule
	FindAllEnabled(ctx context.Context) ([]SyncConfiguration, error)
}
