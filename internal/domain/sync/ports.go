package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SourceGateway Port Interface
// ---------------------------------------------------------------------------

// SourcePage is one page of a paginated source fetch.
type SourcePage struct {
	// Records are the records in this page
	Records []ProductRecord
	// NextCursor is the cursor to request the following page with
	NextCursor int64
	// HasMore indicates whether another page should be requested
	HasMore bool
}

// SourceGateway is the port to the source (retail back-office) system,
// scoped to one run. Implementations cache their auth token across calls and
// re-authenticate through a single-flight group when it is invalidated.
// Concrete adapters live in the infrastructure layer.
type SourceGateway interface {
	// Authenticate obtains (or reuses) the adapter's auth token. Called
	// lazily before the first page request; exposed for eager warm-up.
	Authenticate(ctx context.Context) (string, error)

	// FetchPage fetches one page of records for a store from the given cursor
	FetchPage(ctx context.Context, storeReg string, cursor int64) (*SourcePage, error)

	// FetchAll loops FetchPage until exhaustion and returns the concatenation
	// of all pages in page order. Stops on the first empty page or the
	// safety cap, whichever comes first.
	FetchAll(ctx context.Context, storeReg string) ([]ProductRecord, error)
}

// ---------------------------------------------------------------------------
// TargetGateway Port Interface
// ---------------------------------------------------------------------------

// BatchResult is the outcome of one batch upload to the target platform.
type BatchResult struct {
	// Accepted is the number of records the target acknowledged
	Accepted int
	// CampaignName is the name the target filed the records under
	CampaignName string
}

// TargetGateway is the port to the target (campaign) platform. Campaign
// framing is the adapter's concern; callers hand over plain records.
type TargetGateway interface {
	// FetchExisting returns the target's current listing for a store
	FetchExisting(ctx context.Context, storeReg string) ([]ProductRecord, error)

	// SendBatch uploads one batch atomically from the caller's perspective.
	// On failure the returned error is a TargetUploadError carrying the
	// batch so the caller can retry the identical payload.
	SendBatch(ctx context.Context, storeReg string, records []ProductRecord) (*BatchResult, error)

	// DeactivateProducts removes or expires the given product codes on the
	// target. Used by the cleanup policies; never called for CleanupPolicyNone.
	DeactivateProducts(ctx context.Context, storeReg string, codes []string) error
}

// ---------------------------------------------------------------------------
// RunLock Port Interface
// ---------------------------------------------------------------------------

// RunLock serializes runs per configuration across engine replicas.
type RunLock interface {
	// Acquire attempts to take the lock for a configuration. Returns false
	// without error when the lock is already held.
	Acquire(ctx context.Context, configurationID uuid.UUID, ttl time.Duration) (bool, error)

	// Release frees the lock for a configuration
	Release(ctx context.Context, configurationID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Notifier Port Interface
// ---------------------------------------------------------------------------

// NotificationEvent identifies which lifecycle moment a notification is for.
type NotificationEvent string

const (
	// NotificationEventStart fires when a run begins
	NotificationEventStart NotificationEvent = "on_start"
	// NotificationEventSuccess fires when a run finishes SUCCESS
	NotificationEventSuccess NotificationEvent = "on_success"
	// NotificationEventFailure fires when a run finishes PARTIAL, FAILED or CANCELLED
	NotificationEventFailure NotificationEvent = "on_failure"
)

// Notifier translates a finished (or starting) run into messages for the
// configured channel. Delivery failures are logged and swallowed by
// implementations; they never propagate into the sync run.
type Notifier interface {
	// Notify dispatches the event for the execution to the channel, if the
	// channel has that event enabled. A nil channelID is a no-op.
	Notify(ctx context.Context, event NotificationEvent, execution *Execution, channelID *uuid.UUID)
}
