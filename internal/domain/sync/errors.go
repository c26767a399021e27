package sync

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sentinel Errors
// ---------------------------------------------------------------------------

var (
	// Integration errors
	ErrIntegrationNotFound     = errors.New("sync: integration not found")
	ErrIntegrationWrongType    = errors.New("sync: integration has wrong type for this role")
	ErrIntegrationInvalidAuth  = errors.New("sync: integration credentials inconsistent with auth method")
	ErrIntegrationMissingField = errors.New("sync: integration is missing a required field")

	// Store errors
	ErrStoreNotFound = errors.New("sync: store not found")
	ErrStoreInactive = errors.New("sync: store is not active")

	// Configuration errors
	ErrConfigurationNotFound = errors.New("sync: configuration not found")

	// Notification errors
	ErrChannelNotFound = errors.New("sync: notification channel not found")

	// Execution errors
	ErrRunLockHeld               = errors.New("sync: run lock held by another process")
	ErrExecutionNotFound         = errors.New("sync: execution not found")
	ErrExecutionNotRunning       = errors.New("sync: execution is not running")
	ErrExecutionAlreadyFinalized = errors.New("sync: execution already reached a terminal status")
	ErrInvalidStatusTransition   = errors.New("sync: invalid execution status transition")

	// Gateway errors
	ErrTargetUnavailable = errors.New("sync: target platform unavailable")
	ErrSourceUnavailable = errors.New("sync: source platform unavailable")
)

// ---------------------------------------------------------------------------
// Typed Errors
// ---------------------------------------------------------------------------

// AuthExtractionError indicates the login response did not contain a token at
// the configured extraction path. This is a configuration problem and is
// never retried.
type AuthExtractionError struct {
	// Path is the dotted JSON path that was searched
	Path string
}

// Error implements the error interface
func (e *AuthExtractionError) Error() string {
	return fmt.Sprintf("sync: auth token not found at path %q in login response", e.Path)
}

// SourceFetchError indicates a transport-level failure while fetching a page
// of records from the source system. It carries the store key and the cursor
// of the failed page so the caller can retry from the same position.
type SourceFetchError struct {
	// StoreReg is the registration of the store being fetched
	StoreReg string
	// Cursor is the pagination cursor of the failed request
	Cursor int64
	// Err is the underlying transport error
	Err error
}

// Error implements the error interface
func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("sync: source fetch failed for store %s at cursor %d: %v", e.StoreReg, e.Cursor, e.Err)
}

// Unwrap returns the underlying error
func (e *SourceFetchError) Unwrap() error { return e.Err }

// TargetUploadError indicates a batch upload to the target platform failed.
// The failed batch is attached so the caller can retry the identical payload
// without re-deriving it.
type TargetUploadError struct {
	// StoreReg is the registration of the store being uploaded
	StoreReg string
	// Batch is the exact set of records that failed to upload
	Batch []ProductRecord
	// Err is the underlying transport error
	Err error
}

// Error implements the error interface
func (e *TargetUploadError) Error() string {
	return fmt.Sprintf("sync: batch upload of %d records failed for store %s: %v", len(e.Batch), e.StoreReg, e.Err)
}

// Unwrap returns the underlying error
func (e *TargetUploadError) Unwrap() error { return e.Err }

// PaginationOverrunError indicates the source endpoint kept returning records
// past the configured safety cap without signalling completion. The fetch is
// aborted rather than silently truncated.
type PaginationOverrunError struct {
	// StoreReg is the registration of the store being fetched
	StoreReg string
	// Limit is the safety cap that was exceeded
	Limit int
}

// Error implements the error interface
func (e *PaginationOverrunError) Error() string {
	return fmt.Sprintf("sync: pagination overrun for store %s: more than %d records without completion", e.StoreReg, e.Limit)
}

// ConflictError indicates a run was requested for a configuration that
// already has an execution in RUNNING state.
type ConflictError struct {
	// ExecutionID is the in-flight execution blocking the new run
	ExecutionID uuid.UUID
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("sync: a run is already in progress (execution %s)", e.ExecutionID)
}

// ConfigurationError indicates the run could not start because required
// integration or option fields are missing or inconsistent. It is raised
// before any network call and aborts the whole run.
type ConfigurationError struct {
	// Field names the offending field
	Field string
	// Reason describes why the field is invalid
	Reason string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sync: invalid configuration: %s: %s", e.Field, e.Reason)
}

// ---------------------------------------------------------------------------
// Retry Classification
// ---------------------------------------------------------------------------

// IsRetryable reports whether the error may succeed on a retry with the same
// input. Auth extraction, pagination overruns, conflicts and configuration
// errors are permanent; transport failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var srcErr *SourceFetchError
	if errors.As(err, &srcErr) {
		return true
	}
	var upErr *TargetUploadError
	if errors.As(err, &upErr) {
		return true
	}
	if errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrTargetUnavailable) {
		return true
	}
	return false
}
