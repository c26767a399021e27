package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the CresceVendas API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// defaultTimeout is the per-request HTTP timeout
const defaultTimeout = 30 * time.Second

// defaultCampaignWindow is the discount window applied when the batch
// carries no explicit validity period
const defaultCampaignWindow = 24 * time.Hour

// Framing describes how plain product records are wrapped into a campaign
// payload. It is the adapter's concern; callers never see it.
type Framing struct {
	// NameTemplate names the campaign; supports {store} and {date}
	NameTemplate string
	// Window is the fallback discount duration for records without an
	// explicit validity period
	Window time.Duration
	// OverrideExisting replaces colliding listings instead of rejecting them
	OverrideExisting bool
}

// DefaultFraming returns the framing applied when none is configured
func DefaultFraming() Framing {
	return Framing{
		NameTemplate:     "promosync-{store}-{date}",
		Window:           defaultCampaignWindow,
		OverrideExisting: true,
	}
}

// CVAdapter implements TargetGateway for the CresceVendas campaign platform.
// Auth is header-based static credentials merged into every request; there
// is no login flow.
type CVAdapter struct {
	integration *sync.Integration
	httpClient  *http.Client
	framing     Framing
	clock       func() time.Time
	logger      *zap.Logger
}

// CVAdapterOption is a functional option for configuring the adapter
type CVAdapterOption func(*CVAdapter)

// WithHTTPClient sets the HTTP client used for all requests
func WithHTTPClient(client *http.Client) CVAdapterOption {
	return func(a *CVAdapter) {
		a.httpClient = client
	}
}

// WithFraming sets the campaign framing applied to uploads
func WithFraming(framing Framing) CVAdapterOption {
	return func(a *CVAdapter) {
		a.framing = framing
	}
}

// WithLogger sets the logger for the adapter
func WithLogger(logger *zap.Logger) CVAdapterOption {
	return func(a *CVAdapter) {
		a.logger = logger
	}
}

// withClock overrides the time source (test hook)
func withClock(clock func() time.Time) CVAdapterOption {
	return func(a *CVAdapter) {
		a.clock = clock
	}
}

// NewCVAdapter creates a new CresceVendas target adapter for the given
// integration
func NewCVAdapter(integration *sync.Integration, opts ...CVAdapterOption) (*CVAdapter, error) {
	if integration.Type != sync.IntegrationTypeTarget {
		return nil, sync.ErrIntegrationWrongType
	}
	if err := integration.Validate(); err != nil {
		return nil, err
	}

	adapter := &CVAdapter{
		integration: integration,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		framing:     DefaultFraming(),
		clock:       time.Now,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter, nil
}

// ---------------------------------------------------------------------------
// TargetGateway Operations
// ---------------------------------------------------------------------------

// FetchExisting returns the target's current listing for a store
func (a *CVAdapter) FetchExisting(ctx context.Context, storeReg string) ([]sync.ProductRecord, error) {
	endpoint := a.listingEndpoint(storeReg)

	respBody, status, err := a.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrTargetUnavailable, err)
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: listing returned HTTP %d", sync.ErrTargetUnavailable, status)
	}

	var envelope cvListingResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed listing response: %v", sync.ErrTargetUnavailable, err)
	}

	records := make([]sync.ProductRecord, 0, len(envelope.StoreProducts))
	for i := range envelope.StoreProducts {
		records = append(records, envelope.StoreProducts[i].toDomain(storeReg))
	}
	return records, nil
}

// SendBatch uploads one batch wrapped in a campaign frame. The batch either
// succeeds atomically from the caller's perspective or comes back as a
// TargetUploadError with the records attached, so the caller can retry the
// identical payload.
func (a *CVAdapter) SendBatch(ctx context.Context, storeReg string, records []sync.ProductRecord) (*sync.BatchResult, error) {
	payload := a.frameBatch(storeReg, records)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &sync.TargetUploadError{
			StoreReg: storeReg,
			Batch:    records,
			Err:      fmt.Errorf("failed to encode payload: %w", err),
		}
	}

	respBody, status, err := a.doRequest(ctx, http.MethodPost, a.listingEndpoint(storeReg), body)
	if err != nil {
		return nil, &sync.TargetUploadError{StoreReg: storeReg, Batch: records, Err: err}
	}
	if status >= 400 {
		return nil, &sync.TargetUploadError{
			StoreReg: storeReg,
			Batch:    records,
			Err:      fmt.Errorf("HTTP %d", status),
		}
	}

	result := &sync.BatchResult{
		Accepted:     len(records),
		CampaignName: payload.Name,
	}
	var ack cvUploadResponse
	if err := json.Unmarshal(respBody, &ack); err == nil {
		if ack.Accepted > 0 {
			result.Accepted = ack.Accepted
		}
		if ack.Name != "" {
			result.CampaignName = ack.Name
		}
	}

	a.logger.Debug("uploaded campaign batch",
		zap.String("store", storeReg),
		zap.String("campaign", result.CampaignName),
		zap.Int("accepted", result.Accepted),
	)
	return result, nil
}

// DeactivateProducts asks the platform to deactivate listings by code.
// Used only by the cleanup policies.
func (a *CVAdapter) DeactivateProducts(ctx context.Context, storeReg string, codes []string) error {
	if len(codes) == 0 {
		return nil
	}

	body, err := json.Marshal(cvDeactivateRequest{
		StoreID:      storeReg,
		ProductCodes: codes,
	})
	if err != nil {
		return fmt.Errorf("crescevendas: failed to encode deactivation request: %w", err)
	}

	_, status, err := a.doRequest(ctx, http.MethodDelete, a.listingEndpoint(storeReg), body)
	if err != nil {
		return fmt.Errorf("%w: %v", sync.ErrTargetUnavailable, err)
	}
	if status >= 400 {
		return fmt.Errorf("%w: deactivation returned HTTP %d", sync.ErrTargetUnavailable, status)
	}

	a.logger.Debug("deactivated campaign listings",
		zap.String("store", storeReg),
		zap.Int("count", len(codes)),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// frameBatch wraps records in the campaign frame: rendered name, discount
// window derived from the batch (falling back to the configured window) and
// the override flag.
func (a *CVAdapter) frameBatch(storeReg string, records []sync.ProductRecord) cvUploadRequest {
	now := a.clock()

	name := strings.ReplaceAll(a.framing.NameTemplate, "{store}", storeReg)
	name = strings.ReplaceAll(name, "{date}", now.Format("2006-01-02"))

	startsAt := now
	endsAt := time.Time{}
	for i := range records {
		record := &records[i]
		if !record.StartsAt.IsZero() && record.StartsAt.Before(startsAt) {
			startsAt = record.StartsAt
		}
		if !record.ExpiresAt.IsZero() && record.ExpiresAt.After(endsAt) {
			endsAt = record.ExpiresAt
		}
	}
	if endsAt.IsZero() {
		endsAt = startsAt.Add(a.framing.Window)
	}

	products := make([]cvProduct, 0, len(records))
	for i := range records {
		products = append(products, fromDomain(&records[i]))
	}

	return cvUploadRequest{
		Name:             name,
		StartsAt:         startsAt,
		EndsAt:           endsAt,
		OverrideExisting: a.framing.OverrideExisting,
		StoreProducts:    products,
	}
}

// listingEndpoint renders the store listing path. The same path serves
// GET (listing), POST (bulk upload) and DELETE (deactivation).
func (a *CVAdapter) listingEndpoint(storeReg string) string {
	return a.integration.RenderEndpoint(a.integration.ProductsEndpoint, storeReg, 0)
}

// doRequest performs one HTTP request with the integration's static auth
// headers merged in, returning the raw body and status
func (a *CVAdapter) doRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.integration.Credentials.Token != "" {
		req.Header.Set("Authorization", a.integration.Credentials.Token)
	}
	for key, value := range a.integration.Credentials.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// Ensure CVAdapter implements TargetGateway
var _ sync.TargetGateway = (*CVAdapter)(nil)
