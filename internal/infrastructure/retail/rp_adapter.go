package retail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/promosync/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the RP API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// defaultFetchSafetyCap bounds how many records FetchAll will accumulate for
// one store before aborting with a PaginationOverrunError
const defaultFetchSafetyCap = 100000

// defaultTimeout is the per-request HTTP timeout
const defaultTimeout = 30 * time.Second

// RPAdapter implements SourceGateway for the RP retail back-office. One
// adapter instance is scoped to one run: the auth token is obtained lazily,
// cached for all stores of the run, and refreshed through a single-flight
// group when the API invalidates it.
type RPAdapter struct {
	integration *sync.Integration
	httpClient  *http.Client
	safetyCap   int
	logger      *zap.Logger

	mu    gosync.RWMutex // Protects token
	token string
	group singleflight.Group
}

// RPAdapterOption is a functional option for configuring the adapter
type RPAdapterOption func(*RPAdapter)

// WithHTTPClient sets the HTTP client used for all requests
func WithHTTPClient(client *http.Client) RPAdapterOption {
	return func(a *RPAdapter) {
		a.httpClient = client
	}
}

// WithFetchSafetyCap overrides the maximum number of records FetchAll will
// accumulate for one store
func WithFetchSafetyCap(limit int) RPAdapterOption {
	return func(a *RPAdapter) {
		if limit > 0 {
			a.safetyCap = limit
		}
	}
}

// WithLogger sets the logger for the adapter
func WithLogger(logger *zap.Logger) RPAdapterOption {
	return func(a *RPAdapter) {
		a.logger = logger
	}
}

// NewRPAdapter creates a new RP source adapter for the given integration
func NewRPAdapter(integration *sync.Integration, opts ...RPAdapterOption) (*RPAdapter, error) {
	if integration.Type != sync.IntegrationTypeSource {
		return nil, sync.ErrIntegrationWrongType
	}
	if err := integration.Validate(); err != nil {
		return nil, err
	}

	adapter := &RPAdapter{
		integration: integration,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		safetyCap:   defaultFetchSafetyCap,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter, nil
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// Authenticate obtains (or reuses) the adapter's auth token. STATIC_TOKEN
// integrations never call the login endpoint.
func (a *RPAdapter) Authenticate(ctx context.Context) (string, error) {
	if a.integration.AuthMethod == sync.AuthMethodStaticToken {
		return a.integration.Credentials.Token, nil
	}

	a.mu.RLock()
	token := a.token
	a.mu.RUnlock()
	if token != "" {
		return token, nil
	}

	return a.refreshToken(ctx)
}

// refreshToken performs the login call through a single-flight group so
// concurrent store workers share one re-authentication instead of issuing a
// login call each.
func (a *RPAdapter) refreshToken(ctx context.Context) (string, error) {
	result, err, _ := a.group.Do("login", func() (any, error) {
		token, err := a.login(ctx)
		if err != nil {
			return "", err
		}

		a.mu.Lock()
		a.token = token
		a.mu.Unlock()

		return token, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// invalidateToken discards the cached token so the next call logs in again
func (a *RPAdapter) invalidateToken() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

// login performs the login call and extracts the token from the configured
// dotted path in the JSON response. A missing path is a configuration
// problem surfaced as AuthExtractionError, never retried.
func (a *RPAdapter) login(ctx context.Context) (string, error) {
	loginURL := a.integration.RenderEndpoint(a.integration.LoginEndpoint, "", 0)

	body, err := json.Marshal(rpLoginRequest{
		Username: a.integration.Credentials.Username,
		Password: a.integration.Credentials.Password,
	})
	if err != nil {
		return "", fmt.Errorf("rp: failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("rp: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sync.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("rp: failed to read login response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: login returned HTTP %d", sync.ErrSourceUnavailable, resp.StatusCode)
	}

	var doc map[string]any
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return "", fmt.Errorf("%w: malformed login response: %v", sync.ErrSourceUnavailable, err)
	}

	token, ok := extractTokenPath(doc, a.integration.Credentials.TokenPath)
	if !ok {
		return "", &sync.AuthExtractionError{Path: a.integration.Credentials.TokenPath}
	}

	a.logger.Debug("obtained source auth token",
		zap.String("integration", a.integration.Name),
	)
	return token, nil
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// FetchPage fetches one page of records for a store from the given cursor.
// Transport failures surface as SourceFetchError carrying the store key and
// cursor so the caller can retry from the same position.
func (a *RPAdapter) FetchPage(ctx context.Context, storeReg string, cursor int64) (*sync.SourcePage, error) {
	token, err := a.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	respBody, status, err := a.requestPage(ctx, storeReg, cursor, token)
	if err != nil {
		return nil, &sync.SourceFetchError{StoreReg: storeReg, Cursor: cursor, Err: err}
	}

	// A rejected token triggers one shared re-authentication and a single
	// retry of the same page
	if status == http.StatusUnauthorized && a.integration.AuthMethod == sync.AuthMethodLogin {
		a.invalidateToken()
		token, err = a.refreshToken(ctx)
		if err != nil {
			return nil, err
		}
		respBody, status, err = a.requestPage(ctx, storeReg, cursor, token)
		if err != nil {
			return nil, &sync.SourceFetchError{StoreReg: storeReg, Cursor: cursor, Err: err}
		}
	}

	if status >= 400 {
		return nil, &sync.SourceFetchError{
			StoreReg: storeReg,
			Cursor:   cursor,
			Err:      fmt.Errorf("HTTP %d", status),
		}
	}

	var envelope rpProductsResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &sync.SourceFetchError{
			StoreReg: storeReg,
			Cursor:   cursor,
			Err:      fmt.Errorf("malformed response: %w", err),
		}
	}

	page := &sync.SourcePage{
		Records:    make([]sync.ProductRecord, 0, len(envelope.Response)),
		NextCursor: cursor,
		HasMore:    len(envelope.Response) > 0,
	}

	for i := range envelope.Response {
		wire := &envelope.Response[i]
		page.Records = append(page.Records, wire.toDomain(storeReg))

		if a.integration.Pagination.Strategy == sync.PaginationStrategyCursor && wire.ID > page.NextCursor {
			page.NextCursor = wire.ID
		}
	}

	if a.integration.Pagination.Strategy == sync.PaginationStrategyOffset {
		page.NextCursor = cursor + int64(len(envelope.Response))
	}

	return page, nil
}

// FetchAll loops FetchPage until the first empty page or the safety cap,
// whichever comes first, and returns the concatenation of all pages in page
// order.
func (a *RPAdapter) FetchAll(ctx context.Context, storeReg string) ([]sync.ProductRecord, error) {
	var records []sync.ProductRecord

	cursor := int64(0)
	for {
		page, err := a.FetchPage(ctx, storeReg, cursor)
		if err != nil {
			return nil, err
		}
		if len(page.Records) == 0 {
			break
		}

		records = append(records, page.Records...)
		if len(records) > a.safetyCap {
			return nil, &sync.PaginationOverrunError{StoreReg: storeReg, Limit: a.safetyCap}
		}

		cursor = page.NextCursor
	}

	a.logger.Debug("fetched source records",
		zap.String("store", storeReg),
		zap.Int("count", len(records)),
	)
	return records, nil
}

// requestPage performs one listing request and returns the raw body and
// status. The cursor is substituted into the endpoint template; when the
// template carries no {lastId} placeholder, the pagination parameter is
// appended as a query parameter instead.
func (a *RPAdapter) requestPage(ctx context.Context, storeReg string, cursor int64, token string) ([]byte, int, error) {
	endpoint := a.integration.RenderEndpoint(a.integration.ProductsEndpoint, storeReg, cursor)

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	query := parsed.Query()
	if a.integration.Pagination.Param != "" && !strings.Contains(a.integration.ProductsEndpoint, "{lastId}") {
		query.Set(a.integration.Pagination.Param, strconv.FormatInt(cursor, 10))
	}
	for key, value := range a.integration.Pagination.ExtraParams {
		query.Set(key, value)
	}
	parsed.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", token)
	}
	for key, value := range a.integration.Credentials.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

// Ensure RPAdapter implements SourceGateway
var _ sync.SourceGateway = (*RPAdapter)(nil)
