package sync

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// IntegrationType represents the role an integration plays in a sync
// ---------------------------------------------------------------------------

// IntegrationType represents the role an integration plays in a sync
type IntegrationType string

const (
	// IntegrationTypeSource identifies the system records are read from
	IntegrationTypeSource IntegrationType = "SOURCE"
	// IntegrationTypeTarget identifies the system records are pushed to
	IntegrationTypeTarget IntegrationType = "TARGET"
)

// IsValid returns true if the integration type is valid
func (t IntegrationType) IsValid() bool {
	switch t {
	case IntegrationTypeSource, IntegrationTypeTarget:
		return true
	default:
		return false
	}
}

// String returns the string representation of IntegrationType
func (t IntegrationType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// ProviderCode represents the concrete external system behind an integration
// ---------------------------------------------------------------------------

// ProviderCode represents the concrete external system behind an integration
type ProviderCode string

const (
	// ProviderCodeRP represents the RP retail back-office (source)
	ProviderCodeRP ProviderCode = "RP"
	// ProviderCodeCresceVendas represents the CresceVendas campaign platform (target)
	ProviderCodeCresceVendas ProviderCode = "CRESCEVENDAS"
)

// IsValid returns true if the provider code is valid
func (c ProviderCode) IsValid() bool {
	switch c {
	case ProviderCodeRP, ProviderCodeCresceVendas:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderCode
func (c ProviderCode) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// AuthMethod represents how an integration authenticates
// ---------------------------------------------------------------------------

// AuthMethod represents how an integration authenticates
type AuthMethod string

const (
	// AuthMethodStaticToken sends a pre-issued token on every request
	AuthMethodStaticToken AuthMethod = "STATIC_TOKEN"
	// AuthMethodLogin obtains a token from a login endpoint before the first request
	AuthMethodLogin AuthMethod = "LOGIN"
)

// IsValid returns true if the auth method is valid
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodStaticToken, AuthMethodLogin:
		return true
	default:
		return false
	}
}

// String returns the string representation of AuthMethod
func (m AuthMethod) String() string {
	return string(m)
}

// ---------------------------------------------------------------------------
// PaginationStrategy represents how a product endpoint pages its results
// ---------------------------------------------------------------------------

// PaginationStrategy represents how a product endpoint pages its results
type PaginationStrategy string

const (
	// PaginationStrategyCursor substitutes the last seen record id into each request
	PaginationStrategyCursor PaginationStrategy = "CURSOR"
	// PaginationStrategyOffset uses a numeric offset parameter
	PaginationStrategyOffset PaginationStrategy = "OFFSET"
)

// IsValid returns true if the pagination strategy is valid
func (s PaginationStrategy) IsValid() bool {
	switch s {
	case PaginationStrategyCursor, PaginationStrategyOffset:
		return true
	default:
		return false
	}
}

// String returns the string representation of PaginationStrategy
func (s PaginationStrategy) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Integration
// ---------------------------------------------------------------------------

// Pagination describes how the integration's listing endpoint pages results.
type Pagination struct {
	// Strategy selects cursor or offset paging
	Strategy PaginationStrategy `json:"strategy"`
	// Param is the query/path parameter carrying the cursor or offset
	Param string `json:"param"`
	// ExtraParams are fixed query parameters appended to every page request
	ExtraParams map[string]string `json:"extra_params,omitempty"`
}

// Credentials holds the secret material for an integration. Exactly one
// auth_method-consistent set must be populated: Token for STATIC_TOKEN,
// Username/Password plus TokenPath for LOGIN.
type Credentials struct {
	// Token is the pre-issued token (STATIC_TOKEN)
	Token string `json:"token,omitempty"`
	// Username is the login user (LOGIN)
	Username string `json:"username,omitempty"`
	// Password is the login password (LOGIN)
	Password string `json:"password,omitempty"`
	// TokenPath is the dotted JSON path to the token in the login response,
	// e.g. "response.token" (LOGIN)
	TokenPath string `json:"token_path,omitempty"`
	// Headers are static headers merged into every request (header-based auth)
	Headers map[string]string `json:"headers,omitempty"`
}

// Integration is a named, typed connection descriptor for one external
// system. It is owned by the administrative layer; the engine only reads it.
type Integration struct {
	// ID is the unique identifier of the integration
	ID uuid.UUID
	// Name is the administrator-assigned display name
	Name string
	// Type is the role this integration plays (SOURCE or TARGET)
	Type IntegrationType
	// Provider identifies the concrete external system
	Provider ProviderCode
	// BaseURL is the root URL of the external API
	BaseURL string
	// AuthMethod selects the authentication flow
	AuthMethod AuthMethod
	// Credentials holds the decrypted, usable secret material
	Credentials Credentials
	// LoginEndpoint is the login path template (LOGIN only)
	LoginEndpoint string
	// ProductsEndpoint is the listing path template; supports the
	// {lastId} and {storeReg} placeholders
	ProductsEndpoint string
	// Pagination describes how the listing endpoint pages results
	Pagination Pagination
	// CreatedAt is when the integration was registered
	CreatedAt time.Time
	// UpdatedAt is when the integration was last modified
	UpdatedAt time.Time
}

// Validate checks the invariants the engine relies on before any network
// call is made. Violations surface as ConfigurationError.
func (i *Integration) Validate() error {
	if !i.Type.IsValid() {
		return &ConfigurationError{Field: "type", Reason: "must be SOURCE or TARGET"}
	}
	if !i.Provider.IsValid() {
		return &ConfigurationError{Field: "provider", Reason: "unknown provider code"}
	}
	if i.BaseURL == "" {
		return &ConfigurationError{Field: "base_url", Reason: "required"}
	}
	if !i.AuthMethod.IsValid() {
		return &ConfigurationError{Field: "auth_method", Reason: "must be STATIC_TOKEN or LOGIN"}
	}

	switch i.AuthMethod {
	case AuthMethodStaticToken:
		if i.Credentials.Token == "" && len(i.Credentials.Headers) == 0 {
			return &ConfigurationError{Field: "credentials.token", Reason: "required for STATIC_TOKEN"}
		}
		if i.Credentials.Username != "" || i.Credentials.Password != "" {
			return &ConfigurationError{Field: "credentials", Reason: "login fields present on STATIC_TOKEN integration"}
		}
	case AuthMethodLogin:
		if i.Credentials.Username == "" || i.Credentials.Password == "" {
			return &ConfigurationError{Field: "credentials", Reason: "username and password required for LOGIN"}
		}
		if i.Credentials.Token != "" {
			return &ConfigurationError{Field: "credentials.token", Reason: "static token present on LOGIN integration"}
		}
		if i.LoginEndpoint == "" {
			return &ConfigurationError{Field: "login_endpoint", Reason: "required for LOGIN"}
		}
		if i.Credentials.TokenPath == "" {
			return &ConfigurationError{Field: "credentials.token_path", Reason: "required for LOGIN"}
		}
	}

	if i.Type == IntegrationTypeSource {
		if i.ProductsEndpoint == "" {
			return &ConfigurationError{Field: "products_endpoint", Reason: "required for SOURCE"}
		}
		if !i.Pagination.Strategy.IsValid() {
			return &ConfigurationError{Field: "pagination.strategy", Reason: "must be CURSOR or OFFSET"}
		}
	}
	return nil
}

// RenderEndpoint substitutes the {lastId} and {storeReg} placeholders of a
// path template and joins it to the base URL.
func (i *Integration) RenderEndpoint(template string, storeReg string, lastID int64) string {
	path := strings.ReplaceAll(template, "{storeReg}", storeReg)
	path = strings.ReplaceAll(path, "{lastId}", strconv.FormatInt(lastID, 10))
	return strings.TrimRight(i.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ---------------------------------------------------------------------------
// Repository Interface
// ---------------------------------------------------------------------------

// IntegrationRepository abstracts integration persistence.
type IntegrationRepository interface {
	// FindByID finds an integration by its identifier
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)
}
