package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/promosync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// IntegrationModel
// ---------------------------------------------------------------------------

// IntegrationModel is the persistence model for the Integration domain entity.
// Credentials and pagination settings are stored as JSONB documents.
type IntegrationModel struct {
	ID               uuid.UUID            `gorm:"type:uuid;primary_key"`
	Name             string               `gorm:"type:varchar(200);not null"`
	Type             sync.IntegrationType `gorm:"type:varchar(20);not null;index"`
	Provider         sync.ProviderCode    `gorm:"type:varchar(30);not null"`
	BaseURL          string               `gorm:"type:varchar(500);not null"`
	AuthMethod       sync.AuthMethod      `gorm:"type:varchar(20);not null"`
	CredentialsJSON  string               `gorm:"type:jsonb;column:credentials"`
	LoginEndpoint    string               `gorm:"type:varchar(500)"`
	ProductsEndpoint string               `gorm:"type:varchar(500)"`
	PaginationJSON   string               `gorm:"type:jsonb;column:pagination"`
	CreatedAt        time.Time            `gorm:"not null"`
	UpdatedAt        time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *sync.Integration {
	integration := &sync.Integration{
		ID:               m.ID,
		Name:             m.Name,
		Type:             m.Type,
		Provider:         m.Provider,
		BaseURL:          m.BaseURL,
		AuthMethod:       m.AuthMethod,
		LoginEndpoint:    m.LoginEndpoint,
		ProductsEndpoint: m.ProductsEndpoint,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.CredentialsJSON != "" {
		_ = json.Unmarshal([]byte(m.CredentialsJSON), &integration.Credentials)
	}
	if m.PaginationJSON != "" {
		_ = json.Unmarshal([]byte(m.PaginationJSON), &integration.Pagination)
	}
	return integration
}

// FromDomain populates the persistence model from a domain Integration entity.
func (m *IntegrationModel) FromDomain(i *sync.Integration) {
	m.ID = i.ID
	m.Name = i.Name
	m.Type = i.Type
	m.Provider = i.Provider
	m.BaseURL = i.BaseURL
	m.AuthMethod = i.AuthMethod
	m.LoginEndpoint = i.LoginEndpoint
	m.ProductsEndpoint = i.ProductsEndpoint
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt

	if jsonBytes, err := json.Marshal(i.Credentials); err == nil {
		m.CredentialsJSON = string(jsonBytes)
	}
	if jsonBytes, err := json.Marshal(i.Pagination); err == nil {
		m.PaginationJSON = string(jsonBytes)
	}
}

// ---------------------------------------------------------------------------
// StoreModel
// ---------------------------------------------------------------------------

// StoreModel is the persistence model for the Store domain entity.
type StoreModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Registration string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string    `gorm:"type:varchar(200);not null"`
	Active       bool      `gorm:"not null;default:true;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store entity.
func (m *StoreModel) ToDomain() *sync.Store {
	return &sync.Store{
		ID:           m.ID,
		Registration: m.Registration,
		Name:         m.Name,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Store entity.
func (m *StoreModel) FromDomain(s *sync.Store) {
	m.ID = s.ID
	m.Registration = s.Registration
	m.Name = s.Name
	m.Active = s.Active
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// ---------------------------------------------------------------------------
// SyncConfigurationModel
// ---------------------------------------------------------------------------

// SyncConfigurationModel is the persistence model for the SyncConfiguration
// domain entity. Store selection and options are stored as JSONB documents.
type SyncConfigurationModel struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name                  string     `gorm:"type:varchar(200);not null"`
	SourceIntegrationID   uuid.UUID  `gorm:"type:uuid;not null"`
	TargetIntegrationID   uuid.UUID  `gorm:"type:uuid;not null"`
	NotificationChannelID *uuid.UUID `gorm:"type:uuid"`
	StoreIDsJSON          string     `gorm:"type:jsonb;column:store_ids"`
	Schedule              string     `gorm:"type:varchar(100)"`
	OptionsJSON           string     `gorm:"type:jsonb;column:options"`
	Enabled               bool       `gorm:"not null;default:true;index"`
	CreatedAt             time.Time  `gorm:"not null"`
	UpdatedAt             time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncConfigurationModel) TableName() string {
	return "sync_configurations"
}

// ToDomain converts the persistence model to a domain SyncConfiguration.
func (m *SyncConfigurationModel) ToDomain() *sync.SyncConfiguration {
	configuration := &sync.SyncConfiguration{
		ID:                    m.ID,
		Name:                  m.Name,
		SourceIntegrationID:   m.SourceIntegrationID,
		TargetIntegrationID:   m.TargetIntegrationID,
		NotificationChannelID: m.NotificationChannelID,
		Schedule:              m.Schedule,
		Options:               sync.DefaultSyncOptions(),
		Enabled:               m.Enabled,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if m.StoreIDsJSON != "" {
		_ = json.Unmarshal([]byte(m.StoreIDsJSON), &configuration.StoreIDs)
	}
	if m.OptionsJSON != "" {
		_ = json.Unmarshal([]byte(m.OptionsJSON), &configuration.Options)
	}
	return configuration
}

// FromDomain populates the persistence model from a domain SyncConfiguration.
func (m *SyncConfigurationModel) FromDomain(c *sync.SyncConfiguration) {
	m.ID = c.ID
	m.Name = c.Name
	m.SourceIntegrationID = c.SourceIntegrationID
	m.TargetIntegrationID = c.TargetIntegrationID
	m.NotificationChannelID = c.NotificationChannelID
	m.Schedule = c.Schedule
	m.Enabled = c.Enabled
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt

	if len(c.StoreIDs) > 0 {
		if jsonBytes, err := json.Marshal(c.StoreIDs); err == nil {
			m.StoreIDsJSON = string(jsonBytes)
		}
	} else {
		m.StoreIDsJSON = "[]"
	}
	if jsonBytes, err := json.Marshal(c.Options); err == nil {
		m.OptionsJSON = string(jsonBytes)
	}
}

// ---------------------------------------------------------------------------
// ExecutionModel
// ---------------------------------------------------------------------------

// ExecutionModel is the persistence model for the Execution domain entity.
// Per-store results are stored as one JSONB document; the summary columns
// are denormalized for cheap listing queries.
type ExecutionModel struct {
	ID               uuid.UUID            `gorm:"type:uuid;primary_key"`
	ConfigurationID  *uuid.UUID           `gorm:"type:uuid;index"`
	Trigger          string               `gorm:"type:varchar(20);not null"`
	Status           sync.ExecutionStatus `gorm:"type:varchar(20);not null;index"`
	StartedAt        *time.Time
	FinishedAt       *time.Time
	StoreResultsJSON string               `gorm:"type:jsonb;column:store_results"`
	TotalStores      int                  `gorm:"not null;default:0"`
	ProductsFetched  int                  `gorm:"not null;default:0"`
	ProductsSent     int                  `gorm:"not null;default:0"`
	ErrorCount       int                  `gorm:"not null;default:0"`
	Error            string               `gorm:"type:text"`
	CreatedAt        time.Time            `gorm:"not null;index"`
	UpdatedAt        time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExecutionModel) TableName() string {
	return "sync_executions"
}

// ToDomain converts the persistence model to a domain Execution entity.
func (m *ExecutionModel) ToDomain() *sync.Execution {
	execution := &sync.Execution{
		ID:              m.ID,
		ConfigurationID: m.ConfigurationID,
		Trigger:         m.Trigger,
		Status:          m.Status,
		StartedAt:       m.StartedAt,
		FinishedAt:      m.FinishedAt,
		Summary: sync.ExecutionSummary{
			TotalStores:     m.TotalStores,
			ProductsFetched: m.ProductsFetched,
			ProductsSent:    m.ProductsSent,
			Errors:          m.ErrorCount,
		},
		Error:     m.Error,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.StoreResultsJSON != "" {
		_ = json.Unmarshal([]byte(m.StoreResultsJSON), &execution.StoreResults)
	}
	return execution
}

// FromDomain populates the persistence model from a domain Execution entity.
func (m *ExecutionModel) FromDomain(e *sync.Execution) {
	m.ID = e.ID
	m.ConfigurationID = e.ConfigurationID
	m.Trigger = e.Trigger
	m.Status = e.Status
	m.StartedAt = e.StartedAt
	m.FinishedAt = e.FinishedAt
	m.TotalStores = e.Summary.TotalStores
	m.ProductsFetched = e.Summary.ProductsFetched
	m.ProductsSent = e.Summary.ProductsSent
	m.ErrorCount = e.Summary.Errors
	m.Error = e.Error
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt

	if len(e.StoreResults) > 0 {
		if jsonBytes, err := json.Marshal(e.StoreResults); err == nil {
			m.StoreResultsJSON = string(jsonBytes)
		}
	} else {
		m.StoreResultsJSON = "[]"
	}
}

// ---------------------------------------------------------------------------
// NotificationChannelModel
// ---------------------------------------------------------------------------

// NotificationChannelModel is the persistence model for the
// NotificationChannel domain entity.
type NotificationChannelModel struct {
	ID           uuid.UUID        `gorm:"type:uuid;primary_key"`
	Name         string           `gorm:"type:varchar(200);not null"`
	Type         sync.ChannelType `gorm:"type:varchar(20);not null"`
	SettingsJSON string           `gorm:"type:jsonb;column:settings"`
	OnStart      bool             `gorm:"not null;default:false"`
	OnSuccess    bool             `gorm:"not null;default:true"`
	OnFailure    bool             `gorm:"not null;default:true"`
	Enabled      bool             `gorm:"not null;default:true"`
	CreatedAt    time.Time        `gorm:"not null"`
	UpdatedAt    time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NotificationChannelModel) TableName() string {
	return "notification_channels"
}

// ToDomain converts the persistence model to a domain NotificationChannel.
func (m *NotificationChannelModel) ToDomain() *sync.NotificationChannel {
	channel := &sync.NotificationChannel{
		ID:        m.ID,
		Name:      m.Name,
		Type:      m.Type,
		OnStart:   m.OnStart,
		OnSuccess: m.OnSuccess,
		OnFailure: m.OnFailure,
		Enabled:   m.Enabled,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.SettingsJSON != "" {
		_ = json.Unmarshal([]byte(m.SettingsJSON), &channel.Settings)
	}
	return channel
}

// FromDomain populates the persistence model from a domain NotificationChannel.
func (m *NotificationChannelModel) FromDomain(c *sync.NotificationChannel) {
	m.ID = c.ID
	m.Name = c.Name
	m.Type = c.Type
	m.OnStart = c.OnStart
	m.OnSuccess = c.OnSuccess
	m.OnFailure = c.OnFailure
	m.Enabled = c.Enabled
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt

	if jsonBytes, err := json.Marshal(c.Settings); err == nil {
		m.SettingsJSON = string(jsonBytes)
	}
}
