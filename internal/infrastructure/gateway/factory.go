package gateway

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/campaign"
	"github.com/promosync/backend/internal/infrastructure/config"
	"github.com/promosync/backend/internal/infrastructure/retail"
)

// Factory builds run-scoped gateways from integration descriptors, one
// concrete adapter per provider code.
type Factory struct {
	httpTimeout    time.Duration
	fetchSafetyCap int
	logger         *zap.Logger
}

// NewFactory creates a gateway factory bounded by engine-level sync limits
func NewFactory(cfg config.SyncConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		httpTimeout:    cfg.HTTPTimeout,
		fetchSafetyCap: cfg.FetchSafetyCap,
		logger:         logger,
	}
}

// SourceFor builds a source gateway for a SOURCE integration. Each call
// returns a fresh adapter so token state stays scoped to one run.
func (f *Factory) SourceFor(integration *sync.Integration) (sync.SourceGateway, error) {
	switch integration.Provider {
	case sync.ProviderCodeRP:
		return retail.NewRPAdapter(integration,
			retail.WithHTTPClient(&http.Client{Timeout: f.httpTimeout}),
			retail.WithFetchSafetyCap(f.fetchSafetyCap),
			retail.WithLogger(f.logger.Named("rp")),
		)
	default:
		return nil, &sync.ConfigurationError{Field: "provider", Reason: "no source adapter for " + integration.Provider.String()}
	}
}

// TargetFor builds a target gateway for a TARGET integration
func (f *Factory) TargetFor(integration *sync.Integration) (sync.TargetGateway, error) {
	switch integration.Provider {
	case sync.ProviderCodeCresceVendas:
		return campaign.NewCVAdapter(integration,
			campaign.WithHTTPClient(&http.Client{Timeout: f.httpTimeout}),
			campaign.WithLogger(f.logger.Named("crescevendas")),
		)
	default:
		return nil, &sync.ConfigurationError{Field: "provider", Reason: "no target adapter for " + integration.Provider.String()}
	}
}
