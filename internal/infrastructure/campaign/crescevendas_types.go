package campaign

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/promosync/backend/internal/domain/sync"
)

// cvProduct is one campaign-product listing on the CresceVendas wire
type cvProduct struct {
	StoreID       string          `json:"store_id"`
	Code          string          `json:"product_code"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Limit         int             `json:"limit,omitempty"`
	StartsAt      *time.Time      `json:"starts_at,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
}

// toDomain converts a CresceVendas wire record to a ProductRecord
func (p *cvProduct) toDomain(storeReg string) sync.ProductRecord {
	record := sync.ProductRecord{
		Code:       p.Code,
		Price:      p.Price,
		FinalPrice: p.DiscountPrice,
		Limit:      p.Limit,
		StoreID:    p.StoreID,
	}
	if record.StoreID == "" {
		record.StoreID = storeReg
	}
	if p.StartsAt != nil {
		record.StartsAt = *p.StartsAt
	}
	if p.ExpiresAt != nil {
		record.ExpiresAt = *p.ExpiresAt
	}
	return record
}

// fromDomain converts a ProductRecord to its wire form
func fromDomain(record *sync.ProductRecord) cvProduct {
	product := cvProduct{
		StoreID:       record.StoreID,
		Code:          record.Code,
		Price:         record.Price,
		DiscountPrice: record.FinalPrice,
		Limit:         record.Limit,
	}
	if !record.StartsAt.IsZero() {
		startsAt := record.StartsAt
		product.StartsAt = &startsAt
	}
	if !record.ExpiresAt.IsZero() {
		expiresAt := record.ExpiresAt
		product.ExpiresAt = &expiresAt
	}
	return product
}

// cvUploadRequest is the framed bulk-upload payload
type cvUploadRequest struct {
	Name             string      `json:"name"`
	StartsAt         time.Time   `json:"starts_at"`
	EndsAt           time.Time   `json:"ends_at"`
	OverrideExisting bool        `json:"override_existing"`
	StoreProducts    []cvProduct `json:"store_products"`
}

// cvUploadResponse is the acknowledgement of a bulk upload
type cvUploadResponse struct {
	Name     string `json:"name"`
	Accepted int    `json:"accepted"`
}

// cvListingResponse is the envelope of the store listing endpoint
type cvListingResponse struct {
	StoreProducts []cvProduct `json:"store_products"`
}

// cvDeactivateRequest asks the platform to deactivate listings by code
type cvDeactivateRequest struct {
	StoreID      string   `json:"store_id"`
	ProductCodes []string `json:"product_codes"`
}
