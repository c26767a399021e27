package sync

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ProductRecord
// ---------------------------------------------------------------------------

// ProductRecord is the unit exchanged with both external systems: a priced
// product listing scoped to one store. Identity for diffing purposes is
// (store_id, code).
type ProductRecord struct {
	// Code is the source system's product identifier
	Code string `json:"code"`
	// Price is the regular price
	Price decimal.Decimal `json:"price"`
	// FinalPrice is the discounted price offered in the campaign
	FinalPrice decimal.Decimal `json:"final_price"`
	// Limit is the per-customer quantity cap (0 = unlimited)
	Limit int `json:"limit"`
	// StoreID is the registration of the store this listing belongs to
	StoreID string `json:"store_id"`
	// StartsAt is when the discount becomes valid
	StartsAt time.Time `json:"starts_at"`
	// ExpiresAt is when the discount stops being valid
	ExpiresAt time.Time `json:"expires_at"`
}

// RecordKey is the diffing identity of a ProductRecord.
type RecordKey struct {
	// StoreID is the store registration
	StoreID string
	// Code is the product code
	Code string
}

// Key returns the diffing identity of the record.
func (r *ProductRecord) Key() RecordKey {
	return RecordKey{StoreID: r.StoreID, Code: r.Code}
}

// IsActiveAt reports whether the discount window covers the given instant.
// A zero StartsAt means "already started"; a zero ExpiresAt means "never
// expires".
func (r *ProductRecord) IsActiveAt(now time.Time) bool {
	if !r.StartsAt.IsZero() && now.Before(r.StartsAt) {
		return false
	}
	if !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt) {
		return false
	}
	return true
}

// SamePricing reports whether both price fields are exactly equal. Price
// comparison is zero-tolerance: any difference counts as divergence.
func (r *ProductRecord) SamePricing(other *ProductRecord) bool {
	return r.Price.Equal(other.Price) && r.FinalPrice.Equal(other.FinalPrice)
}

// PartitionRecords splits records into batches of at most batchSize,
// preserving order. batchSize values below 1 yield a single batch.
func PartitionRecords(records []ProductRecord, batchSize int) [][]ProductRecord {
	if len(records) == 0 {
		return nil
	}
	if batchSize < 1 {
		return [][]ProductRecord{records}
	}

	batches := make([][]ProductRecord, 0, (len(records)+batchSize-1)/batchSize)
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}
