package retail

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/promosync/backend/internal/domain/sync"
)

// rpLoginRequest is the body of the RP login call
type rpLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// rpProductsResponse is the envelope of the RP products listing endpoint
type rpProductsResponse struct {
	Response []rpProduct `json:"response"`
}

// rpProduct is one priced-product listing as RP returns it
type rpProduct struct {
	ID         int64           `json:"id"`
	Code       string          `json:"productCode"`
	Price      decimal.Decimal `json:"price"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
	Limit      int             `json:"limit"`
	StoreID    string          `json:"storeId"`
	StartsAt   *time.Time      `json:"startsAt,omitempty"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
}

// toDomain converts an RP wire record to a ProductRecord. Records without
// an explicit store are attributed to the store being fetched.
func (p *rpProduct) toDomain(storeReg string) sync.ProductRecord {
	record := sync.ProductRecord{
		Code:       p.Code,
		Price:      p.Price,
		FinalPrice: p.FinalPrice,
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

// extractTokenPath walks a dotted path (e.g. "response.token") through a
// decoded JSON document and returns the string value at the leaf.
func extractTokenPath(doc map[string]any, path string) (string, bool) {
	segments := strings.Split(path, ".")

	current := any(doc)
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = node[segment]
		if !ok {
			return "", false
		}
	}

	token, ok := current.(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
