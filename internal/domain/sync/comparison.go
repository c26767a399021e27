package sync

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ComparisonSeverity represents how far a store has drifted out of sync
// ---------------------------------------------------------------------------

// ComparisonSeverity represents how far a store has drifted out of sync
type ComparisonSeverity string

const (
	// SeverityInSync indicates the divergence is below the reporting threshold
	SeverityInSync ComparisonSeverity = "IN_SYNC"
	// SeverityNormal indicates a reportable but expected level of divergence
	SeverityNormal ComparisonSeverity = "NORMAL"
	// SeverityCritical indicates divergence past the critical threshold
	SeverityCritical ComparisonSeverity = "CRITICAL"
)

// String returns the string representation of ComparisonSeverity
func (s ComparisonSeverity) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Comparison Value Objects
// ---------------------------------------------------------------------------

// PriceDifference records a product present on both sides with diverging
// pricing. Both the base and the discounted price are carried so a divergence
// on either field is visible in the report.
type PriceDifference struct {
	// Code is the product code
	Code string `json:"code"`
	// OldPrice is the base price currently held by the target
	OldPrice decimal.Decimal `json:"old_price"`
	// NewPrice is the base price according to the source
	NewPrice decimal.Decimal `json:"new_price"`
	// OldFinalPrice is the discounted price currently held by the target
	OldFinalPrice decimal.Decimal `json:"old_final_price"`
	// NewFinalPrice is the discounted price according to the source
	NewFinalPrice decimal.Decimal `json:"new_final_price"`
}

// StatusDifference records a product whose active/expired state differs
// between source and target.
type StatusDifference struct {
	// Code is the product code
	Code string `json:"code"`
	// SourceActive is the activity state derived from the source record
	SourceActive bool `json:"source_active"`
	// TargetActive is the activity state derived from the target record
	TargetActive bool `json:"target_active"`
}

// ComparisonResult is the computed divergence between the source and target
// snapshots of one store. It classifies; it never mutates state.
type ComparisonResult struct {
	// StoreReg is the registration of the compared store
	StoreReg string `json:"store_reg"`
	// MissingInTarget lists source records absent from the target
	MissingInTarget []ProductRecord `json:"missing_in_target,omitempty"`
	// PriceDifferences lists records with diverging pricing
	PriceDifferences []PriceDifference `json:"price_differences,omitempty"`
	// StatusDifferences lists records with diverging activity state
	StatusDifferences []StatusDifference `json:"status_differences,omitempty"`
	// Severity classifies the total divergence
	Severity ComparisonSeverity `json:"severity"`
	// ComparedAt is when the comparison ran
	ComparedAt time.Time `json:"compared_at"`
}

// TotalDifferences returns the combined count of all divergence classes.
func (r *ComparisonResult) TotalDifferences() int {
	return len(r.MissingInTarget) + len(r.PriceDifferences) + len(r.StatusDifferences)
}

// InSync reports whether the store needs no attention.
func (r *ComparisonResult) InSync() bool {
	return r.Severity == SeverityInSync
}

// ---------------------------------------------------------------------------
// Comparator
// ---------------------------------------------------------------------------

// ComparatorThresholds configure severity classification.
type ComparatorThresholds struct {
	// Normal is the minimum difference count considered reportable
	Normal int
	// Critical is the minimum difference count considered critical
	Critical int
}

// DefaultComparatorThresholds returns the default severity thresholds.
func DefaultComparatorThresholds() ComparatorThresholds {
	return ComparatorThresholds{Normal: 5, Critical: 50}
}

// Comparator computes the set-difference between source and target product
// snapshots for a store.
type Comparator struct {
	thresholds ComparatorThresholds
	now        func() time.Time
}

// NewComparator creates a comparator with the given thresholds.
func NewComparator(thresholds ComparatorThresholds) *Comparator {
	if thresholds.Normal < 1 {
		thresholds.Normal = DefaultComparatorThresholds().Normal
	}
	if thresholds.Critical < thresholds.Normal {
		thresholds.Critical = DefaultComparatorThresholds().Critical
	}
	return &Comparator{thresholds: thresholds, now: time.Now}
}

// WithClock overrides the comparator's clock. Intended for tests.
func (c *Comparator) WithClock(now func() time.Time) *Comparator {
	c.now = now
	return c
}

// Diff classifies the divergence of target from source for one store.
// Records present in target but absent from source are not reported: their
// retention is the cleanup policy's concern, not the comparator's.
func (c *Comparator) Diff(storeReg string, source, target []ProductRecord) *ComparisonResult {
	now := c.now()
	result := &ComparisonResult{
		StoreReg:   storeReg,
		ComparedAt: now,
	}

	targetByKey := make(map[RecordKey]*ProductRecord, len(target))
	for i := range target {
		rec := &target[i]
		targetByKey[rec.Key()] = rec
	}

	for i := range source {
		src := &source[i]
		tgt, ok := targetByKey[src.Key()]
		if !ok {
			result.MissingInTarget = append(result.MissingInTarget, *src)
			continue
		}
		if !src.SamePricing(tgt) {
			result.PriceDifferences = append(result.PriceDifferences, PriceDifference{
				Code:          src.Code,
				OldPrice:      tgt.Price,
				NewPrice:      src.Price,
				OldFinalPrice: tgt.FinalPrice,
				NewFinalPrice: src.FinalPrice,
			})
		}
		srcActive := src.IsActiveAt(now)
		tgtActive := tgt.IsActiveAt(now)
		if srcActive != tgtActive {
			result.StatusDifferences = append(result.StatusDifferences, StatusDifference{
				Code:         src.Code,
				SourceActive: srcActive,
				TargetActive: tgtActive,
			})
		}
	}

	result.Severity = c.classify(result.TotalDifferences())
	return result
}

// classify maps a difference count to a severity.
func (c *Comparator) classify(total int) ComparisonSeverity {
	switch {
	case total >= c.thresholds.Critical:
		return SeverityCritical
	case total >= c.thresholds.Normal:
		return SeverityNormal
	default:
		return SeverityInSync
	}
}
