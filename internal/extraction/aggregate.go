package extraction

import "github.com/shopspring/decimal"

// Aggregate computes portfolio-level totals: the record count and the sum of
// all known market values (missing values count as zero).
func Aggregate(records []SecurityRecord) (count int, totalValue decimal.Decimal) {
	for _, rec := range records {
		if rec.Value != nil {
			totalValue = totalValue.Add(*rec.Value)
		}
	}
	return len(records), totalValue
}
