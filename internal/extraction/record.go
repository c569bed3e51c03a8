package extraction

import (
	"github.com/shopspring/decimal"

	"findoc-backend/internal/isin"
)

// SecurityRecord is one financial instrument observation. Nil fields mean
// "not found"; extractors never guess.
type SecurityRecord struct {
	Identifier *string          `json:"identifier"`
	Name       *string          `json:"name,omitempty"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	Currency   *string          `json:"currency,omitempty"`
	Weight     *decimal.Decimal `json:"weight,omitempty"`
	Sector     *string          `json:"sector,omitempty"`
	Country    *string          `json:"country,omitempty"`
	Region     *string          `json:"region,omitempty"`
}

// Result is the per-document extraction output.
type Result struct {
	Securities      []SecurityRecord `json:"securities"`
	SecuritiesCount int              `json:"securitiesCount"`
	TotalValue      decimal.Decimal  `json:"totalValue"`
	Currency        string           `json:"currency"`
}

// setIdentifier records a checksum-valid identifier and its derived
// country/region. Invalid candidates leave the record untouched.
func (r *SecurityRecord) setIdentifier(candidate string) bool {
	if !isin.Validate(candidate) {
		return false
	}
	r.Identifier = strPtr(candidate)
	country := isin.CountryInfo(candidate)
	r.Country = strPtr(country.Name)
	r.Region = strPtr(country.Region)
	return true
}

// deriveValue fills Value from Quantity×Price when all three line up.
func (r *SecurityRecord) deriveValue() {
	if r.Value == nil && r.Quantity != nil && r.Price != nil {
		v := r.Quantity.Mul(*r.Price)
		r.Value = &v
	}
}

// isEmpty reports whether no attribute at all was extracted.
func (r SecurityRecord) isEmpty() bool {
	return r.Identifier == nil && r.Name == nil && r.Quantity == nil &&
		r.Price == nil && r.Value == nil && r.Currency == nil &&
		r.Weight == nil && r.Sector == nil
}

func strPtr(s string) *string { return &s }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }
