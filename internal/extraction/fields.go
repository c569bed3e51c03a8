package extraction

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"findoc-backend/internal/document"
)

// Each attribute is looked up through a declarative spec: a synonym set over
// column names plus a normalizer for the matched cell. Keeping the heuristics
// as data makes every attribute independently testable.
type fieldSpec struct {
	attr     string
	synonyms []string
	assign   func(rec *SecurityRecord, key, raw string)
}

var fieldSpecs = []fieldSpec{
	{
		attr:     "identifier",
		synonyms: []string{"isin", "identifier", "id"},
		assign: func(rec *SecurityRecord, key, raw string) {
			rec.setIdentifier(strings.ToUpper(strings.TrimSpace(raw)))
		},
	},
	{
		attr:     "name",
		synonyms: []string{"name", "security", "description", "instrument"},
		assign: func(rec *SecurityRecord, key, raw string) {
			if trimmed := strings.TrimSpace(raw); trimmed != "" {
				rec.Name = strPtr(trimmed)
			}
		},
	},
	{
		attr:     "quantity",
		synonyms: []string{"quantity", "shares", "units", "amount"},
		assign: func(rec *SecurityRecord, key, raw string) {
			if d, ok := parseNumber(raw); ok {
				rec.Quantity = decPtr(d)
			}
		},
	},
	{
		attr:     "price",
		synonyms: []string{"price", "rate", "nav"},
		assign: func(rec *SecurityRecord, key, raw string) {
			if d, ok := parseNumber(raw); ok {
				rec.Price = decPtr(d)
			}
			if rec.Currency == nil {
				if ccy := currencyFromSymbol(raw); ccy != "" {
					rec.Currency = strPtr(ccy)
				}
			}
		},
	},
	{
		attr:     "value",
		synonyms: []string{"value", "total", "amount", "market value", "marketvalue", "market_value"},
		assign: func(rec *SecurityRecord, key, raw string) {
			if d, ok := parseNumber(raw); ok {
				rec.Value = decPtr(d)
			}
			if rec.Currency == nil {
				if ccy := currencyFromSymbol(raw); ccy != "" {
					rec.Currency = strPtr(ccy)
				}
			}
		},
	},
	{
		attr:     "currency",
		synonyms: []string{"currency", "ccy"},
		assign: func(rec *SecurityRecord, key, raw string) {
			code := strings.ToUpper(strings.TrimSpace(raw))
			if isCurrencyCode(code) {
				rec.Currency = strPtr(code)
			} else if ccy := currencyFromSymbol(raw); ccy != "" {
				rec.Currency = strPtr(ccy)
			}
		},
	},
	{
		attr:     "weight",
		synonyms: []string{"weight", "percentage", "allocation", "%"},
		assign: func(rec *SecurityRecord, key, raw string) {
			d, ok := parseNumber(raw)
			if !ok {
				return
			}
			rec.Weight = decPtr(normalizeWeight(d, key, raw))
		},
	},
	{
		attr:     "sector",
		synonyms: []string{"sector", "industry", "asset class", "assetclass", "asset_class", "category"},
		assign: func(rec *SecurityRecord, key, raw string) {
			if trimmed := strings.TrimSpace(raw); trimmed != "" {
				rec.Sector = strPtr(trimmed)
			}
		},
	},
}

// ExtractFromRow derives a SecurityRecord from one table row. Every attribute
// getter is total: missing columns or unparseable cells yield nil fields.
func ExtractFromRow(row document.RowMapping) SecurityRecord {
	var rec SecurityRecord
	if len(row) == 0 {
		return rec
	}

	// Deterministic key order; map iteration would make "first match" racy.
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, spec := range fieldSpecs {
		key, raw, ok := findCell(row, keys, spec.synonyms)
		if !ok {
			continue
		}
		spec.assign(&rec, key, raw)
	}

	rec.deriveValue()
	return rec
}

// findCell returns the first cell whose column name matches one of the
// synonyms, scanning synonyms in priority order.
func findCell(row document.RowMapping, sortedKeys []string, synonyms []string) (key, raw string, ok bool) {
	for _, syn := range synonyms {
		for _, k := range sortedKeys {
			if !keyMatches(normalizeKey(k), syn) {
				continue
			}
			val := cellToString(row[k])
			if strings.TrimSpace(val) == "" {
				continue
			}
			return k, val, true
		}
	}
	return "", "", false
}

// keyMatches applies substring matching for descriptive synonyms and exact
// matching for short ones ("id", "ccy", "nav", "%"), where substring matching
// would misfire on words like "valid".
func keyMatches(normalizedKey, synonym string) bool {
	if len(synonym) <= 3 {
		return normalizedKey == synonym
	}
	return strings.Contains(normalizedKey, synonym)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func cellToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// normalizeWeight maps percent-style weights into the [0,1] fraction the data
// model requires. A literal '%' always means percent; otherwise a
// percentage-flavored column only gets divided when the magnitude says it
// cannot already be a fraction.
func normalizeWeight(d decimal.Decimal, key, raw string) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if strings.Contains(raw, "%") {
		return d.Div(hundred)
	}
	nk := normalizeKey(key)
	percentFlavored := nk == "%" || strings.Contains(nk, "percent") ||
		strings.Contains(nk, "weight") || strings.Contains(nk, "allocation")
	if percentFlavored && d.GreaterThan(decimal.NewFromInt(1)) {
		return d.Div(hundred)
	}
	return d
}

// parseNumber coerces a cell to a decimal. It tolerates thousands separators
// (comma or apostrophe), currency symbols, percent signs and accounting-style
// parentheses for negatives.
func parseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-':
			negative = true
		case r == ',', r == '\'', r == ' ', r == '%':
			// separators and percent are stripped; percent handling is the
			// caller's concern
		case r == '$' || r == '€' || r == '£' || r == '¥':
		default:
			if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
				// trailing currency codes like "150.00 USD"
				continue
			}
			return decimal.Decimal{}, false
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "." {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

var symbolCurrencies = map[rune]string{
	'$': "USD",
	'€': "EUR",
	'£': "GBP",
	'¥': "JPY",
}

// currencyFromSymbol maps a currency symbol embedded in a cell to its ISO
// code.
func currencyFromSymbol(raw string) string {
	for _, r := range raw {
		if ccy, ok := symbolCurrencies[r]; ok {
			return ccy
		}
	}
	return ""
}

var currencyCodes = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "CHF": {}, "JPY": {}, "CAD": {},
	"AUD": {}, "NZD": {}, "SEK": {}, "NOK": {}, "DKK": {}, "HKD": {},
	"SGD": {}, "CNY": {}, "INR": {}, "BRL": {}, "ZAR": {}, "KRW": {},
	"MXN": {}, "PLN": {}, "CZK": {}, "HUF": {}, "ILS": {}, "TRY": {},
}

func isCurrencyCode(code string) bool {
	_, ok := currencyCodes[code]
	return ok
}
