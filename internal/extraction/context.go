package extraction

import (
	"regexp"
	"strings"

	"findoc-backend/internal/isin"
)

// Free-text pulls used when no table row is available, only the text window
// around a detected identifier.
var (
	quantityRe = regexp.MustCompile(`(?i)([\d][\d,.'\s]*)\s*(?:shares|units|stocks|pcs|stk)\b`)
	priceRe    = regexp.MustCompile(`(?i)(?:\b(?:price|rate|nav|at)\b|@)\s*:?\s*(?:[A-Z]{3}\s*|[$€£¥]\s*)?([\d][\d,.']*)`)
	symPriceRe = regexp.MustCompile(`[$€£¥]\s*([\d][\d,.']*)`)
	currencyRe = regexp.MustCompile(`\b(USD|EUR|GBP|CHF|JPY|CAD|AUD|NZD|SEK|NOK|DKK|HKD|SGD|CNY|INR|BRL|ZAR|KRW)\b`)
	nameRe     = regexp.MustCompile(`([A-Z][A-Za-z0-9&.'\-]*(?:\s+[A-Za-z0-9&.'\-]+){0,6}?)\s*$`)
)

var instrumentTypes = []struct {
	keyword string
	label   string
}{
	{"equity", "Equity"},
	{"stock", "Equity"},
	{"share", "Equity"},
	{"bond", "Bond"},
	{"note", "Bond"},
	{"fixed income", "Bond"},
	{"etf", "Fund"},
	{"fund", "Fund"},
	{"certificate", "Certificate"},
	{"structured", "Structured Product"},
	{"warrant", "Warrant"},
	{"option", "Derivative"},
	{"future", "Derivative"},
}

// ExtractFromContext derives a SecurityRecord from the free-text window
// around a detected identifier. The identifier is re-validated; an invalid
// one leaves the identifier field nil but the other pulls still apply.
func ExtractFromContext(identifier, contextText string) SecurityRecord {
	var rec SecurityRecord
	rec.setIdentifier(strings.ToUpper(strings.TrimSpace(identifier)))

	if name := nameBeforeIdentifier(identifier, contextText); name != "" {
		rec.Name = strPtr(name)
	}

	if m := quantityRe.FindStringSubmatch(contextText); m != nil {
		if d, ok := parseNumber(m[1]); ok {
			rec.Quantity = decPtr(d)
		}
	}

	if m := priceRe.FindStringSubmatch(contextText); m != nil {
		if d, ok := parseNumber(m[1]); ok {
			rec.Price = decPtr(d)
		}
	} else if m := symPriceRe.FindStringSubmatch(contextText); m != nil {
		if d, ok := parseNumber(m[1]); ok {
			rec.Price = decPtr(d)
		}
	}

	if m := currencyRe.FindString(contextText); m != "" {
		rec.Currency = strPtr(m)
	} else if ccy := currencyFromSymbol(contextText); ccy != "" {
		rec.Currency = strPtr(ccy)
	}

	if label := instrumentType(contextText); label != "" {
		rec.Sector = strPtr(label)
	}

	rec.deriveValue()
	return rec
}

// nameBeforeIdentifier pulls the phrase immediately preceding the identifier,
// e.g. "Apple Inc. (ISIN US0378331005)" → "Apple Inc.".
func nameBeforeIdentifier(identifier, contextText string) string {
	idx := strings.Index(contextText, identifier)
	if idx <= 0 {
		return ""
	}
	prefix := contextText[:idx]

	// Strip the connective noise between name and code.
	prefix = strings.TrimRight(prefix, " \t:（(")
	for _, marker := range []string{"ISIN", "isin", "Isin"} {
		prefix = strings.TrimRight(strings.TrimSuffix(prefix, marker), " \t:（(-–")
	}

	// Only look within the current line.
	if nl := strings.LastIndexAny(prefix, "\n\r"); nl >= 0 {
		prefix = prefix[nl+1:]
	}

	m := nameRe.FindStringSubmatch(strings.TrimSpace(prefix))
	if m == nil {
		return ""
	}
	name := strings.Trim(m[1], " ,;-")
	// Single lowercase-ish leftovers are too weak to be a name.
	if len(name) < 2 {
		return ""
	}
	return name
}

func instrumentType(contextText string) string {
	lower := strings.ToLower(contextText)
	for _, it := range instrumentTypes {
		if strings.Contains(lower, it.keyword) {
			return it.label
		}
	}
	return ""
}

// extractAllFromText runs identifier detection over free text and context
// extraction on every checksum-valid hit. Used for document body text and as
// the degraded path when table extraction blows up.
func extractAllFromText(text string) []SecurityRecord {
	matches := isin.Detect(text)
	if len(matches) == 0 {
		return nil
	}
	records := make([]SecurityRecord, 0, len(matches))
	for _, m := range matches {
		if !m.Valid {
			continue
		}
		rec := ExtractFromContext(m.Identifier, m.Context)
		if rec.isEmpty() {
			continue
		}
		records = append(records, rec)
	}
	return records
}
