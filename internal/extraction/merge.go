package extraction

import "strings"

const syntheticPrefix = "XX"

// Merge consolidates raw observations into one canonical record per
// identifier. The first-seen record for an identifier survives; duplicates
// only fill fields the survivor is still missing (first-write-wins). Records
// without an identifier but with a name get a synthetic identifier derived
// from the name, with name-level deduplication so the same security never
// appears twice. Output preserves first-occurrence order, and merging an
// already-merged list is a no-op.
func Merge(records []SecurityRecord) []SecurityRecord {
	var (
		order    []string
		byID     = map[string]*SecurityRecord{}
		byName   = map[string]string{} // normalized name → identifier key
		survived []SecurityRecord
	)

	for _, rec := range records {
		switch {
		case rec.Identifier != nil:
			key := *rec.Identifier
			if existing, ok := byID[key]; ok {
				fillMissing(existing, rec)
				continue
			}
			clone := rec
			byID[key] = &clone
			order = append(order, key)
			if rec.Name != nil {
				byName[normalizeName(*rec.Name)] = key
			}
		case rec.Name != nil:
			nameKey := normalizeName(*rec.Name)
			if key, ok := byName[nameKey]; ok {
				fillMissing(byID[key], rec)
				continue
			}
			key := syntheticIdentifier(*rec.Name)
			if existing, ok := byID[key]; ok {
				fillMissing(existing, rec)
				continue
			}
			clone := rec
			clone.Identifier = strPtr(key)
			byID[key] = &clone
			byName[nameKey] = key
			order = append(order, key)
		default:
			// Nothing to key on; the observation cannot be reconciled.
			continue
		}
	}

	survived = make([]SecurityRecord, 0, len(order))
	for _, key := range order {
		survived = append(survived, *byID[key])
	}
	return survived
}

// fillMissing copies fields from src into dst where dst has none. A field
// already set is never overwritten.
func fillMissing(dst *SecurityRecord, src SecurityRecord) {
	if dst.Name == nil {
		dst.Name = src.Name
	}
	if dst.Quantity == nil {
		dst.Quantity = src.Quantity
	}
	if dst.Price == nil {
		dst.Price = src.Price
	}
	if dst.Value == nil {
		dst.Value = src.Value
	}
	if dst.Currency == nil {
		dst.Currency = src.Currency
	}
	if dst.Weight == nil {
		dst.Weight = src.Weight
	}
	if dst.Sector == nil {
		dst.Sector = src.Sector
	}
	if dst.Country == nil {
		dst.Country = src.Country
	}
	if dst.Region == nil {
		dst.Region = src.Region
	}
	// A late value can still be derived from freshly filled parts.
	dst.deriveValue()
}

// syntheticIdentifier builds a merge key for a named security without an
// ISIN: "XX" + the name stripped to alphanumerics, upper-cased, and
// truncated/right-padded with '0' to 10 characters.
func syntheticIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	suffix := b.String()
	if len(suffix) > 10 {
		suffix = suffix[:10]
	}
	for len(suffix) < 10 {
		suffix += "0"
	}
	return syntheticPrefix + suffix
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
