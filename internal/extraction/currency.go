package extraction

// ResolveCurrency picks the display currency for a result set: the currency
// carried by the most records, ties broken by first encounter. Falls back to
// defaultCurrency when no record carries one.
func ResolveCurrency(records []SecurityRecord, defaultCurrency string) string {
	counts := map[string]int{}
	var order []string
	for _, rec := range records {
		if rec.Currency == nil || *rec.Currency == "" {
			continue
		}
		ccy := *rec.Currency
		if _, seen := counts[ccy]; !seen {
			order = append(order, ccy)
		}
		counts[ccy]++
	}
	if len(order) == 0 {
		return defaultCurrency
	}
	best := order[0]
	for _, ccy := range order[1:] {
		if counts[ccy] > counts[best] {
			best = ccy
		}
	}
	return best
}
