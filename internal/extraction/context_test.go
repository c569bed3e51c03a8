package extraction

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestExtractFromContext(t *testing.T) {
	ctx := "Apple Inc. (ISIN US0378331005) 1,000 shares at USD 150.00"
	rec := ExtractFromContext("US0378331005", ctx)

	if rec.Identifier == nil || *rec.Identifier != "US0378331005" {
		t.Fatalf("identifier = %v, want US0378331005", rec.Identifier)
	}
	if rec.Name == nil || *rec.Name != "Apple Inc." {
		t.Fatalf("name = %v, want Apple Inc.", rec.Name)
	}
	if rec.Quantity == nil || !rec.Quantity.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("quantity = %v, want 1000", rec.Quantity)
	}
	if rec.Price == nil || !rec.Price.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("price = %v, want 150.00", rec.Price)
	}
	if rec.Currency == nil || *rec.Currency != "USD" {
		t.Fatalf("currency = %v, want USD", rec.Currency)
	}
	if rec.Value == nil || !rec.Value.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("value = %v, want derived 150000", rec.Value)
	}
}

func TestExtractFromContextInvalidIdentifier(t *testing.T) {
	rec := ExtractFromContext("US0378331009", "Apple Inc. US0378331009 500 shares")
	if rec.Identifier != nil {
		t.Fatalf("identifier = %v, want nil for failed checksum", rec.Identifier)
	}
	if rec.Quantity == nil || !rec.Quantity.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("quantity = %v, want 500 despite invalid identifier", rec.Quantity)
	}
}

func TestExtractFromContextSymbolPrice(t *testing.T) {
	rec := ExtractFromContext("US0378331005", "US0378331005 bought @ $99.95")
	if rec.Price == nil || !rec.Price.Equal(decimal.RequireFromString("99.95")) {
		t.Fatalf("price = %v, want 99.95", rec.Price)
	}
	if rec.Currency == nil || *rec.Currency != "USD" {
		t.Fatalf("currency = %v, want USD from symbol", rec.Currency)
	}
}

func TestExtractFromContextInstrumentType(t *testing.T) {
	rec := ExtractFromContext("DE0007164600", "SAP SE corporate bond position DE0007164600")
	if rec.Sector == nil || *rec.Sector != "Bond" {
		t.Fatalf("sector = %v, want Bond", rec.Sector)
	}
}

func TestNameBeforeIdentifierStaysOnLine(t *testing.T) {
	ctx := "Previous Line Holdings\nSecond US0378331005"
	name := nameBeforeIdentifier("US0378331005", ctx)
	if name != "Second" {
		t.Fatalf("name = %q, want only text from the identifier's own line", name)
	}
}

func TestExtractAllFromText(t *testing.T) {
	text := "Portfolio:\n" +
		"Apple Inc. (ISIN US0378331005) 100 shares at USD 150\n" +
		"Diageo plc GB0002374006 50 shares\n" +
		"Garbage code ZZ0000000000 here\n"
	records := extractAllFromText(text)
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2 (invalid checksum skipped)", len(records))
	}
	if *records[0].Identifier != "US0378331005" || *records[1].Identifier != "GB0002374006" {
		t.Fatalf("identifiers = %s, %s", *records[0].Identifier, *records[1].Identifier)
	}
}

func TestExtractAllFromTextNoMatches(t *testing.T) {
	if records := extractAllFromText("nothing financial in here"); records != nil {
		t.Fatalf("records = %v, want nil", records)
	}
}
