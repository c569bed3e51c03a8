package isin

import (
	"strings"
	"testing"
)

func TestValidateKnownIdentifiers(t *testing.T) {
	valid := []string{
		"US0378331005", // Apple Inc.
		"US5949181045", // Microsoft Corp.
		"GB0002374006", // Diageo plc
		"DE0007164600", // SAP SE
		"CH0038863350", // Nestle SA
	}
	for _, id := range valid {
		if !Validate(id) {
			t.Errorf("Validate(%q) = false, want true", id)
		}
	}
}

func TestValidateRejectsSingleCharacterFlips(t *testing.T) {
	const id = "US0378331005"
	for i := 2; i < len(id); i++ {
		if id[i] == '0' {
			continue
		}
		flipped := id[:i] + "0" + id[i+1:]
		if flipped == id {
			continue
		}
		if Validate(flipped) {
			t.Errorf("Validate(%q) = true after flipping position %d, want false", flipped, i)
		}
	}
}

func TestValidateRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"US03783310",     // too short
		"US03783310057",  // too long
		"us0378331005",   // lowercase prefix
		"US037833100$",   // non-alphanumeric
		"1S0378331005",   // digit in country prefix
		"US 378331005",   // embedded space
		"US0378331004",   // bad check digit
		strings.Repeat("A", 12),
	}
	for _, id := range cases {
		if Validate(id) {
			t.Errorf("Validate(%q) = true, want false", id)
		}
	}
}

func TestDetectFindsIdentifiersWithContext(t *testing.T) {
	text := "Holdings as of June: Apple Inc. (ISIN US0378331005) 1,000 shares at $150.00 each."
	matches := Detect(text)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Identifier != "US0378331005" {
		t.Fatalf("identifier = %q", m.Identifier)
	}
	if !m.Valid {
		t.Fatalf("expected match to be checksum-valid")
	}
	if m.Position != strings.Index(text, "US0378331005") {
		t.Fatalf("position = %d", m.Position)
	}
	if !strings.Contains(m.Context, "Apple Inc.") {
		t.Fatalf("context %q should include the preceding name", m.Context)
	}
	if !strings.Contains(m.Context, "1,000 shares") {
		t.Fatalf("context %q should include the following quantity", m.Context)
	}
}

func TestDetectFlagsInvalidChecksum(t *testing.T) {
	matches := Detect("bogus code US0378331004 in text")
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Valid {
		t.Fatalf("expected invalid checksum to be flagged")
	}
}

func TestDetectHandlesDegenerateInput(t *testing.T) {
	if got := Detect(""); len(got) != 0 {
		t.Fatalf("Detect(\"\") = %v, want empty", got)
	}
	if got := Detect("no identifiers here"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestDetectContextClampedAtBoundaries(t *testing.T) {
	text := "US0378331005 at start"
	matches := Detect(text)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Context != text {
		t.Fatalf("context = %q, want full short text", matches[0].Context)
	}
}

func TestCountryInfo(t *testing.T) {
	c := CountryInfo("US0378331005")
	if c.Name != "United States" || c.Region != "North America" {
		t.Fatalf("CountryInfo(US...) = %+v", c)
	}
	c = CountryInfo("XS1234567890")
	if c.Name != "International" {
		t.Fatalf("CountryInfo(XS...) = %+v", c)
	}
	c = CountryInfo("ZZ9999999999")
	if c.Name != "Unknown" || c.Region != "Unknown" {
		t.Fatalf("unknown prefix should map to Unknown, got %+v", c)
	}
	if got := CountryInfo(""); got != unknownCountry {
		t.Fatalf("empty identifier should be Unknown, got %+v", got)
	}
}
