package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"findoc-backend/internal/document"
)

func TestProcessTableDocument(t *testing.T) {
	svc := &Service{DefaultCurrency: "USD"}
	doc := document.Parsed{
		Tables: []document.Table{
			{
				TableType: "securities",
				Headers:   []string{"Security", "ISIN", "Quantity", "Price"},
				Rows: []document.RowMapping{
					{"Security": "Apple Inc.", "ISIN": "US0378331005", "Quantity": "100", "Price": "150.00"},
					{"Security": "Diageo plc", "ISIN": "GB0002374006", "Quantity": "50", "Price": "30.00"},
				},
			},
			{
				TableType: "fees", // not a securities table, must be skipped
				Rows: []document.RowMapping{
					{"Fee": "Custody", "Amount": "25.00"},
				},
			},
		},
	}

	result, err := svc.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.SecuritiesCount != 2 {
		t.Fatalf("count = %d, want 2", result.SecuritiesCount)
	}
	if !result.TotalValue.Equal(decimal.NewFromInt(16500)) {
		t.Fatalf("total = %s, want 16500", result.TotalValue)
	}
	if result.Currency != "USD" {
		t.Fatalf("currency = %s, want default USD", result.Currency)
	}
}

func TestProcessMergesTableAndText(t *testing.T) {
	svc := &Service{DefaultCurrency: "USD"}
	doc := document.Parsed{
		Text: "Also held: Apple Inc. (ISIN US0378331005) 100 shares",
		Tables: []document.Table{
			{
				TableType: "holdings",
				Rows: []document.RowMapping{
					{"ISIN": "US0378331005", "Price": "150.00", "Currency": "USD"},
				},
			},
		},
	}

	result, err := svc.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.SecuritiesCount != 1 {
		t.Fatalf("count = %d, want 1 after dedup", result.SecuritiesCount)
	}
	rec := result.Securities[0]
	if rec.Name == nil || *rec.Name != "Apple Inc." {
		t.Fatalf("name = %v, want filled from text context", rec.Name)
	}
	if rec.Price == nil || rec.Quantity == nil {
		t.Fatalf("record missing merged fields: %+v", rec)
	}
}

func TestProcessMetadataCurrencyWins(t *testing.T) {
	svc := &Service{DefaultCurrency: "USD"}
	doc := document.Parsed{
		Metadata: document.Metadata{Currency: "chf"},
		Tables: []document.Table{
			{
				TableType: "positions",
				Rows:      []document.RowMapping{{"ISIN": "CH0038863350"}},
			},
		},
	}
	result, err := svc.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Currency != "CHF" {
		t.Fatalf("currency = %s, want metadata CHF over default", result.Currency)
	}
}

func TestProcessHeaderClassification(t *testing.T) {
	svc := &Service{DefaultCurrency: "USD"}
	doc := document.Parsed{
		Tables: []document.Table{
			{
				// no tableType tag, classified via the ISIN header
				Headers: []string{"ISIN", "Name"},
				Rows:    []document.RowMapping{{"ISIN": "US0378331005", "Name": "Apple Inc."}},
			},
		},
	}
	result, err := svc.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.SecuritiesCount != 1 {
		t.Fatalf("count = %d, want 1 from header-classified table", result.SecuritiesCount)
	}
}

func TestProcessAIFallbackForIdentifierlessTable(t *testing.T) {
	client := &fakeLLM{response: `[{"isin":"US0378331005","name":"Apple Inc.","value":1000,"currency":"USD"}]`}
	svc := &Service{LLM: client, DefaultCurrency: "USD"}
	doc := document.Parsed{
		Tables: []document.Table{
			{
				TableType: "holdings",
				Rows: []document.RowMapping{
					{"Name": "Scrambled OCR garbage", "Qty": "??"},
				},
			},
		},
	}

	result, err := svc.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if client.calls == 0 {
		t.Fatal("oracle not consulted for identifier-less table")
	}
	found := false
	for _, rec := range result.Securities {
		if rec.Identifier != nil && *rec.Identifier == "US0378331005" {
			found = true
		}
	}
	if !found {
		t.Fatalf("oracle record missing from result: %+v", result.Securities)
	}
}

func TestProcessAIFailureDegradesToHeuristics(t *testing.T) {
	client := &fakeLLM{err: errors.New("http status 400")}
	svc := &Service{LLM: client, DefaultCurrency: "USD"}
	doc := document.Parsed{
		Tables: []document.Table{
			{
				TableType: "holdings",
				Rows:      []document.RowMapping{{"Name": "Private Holding AG", "Value": "5000"}},
			},
		},
	}

	result, err := svc.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.SecuritiesCount != 1 {
		t.Fatalf("count = %d, want the heuristic record to survive oracle failure", result.SecuritiesCount)
	}
	if !strings.HasPrefix(*result.Securities[0].Identifier, "XX") {
		t.Fatalf("identifier = %s, want synthetic", *result.Securities[0].Identifier)
	}
}

func TestProcessLastResortOracleOnBareText(t *testing.T) {
	client := &fakeLLM{response: `[{"isin":"US0378331005","name":"Apple Inc."}]`}
	svc := &Service{LLM: client, DefaultCurrency: "USD"}
	doc := document.Parsed{Text: "scanned noise with no recognizable codes"}

	result, err := svc.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if client.calls == 0 {
		t.Fatal("oracle not consulted for bare text without detections")
	}
	if result.SecuritiesCount != 1 {
		t.Fatalf("count = %d, want 1", result.SecuritiesCount)
	}
}

func TestProcessNoOracleConfigured(t *testing.T) {
	svc := &Service{DefaultCurrency: "USD"}
	result, err := svc.Process(context.Background(), document.Parsed{Text: "nothing here"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.SecuritiesCount != 0 {
		t.Fatalf("count = %d, want 0", result.SecuritiesCount)
	}
	if result.Currency != "USD" {
		t.Fatalf("currency = %s, want default", result.Currency)
	}
}

func TestProcessCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := &Service{DefaultCurrency: "USD"}
	if _, err := svc.Process(ctx, document.Parsed{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
