package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"findoc-backend/internal/llm"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestAIExtractParsesWrappedArray(t *testing.T) {
	client := &fakeLLM{response: "Here are the holdings:\n```json\n" +
		`[{"isin":"US0378331005","name":"Apple Inc.","quantity":100,"price":150.5,"currency":"USD"}]` +
		"\n```"}

	records := aiExtract(context.Background(), client, "some document text")
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Identifier == nil || *rec.Identifier != "US0378331005" {
		t.Fatalf("identifier = %v, want US0378331005", rec.Identifier)
	}
	if rec.Quantity == nil || !rec.Quantity.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("quantity = %v, want 100", rec.Quantity)
	}
	if rec.Value == nil || !rec.Value.Equal(decimal.RequireFromString("15050")) {
		t.Fatalf("value = %v, want derived 15050", rec.Value)
	}
}

func TestAIExtractRevalidatesIdentifiers(t *testing.T) {
	client := &fakeLLM{response: `[{"isin":"US0378331009","name":"Apple Inc."}]`}
	records := aiExtract(context.Background(), client, "text")
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	if records[0].Identifier != nil {
		t.Fatalf("identifier = %v, want nil for hallucinated checksum", records[0].Identifier)
	}
	if records[0].Name == nil || *records[0].Name != "Apple Inc." {
		t.Fatalf("name = %v, want kept", records[0].Name)
	}
}

func TestAIExtractFailureModes(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeLLM
	}{
		{"oracle error", &fakeLLM{err: errors.New("http status 400")}},
		{"no array in response", &fakeLLM{response: "I could not find any securities."}},
		{"invalid json array", &fakeLLM{response: `[{"isin": }]`}},
		{"empty array", &fakeLLM{response: "[]"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if records := aiExtract(context.Background(), tc.client, "text"); len(records) != 0 {
				t.Fatalf("records = %v, want none", records)
			}
		})
	}
}

func TestAIExtractNilClient(t *testing.T) {
	if records := aiExtract(context.Background(), nil, "text"); records != nil {
		t.Fatalf("records = %v, want nil", records)
	}
}

func TestFirstJSONArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `[1,2,3]`, `[1,2,3]`},
		{"wrapped in prose", "sure: [1,2] done", "[1,2]"},
		{"nested arrays", `[[1],[2]]`, `[[1],[2]]`},
		{"brackets inside strings", `[{"k":"a]b"}]`, `[{"k":"a]b"}]`},
		{"skips invalid candidate", `[oops] then ["ok"]`, `["ok"]`},
		{"none", "no arrays here", ""},
		{"unterminated", `[1,2`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := firstJSONArray(tc.in); got != tc.want {
				t.Fatalf("firstJSONArray(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestBuildExtractionPromptCapped(t *testing.T) {
	prompt := llm.BuildExtractionPrompt(strings.Repeat("x", 20000))
	if len(prompt) > llm.MaxPromptChars {
		t.Fatalf("prompt length = %d, want <= %d", len(prompt), llm.MaxPromptChars)
	}
	if !strings.Contains(prompt, "JSON") {
		t.Fatal("prompt should instruct JSON output")
	}
}
