package extraction

import (
	"context"
	"encoding/json"

	"findoc-backend/internal/document"
	"findoc-backend/internal/llm"
	"findoc-backend/internal/shared/telemetry"
)

// aiExtract asks the oracle for structured records over a text excerpt.
// Every failure mode — oracle unreachable, no JSON array in the response,
// unparseable payload — degrades to zero records; the caller's heuristic
// chain continues unaffected. Oracle-supplied identifiers are re-validated;
// invalid ones are nulled out, not discarded.
func aiExtract(ctx context.Context, client llm.Client, excerpt string) []SecurityRecord {
	if client == nil {
		return nil
	}
	prompt := llm.BuildExtractionPrompt(excerpt)
	response, err := client.Complete(ctx, prompt)
	if err != nil {
		telemetry.Error("extraction.ai_fallback", map[string]any{
			"error": err.Error(),
		})
		return nil
	}

	rawArray := firstJSONArray(response)
	if rawArray == "" {
		return nil
	}

	var candidates []map[string]any
	if err := json.Unmarshal([]byte(rawArray), &candidates); err != nil {
		telemetry.Error("extraction.ai_fallback", map[string]any{
			"error": "response array parse: " + err.Error(),
		})
		return nil
	}

	records := make([]SecurityRecord, 0, len(candidates))
	for _, candidate := range candidates {
		// The candidate object is shaped like a table row, so the same
		// synonym-driven extractor applies, including checksum re-validation.
		rec := ExtractFromRow(document.RowMapping(candidate))
		if rec.isEmpty() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// firstJSONArray returns the first balanced JSON array found in text, or ""
// when none exists. Models often wrap the payload in prose or code fences.
func firstJSONArray(text string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if start == -1 {
			if r == '[' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate
				}
				// Keep scanning; a later bracket pair may be the payload.
				start = -1
			}
		}
	}
	return ""
}
