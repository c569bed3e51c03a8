package document

import (
	"fmt"
	"sort"
	"strings"
)

// RowMapping is one table row zipped into column-name → cell-value form.
// Cells arrive as strings or numbers depending on the upstream parser.
type RowMapping map[string]any

// Table is one table recognized by the upstream table-understanding step.
// TableType is the upstream classification tag (e.g. "securities").
type Table struct {
	TableType string       `json:"tableType"`
	Headers   []string     `json:"headers"`
	Rows      []RowMapping `json:"rows"`
}

// Metadata carries document-level hints from the analyzer.
type Metadata struct {
	Currency string `json:"currency,omitempty"`
	Title    string `json:"title,omitempty"`
	Pages    int    `json:"pages,omitempty"`
}

// Parsed is the analyzer's output for one document: full text plus any
// recognized tables.
type Parsed struct {
	Text     string   `json:"text"`
	Tables   []Table  `json:"tables"`
	Metadata Metadata `json:"metadata"`
}

// RenderText flattens a table into a plain-text block: a header line followed
// by one tab-separated line per row. Used for AI prompts and as the degraded
// input for context extraction.
func (t Table) RenderText() string {
	var b strings.Builder
	headers := t.Headers
	if len(headers) == 0 {
		headers = t.inferHeaders()
	}
	b.WriteString(strings.Join(headers, "\t"))
	b.WriteString("\n")
	for _, row := range t.Rows {
		cells := make([]string, 0, len(headers))
		for _, h := range headers {
			cells = append(cells, cellString(row[h]))
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// inferHeaders recovers a stable column order when the analyzer supplied rows
// without an explicit header list.
func (t Table) inferHeaders() []string {
	seen := map[string]struct{}{}
	var headers []string
	for _, row := range t.Rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)
	return headers
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
