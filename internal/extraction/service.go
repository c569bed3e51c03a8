package extraction

import (
	"context"
	"strings"
	"time"

	"findoc-backend/internal/document"
	"findoc-backend/internal/llm"
	"findoc-backend/internal/shared/telemetry"
)

// Service composes the per-document pipeline: table heuristics, AI fallback,
// free-text detection, merge, currency resolution and aggregation.
type Service struct {
	// LLM is the optional extraction oracle; nil keeps the pipeline fully
	// heuristic.
	LLM llm.Client
	// DefaultCurrency is used when neither records nor document metadata
	// carry one.
	DefaultCurrency string
	// LLMTimeout bounds a single oracle call. Zero means no bound beyond the
	// client's own.
	LLMTimeout time.Duration
}

// securitiesTableTypes are the upstream classification tags treated as
// securities tables.
var securitiesTableTypes = []string{
	"securities", "holdings", "positions", "portfolio", "instruments", "assets",
}

// Process runs the full extraction pipeline over one parsed document. It only
// errors on context cancellation; every data-level problem degrades to fewer
// records.
func (s *Service) Process(ctx context.Context, doc document.Parsed) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	started := time.Now()

	var raw []SecurityRecord
	for _, table := range doc.Tables {
		if !isSecuritiesTable(table) {
			continue
		}
		raw = append(raw, s.processTable(ctx, table)...)
	}

	raw = append(raw, extractAllFromText(doc.Text)...)

	// Last resort: nothing anywhere, but there is text to ask the oracle
	// about.
	if len(raw) == 0 && strings.TrimSpace(doc.Text) != "" {
		raw = s.callOracle(ctx, doc.Text)
	}

	merged := Merge(raw)

	defaultCurrency := s.DefaultCurrency
	if doc.Metadata.Currency != "" {
		defaultCurrency = strings.ToUpper(doc.Metadata.Currency)
	}

	count, total := Aggregate(merged)
	result := Result{
		Securities:      merged,
		SecuritiesCount: count,
		TotalValue:      total,
		Currency:        ResolveCurrency(merged, defaultCurrency),
	}

	telemetry.Info("extraction.complete", map[string]any{
		"tables":      len(doc.Tables),
		"raw_records": len(raw),
		"securities":  count,
		"currency":    result.Currency,
		"duration_ms": float64(time.Since(started).Microseconds()) / 1000.0,
	})
	return result, nil
}

// processTable extracts row-wise, invokes the oracle when no row produced an
// identifier, and degrades to context extraction over the rendered table when
// row extraction panics on malformed upstream data.
func (s *Service) processTable(ctx context.Context, table document.Table) (records []SecurityRecord) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("extraction.table_degraded", map[string]any{
				"table_type": table.TableType,
				"panic":      r,
			})
			records = extractAllFromText(table.RenderText())
		}
	}()

	var sawIdentifier bool
	for _, row := range table.Rows {
		rec := ExtractFromRow(row)
		if rec.isEmpty() {
			continue
		}
		if rec.Identifier != nil {
			sawIdentifier = true
		}
		records = append(records, rec)
	}

	if !sawIdentifier {
		records = append(records, s.callOracle(ctx, table.RenderText())...)
	}
	return records
}

func (s *Service) callOracle(ctx context.Context, excerpt string) []SecurityRecord {
	if s.LLM == nil {
		return nil
	}
	if s.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.LLMTimeout)
		defer cancel()
	}
	return aiExtract(ctx, newRetryingLLM(s.LLM), excerpt)
}

func isSecuritiesTable(table document.Table) bool {
	tt := strings.ToLower(strings.TrimSpace(table.TableType))
	for _, known := range securitiesTableTypes {
		if strings.Contains(tt, known) {
			return true
		}
	}
	// Untagged tables still count when a column is named like an identifier.
	for _, header := range table.Headers {
		h := normalizeKey(header)
		if keyMatches(h, "isin") || keyMatches(h, "identifier") {
			return true
		}
	}
	return false
}
