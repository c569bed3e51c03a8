package llm

import "strings"

// MaxPromptChars bounds the whole extraction prompt, instructions included.
const MaxPromptChars = 5000

const extractionInstructions = `You are a financial data extraction assistant.
Extract every security (stock, bond, fund, ETF or other instrument) from the
following document excerpt. Respond with a JSON array only, no prose. Each
element must be an object with these keys (use null when a value is absent):
  "isin": 12-character ISIN code
  "name": security name
  "quantity": number of shares/units
  "price": price per unit
  "value": market value
  "currency": ISO 4217 code
  "weight": portfolio weight as a percentage
  "sector": sector or asset class

Document excerpt:
`

// BuildExtractionPrompt renders the oracle prompt for a document or table
// excerpt. The excerpt is truncated so the whole prompt stays within
// MaxPromptChars.
func BuildExtractionPrompt(excerpt string) string {
	excerpt = strings.TrimSpace(excerpt)
	if budget := MaxPromptChars - len(extractionInstructions) - 1; len(excerpt) > budget {
		excerpt = excerpt[:budget]
	}
	var b strings.Builder
	b.Grow(len(extractionInstructions) + len(excerpt) + 1)
	b.WriteString(extractionInstructions)
	b.WriteString(excerpt)
	b.WriteString("\n")
	return b.String()
}
