package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"findoc-backend/internal/document"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
	mimeJSON = "application/json"
)

// ParseFile reads a local document and produces the parsed representation the
// extraction pipeline consumes. PDF and plain-text files yield text-only
// documents; JSON files carry a pre-analyzed document (text plus tables) as
// emitted by an upstream table-understanding service.
func ParseFile(ctx context.Context, path string, mimeType string) (document.Parsed, error) {
	if err := ctx.Err(); err != nil {
		return document.Parsed{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Parsed{}, fmt.Errorf("parse document path=%s: %w", path, err)
	}
	parsed, err := ParseBytes(ctx, data, mimeType, filepath.Base(path))
	if err != nil {
		return document.Parsed{}, fmt.Errorf("parse document path=%s: %w", path, err)
	}
	return parsed, nil
}

// ParseBytes parses an in-memory payload. Library used for PDFs:
// github.com/ledongthuc/pdf.
func ParseBytes(ctx context.Context, data []byte, mimeType string, fileName string) (document.Parsed, error) {
	if err := ctx.Err(); err != nil {
		return document.Parsed{}, err
	}
	switch normalizeMimeType(mimeType, fileName) {
	case mimePDF:
		text, err := extractPDF(data)
		if err != nil {
			return document.Parsed{}, err
		}
		return document.Parsed{Text: text}, nil
	case mimeJSON:
		return parseAnalyzedJSON(data)
	case mimeText:
		return document.Parsed{Text: string(data)}, nil
	default:
		return document.Parsed{}, fmt.Errorf("unsupported mime type: %s", normalizeMimeType(mimeType, fileName))
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseAnalyzedJSON accepts either a full document object or a bare table
// array, since both shapes appear in upstream exports.
func parseAnalyzedJSON(data []byte) (document.Parsed, error) {
	var parsed document.Parsed
	if err := json.Unmarshal(data, &parsed); err == nil && (parsed.Text != "" || len(parsed.Tables) > 0) {
		return parsed, nil
	}
	var tables []document.Table
	if err := json.Unmarshal(data, &tables); err == nil && len(tables) > 0 {
		return document.Parsed{Tables: tables}, nil
	}
	return document.Parsed{}, fmt.Errorf("analyzed json: no text or tables found")
}

func normalizeMimeType(mimeType string, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "" && clean != "application/octet-stream" {
		return clean
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".json":
		return mimeJSON
	case ".txt", ".text", ".md", ".csv":
		return mimeText
	default:
		return clean
	}
}
