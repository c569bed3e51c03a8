package extraction

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newExtractRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(&Service{DefaultCurrency: "USD"})
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func TestExtractFromJSONDocument(t *testing.T) {
	r := newExtractRouter(t)

	body := `{
		"text": "",
		"tables": [{
			"tableType": "securities",
			"headers": ["Security", "ISIN", "Quantity", "Price"],
			"rows": [
				{"Security": "Apple Inc.", "ISIN": "US0378331005", "Quantity": "100", "Price": "150.00"},
				{"Security": "SAP SE", "ISIN": "DE0007164600", "Quantity": "50", "Price": "120.00"}
			]
		}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.SecuritiesCount != 2 {
		t.Fatalf("securitiesCount = %d, want 2", result.SecuritiesCount)
	}
	if got := result.TotalValue.String(); got != "21000" {
		t.Fatalf("totalValue = %s, want 21000", got)
	}
}

func TestExtractFromTextUpload(t *testing.T) {
	r := newExtractRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "statement.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("Apple Inc. (ISIN US0378331005) 100 shares at USD 150.00"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.SecuritiesCount != 1 {
		t.Fatalf("securitiesCount = %d, want 1", result.SecuritiesCount)
	}
	if result.Securities[0].Identifier == nil || *result.Securities[0].Identifier != "US0378331005" {
		t.Fatalf("identifier = %v, want US0378331005", result.Securities[0].Identifier)
	}
}

func TestExtractRejectsInvalidBody(t *testing.T) {
	r := newExtractRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
