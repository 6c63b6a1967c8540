package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidateSubmissionMissingField(t *testing.T) {
	err := ValidateSubmission("invoice", map[string]any{})
	var rErr *Error
	if !errors.As(err, &rErr) {
		t.Fatalf("expected *render.Error, got %v", err)
	}
	if rErr.Code != "MISSING_FIELD" {
		t.Fatalf("code = %q, want MISSING_FIELD", rErr.Code)
	}
	if !strings.Contains(rErr.Message, "INVOICE NUMBER") {
		t.Fatalf("message should name the missing field: %q", rErr.Message)
	}
}

func TestValidateSubmissionBlankValueCountsAsMissing(t *testing.T) {
	err := ValidateSubmission("invoice", map[string]any{"INVOICE NUMBER": "   "})
	if err == nil {
		t.Fatal("blank required field should fail validation")
	}
}

func TestValidateSubmissionCreditNoteNeedsBothNumbers(t *testing.T) {
	err := ValidateSubmission("credit-note", map[string]any{"INVOICE NUMBER": "INV-1"})
	var rErr *Error
	if !errors.As(err, &rErr) {
		t.Fatalf("expected *render.Error, got %v", err)
	}
	if !strings.Contains(rErr.Message, "CREDIT NOTE NUMBER") {
		t.Fatalf("message should name CREDIT NOTE NUMBER: %q", rErr.Message)
	}
}

func TestValidateSubmissionPackingListHasNoRequiredFields(t *testing.T) {
	if err := ValidateSubmission("packing-list", map[string]any{}); err != nil {
		t.Fatalf("packing-list should not require fields: %v", err)
	}
}

func TestRenderProducesPDF(t *testing.T) {
	renderer := NewPDFRenderer(nil)

	out, err := renderer.Render(context.Background(), "invoice", map[string]any{
		"INVOICE NUMBER": "INV-2024-001",
		"CONSIGNEE":      "ACME GmbH",
		"goods": []any{
			map[string]any{"DESCRIPTION": "Cotton towels", "QUANTITY": float64(120), "UNIT PRICE": float64(4.5)},
			map[string]any{"DESCRIPTION": "Bath robes", "QUANTITY": float64(30), "UNIT PRICE": float64(18)},
		},
	}, "en")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !bytes.HasPrefix(out.Data, []byte("%PDF")) {
		t.Fatal("output does not look like a PDF")
	}
	if out.Pages < 1 {
		t.Fatalf("pages = %d, want >= 1", out.Pages)
	}
	if !strings.HasPrefix(out.Filename, "TUANA_INVOICE_INV-2024-001_") {
		t.Fatalf("unexpected filename: %s", out.Filename)
	}
	if !strings.HasSuffix(out.Filename, ".pdf") {
		t.Fatalf("filename should end with .pdf: %s", out.Filename)
	}
}

func TestRenderTurkishLocale(t *testing.T) {
	renderer := NewPDFRenderer(nil)

	out, err := renderer.Render(context.Background(), "price-offer", map[string]any{
		"PRICE OFFER NUMBER": "PO-7",
	}, "tr")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !bytes.HasPrefix(out.Data, []byte("%PDF")) {
		t.Fatal("output does not look like a PDF")
	}
}

func TestRenderUnknownTypeFallsBack(t *testing.T) {
	renderer := NewPDFRenderer(nil)

	out, err := renderer.Render(context.Background(), "mystery-form", map[string]any{"NOTE": "hi"}, "en")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.HasPrefix(out.Filename, "TUANA_TECHNICAL_SHEET_") {
		t.Fatalf("unknown type should fall back to technical sheet, got %s", out.Filename)
	}
}

func TestRenderRejectsMissingField(t *testing.T) {
	renderer := NewPDFRenderer(nil)

	_, err := renderer.Render(context.Background(), "invoice", map[string]any{}, "en")
	var rErr *Error
	if !errors.As(err, &rErr) {
		t.Fatalf("expected *render.Error, got %v", err)
	}
	if rErr.Code != "MISSING_FIELD" {
		t.Fatalf("code = %q, want MISSING_FIELD", rErr.Code)
	}
}

func TestRenderHonorsCanceledContext(t *testing.T) {
	renderer := NewPDFRenderer(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := renderer.Render(ctx, "packing-list", nil, "en"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		raw, fallback, want string
	}{
		{"en", "en", "en"},
		{"EN", "en", "en"},
		{"english", "en", "en"},
		{"tr", "en", "tr"},
		{"turkish", "en", "tr"},
		{"", "tr", "tr"},
		{"de", "en", "en"},
		{"", "", "en"},
	}
	for _, tc := range cases {
		if got := NormalizeLanguage(tc.raw, tc.fallback); got != tc.want {
			t.Fatalf("NormalizeLanguage(%q, %q) = %q, want %q", tc.raw, tc.fallback, got, tc.want)
		}
	}
}

func TestLookupFallsBackToEnglishThenKey(t *testing.T) {
	if got := lookup("invoice", "tr"); got != "FATURA" {
		t.Fatalf("lookup(invoice, tr) = %q, want FATURA", got)
	}
	if got := lookup("invoice", "de"); got != lookup("invoice", "en") {
		t.Fatalf("unknown language should fall back to English, got %q", got)
	}
	if got := lookup("noSuchKey", "en"); got != "noSuchKey" {
		t.Fatalf("unknown key should fall back to itself, got %q", got)
	}
}

func TestDocumentTypesIncludeAllSpecs(t *testing.T) {
	types := DocumentTypes()
	if len(types) != len(documentSpecs) {
		t.Fatalf("DocumentTypes returned %d entries, want %d", len(types), len(documentSpecs))
	}
}
