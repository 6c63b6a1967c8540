package render

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

const companyName = "TUANA"

// PDFRenderer は全ドキュメント種別を単一のレイアウトエンジンで描画します。
// 呼び出しごとに新しいドキュメントを組み立てるため、並行呼び出しに対して
// 追加の同期は不要です。
type PDFRenderer struct {
	logger *log.Logger
}

// NewPDFRenderer は PDFRenderer を作成します。
func NewPDFRenderer(logger *log.Logger) *PDFRenderer {
	if logger == nil {
		logger = log.Default()
	}
	return &PDFRenderer{logger: logger}
}

// Render は formData からPDFを生成し、成果物とページ数を返します。
func (r *PDFRenderer) Render(ctx context.Context, documentType string, formData map[string]any, language string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateSubmission(documentType, formData); err != nil {
		return nil, err
	}
	language = NormalizeLanguage(language, "en")
	if _, ok := documentSpecs[documentType]; !ok {
		r.logger.Printf("unknown document type %q, falling back to %s", documentType, defaultDocumentType)
	}
	spec := resolveSpec(documentType)

	data, err := r.draw(spec, formData, language)
	if err != nil {
		return nil, newError("RENDER_FAILED",
			fmt.Sprintf("failed to render %s document", documentType), err)
	}

	// 生成直後に pdfcpu で開けることを確認し、ページ数をメタデータに残す
	pages, err := pdfapi.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, newError("RENDER_FAILED", "generated document failed inspection", err)
	}

	return &Output{
		Data:     data,
		Filename: outputFilename(spec, formData),
		Pages:    pages,
	}, nil
}

func (r *PDFRenderer) draw(spec documentSpec, formData map[string]any, language string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(lookup(spec.titleKey, language), true)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	pageW, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	usable := pageW - left - right

	// ヘッダー: 社名・タイトル・発行日
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(usable, 10, companyName, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 14)
	doc.CellFormat(usable, 8, tr(lookup(spec.titleKey, language)), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "I", 9)
	issued := lookup("issueDate", language) + ": " + time.Now().Format("2006-01-02")
	doc.CellFormat(usable, 6, tr(issued), "", 1, "L", false, 0, "")
	doc.Ln(4)

	// フォームフィールド（明細以外）をキー順の2カラムで描画
	keys := make([]string, 0, len(formData))
	for k := range formData {
		if k == spec.itemsField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(usable*0.4, 7, tr(k), "B", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(usable*0.6, 7, tr(formatValue(formData[k])), "B", "L", false)
	}

	// 明細テーブル（goods / priceItems）
	if spec.itemsField != "" {
		if items, ok := formData[spec.itemsField].([]any); ok && len(items) > 0 {
			drawItems(doc, tr, usable, items, spec.itemsTitleKey, language)
		}
	}

	// フッター: 署名・捺印欄
	doc.Ln(12)
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(usable/2, 7, tr(lookup("signature", language)), "T", 0, "L", false, 0, "")
	doc.CellFormat(usable/2, 7, tr(lookup("stamp", language)), "T", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawItems は明細行を表として描画します。行がマップなら先頭行のキーで列を
// 決め、そうでなければ1行1セルの文字列として扱います。
func drawItems(doc *fpdf.Fpdf, tr func(string) string, usable float64, items []any, titleKey, language string) {
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(usable, 7, tr(lookup(titleKey, language)), "B", 1, "L", false, 0, "")

	cols := itemColumns(items)
	if len(cols) == 0 {
		doc.SetFont("Helvetica", "", 9)
		for _, item := range items {
			doc.MultiCell(usable, 6, tr(formatValue(item)), "", "L", false)
		}
		return
	}

	colW := usable / float64(len(cols))
	doc.SetFont("Helvetica", "B", 8)
	for _, c := range cols {
		doc.CellFormat(colW, 6, tr(c), "1", 0, "C", false, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 8)
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			doc.CellFormat(usable, 6, tr(formatValue(item)), "1", 1, "L", false, 0, "")
			continue
		}
		for _, c := range cols {
			doc.CellFormat(colW, 6, tr(formatValue(row[c])), "1", 0, "L", false, 0, "")
		}
		doc.Ln(-1)
	}
}

func itemColumns(items []any) []string {
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cols := make([]string, 0, len(row))
		for k := range row {
			cols = append(cols, k)
		}
		sort.Strings(cols)
		return cols
	}
	return nil
}

// formatValue はフォーム値を表示用文字列へ変換します。
// 値の中身は解釈せず、素直に文字列化するだけです。
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, formatValue(e))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+formatValue(t[k]))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}

// outputFilename は TUANA_<種別>[_<番号>]_<タイムスタンプ>.pdf 形式の
// ファイル名を組み立てます（従来のファイル名規則）。
func outputFilename(spec documentSpec, formData map[string]any) string {
	parts := []string{spec.filenamePrefix}
	if spec.numberField != "" {
		if num, ok := formData[spec.numberField].(string); ok && strings.TrimSpace(num) != "" {
			parts = append(parts, strings.TrimSpace(num))
		}
	}
	parts = append(parts, strconv.FormatInt(time.Now().UnixMilli(), 10))
	return strings.Join(parts, "_") + ".pdf"
}
