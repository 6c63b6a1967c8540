// Package render はフォームデータからビジネスドキュメントのPDFを生成します。
package render

import (
	"context"
	"fmt"
	"strings"
)

// Output はレンダリングの成果物です。
type Output struct {
	Data     []byte
	Filename string
	Pages    int
}

// Renderer はドキュメント種別ごとの描画処理を提供します。
type Renderer interface {
	Render(ctx context.Context, documentType string, formData map[string]any, language string) (*Output, error)
}

// documentSpec は1ドキュメント種別のレイアウト定義です。
type documentSpec struct {
	titleKey       string
	filenamePrefix string
	numberField    string // ファイル名に含める番号フィールド（任意）
	requiredFields []string
	itemsField     string // 明細行を持つ場合のフィールド名
	itemsTitleKey  string
}

var documentSpecs = map[string]documentSpec{
	"invoice": {
		titleKey:       "invoice",
		filenamePrefix: "TUANA_INVOICE",
		numberField:    "INVOICE NUMBER",
		requiredFields: []string{"INVOICE NUMBER"},
		itemsField:     "goods",
		itemsTitleKey:  "descriptionOfGoods",
	},
	"proforma-invoice": {
		titleKey:       "proformaInvoice",
		filenamePrefix: "TUANA_PROFORMA_INVOICE",
		numberField:    "PROFORMA NUMBER",
		itemsField:     "goods",
		itemsTitleKey:  "descriptionOfGoods",
	},
	"packing-list": {
		titleKey:       "packingList",
		filenamePrefix: "TUANA_PACKING_LIST",
		numberField:    "INVOICE NUMBER",
		itemsField:     "goods",
		itemsTitleKey:  "descriptionOfGoods",
	},
	"credit-note": {
		titleKey:       "creditNote",
		filenamePrefix: "TUANA_CREDIT_NOTE",
		numberField:    "CREDIT NOTE NUMBER",
		requiredFields: []string{"INVOICE NUMBER", "CREDIT NOTE NUMBER"},
	},
	"debit-note": {
		titleKey:       "debitNote",
		filenamePrefix: "TUANA_DEBIT_NOTE",
		numberField:    "DEBIT NOTE NUMBER",
		requiredFields: []string{"INVOICE NUMBER", "DEBIT NOTE NUMBER"},
	},
	"order-confirmation": {
		titleKey:       "orderConfirmation",
		filenamePrefix: "TUANA_ORDER_CONFIRMATION",
		numberField:    "ORDER CONFIRMATION NUMBER",
		requiredFields: []string{"ORDER CONFIRMATION NUMBER"},
		itemsField:     "goods",
		itemsTitleKey:  "descriptionOfGoods",
	},
	"siparis": {
		titleKey:       "orderForm",
		filenamePrefix: "TUANA_SIPARIS",
		numberField:    "ORDER NUMBER",
		requiredFields: []string{"ORDER NUMBER"},
		itemsField:     "goods",
		itemsTitleKey:  "descriptionOfGoods",
	},
	"price-offer": {
		titleKey:       "priceOffer",
		filenamePrefix: "TUANA_PRICE_OFFER",
		numberField:    "PRICE OFFER NUMBER",
		requiredFields: []string{"PRICE OFFER NUMBER"},
		itemsField:     "priceItems",
		itemsTitleKey:  "priceItems",
	},
	"technical-sheet": {
		titleKey:       "technicalSheet",
		filenamePrefix: "TUANA_TECHNICAL_SHEET",
	},
}

const defaultDocumentType = "technical-sheet"

// resolveSpec は未知の種別を technical-sheet として扱います（従来挙動）。
func resolveSpec(documentType string) documentSpec {
	if spec, ok := documentSpecs[documentType]; ok {
		return spec
	}
	return documentSpecs[defaultDocumentType]
}

// DocumentTypes は既知のドキュメント種別を返します。
func DocumentTypes() []string {
	types := make([]string, 0, len(documentSpecs))
	for t := range documentSpecs {
		types = append(types, t)
	}
	return types
}

// ValidateSubmission は種別ごとの必須フォームフィールドを検証します。
// ジョブ作成前に同期的に呼ばれる想定です。
func ValidateSubmission(documentType string, formData map[string]any) error {
	spec := resolveSpec(documentType)
	for _, field := range spec.requiredFields {
		if !hasValue(formData, field) {
			return newError("MISSING_FIELD",
				fmt.Sprintf("%s is required for %s documents", field, documentType), nil)
		}
	}
	return nil
}

func hasValue(formData map[string]any, field string) bool {
	if formData == nil {
		return false
	}
	v, ok := formData[field]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}
