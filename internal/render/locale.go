package render

import "strings"

// 表示文字列の言語テーブル。キーはテンプレート側の論理名です。
var locales = map[string]map[string]string{
	"en": {
		"invoice":            "INVOICE",
		"proformaInvoice":    "PROFORMA INVOICE",
		"packingList":        "PACKING LIST",
		"creditNote":         "CREDIT NOTE",
		"debitNote":          "DEBIT NOTE",
		"orderConfirmation":  "ORDER CONFIRMATION",
		"orderForm":          "ORDER FORM",
		"priceOffer":         "PRICE OFFER",
		"technicalSheet":     "FABRIC TECHNICAL SHEET",
		"issueDate":          "ISSUE DATE",
		"descriptionOfGoods": "DESCRIPTION OF GOODS",
		"priceItems":         "PRICE LIST",
		"notes":              "NOTES AND GENERAL CONDITIONS",
		"totalAmount":        "TOTAL AMOUNT",
		"signature":          "SIGNATURE OF THE SALESPERSON",
		"stamp":              "STAMP",
	},
	"tr": {
		"invoice":            "FATURA",
		"proformaInvoice":    "PROFORMA FATURA",
		"packingList":        "ÇEKİ LİSTESİ",
		"creditNote":         "CREDIT NOTE",
		"debitNote":          "DEBIT NOTE",
		"orderConfirmation":  "SİPARİŞ ONAY FORMU",
		"orderForm":          "SİPARİŞ FORMU",
		"priceOffer":         "FİYAT TEKLİFİ",
		"technicalSheet":     "TEKNİK BİLGİ FORMU",
		"issueDate":          "TARİH",
		"descriptionOfGoods": "ÜRÜN AÇIKLAMASI",
		"priceItems":         "FİYAT LİSTESİ",
		"notes":              "NOTLAR VE GENEL KOŞULLAR",
		"totalAmount":        "TOPLAM TUTAR",
		"signature":          "SATIŞ TEMSİLCİSİ İMZASI",
		"stamp":              "KAŞE",
	},
}

// lookup はキーに対応する表示文字列を返します。指定言語に無いキーは
// 英語へ、それも無ければキーそのものへフォールバックします。
func lookup(key, language string) string {
	if table, ok := locales[language]; ok {
		if v, ok := table[key]; ok {
			return v
		}
	}
	if v, ok := locales["en"][key]; ok {
		return v
	}
	return key
}

// SupportedLanguages は対応している言語コードを返します。
func SupportedLanguages() []string {
	return []string{"en", "tr"}
}

func isSupportedLanguage(code string) bool {
	_, ok := locales[code]
	return ok
}

// NormalizeLanguage はフロントエンドから届く言語表現を2文字コードへ寄せます。
// turkish / english の別名も受け付け、未対応の値は fallback
// （それも未対応なら英語）になります。
func NormalizeLanguage(raw, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tr", "turkish":
		return "tr"
	case "en", "english":
		return "en"
	}
	if isSupportedLanguage(fallback) {
		return fallback
	}
	return "en"
}
