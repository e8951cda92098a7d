package extractor

import (
	"strings"

	"pdp-variant-extractor/internal/types"
)

// RowInput gathers everything known about one variant at the time its row is built
type RowInput struct {
	ItemName    string
	Variant     types.Variant
	MerchantID  string
	VariantID   string
	Price       string
	SalePrice   string
	PhotoURL    string
	Description string
}

// AssembleRecord builds the output row for one variant. It never fails:
// anything missing simply stays empty.
func AssembleRecord(in RowInput) types.ResolvedRecord {
	return types.ResolvedRecord{
		ItemName:      oneLine(in.ItemName),
		MerchantID:    oneLine(in.MerchantID),
		VariantID:     oneLine(in.VariantID),
		VariationName: in.Variant.VariationName(),
		Variance:      in.Variant.ColorName,
		SizeVariance:  in.Variant.SizeLabel,
		Price:         oneLine(in.Price),
		SalePrice:     oneLine(in.SalePrice),
		StockState:    types.StockStateFor(in.Variant.Selectable),
		PhotoURL:      strings.TrimSpace(in.PhotoURL),
		Description:   oneLine(in.Description),
	}
}

// oneLine replaces line breaks with spaces and trims the result
func oneLine(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}
