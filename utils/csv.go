package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"pdp-variant-extractor/internal/types"
)

// CSVHeader is the column order of the variations export
var CSVHeader = []string{
	"item_name",
	"merchant_supplied_id",
	"variant_id",
	"variation_name",
	"variance",
	"size_variance",
	"price",
	"sale_price",
	"in_stock_rate",
	"photo_url",
	"product_description",
}

// WriteCSVFile writes records to path as UTF-8 CSV with a header row
func WriteCSVFile(path string, records []types.ResolvedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes records to w, collapsing embedded newlines into single spaces
func WriteCSV(w io.Writer, records []types.ResolvedRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.ItemName,
			r.MerchantID,
			r.VariantID,
			r.VariationName,
			r.Variance,
			r.SizeVariance,
			r.Price,
			r.SalePrice,
			string(r.StockState),
			r.PhotoURL,
			r.Description,
		}
		for i := range row {
			row[i] = singleLine(row[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %q: %w", r.VariationName, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
}
