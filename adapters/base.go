package adapters

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"pdp-variant-extractor/internal/types"
)

// Selectors names every page element and global the extraction relies on.
// A store profile fills these in; the extractor never hardcodes markup.
type Selectors struct {
	// Page readiness anchors
	ProductName   string
	Gallery       string
	SwatchGroup   string
	SizeTileGroup string

	// Color swatches
	ColorSwatch string
	ColorRadio  string
	ColorLabel  string

	// Size tiles
	SizeTile             string
	SizeInput            string
	SizeLabel            string
	SizeStateAttr        string
	SizeUnavailableValue string

	// Color-scoped facets
	FirstImage      string
	DetailsTrigger  string
	DetailsPanel    string
	StoreItemNumber string
	Description     string

	// Price text; its parent holds list and sale prices
	PriceText string

	// Rating widget exposing a merchant id for the current variant
	RatingWidget     string
	RatingWidgetAttr string

	// Page globals
	CacheGlobalPrefix string
	PricesGlobal      string
	CatalogGlobal     string
}

// BaseAdapter provides common functionality for store adapters
type BaseAdapter struct {
	logger types.Logger
}

// NewBaseAdapter creates a new base adapter
func NewBaseAdapter(logger types.Logger) *BaseAdapter {
	return &BaseAdapter{
		logger: logger,
	}
}

// ParseHTML parses an HTML fragment into a goquery document
func (b *BaseAdapter) ParseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ExtractText extracts the collapsed text of the first element matching selector
func (b *BaseAdapter) ExtractText(doc *goquery.Document, selector string) (string, error) {
	element := doc.Find(selector).First()
	if element.Length() == 0 {
		return "", fmt.Errorf("element not found with selector: %s", selector)
	}

	return CleanText(element.Text()), nil
}

// strikeSelector matches markup used for a crossed-out list price
const strikeSelector = `s, del, strike, [class*="original"], [class*="strike"], [class*="list-price"]`

var moneyPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ExtractPrices splits a price block into the regular price and the sale price.
// A sale price is only reported when a crossed-out list price is present and
// the current price is strictly lower; otherwise sale is empty.
func (b *BaseAdapter) ExtractPrices(html string, priceSelector string) (string, string) {
	doc, err := b.ParseHTML(html)
	if err != nil {
		b.logger.Debugf("Failed to parse price block: %v", err)
		return "", ""
	}

	var list, current []string
	doc.Find(priceSelector).Each(func(i int, s *goquery.Selection) {
		text := CleanText(s.Text())
		if text == "" {
			return
		}
		if s.Is(strikeSelector) || s.Find(strikeSelector).Length() > 0 || s.ParentsFiltered(strikeSelector).Length() > 0 {
			list = append(list, text)
			return
		}
		current = append(current, text)
	})

	if len(list) == 0 && len(current) == 0 {
		// No tagged price elements; take the block's own text
		text, err := b.ExtractText(doc, "body")
		if err != nil {
			b.logger.Debugf("Empty price block: %v", err)
			return "", ""
		}
		return text, ""
	}
	if len(list) == 0 {
		return current[0], ""
	}
	if len(current) == 0 {
		return list[0], ""
	}

	listAmount, okList := ParseAmount(list[0])
	currentAmount, okCurrent := ParseAmount(current[0])
	if okList && okCurrent && currentAmount.LessThan(listAmount) {
		return list[0], current[0]
	}

	return current[0], ""
}

// ParseAmount extracts the first monetary amount from text such as "$1,089.95"
func ParseAmount(text string) (decimal.Decimal, bool) {
	match := moneyPattern.FindString(text)
	if match == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// CleanText collapses all whitespace runs, newlines included, into single spaces
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
