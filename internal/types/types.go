package types

import (
	"context"
	"errors"
	"time"
)

// StockState is the best-effort availability heuristic for a variant.
// No authoritative in-stock signal is read from the page, so it only ever
// takes one of two values.
type StockState string

const (
	StockUnavailable   StockState = "Unavailable"
	StockBackorderable StockState = "Backorderable"
)

// StockStateFor maps the UI availability flag of a size tile to a StockState
func StockStateFor(selectable bool) StockState {
	if selectable {
		return StockBackorderable
	}
	return StockUnavailable
}

// Color is a selectable color swatch discovered on the product page
type Color struct {
	Name     string  `json:"name"`
	ScopedID string  `json:"scoped_id,omitempty"`
	Control  Element `json:"-"`
}

// Size is a size tile discovered for the currently selected color
type Size struct {
	Label      string  `json:"label"`
	Selectable bool    `json:"selectable"`
	Control    Element `json:"-"`
}

// Variant represents a single color/size combination of a product
type Variant struct {
	ColorName     string `json:"color_name"`
	ColorScopedID string `json:"color_scoped_id,omitempty"`
	SizeLabel     string `json:"size_label"`
	Selectable    bool   `json:"selectable"`
}

// VariationName returns the "<color> - <size>" display name of the variant
func (v Variant) VariationName() string {
	return v.ColorName + " - " + v.SizeLabel
}

// ResolvedRecord is one output row, created once per Variant
type ResolvedRecord struct {
	ItemName      string     `json:"item_name"`
	MerchantID    string     `json:"merchant_supplied_id"`
	VariantID     string     `json:"variant_id"`
	VariationName string     `json:"variation_name"`
	Variance      string     `json:"variance"`
	SizeVariance  string     `json:"size_variance"`
	Price         string     `json:"price"`
	SalePrice     string     `json:"sale_price"`
	StockState    StockState `json:"in_stock_rate"`
	PhotoURL      string     `json:"photo_url"`
	Description   string     `json:"product_description"`
}

// Config holds the configuration for the extractor
type Config struct {
	TargetURL          string
	OutputPath         string
	Timeout            time.Duration
	Backend            string
	Headless           bool
	ChromeDriverPath   string
	SeleniumPort       int
	UserAgent          string
	PageLoadTimeout    time.Duration
	InitialRenderDelay time.Duration
	ColorSettleDelay   time.Duration
	SizeSettleDelay    time.Duration
	PollInterval       time.Duration
}

const (
	BackendChromedp = "chromedp"
	BackendSelenium = "selenium"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TargetURL:          "https://www.hollisterco.com/shop/wd/p/faux-fur-trim-puffer-bomber-jacket-61001859?faceout=model&seq=02&pagefm=navigation-grid&prodvm=navigation-grid",
		OutputPath:         "variations.csv",
		Timeout:            20 * time.Second,
		Backend:            BackendChromedp,
		Headless:           false,
		ChromeDriverPath:   "/usr/local/bin/chromedriver",
		SeleniumPort:       4444,
		UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		PageLoadTimeout:    120 * time.Second,
		InitialRenderDelay: 5 * time.Second,
		ColorSettleDelay:   600 * time.Millisecond,
		SizeSettleDelay:    400 * time.Millisecond,
		PollInterval:       100 * time.Millisecond,
	}
}

// ErrElementNotFound is returned by a RenderSurface when a query matches nothing
var ErrElementNotFound = errors.New("element not found")

// Element is an opaque handle to a node owned by a RenderSurface.
// Handles are only meaningful to the surface that returned them.
type Element interface{}

// RenderSurface is the capability to load a live page and query or mutate its UI state.
// Implementations hold a single browser session and are not safe for concurrent use.
type RenderSurface interface {
	// Load navigates to url and waits for the document body
	Load(ctx context.Context, url string) error

	// Find returns the first element matching selector, or ErrElementNotFound
	Find(ctx context.Context, selector string) (Element, error)

	// FindAll returns every element matching selector without waiting
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// FindWithin returns the first descendant of parent matching selector
	FindWithin(ctx context.Context, parent Element, selector string) (Element, error)

	// WaitForPresence blocks until selector matches an attached element
	WaitForPresence(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// WaitForVisible blocks until selector matches a visible element
	WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	ScrollIntoView(ctx context.Context, el Element) error
	Click(ctx context.Context, el Element) error

	// ForceClick dispatches a click from script, bypassing hit-testing
	ForceClick(ctx context.Context, el Element) error

	// ReadAttribute returns the attribute value and whether it is present.
	// Boolean properties such as "checked" report "true" when set.
	ReadAttribute(ctx context.Context, el Element, name string) (string, bool, error)

	ReadText(ctx context.Context, el Element) (string, error)

	// ExecuteScript calls the function expression fn with this bound to el
	// (or the window when el is nil) and decodes the JSON result into out.
	ExecuteScript(ctx context.Context, el Element, fn string, out interface{}) error

	// ReadGlobalState runs a page-level expression and returns its JSON value
	ReadGlobalState(ctx context.Context, expression string) ([]byte, error)

	Title(ctx context.Context) (string, error)

	// Close releases the browser session
	Close() error
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
