package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdp-variant-extractor/adapters"
	"pdp-variant-extractor/internal/types"
	"pdp-variant-extractor/resolver"
	"pdp-variant-extractor/state"
	"pdp-variant-extractor/utils"
)

// ErrNoColors is returned when the page exposes no usable color swatch
var ErrNoColors = errors.New("no colors detected")

// forceCheckFunc sets an input's checked state directly and lets the page react to it
const forceCheckFunc = `function() {
	this.checked = true;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`

const priceBlockFunc = `function() {
	return (this.parentElement || this).outerHTML;
}`

const scrollToProductFunc = `function() {
	window.scrollTo(0, 300);
}`

const nameAttempts = 3

// VariantExtractor walks every color/size combination of one product page.
// It drives a single RenderSurface and is not restartable.
type VariantExtractor struct {
	surface  types.RenderSurface
	adapter  *adapters.HollisterAdapter
	sel      adapters.Selectors
	reader   *state.Reader
	resolver *resolver.Resolver
	config   *types.Config
	logger   types.Logger

	retryDelay  time.Duration
	description string
}

// NewVariantExtractor creates a new extractor over an already acquired surface
func NewVariantExtractor(surface types.RenderSurface, adapter *adapters.HollisterAdapter, config *types.Config, logger types.Logger) *VariantExtractor {
	sel := adapter.Selectors()
	return &VariantExtractor{
		surface: surface,
		adapter: adapter,
		sel:     sel,
		reader: state.NewReader(surface, state.Globals{
			CachePrefix:   sel.CacheGlobalPrefix,
			PricesGlobal:  sel.PricesGlobal,
			CatalogGlobal: sel.CatalogGlobal,
		}, logger),
		resolver:   resolver.NewResolver(logger),
		config:     config,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// ExtractAll loads the product page and returns one record per color/size
// combination, in discovery order. Only a load failure, a page without colors
// or a cancelled context end the run early.
func (e *VariantExtractor) ExtractAll(ctx context.Context) ([]types.ResolvedRecord, error) {
	startTime := time.Now()
	e.logger.Infof("Starting %s extraction at %v", e.adapter.GetStoreName(), startTime.Format("15:04:05.000"))

	if err := e.surface.Load(ctx, e.config.TargetURL); err != nil {
		return nil, err
	}
	if err := e.pause(ctx, e.config.InitialRenderDelay); err != nil {
		return nil, err
	}
	e.waitForPage(ctx)

	itemName := e.readItemName(ctx)
	basePrice, _ := e.readPrices(ctx)
	e.description = e.readDescription(ctx)
	e.logger.Infof("Product: %q (price: %q)", itemName, basePrice)

	colors := e.discoverColors(ctx)
	if len(colors) == 0 {
		return nil, ErrNoColors
	}
	e.logger.Infof("Found %d colors", len(colors))

	var records []types.ResolvedRecord
	seen := make(map[string]bool)

	for i, color := range colors {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		e.logger.Debugf("Processing color %d/%d: %s (%s)", i+1, len(colors), color.Name, color.ScopedID)

		e.selectColor(ctx, color)

		photoURL := e.readPhotoURL(ctx)
		variantID := e.readVariantID(ctx)
		if e.description == "" {
			e.description = e.readDescription(ctx)
		}

		sizes := e.discoverSizes(ctx)
		e.logger.Debugf("Color %s has %d sizes", color.Name, len(sizes))

		for _, size := range sizes {
			if err := ctx.Err(); err != nil {
				return records, err
			}

			e.selectSize(ctx, size)

			variant := types.Variant{
				ColorName:     color.Name,
				ColorScopedID: color.ScopedID,
				SizeLabel:     size.Label,
				Selectable:    size.Selectable,
			}

			merchantID, tier := e.resolver.Resolve(e.snapshot(ctx), variant)
			if merchantID == "" {
				e.logger.Warnf("No merchant id for %q", variant.VariationName())
			} else {
				e.logger.Debugf("Merchant id for %q from %s", variant.VariationName(), tier)
			}

			price, sale := e.readPrices(ctx)
			if price == "" {
				price = basePrice
			}

			record := AssembleRecord(RowInput{
				ItemName:    itemName,
				Variant:     variant,
				MerchantID:  merchantID,
				VariantID:   variantID,
				Price:       price,
				SalePrice:   sale,
				PhotoURL:    photoURL,
				Description: e.description,
			})

			key := record.Variance + "\x00" + record.SizeVariance
			if seen[key] {
				e.logger.Warnf("Duplicate variation %q; keeping both rows", record.VariationName)
			}
			seen[key] = true

			records = append(records, record)
		}
	}

	e.logger.Infof("%s extraction completed in %v", e.adapter.GetStoreName(), time.Since(startTime))
	e.logger.Infof("Extracted %d variations across %d colors", len(records), len(colors))

	return records, nil
}

// ExtractToCSV extracts all variations and saves them to a CSV file
func (e *VariantExtractor) ExtractToCSV(ctx context.Context, filename string) (int, error) {
	records, err := e.ExtractAll(ctx)
	if err != nil {
		return 0, err
	}

	if err := utils.WriteCSVFile(filename, records); err != nil {
		return 0, fmt.Errorf("failed to write results to file: %w", err)
	}

	e.logger.Infof("Done. Rows: %d → %s", len(records), filename)
	return len(records), nil
}

// waitForPage waits for the sections the walk depends on; a missing one is only logged
func (e *VariantExtractor) waitForPage(ctx context.Context) {
	for _, selector := range []string{e.sel.ProductName, e.sel.Gallery, e.sel.SwatchGroup, e.sel.SizeTileGroup} {
		if _, err := e.surface.WaitForPresence(ctx, selector, e.config.Timeout); err != nil {
			e.logger.Warnf("Page section %s not present: %v", selector, err)
		}
	}
}

// snapshot captures the page state right after a selection
func (e *VariantExtractor) snapshot(ctx context.Context) state.Blobs {
	blobs := e.reader.Read(ctx)
	blobs.RatingWidgetID = e.readRatingWidgetID(ctx)
	if blobs.Empty() {
		e.logger.Debugf("No page state captured after selection")
	}
	return blobs
}

func (e *VariantExtractor) discoverColors(ctx context.Context) []types.Color {
	wrappers, err := e.surface.FindAll(ctx, e.sel.ColorSwatch)
	if err != nil {
		e.logger.Warnf("Failed to query color swatches: %v", err)
		return nil
	}

	var colors []types.Color
	for i, wrapper := range wrappers {
		radio, err := e.surface.FindWithin(ctx, wrapper, e.sel.ColorRadio)
		if err != nil {
			e.logger.Debugf("Skipping swatch %d: no radio: %v", i, err)
			continue
		}
		img, err := e.surface.FindWithin(ctx, wrapper, e.sel.ColorLabel)
		if err != nil {
			e.logger.Debugf("Skipping swatch %d: no label: %v", i, err)
			continue
		}

		name, _, err := e.surface.ReadAttribute(ctx, img, "alt")
		name = strings.TrimSpace(name)
		if err != nil || name == "" {
			e.logger.Debugf("Skipping swatch %d: unreadable name: %v", i, err)
			continue
		}

		value, _, err := e.surface.ReadAttribute(ctx, radio, "value")
		if err != nil {
			e.logger.Debugf("Skipping swatch %d (%s): unreadable value: %v", i, name, err)
			continue
		}

		colors = append(colors, types.Color{
			Name:     name,
			ScopedID: strings.TrimSpace(value),
			Control:  radio,
		})
	}
	return colors
}

func (e *VariantExtractor) discoverSizes(ctx context.Context) []types.Size {
	tiles, err := e.surface.FindAll(ctx, e.sel.SizeTile)
	if err != nil {
		e.logger.Warnf("Failed to query size tiles: %v", err)
		return nil
	}

	var sizes []types.Size
	for i, tile := range tiles {
		input, err := e.surface.FindWithin(ctx, tile, e.sel.SizeInput)
		if err != nil {
			e.logger.Debugf("Skipping size tile %d: no input: %v", i, err)
			continue
		}
		labelEl, err := e.surface.FindWithin(ctx, tile, e.sel.SizeLabel)
		if err != nil {
			e.logger.Debugf("Skipping size tile %d: no label: %v", i, err)
			continue
		}
		label, err := e.surface.ReadText(ctx, labelEl)
		label = adapters.CleanText(label)
		if err != nil || label == "" {
			e.logger.Debugf("Skipping size tile %d: unreadable label: %v", i, err)
			continue
		}

		tileState, _, _ := e.surface.ReadAttribute(ctx, tile, e.sel.SizeStateAttr)
		sizes = append(sizes, types.Size{
			Label:      label,
			Selectable: tileState != e.sel.SizeUnavailableValue,
			Control:    input,
		})
	}
	return sizes
}

// selectColor clicks the swatch and waits for it to report checked.
// A timeout is not fatal: the walk continues with whatever the page shows.
func (e *VariantExtractor) selectColor(ctx context.Context, color types.Color) {
	e.click(ctx, color.Control)
	_ = e.pause(ctx, e.config.ColorSettleDelay)

	if !e.waitChecked(ctx, color.Control) {
		e.logger.Warnf("Color %s not confirmed checked within %v; continuing", color.Name, e.config.Timeout)
	}
}

// selectSize clicks the size tile even when it is marked unavailable. If the
// tile never reports checked, the checked state is forced from script.
func (e *VariantExtractor) selectSize(ctx context.Context, size types.Size) {
	e.click(ctx, size.Control)
	if e.waitChecked(ctx, size.Control) {
		return
	}

	e.logger.Debugf("Size %s not checked after click; forcing state", size.Label)
	if err := e.surface.ExecuteScript(ctx, size.Control, forceCheckFunc, nil); err != nil {
		e.logger.Warnf("Failed to force size %s: %v", size.Label, err)
	}
	_ = e.pause(ctx, e.config.SizeSettleDelay)
}

func (e *VariantExtractor) click(ctx context.Context, el types.Element) {
	if err := e.surface.ScrollIntoView(ctx, el); err != nil {
		e.logger.Debugf("Scroll into view failed: %v", err)
	}
	if err := e.surface.Click(ctx, el); err != nil {
		e.logger.Debugf("Click intercepted, dispatching from script: %v", err)
		if err := e.surface.ForceClick(ctx, el); err != nil {
			e.logger.Warnf("Forced click failed: %v", err)
		}
	}
}

// waitChecked polls the control's checked state until it is set or the wait timeout elapses
func (e *VariantExtractor) waitChecked(ctx context.Context, el types.Element) bool {
	deadline := time.Now().Add(e.config.Timeout)
	for {
		if _, checked, err := e.surface.ReadAttribute(ctx, el, "checked"); err == nil && checked {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if err := e.pause(ctx, e.config.PollInterval); err != nil {
			return false
		}
	}
}

// readItemName waits for the product heading, nudging the page between
// attempts, and falls back to the document title.
func (e *VariantExtractor) readItemName(ctx context.Context) string {
	for attempt := 1; attempt <= nameAttempts; attempt++ {
		if err := e.surface.ExecuteScript(ctx, nil, scrollToProductFunc, nil); err != nil {
			e.logger.Debugf("Scroll failed: %v", err)
		}

		if el, err := e.surface.WaitForPresence(ctx, e.sel.ProductName, e.config.Timeout); err == nil {
			if name, err := e.surface.ReadText(ctx, el); err == nil {
				if name = adapters.CleanText(name); name != "" {
					return name
				}
			}
		}

		e.logger.Debugf("Product name not rendered (attempt %d/%d)", attempt, nameAttempts)
		if err := e.pause(ctx, e.retryDelay); err != nil {
			break
		}
	}

	title, err := e.surface.Title(ctx)
	if err != nil {
		e.logger.Warnf("Failed to read page title: %v", err)
		return ""
	}
	return strings.TrimSpace(strings.Split(title, "|")[0])
}

// readPrices returns the regular and sale price shown for the current selection
func (e *VariantExtractor) readPrices(ctx context.Context) (string, string) {
	el, err := e.surface.WaitForPresence(ctx, e.sel.PriceText, e.config.Timeout)
	if err != nil {
		e.logger.Debugf("Price not present: %v", err)
		return "", ""
	}

	var html string
	if err := e.surface.ExecuteScript(ctx, el, priceBlockFunc, &html); err == nil && html != "" {
		return e.adapter.ExtractPrices(html, e.sel.PriceText)
	}

	text, err := e.surface.ReadText(ctx, el)
	if err != nil {
		e.logger.Debugf("Failed to read price: %v", err)
		return "", ""
	}
	return adapters.CleanText(text), ""
}

func (e *VariantExtractor) readPhotoURL(ctx context.Context) string {
	el, err := e.surface.WaitForVisible(ctx, e.sel.FirstImage, e.config.Timeout)
	if err != nil {
		e.logger.Debugf("Gallery image not visible: %v", err)
		return ""
	}
	src, _, err := e.surface.ReadAttribute(ctx, el, "src")
	if err != nil {
		e.logger.Debugf("Failed to read image src: %v", err)
		return ""
	}
	return strings.TrimSpace(src)
}

// openDetails expands the details accordion when it is collapsed
func (e *VariantExtractor) openDetails(ctx context.Context) {
	trigger, err := e.surface.WaitForPresence(ctx, e.sel.DetailsTrigger, e.config.Timeout)
	if err != nil {
		e.logger.Debugf("Details accordion not present: %v", err)
		return
	}
	if err := e.surface.ScrollIntoView(ctx, trigger); err != nil {
		e.logger.Debugf("Scroll to details failed: %v", err)
	}

	if expanded, _, _ := e.surface.ReadAttribute(ctx, trigger, "aria-expanded"); expanded == "false" {
		if err := e.surface.ForceClick(ctx, trigger); err != nil {
			e.logger.Debugf("Failed to expand details: %v", err)
		}
	}

	if _, err := e.surface.WaitForVisible(ctx, e.sel.DetailsPanel, e.config.Timeout); err != nil {
		e.logger.Debugf("Details panel not visible: %v", err)
	}
}

func (e *VariantExtractor) readVariantID(ctx context.Context) string {
	e.openDetails(ctx)
	return e.readTextOf(ctx, e.sel.StoreItemNumber)
}

func (e *VariantExtractor) readDescription(ctx context.Context) string {
	e.openDetails(ctx)
	return e.readTextOf(ctx, e.sel.Description)
}

func (e *VariantExtractor) readTextOf(ctx context.Context, selector string) string {
	el, err := e.surface.WaitForPresence(ctx, selector, e.config.Timeout)
	if err != nil {
		e.logger.Debugf("%s not present: %v", selector, err)
		return ""
	}
	text, err := e.surface.ReadText(ctx, el)
	if err != nil {
		e.logger.Debugf("Failed to read %s: %v", selector, err)
		return ""
	}
	return adapters.CleanText(text)
}

// readRatingWidgetID reads the id the rating widget currently exposes, without waiting
func (e *VariantExtractor) readRatingWidgetID(ctx context.Context) string {
	el, err := e.surface.Find(ctx, e.sel.RatingWidget)
	if err != nil {
		return ""
	}
	id, _, err := e.surface.ReadAttribute(ctx, el, e.sel.RatingWidgetAttr)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(id)
}

// pause sleeps for d unless ctx ends first
func (e *VariantExtractor) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
