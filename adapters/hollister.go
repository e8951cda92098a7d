package adapters

import (
	"pdp-variant-extractor/internal/types"
)

// HollisterAdapter carries the hollisterco.com product page profile
type HollisterAdapter struct {
	*BaseAdapter
	selectors Selectors
}

// NewHollisterAdapter creates a new Hollister adapter
func NewHollisterAdapter(logger types.Logger) *HollisterAdapter {
	return &HollisterAdapter{
		BaseAdapter: NewBaseAdapter(logger),
		selectors:   HollisterSelectors(),
	}
}

// GetStoreName returns the store name
func (h *HollisterAdapter) GetStoreName() string {
	return "hollisterco.com"
}

// Selectors returns the page profile used by the extractor
func (h *HollisterAdapter) Selectors() Selectors {
	return h.selectors
}

// HollisterSelectors returns the markup and globals of a Hollister product page
func HollisterSelectors() Selectors {
	return Selectors{
		ProductName:   `h1[data-testid="main-product-name"]`,
		Gallery:       `section.product-page-images-mfe`,
		SwatchGroup:   `section[data-testid="swatch-group"]`,
		SizeTileGroup: `.size-tile-group`,

		ColorSwatch: `section[data-testid="swatch-group"] .swtg-input-inner-wrapper`,
		ColorRadio:  `input.swtg-input`,
		ColorLabel:  `img[alt]`,

		SizeTile:             `.size-tile-group [data-testid="sitg-input-inner-wrapper"]`,
		SizeInput:            `input.sitg-input`,
		SizeLabel:            `.sitg-label-text`,
		SizeStateAttr:        `data-variant`,
		SizeUnavailableValue: `unavailable`,

		FirstImage:      `section.product-page-images-mfe .product-page-gallery-mfe img`,
		DetailsTrigger:  `#details-accordion`,
		DetailsPanel:    `#details-accordion-panel-id .accordion-panel-content`,
		StoreItemNumber: `.details-accordion-mfe__store-item-number span:last-child`,
		Description:     `.details-accordion-mfe__description`,

		PriceText: `.product-price-text`,

		RatingWidget:     `.product-rating-container [data-bv-product-id]`,
		RatingWidgetAttr: `data-bv-product-id`,

		CacheGlobalPrefix: `APOLLO_STATE__`,
		PricesGlobal:      `productPrices`,
		CatalogGlobal:     `productCatalog`,
	}
}
