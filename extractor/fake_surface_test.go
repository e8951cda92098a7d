package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pdp-variant-extractor/adapters"
	"pdp-variant-extractor/internal/types"
)

// fakeColor describes one swatch of the fake product page
type fakeColor struct {
	name      string
	value     string
	noLabel   bool
	variantID string
	photo     string
	sizes     []fakeSize
}

// fakeSize describes one size tile of the fake product page
type fakeSize struct {
	label       string
	unavailable bool
	// ignoreClick makes the tile swallow clicks so only the scripted fallback checks it
	ignoreClick bool
	price       string
}

var _ types.RenderSurface = (*fakePage)(nil)

type fakeElement struct {
	kind  string
	color int
	size  int
}

// fakePage is an in-memory RenderSurface holding the UI state of one product page.
// Selecting a color resets the size selection, like the real page.
type fakePage struct {
	sel adapters.Selectors

	itemName    string
	title       string
	description string
	basePrice   string
	colors      []fakeColor

	// merchantID returns the id the page state exposes for a selection
	merchantID func(color, size int) string
	// inCache decides whether the cache blobs carry the current selection
	inCache func(color, size int) bool
	// priceIndex is served verbatim as the productPrices global
	priceIndex string
	// ratingID, when set, is exposed by the rating widget for the current selection
	ratingID func(color, size int) string
	// noState makes the page expose no globals at all
	noState bool

	// descriptionAfterColor keeps the description unrendered until a color is picked
	descriptionAfterColor bool
	// interceptClicks makes pointer clicks on color radios fail
	interceptClicks bool
	// radioNeverChecked keeps color radios from ever reporting checked
	radioNeverChecked bool

	selectedColor int
	selectedSize  int
	expanded      bool

	loaded      bool
	loadErr     error
	closed      int
	stateReads  int
	forcedSizes  []string
	clicks       []string
	forcedClicks []string
}

func newFakePage(colors ...fakeColor) *fakePage {
	return &fakePage{
		sel:           adapters.HollisterSelectors(),
		itemName:      "Faux Fur-Trim Puffer Bomber Jacket",
		title:         "Faux Fur-Trim Puffer Bomber Jacket | Hollister",
		description:   "Soft faux fur trim.\nRelaxed fit.",
		basePrice:     "$89.95",
		colors:        colors,
		merchantID:    func(c, s int) string { return fmt.Sprintf("6%02d%06d", c, s) },
		inCache:       func(int, int) bool { return true },
		selectedColor: -1,
		selectedSize:  -1,
	}
}

func (p *fakePage) currentSizes() []fakeSize {
	if p.selectedColor < 0 {
		return nil
	}
	return p.colors[p.selectedColor].sizes
}

func (p *fakePage) Load(ctx context.Context, url string) error {
	if p.loadErr != nil {
		return p.loadErr
	}
	p.loaded = true
	return nil
}

func (p *fakePage) Find(ctx context.Context, selector string) (types.Element, error) {
	if selector == p.sel.RatingWidget && p.ratingID != nil && p.selectedColor >= 0 && p.selectedSize >= 0 {
		return &fakeElement{kind: "rating"}, nil
	}
	return nil, types.ErrElementNotFound
}

func (p *fakePage) FindAll(ctx context.Context, selector string) ([]types.Element, error) {
	var out []types.Element
	switch selector {
	case p.sel.ColorSwatch:
		for i := range p.colors {
			out = append(out, &fakeElement{kind: "swatch", color: i})
		}
	case p.sel.SizeTile:
		for i := range p.currentSizes() {
			out = append(out, &fakeElement{kind: "tile", color: p.selectedColor, size: i})
		}
	}
	return out, nil
}

func (p *fakePage) FindWithin(ctx context.Context, parent types.Element, selector string) (types.Element, error) {
	el := parent.(*fakeElement)
	switch {
	case el.kind == "swatch" && selector == p.sel.ColorRadio:
		return &fakeElement{kind: "radio", color: el.color}, nil
	case el.kind == "swatch" && selector == p.sel.ColorLabel && !p.colors[el.color].noLabel:
		return &fakeElement{kind: "swatch-img", color: el.color}, nil
	case el.kind == "tile" && selector == p.sel.SizeInput:
		return &fakeElement{kind: "size-input", color: el.color, size: el.size}, nil
	case el.kind == "tile" && selector == p.sel.SizeLabel:
		return &fakeElement{kind: "size-label", color: el.color, size: el.size}, nil
	}
	return nil, types.ErrElementNotFound
}

func (p *fakePage) WaitForPresence(ctx context.Context, selector string, timeout time.Duration) (types.Element, error) {
	switch selector {
	case p.sel.ProductName:
		if p.itemName == "" {
			return nil, fmt.Errorf("timed out waiting for %s", selector)
		}
		return &fakeElement{kind: "name"}, nil
	case p.sel.Gallery, p.sel.SwatchGroup, p.sel.SizeTileGroup:
		return &fakeElement{kind: "anchor"}, nil
	case p.sel.PriceText:
		return &fakeElement{kind: "price"}, nil
	case p.sel.DetailsTrigger:
		return &fakeElement{kind: "trigger"}, nil
	case p.sel.StoreItemNumber:
		if p.expanded && p.selectedColor >= 0 {
			return &fakeElement{kind: "store-item"}, nil
		}
	case p.sel.Description:
		if p.expanded && (!p.descriptionAfterColor || p.selectedColor >= 0) {
			return &fakeElement{kind: "description"}, nil
		}
	}
	return nil, fmt.Errorf("timed out waiting for %s", selector)
}

func (p *fakePage) WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (types.Element, error) {
	switch selector {
	case p.sel.FirstImage:
		if p.selectedColor >= 0 && p.colors[p.selectedColor].photo != "" {
			return &fakeElement{kind: "image"}, nil
		}
	case p.sel.DetailsPanel:
		if p.expanded {
			return &fakeElement{kind: "panel"}, nil
		}
	}
	return nil, fmt.Errorf("timed out waiting for %s", selector)
}

func (p *fakePage) ScrollIntoView(ctx context.Context, el types.Element) error { return nil }

func (p *fakePage) Click(ctx context.Context, el types.Element) error {
	fe := el.(*fakeElement)
	p.clicks = append(p.clicks, fe.kind)
	switch fe.kind {
	case "radio":
		if p.interceptClicks {
			return fmt.Errorf("element click intercepted: %s", fe.kind)
		}
		p.selectColor(fe.color)
	case "size-input":
		if !p.colors[fe.color].sizes[fe.size].ignoreClick {
			p.selectedSize = fe.size
		}
	}
	return nil
}

func (p *fakePage) ForceClick(ctx context.Context, el types.Element) error {
	fe := el.(*fakeElement)
	p.forcedClicks = append(p.forcedClicks, fe.kind)
	switch fe.kind {
	case "radio":
		p.selectColor(fe.color)
	case "trigger":
		p.expanded = true
	}
	return nil
}

func (p *fakePage) selectColor(i int) {
	p.selectedColor = i
	p.selectedSize = -1
}

func (p *fakePage) ReadAttribute(ctx context.Context, el types.Element, name string) (string, bool, error) {
	fe := el.(*fakeElement)
	switch {
	case fe.kind == "radio" && name == "checked":
		return "true", !p.radioNeverChecked && p.selectedColor == fe.color, nil
	case fe.kind == "radio" && name == "value":
		return p.colors[fe.color].value, true, nil
	case fe.kind == "swatch-img" && name == "alt":
		return p.colors[fe.color].name, true, nil
	case fe.kind == "tile" && name == p.sel.SizeStateAttr:
		if p.colors[fe.color].sizes[fe.size].unavailable {
			return p.sel.SizeUnavailableValue, true, nil
		}
		return "available", true, nil
	case fe.kind == "size-input" && name == "checked":
		return "true", p.selectedColor == fe.color && p.selectedSize == fe.size, nil
	case fe.kind == "image" && name == "src":
		return p.colors[p.selectedColor].photo, true, nil
	case fe.kind == "trigger" && name == "aria-expanded":
		return fmt.Sprintf("%v", p.expanded), true, nil
	case fe.kind == "rating" && name == p.sel.RatingWidgetAttr:
		return p.ratingID(p.selectedColor, p.selectedSize), true, nil
	}
	return "", false, nil
}

func (p *fakePage) ReadText(ctx context.Context, el types.Element) (string, error) {
	fe := el.(*fakeElement)
	switch fe.kind {
	case "name":
		return "  " + p.itemName + "\n", nil
	case "size-label":
		return p.colors[fe.color].sizes[fe.size].label, nil
	case "store-item":
		return p.colors[p.selectedColor].variantID, nil
	case "description":
		return p.description, nil
	case "price":
		return p.currentPrice(), nil
	}
	return "", nil
}

func (p *fakePage) currentPrice() string {
	sizes := p.currentSizes()
	if p.selectedSize >= 0 && p.selectedSize < len(sizes) && sizes[p.selectedSize].price != "" {
		return sizes[p.selectedSize].price
	}
	return p.basePrice
}

func (p *fakePage) ExecuteScript(ctx context.Context, el types.Element, fn string, out interface{}) error {
	if el == nil {
		return nil
	}
	fe := el.(*fakeElement)
	switch {
	case fe.kind == "price" && strings.Contains(fn, "outerHTML"):
		html := fmt.Sprintf(`<div class="product-price"><span class="product-price-text">%s</span></div>`, p.currentPrice())
		if parts := strings.SplitN(p.currentPrice(), "/", 2); len(parts) == 2 {
			html = fmt.Sprintf(`<div><span class="product-price-text"><s>%s</s></span><span class="product-price-text">%s</span></div>`, parts[0], parts[1])
		}
		*(out.(*string)) = html
	case fe.kind == "size-input" && strings.Contains(fn, "dispatchEvent"):
		p.selectedColor = fe.color
		p.selectedSize = fe.size
		p.forcedSizes = append(p.forcedSizes, p.colors[fe.color].sizes[fe.size].label)
	}
	return nil
}

func (p *fakePage) ReadGlobalState(ctx context.Context, expression string) ([]byte, error) {
	p.stateReads++
	if p.noState {
		return []byte(`{"cache":[],"prices":null,"catalog":null}`), nil
	}

	payload := map[string]interface{}{
		"cache":   [][]string{{"APOLLO_STATE__product", `{"__typename":"Product","name":"jacket"}`}},
		"prices":  nil,
		"catalog": nil,
	}
	if p.priceIndex != "" {
		payload["prices"] = p.priceIndex
	}

	if p.selectedColor >= 0 && p.selectedSize >= 0 && p.inCache(p.selectedColor, p.selectedSize) {
		c := p.colors[p.selectedColor]
		blob := fmt.Sprintf(`{"sku": {"id": "%s", "size": "%s", "color": "%s"}}`,
			p.merchantID(p.selectedColor, p.selectedSize), c.sizes[p.selectedSize].label, c.name)
		payload["cache"] = append(payload["cache"].([][]string), []string{"APOLLO_STATE__sku", blob})
	}

	return json.Marshal(payload)
}

func (p *fakePage) Title(ctx context.Context) (string, error) { return p.title, nil }

func (p *fakePage) Close() error {
	p.closed++
	return nil
}
