package state

import (
	"context"
	"encoding/json"
	"fmt"

	"pdp-variant-extractor/internal/types"
)

// Globals names the page globals a Reader collects
type Globals struct {
	CachePrefix   string
	PricesGlobal  string
	CatalogGlobal string
}

// readStateScript serializes every cache global plus the two structured
// globals. Structured globals are kept only when they are a string or an object.
const readStateScript = `(() => {
	const prefix = %s;
	const out = { cache: [], prices: null, catalog: null };
	for (const k of Object.keys(window)) {
		if (!k.startsWith(prefix)) continue;
		try {
			const v = window[k];
			let text;
			if (typeof v === 'string') {
				text = v;
			} else {
				try { text = JSON.stringify(v); } catch (e) { text = String(v); }
			}
			out.cache.push([k, text == null ? '' : String(text)]);
		} catch (e) {}
	}
	const pick = (v) => (typeof v === 'string' || (typeof v === 'object' && v !== null)) ? v : null;
	try { out.prices = pick(window[%s]); } catch (e) {}
	try { out.catalog = pick(window[%s]); } catch (e) {}
	return out;
})()`

type statePayload struct {
	Cache   [][]string      `json:"cache"`
	Prices  json.RawMessage `json:"prices"`
	Catalog json.RawMessage `json:"catalog"`
}

// Reader pulls client-side global state from a RenderSurface into Blobs snapshots
type Reader struct {
	surface types.RenderSurface
	globals Globals
	logger  types.Logger
}

// NewReader creates a new state reader
func NewReader(surface types.RenderSurface, globals Globals, logger types.Logger) *Reader {
	return &Reader{
		surface: surface,
		globals: globals,
		logger:  logger,
	}
}

// Read captures the current page state. It never mutates the page and never
// fails: any read or decode problem yields an empty snapshot.
func (r *Reader) Read(ctx context.Context) Blobs {
	script, err := r.script()
	if err != nil {
		r.logger.Debugf("Failed to build state script: %v", err)
		return Blobs{}
	}

	raw, err := r.surface.ReadGlobalState(ctx, script)
	if err != nil {
		r.logger.Debugf("Failed to read page state: %v", err)
		return Blobs{}
	}

	blobs, err := Parse(raw)
	if err != nil {
		r.logger.Debugf("Failed to decode page state: %v", err)
		return Blobs{}
	}

	r.logger.Debugf("Captured %d cache blobs (prices: %d bytes, catalog: %d bytes)",
		len(blobs.Cache), len(blobs.ProductPrices), len(blobs.ProductCatalog))
	return blobs
}

func (r *Reader) script() (string, error) {
	prefix, err := json.Marshal(r.globals.CachePrefix)
	if err != nil {
		return "", err
	}
	prices, err := json.Marshal(r.globals.PricesGlobal)
	if err != nil {
		return "", err
	}
	catalog, err := json.Marshal(r.globals.CatalogGlobal)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(readStateScript, prefix, prices, catalog), nil
}

// Parse decodes the JSON produced by the state script into a snapshot
func Parse(raw []byte) (Blobs, error) {
	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Blobs{}, fmt.Errorf("failed to decode state payload: %w", err)
	}

	var blobs Blobs
	for _, pair := range payload.Cache {
		if len(pair) != 2 {
			continue
		}
		blobs.Cache = append(blobs.Cache, CacheBlob{Key: pair[0], Text: pair[1]})
	}
	blobs.ProductPrices = nonNull(payload.Prices)
	blobs.ProductCatalog = nonNull(payload.Catalog)

	return blobs, nil
}

func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
