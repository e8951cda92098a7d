package state

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CacheBlob is one serialized client-side cache global, in page order
type CacheBlob struct {
	Key  string
	Text string
}

// Blobs is an immutable snapshot of the page-global state taken after a selection.
// It is passed by value into the resolver; nothing reads the live page through it.
type Blobs struct {
	// Cache holds every global whose name carries the cache prefix
	Cache []CacheBlob

	// ProductPrices and ProductCatalog hold the raw JSON value of the
	// respective globals (a JSON string or object), or nil when absent.
	ProductPrices  json.RawMessage
	ProductCatalog json.RawMessage

	// RatingWidgetID is the merchant id exposed by the rating widget at
	// snapshot time. It reflects whatever variant the page considers current.
	RatingWidgetID string
}

// Empty reports whether the snapshot carries no state at all
func (b Blobs) Empty() bool {
	return len(b.Cache) == 0 && len(b.ProductPrices) == 0 && len(b.ProductCatalog) == 0 && b.RatingWidgetID == ""
}

// CacheCorpus concatenates all cache blobs into one lowercase corpus with
// every whitespace character removed.
func (b Blobs) CacheCorpus() string {
	var sb strings.Builder
	for _, blob := range b.Cache {
		for _, field := range strings.Fields(strings.ToLower(blob.Text)) {
			sb.WriteString(field)
		}
	}
	return sb.String()
}

// PriceIndexKeys returns the merchant ids listed under
// productPrices[colorScopedID].items, in the order the page serialized them.
func (b Blobs) PriceIndexKeys(colorScopedID string) []string {
	if colorScopedID == "" {
		return nil
	}

	index := unwrapJSONString(b.ProductPrices)
	if len(index) == 0 {
		return nil
	}

	node := objectField(index, colorScopedID)
	if node == nil {
		return nil
	}

	items := objectField(node, "items")
	if items == nil {
		return nil
	}

	return objectKeys(items)
}

// unwrapJSONString decodes a JSON string holding serialized JSON; other values pass through
func unwrapJSONString(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] != '"' {
		return trimmed
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil
	}
	return json.RawMessage(strings.TrimSpace(text))
}

func objectField(raw json.RawMessage, key string) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	value, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil
	}
	return value
}

// objectKeys walks the top-level keys of a JSON object preserving their order
func objectKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil
		}
		keys = append(keys, key)
	}
	return keys
}
