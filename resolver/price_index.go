package resolver

import (
	"strings"

	"pdp-variant-extractor/internal/types"
	"pdp-variant-extractor/state"
)

// canonicalSizes is the size progression the price index is assumed to follow
var canonicalSizes = []string{"XXS", "XS", "S", "M", "L", "XL", "XXL"}

// SizeIndex maps a size label to its position in the canonical progression.
// Labels outside the vocabulary map to 0.
func SizeIndex(label string) int {
	label = strings.ToUpper(strings.TrimSpace(label))
	for i, s := range canonicalSizes {
		if s == label {
			return i
		}
	}
	return 0
}

// PriceIndex picks a merchant id from the structured price index by position.
// It assumes the index lists ids in canonical size order, which the page does
// not guarantee; it is only consulted when the cache search finds nothing.
func PriceIndex(blobs state.Blobs, v types.Variant) (string, bool) {
	keys := blobs.PriceIndexKeys(strings.TrimSpace(v.ColorScopedID))
	if len(keys) == 0 {
		return "", false
	}

	idx := SizeIndex(v.SizeLabel)
	if idx >= len(keys) {
		idx = len(keys) - 1
	}
	return keys[idx], true
}
