package resolver

import (
	"regexp"
	"strings"

	"pdp-variant-extractor/internal/types"
	"pdp-variant-extractor/state"
)

const (
	// proximityWindow bounds the gap between a merchant id and its size key
	proximityWindow = 200

	// neighborhoodWindow is how far around a match the color must appear
	neighborhoodWindow = 250

	merchantIDLength = 9
	merchantIDPrefix = '6'
)

var digitRun = regexp.MustCompile(`\d+`)

type span struct {
	start, end int
}

// CacheProximity searches the cache corpus for a merchant id that sits next to
// a size key equal to the variant's size and whose neighborhood mentions the
// variant's color. Id-then-size pairs are tried before size-then-id pairs.
func CacheProximity(blobs state.Blobs, v types.Variant) (string, bool) {
	size := compact(v.SizeLabel)
	if size == "" {
		return "", false
	}

	corpus := blobs.CacheCorpus()
	if corpus == "" {
		return "", false
	}

	ids := merchantIDs(corpus)
	if len(ids) == 0 {
		return "", false
	}

	sizeKey := sizeKeyPattern(size)
	color := compact(v.ColorName)
	scopedID := strings.TrimSpace(v.ColorScopedID)

	// id then size
	for _, id := range ids {
		limit := min(len(corpus), id.end+proximityWindow+len(size)+16)
		loc := sizeKey.FindStringIndex(corpus[id.end:limit])
		if loc == nil || loc[0] > proximityWindow {
			continue
		}
		if mentionsColor(corpus, id.start, id.end+loc[1], color, scopedID) {
			return corpus[id.start:id.end], true
		}
	}

	// size then id; the gap is measured from the end of the size value
	for _, key := range sizeKey.FindAllStringSubmatchIndex(corpus, -1) {
		valueEnd := key[3]
		for _, id := range ids {
			if id.start < valueEnd {
				continue
			}
			if id.start-valueEnd > proximityWindow {
				break
			}
			if mentionsColor(corpus, key[0], id.end, color, scopedID) {
				return corpus[id.start:id.end], true
			}
		}
	}

	return "", false
}

// merchantIDs returns every standalone 9-digit numeral starting with 6, in corpus order
func merchantIDs(corpus string) []span {
	var out []span
	for _, loc := range digitRun.FindAllStringIndex(corpus, -1) {
		if loc[1]-loc[0] != merchantIDLength || corpus[loc[0]] != merchantIDPrefix {
			continue
		}
		out = append(out, span{start: loc[0], end: loc[1]})
	}
	return out
}

// sizeKeyPattern matches a size key/value pair such as "size":"m" or size=m
func sizeKeyPattern(size string) *regexp.Regexp {
	return regexp.MustCompile(`size["']?[:=]["']?(` + regexp.QuoteMeta(size) + `)(?:[^a-z0-9]|$)`)
}

// mentionsColor reports whether the text around [start, end) names the color
// or its color-scoped id. With neither supplied there is nothing to disambiguate.
func mentionsColor(corpus string, start, end int, color, scopedID string) bool {
	if color == "" && scopedID == "" {
		return true
	}

	segment := corpus[max(0, start-neighborhoodWindow):min(len(corpus), end+neighborhoodWindow)]
	if color != "" && strings.Contains(segment, color) {
		return true
	}
	return scopedID != "" && strings.Contains(segment, scopedID)
}

// compact lowercases s and drops all whitespace, matching the corpus normalization
func compact(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
