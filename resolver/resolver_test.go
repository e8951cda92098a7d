package resolver

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"pdp-variant-extractor/internal/types"
	"pdp-variant-extractor/state"
)

func cacheBlobs(texts ...string) state.Blobs {
	var blobs state.Blobs
	for i, text := range texts {
		blobs.Cache = append(blobs.Cache, state.CacheBlob{Key: "APOLLO_STATE__" + string(rune('a'+i)), Text: text})
	}
	return blobs
}

func TestCacheProximity_IDThenSize(t *testing.T) {
	blobs := cacheBlobs(`{"sku":{"id":"663776651","size":"M","color":"Heather Grey"}}`)

	id, ok := CacheProximity(blobs, types.Variant{ColorName: "Heather Grey", SizeLabel: "M"})

	assert.True(t, ok)
	assert.Equal(t, "663776651", id)
}

func TestCacheProximity_SizeThenID(t *testing.T) {
	blobs := cacheBlobs(`{"color":"Black","size":"L","skuId":"663776700"}`)

	id, ok := CacheProximity(blobs, types.Variant{ColorName: "black", SizeLabel: "L"})

	assert.True(t, ok)
	assert.Equal(t, "663776700", id)
}

func TestCacheProximity_RejectsOtherColor(t *testing.T) {
	blobs := cacheBlobs(`{"a":"600123456","size":"M","x":1,"color":"red"}`)

	id, ok := CacheProximity(blobs, types.Variant{ColorName: "blue", SizeLabel: "M"})

	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestCacheProximity_DisambiguatesAdjacentColors(t *testing.T) {
	pad := strings.Repeat("x", 300)
	blobs := cacheBlobs(
		`{"id":"611111111","size":"S","color":"red"}` + pad +
			`{"id":"622222222","size":"S","color":"navy blue"}`,
	)

	id, ok := CacheProximity(blobs, types.Variant{ColorName: "Navy Blue", SizeLabel: "S"})

	assert.True(t, ok)
	assert.Equal(t, "622222222", id)
}

func TestCacheProximity_MatchesColorScopedID(t *testing.T) {
	blobs := cacheBlobs(`{"product":"61002405","variant":{"id":"633333333","size":"XL"}}`)

	id, ok := CacheProximity(blobs, types.Variant{ColorName: "Unlisted", ColorScopedID: "61002405", SizeLabel: "XL"})

	assert.True(t, ok)
	assert.Equal(t, "633333333", id)
}

func TestCacheProximity_SizeMustMatchExactly(t *testing.T) {
	blobs := cacheBlobs(`{"id":"644444444","size":"XS","color":"red"}`)

	_, ok := CacheProximity(blobs, types.Variant{ColorName: "red", SizeLabel: "S"})
	assert.False(t, ok)

	_, ok = CacheProximity(blobs, types.Variant{ColorName: "red", SizeLabel: "X"})
	assert.False(t, ok)
}

func TestCacheProximity_WindowIsBounded(t *testing.T) {
	blobs := cacheBlobs(`{"id":"655555555","pad":"` + strings.Repeat("z", 250) + `","size":"M","color":"red"}`)

	_, ok := CacheProximity(blobs, types.Variant{ColorName: "red", SizeLabel: "M"})

	assert.False(t, ok)
}

func TestCacheProximity_SizeThenIDWindowStartsAtValue(t *testing.T) {
	variant := types.Variant{ColorName: "red", SizeLabel: "M"}

	id, ok := CacheProximity(cacheBlobs(`color=red,size=m,`+strings.Repeat("x", 199)+`612345678`), variant)
	assert.True(t, ok)
	assert.Equal(t, "612345678", id)

	_, ok = CacheProximity(cacheBlobs(`color=red,size=m,`+strings.Repeat("x", 200)+`612345678`), variant)
	assert.False(t, ok)
}

func TestCacheProximity_IgnoresLongerNumerals(t *testing.T) {
	blobs := cacheBlobs(`{"id":"6612345678","size":"M","color":"red"}`)

	_, ok := CacheProximity(blobs, types.Variant{ColorName: "red", SizeLabel: "M"})

	assert.False(t, ok)
}

func TestCacheProximity_EmptyInputs(t *testing.T) {
	_, ok := CacheProximity(state.Blobs{}, types.Variant{ColorName: "red", SizeLabel: "M"})
	assert.False(t, ok)

	_, ok = CacheProximity(cacheBlobs(`"600000000","size":"M"`), types.Variant{ColorName: "red"})
	assert.False(t, ok)
}

func TestPriceIndex(t *testing.T) {
	blobs := state.Blobs{ProductPrices: []byte(`{"123": {"items": {"A":{}, "B":{}, "C":{}}}}`)}

	tests := []struct {
		size string
		want string
	}{
		{size: "S", want: "C"},
		{size: "XXS", want: "A"},
		{size: "XS", want: "B"},
		{size: "XL", want: "C"},
		{size: "32x30", want: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			id, ok := PriceIndex(blobs, types.Variant{ColorScopedID: "123", SizeLabel: tt.size})
			assert.True(t, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	_, ok := PriceIndex(blobs, types.Variant{ColorScopedID: "456", SizeLabel: "S"})
	assert.False(t, ok)

	_, ok = PriceIndex(blobs, types.Variant{SizeLabel: "S"})
	assert.False(t, ok)
}

func TestSizeIndex(t *testing.T) {
	assert.Equal(t, 0, SizeIndex("XXS"))
	assert.Equal(t, 3, SizeIndex(" m "))
	assert.Equal(t, 6, SizeIndex("XXL"))
	assert.Equal(t, 0, SizeIndex("One Size"))
}

func TestRatingWidget(t *testing.T) {
	id, ok := RatingWidget(state.Blobs{RatingWidgetID: " 663776651 "}, types.Variant{})
	assert.True(t, ok)
	assert.Equal(t, "663776651", id)

	_, ok = RatingWidget(state.Blobs{}, types.Variant{})
	assert.False(t, ok)
}

func TestResolver_TierOrder(t *testing.T) {
	r := NewResolver(logrus.New())
	v := types.Variant{ColorName: "Black", ColorScopedID: "123", SizeLabel: "M"}

	cacheHit := cacheBlobs(`{"id":"666666666","size":"M","color":"black"}`)
	cacheHit.ProductPrices = []byte(`{"123": {"items": {"A":{}}}}`)
	cacheHit.RatingWidgetID = "699999999"

	id, tier := r.Resolve(cacheHit, v)
	assert.Equal(t, "666666666", id)
	assert.Equal(t, "cache-proximity", tier)

	priceHit := state.Blobs{ProductPrices: cacheHit.ProductPrices, RatingWidgetID: "699999999"}
	id, tier = r.Resolve(priceHit, v)
	assert.Equal(t, "A", id)
	assert.Equal(t, "price-index", tier)

	id, tier = r.Resolve(state.Blobs{RatingWidgetID: "699999999"}, v)
	assert.Equal(t, "699999999", id)
	assert.Equal(t, "rating-widget", tier)

	id, tier = r.Resolve(state.Blobs{}, v)
	assert.Empty(t, id)
	assert.Empty(t, tier)
}

func TestResolver_CustomTiers(t *testing.T) {
	calls := 0
	r := NewResolver(logrus.New(),
		Tier{Name: "blank", Resolve: func(state.Blobs, types.Variant) (string, bool) {
			calls++
			return "   ", true
		}},
		Tier{Name: "fixed", Resolve: func(state.Blobs, types.Variant) (string, bool) {
			calls++
			return "600000001", true
		}},
	)

	id, tier := r.Resolve(state.Blobs{}, types.Variant{})

	assert.Equal(t, "600000001", id)
	assert.Equal(t, "fixed", tier)
	assert.Equal(t, 2, calls)
}
