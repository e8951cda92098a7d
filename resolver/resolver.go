package resolver

import (
	"strings"

	"pdp-variant-extractor/internal/types"
	"pdp-variant-extractor/state"
)

// Tier is one strategy in the resolver's ordered fallback chain.
// Resolve must be a pure function of the snapshot and the variant.
type Tier struct {
	Name    string
	Resolve func(blobs state.Blobs, v types.Variant) (string, bool)
}

// DefaultTiers returns the standard chain: cache proximity, price index, rating widget
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "cache-proximity", Resolve: CacheProximity},
		{Name: "price-index", Resolve: PriceIndex},
		{Name: "rating-widget", Resolve: RatingWidget},
	}
}

// Resolver finds the merchant-supplied identifier of a variant in a state snapshot
type Resolver struct {
	tiers  []Tier
	logger types.Logger
}

// NewResolver creates a resolver over the given tiers, or DefaultTiers when none are given
func NewResolver(logger types.Logger, tiers ...Tier) *Resolver {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &Resolver{
		tiers:  tiers,
		logger: logger,
	}
}

// Resolve tries each tier in order and returns the first identifier found
// together with the name of the tier that produced it. An unresolved variant
// yields two empty strings; that is an expected outcome, not an error.
func (r *Resolver) Resolve(blobs state.Blobs, v types.Variant) (string, string) {
	for _, tier := range r.tiers {
		id, ok := tier.Resolve(blobs, v)
		id = strings.TrimSpace(id)
		if ok && id != "" {
			r.logger.Debugf("Resolved %q via %s: %s", v.VariationName(), tier.Name, id)
			return id, tier.Name
		}
	}

	r.logger.Debugf("No merchant id found for %q", v.VariationName())
	return "", ""
}

// RatingWidget returns the id the rating widget exposed when the snapshot was taken.
// It may lag the selected size, so it only serves as a last resort.
func RatingWidget(blobs state.Blobs, _ types.Variant) (string, bool) {
	id := strings.TrimSpace(blobs.RatingWidgetID)
	return id, id != ""
}
