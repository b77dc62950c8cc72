package tracker

import (
	"strings"

	"github.com/hazyhaar/partwatch/tracker/internal/extract"
	"github.com/hazyhaar/partwatch/tracker/internal/store"
)

// defaultRules maps a retailer key to its built-in field locators. Keys are
// matched against target URLs by DetectSource. Per-target selector overrides
// are layered on top; unknown retailers need a full override.
var defaultRules = map[string]extract.RuleSet{
	"newegg": {
		Name:         "h1.product-title",
		Price:        ".price-current",
		Image:        ".product-view-img-original",
		Availability: ".product-inventory",
	},
	"amazon": {
		Name:         "#productTitle",
		Price:        ".a-price .a-offscreen",
		Image:        "#landingImage",
		Availability: "#availability",
	},
	"bestbuy": {
		Name:         ".sku-title h1",
		Price:        ".priceView-customer-price span",
		Image:        ".primary-image",
		Availability: ".fulfillment-add-to-cart-button",
	},
	"microcenter": {
		Name:         "h1.ProductLink",
		Price:        "#pricing",
		Image:        "#productImage",
		Availability: ".inventory",
	},
}

// DetectSource returns the retailer key matching the URL, or "" when the
// retailer is unknown.
func DetectSource(url string) string {
	lower := strings.ToLower(url)
	for key := range defaultRules {
		if strings.Contains(lower, key) {
			return key
		}
	}
	return ""
}

// KnownSources returns the retailer keys with built-in rules, for validation
// and listings.
func KnownSources() []string {
	keys := make([]string, 0, len(defaultRules))
	for k := range defaultRules {
		keys = append(keys, k)
	}
	return keys
}

// resolveRules returns the effective rule set for a target: the retailer
// default overlaid with the target's own selectors. A target with a full
// set of selectors needs no retailer default.
func resolveRules(t *store.Target) (extract.RuleSet, error) {
	override := extract.RuleSet{
		Name:         t.NameSelector,
		Price:        t.PriceSelector,
		Image:        t.ImageSelector,
		Availability: t.AvailabilitySelector,
	}

	base, ok := defaultRules[t.Source]
	if !ok {
		if override.Name == "" || override.Price == "" {
			return extract.RuleSet{}, ErrNoRuleSet
		}
		return override, nil
	}
	return base.Merge(override), nil
}
