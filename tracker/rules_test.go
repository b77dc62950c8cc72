package tracker

import (
	"errors"
	"testing"
)

// WHAT: retailer detection by URL substring.
func TestDetectSource(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.newegg.com/p/N82E16814137855", "newegg"},
		{"https://www.amazon.com/dp/B0C7JYX6LN", "amazon"},
		{"https://www.bestbuy.com/site/6523167.p", "bestbuy"},
		{"https://www.microcenter.com/product/673852", "microcenter"},
		{"https://WWW.NEWEGG.COM/p/x", "newegg"},
		{"https://shop.example.com/gpu", ""},
	}
	for _, tc := range cases {
		if got := DetectSource(tc.url); got != tc.want {
			t.Errorf("DetectSource(%s) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

// WHAT: rule resolution order: target override over retailer default,
// full override for unknown retailers, otherwise no rules.
func TestResolveRules(t *testing.T) {
	// Retailer default.
	rules, err := resolveRules(&Target{URL: "https://www.newegg.com/p/x", Source: "newegg"})
	if err != nil {
		t.Fatalf("resolveRules: %v", err)
	}
	if rules.Name != "h1.product-title" || rules.Price != ".price-current" {
		t.Errorf("newegg defaults = %+v", rules)
	}

	// Override layered on top.
	rules, err = resolveRules(&Target{
		Source:        "newegg",
		PriceSelector: ".sale-price",
	})
	if err != nil {
		t.Fatalf("resolveRules: %v", err)
	}
	if rules.Price != ".sale-price" || rules.Name != "h1.product-title" {
		t.Errorf("merged rules = %+v", rules)
	}

	// Unknown retailer with a full override.
	rules, err = resolveRules(&Target{
		NameSelector:  "h1",
		PriceSelector: ".price",
	})
	if err != nil {
		t.Fatalf("resolveRules: %v", err)
	}
	if rules.Name != "h1" || rules.Price != ".price" {
		t.Errorf("override rules = %+v", rules)
	}

	// Unknown retailer, partial override.
	if _, err := resolveRules(&Target{NameSelector: "h1"}); !errors.Is(err, ErrNoRuleSet) {
		t.Errorf("partial override err = %v, want ErrNoRuleSet", err)
	}
}

// WHAT: every built-in rule set names at least the mandatory fields.
func TestDefaultRules_Complete(t *testing.T) {
	for _, key := range KnownSources() {
		rules := defaultRules[key]
		if rules.Name == "" || rules.Price == "" {
			t.Errorf("%s: incomplete rule set %+v", key, rules)
		}
	}
}
