// Package extract locates product fields in fetched markup.
//
// Each field has its own CSS locator and is resolved independently: a
// missing image or availability cell degrades the record, it does not abort
// the extraction. Name and price are the exceptions — a product record
// without them has no value, so their absence is a hard failure.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrPriceUnparseable means the price locator matched nothing, or matched
// text without a numeric token.
var ErrPriceUnparseable = errors.New("extract: price unparseable")

// ErrNameMissing means the name locator matched nothing, or only whitespace.
var ErrNameMissing = errors.New("extract: product name missing")

// RuleSet holds the four field locators for one retailer (or one target
// override). Values are CSS selectors. Immutable during a run.
type RuleSet struct {
	Name         string `json:"name" yaml:"name"`
	Price        string `json:"price" yaml:"price"`
	Image        string `json:"image" yaml:"image"`
	Availability string `json:"availability" yaml:"availability"`
}

// Merge overlays non-empty locators from o onto r. Used for per-target
// overrides on top of the retailer default.
func (r RuleSet) Merge(o RuleSet) RuleSet {
	if o.Name != "" {
		r.Name = o.Name
	}
	if o.Price != "" {
		r.Price = o.Price
	}
	if o.Image != "" {
		r.Image = o.Image
	}
	if o.Availability != "" {
		r.Availability = o.Availability
	}
	return r
}

// Fields is the extracted product state.
type Fields struct {
	Name         string
	Price        float64
	Currency     string
	Image        string
	Availability string
	Available    bool
}

// Extract applies the rule set to the page and returns the product fields.
func Extract(html []byte, rules RuleSet) (*Fields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}

	f := &Fields{Currency: "USD", Available: true}

	if rules.Name != "" {
		f.Name = strings.TrimSpace(doc.Find(rules.Name).First().Text())
	}
	if f.Name == "" {
		return nil, ErrNameMissing
	}

	priceText := ""
	if rules.Price != "" {
		priceText = doc.Find(rules.Price).First().Text()
	}
	price, err := ParsePrice(priceText)
	if err != nil {
		return nil, err
	}
	f.Price = price
	if c := detectCurrency(priceText); c != "" {
		f.Currency = c
	}

	if rules.Image != "" {
		img := doc.Find(rules.Image).First()
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		f.Image = src
	}

	if rules.Availability != "" {
		f.Availability = strings.TrimSpace(doc.Find(rules.Availability).First().Text())
		lower := strings.ToLower(f.Availability)
		if strings.Contains(lower, "out of stock") || strings.Contains(lower, "unavailable") {
			f.Available = false
		}
	}

	return f, nil
}

var priceToken = regexp.MustCompile(`\d[\d.,]*`)

// ParsePrice pulls the numeric value out of a price cell's text. Currency
// symbols and surrounding text are ignored; thousands separators are
// stripped; one decimal separator (dot or comma) is accepted.
func ParsePrice(text string) (float64, error) {
	token := priceToken.FindString(text)
	if token == "" {
		return 0, ErrPriceUnparseable
	}

	// The rightmost dot or comma followed by one or two digits at the end
	// of the token is the decimal separator; everything else is grouping.
	lastDot := strings.LastIndexByte(token, '.')
	lastComma := strings.LastIndexByte(token, ',')
	sep := max(lastDot, lastComma)

	var normalized string
	if sep >= 0 && len(token)-sep-1 <= 2 {
		intPart := strings.Map(dropSeparators, token[:sep])
		normalized = intPart + "." + token[sep+1:]
	} else {
		normalized = strings.Map(dropSeparators, token)
	}

	price, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, ErrPriceUnparseable
	}
	return price, nil
}

func dropSeparators(r rune) rune {
	if r == '.' || r == ',' {
		return -1
	}
	return r
}

func detectCurrency(text string) string {
	switch {
	case strings.ContainsRune(text, '$'):
		return "USD"
	case strings.ContainsRune(text, '€'):
		return "EUR"
	case strings.ContainsRune(text, '£'):
		return "GBP"
	}
	return ""
}
