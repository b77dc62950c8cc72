// Package delta computes day-over-day price movement.
//
// A product's delta for a day is the percent change from its most recent
// prior snapshot, whatever day that was. Gaps are fine: if a target failed
// for a week, the comparison baseline is the last day that succeeded. A
// product seen for the first time has no baseline and a delta of zero.
package delta

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hazyhaar/partwatch/tracker/internal/store"
)

// SnapshotSource is the slice of the store the engine reads.
type SnapshotSource interface {
	SnapshotsOn(ctx context.Context, day string) ([]*store.DaySnapshot, error)
	PrevSnapshot(ctx context.Context, productID, beforeDay string) (*store.Snapshot, error)
}

// Delta is one product's movement for a day.
type Delta struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Source    string  `json:"source"`
	Day       string  `json:"day"`
	Price     float64 `json:"price"`
	PrevPrice float64 `json:"prev_price"`
	Change    float64 `json:"change"`
}

// Stats summarizes one day across all products.
type Stats struct {
	TotalProducts   int     `json:"total_products"`
	UniqueSources   int     `json:"unique_sources"`
	PriceDropCount  int     `json:"price_drop_count"`
	BiggestDrop     float64 `json:"biggest_drop"`
	CategoriesCount int     `json:"categories_count"`
	AvgPriceDrop    float64 `json:"avg_price_drop"`
}

// CategoryStats aggregates one category's prices for a day.
type CategoryStats struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	AvgPrice float64 `json:"avg_price"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

// Engine derives deltas and aggregates from committed snapshots.
type Engine struct {
	src SnapshotSource
}

func NewEngine(src SnapshotSource) *Engine {
	return &Engine{src: src}
}

// ComputeDay returns one Delta per product snapshotted on day, ordered by
// product ID. Deterministic for a given set of committed snapshots.
func (e *Engine) ComputeDay(ctx context.Context, day string) ([]*Delta, error) {
	snaps, err := e.src.SnapshotsOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("delta: load day %s: %w", day, err)
	}

	deltas := make([]*Delta, 0, len(snaps))
	for _, s := range snaps {
		prev, err := e.src.PrevSnapshot(ctx, s.ProductID, day)
		if err != nil {
			return nil, fmt.Errorf("delta: prior snapshot for %s: %w", s.ProductID, err)
		}
		d := &Delta{
			ProductID: s.ProductID,
			Name:      s.Name,
			Category:  s.Category,
			Source:    s.Source,
			Day:       day,
			Price:     s.Price,
		}
		if prev != nil && prev.Price != 0 {
			d.PrevPrice = prev.Price
			d.Change = Round2((s.Price - prev.Price) / prev.Price * 100)
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

// StatsFor aggregates a day's snapshots and their deltas. Drop figures
// consider only products whose delta is strictly negative.
func (e *Engine) StatsFor(ctx context.Context, day string) (*Stats, error) {
	snaps, err := e.src.SnapshotsOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("delta: load day %s: %w", day, err)
	}
	deltas, err := e.ComputeDay(ctx, day)
	if err != nil {
		return nil, err
	}

	st := &Stats{TotalProducts: len(snaps)}
	sources := map[string]struct{}{}
	categories := map[string]struct{}{}
	for _, s := range snaps {
		if s.Source != "" {
			sources[s.Source] = struct{}{}
		}
		if s.Category != "" {
			categories[s.Category] = struct{}{}
		}
	}
	st.UniqueSources = len(sources)
	st.CategoriesCount = len(categories)

	var dropSum float64
	for _, d := range deltas {
		if d.Change >= 0 {
			continue
		}
		st.PriceDropCount++
		dropSum += d.Change
		if d.Change < st.BiggestDrop {
			st.BiggestDrop = d.Change
		}
	}
	if st.PriceDropCount > 0 {
		st.AvgPriceDrop = Round2(dropSum / float64(st.PriceDropCount))
	}
	return st, nil
}

// TopDeals returns the day's deltas sorted by steepest drop first, ties
// broken by product ID, truncated at limit. Products with no baseline sort
// after every genuine drop because their delta is zero.
func (e *Engine) TopDeals(ctx context.Context, day string, limit int) ([]*Delta, error) {
	deltas, err := e.ComputeDay(ctx, day)
	if err != nil {
		return nil, err
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Change != deltas[j].Change {
			return deltas[i].Change < deltas[j].Change
		}
		return deltas[i].ProductID < deltas[j].ProductID
	})
	if limit > 0 && len(deltas) > limit {
		deltas = deltas[:limit]
	}
	return deltas, nil
}

// CategoryBreakdown aggregates a day's prices per category, sorted by
// category name. Snapshots with an empty category are skipped.
func (e *Engine) CategoryBreakdown(ctx context.Context, day string) ([]*CategoryStats, error) {
	snaps, err := e.src.SnapshotsOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("delta: load day %s: %w", day, err)
	}

	byCat := map[string]*CategoryStats{}
	for _, s := range snaps {
		if s.Category == "" {
			continue
		}
		cs, ok := byCat[s.Category]
		if !ok {
			cs = &CategoryStats{Category: s.Category, MinPrice: s.Price, MaxPrice: s.Price}
			byCat[s.Category] = cs
		}
		cs.Count++
		cs.AvgPrice += s.Price
		if s.Price < cs.MinPrice {
			cs.MinPrice = s.Price
		}
		if s.Price > cs.MaxPrice {
			cs.MaxPrice = s.Price
		}
	}

	out := make([]*CategoryStats, 0, len(byCat))
	for _, cs := range byCat {
		cs.AvgPrice = Round2(cs.AvgPrice / float64(cs.Count))
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
