package tracker

import (
	"github.com/hazyhaar/partwatch/tracker/internal/delta"
	"github.com/hazyhaar/partwatch/tracker/internal/store"
)

// Store types re-exported as the service's public vocabulary.
type (
	Source        = store.Source
	Target        = store.Target
	Product       = store.Product
	Snapshot      = store.Snapshot
	FetchLogEntry = store.FetchLogEntry
	ProductFilter = store.ProductFilter

	Stats         = delta.Stats
	Deal          = delta.Delta
	CategoryStats = delta.CategoryStats
)

// RunReport summarizes one scrape run.
type RunReport struct {
	Day         string       `json:"day"`
	Total       int          `json:"total"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Deactivated []string     `json:"deactivated,omitempty"`
	Stats       *delta.Stats `json:"stats,omitempty"`
	DurationMs  int64        `json:"duration_ms"`
}
