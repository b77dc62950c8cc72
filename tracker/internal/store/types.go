package store

// Source is a retailer whose product pages are tracked.
type Source struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Homepage  string `json:"homepage"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Target is one product page URL visited by the daily run.
type Target struct {
	ID                   string `json:"id"`
	URL                  string `json:"url"`
	Source               string `json:"source"`
	Category             string `json:"category"`
	Brand                string `json:"brand,omitempty"`
	NameSelector         string `json:"name_selector,omitempty"`
	PriceSelector        string `json:"price_selector,omitempty"`
	ImageSelector        string `json:"image_selector,omitempty"`
	AvailabilitySelector string `json:"availability_selector,omitempty"`
	Render               string `json:"render"` // "http" | "browser"
	Active               bool   `json:"active"`
	FailCount            int    `json:"fail_count"`
	LastError            string `json:"last_error,omitempty"`
	LastScrapedAt        *int64 `json:"last_scraped_at,omitempty"`
	CreatedAt            int64  `json:"created_at"`
	UpdatedAt            int64  `json:"updated_at"`
}

// Product is a tracked component with its latest scraped state.
type Product struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"price"`
	Currency      string  `json:"currency"`
	Image         string  `json:"image,omitempty"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand,omitempty"`
	Source        string  `json:"source"`
	PriceChange   float64 `json:"price_change"`
	Available     bool    `json:"available"`
	ScrapeDay     string  `json:"scrape_day"`
	LastScrapedAt *int64  `json:"last_scraped_at,omitempty"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

// Snapshot is one (product, day) price fact. Rows are never edited after
// the day closes; a same-day re-run overwrites.
type Snapshot struct {
	ID         string  `json:"id"`
	ProductID  string  `json:"product_id"`
	Day        string  `json:"day"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Available  bool    `json:"available"`
	RecordedAt int64   `json:"recorded_at"`
}

// DaySnapshot is a snapshot joined with its product's dimensions,
// as consumed by the delta engine.
type DaySnapshot struct {
	ProductID string  `json:"product_id"`
	Day       string  `json:"day"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Available bool    `json:"available"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Brand     string  `json:"brand,omitempty"`
	Source    string  `json:"source"`
}

// FetchLogEntry is one fetch attempt record.
type FetchLogEntry struct {
	ID           string `json:"id"`
	TargetID     string `json:"target_id"`
	Status       string `json:"status"`
	StatusCode   int    `json:"status_code"`
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	FetchedAt    int64  `json:"fetched_at"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Day      string
	Category string
	Source   string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Search   string
}
