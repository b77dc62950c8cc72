// Package tracker is the price-tracking service: a registry of retailer
// product pages, a once-daily sequential scrape run, and a query surface
// over the accumulated price history.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/partwatch/idgen"
	"github.com/hazyhaar/partwatch/safeurl"
	"github.com/hazyhaar/partwatch/tracker/internal/delta"
	"github.com/hazyhaar/partwatch/tracker/internal/extract"
	"github.com/hazyhaar/partwatch/tracker/internal/fetch"
	"github.com/hazyhaar/partwatch/tracker/internal/scheduler"
	"github.com/hazyhaar/partwatch/tracker/internal/store"
)

// Service is the main tracker orchestrator.
type Service struct {
	store        *store.Store
	fetcher      fetch.PageFetcher
	browser      fetch.PageFetcher
	engine       *delta.Engine
	scheduler    *scheduler.Scheduler
	logger       *slog.Logger
	config       *Config
	newID        func() string
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	urlValidator func(string) error
	running      atomic.Bool
}

// New creates a tracker Service on an opened database. The schema is
// applied idempotently.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if err := store.ApplySchema(db); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	st := store.NewStore(db)
	svc := &Service{
		store:        st,
		fetcher:      fetch.New(cfg.Fetch),
		engine:       delta.NewEngine(st),
		logger:       logger,
		config:       cfg,
		newID:        idgen.New,
		now:          time.Now,
		sleep:        sleepCtx,
		urlValidator: safeurl.Validate,
	}
	for _, opt := range opts {
		opt(svc)
	}

	svc.scheduler = scheduler.New(func(ctx context.Context, day string) error {
		_, err := svc.runDay(ctx, day)
		if errors.Is(err, ErrRunInProgress) {
			return nil
		}
		return err
	}, cfg.Scheduler, logger)

	return svc, nil
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithFetcher overrides the HTTP page fetcher. Use in tests.
func WithFetcher(f fetch.PageFetcher) ServiceOption {
	return func(svc *Service) { svc.fetcher = f }
}

// WithBrowser sets the fetcher used for targets with render "browser".
// Without it those targets fall back to the HTTP fetcher.
func WithBrowser(b fetch.PageFetcher) ServiceOption {
	return func(svc *Service) { svc.browser = b }
}

// WithHeadlessBrowser enables the rod-backed browser fetcher for targets
// with render "browser". The browser launches lazily on first use.
func WithHeadlessBrowser() ServiceOption {
	return func(svc *Service) {
		svc.browser = fetch.NewBrowser(svc.config.Fetch, svc.logger)
	}
}

// WithNow overrides the clock. Use in tests.
func WithNow(now func() time.Time) ServiceOption {
	return func(svc *Service) { svc.now = now }
}

// WithURLValidator overrides the registration URL check (default:
// safeurl.Validate). Use in tests with httptest servers on loopback.
func WithURLValidator(fn func(string) error) ServiceOption {
	return func(svc *Service) { svc.urlValidator = fn }
}

// Start launches the daily scheduler. Non-blocking.
func (svc *Service) Start(ctx context.Context) {
	go svc.scheduler.Run(ctx)
	svc.logger.Info("tracker: started",
		"trigger", fmt.Sprintf("%02d:%02d UTC", svc.config.Scheduler.Hour, svc.config.Scheduler.Minute))
}

// Close shuts down the service.
func (svc *Service) Close() error {
	if c, ok := svc.browser.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

// today is the UTC day runs and queries default to.
func (svc *Service) today() string {
	return svc.now().UTC().Format("2006-01-02")
}

// --- Scrape run ---

// RunDailyScrape executes one full scrape run attributed to the current UTC
// day. Only one run executes at a time; a concurrent trigger gets
// ErrRunInProgress.
func (svc *Service) RunDailyScrape(ctx context.Context) (*RunReport, error) {
	return svc.runDay(ctx, svc.today())
}

func (svc *Service) runDay(ctx context.Context, day string) (*RunReport, error) {
	if !svc.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer svc.running.Store(false)

	started := svc.now()
	targets, err := svc.store.ListActiveTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active targets: %w", err)
	}

	report := &RunReport{Day: day, Total: len(targets)}
	svc.logger.Info("scrape run starting", "day", day, "targets", len(targets))

	for i, t := range targets {
		if i > 0 {
			if err := svc.sleep(ctx, svc.nextDelay()); err != nil {
				return report, err
			}
		}
		svc.scrapeTarget(ctx, t, day, report)
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	if err := svc.materializeDeltas(ctx, day); err != nil {
		svc.logger.Error("materialize deltas", "day", day, "error", err)
	}
	if stats, err := svc.engine.StatsFor(ctx, day); err == nil {
		report.Stats = stats
	}
	report.DurationMs = svc.now().Sub(started).Milliseconds()

	svc.logger.Info("scrape run finished", "day", day,
		"succeeded", report.Succeeded, "failed", report.Failed,
		"deactivated", len(report.Deactivated), "duration_ms", report.DurationMs)
	return report, nil
}

// scrapeTarget handles one target end to end. Failures are recorded and
// swallowed so the run continues with the next target.
func (svc *Service) scrapeTarget(ctx context.Context, t *store.Target, day string, report *RunReport) {
	rules, err := resolveRules(t)
	if err != nil {
		svc.recordFailure(ctx, t, err, 0, 0, report)
		return
	}

	fetcher := svc.fetcher
	if t.Render == "browser" && svc.browser != nil {
		fetcher = svc.browser
	}

	res, err := fetcher.Fetch(ctx, t.URL)
	if err != nil {
		var code int
		var dur time.Duration
		if fe := fetch.AsError(err); fe != nil {
			code = fe.StatusCode
		}
		if res != nil {
			dur = res.Duration
		}
		svc.recordFailure(ctx, t, err, code, dur, report)
		return
	}

	fields, err := extract.Extract(res.Body, rules)
	if err != nil {
		svc.recordFailure(ctx, t, err, res.StatusCode, res.Duration, report)
		return
	}

	product := &store.ScrapedProduct{
		URL:       t.URL,
		Name:      fields.Name,
		Price:     fields.Price,
		Currency:  fields.Currency,
		Image:     fields.Image,
		Category:  t.Category,
		Brand:     t.Brand,
		Source:    t.Source,
		Available: fields.Available,
	}
	productID, err := svc.store.CommitSnapshot(ctx, t.ID, product, day, svc.now().UnixMilli())
	if err != nil {
		svc.recordFailure(ctx, t, err, res.StatusCode, res.Duration, report)
		return
	}

	svc.insertLog(ctx, t.ID, "ok", res.StatusCode, "", res.Duration)
	report.Succeeded++
	svc.logger.Debug("target scraped", "url", t.URL,
		"product_id", productID, "price", fields.Price)
}

func (svc *Service) recordFailure(ctx context.Context, t *store.Target, cause error, statusCode int, dur time.Duration, report *RunReport) {
	report.Failed++
	count, deactivated, err := svc.store.RecordTargetFailure(ctx, t.ID, cause.Error(), svc.config.FailureThreshold)
	if err != nil {
		svc.logger.Error("record target failure", "url", t.URL, "error", err)
		return
	}
	svc.insertLog(ctx, t.ID, "error", statusCode, cause.Error(), dur)

	if deactivated {
		report.Deactivated = append(report.Deactivated, t.URL)
		svc.logger.Warn("target deactivated", "url", t.URL, "fail_count", count)
		return
	}
	svc.logger.Warn("target failed", "url", t.URL, "fail_count", count, "error", cause)
}

func (svc *Service) insertLog(ctx context.Context, targetID, status string, statusCode int, message string, dur time.Duration) {
	err := svc.store.InsertFetchLog(ctx, &store.FetchLogEntry{
		ID:           svc.newID(),
		TargetID:     targetID,
		Status:       status,
		StatusCode:   statusCode,
		ErrorMessage: message,
		DurationMs:   dur.Milliseconds(),
		FetchedAt:    svc.now().UnixMilli(),
	})
	if err != nil {
		svc.logger.Error("fetch log", "target_id", targetID, "error", err)
	}
}

// materializeDeltas writes the day's computed change onto each product row
// so listings can sort and filter on it without recomputing.
func (svc *Service) materializeDeltas(ctx context.Context, day string) error {
	deltas, err := svc.engine.ComputeDay(ctx, day)
	if err != nil {
		return err
	}
	for _, d := range deltas {
		if err := svc.store.SetPriceChange(ctx, d.ProductID, d.Change); err != nil {
			return fmt.Errorf("set price change %s: %w", d.ProductID, err)
		}
	}
	return nil
}

// nextDelay is the pause before the next target: base plus uniform jitter.
func (svc *Service) nextDelay() time.Duration {
	d := svc.config.BaseDelay
	if svc.config.MaxJitter > 0 {
		d += rand.N(svc.config.MaxJitter)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// --- Targets ---

// AddTarget registers a product page. The retailer is detected from the URL
// when not given. Returns false when the URL is already registered.
func (svc *Service) AddTarget(ctx context.Context, t *Target) (bool, error) {
	if t.ID == "" {
		t.ID = svc.newID()
	}
	if t.Source == "" {
		t.Source = DetectSource(t.URL)
	}
	if t.Render == "" {
		t.Render = "http"
	}
	t.Active = true
	if err := validateTargetInput(t); err != nil {
		return false, err
	}
	if err := svc.urlValidator(t.URL); err != nil {
		return false, err
	}
	if _, err := resolveRules(t); err != nil {
		return false, err
	}
	return svc.store.UpsertTarget(ctx, t)
}

// BulkAddTargets registers a batch of product pages. Duplicates and invalid
// entries are skipped, not fatal. Returns (added, skipped).
func (svc *Service) BulkAddTargets(ctx context.Context, targets []*Target) (int, int, error) {
	var added, skipped int
	for _, t := range targets {
		ok, err := svc.AddTarget(ctx, t)
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoRuleSet),
			errors.Is(err, safeurl.ErrSSRF), errors.Is(err, safeurl.ErrUnsafeScheme):
			skipped++
		case err != nil:
			return added, skipped, err
		case ok:
			added++
		default:
			skipped++
		}
	}
	return added, skipped, nil
}

// Targets returns all registered targets, active and inactive.
func (svc *Service) Targets(ctx context.Context) ([]*Target, error) {
	return svc.store.ListTargets(ctx)
}

// ReactivateTarget clears a target's failure state and puts it back in the
// daily rotation.
func (svc *Service) ReactivateTarget(ctx context.Context, id string) error {
	t, err := svc.store.GetTarget(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: target %s", ErrNotFound, id)
	}
	return svc.store.ReactivateTarget(ctx, id)
}

// ToggleTarget flips a target's active flag and returns the new state.
// Activating goes through reactivation so the failure counter resets.
func (svc *Service) ToggleTarget(ctx context.Context, id string) (bool, error) {
	t, err := svc.store.GetTarget(ctx, id)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, fmt.Errorf("%w: target %s", ErrNotFound, id)
	}
	if t.Active {
		return false, svc.store.SetTargetActive(ctx, id, false)
	}
	return true, svc.store.ReactivateTarget(ctx, id)
}

// --- Sources ---

// AddSource registers a retailer. Names are unique, case-insensitive.
func (svc *Service) AddSource(ctx context.Context, s *Source) error {
	if s.ID == "" {
		s.ID = svc.newID()
	}
	if err := validateSourceInput(s); err != nil {
		return err
	}
	existing, err := svc.store.GetSourceByName(ctx, s.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, s.Name)
	}
	return svc.store.InsertSource(ctx, s)
}

// Sources returns all registered retailers.
func (svc *Service) Sources(ctx context.Context) ([]*Source, error) {
	return svc.store.ListSources(ctx)
}

// --- Queries ---

// Products lists products matching the filter.
func (svc *Service) Products(ctx context.Context, f ProductFilter) ([]*Product, error) {
	return svc.store.ListProducts(ctx, f)
}

// GetProduct returns one product by ID.
func (svc *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := svc.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, nil
}

// ProductHistory returns a product's snapshots, newest first.
func (svc *Service) ProductHistory(ctx context.Context, id string, days int) ([]*Snapshot, error) {
	if _, err := svc.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	return svc.store.ProductHistory(ctx, id, days)
}

// Categories returns the distinct product categories.
func (svc *Service) Categories(ctx context.Context) ([]string, error) {
	return svc.store.Categories(ctx)
}

// Brands returns the distinct product brands.
func (svc *Service) Brands(ctx context.Context) ([]string, error) {
	return svc.store.Brands(ctx)
}

// Stats returns the aggregates for day, defaulting to the current UTC day.
func (svc *Service) Stats(ctx context.Context, day string) (*Stats, error) {
	if day == "" {
		day = svc.today()
	}
	return svc.engine.StatsFor(ctx, day)
}

// TopDeals returns the steepest price drops for day.
func (svc *Service) TopDeals(ctx context.Context, day string, limit int) ([]*Deal, error) {
	if day == "" {
		day = svc.today()
	}
	if limit <= 0 {
		limit = 10
	}
	return svc.engine.TopDeals(ctx, day, limit)
}

// StatsByCategory returns per-category price aggregates for day.
func (svc *Service) StatsByCategory(ctx context.Context, day string) ([]*CategoryStats, error) {
	if day == "" {
		day = svc.today()
	}
	return svc.engine.CategoryBreakdown(ctx, day)
}

// FetchHistory returns a target's recent fetch attempts.
func (svc *Service) FetchHistory(ctx context.Context, targetID string, limit int) ([]*FetchLogEntry, error) {
	return svc.store.FetchHistory(ctx, targetID, limit)
}
