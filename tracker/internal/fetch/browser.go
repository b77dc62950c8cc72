package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Browser is the rendered acquisition path for shops that serve an SPA shell
// to plain HTTP clients. It drives headless Chrome through rod with stealth
// patches and returns the post-load DOM as HTML.
//
// Chrome is launched lazily on the first Fetch and kept for the rest of the
// run; the daily loop is sequential, so one tab at a time is enough.
type Browser struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	logger  *slog.Logger
}

// NewBrowser creates a Browser. Chrome is not started until the first Fetch.
func NewBrowser(cfg Config, logger *slog.Logger) *Browser {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{cfg: cfg, logger: logger}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	b.lnch = launcher.New().Headless(true)
	wsURL, err := b.lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch chrome: %w", err)
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		b.lnch.Cleanup()
		b.lnch = nil
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = br
	b.logger.Debug("browser: chrome started")
	return br, nil
}

// Fetch navigates to the URL in a fresh stealth tab, waits for the page
// load event, and returns the serialized DOM. The tab is closed afterwards
// so no cookies or storage carry over to the next target.
func (b *Browser) Fetch(ctx context.Context, url string) (*Result, error) {
	br, err := b.connect()
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: url, Err: err}
	}

	start := time.Now()

	page, err := stealth.Page(br)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: url, Err: fmt.Errorf("browser: create tab: %w", err)}
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return nil, &Error{Kind: classifyBrowser(navCtx, err), URL: url, Err: err}
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, &Error{Kind: classifyBrowser(navCtx, err), URL: url, Err: err}
	}
	body := []byte(res.Value.Str())

	if int64(len(body)) > b.cfg.MaxBytes {
		body = body[:b.cfg.MaxBytes]
	}
	if looksBlocked(body) {
		return nil, &Error{Kind: KindBlocked, URL: url}
	}

	return &Result{
		Body:       body,
		StatusCode: 200,
		Duration:   time.Since(start),
	}, nil
}

func classifyBrowser(ctx context.Context, err error) Kind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindNetwork
}

// Close shuts Chrome down. Safe to call when no fetch ever happened.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}
