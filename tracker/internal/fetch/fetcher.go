// Package fetch implements page acquisition for the daily scrape run.
//
// The default path is a single plain HTTP GET per product page. Failures are
// typed so the orchestrator can count and log them without inspecting error
// strings. Retry policy deliberately lives in the orchestrator, not here.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Kind classifies a fetch failure.
type Kind int

const (
	KindNetwork    Kind = iota // connection refused, DNS, reset
	KindTimeout                // deadline exceeded
	KindHTTPStatus             // non-2xx response
	KindBlocked                // bot detection: 403, 429, or a CAPTCHA marker
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindBlocked:
		return "blocked"
	}
	return "unknown"
}

// Error is a typed fetch failure.
type Error struct {
	Kind       Kind
	StatusCode int // set for KindHTTPStatus and status-based KindBlocked
	URL        string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (http %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError returns err as a *fetch.Error, or nil.
func AsError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

// Result is a successfully fetched page.
type Result struct {
	Body       []byte
	StatusCode int
	Duration   time.Duration
}

// PageFetcher acquires one product page. Implemented by Fetcher (plain HTTP)
// and Browser (rendered fetch for JS-heavy shops).
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

// Config configures page acquisition.
type Config struct {
	// Timeout per request. Default: 30s.
	Timeout time.Duration
	// MaxBytes caps the response body. Default: 10MB.
	MaxBytes int64
	// UserAgent is the identity string sent with every request.
	UserAgent string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
}

// Fetcher is the HTTP acquisition path.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher. The client carries no cookie jar: every fetch is
// stateless so no session state leaks between targets.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		config: cfg,
	}
}

// captchaMarkers are body substrings that signal bot detection on a 200.
var captchaMarkers = [][]byte{
	[]byte("captcha"),
	[]byte("cf-challenge"),
	[]byte("are you a robot"),
	[]byte("enable javascript and cookies to continue"),
}

// Fetch GETs a URL. A non-2xx status, timeout, connection error, or
// bot-detection response comes back as a *Error; the orchestrator decides
// what to do with it. No retries happen here.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindBlocked, StatusCode: resp.StatusCode, URL: url}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &Error{Kind: KindHTTPStatus, StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: url, Err: err}
	}

	if looksBlocked(body) {
		return nil, &Error{Kind: KindBlocked, StatusCode: resp.StatusCode, URL: url}
	}

	return &Result{
		Body:       body,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}, nil
}

func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var nerr interface{ Timeout() bool }
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

// looksBlocked checks only the head of the body: CAPTCHA interstitials are
// small pages and real product pages routinely mention "captcha" in footers.
func looksBlocked(body []byte) bool {
	head := body
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.ToLower(head)
	for _, marker := range captchaMarkers {
		if bytes.Contains(head, marker) {
			return true
		}
	}
	return false
}
