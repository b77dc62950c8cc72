package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch_Success(t *testing.T) {
	// WHAT: Basic HTTP GET returns the body with the configured UA.
	// WHY: Core fetcher functionality.
	body := "<html><h1>RTX 5080</h1></html>"
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "partwatch-test/1.0"})
	result, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.StatusCode != 200 {
		t.Errorf("status: got %d", result.StatusCode)
	}
	if string(result.Body) != body {
		t.Errorf("body: got %q", string(result.Body))
	}
	if gotUA != "partwatch-test/1.0" {
		t.Errorf("user-agent: got %q", gotUA)
	}
}

func TestFetch_HTTPStatus(t *testing.T) {
	// WHAT: A 404 becomes a typed KindHTTPStatus failure with the code.
	// WHY: The orchestrator logs the code without string matching.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(Config{})
	_, err := f.Fetch(context.Background(), srv.URL)
	fe := AsError(err)
	if fe == nil {
		t.Fatalf("want *fetch.Error, got %v", err)
	}
	if fe.Kind != KindHTTPStatus || fe.StatusCode != 404 {
		t.Errorf("got kind=%s code=%d", fe.Kind, fe.StatusCode)
	}
}

func TestFetch_BlockedStatus(t *testing.T) {
	// WHAT: 403 and 429 are classified as KindBlocked.
	// WHY: Blocked targets are a pacing signal, not a page problem.
	for _, code := range []int{403, 429} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		f := New(Config{})
		_, err := f.Fetch(context.Background(), srv.URL)
		srv.Close()

		fe := AsError(err)
		if fe == nil || fe.Kind != KindBlocked || fe.StatusCode != code {
			t.Errorf("code %d: got %v", code, err)
		}
	}
}

func TestFetch_BlockedByCaptchaMarker(t *testing.T) {
	// WHAT: A 200 whose body head carries a CAPTCHA marker is KindBlocked.
	// WHY: Bot walls often answer 200 with an interstitial.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><title>Verify</title><div>Please solve this CAPTCHA to continue</div></html>"))
	}))
	defer srv.Close()

	f := New(Config{})
	_, err := f.Fetch(context.Background(), srv.URL)
	fe := AsError(err)
	if fe == nil || fe.Kind != KindBlocked {
		t.Fatalf("got %v", err)
	}
}

func TestFetch_MarkerDeepInBodyIsNotBlocked(t *testing.T) {
	// WHAT: The marker scan only covers the head of the body.
	// WHY: Real product pages mention "captcha" in footers and scripts.
	page := "<html>" + strings.Repeat("<p>spec row</p>", 500) + "captcha</html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	f := New(Config{})
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	// WHAT: A slow server produces KindTimeout.
	// WHY: Timeouts and connection errors are distinct failure kinds.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	fe := AsError(err)
	if fe == nil || fe.Kind != KindTimeout {
		t.Fatalf("got %v", err)
	}
}

func TestFetch_NetworkError(t *testing.T) {
	// WHAT: An unreachable host produces KindNetwork.
	// WHY: DNS and connection failures must not masquerade as timeouts.
	f := New(Config{Timeout: 2 * time.Second})
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")
	fe := AsError(err)
	if fe == nil || fe.Kind != KindNetwork {
		t.Fatalf("got %v", err)
	}
}

func TestFetch_BodyCap(t *testing.T) {
	// WHAT: Bodies are truncated at MaxBytes.
	// WHY: Runaway downloads must not exhaust memory.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 10_000)))
	}))
	defer srv.Close()

	f := New(Config{MaxBytes: 1024})
	result, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Body) != 1024 {
		t.Errorf("body length: got %d, want 1024", len(result.Body))
	}
}

func TestAsError(t *testing.T) {
	wrapped := &Error{Kind: KindTimeout, URL: "https://x"}
	if AsError(wrapped) == nil {
		t.Error("direct error not recognized")
	}
	if AsError(errors.New("plain")) != nil {
		t.Error("plain error misclassified")
	}
}
