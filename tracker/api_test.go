package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAPI(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	svc := newTestService(t, nil)
	srv := httptest.NewServer(svc.Router())
	t.Cleanup(srv.Close)
	return svc, srv
}

func getJSON(t *testing.T, url string, wantCode int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, wantCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("GET %s: decode: %v", url, err)
		}
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// WHAT: the full HTTP lifecycle: register a target, trigger a run, read
// products and stats back.
func TestAPI_ScrapeAndQuery(t *testing.T) {
	retailer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, productPage("RTX 4070", 549.99, "In Stock"))
	}))
	defer retailer.Close()

	_, api := newTestAPI(t)

	getJSON(t, api.URL+"/health", 200, nil)

	resp := postJSON(t, api.URL+"/api/targets", map[string]string{
		"url":      retailer.URL + "/gpu",
		"source":   "newegg",
		"category": "gpu",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("add target: status %d", resp.StatusCode)
	}

	resp = postJSON(t, api.URL+"/api/scrape/run", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("trigger run: status %d", resp.StatusCode)
	}
	var report RunReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("report = %+v", report)
	}

	var products []*Product
	getJSON(t, api.URL+"/api/products?category=gpu", 200, &products)
	if len(products) != 1 || products[0].CurrentPrice != 549.99 {
		t.Fatalf("products = %+v", products)
	}

	var hist []*Snapshot
	getJSON(t, api.URL+"/api/products/"+products[0].ID+"/history?days=7", 200, &hist)
	if len(hist) != 1 {
		t.Errorf("history = %+v", hist)
	}

	var stats Stats
	getJSON(t, api.URL+"/api/stats", 200, &stats)
	if stats.TotalProducts != 1 {
		t.Errorf("stats = %+v", stats)
	}

	var cats []string
	getJSON(t, api.URL+"/api/products/categories", 200, &cats)
	if len(cats) != 1 || cats[0] != "gpu" {
		t.Errorf("categories = %v", cats)
	}
}

// WHAT: error mapping on the write endpoints.
// WHY: validation failures are 400, duplicates 409, unknown IDs 404.
func TestAPI_ErrorStatuses(t *testing.T) {
	_, api := newTestAPI(t)

	resp := postJSON(t, api.URL+"/api/targets", map[string]string{"url": "ftp://bad"})
	if resp.StatusCode != 400 {
		t.Errorf("invalid target: status %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, api.URL+"/api/targets", map[string]string{"url": "https://shop.example.com/x"})
	if resp.StatusCode != 400 {
		t.Errorf("no rule set: status %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, api.URL+"/api/sources", map[string]string{"name": "Newegg"})
	if resp.StatusCode != 201 {
		t.Fatalf("add source: status %d", resp.StatusCode)
	}
	resp = postJSON(t, api.URL+"/api/sources", map[string]string{"name": "newegg"})
	if resp.StatusCode != 409 {
		t.Errorf("duplicate source: status %d, want 409", resp.StatusCode)
	}

	getJSON(t, api.URL+"/api/products/nope", 404, nil)

	resp = postJSON(t, api.URL+"/api/targets/nope/reactivate", nil)
	if resp.StatusCode != 404 {
		t.Errorf("reactivate unknown: status %d, want 404", resp.StatusCode)
	}
}

// WHAT: re-registering an existing URL answers 200 "exists", not an error.
func TestAPI_DuplicateTargetIsNoop(t *testing.T) {
	_, api := newTestAPI(t)

	body := map[string]string{"url": "https://www.newegg.com/p/1"}
	if resp := postJSON(t, api.URL+"/api/targets", body); resp.StatusCode != 201 {
		t.Fatalf("first add: status %d", resp.StatusCode)
	}
	resp := postJSON(t, api.URL+"/api/targets", body)
	if resp.StatusCode != 200 {
		t.Fatalf("second add: status %d, want 200", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "exists" {
		t.Errorf("body = %v", out)
	}
}

// WHAT: bulk import over HTTP with mixed valid and invalid entries.
func TestAPI_BulkTargets(t *testing.T) {
	_, api := newTestAPI(t)

	resp := postJSON(t, api.URL+"/api/targets/bulk", map[string]any{
		"targets": []map[string]string{
			{"url": "https://www.newegg.com/p/1"},
			{"url": "https://www.amazon.com/dp/2"},
			{"url": "https://www.newegg.com/p/1"},
			{"url": "https://shop.example.com/x"},
		},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("bulk: status %d", resp.StatusCode)
	}
	var out map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["added"] != 2 || out["skipped"] != 2 {
		t.Errorf("bulk result = %v", out)
	}

	var targets []*Target
	getJSON(t, api.URL+"/api/targets", 200, &targets)
	if len(targets) != 2 {
		t.Errorf("got %d targets, want 2", len(targets))
	}
}

// WHAT: the toggle endpoint flips the active flag both ways.
func TestAPI_ToggleTarget(t *testing.T) {
	svc, api := newTestAPI(t)

	resp := postJSON(t, api.URL+"/api/targets", map[string]string{"url": "https://www.newegg.com/p/1"})
	if resp.StatusCode != 201 {
		t.Fatalf("add target: status %d", resp.StatusCode)
	}
	var tgt Target
	if err := json.NewDecoder(resp.Body).Decode(&tgt); err != nil {
		t.Fatal(err)
	}

	resp = postJSON(t, api.URL+"/api/targets/"+tgt.ID+"/toggle", nil)
	var out map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["active"] {
		t.Error("first toggle should deactivate")
	}

	resp = postJSON(t, api.URL+"/api/targets/"+tgt.ID+"/toggle", nil)
	out = nil
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out["active"] {
		t.Error("second toggle should reactivate")
	}

	targets, _ := svc.Targets(t.Context())
	if len(targets) != 1 || !targets[0].Active {
		t.Errorf("targets = %+v", targets)
	}
}
