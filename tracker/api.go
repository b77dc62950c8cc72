package tracker

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/partwatch/safeurl"
)

// Router returns the service's HTTP API.
func (svc *Service) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				f := ProductFilter{
					Day:      q.Get("date"),
					Category: q.Get("category"),
					Source:   q.Get("source"),
					Brand:    q.Get("brand"),
					Search:   q.Get("q"),
				}
				if v, ok := queryFloat(r, "min_price"); ok {
					f.MinPrice = &v
				}
				if v, ok := queryFloat(r, "max_price"); ok {
					f.MaxPrice = &v
				}
				products, err := svc.Products(r.Context(), f)
				if err != nil {
					writeError(w, 500, err)
					return
				}
				if products == nil {
					products = []*Product{}
				}
				writeJSON(w, 200, products)
			})

			r.Get("/categories", func(w http.ResponseWriter, r *http.Request) {
				cats, err := svc.Categories(r.Context())
				writeStrings(w, cats, err)
			})
			r.Get("/brands", func(w http.ResponseWriter, r *http.Request) {
				brands, err := svc.Brands(r.Context())
				writeStrings(w, brands, err)
			})

			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				p, err := svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					writeServiceError(w, err)
					return
				}
				writeJSON(w, 200, p)
			})

			r.Get("/{id}/history", func(w http.ResponseWriter, r *http.Request) {
				days := queryInt(r, "days", 30)
				hist, err := svc.ProductHistory(r.Context(), chi.URLParam(r, "id"), days)
				if err != nil {
					writeServiceError(w, err)
					return
				}
				if hist == nil {
					hist = []*Snapshot{}
				}
				writeJSON(w, 200, hist)
			})
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				stats, err := svc.Stats(r.Context(), r.URL.Query().Get("date"))
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, stats)
			})
			r.Get("/top-deals", func(w http.ResponseWriter, r *http.Request) {
				deals, err := svc.TopDeals(r.Context(), r.URL.Query().Get("date"), queryInt(r, "limit", 10))
				if err != nil {
					writeError(w, 500, err)
					return
				}
				if deals == nil {
					deals = []*Deal{}
				}
				writeJSON(w, 200, deals)
			})
			r.Get("/by-category", func(w http.ResponseWriter, r *http.Request) {
				cats, err := svc.StatsByCategory(r.Context(), r.URL.Query().Get("date"))
				if err != nil {
					writeError(w, 500, err)
					return
				}
				if cats == nil {
					cats = []*CategoryStats{}
				}
				writeJSON(w, 200, cats)
			})
		})

		r.Route("/targets", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				targets, err := svc.Targets(r.Context())
				if err != nil {
					writeError(w, 500, err)
					return
				}
				if targets == nil {
					targets = []*Target{}
				}
				writeJSON(w, 200, targets)
			})

			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var t Target
				if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
					writeError(w, 400, err)
					return
				}
				added, err := svc.AddTarget(r.Context(), &t)
				if err != nil {
					writeServiceError(w, err)
					return
				}
				if !added {
					writeJSON(w, 200, map[string]string{"status": "exists", "url": t.URL})
					return
				}
				writeJSON(w, 201, t)
			})

			r.Post("/bulk", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Targets []*Target `json:"targets"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				added, skipped, err := svc.BulkAddTargets(r.Context(), req.Targets)
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]int{"added": added, "skipped": skipped})
			})

			r.Post("/{id}/reactivate", func(w http.ResponseWriter, r *http.Request) {
				if err := svc.ReactivateTarget(r.Context(), chi.URLParam(r, "id")); err != nil {
					writeServiceError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "reactivated"})
			})

			r.Post("/{id}/toggle", func(w http.ResponseWriter, r *http.Request) {
				active, err := svc.ToggleTarget(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					writeServiceError(w, err)
					return
				}
				writeJSON(w, 200, map[string]any{"active": active})
			})

			r.Get("/{id}/log", func(w http.ResponseWriter, r *http.Request) {
				entries, err := svc.FetchHistory(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 50))
				if err != nil {
					writeError(w, 500, err)
					return
				}
				if entries == nil {
					entries = []*FetchLogEntry{}
				}
				writeJSON(w, 200, entries)
			})
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				sources, err := svc.Sources(r.Context())
				if err != nil {
					writeError(w, 500, err)
					return
				}
				if sources == nil {
					sources = []*Source{}
				}
				writeJSON(w, 200, sources)
			})
			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var s Source
				if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
					writeError(w, 400, err)
					return
				}
				if err := svc.AddSource(r.Context(), &s); err != nil {
					writeServiceError(w, err)
					return
				}
				writeJSON(w, 201, s)
			})
		})

		// Manual trigger. Runs synchronously; the scheduled run shares the
		// same single-flight guard.
		r.Post("/scrape/run", func(w http.ResponseWriter, r *http.Request) {
			report, err := svc.RunDailyScrape(r.Context())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 200, report)
		})
	})

	return r
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, 404, err)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoRuleSet),
		errors.Is(err, safeurl.ErrSSRF), errors.Is(err, safeurl.ErrUnsafeScheme):
		writeError(w, 400, err)
	case errors.Is(err, ErrDuplicateSource):
		writeError(w, 409, err)
	case errors.Is(err, ErrRunInProgress):
		writeError(w, 409, err)
	default:
		writeError(w, 500, err)
	}
}

func writeStrings(w http.ResponseWriter, values []string, err error) {
	if err != nil {
		writeError(w, 500, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeJSON(w, 200, values)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
