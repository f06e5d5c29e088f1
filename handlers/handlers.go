// Package handlers provides the HTTP request handlers for the catalog
// API: snapshot browsing with filters and sorting, live full-database
// search, single-entity lookups, NAFDAC verification and health.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pharmalink/pharmalink-api/catalog"
	"github.com/pharmalink/pharmalink-api/data"
	"github.com/pharmalink/pharmalink-api/logging"
	"github.com/pharmalink/pharmalink-api/metrics"
	"github.com/pharmalink/pharmalink-api/store"
	"github.com/pharmalink/pharmalink-api/validation"
)

const pageSize = 10

// CatalogStore is the live-query dependency of the handlers. The
// snapshot container serves browsing; these methods hit Postgres.
type CatalogStore interface {
	FetchGenericDrugByID(ctx context.Context, id string) (*catalog.GenericDrug, error)
	FetchBrandedProductDetails(ctx context.Context, brandID string) (*catalog.BrandDetails, error)
	Search(ctx context.Context, term string, opts store.SearchOptions) ([]catalog.GenericDrug, catalog.ReshapeReport, error)
}

// RespondWithJSON writes a JSON response.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// snapshotView returns the snapshot, reduced to the supplier-only
// projection when requested.
func snapshotView(c *data.Container, r *http.Request) []catalog.GenericDrug {
	view := c.GetCatalog()
	if r.URL.Query().Get("supplier_only") == "true" {
		view = catalog.SupplierOnlyView(view)
	}
	return view
}

// ServeCatalog returns the full snapshot view.
func ServeCatalog(c *data.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := snapshotView(c, r)
		RespondWithJSON(w, http.StatusOK, map[string]any{
			"data":        view,
			"diagnostics": c.GetReport(),
		})
	}
}

// ServePagedCatalog returns one page of the snapshot view.
func ServePagedCatalog(c *data.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageNumber := chi.URLParam(r, "pageNumber")
		page, err := strconv.Atoi(pageNumber)
		if err != nil || page < 1 {
			logging.Warn("Unusual user input", "pageNumber", pageNumber)
			RespondWithError(w, http.StatusBadRequest, "Invalid page number")
			return
		}

		view := snapshotView(c, r)
		totalItems := len(view)
		maxPage := (totalItems + pageSize - 1) / pageSize

		// Bounding page first also keeps the offset arithmetic below
		// from overflowing on absurd page numbers.
		if page > maxPage {
			RespondWithError(w, http.StatusNotFound, "Page not found")
			return
		}

		start := (page - 1) * pageSize
		end := start + pageSize
		if end > totalItems {
			end = totalItems
		}
		RespondWithJSON(w, http.StatusOK, map[string]any{
			"data":       view[start:end],
			"page":       page,
			"pageSize":   pageSize,
			"totalItems": totalItems,
			"maxPage":    maxPage,
		})
	}
}

// filterFromQuery builds the browse filter from query parameters.
func filterFromQuery(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	return catalog.Filter{
		Term:        q.Get("term"),
		Category:    q.Get("category"),
		Verified:    q.Get("verified"),
		BioBucket:   q.Get("bioequivalence"),
		ProductType: q.Get("type"),
	}
}

// FilterCatalog filters and sorts the snapshot view in memory.
func FilterCatalog(c *data.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := filterFromQuery(r)
		if err := validation.ValidateSearchTerm(filter.Term); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		view := snapshotView(c, r)
		view = filter.Apply(view)
		catalog.SortView(view, r.URL.Query().Get("sort"))

		RespondWithJSON(w, http.StatusOK, map[string]any{
			"data":       view,
			"totalItems": len(view),
		})
	}
}

// FindGenericDrug looks one drug up live. Missing drugs are 404;
// query failures are 503 — the two are distinct on purpose.
func FindGenericDrug(s CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := validation.ValidateEntityID(id); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		drug, err := s.FetchGenericDrugByID(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Generic drug not found")
			return
		}
		if err != nil {
			logging.Error("Generic drug lookup failed", "id", id, "error", err)
			RespondWithError(w, http.StatusServiceUnavailable, "Catalog temporarily unavailable")
			return
		}

		RespondWithJSON(w, http.StatusOK, drug)
	}
}

// FindBrandDetails looks one branded product up live.
func FindBrandDetails(s CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := validation.ValidateEntityID(id); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		details, err := s.FetchBrandedProductDetails(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Branded product not found")
			return
		}
		if err != nil {
			logging.Error("Brand lookup failed", "id", id, "error", err)
			RespondWithError(w, http.StatusServiceUnavailable, "Catalog temporarily unavailable")
			return
		}

		RespondWithJSON(w, http.StatusOK, details)
	}
}

// SearchCatalog runs the full-database search and returns a result
// set separate from the browse snapshot. Request cancellation
// propagates into the queries, so a superseded search stops instead
// of overwriting anything.
func SearchCatalog(s CatalogStore, limit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		term := q.Get("term")
		if err := validation.ValidateSearchTerm(term); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		opts := store.SearchOptions{
			CatalogOptions: store.CatalogOptions{
				SupplierOnly: q.Get("supplier_only") == "true",
				Limit:        limit,
			},
			VerifiedOnly: q.Get("verified_only") == "true",
		}
		if categories := q.Get("categories"); categories != "" {
			opts.Categories = strings.Split(categories, ",")
		}

		metrics.CatalogSearches.Inc()

		view, report, err := s.Search(r.Context(), term, opts)
		if err != nil {
			logging.Error("Catalog search failed", "term", term, "error", err)
			RespondWithError(w, http.StatusServiceUnavailable, "Search temporarily unavailable")
			return
		}

		catalog.SortView(view, q.Get("sort"))

		RespondWithJSON(w, http.StatusOK, map[string]any{
			"data":        view,
			"totalItems":  len(view),
			"diagnostics": report,
		})
	}
}
