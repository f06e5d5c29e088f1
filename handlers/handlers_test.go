package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pharmalink/pharmalink-api/catalog"
	"github.com/pharmalink/pharmalink-api/data"
	"github.com/pharmalink/pharmalink-api/store"
)

// fakeStore satisfies CatalogStore without a database.
type fakeStore struct {
	drugs      map[string]*catalog.GenericDrug
	brands     map[string]*catalog.BrandDetails
	searchView []catalog.GenericDrug
	searchErr  error
	lastTerm   string
	lastOpts   store.SearchOptions
}

func (f *fakeStore) FetchGenericDrugByID(_ context.Context, id string) (*catalog.GenericDrug, error) {
	if d, ok := f.drugs[id]; ok {
		return d, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FetchBrandedProductDetails(_ context.Context, id string) (*catalog.BrandDetails, error) {
	if b, ok := f.brands[id]; ok {
		return b, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) Search(_ context.Context, term string, opts store.SearchOptions) ([]catalog.GenericDrug, catalog.ReshapeReport, error) {
	f.lastTerm = term
	f.lastOpts = opts
	if f.searchErr != nil {
		return nil, catalog.ReshapeReport{}, f.searchErr
	}
	return f.searchView, catalog.ReshapeReport{}, nil
}

func snapshotDrugs(n int) []catalog.GenericDrug {
	drugs := make([]catalog.GenericDrug, n)
	for i := range drugs {
		drugs[i] = catalog.GenericDrug{
			ID:   fmt.Sprintf("d%d", i+1),
			Name: fmt.Sprintf("Drug %02d", i+1),
			Brands: []catalog.BrandedProduct{
				{ID: fmt.Sprintf("b%d", i+1), BrandName: fmt.Sprintf("Brand %02d", i+1)},
			},
		}
	}
	return drugs
}

func newContainer(n int) *data.Container {
	c := data.NewContainer()
	c.Update(snapshotDrugs(n), catalog.ReshapeReport{RowsSeen: n})
	return c
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestServeCatalog(t *testing.T) {
	handler := ServeCatalog(newContainer(3))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeBody(t, rec)
	if len(body["data"].([]any)) != 3 {
		t.Errorf("expected 3 drugs, got %v", body["data"])
	}
	if body["diagnostics"] == nil {
		t.Error("diagnostics missing from response")
	}
}

func TestServeCatalogSupplierOnly(t *testing.T) {
	c := data.NewContainer()
	drugs := snapshotDrugs(2)
	drugs[0].Brands[0].Suppliers = []catalog.SupplierListing{{ID: "l1", Price: 100}}
	c.Update(drugs, catalog.ReshapeReport{})

	rec := httptest.NewRecorder()
	ServeCatalog(c)(rec, httptest.NewRequest(http.MethodGet, "/catalog?supplier_only=true", nil))

	body := decodeBody(t, rec)
	if got := len(body["data"].([]any)); got != 1 {
		t.Errorf("expected 1 supplied drug, got %d", got)
	}
}

func TestServePagedCatalog(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/catalog/{pageNumber}", ServePagedCatalog(newContainer(25)))

	tests := []struct {
		name       string
		page       string
		wantStatus int
		wantItems  int
	}{
		{"first page full", "1", http.StatusOK, 10},
		{"middle page full", "2", http.StatusOK, 10},
		{"last page partial", "3", http.StatusOK, 5},
		{"past the end", "4", http.StatusNotFound, 0},
		{"absurdly large page", "9223372036854775807", http.StatusNotFound, 0},
		{"zero page", "0", http.StatusBadRequest, 0},
		{"negative page", "-1", http.StatusBadRequest, 0},
		{"not a number", "abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/"+tt.page, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := decodeBody(t, rec)
			if got := len(body["data"].([]any)); got != tt.wantItems {
				t.Errorf("items = %d, want %d", got, tt.wantItems)
			}
			if body["totalItems"].(float64) != 25 || body["maxPage"].(float64) != 3 {
				t.Errorf("unexpected envelope: %v", body)
			}
		})
	}
}

func TestFilterCatalog(t *testing.T) {
	c := data.NewContainer()
	c.Update([]catalog.GenericDrug{
		{ID: "d1", Name: "Amoxicillin", Category: "Antibiotics",
			Brands: []catalog.BrandedProduct{{ID: "b1", BrandName: "Amoxil", Verified: true}}},
		{ID: "d2", Name: "Paracetamol", Category: "Analgesics",
			Brands: []catalog.BrandedProduct{{ID: "b2", BrandName: "Panadol"}}},
	}, catalog.ReshapeReport{})
	handler := FilterCatalog(c)

	tests := []struct {
		name      string
		query     string
		wantNames []string
	}{
		{"no filter keeps all", "", []string{"Amoxicillin", "Paracetamol"}},
		{"term", "?term=amox", []string{"Amoxicillin"}},
		{"category", "?category=Analgesics", []string{"Paracetamol"}},
		{"verified some", "?verified=some", []string{"Amoxicillin"}},
		{"sorted alphabetically", "?sort=alphabetical", []string{"Amoxicillin", "Paracetamol"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/catalog/filter"+tt.query, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decodeBody(t, rec)
			items := body["data"].([]any)
			if len(items) != len(tt.wantNames) {
				t.Fatalf("got %d items, want %d", len(items), len(tt.wantNames))
			}
			for i, item := range items {
				name := item.(map[string]any)["name"].(string)
				if name != tt.wantNames[i] {
					t.Errorf("item %d = %q, want %q", i, name, tt.wantNames[i])
				}
			}
		})
	}
}

func TestFilterCatalogRejectsDangerousTerm(t *testing.T) {
	rec := httptest.NewRecorder()
	FilterCatalog(newContainer(1))(rec,
		httptest.NewRequest(http.MethodGet, "/catalog/filter?term=%3Cscript%3E", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

const validUUID = "3b241101-e2bb-4255-8caf-4136c566a962"

func TestFindGenericDrug(t *testing.T) {
	fs := &fakeStore{drugs: map[string]*catalog.GenericDrug{
		validUUID: {ID: validUUID, Name: "Amoxicillin"},
	}}
	router := chi.NewRouter()
	router.Get("/drug/{id}", FindGenericDrug(fs))

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"found", validUUID, http.StatusOK},
		{"missing", "3b241101-e2bb-4255-8caf-000000000000", http.StatusNotFound},
		{"invalid id", "42", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drug/"+tt.id, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

type failingStore struct{ *fakeStore }

func (failingStore) FetchGenericDrugByID(context.Context, string) (*catalog.GenericDrug, error) {
	return nil, errors.New("connection refused")
}

func TestFindGenericDrugSystemError(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/drug/{id}", FindGenericDrug(failingStore{&fakeStore{}}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drug/"+validUUID, nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("system failures must be 503, got %d", rec.Code)
	}
}

func TestFindBrandDetails(t *testing.T) {
	fs := &fakeStore{brands: map[string]*catalog.BrandDetails{
		validUUID: {
			BrandedProduct: catalog.BrandedProduct{ID: validUUID, BrandName: "Amoxil"},
			GenericName:    "Amoxicillin",
		},
	}}
	router := chi.NewRouter()
	router.Get("/brand/{id}", FindBrandDetails(fs))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brand/"+validUUID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["genericName"] != "Amoxicillin" {
		t.Errorf("genericName = %v", body["genericName"])
	}
}

func TestSearchCatalog(t *testing.T) {
	fs := &fakeStore{searchView: snapshotDrugs(2)}
	handler := SearchCatalog(fs, 500)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet,
		"/search?term=amox&categories=Antibiotics,Analgesics&verified_only=true&supplier_only=true", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if fs.lastTerm != "amox" {
		t.Errorf("term = %q", fs.lastTerm)
	}
	if len(fs.lastOpts.Categories) != 2 || fs.lastOpts.Categories[0] != "Antibiotics" {
		t.Errorf("categories = %v", fs.lastOpts.Categories)
	}
	if !fs.lastOpts.VerifiedOnly || !fs.lastOpts.SupplierOnly {
		t.Errorf("boolean options not forwarded: %+v", fs.lastOpts)
	}
	if fs.lastOpts.Limit != 500 {
		t.Errorf("limit = %d", fs.lastOpts.Limit)
	}
	body := decodeBody(t, rec)
	if body["totalItems"].(float64) != 2 {
		t.Errorf("totalItems = %v", body["totalItems"])
	}
}

func TestSearchCatalogRejectsDangerousTerm(t *testing.T) {
	rec := httptest.NewRecorder()
	SearchCatalog(&fakeStore{}, 500)(rec,
		httptest.NewRequest(http.MethodGet, "/search?term=1%20union%20select%20x", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchCatalogUnavailable(t *testing.T) {
	fs := &fakeStore{searchErr: errors.New("connection refused")}

	rec := httptest.NewRecorder()
	SearchCatalog(fs, 500)(rec, httptest.NewRequest(http.MethodGet, "/search?term=amox", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
