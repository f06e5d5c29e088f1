// Package catalog defines the catalog view model and the reshape
// pipeline that turns flat joined database rows into the nested
// GenericDrug -> BrandedProduct -> SupplierListing structure served by
// the API. It also implements the in-memory filter predicates and the
// sort dispatch used for catalog browsing.
package catalog

import (
	"encoding/json"
	"time"
)

// GenericDrug represents one active-ingredient family together with
// every branded product registered under it. A GenericDrug with zero
// brands is never served; the reshape pipeline drops it.
type GenericDrug struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Indication  string           `json:"indication"`
	Brands      []BrandedProduct `json:"brandProducts"`
}

// BrandedProduct belongs to exactly one GenericDrug. Bioequivalence is
// a fraction in [0,1] when present; BioequivalenceDisplay carries the
// rounded percentage string, or "N/A" when the study is pending.
type BrandedProduct struct {
	ID                    string            `json:"id"`
	GenericDrugID         string            `json:"genericDrugId"`
	BrandName             string            `json:"brandName"`
	Manufacturer          string            `json:"manufacturer"`
	Strength              string            `json:"strength"`
	DosageForm            string            `json:"dosageForm"`
	PackSize              string            `json:"packSize"`
	Verified              bool              `json:"verified"`
	Rating                float64           `json:"rating"`
	Image                 string            `json:"image"`
	Bioequivalence        *float64          `json:"bioequivalence"`
	BioequivalenceDisplay string            `json:"bioequivalenceDisplay"`
	NafdacNumber          string            `json:"nafdacNumber"`
	ProductType           string            `json:"type"` // "prescription" or "otc"
	DateAdded             time.Time         `json:"dateAdded"`
	CountryOfOrigin       string            `json:"countryOfOrigin"`
	Suppliers             []SupplierListing `json:"suppliers"`
}

// SupplierListing is one supplier's offer of one branded product. The
// supplier name and verified flag are denormalized onto the listing so
// the view is self-contained.
type SupplierListing struct {
	ID               string          `json:"id"`
	SupplierID       string          `json:"supplierId"`
	SupplierName     string          `json:"supplierName"`
	SupplierVerified bool            `json:"supplierVerified"`
	Price            float64         `json:"price"`
	Stock            int             `json:"stock"`
	Location         string          `json:"location"`
	MinOrder         int             `json:"minOrder"`
	BulkDiscounts    json.RawMessage `json:"bulkDiscounts,omitempty"`
}

// BrandDetails is the single-brand projection served by /brand/{id}.
// GenericName falls back to "N/A" when the parent drug cannot be
// resolved at all.
type BrandDetails struct {
	BrandedProduct
	GenericName string `json:"genericName"`
}

// Row is one denormalized row of the generic -> brand -> listing ->
// supplier join. Brand, Listing and Supplier are nil when the
// corresponding LEFT JOIN produced no row.
type Row struct {
	Drug    DrugRow
	Brand   *BrandRow
	Listing *ListingRow
}

// DrugRow carries the generic-drug columns. An empty ID marks a
// malformed top-level row.
type DrugRow struct {
	ID          string
	Name        string
	Category    string
	Description string
	Indication  string
}

// BrandRow carries the branded-product columns of a joined row.
type BrandRow struct {
	ID              string
	BrandName       string
	Manufacturer    string
	Strength        string
	DosageForm      string
	PackSize        string
	Verified        bool
	Rating          float64
	Image           string
	Bioequivalence  *float64
	NafdacNumber    string
	ProductType     string
	DateAdded       time.Time
	CountryOfOrigin string
}

// ListingRow carries the supplier-product columns. Supplier is nil
// when the supplier join did not resolve; such listings are dropped.
type ListingRow struct {
	ID            string
	Supplier      *SupplierRow
	Price         float64
	Stock         int
	Location      string
	MinOrder      int
	BulkDiscounts json.RawMessage
}

// SupplierRow carries the joined supplier reference.
type SupplierRow struct {
	ID       string
	Name     string
	Verified bool
}
