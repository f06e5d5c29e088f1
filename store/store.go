// Package store implements the Postgres data access layer for the
// catalog. It issues the generic -> brand -> listing -> supplier join
// queries, scans the denormalized rows and hands them to the catalog
// reshape pipeline. Not-found and system errors are distinct: lookups
// return ErrNotFound for missing rows and a wrapped driver error for
// everything else.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pharmalink/pharmalink-api/catalog"
	"github.com/pharmalink/pharmalink-api/logging"
)

// ErrNotFound marks a lookup whose target row does not exist, as
// opposed to a query failure.
var ErrNotFound = errors.New("not found")

// DefaultCatalogLimit caps the joined row count of a catalog fetch.
const DefaultCatalogLimit = 2500

// CatalogOptions controls FetchCatalog and Search.
type CatalogOptions struct {
	SupplierOnly bool
	Limit        int
}

func (o CatalogOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultCatalogLimit
	}
	return o.Limit
}

// Store wraps the database handle for all catalog reads.
type Store struct {
	db *sql.DB
}

// New creates a store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping reports database reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// catalogColumns is the shared select list of the joined catalog
// queries. Scan order must match scanRow.
const catalogColumns = `
	g.id, g.name, g.category, g.description, g.indication,
	b.id, b.brand_name, b.manufacturer, b.strength, b.dosage_form, b.pack_size,
	b.verified, b.rating, b.image_url, b.bioequivalence, b.nafdac_number,
	b.product_type, b.date_added, b.country_of_origin,
	sp.id, sp.price, sp.stock, sp.location, sp.min_order, sp.bulk_discounts,
	s.id, s.name, s.verified`

const catalogJoins = `
	FROM generic_drugs g
	LEFT JOIN branded_products b ON b.generic_drug_id = g.id
	LEFT JOIN supplier_products sp ON sp.branded_product_id = b.id
	LEFT JOIN suppliers s ON s.id = sp.supplier_id`

// FetchCatalog loads the whole catalog in a single round trip and runs
// it through the reshape pipeline.
func (s *Store) FetchCatalog(ctx context.Context, opts CatalogOptions) ([]catalog.GenericDrug, catalog.ReshapeReport, error) {
	query := `SELECT` + catalogColumns + catalogJoins + `
	ORDER BY g.id, b.id, sp.id
	LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, opts.limit())
	if err != nil {
		return nil, catalog.ReshapeReport{}, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	raw, err := scanRows(rows)
	if err != nil {
		return nil, catalog.ReshapeReport{}, err
	}

	view, report := catalog.BuildView(raw, catalog.ViewOptions{SupplierOnly: opts.SupplierOnly})
	return view, report, nil
}

// FetchGenericDrugByID loads one drug with its brands and listings.
// Returns ErrNotFound when the drug does not exist or the reshape
// pipeline dropped it (a drug without brands is not listable).
func (s *Store) FetchGenericDrugByID(ctx context.Context, id string) (*catalog.GenericDrug, error) {
	query := `SELECT` + catalogColumns + catalogJoins + `
	WHERE g.id = $1
	ORDER BY b.id, sp.id`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("drug query failed: %w", err)
	}
	defer rows.Close()

	raw, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	view, _ := catalog.BuildView(raw, catalog.ViewOptions{})
	if len(view) == 0 {
		return nil, ErrNotFound
	}
	return &view[0], nil
}

// FetchBrandedProductDetails loads one branded product, its listings
// and its parent generic name. When the primary join leaves the
// generic name empty a secondary lookup compensates; if that also
// fails the name degrades to "N/A" rather than failing the request.
func (s *Store) FetchBrandedProductDetails(ctx context.Context, brandID string) (*catalog.BrandDetails, error) {
	query := `SELECT
		b.generic_drug_id, g.name,
		b.id, b.brand_name, b.manufacturer, b.strength, b.dosage_form, b.pack_size,
		b.verified, b.rating, b.image_url, b.bioequivalence, b.nafdac_number,
		b.product_type, b.date_added, b.country_of_origin,
		sp.id, sp.price, sp.stock, sp.location, sp.min_order, sp.bulk_discounts,
		s.id, s.name, s.verified
	FROM branded_products b
	LEFT JOIN generic_drugs g ON g.id = b.generic_drug_id
	LEFT JOIN supplier_products sp ON sp.branded_product_id = b.id
	LEFT JOIN suppliers s ON s.id = sp.supplier_id
	WHERE b.id = $1
	ORDER BY sp.id`

	rows, err := s.db.QueryContext(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("brand query failed: %w", err)
	}
	defer rows.Close()

	var details *catalog.BrandDetails
	genericID := ""
	for rows.Next() {
		var (
			gID, gName sql.NullString
			brand      brandScan
			listing    listingScan
		)
		dest := []any{&gID, &gName}
		dest = append(dest, brand.dest()...)
		dest = append(dest, listing.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("brand scan failed: %w", err)
		}

		if details == nil {
			b := brand.row()
			if b == nil {
				continue
			}
			genericID = gID.String
			details = &catalog.BrandDetails{
				BrandedProduct: brandProduct(gID.String, b),
				GenericName:    gName.String,
			}
		}
		if l := listing.row(); l != nil && l.Supplier != nil && l.Supplier.ID != "" {
			details.Suppliers = append(details.Suppliers, supplierListing(l))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("brand rows failed: %w", err)
	}
	if details == nil {
		return nil, ErrNotFound
	}

	if details.GenericName == "" {
		details.GenericName = s.lookupGenericName(ctx, genericID)
	}
	return details, nil
}

// lookupGenericName is the join-failure compensation for brand
// details. Total failure degrades to the pending sentinel.
func (s *Store) lookupGenericName(ctx context.Context, genericID string) string {
	if genericID == "" {
		return catalog.BioequivalencePending
	}
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM generic_drugs WHERE id = $1`, genericID).Scan(&name)
	if err != nil {
		logging.Warn("Generic name compensation lookup failed",
			"generic_drug_id", genericID, "error", err)
		return catalog.BioequivalencePending
	}
	return name
}

// brandProduct and supplierListing mirror the reshape pipeline's
// per-row constructors for the single-brand path.
func brandProduct(genericID string, b *catalog.BrandRow) catalog.BrandedProduct {
	return catalog.BrandedProduct{
		ID:                    b.ID,
		GenericDrugID:         genericID,
		BrandName:             b.BrandName,
		Manufacturer:          b.Manufacturer,
		Strength:              b.Strength,
		DosageForm:            b.DosageForm,
		PackSize:              b.PackSize,
		Verified:              b.Verified,
		Rating:                b.Rating,
		Image:                 b.Image,
		Bioequivalence:        b.Bioequivalence,
		BioequivalenceDisplay: catalog.FormatBioequivalence(b.Bioequivalence),
		NafdacNumber:          b.NafdacNumber,
		ProductType:           b.ProductType,
		DateAdded:             b.DateAdded,
		CountryOfOrigin:       b.CountryOfOrigin,
		Suppliers:             make([]catalog.SupplierListing, 0),
	}
}

func supplierListing(l *catalog.ListingRow) catalog.SupplierListing {
	return catalog.SupplierListing{
		ID:               l.ID,
		SupplierID:       l.Supplier.ID,
		SupplierName:     l.Supplier.Name,
		SupplierVerified: l.Supplier.Verified,
		Price:            l.Price,
		Stock:            l.Stock,
		Location:         l.Location,
		MinOrder:         l.MinOrder,
		BulkDiscounts:    l.BulkDiscounts,
	}
}
