package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pharmalink/pharmalink-api/catalog"
)

// FetchBrandByNafdac resolves a NAFDAC registration number to its
// branded product and parent generic name. Returns ErrNotFound when no
// product carries the code.
func (s *Store) FetchBrandByNafdac(ctx context.Context, code string) (*catalog.BrandDetails, error) {
	query := `SELECT
		b.generic_drug_id, g.name,
		b.id, b.brand_name, b.manufacturer, b.strength, b.dosage_form, b.pack_size,
		b.verified, b.rating, b.image_url, b.bioequivalence, b.nafdac_number,
		b.product_type, b.date_added, b.country_of_origin
	FROM branded_products b
	LEFT JOIN generic_drugs g ON g.id = b.generic_drug_id
	WHERE UPPER(b.nafdac_number) = UPPER($1)
	LIMIT 1`

	var (
		gID, gName sql.NullString
		brand      brandScan
	)
	dest := []any{&gID, &gName}
	dest = append(dest, brand.dest()...)

	err := s.db.QueryRowContext(ctx, query, code).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("nafdac lookup failed: %w", err)
	}

	b := brand.row()
	if b == nil {
		return nil, ErrNotFound
	}
	details := &catalog.BrandDetails{
		BrandedProduct: brandProduct(gID.String, b),
		GenericName:    gName.String,
	}
	if details.GenericName == "" {
		details.GenericName = s.lookupGenericName(ctx, gID.String)
	}
	return details, nil
}
