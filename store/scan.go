package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pharmalink/pharmalink-api/catalog"
)

// brandScan receives the nullable branded-product columns of a joined
// row. Every field is nullable because the brand side of the join may
// be absent entirely.
type brandScan struct {
	id             sql.NullString
	brandName      sql.NullString
	manufacturer   sql.NullString
	strength       sql.NullString
	dosageForm     sql.NullString
	packSize       sql.NullString
	verified       sql.NullBool
	rating         sql.NullFloat64
	image          sql.NullString
	bioequivalence sql.NullFloat64
	nafdacNumber   sql.NullString
	productType    sql.NullString
	dateAdded      sql.NullTime
	country        sql.NullString
}

func (b *brandScan) dest() []any {
	return []any{
		&b.id, &b.brandName, &b.manufacturer, &b.strength, &b.dosageForm,
		&b.packSize, &b.verified, &b.rating, &b.image, &b.bioequivalence,
		&b.nafdacNumber, &b.productType, &b.dateAdded, &b.country,
	}
}

func (b *brandScan) row() *catalog.BrandRow {
	if !b.id.Valid || b.id.String == "" {
		return nil
	}
	row := &catalog.BrandRow{
		ID:              b.id.String,
		BrandName:       b.brandName.String,
		Manufacturer:    b.manufacturer.String,
		Strength:        b.strength.String,
		DosageForm:      b.dosageForm.String,
		PackSize:        b.packSize.String,
		Verified:        b.verified.Bool,
		Rating:          b.rating.Float64,
		Image:           b.image.String,
		NafdacNumber:    b.nafdacNumber.String,
		ProductType:     b.productType.String,
		CountryOfOrigin: b.country.String,
	}
	if b.bioequivalence.Valid {
		v := b.bioequivalence.Float64
		row.Bioequivalence = &v
	}
	if b.dateAdded.Valid {
		row.DateAdded = b.dateAdded.Time
	}
	return row
}

// listingScan receives the nullable supplier-product and supplier
// columns of a joined row.
type listingScan struct {
	id            sql.NullString
	price         sql.NullFloat64
	stock         sql.NullInt64
	location      sql.NullString
	minOrder      sql.NullInt64
	bulkDiscounts []byte
	supplierID    sql.NullString
	supplierName  sql.NullString
	supplierOK    sql.NullBool
}

func (l *listingScan) dest() []any {
	return []any{
		&l.id, &l.price, &l.stock, &l.location, &l.minOrder, &l.bulkDiscounts,
		&l.supplierID, &l.supplierName, &l.supplierOK,
	}
}

func (l *listingScan) row() *catalog.ListingRow {
	if !l.id.Valid || l.id.String == "" {
		return nil
	}
	row := &catalog.ListingRow{
		ID:       l.id.String,
		Price:    l.price.Float64,
		Stock:    int(l.stock.Int64),
		Location: l.location.String,
		MinOrder: int(l.minOrder.Int64),
	}
	if len(l.bulkDiscounts) > 0 {
		row.BulkDiscounts = json.RawMessage(l.bulkDiscounts)
	}
	if l.supplierID.Valid {
		row.Supplier = &catalog.SupplierRow{
			ID:       l.supplierID.String,
			Name:     l.supplierName.String,
			Verified: l.supplierOK.Bool,
		}
	}
	return row
}

// scanRows drains a joined catalog result set into reshape input rows.
// A scan failure on an individual row aborts the fetch; partial-row
// tolerance lives in the reshape pipeline, not here.
func scanRows(rows *sql.Rows) ([]catalog.Row, error) {
	out := make([]catalog.Row, 0)
	for rows.Next() {
		var (
			drugID, drugName, drugCategory, drugDescription, drugIndication sql.NullString

			brand   brandScan
			listing listingScan
		)
		dest := []any{&drugID, &drugName, &drugCategory, &drugDescription, &drugIndication}
		dest = append(dest, brand.dest()...)
		dest = append(dest, listing.dest()...)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("catalog scan failed: %w", err)
		}

		out = append(out, catalog.Row{
			Drug: catalog.DrugRow{
				ID:          drugID.String,
				Name:        drugName.String,
				Category:    drugCategory.String,
				Description: drugDescription.String,
				Indication:  drugIndication.String,
			},
			Brand:   brand.row(),
			Listing: listing.row(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog rows failed: %w", err)
	}
	return out, nil
}
