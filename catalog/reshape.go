package catalog

import (
	"fmt"
	"math"
	"sort"

	"github.com/pharmalink/pharmalink-api/logging"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// BioequivalencePending is the display sentinel for brands whose
// bioequivalence study has no recorded result.
const BioequivalencePending = "N/A"

// ViewOptions controls the reshape pipeline output.
type ViewOptions struct {
	// SupplierOnly drops drugs none of whose brands kept at least one
	// supplier listing, and switches the relevance ordering to
	// supplier-count metrics.
	SupplierOnly bool
}

// ReshapeReport counts the rows the pipeline discarded, so callers can
// assert on data completeness instead of grepping logs.
type ReshapeReport struct {
	RowsSeen        int `json:"rows_seen"`
	MalformedRows   int `json:"malformed_rows"`
	DroppedListings int `json:"dropped_listings"`
	DroppedDrugs    int `json:"dropped_drugs"`
}

// Dropped reports the total number of discarded rows of any kind.
func (r ReshapeReport) Dropped() int {
	return r.MalformedRows + r.DroppedListings + r.DroppedDrugs
}

// nameCollator orders generic names with locale collation rather than
// raw byte order. collate.Collate is not safe for concurrent use, so
// each BuildView call buys its own.
func nameCollator() *collate.Collator {
	return collate.New(language.English)
}

// BuildView runs the four-stage reshape pipeline over flat joined rows:
// drop malformed top-level rows, drop listings with unresolved supplier
// references, render bioequivalence display values, then drop drugs
// left without brands (and, with SupplierOnly, without any supplied
// brand). The returned slice is ordered by the relevance comparator.
func BuildView(rows []Row, opts ViewOptions) ([]GenericDrug, ReshapeReport) {
	report := ReshapeReport{RowsSeen: len(rows)}

	drugs := make([]*GenericDrug, 0)
	drugIndex := make(map[string]*GenericDrug)

	// Positions, not pointers: appending a later brand may reallocate
	// the Brands backing array, which would leave an indexed pointer
	// writing into the abandoned copy. Rows need not arrive grouped.
	brandIndex := make(map[string]int)

	for _, row := range rows {
		if row.Drug.ID == "" {
			report.MalformedRows++
			continue
		}

		drug, seen := drugIndex[row.Drug.ID]
		if !seen {
			drug = &GenericDrug{
				ID:          row.Drug.ID,
				Name:        row.Drug.Name,
				Category:    row.Drug.Category,
				Description: row.Drug.Description,
				Indication:  row.Drug.Indication,
				Brands:      make([]BrandedProduct, 0),
			}
			drugIndex[row.Drug.ID] = drug
			drugs = append(drugs, drug)
		}

		if row.Brand == nil || row.Brand.ID == "" {
			continue
		}

		brandKey := row.Drug.ID + "/" + row.Brand.ID
		idx, seen := brandIndex[brandKey]
		if !seen {
			drug.Brands = append(drug.Brands, newBrand(drug.ID, row.Brand))
			idx = len(drug.Brands) - 1
			brandIndex[brandKey] = idx
		}

		if row.Listing == nil {
			continue
		}
		if row.Listing.Supplier == nil || row.Listing.Supplier.ID == "" {
			report.DroppedListings++
			continue
		}
		brand := &drug.Brands[idx]
		brand.Suppliers = append(brand.Suppliers, newListing(row.Listing))
	}

	kept := make([]GenericDrug, 0, len(drugs))
	for _, drug := range drugs {
		if len(drug.Brands) == 0 {
			report.DroppedDrugs++
			continue
		}
		if opts.SupplierOnly && suppliedBrands(*drug) == 0 {
			report.DroppedDrugs++
			continue
		}
		kept = append(kept, *drug)
	}

	sortByRelevance(kept, opts.SupplierOnly)

	if report.Dropped() > 0 {
		logging.Warn("Catalog reshape dropped rows",
			"malformed_rows", report.MalformedRows,
			"dropped_listings", report.DroppedListings,
			"dropped_drugs", report.DroppedDrugs,
		)
	}

	return kept, report
}

func newBrand(drugID string, b *BrandRow) BrandedProduct {
	return BrandedProduct{
		ID:                    b.ID,
		GenericDrugID:         drugID,
		BrandName:             b.BrandName,
		Manufacturer:          b.Manufacturer,
		Strength:              b.Strength,
		DosageForm:            b.DosageForm,
		PackSize:              b.PackSize,
		Verified:              b.Verified,
		Rating:                b.Rating,
		Image:                 b.Image,
		Bioequivalence:        b.Bioequivalence,
		BioequivalenceDisplay: FormatBioequivalence(b.Bioequivalence),
		NafdacNumber:          b.NafdacNumber,
		ProductType:           b.ProductType,
		DateAdded:             b.DateAdded,
		CountryOfOrigin:       b.CountryOfOrigin,
		Suppliers:             make([]SupplierListing, 0),
	}
}

func newListing(l *ListingRow) SupplierListing {
	return SupplierListing{
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

// FormatBioequivalence renders a stored fraction as a rounded
// percentage string, or the pending sentinel when the value is absent.
func FormatBioequivalence(fraction *float64) string {
	if fraction == nil {
		return BioequivalencePending
	}
	return fmt.Sprintf("%d%%", int(math.Round(*fraction*100)))
}

// suppliedBrands counts the brands of a drug with at least one
// surviving supplier listing.
func suppliedBrands(d GenericDrug) int {
	count := 0
	for _, b := range d.Brands {
		if len(b.Suppliers) > 0 {
			count++
		}
	}
	return count
}

// totalListings counts supplier listings across all brands of a drug.
func totalListings(d GenericDrug) int {
	count := 0
	for _, b := range d.Brands {
		count += len(b.Suppliers)
	}
	return count
}

// SupplierOnlyView reduces an already-built view to drugs with at
// least one supplied brand and reorders it with the supplier-count
// relevance comparator. Brands without listings stay on the surviving
// drugs.
func SupplierOnlyView(drugs []GenericDrug) []GenericDrug {
	kept := make([]GenericDrug, 0, len(drugs))
	for _, d := range drugs {
		if suppliedBrands(d) > 0 {
			kept = append(kept, d)
		}
	}
	sortByRelevance(kept, true)
	return kept
}

// sortByRelevance applies the default catalog ordering. With
// supplierOnly the primary key is the number of supplied brands and
// the secondary key the total listing count, both descending; without
// it the primary key is the brand count descending. Ties always fall
// back to collated name order, which keeps the ordering deterministic
// for equal counts.
func sortByRelevance(drugs []GenericDrug, supplierOnly bool) {
	c := nameCollator()
	sort.SliceStable(drugs, func(i, j int) bool {
		a, b := drugs[i], drugs[j]
		if supplierOnly {
			if sa, sb := suppliedBrands(a), suppliedBrands(b); sa != sb {
				return sa > sb
			}
			if la, lb := totalListings(a), totalListings(b); la != lb {
				return la > lb
			}
		} else {
			if len(a.Brands) != len(b.Brands) {
				return len(a.Brands) > len(b.Brands)
			}
		}
		return c.CompareString(a.Name, b.Name) < 0
	})
}
