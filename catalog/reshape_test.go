package catalog

import (
	"testing"
	"time"
)

func bio(v float64) *float64 { return &v }

// drugRows builds the joined rows for one drug with the given brands.
func drugRows(drug DrugRow, brands ...brandWithListings) []Row {
	if len(brands) == 0 {
		return []Row{{Drug: drug}}
	}
	var rows []Row
	for _, b := range brands {
		if len(b.listings) == 0 {
			rows = append(rows, Row{Drug: drug, Brand: b.brand})
			continue
		}
		for _, l := range b.listings {
			rows = append(rows, Row{Drug: drug, Brand: b.brand, Listing: l})
		}
	}
	return rows
}

type brandWithListings struct {
	brand    *BrandRow
	listings []*ListingRow
}

func withListings(brand *BrandRow, listings ...*ListingRow) brandWithListings {
	return brandWithListings{brand: brand, listings: listings}
}

func listing(id string, supplier *SupplierRow, price float64) *ListingRow {
	return &ListingRow{ID: id, Supplier: supplier, Price: price}
}

func TestBuildViewEveryDrugHasBrands(t *testing.T) {
	rows := append(
		drugRows(DrugRow{ID: "d1", Name: "Amoxicillin"},
			withListings(&BrandRow{ID: "b1", BrandName: "Amoxil"})),
		drugRows(DrugRow{ID: "d2", Name: "Orphan"})...,
	)

	view, report := BuildView(rows, ViewOptions{})

	if len(view) != 1 {
		t.Fatalf("expected 1 drug, got %d", len(view))
	}
	for _, d := range view {
		if len(d.Brands) < 1 {
			t.Errorf("drug %s served with zero brands", d.ID)
		}
	}
	if report.DroppedDrugs != 1 {
		t.Errorf("expected 1 dropped drug, got %d", report.DroppedDrugs)
	}
}

func TestBuildViewDropsMalformedRows(t *testing.T) {
	rows := []Row{
		{Drug: DrugRow{ID: ""}},
		{Drug: DrugRow{ID: "d1", Name: "Ibuprofen"}, Brand: &BrandRow{ID: "b1", BrandName: "Brufen"}},
	}

	view, report := BuildView(rows, ViewOptions{})

	if len(view) != 1 || view[0].ID != "d1" {
		t.Fatalf("unexpected view %+v", view)
	}
	if report.MalformedRows != 1 {
		t.Errorf("expected 1 malformed row, got %d", report.MalformedRows)
	}
}

func TestBuildViewDropsDanglingSupplierListings(t *testing.T) {
	brand := &BrandRow{ID: "b1", BrandName: "Amoxil"}
	rows := drugRows(DrugRow{ID: "d1", Name: "Amoxicillin"},
		withListings(brand,
			listing("l1", &SupplierRow{ID: "s1", Name: "MedPlus", Verified: true}, 1200),
			listing("l2", nil, 900),
			listing("l3", &SupplierRow{ID: ""}, 800),
		))

	view, report := BuildView(rows, ViewOptions{})

	if len(view) != 1 {
		t.Fatalf("expected 1 drug, got %d", len(view))
	}
	suppliers := view[0].Brands[0].Suppliers
	if len(suppliers) != 1 {
		t.Fatalf("expected 1 surviving listing, got %d", len(suppliers))
	}
	if suppliers[0].SupplierName != "MedPlus" || !suppliers[0].SupplierVerified {
		t.Errorf("supplier fields not denormalized: %+v", suppliers[0])
	}
	if report.DroppedListings != 2 {
		t.Errorf("expected 2 dropped listings, got %d", report.DroppedListings)
	}

	// Idempotent across repeated calls with identical input.
	again, report2 := BuildView(rows, ViewOptions{})
	if len(again[0].Brands[0].Suppliers) != 1 || report2.DroppedListings != 2 {
		t.Error("reshape is not idempotent over identical rows")
	}
}

func TestBuildViewSupplierOnly(t *testing.T) {
	rows := append(
		drugRows(DrugRow{ID: "d1", Name: "Amoxicillin"},
			withListings(&BrandRow{ID: "b1", BrandName: "Amoxil"},
				listing("l1", &SupplierRow{ID: "s1", Name: "MedPlus"}, 1200)),
			withListings(&BrandRow{ID: "b2", BrandName: "Moxatag"}),
		),
		drugRows(DrugRow{ID: "d2", Name: "Paracetamol"},
			withListings(&BrandRow{ID: "b3", BrandName: "Panadol"}))...,
	)

	view, _ := BuildView(rows, ViewOptions{SupplierOnly: true})

	if len(view) != 1 || view[0].Name != "Amoxicillin" {
		t.Fatalf("expected only Amoxicillin, got %+v", view)
	}
	hasSupplied := false
	for _, b := range view[0].Brands {
		if len(b.Suppliers) >= 1 {
			hasSupplied = true
		}
	}
	if !hasSupplied {
		t.Error("supplier-only view kept a drug without supplied brands")
	}
}

func TestBioequivalenceDisplay(t *testing.T) {
	tests := []struct {
		name     string
		fraction *float64
		want     string
	}{
		{"rounds to percent", bio(0.9234), "92%"},
		{"rounds up", bio(0.9281), "93%"},
		{"full equivalence", bio(1), "100%"},
		{"zero", bio(0), "0%"},
		{"pending", nil, "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBioequivalence(tt.fraction); got != tt.want {
				t.Errorf("FormatBioequivalence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildViewRendersBioequivalence(t *testing.T) {
	rows := drugRows(DrugRow{ID: "d1", Name: "Amlodipine"},
		withListings(&BrandRow{ID: "b1", BrandName: "Norvasc", Bioequivalence: bio(0.9234)}),
		withListings(&BrandRow{ID: "b2", BrandName: "Amlovas"}),
	)

	view, _ := BuildView(rows, ViewOptions{})

	brands := view[0].Brands
	if brands[0].BioequivalenceDisplay != "92%" {
		t.Errorf("expected 92%%, got %q", brands[0].BioequivalenceDisplay)
	}
	if brands[1].BioequivalenceDisplay != "N/A" {
		t.Errorf("expected N/A, got %q", brands[1].BioequivalenceDisplay)
	}
	if brands[0].Bioequivalence == nil || *brands[0].Bioequivalence < 0 || *brands[0].Bioequivalence > 1 {
		t.Error("stored bioequivalence out of [0,1]")
	}
}

func TestRelevanceSortByBrandCount(t *testing.T) {
	rows := append(
		drugRows(DrugRow{ID: "d1", Name: "Zinc Sulphate"},
			withListings(&BrandRow{ID: "b1"}), withListings(&BrandRow{ID: "b2"})),
		drugRows(DrugRow{ID: "d2", Name: "Amoxicillin"},
			withListings(&BrandRow{ID: "b3"}))...,
	)

	view, _ := BuildView(rows, ViewOptions{})

	if view[0].Name != "Zinc Sulphate" {
		t.Errorf("expected brand-count ordering, got %s first", view[0].Name)
	}
}

func TestRelevanceSortTieBreaksAlphabetically(t *testing.T) {
	rows := append(
		drugRows(DrugRow{ID: "d1", Name: "Zidovudine"},
			withListings(&BrandRow{ID: "b1"})),
		drugRows(DrugRow{ID: "d2", Name: "Abacavir"},
			withListings(&BrandRow{ID: "b2"}))...,
	)

	view, _ := BuildView(rows, ViewOptions{})

	if view[0].Name != "Abacavir" || view[1].Name != "Zidovudine" {
		t.Errorf("equal primary keys must order alphabetically, got %s, %s",
			view[0].Name, view[1].Name)
	}
}

func TestSupplierOnlySortPrefersSuppliedBrands(t *testing.T) {
	s := &SupplierRow{ID: "s1", Name: "MedPlus"}
	rows := append(
		drugRows(DrugRow{ID: "d1", Name: "Amoxicillin"},
			withListings(&BrandRow{ID: "b1"}, listing("l1", s, 100)),
		),
		drugRows(DrugRow{ID: "d2", Name: "Cefalexin"},
			withListings(&BrandRow{ID: "b2"}, listing("l2", s, 100)),
			withListings(&BrandRow{ID: "b3"}, listing("l3", s, 120), listing("l4", s, 90)),
		)...,
	)

	view, _ := BuildView(rows, ViewOptions{SupplierOnly: true})

	if view[0].Name != "Cefalexin" {
		t.Errorf("expected Cefalexin first (more supplied brands), got %s", view[0].Name)
	}
}

func TestSupplierOnlyView(t *testing.T) {
	now := time.Now()
	rows := append(
		drugRows(DrugRow{ID: "d1", Name: "Amoxicillin"},
			withListings(&BrandRow{ID: "b1", DateAdded: now},
				listing("l1", &SupplierRow{ID: "s1"}, 100))),
		drugRows(DrugRow{ID: "d2", Name: "Paracetamol"},
			withListings(&BrandRow{ID: "b2", DateAdded: now}))...,
	)
	view, _ := BuildView(rows, ViewOptions{})
	if len(view) != 2 {
		t.Fatalf("expected 2 drugs before reduction, got %d", len(view))
	}

	reduced := SupplierOnlyView(view)
	if len(reduced) != 1 || reduced[0].Name != "Amoxicillin" {
		t.Errorf("unexpected supplier-only reduction: %+v", reduced)
	}
}

func TestBuildViewHandlesInterleavedBrandRows(t *testing.T) {
	// Rows for one brand split around another brand's row. The second
	// append may reallocate the Brands array, so later listings must
	// still land on the right brand.
	rows := []Row{
		{Drug: DrugRow{ID: "d1", Name: "Amoxicillin"}, Brand: &BrandRow{ID: "b1", BrandName: "Amoxil"}},
		{Drug: DrugRow{ID: "d1", Name: "Amoxicillin"}, Brand: &BrandRow{ID: "b2", BrandName: "Moxatag"}},
		{
			Drug:    DrugRow{ID: "d1", Name: "Amoxicillin"},
			Brand:   &BrandRow{ID: "b1", BrandName: "Amoxil"},
			Listing: listing("l1", &SupplierRow{ID: "s1", Name: "MedPlus"}, 1200),
		},
	}

	view, report := BuildView(rows, ViewOptions{})

	if len(view) != 1 || len(view[0].Brands) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if got := len(view[0].Brands[0].Suppliers); got != 1 {
		t.Fatalf("listing lost for first brand, got %d suppliers", got)
	}
	if report.DroppedListings != 0 {
		t.Errorf("no listing should be dropped, report %+v", report)
	}

	supplied, _ := BuildView(rows, ViewOptions{SupplierOnly: true})
	if len(supplied) != 1 {
		t.Errorf("supplier-only view must keep the supplied drug, got %d", len(supplied))
	}
}

func TestBuildViewGroupsDuplicateJoinRows(t *testing.T) {
	brand := &BrandRow{ID: "b1", BrandName: "Amoxil"}
	rows := drugRows(DrugRow{ID: "d1", Name: "Amoxicillin"},
		withListings(brand,
			listing("l1", &SupplierRow{ID: "s1", Name: "MedPlus"}, 100),
			listing("l2", &SupplierRow{ID: "s2", Name: "HealthHub"}, 110),
		))

	view, _ := BuildView(rows, ViewOptions{})

	if len(view) != 1 {
		t.Fatalf("expected 1 drug after grouping, got %d", len(view))
	}
	if len(view[0].Brands) != 1 {
		t.Fatalf("expected 1 brand after grouping, got %d", len(view[0].Brands))
	}
	if len(view[0].Brands[0].Suppliers) != 2 {
		t.Errorf("expected 2 listings, got %d", len(view[0].Brands[0].Suppliers))
	}
}
