package catalog

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Verified-brand filter modes.
const (
	VerifiedAny  = ""     // no constraint
	VerifiedSome = "some" // at least one verified brand
	VerifiedAll  = "all"  // every brand verified
)

// Bioequivalence buckets.
const (
	BioBucketNone    = ""
	BioBucketGE90    = "ge90"    // any brand with a result >= 0.90
	BioBucket80To89  = "80to89"  // any brand with a result in [0.80, 0.90)
	BioBucketPending = "pending" // any brand without a recorded result
)

// Sort modes accepted by SortView.
const (
	SortRelevance    = "relevance"
	SortPriceLowHigh = "price_low_high"
	SortPriceHighLow = "price_high_low"
	SortAlphabetical = "alphabetical"
	SortNewest       = "newest"
)

// Filter holds the browse-time predicates applied over an
// already-built catalog view. All active predicates are AND-ed; a
// zero-valued field means "no constraint". Multiple selections within
// one group are deliberately not supported.
type Filter struct {
	Term        string
	Category    string
	Verified    string // VerifiedSome or VerifiedAll
	BioBucket   string
	ProductType string // "prescription" or "otc"
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Term) == "" && f.Category == "" &&
		f.Verified == "" && f.BioBucket == "" && f.ProductType == ""
}

var termFolder = cases.Fold()

// foldContains reports a case-folded substring match.
func foldContains(haystack, needle string) bool {
	return strings.Contains(termFolder.String(haystack), needle)
}

// Apply evaluates the filter over the view and returns the drugs that
// satisfy every active predicate. Pure in-memory evaluation; it cannot
// fail.
func (f Filter) Apply(drugs []GenericDrug) []GenericDrug {
	if f.IsZero() {
		return drugs
	}

	out := make([]GenericDrug, 0, len(drugs))
	needle := termFolder.String(strings.TrimSpace(f.Term))
	for _, d := range drugs {
		if !f.matches(d, needle) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (f Filter) matches(d GenericDrug, needle string) bool {
	if needle != "" && !matchesTerm(d, needle) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(d.Category, f.Category) {
		return false
	}
	if f.Verified != "" && !matchesVerified(d, f.Verified) {
		return false
	}
	if f.BioBucket != "" && !matchesBioBucket(d, f.BioBucket) {
		return false
	}
	if f.ProductType != "" && !matchesProductType(d, f.ProductType) {
		return false
	}
	return true
}

// matchesTerm checks the drug's own text fields and every brand's name
// and manufacturer.
func matchesTerm(d GenericDrug, needle string) bool {
	if foldContains(d.Name, needle) ||
		foldContains(d.Description, needle) ||
		foldContains(d.Indication, needle) {
		return true
	}
	for _, b := range d.Brands {
		if foldContains(b.BrandName, needle) || foldContains(b.Manufacturer, needle) {
			return true
		}
	}
	return false
}

func matchesVerified(d GenericDrug, mode string) bool {
	verified := 0
	for _, b := range d.Brands {
		if b.Verified {
			verified++
		}
	}
	switch mode {
	case VerifiedSome:
		return verified > 0
	case VerifiedAll:
		return verified == len(d.Brands) && len(d.Brands) > 0
	}
	return true
}

func matchesBioBucket(d GenericDrug, bucket string) bool {
	for _, b := range d.Brands {
		switch bucket {
		case BioBucketGE90:
			if b.Bioequivalence != nil && *b.Bioequivalence >= 0.90 {
				return true
			}
		case BioBucket80To89:
			if b.Bioequivalence != nil && *b.Bioequivalence >= 0.80 && *b.Bioequivalence < 0.90 {
				return true
			}
		case BioBucketPending:
			if b.Bioequivalence == nil {
				return true
			}
		}
	}
	return false
}

func matchesProductType(d GenericDrug, productType string) bool {
	for _, b := range d.Brands {
		if strings.EqualFold(b.ProductType, productType) {
			return true
		}
	}
	return false
}

// minPrice returns the lowest listing price across every brand of a
// drug, or +Inf when no listing survived so the drug sorts last on a
// low-to-high price sort.
func minPrice(d GenericDrug) float64 {
	min := math.Inf(1)
	for _, b := range d.Brands {
		for _, s := range b.Suppliers {
			if s.Price < min {
				min = s.Price
			}
		}
	}
	return min
}

// maxPrice returns the highest listing price, or -Inf when no listing
// survived so the drug sorts last on a high-to-low price sort.
func maxPrice(d GenericDrug) float64 {
	max := math.Inf(-1)
	for _, b := range d.Brands {
		for _, s := range b.Suppliers {
			if s.Price > max {
				max = s.Price
			}
		}
	}
	return max
}

// newestDate returns the most recent brand DateAdded. Drugs with no
// parseable dates report the epoch and sort as oldest.
func newestDate(d GenericDrug) time.Time {
	newest := time.Unix(0, 0).UTC()
	for _, b := range d.Brands {
		if b.DateAdded.After(newest) {
			newest = b.DateAdded
		}
	}
	return newest
}

// SortView orders the view in place according to the given mode.
// Unknown modes, and SortRelevance itself, keep the relevance ordering
// the reshape pipeline already produced.
func SortView(drugs []GenericDrug, mode string) {
	switch mode {
	case SortPriceLowHigh:
		sort.SliceStable(drugs, func(i, j int) bool {
			return minPrice(drugs[i]) < minPrice(drugs[j])
		})
	case SortPriceHighLow:
		sort.SliceStable(drugs, func(i, j int) bool {
			return maxPrice(drugs[i]) > maxPrice(drugs[j])
		})
	case SortAlphabetical:
		c := nameCollator()
		sort.SliceStable(drugs, func(i, j int) bool {
			return c.CompareString(drugs[i].Name, drugs[j].Name) < 0
		})
	case SortNewest:
		sort.SliceStable(drugs, func(i, j int) bool {
			return newestDate(drugs[i]).After(newestDate(drugs[j]))
		})
	}
}
