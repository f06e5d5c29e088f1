package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pharmalink/pharmalink-api/catalog"
	"github.com/pharmalink/pharmalink-api/logging"
)

// SearchOptions extends the catalog options with search-only
// constraints.
type SearchOptions struct {
	CatalogOptions
	// Categories restricts the generic-text path to an allow-list of
	// category slugs. Empty means no restriction.
	Categories []string
	// VerifiedOnly drops drugs without at least one verified brand.
	VerifiedOnly bool
}

// Search runs the full-database search: an alias match, a generic-text
// match and a brand-text match, unioned by generic-drug id, then the
// same reshape pipeline and ordering as FetchCatalog. An empty or
// whitespace term issues no query at all. A failing sub-query is
// logged and contributes no results; it never fails the whole search.
func (s *Store) Search(ctx context.Context, term string, opts SearchOptions) ([]catalog.GenericDrug, catalog.ReshapeReport, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []catalog.GenericDrug{}, catalog.ReshapeReport{}, nil
	}
	pattern := "%" + escapeLike(term) + "%"

	ids := newIDSet()
	ids.add(s.searchAliases(ctx, pattern)...)
	ids.add(s.searchGenerics(ctx, pattern, opts.Categories)...)
	ids.add(s.searchBrands(ctx, pattern)...)

	if ids.empty() {
		return []catalog.GenericDrug{}, catalog.ReshapeReport{}, nil
	}

	view, report, err := s.fetchByIDs(ctx, ids.slice(), opts.CatalogOptions)
	if err != nil {
		return nil, catalog.ReshapeReport{}, err
	}
	if opts.VerifiedOnly {
		view = keepVerified(view)
	}
	return view, report, nil
}

// likeEscaper neutralizes LIKE metacharacters so a term like "5%" only
// matches literal text instead of injecting wildcards.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// searchAliases resolves curated drug aliases, the general mechanism
// for names that match poorly through plain pattern matching.
func (s *Store) searchAliases(ctx context.Context, pattern string) []string {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT generic_drug_id FROM generic_drug_aliases WHERE alias ILIKE $1`,
		pattern)
	if err != nil {
		logging.Warn("Alias search failed", "error", err)
		return nil
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (s *Store) searchGenerics(ctx context.Context, pattern string, categories []string) []string {
	query := `SELECT id FROM generic_drugs
	WHERE (name ILIKE $1 OR description ILIKE $1 OR indication ILIKE $1)`
	args := []any{pattern}
	if len(categories) > 0 {
		query += ` AND category = ANY($2)`
		args = append(args, pq.Array(categories))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logging.Warn("Generic drug search failed", "error", err)
		return nil
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (s *Store) searchBrands(ctx context.Context, pattern string) []string {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT generic_drug_id FROM branded_products
		WHERE brand_name ILIKE $1 OR manufacturer ILIKE $1`,
		pattern)
	if err != nil {
		logging.Warn("Brand search failed", "error", err)
		return nil
	}
	defer rows.Close()
	return collectIDs(rows)
}

// fetchByIDs loads the joined rows for a set of generic-drug ids and
// reshapes them exactly as FetchCatalog does.
func (s *Store) fetchByIDs(ctx context.Context, ids []string, opts CatalogOptions) ([]catalog.GenericDrug, catalog.ReshapeReport, error) {
	query := `SELECT` + catalogColumns + catalogJoins + `
	WHERE g.id = ANY($1)
	ORDER BY g.id, b.id, sp.id
	LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids), opts.limit())
	if err != nil {
		return nil, catalog.ReshapeReport{}, err
	}
	defer rows.Close()

	raw, err := scanRows(rows)
	if err != nil {
		return nil, catalog.ReshapeReport{}, err
	}

	view, report := catalog.BuildView(raw, catalog.ViewOptions{SupplierOnly: opts.SupplierOnly})
	return view, report, nil
}

func keepVerified(drugs []catalog.GenericDrug) []catalog.GenericDrug {
	out := make([]catalog.GenericDrug, 0, len(drugs))
	for _, d := range drugs {
		for _, b := range d.Brands {
			if b.Verified {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// idSet deduplicates generic-drug ids while preserving discovery
// order.
type idSet struct {
	seen  map[string]bool
	order []string
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]bool)}
}

func (s *idSet) add(ids ...string) {
	for _, id := range ids {
		if id == "" || s.seen[id] {
			continue
		}
		s.seen[id] = true
		s.order = append(s.order, id)
	}
}

func (s *idSet) empty() bool     { return len(s.order) == 0 }
func (s *idSet) slice() []string { return s.order }

func collectIDs(rows *sql.Rows) []string {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			logging.Warn("Search id scan failed", "error", err)
			continue
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		logging.Warn("Search rows failed", "error", err)
	}
	return out
}
