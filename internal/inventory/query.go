package inventory

import (
	"strings"

	"golang.org/x/text/cases"
)

// ProductFilter narrows the catalog listing. Zero values match everything.
type ProductFilter struct {
	Query    string
	Category Category
}

// Products lists catalog entries whose name or SKU contains the query,
// ignoring case, optionally restricted to one category.
func (s *Store) Products(filter ProductFilter) []Product {
	snap := s.Snapshot()

	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(filter.Query))
	out := make([]Product, 0, len(snap.Products))
	for _, p := range snap.Products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(fold.String(p.Name), query) &&
			!strings.Contains(fold.String(p.SKU), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sales lists sales, most recent first, whose product or customer name
// contains query, ignoring case.
func (s *Store) Sales(query string) []Sale {
	snap := s.Snapshot()

	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return snap.Sales
	}
	out := make([]Sale, 0, len(snap.Sales))
	for _, sale := range snap.Sales {
		if strings.Contains(fold.String(sale.ProductName), q) ||
			strings.Contains(fold.String(sale.CustomerName), q) {
			out = append(out, sale)
		}
	}
	return out
}

// StockLogs lists stock receipts, most recent first.
func (s *Store) StockLogs() []StockLog {
	return s.Snapshot().StockLogs
}
