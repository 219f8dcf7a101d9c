package secure

import (
	"sort"
	"strings"
)

// Category groups sensitive-column patterns by the kind of data exposed
type Category string

const (
	CategoryFinancial Category = "financial"
	CategoryVendor    Category = "vendor"
	CategoryPersonal  Category = "personal"
	CategoryContract  Category = "contract"
)

// categoryPatterns lists lowercase substrings that mark a column as
// sensitive. Matching is substring-based so "Annual Spend" and
// "spend_total" both land in financial.
var categoryPatterns = map[Category][]string{
	CategoryFinancial: {"spend", "cost", "budget", "amount", "salary", "price", "value", "payment"},
	CategoryVendor:    {"vendor", "supplier", "account_number", "tax_id", "bank"},
	CategoryPersonal:  {"email", "phone", "ssn", "address", "name", "contact"},
	CategoryContract:  {"contract_number", "contract number", "agreement_id", "po_number"},
}

// categoryOrder keeps assessments deterministic
var categoryOrder = []Category{CategoryFinancial, CategoryVendor, CategoryPersonal, CategoryContract}

// Classify returns the sensitivity categories a column name falls under
func Classify(column string) []Category {
	normalized := strings.ToLower(strings.TrimSpace(column))
	var matched []Category
	for _, cat := range categoryOrder {
		for _, pattern := range categoryPatterns[cat] {
			if strings.Contains(normalized, pattern) {
				matched = append(matched, cat)
				break
			}
		}
	}
	return matched
}

// DetectSensitive filters a header to the columns that match any
// sensitivity category, preserving header order.
func DetectSensitive(columns []string) []string {
	var sensitive []string
	for _, col := range columns {
		if len(Classify(col)) > 0 {
			sensitive = append(sensitive, col)
		}
	}
	return sensitive
}

// Assessment summarizes the sensitivity surface of a header
type Assessment struct {
	TotalColumns     int                   `json:"total_columns"`
	SensitiveColumns int                   `json:"sensitive_columns"`
	ByCategory       map[Category][]string `json:"by_category"`
	Level            string                `json:"level"`
}

// Assess scores a header: none, low (<25% sensitive), medium (<50%),
// high otherwise.
func Assess(columns []string) Assessment {
	a := Assessment{
		TotalColumns: len(columns),
		ByCategory:   map[Category][]string{},
	}
	for _, col := range columns {
		cats := Classify(col)
		if len(cats) == 0 {
			continue
		}
		a.SensitiveColumns++
		for _, cat := range cats {
			a.ByCategory[cat] = append(a.ByCategory[cat], col)
		}
	}
	for cat := range a.ByCategory {
		sort.Strings(a.ByCategory[cat])
	}

	switch {
	case a.TotalColumns == 0 || a.SensitiveColumns == 0:
		a.Level = "none"
	case float64(a.SensitiveColumns)/float64(a.TotalColumns) < 0.25:
		a.Level = "low"
	case float64(a.SensitiveColumns)/float64(a.TotalColumns) < 0.5:
		a.Level = "medium"
	default:
		a.Level = "high"
	}
	return a
}
