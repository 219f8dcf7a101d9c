package fileproc

import (
	"sort"
	"strings"

	"spendlens/domain/table"
)

// columnAliases maps each canonical contract column to the source header
// names commonly seen in uploaded files.
var columnAliases = map[string][]string{
	"Vendor": {
		"vendor", "supplier", "company", "provider", "vendor name", "supplier name",
	},
	"System/Product": {
		"system", "product", "service", "application", "software", "system/product", "item",
	},
	"Contract Start Date": {
		"start date", "start", "begin date", "effective date", "contract start",
	},
	"Contract End Date": {
		"end date", "end", "expiry date", "expiration date", "contract end", "renewal date",
	},
	"Annual Spend": {
		"annual spend", "yearly cost", "annual cost", "yearly spend", "amount",
		"cost", "value", "annual value", "total",
	},
	"Currency": {
		"currency", "curr",
	},
	"Contract Number": {
		"contract number", "contract no", "contract id", "agreement number", "po number",
	},
	"Renewal Option": {
		"renewal option", "renewal", "auto renew", "renewable",
	},
	"Contract Type": {
		"contract type", "type", "agreement type", "category",
	},
	"Department": {
		"department", "dept", "division", "business unit", "cost center",
	},
}

// mappingOrder keeps mapped output columns in canonical order
var mappingOrder = []string{
	"Vendor", "System/Product", "Contract Start Date", "Contract End Date",
	"Annual Spend", "Currency", "Contract Number", "Renewal Option",
	"Contract Type", "Department",
}

// Mapping records how source headers resolve to canonical columns
type Mapping struct {
	// Resolved maps canonical column -> source header
	Resolved map[string]string
	// Unmapped lists source headers no canonical column claimed
	Unmapped []string
}

// Suggestion is one candidate source header for a canonical column
type Suggestion struct {
	Column string  // canonical column
	Header string  // source header
	Score  float64 // 0..1
}

// MapColumns resolves source headers onto canonical contract columns.
// Exact alias matches win, then substring matches, then token overlap.
// Each source header maps at most once.
func MapColumns(headers []string) Mapping {
	m := Mapping{Resolved: map[string]string{}}
	claimed := map[string]bool{}

	// Pass 1: exact alias match
	for _, canonical := range mappingOrder {
		for _, h := range headers {
			if claimed[h] {
				continue
			}
			if matchesExact(h, canonical) {
				m.Resolved[canonical] = h
				claimed[h] = true
				break
			}
		}
	}

	// Pass 2: substring match
	for _, canonical := range mappingOrder {
		if _, done := m.Resolved[canonical]; done {
			continue
		}
		for _, h := range headers {
			if claimed[h] {
				continue
			}
			if matchesSubstring(h, canonical) {
				m.Resolved[canonical] = h
				claimed[h] = true
				break
			}
		}
	}

	// Pass 3: best token overlap above threshold
	for _, canonical := range mappingOrder {
		if _, done := m.Resolved[canonical]; done {
			continue
		}
		best, bestScore := "", 0.0
		for _, h := range headers {
			if claimed[h] {
				continue
			}
			if s := aliasScore(h, canonical); s > bestScore {
				best, bestScore = h, s
			}
		}
		if bestScore >= 0.6 {
			m.Resolved[canonical] = best
			claimed[best] = true
		}
	}

	for _, h := range headers {
		if !claimed[h] {
			m.Unmapped = append(m.Unmapped, h)
		}
	}
	return m
}

// Suggestions returns the top candidate headers per unresolved canonical
// column, strongest first. Used by the upload review endpoint.
func Suggestions(headers []string, mapping Mapping) []Suggestion {
	var out []Suggestion
	for _, canonical := range mappingOrder {
		if _, done := mapping.Resolved[canonical]; done {
			continue
		}
		var candidates []Suggestion
		for _, h := range headers {
			if s := aliasScore(h, canonical); s > 0 {
				candidates = append(candidates, Suggestion{Column: canonical, Header: h, Score: s})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		if len(candidates) > 3 {
			candidates = candidates[:3]
		}
		out = append(out, candidates...)
	}
	return out
}

// Apply renames mapped source headers to canonical names, preserving
// unmapped columns after the canonical block.
func (m Mapping) Apply(t *table.Table) *table.Table {
	out := t.Clone()
	for canonical, source := range m.Resolved {
		out.RenameColumn(source, canonical)
	}

	// Reorder: canonical columns first, everything else in original order
	want := make([]string, 0, len(out.Columns))
	for _, c := range mappingOrder {
		if out.HasColumn(c) {
			want = append(want, c)
		}
	}
	for _, c := range out.Columns {
		isCanonical := false
		for _, mc := range mappingOrder {
			if c == mc {
				isCanonical = true
				break
			}
		}
		if !isCanonical {
			want = append(want, c)
		}
	}
	return out.Select(want...)
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "_", " ")
	h = strings.ReplaceAll(h, "-", " ")
	return strings.Join(strings.Fields(h), " ")
}

func matchesExact(header, canonical string) bool {
	n := normalizeHeader(header)
	if n == normalizeHeader(canonical) {
		return true
	}
	for _, alias := range columnAliases[canonical] {
		if n == alias {
			return true
		}
	}
	return false
}

func matchesSubstring(header, canonical string) bool {
	n := normalizeHeader(header)
	for _, alias := range columnAliases[canonical] {
		// Only multi-word aliases are safe for substring matching;
		// single words like "type" claim too much.
		if !strings.Contains(alias, " ") {
			continue
		}
		if strings.Contains(n, alias) || strings.Contains(alias, n) {
			return true
		}
	}
	return false
}

// aliasScore measures token overlap between a header and a column's aliases
func aliasScore(header, canonical string) float64 {
	headerTokens := strings.Fields(normalizeHeader(header))
	if len(headerTokens) == 0 {
		return 0
	}
	best := 0.0
	for _, alias := range append([]string{normalizeHeader(canonical)}, columnAliases[canonical]...) {
		aliasTokens := strings.Fields(alias)
		if len(aliasTokens) == 0 {
			continue
		}
		matched := 0
		for _, ht := range headerTokens {
			for _, at := range aliasTokens {
				if ht == at {
					matched++
					break
				}
			}
		}
		denom := len(headerTokens)
		if len(aliasTokens) > denom {
			denom = len(aliasTokens)
		}
		if s := float64(matched) / float64(denom); s > best {
			best = s
		}
	}
	return best
}
