package table

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NumericColumn extracts parseable numeric cells from a column,
// skipping blanks and unparseable values.
func (t *Table) NumericColumn(name string) []float64 {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if idx >= len(r) {
			continue
		}
		if f, ok := ParseAmountFloat(r[idx]); ok {
			out = append(out, f)
		}
	}
	return out
}

// DecimalColumn extracts parseable monetary cells from a column
func (t *Table) DecimalColumn(name string) []decimal.Decimal {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]decimal.Decimal, 0, len(t.Rows))
	for _, r := range t.Rows {
		if idx >= len(r) {
			continue
		}
		if d, ok := ParseAmount(r[idx]); ok {
			out = append(out, d)
		}
	}
	return out
}

// TimeColumn extracts parseable date cells from a column
func (t *Table) TimeColumn(name string) []time.Time {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]time.Time, 0, len(t.Rows))
	for _, r := range t.Rows {
		if idx >= len(r) {
			continue
		}
		if ts, ok := ParseDate(r[idx]); ok {
			out = append(out, ts)
		}
	}
	return out
}

// SumDecimal totals a monetary column
func (t *Table) SumDecimal(name string) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range t.DecimalColumn(name) {
		sum = sum.Add(d)
	}
	return sum
}

// MeanFloat averages the parseable cells of a column; false when none parse
func (t *Table) MeanFloat(name string) (float64, bool) {
	vals := t.NumericColumn(name)
	if len(vals) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

// GroupStat is one key's aggregate over a monetary column
type GroupStat struct {
	Key   string
	Count int
	Sum   decimal.Decimal
	Mean  decimal.Decimal
}

// GroupStats aggregates a value column per distinct key. Blank keys are
// grouped under "". Results are ordered by Sum descending.
func (t *Table) GroupStats(keyColumn, valueColumn string) []GroupStat {
	keyIdx := t.ColumnIndex(keyColumn)
	valIdx := t.ColumnIndex(valueColumn)
	if keyIdx < 0 {
		return nil
	}

	order := []string{}
	stats := map[string]*GroupStat{}
	for _, r := range t.Rows {
		key := ""
		if keyIdx < len(r) {
			key = r[keyIdx]
		}
		gs, ok := stats[key]
		if !ok {
			gs = &GroupStat{Key: key, Sum: decimal.Zero}
			stats[key] = gs
			order = append(order, key)
		}
		gs.Count++
		if valIdx >= 0 && valIdx < len(r) {
			if d, parsed := ParseAmount(r[valIdx]); parsed {
				gs.Sum = gs.Sum.Add(d)
			}
		}
	}

	out := make([]GroupStat, 0, len(order))
	for _, key := range order {
		gs := stats[key]
		if gs.Count > 0 {
			gs.Mean = gs.Sum.Div(decimal.NewFromInt(int64(gs.Count)))
		}
		out = append(out, *gs)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sum.GreaterThan(out[j].Sum)
	})
	return out
}

// Groups partitions rows by the values of a key column, preserving
// first-seen key order.
func (t *Table) Groups(keyColumn string) ([]string, map[string][]Row) {
	keyIdx := t.ColumnIndex(keyColumn)
	if keyIdx < 0 {
		return nil, nil
	}
	order := []string{}
	groups := map[string][]Row{}
	for _, r := range t.Rows {
		key := ""
		if keyIdx < len(r) {
			key = r[keyIdx]
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	return order, groups
}

// DistinctCount returns the number of distinct non-blank values in a column
func (t *Table) DistinctCount(name string) int {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return 0
	}
	seen := map[string]bool{}
	for _, r := range t.Rows {
		if idx < len(r) && r[idx] != "" {
			seen[r[idx]] = true
		}
	}
	return len(seen)
}
