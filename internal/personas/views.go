// Package personas exposes typed getters over the metric registry in
// the shape each leadership dashboard consumes, with the numeric and
// date coercions the raw CSV exports need.
package personas

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"spendlens/domain/core"
	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal/registry"
)

const isoDate = "2006-01-02"

// firstAvailable tries metric name candidates in order, returning the
// first that resolves. Exports have drifted between prefixed and bare
// names over the years, so getters accept both.
func firstAvailable(ctx context.Context, reg *registry.Registry, persona metric.Persona, preferLive bool, names ...string) (*table.Table, error) {
	var lastErr error
	for _, name := range names {
		t, err := reg.Table(ctx, persona, name, preferLive)
		if err == nil {
			return t, nil
		}
		lastErr = err
		if !core.IsNotFoundError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// coerceNumeric normalizes a column to plain numeric strings; cells
// that do not parse become empty, mirroring errors='coerce'.
func coerceNumeric(t *table.Table, column string) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return
	}
	for r := range t.Rows {
		f, ok := table.ParseAmountFloat(t.Rows[r][idx])
		if !ok {
			t.Rows[r][idx] = ""
			continue
		}
		t.Rows[r][idx] = strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// coercePercent strips a trailing % before numeric coercion
func coercePercent(t *table.Table, column string) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return
	}
	for r := range t.Rows {
		t.Rows[r][idx] = strings.TrimSuffix(strings.TrimSpace(t.Rows[r][idx]), "%")
	}
	coerceNumeric(t, column)
}

// coerceDate normalizes a column to ISO dates; unparseable cells blank
func coerceDate(t *table.Table, column string) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return
	}
	for r := range t.Rows {
		if t.Rows[r][idx] == "" {
			continue
		}
		d, ok := table.ParseDate(t.Rows[r][idx])
		if !ok {
			t.Rows[r][idx] = ""
			continue
		}
		t.Rows[r][idx] = d.Format(isoDate)
	}
}

// pivotSpendByYear reshapes a long spend table (label columns + Year +
// Spend Amount) into one row per label combination with a column per
// year, the layout of the total-spend breakdown view.
func pivotSpendByYear(t *table.Table, labelColumns []string, yearColumn, valueColumn string) (*table.Table, error) {
	var keys []string
	for _, c := range labelColumns {
		if t.HasColumn(c) {
			keys = append(keys, c)
		}
	}
	if len(keys) == 0 || !t.HasColumn(yearColumn) || !t.HasColumn(valueColumn) {
		return nil, core.ErrColumnNotFound
	}

	type bucket struct {
		labels  []string
		byYear  map[string]decimal.Decimal
		ordinal int
	}

	buckets := map[string]*bucket{}
	yearSet := map[string]bool{}

	for r := range t.Rows {
		year := strings.TrimSpace(t.Value(r, yearColumn))
		if year == "" {
			continue
		}
		amount, ok := table.ParseAmount(t.Value(r, valueColumn))
		if !ok {
			continue
		}

		labels := make([]string, len(keys))
		for i, k := range keys {
			labels[i] = t.Value(r, k)
		}
		id := strings.Join(labels, "\x1f")

		b, ok := buckets[id]
		if !ok {
			b = &bucket{labels: labels, byYear: map[string]decimal.Decimal{}, ordinal: len(buckets)}
			buckets[id] = b
		}
		b.byYear[year] = b.byYear[year].Add(amount)
		yearSet[year] = true
	}

	years := make([]string, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Strings(years)

	out := table.New(append(append([]string{}, keys...), years...)...)

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ordinal < ordered[j].ordinal })

	for _, b := range ordered {
		cells := append([]string{}, b.labels...)
		for _, y := range years {
			if amt, ok := b.byYear[y]; ok {
				cells = append(cells, table.FormatAmount(amt))
			} else {
				cells = append(cells, "")
			}
		}
		out.AppendRow(cells...)
	}

	return out, nil
}
