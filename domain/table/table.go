package table

import (
	"sort"
	"strings"

	"spendlens/domain/core"
)

// Row is a single record, cell values positionally aligned with Table.Columns.
type Row []string

// Table is the canonical tabular frame passed between ingestion, the metric
// registry and the analytics layer. Rows are rectangular: AppendRow pads or
// truncates to the header width.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// ColumnIndex returns the position of a column, or -1 when absent.
// Matching is exact first, then case-insensitive on trimmed names.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, c := range t.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table contains the named column
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// NumRows returns the row count
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// IsEmpty reports whether the table has no data rows
func (t *Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

// AppendRow adds a row, padding or truncating to the header width
func (t *Table) AppendRow(cells ...string) {
	row := make(Row, len(t.Columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.Rows = append(t.Rows, row)
}

// Value returns the cell at (row, column), or "" when out of range
func (t *Table) Value(row int, column string) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	idx := t.ColumnIndex(column)
	if idx < 0 || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// SetValue writes the cell at (row, column). Out-of-range writes are ignored.
func (t *Table) SetValue(row int, column string, value string) {
	if row < 0 || row >= len(t.Rows) {
		return
	}
	idx := t.ColumnIndex(column)
	if idx < 0 || idx >= len(t.Rows[row]) {
		return
	}
	t.Rows[row][idx] = value
}

// AddColumn appends a new column filled with the given value.
// Existing columns are left untouched; duplicate names are rejected silently.
func (t *Table) AddColumn(name string, fill string) {
	if t.ColumnIndex(name) >= 0 {
		return
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fill)
	}
}

// RenameColumn renames a column in place, keeping data alignment
func (t *Table) RenameColumn(from, to string) {
	idx := t.ColumnIndex(from)
	if idx < 0 {
		return
	}
	t.Columns[idx] = to
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(Row, len(r))
		copy(row, r)
		out.Rows[i] = row
	}
	return out
}

// Select projects the table onto the named columns. Unknown columns
// produce empty cells rather than an error so callers can shape exports.
func (t *Table) Select(columns ...string) *Table {
	out := New(columns...)
	indexes := make([]int, len(columns))
	for i, c := range columns {
		indexes[i] = t.ColumnIndex(c)
	}
	for _, r := range t.Rows {
		cells := make([]string, len(columns))
		for i, idx := range indexes {
			if idx >= 0 && idx < len(r) {
				cells[i] = r[idx]
			}
		}
		out.AppendRow(cells...)
	}
	return out
}

// Filter returns a new table containing rows for which keep returns true
func (t *Table) Filter(keep func(r Row) bool) *Table {
	out := New(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			row := make(Row, len(r))
			copy(row, r)
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Cell returns the value of the named column within a row that belongs
// to this table. Useful inside Filter callbacks.
func (t *Table) Cell(r Row, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Concat appends another table, unioning columns. Cells missing from
// either side are left empty.
func (t *Table) Concat(other *Table) *Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	for _, c := range other.Columns {
		found := false
		for _, existing := range cols {
			if existing == c {
				found = true
				break
			}
		}
		if !found {
			cols = append(cols, c)
		}
	}

	out := New(cols...)
	appendFrom := func(src *Table) {
		for i := range src.Rows {
			cells := make([]string, len(cols))
			for j, c := range cols {
				idx := src.ColumnIndex(c)
				if idx >= 0 && idx < len(src.Rows[i]) {
					cells[j] = src.Rows[i][idx]
				}
			}
			out.AppendRow(cells...)
		}
	}
	appendFrom(t)
	appendFrom(other)
	return out
}

// SortBy orders rows by a column. Numeric sorting falls back to string
// comparison for unparseable cells, which sort after numbers.
func (t *Table) SortBy(column string, numeric bool, descending bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		var less bool
		a, b := "", ""
		if idx < len(t.Rows[i]) {
			a = t.Rows[i][idx]
		}
		if idx < len(t.Rows[j]) {
			b = t.Rows[j][idx]
		}
		if numeric {
			af, aok := ParseAmountFloat(a)
			bf, bok := ParseAmountFloat(b)
			switch {
			case aok && bok:
				less = af < bf
			case aok:
				less = true
			case bok:
				less = false
			default:
				less = a < b
			}
		} else {
			less = a < b
		}
		if descending {
			return !less
		}
		return less
	})
}

// Head returns a copy containing at most n rows
func (t *Table) Head(n int) *Table {
	out := New(t.Columns...)
	for i, r := range t.Rows {
		if i >= n {
			break
		}
		row := make(Row, len(r))
		copy(row, r)
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Fingerprint hashes the named columns of every row, in order. Used by
// integrity checks to confirm untouched columns survived a transformation.
func (t *Table) Fingerprint(columns ...string) core.Hash {
	var cells []string
	for i := range t.Rows {
		for _, c := range columns {
			cells = append(cells, t.Value(i, c))
		}
	}
	return core.Fingerprint(cells)
}

// Records converts rows to header-keyed maps, the shape handlers serve as JSON
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(r) {
				rec[c] = r[i]
			} else {
				rec[c] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}
