package fileproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/table"
)

func TestMapColumnsExactAliases(t *testing.T) {
	headers := []string{"Supplier", "Application", "Effective Date", "Expiration Date", "Yearly Cost", "Dept"}
	m := MapColumns(headers)

	assert.Equal(t, "Supplier", m.Resolved["Vendor"])
	assert.Equal(t, "Application", m.Resolved["System/Product"])
	assert.Equal(t, "Effective Date", m.Resolved["Contract Start Date"])
	assert.Equal(t, "Expiration Date", m.Resolved["Contract End Date"])
	assert.Equal(t, "Yearly Cost", m.Resolved["Annual Spend"])
	assert.Equal(t, "Dept", m.Resolved["Department"])
}

func TestMapColumnsNormalizesSeparators(t *testing.T) {
	m := MapColumns([]string{"vendor_name", "CONTRACT-START"})
	assert.Equal(t, "vendor_name", m.Resolved["Vendor"])
	assert.Equal(t, "CONTRACT-START", m.Resolved["Contract Start Date"])
}

func TestMapColumnsEachHeaderClaimedOnce(t *testing.T) {
	// "category" is an alias for Contract Type; it must not also claim Department
	m := MapColumns([]string{"Vendor", "Category"})
	assert.Equal(t, "Category", m.Resolved["Contract Type"])
	_, deptMapped := m.Resolved["Department"]
	assert.False(t, deptMapped)
}

func TestMapColumnsReportsUnmapped(t *testing.T) {
	m := MapColumns([]string{"Vendor", "Internal Reference XYZ"})
	assert.Contains(t, m.Unmapped, "Internal Reference XYZ")
}

func TestSuggestionsRankPartialMatches(t *testing.T) {
	headers := []string{"Vendor", "Contract Expiry Info"}
	m := MapColumns([]string{"Vendor"})
	sugg := Suggestions(headers, m)

	var forEndDate []Suggestion
	for _, s := range sugg {
		if s.Column == "Contract End Date" {
			forEndDate = append(forEndDate, s)
		}
	}
	require.NotEmpty(t, forEndDate)
	assert.Equal(t, "Contract Expiry Info", forEndDate[0].Header)
}

func TestMappingApplyReordersCanonicalFirst(t *testing.T) {
	src := table.New("Notes", "Supplier", "Yearly Cost")
	src.AppendRow("keep me", "Acme", "100")

	m := MapColumns(src.Columns)
	out := m.Apply(src)

	assert.Equal(t, []string{"Vendor", "Annual Spend", "Notes"}, out.Columns)
	assert.Equal(t, "Acme", out.Value(0, "Vendor"))
	assert.Equal(t, "keep me", out.Value(0, "Notes"))
}
