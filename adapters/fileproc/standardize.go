package fileproc

import (
	"strconv"
	"time"

	"spendlens/domain/contract"
	"spendlens/domain/table"
)

const isoDate = "2006-01-02"

// Standardizer cleans mapped tables into the canonical contract shape
type Standardizer struct {
	now         time.Time
	warningDays int
}

// NewStandardizer creates a standardizer deriving expiry fields against now
func NewStandardizer(now time.Time) *Standardizer {
	return &Standardizer{now: now, warningDays: contract.DefaultWarningDays}
}

// Standardize normalizes cell formats and appends derived columns.
// The input is expected to already have canonical column names.
func (s *Standardizer) Standardize(t *table.Table) *table.Table {
	out := t.Clone()

	// Dates to ISO
	for _, col := range []string{"Contract Start Date", "Contract End Date"} {
		if !out.HasColumn(col) {
			continue
		}
		for i := 0; i < out.NumRows(); i++ {
			raw := out.Value(i, col)
			if raw == "" {
				continue
			}
			if d, ok := table.ParseDate(raw); ok {
				out.SetValue(i, col, d.Format(isoDate))
			}
		}
	}

	// Money to fixed two decimals, symbols stripped
	if out.HasColumn("Annual Spend") {
		for i := 0; i < out.NumRows(); i++ {
			raw := out.Value(i, "Annual Spend")
			if raw == "" {
				continue
			}
			if d, ok := table.ParseAmount(raw); ok {
				out.SetValue(i, "Annual Spend", table.FormatAmount(d))
			}
		}
	}

	// Canonical renewal labels
	if out.HasColumn("Renewal Option") {
		for i := 0; i < out.NumRows(); i++ {
			out.SetValue(i, "Renewal Option", contract.NormalizeRenewal(out.Value(i, "Renewal Option")))
		}
	}

	s.deriveExpiry(out)
	s.deriveDuration(out)

	out.AddColumn("Source_System", contract.SourceFile)
	out.AddColumn("Last_Updated", s.now.Format(time.RFC3339))
	return out
}

// deriveExpiry appends Days Until Expiry and Alert Status from the end date
func (s *Standardizer) deriveExpiry(t *table.Table) {
	if !t.HasColumn("Contract End Date") {
		return
	}
	t.AddColumn("Days Until Expiry", "")
	t.AddColumn("Alert Status", string(contract.AlertUnknown))
	for i := 0; i < t.NumRows(); i++ {
		end, ok := table.ParseDate(t.Value(i, "Contract End Date"))
		if !ok {
			continue
		}
		days := int(end.Sub(s.now).Hours() / 24)
		t.SetValue(i, "Days Until Expiry", strconv.Itoa(days))
		t.SetValue(i, "Alert Status", string(contract.AlertFor(days, s.warningDays)))
	}
}

// deriveDuration appends Contract Duration (Days) when both dates parse
func (s *Standardizer) deriveDuration(t *table.Table) {
	if !t.HasColumn("Contract Start Date") || !t.HasColumn("Contract End Date") {
		return
	}
	t.AddColumn("Contract Duration (Days)", "")
	for i := 0; i < t.NumRows(); i++ {
		start, okStart := table.ParseDate(t.Value(i, "Contract Start Date"))
		end, okEnd := table.ParseDate(t.Value(i, "Contract End Date"))
		if !okStart || !okEnd {
			continue
		}
		days := int(end.Sub(start).Hours() / 24)
		if days < 0 {
			continue
		}
		t.SetValue(i, "Contract Duration (Days)", strconv.Itoa(days))
	}
}
