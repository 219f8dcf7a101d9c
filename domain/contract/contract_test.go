package contract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestAlertClassification(t *testing.T) {
	tests := []struct {
		days int
		want AlertStatus
	}{
		{-10, AlertCritical}, // expired
		{0, AlertCritical},
		{29, AlertCritical},
		{30, AlertWarning},
		{89, AlertWarning},
		{90, AlertOK},
		{400, AlertOK},
	}
	for _, tt := range tests {
		if got := AlertFor(tt.days, DefaultWarningDays); got != tt.want {
			t.Errorf("AlertFor(%d) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestAlertUnknownWithoutEndDate(t *testing.T) {
	c := Contract{Vendor: "Acme"}
	if got := c.Alert(testNow, DefaultWarningDays); got != AlertUnknown {
		t.Errorf("Expected Unknown for missing end date, got %s", got)
	}
}

func TestDaysUntilExpiry(t *testing.T) {
	c := Contract{EndDate: testNow.AddDate(0, 0, 45)}
	days, ok := c.DaysUntilExpiry(testNow)
	if !ok || days != 45 {
		t.Errorf("Expected 45 days, got %d (%v)", days, ok)
	}

	expired := Contract{EndDate: testNow.AddDate(0, 0, -5)}
	days, ok = expired.DaysUntilExpiry(testNow)
	if !ok || days != -5 {
		t.Errorf("Expected -5 days for expired contract, got %d (%v)", days, ok)
	}
}

func TestNormalizeRenewal(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"yes", "Yes"},
		{"Y", "Yes"},
		{"TRUE", "Yes"},
		{"1", "Yes"},
		{"no", "No"},
		{"0", "No"},
		{"auto", "Auto-Renew"},
		{"Auto-Renew", "Auto-Renew"},
		{"manual", "Manual"},
		{"optional", "Optional"},
		{"", ""},
		{"maybe", "Unknown"},
	}
	for _, tt := range tests {
		if got := NormalizeRenewal(tt.in); got != tt.want {
			t.Errorf("NormalizeRenewal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyNormalizesCaseAndSpace(t *testing.T) {
	a := Contract{Vendor: " Acme Software ", SystemProduct: "ERP Suite"}
	b := Contract{Vendor: "ACME SOFTWARE", SystemProduct: " erp suite "}
	if a.Key() != b.Key() {
		t.Errorf("Expected matching keys, got %q vs %q", a.Key(), b.Key())
	}
}

func TestDedupeKeepsHighestPrioritySource(t *testing.T) {
	contracts := []Contract{
		{Vendor: "Acme", SystemProduct: "ERP", SourceSystem: SourceFile, AnnualSpend: decimal.NewFromInt(100)},
		{Vendor: "Acme", SystemProduct: "ERP", SourceSystem: SourceSAP, AnnualSpend: decimal.NewFromInt(200)},
		{Vendor: "Acme", SystemProduct: "ERP", SourceSystem: SourcePaycom, AnnualSpend: decimal.NewFromInt(300)},
		{Vendor: "Globex", SystemProduct: "Cloud", SourceSystem: SourcePaycom, AnnualSpend: decimal.NewFromInt(400)},
	}
	out := Dedupe(contracts)
	if len(out) != 2 {
		t.Fatalf("Expected 2 deduped contracts, got %d", len(out))
	}
	if out[0].SourceSystem != SourceSAP {
		t.Errorf("Expected SAP record to win, got %s", out[0].SourceSystem)
	}
	if !out[0].AnnualSpend.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected SAP spend kept, got %s", out[0].AnnualSpend)
	}
	if out[1].Vendor != "Globex" {
		t.Errorf("Expected first-appearance order preserved, got %s", out[1].Vendor)
	}
}

func TestToTableDerivesExpiryColumns(t *testing.T) {
	contracts := []Contract{
		{
			Vendor:        "Acme",
			SystemProduct: "ERP",
			EndDate:       testNow.AddDate(0, 0, 20),
			AnnualSpend:   decimal.NewFromInt(120000),
			RenewalOption: "auto",
			SourceSystem:  SourceSAP,
		},
		{
			Vendor:        "Globex",
			SystemProduct: "Cloud",
			AnnualSpend:   decimal.NewFromFloat(5000.5),
			SourceSystem:  SourceFile,
		},
	}
	tbl := ToTable(contracts, testNow, DefaultWarningDays)
	if tbl.NumRows() != 2 {
		t.Fatalf("Expected 2 rows, got %d", tbl.NumRows())
	}
	if tbl.Value(0, "Days Until Expiry") != "20" {
		t.Errorf("Expected 20 days, got %q", tbl.Value(0, "Days Until Expiry"))
	}
	if tbl.Value(0, "Alert Status") != string(AlertCritical) {
		t.Errorf("Expected Critical, got %q", tbl.Value(0, "Alert Status"))
	}
	if tbl.Value(0, "Renewal Option") != "Auto-Renew" {
		t.Errorf("Expected normalized renewal, got %q", tbl.Value(0, "Renewal Option"))
	}
	if tbl.Value(1, "Alert Status") != string(AlertUnknown) {
		t.Errorf("Expected Unknown without end date, got %q", tbl.Value(1, "Alert Status"))
	}
	if tbl.Value(1, "Annual Spend") != "5000.50" {
		t.Errorf("Expected two decimal places, got %q", tbl.Value(1, "Annual Spend"))
	}
}

func TestFromTableRoundTrip(t *testing.T) {
	in := []Contract{{
		Vendor:        "Acme",
		SystemProduct: "ERP",
		StartDate:     time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		AnnualSpend:   decimal.NewFromInt(75000),
		Currency:      "USD",
		SourceSystem:  SourceSAP,
	}}
	out := FromTable(ToTable(in, testNow, DefaultWarningDays))
	if len(out) != 1 {
		t.Fatalf("Expected 1 contract, got %d", len(out))
	}
	if out[0].Vendor != "Acme" || !out[0].AnnualSpend.Equal(decimal.NewFromInt(75000)) {
		t.Errorf("Round trip lost data: %+v", out[0])
	}
	if !out[0].EndDate.Equal(in[0].EndDate) {
		t.Errorf("Expected end date preserved, got %s", out[0].EndDate)
	}
}
