package contract

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/domain/table"
)

// Source system labels, also used as priority keys during deduplication
const (
	SourceSAP    = "SAP"
	SourcePaycom = "Paycom"
	SourceFile   = "File_Upload"
)

// AlertStatus classifies contract expiry urgency
type AlertStatus string

const (
	AlertCritical AlertStatus = "Critical"
	AlertWarning  AlertStatus = "Warning"
	AlertOK       AlertStatus = "OK"
	AlertUnknown  AlertStatus = "Unknown"
)

// CriticalWindowDays is the expiry window that always classifies as Critical.
// The Warning window is configurable per caller and defaults to 90 days.
const (
	CriticalWindowDays = 30
	DefaultWarningDays = 90
)

// Contract is the canonical record every source normalizes into
type Contract struct {
	Vendor         string          `json:"vendor"`
	SystemProduct  string          `json:"system_product"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	AnnualSpend    decimal.Decimal `json:"annual_spend"`
	Currency       string          `json:"currency"`
	ContractNumber string          `json:"contract_number"`
	ContractType   string          `json:"contract_type"`
	Department     string          `json:"department"`
	RenewalOption  string          `json:"renewal_option"`
	SourceSystem   string          `json:"source_system"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

// Key identifies a contract for cross-source deduplication:
// upper-cased vendor and product, whitespace trimmed.
func (c Contract) Key() string {
	return strings.ToUpper(strings.TrimSpace(c.Vendor)) + "|" +
		strings.ToUpper(strings.TrimSpace(c.SystemProduct))
}

// DaysUntilExpiry returns whole days from now to the end date.
// ok is false when the end date is unknown. Expired contracts are negative.
func (c Contract) DaysUntilExpiry(now time.Time) (int, bool) {
	if c.EndDate.IsZero() {
		return 0, false
	}
	return int(c.EndDate.Sub(now).Hours() / 24), true
}

// Alert classifies the contract against the warning threshold
func (c Contract) Alert(now time.Time, warningDays int) AlertStatus {
	days, ok := c.DaysUntilExpiry(now)
	if !ok {
		return AlertUnknown
	}
	return AlertFor(days, warningDays)
}

// AlertFor classifies a days-until-expiry value. Expired contracts
// (negative days) are Critical.
func AlertFor(days int, warningDays int) AlertStatus {
	if warningDays <= CriticalWindowDays {
		warningDays = DefaultWarningDays
	}
	switch {
	case days < CriticalWindowDays:
		return AlertCritical
	case days < warningDays:
		return AlertWarning
	default:
		return AlertOK
	}
}

var renewalLabels = map[string]string{
	"yes":        "Yes",
	"y":          "Yes",
	"true":       "Yes",
	"1":          "Yes",
	"no":         "No",
	"n":          "No",
	"false":      "No",
	"0":          "No",
	"auto":       "Auto-Renew",
	"automatic":  "Auto-Renew",
	"auto-renew": "Auto-Renew",
	"manual":     "Manual",
	"optional":   "Optional",
}

// NormalizeRenewal maps free-form renewal cells onto canonical labels.
// Blank stays blank; anything unrecognized becomes Unknown.
func NormalizeRenewal(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	if label, ok := renewalLabels[v]; ok {
		return label
	}
	return "Unknown"
}

// Columns is the canonical column order for contract tables
var Columns = []string{
	"Vendor",
	"System/Product",
	"Contract Start Date",
	"Contract End Date",
	"Annual Spend",
	"Currency",
	"Contract Number",
	"Renewal Option",
	"Contract Type",
	"Department",
	"Source_System",
	"Last_Updated",
	"Days Until Expiry",
	"Alert Status",
}

const dateLayout = "2006-01-02"

// ToTable renders contracts as a canonical table, deriving the expiry
// columns against now.
func ToTable(contracts []Contract, now time.Time, warningDays int) *table.Table {
	t := table.New(Columns...)
	for _, c := range contracts {
		start, end := "", ""
		if !c.StartDate.IsZero() {
			start = c.StartDate.Format(dateLayout)
		}
		if !c.EndDate.IsZero() {
			end = c.EndDate.Format(dateLayout)
		}
		days := ""
		if d, ok := c.DaysUntilExpiry(now); ok {
			days = decimal.NewFromInt(int64(d)).String()
		}
		fetched := ""
		if !c.FetchedAt.IsZero() {
			fetched = c.FetchedAt.Format(time.RFC3339)
		}
		t.AppendRow(
			c.Vendor,
			c.SystemProduct,
			start,
			end,
			table.FormatAmount(c.AnnualSpend),
			c.Currency,
			c.ContractNumber,
			NormalizeRenewal(c.RenewalOption),
			c.ContractType,
			c.Department,
			c.SourceSystem,
			fetched,
			days,
			string(c.Alert(now, warningDays)),
		)
	}
	return t
}

// FromTable parses a canonical contract table back into records.
// Cells that fail to parse are left zero rather than dropping the row.
func FromTable(t *table.Table) []Contract {
	out := make([]Contract, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		c := Contract{
			Vendor:         t.Value(i, "Vendor"),
			SystemProduct:  t.Value(i, "System/Product"),
			Currency:       t.Value(i, "Currency"),
			ContractNumber: t.Value(i, "Contract Number"),
			ContractType:   t.Value(i, "Contract Type"),
			Department:     t.Value(i, "Department"),
			RenewalOption:  t.Value(i, "Renewal Option"),
			SourceSystem:   t.Value(i, "Source_System"),
		}
		if d, ok := table.ParseDate(t.Value(i, "Contract Start Date")); ok {
			c.StartDate = d
		}
		if d, ok := table.ParseDate(t.Value(i, "Contract End Date")); ok {
			c.EndDate = d
		}
		if amt, ok := table.ParseAmount(t.Value(i, "Annual Spend")); ok {
			c.AnnualSpend = amt
		} else {
			c.AnnualSpend = decimal.Zero
		}
		if ts, err := time.Parse(time.RFC3339, t.Value(i, "Last_Updated")); err == nil {
			c.FetchedAt = ts
		}
		out = append(out, c)
	}
	return out
}
