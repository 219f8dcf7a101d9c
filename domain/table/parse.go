package table

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayouts are the date formats accepted from source files, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-2006",
	"02-01-2006",
	"January 2, 2006",
	"2 January 2006",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04",
}

// ParseDate parses a cell using the accepted layouts, RFC3339 last
func ParseDate(s string) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

var amountReplacer = strings.NewReplacer(
	"$", "", "£", "", "€", "", "¥", "",
	",", "", " ", "", "\t", "",
)

// ParseAmount parses a monetary cell into a decimal, tolerating currency
// symbols, thousands separators and accounting-style parentheses negatives.
func ParseAmount(s string) (decimal.Decimal, bool) {
	v := amountReplacer.Replace(strings.TrimSpace(s))
	if v == "" {
		return decimal.Zero, false
	}
	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ParseAmountFloat is ParseAmount for callers that feed float-based stats
func ParseAmountFloat(s string) (float64, bool) {
	d, ok := ParseAmount(s)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// ParsePercent parses "12.5%" or "12.5" into 12.5
func ParsePercent(s string) (float64, bool) {
	v := strings.TrimSuffix(strings.TrimSpace(s), "%")
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatAmount renders a decimal with two fractional digits, the format
// written back to metric CSVs and exports.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
