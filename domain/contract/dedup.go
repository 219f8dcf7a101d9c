package contract

import "github.com/shopspring/decimal"

// Source priority for deduplication: the ERP wins over the HR system,
// which wins over manually uploaded files.
var sourcePriority = map[string]int{
	SourceSAP:    3,
	SourcePaycom: 2,
	SourceFile:   1,
}

// SourcePriority returns the dedup precedence of a source system label.
// Unrecognized sources rank below every known one.
func SourcePriority(source string) int {
	return sourcePriority[source]
}

// Dedupe collapses contracts sharing a Key, keeping the record from the
// highest-priority source. Ties keep the earlier record. Order of first
// appearance is preserved.
func Dedupe(contracts []Contract) []Contract {
	type slot struct {
		index    int
		priority int
	}
	kept := make([]Contract, 0, len(contracts))
	byKey := map[string]slot{}

	for _, c := range contracts {
		key := c.Key()
		prio := SourcePriority(c.SourceSystem)
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = slot{index: len(kept), priority: prio}
			kept = append(kept, c)
			continue
		}
		if prio > existing.priority {
			kept[existing.index] = c
			byKey[key] = slot{index: existing.index, priority: prio}
		}
	}
	return kept
}

// TotalSpend sums annual spend across contracts
func TotalSpend(contracts []Contract) decimal.Decimal {
	total := decimal.Zero
	for _, c := range contracts {
		total = total.Add(c.AnnualSpend)
	}
	return total
}
