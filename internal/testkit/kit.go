package testkit

import (
	"log"
	"path/filepath"
	"sort"

	"spendlens/adapters/fileproc"
	"spendlens/domain/table"
)

// MetricFiles maps each generated table to the registry-relative
// path the catalog discovers it under.
func (d *Dataset) MetricFiles() map[string]*table.Table {
	return map[string]*table.Table{
		filepath.Join("cfo", "vendor_optimization.csv"):        d.Vendors,
		filepath.Join("cfo", "contract_expiration_alerts.csv"): d.Contracts,
		filepath.Join("cfo", "budget_vs_actual.csv"):           d.Budget,
		filepath.Join("cfo", "grant_compliance.csv"):           d.Grants,
		filepath.Join("pm", "project_portfolio.csv"):           d.Projects,
		filepath.Join("cto", "cloud_cost_optimization.csv"):    d.Systems,
		filepath.Join("cto", "team_engagement.csv"):            d.Staff,
		filepath.Join("cio", "customer_satisfaction.csv"):      d.Satisfaction,
	}
}

// Kit seeds demo and test environments with a generated dataset
type Kit struct {
	dataset *Dataset
}

// NewKit generates a dataset up front so repeated seeds write
// identical files.
func NewKit(config GeneratorConfig) *Kit {
	return &Kit{dataset: NewGenerator(config).Generate()}
}

// Dataset returns the generated tables
func (k *Kit) Dataset() *Dataset {
	return k.dataset
}

// SeedRegistry writes every metric file under root using the
// <persona>/<metric>.csv layout. Returns the written paths in
// lexical order.
func (k *Kit) SeedRegistry(root string) ([]string, error) {
	files := k.dataset.MetricFiles()

	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	paths := make([]string, 0, len(rels))
	for _, rel := range rels {
		path := filepath.Join(root, rel)
		if err := fileproc.WriteCSV(path, files[rel]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	log.Printf("[TestKit] Seeded %d metric files under %s", len(paths), root)
	return paths, nil
}

// WriteWorkbook bundles the dataset into a single workbook, one
// sheet per metric, for hand inspection.
func (k *Kit) WriteWorkbook(path string) error {
	d := k.dataset
	sheets := map[string]*table.Table{
		"Vendors":      d.Vendors,
		"Contracts":    d.Contracts,
		"Projects":     d.Projects,
		"Systems":      d.Systems,
		"Satisfaction": d.Satisfaction,
		"Staff":        d.Staff,
		"Budget":       d.Budget,
		"Grants":       d.Grants,
	}
	order := []string{"Vendors", "Contracts", "Projects", "Systems", "Satisfaction", "Staff", "Budget", "Grants"}
	return fileproc.WriteXLSX(path, sheets, order)
}
