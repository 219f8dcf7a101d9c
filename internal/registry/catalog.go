package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"spendlens/domain/core"
	"spendlens/domain/metric"
)

// Catalog summarizes every discovered metric. Rows are counted only for
// metrics already loaded; untouched files stay lazy.
func (r *Registry) Catalog() metric.Catalog {
	cat := metric.Catalog{
		GeneratedAt: time.Now().UTC(),
		Personas:    map[metric.Persona][]metric.CatalogEntry{},
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, persona := range metric.AllPersonas() {
		var entries []metric.CatalogEntry
		for _, e := range r.entries {
			if e.info.Persona != persona {
				continue
			}
			ce := metric.CatalogEntry{
				Name:        e.info.Name,
				HasData:     true,
				Live:        e.info.LiveCapable,
				LastUpdated: e.lastUpdated,
			}
			if e.data != nil {
				ce.Rows = e.data.NumRows()
				ce.HasData = !e.data.IsEmpty()
			}
			entries = append(entries, ce)
		}
		sortEntries(entries)
		if len(entries) > 0 {
			cat.Personas[persona] = entries
			cat.TotalPersonas++
			cat.TotalMetrics += len(entries)
		}
	}

	return cat
}

// ExportCatalog writes the catalog to a timestamped JSON file in dir and
// returns the path.
func (r *Registry) ExportCatalog(dir string) (string, error) {
	cat := r.Catalog()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create catalog dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("metrics_catalog_%s.json", core.Now().FileStamp()))

	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}

	r.logger.Info("catalog exported to %s (%d metrics)", path, cat.TotalMetrics)
	return path, nil
}

func sortEntries(entries []metric.CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}
