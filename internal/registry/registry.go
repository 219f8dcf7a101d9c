package registry

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"spendlens/adapters/fileproc"
	"spendlens/domain/core"
	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal"
)

// liveKeywords mark metrics that can be served from live sources
// instead of their static file.
var liveKeywords = []string{"contract", "vendor", "spend"}

// LiveProvider serves fresh tables for live-capable metrics. ok is
// false when the provider has nothing for the metric; the registry
// then falls back to the static file.
type LiveProvider interface {
	LiveTable(ctx context.Context, persona metric.Persona, name string) (*table.Table, bool, error)
}

// entry is one discovered metric plus its lazily loaded table
type entry struct {
	info        metric.Info
	data        *table.Table
	lastUpdated *time.Time
}

// Registry discovers persona metric files under a data root and serves
// them as tables, preferring live sources where one is registered.
type Registry struct {
	root   string
	logger *internal.Logger

	mu      sync.RWMutex
	entries map[core.MetricKey]*entry
	live    []LiveProvider
}

// New creates a registry over the given data root. Call Discover before
// serving metrics.
func New(root string) *Registry {
	return &Registry{
		root:    root,
		logger:  internal.NewDefaultLogger().Component("Registry"),
		entries: map[core.MetricKey]*entry{},
	}
}

// RegisterLive adds a live data provider consulted before static files
func (r *Registry) RegisterLive(p LiveProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = append(r.live, p)
}

// Discover walks the data root for <persona>/<metric>.{csv,xlsx} files.
// Metric names drop the persona prefix, so cfo/cfo_grant_compliance.csv
// and cfo/grant_compliance.csv resolve to the same metric.
func (r *Registry) Discover() error {
	found := map[core.MetricKey]*entry{}

	for _, persona := range metric.AllPersonas() {
		dir := filepath.Join(r.root, string(persona))
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return nil // persona directory may not exist yet
				}
				return err
			}
			if d.IsDir() {
				return nil
			}

			var format metric.Format
			switch strings.ToLower(filepath.Ext(path)) {
			case ".csv":
				format = metric.FormatCSV
			case ".xlsx":
				format = metric.FormatExcel
			default:
				return nil
			}

			name := metricName(persona, path)
			info := metric.Info{
				Persona:     persona,
				Name:        name,
				Path:        path,
				Format:      format,
				LiveCapable: isLiveCapable(name),
			}
			if fi, err := d.Info(); err == nil {
				info.ModifiedAt = fi.ModTime()
			}
			found[info.Key()] = &entry{info: info}
			return nil
		})
		if err != nil {
			return fmt.Errorf("discover metrics under %s: %w", dir, err)
		}
	}

	r.mu.Lock()
	r.entries = found
	r.mu.Unlock()

	r.logger.Info("discovered %d metrics under %s", len(found), r.root)
	return nil
}

// Reload rediscovers metrics and drops every cached table
func (r *Registry) Reload() error {
	return r.Discover()
}

// Invalidate drops one metric's cached table so the next read hits disk
func (r *Registry) Invalidate(persona metric.Persona, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key(persona, name)]; ok {
		e.data = nil
	}
}

// Metrics lists discovered metrics for a persona, sorted by name
func (r *Registry) Metrics(persona metric.Persona) []metric.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []metric.Info
	for _, e := range r.entries {
		if e.info.Persona == persona {
			infos = append(infos, e.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Info returns the discovery record for one metric
func (r *Registry) Info(persona metric.Persona, name string) (metric.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key(persona, name)]
	if !ok {
		return metric.Info{}, fmt.Errorf("%w: %s", core.ErrMetricNotFound, key(persona, name))
	}
	return e.info, nil
}

// Table serves one metric's data. With preferLive, live providers are
// consulted first for live-capable metrics; static files are the
// fallback. Static tables are cached until Invalidate or Reload.
func (r *Registry) Table(ctx context.Context, persona metric.Persona, name string, preferLive bool) (*table.Table, error) {
	r.mu.RLock()
	e, ok := r.entries[key(persona, name)]
	providers := r.live
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrMetricNotFound, key(persona, name))
	}

	if preferLive && e.info.LiveCapable {
		for _, p := range providers {
			live, served, err := p.LiveTable(ctx, persona, name)
			if err != nil {
				r.logger.Warn("live fetch failed for %s: %v", e.info.Key(), err)
				continue
			}
			if served && live != nil && !live.IsEmpty() {
				now := time.Now().UTC()
				r.mu.Lock()
				e.lastUpdated = &now
				r.mu.Unlock()
				r.logger.Debug("serving live data for %s", e.info.Key())
				return live, nil
			}
		}
	}

	return r.staticTable(e)
}

// staticTable loads and caches the metric's file
func (r *Registry) staticTable(e *entry) (*table.Table, error) {
	r.mu.RLock()
	cached := e.data
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	t, err := fileproc.NewFileReader(e.info.Path).ReadTable()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	e.data = t
	if e.lastUpdated == nil {
		mod := e.info.ModifiedAt
		e.lastUpdated = &mod
	}
	r.mu.Unlock()

	r.logger.Debug("loaded %s from %s (%d rows)", e.info.Key(), e.info.Path, t.NumRows())
	return t, nil
}

// LiveServed reports whether a metric was ever served from a live source
func (r *Registry) LiveServed(persona metric.Persona, name string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key(persona, name)]
	if !ok || e.lastUpdated == nil {
		return time.Time{}, false
	}
	return *e.lastUpdated, true
}

// Summary builds the per-persona overview served by the API
func (r *Registry) Summary(persona metric.Persona) metric.Summary {
	infos := r.Metrics(persona)

	s := metric.Summary{
		Persona:     persona,
		Title:       persona.Title(),
		MetricCount: len(infos),
	}
	for _, info := range infos {
		s.MetricNames = append(s.MetricNames, info.Name)
		if info.LiveCapable {
			s.LiveMetrics++
		}
	}
	return s
}

func metricName(persona metric.Persona, path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ToLower(strings.TrimSpace(stem))
	stem = strings.TrimPrefix(stem, string(persona)+"_")
	// Legacy exports carry an _examples suffix on sample data files
	stem = strings.TrimSuffix(stem, "_examples")
	return stem
}

func isLiveCapable(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range liveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func key(persona metric.Persona, name string) core.MetricKey {
	return core.MetricKeyFor(string(persona), strings.ToLower(strings.TrimSpace(name)))
}
