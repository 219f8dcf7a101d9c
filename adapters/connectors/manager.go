package connectors

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlens/domain/contract"
	"spendlens/internal/config"
	"spendlens/ports"
)

// Manager fans out to every registered connector and consolidates the
// results into a single deduplicated contract set.
type Manager struct {
	connectors []ports.Connector

	mu        sync.RWMutex
	lastFetch map[string]time.Time
	lastCount map[string]int
	lastError map[string]string
}

// NewManager creates a manager over the given connectors
func NewManager(conns ...ports.Connector) *Manager {
	return &Manager{
		connectors: conns,
		lastFetch:  map[string]time.Time{},
		lastCount:  map[string]int{},
		lastError:  map[string]string{},
	}
}

// NewManagerFromConfig builds connectors for every enabled source
func NewManagerFromConfig(cfg *config.PipelineConfig) *Manager {
	var conns []ports.Connector
	if cfg.DataSources.SAP.Enabled {
		conns = append(conns, NewSAPConnector(cfg.DataSources.SAP))
	}
	if cfg.DataSources.Paycom.Enabled {
		conns = append(conns, NewPaycomConnector(cfg.DataSources.Paycom))
	}
	for _, rest := range cfg.DataSources.REST {
		if rest.Enabled {
			conns = append(conns, NewRESTConnector(rest))
		}
	}
	return NewManager(conns...)
}

// Register adds a connector after construction
func (m *Manager) Register(c ports.Connector) {
	m.connectors = append(m.connectors, c)
}

// Names lists registered connector names in registration order
func (m *Manager) Names() []string {
	names := make([]string, len(m.connectors))
	for i, c := range m.connectors {
		names[i] = c.Name()
	}
	return names
}

// Consolidated fetches every source concurrently, tags provenance, and
// dedupes by contract key with source priority. A failing source adds a
// warning and is skipped; partial results are still returned.
func (m *Manager) Consolidated(ctx context.Context) (*ports.ConsolidatedResult, error) {
	result := &ports.ConsolidatedResult{
		PerSource: map[string]int{},
		FetchedAt: time.Now().UTC(),
	}
	if len(m.connectors) == 0 {
		return result, nil
	}

	fetched := make([][]contract.Contract, len(m.connectors))
	errs := make([]error, len(m.connectors))

	g, ctx := errgroup.WithContext(ctx)
	for i, conn := range m.connectors {
		g.Go(func() error {
			contracts, err := conn.FetchContracts(ctx)
			fetched[i] = contracts
			errs[i] = err
			return nil // source failures become warnings, not batch failures
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []contract.Contract
	for i, conn := range m.connectors {
		name := conn.Name()
		m.mu.Lock()
		if errs[i] != nil {
			m.lastError[name] = errs[i].Error()
			m.mu.Unlock()
			warning := fmt.Sprintf("%s: %v", name, errs[i])
			result.Warnings = append(result.Warnings, warning)
			log.Printf("[ConnectorManager] source skipped: %s", warning)
			continue
		}
		m.lastFetch[name] = result.FetchedAt
		m.lastCount[name] = len(fetched[i])
		delete(m.lastError, name)
		m.mu.Unlock()

		result.PerSource[name] = len(fetched[i])
		for _, c := range fetched[i] {
			if c.SourceSystem == "" {
				c.SourceSystem = name
			}
			if c.FetchedAt.IsZero() {
				c.FetchedAt = result.FetchedAt
			}
			all = append(all, c)
		}
	}

	before := len(all)
	result.Contracts = contract.Dedupe(all)
	if dropped := before - len(result.Contracts); dropped > 0 {
		log.Printf("[ConnectorManager] deduplicated %d overlapping contracts", dropped)
	}
	return result, nil
}

// Status probes every connector concurrently and reports health plus the
// last successful fetch bookkeeping.
func (m *Manager) Status(ctx context.Context) []ports.SourceStatus {
	statuses := make([]ports.SourceStatus, len(m.connectors))

	g, ctx := errgroup.WithContext(ctx)
	for i, conn := range m.connectors {
		g.Go(func() error {
			status := ports.SourceStatus{Name: conn.Name()}
			if err := conn.TestConnection(ctx); err != nil {
				status.Error = err.Error()
			} else {
				status.Connected = true
			}

			m.mu.RLock()
			if t, ok := m.lastFetch[conn.Name()]; ok {
				lastFetch := t
				status.LastFetch = &lastFetch
			}
			status.LastCount = m.lastCount[conn.Name()]
			m.mu.RUnlock()

			statuses[i] = status
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}
