package metric

import (
	"fmt"
	"strings"
	"time"

	"spendlens/domain/core"
)

// Persona is a leadership view over the metric registry
type Persona string

const (
	PersonaCFO Persona = "cfo"
	PersonaCIO Persona = "cio"
	PersonaCTO Persona = "cto"
	PersonaPM  Persona = "pm"
)

// AllPersonas returns the personas in display order
func AllPersonas() []Persona {
	return []Persona{PersonaCFO, PersonaCIO, PersonaCTO, PersonaPM}
}

// ParsePersona validates a persona string
func ParsePersona(s string) (Persona, error) {
	p := Persona(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PersonaCFO, PersonaCIO, PersonaCTO, PersonaPM:
		return p, nil
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

// Title returns the display title for a persona
func (p Persona) Title() string {
	switch p {
	case PersonaCFO:
		return "Chief Financial Officer"
	case PersonaCIO:
		return "Chief Information Officer"
	case PersonaCTO:
		return "Chief Technology Officer"
	case PersonaPM:
		return "Project Manager"
	}
	return string(p)
}

// Format identifies the on-disk encoding of a metric file
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
)

// Info describes one discovered metric
type Info struct {
	Persona     Persona   `json:"persona"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Format      Format    `json:"format"`
	LiveCapable bool      `json:"live_capable"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Key is the registry lookup key for a metric
func (i Info) Key() core.MetricKey {
	return core.MetricKeyFor(string(i.Persona), i.Name)
}

// CatalogEntry is one metric's line in the exported catalog
type CatalogEntry struct {
	Name        string     `json:"name"`
	HasData     bool       `json:"has_data"`
	Live        bool       `json:"live"`
	Rows        int        `json:"rows"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// Catalog summarizes every persona's metrics for export
type Catalog struct {
	GeneratedAt   time.Time                  `json:"generated_at"`
	TotalPersonas int                        `json:"total_personas"`
	TotalMetrics  int                        `json:"total_metrics"`
	Personas      map[Persona][]CatalogEntry `json:"personas"`
}

// Summary is the per-persona overview served by the API
type Summary struct {
	Persona      Persona  `json:"persona"`
	Title        string   `json:"title"`
	MetricCount  int      `json:"metric_count"`
	LiveMetrics  int      `json:"live_metrics"`
	MetricNames  []string `json:"metric_names"`
	MissingFiles []string `json:"missing_files,omitempty"`
}
