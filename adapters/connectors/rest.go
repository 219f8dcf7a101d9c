package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/domain/contract"
	"spendlens/domain/table"
	"spendlens/internal/config"
)

// defaultFieldMapping maps canonical contract fields to the JSON keys a
// generic source is expected to serve when no mapping is configured.
var defaultFieldMapping = map[string]string{
	"vendor":          "vendor",
	"system_product":  "product",
	"start_date":      "start_date",
	"end_date":        "end_date",
	"annual_spend":    "annual_spend",
	"currency":        "currency",
	"contract_number": "contract_number",
	"department":      "department",
}

// RESTConnector pulls contracts from any JSON-over-HTTP source with a
// configurable endpoint, auth scheme and field mapping.
type RESTConnector struct {
	cfg    config.RESTSourceConfig
	client *http.Client
}

// NewRESTConnector creates a connector from one rest source config entry
func NewRESTConnector(cfg config.RESTSourceConfig) *RESTConnector {
	return &RESTConnector{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements ports.Connector
func (c *RESTConnector) Name() string { return c.cfg.Name }

// TestConnection verifies the endpoint responds with the configured auth
func (c *RESTConnector) TestConnection(ctx context.Context) error {
	_, err := c.get(ctx)
	return err
}

// FetchContracts pulls the endpoint's record array and maps fields
func (c *RESTConnector) FetchContracts(ctx context.Context) ([]contract.Contract, error) {
	raw, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(raw, &records); err != nil {
		// Tolerate sources that wrap the array in a data envelope
		var wrapped struct {
			Data []map[string]interface{} `json:"data"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil || wrapped.Data == nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		records = wrapped.Data
	}

	fields := c.fieldMapping()
	now := time.Now().UTC()
	contracts := make([]contract.Contract, 0, len(records))
	for _, rec := range records {
		vendor := stringField(rec, fields["vendor"])
		if vendor == "" {
			continue
		}
		out := contract.Contract{
			Vendor:         vendor,
			SystemProduct:  stringField(rec, fields["system_product"]),
			AnnualSpend:    amountField(rec, fields["annual_spend"]),
			Currency:       stringField(rec, fields["currency"]),
			ContractNumber: stringField(rec, fields["contract_number"]),
			Department:     stringField(rec, fields["department"]),
			SourceSystem:   c.cfg.Name,
			FetchedAt:      now,
		}
		if out.Currency == "" {
			out.Currency = "USD"
		}
		if d, ok := table.ParseDate(stringField(rec, fields["start_date"])); ok {
			out.StartDate = d
		}
		if d, ok := table.ParseDate(stringField(rec, fields["end_date"])); ok {
			out.EndDate = d
		}
		contracts = append(contracts, out)
	}

	log.Printf("[RESTConnector] %s: fetched %d contracts", c.cfg.Name, len(contracts))
	return contracts, nil
}

func (c *RESTConnector) fieldMapping() map[string]string {
	fields := make(map[string]string, len(defaultFieldMapping))
	for k, v := range defaultFieldMapping {
		fields[k] = v
	}
	for k, v := range c.cfg.Fields {
		fields[k] = v
	}
	return fields
}

func (c *RESTConnector) get(ctx context.Context) ([]byte, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("%s base_url not configured", c.cfg.Name)
	}
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "/contracts"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	switch strings.ToLower(c.cfg.AuthType) {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	case "basic":
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	case "api_key":
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	case "":
		// Unauthenticated source
	default:
		return nil, fmt.Errorf("%s: unsupported auth_type %q", c.cfg.Name, c.cfg.AuthType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.cfg.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s http %d: %s", c.cfg.Name, resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}

func stringField(rec map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

func amountField(rec map[string]interface{}, key string) decimal.Decimal {
	s := stringField(rec, key)
	if s == "" {
		return decimal.Zero
	}
	if d, ok := table.ParseAmount(s); ok {
		return d
	}
	return decimal.Zero
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
