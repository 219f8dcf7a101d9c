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

	"spendlens/domain/contract"
	"spendlens/domain/table"
	"spendlens/internal/config"
)

// PaycomConnector pulls vendor and contractor records from the Paycom API
type PaycomConnector struct {
	cfg    config.PaycomSourceConfig
	client *http.Client
}

// NewPaycomConnector creates a connector from the pipeline source config
func NewPaycomConnector(cfg config.PaycomSourceConfig) *PaycomConnector {
	return &PaycomConnector{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements ports.Connector
func (c *PaycomConnector) Name() string { return contract.SourcePaycom }

// TestConnection verifies the key against the company resource
func (c *PaycomConnector) TestConnection(ctx context.Context) error {
	_, err := c.get(ctx, fmt.Sprintf("/v1/companies/%s", c.cfg.CompanyID))
	return err
}

// FetchContracts pulls the company's vendor list
func (c *PaycomConnector) FetchContracts(ctx context.Context) ([]contract.Contract, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/v1/companies/%s/vendors", c.cfg.CompanyID))
	if err != nil {
		return nil, err
	}

	type paycomVendor struct {
		VendorName    string  `json:"vendor_name"`
		ServiceType   string  `json:"service_type"`
		ContractStart string  `json:"contract_start"`
		ContractEnd   string  `json:"contract_end"`
		AnnualCost    float64 `json:"annual_cost"`
		Currency      string  `json:"currency"`
		VendorID      string  `json:"vendor_id"`
		Department    string  `json:"department"`
	}
	var decoded struct {
		Vendors []paycomVendor `json:"vendors"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	now := time.Now().UTC()
	contracts := make([]contract.Contract, 0, len(decoded.Vendors))
	for _, v := range decoded.Vendors {
		if v.VendorName == "" {
			continue
		}
		product := v.ServiceType
		if product == "" {
			product = "HR Service"
		}
		currency := v.Currency
		if currency == "" {
			currency = "USD"
		}
		rec := contract.Contract{
			Vendor:         v.VendorName,
			SystemProduct:  product,
			AnnualSpend:    decimalFromFloat(v.AnnualCost),
			Currency:       currency,
			ContractNumber: v.VendorID,
			Department:     v.Department,
			SourceSystem:   contract.SourcePaycom,
			FetchedAt:      now,
		}
		if d, ok := table.ParseDate(v.ContractStart); ok {
			rec.StartDate = d
		}
		if d, ok := table.ParseDate(v.ContractEnd); ok {
			rec.EndDate = d
		}
		contracts = append(contracts, rec)
	}

	log.Printf("[PaycomConnector] fetched %d vendor contracts", len(contracts))
	return contracts, nil
}

func (c *PaycomConnector) get(ctx context.Context, path string) ([]byte, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("paycom base_url not configured")
	}
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("paycom api_key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paycom request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paycom http %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}
