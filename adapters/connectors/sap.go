package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/domain/contract"
	"spendlens/internal/config"
)

const (
	sapTokenPath    = "/sap/bc/sec/oauth2/token"
	sapContractPath = "/sap/opu/odata/sap/API_PURCHASECONTRACT_PROCESS_SRV/A_PurchaseContract"
)

// SAPConnector pulls purchase contracts from the SAP OData API.
// OAuth2 client credentials are preferred; username/password basic auth
// is the fallback for gateways without an OAuth2 endpoint.
type SAPConnector struct {
	cfg    config.SAPSourceConfig
	client *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewSAPConnector creates a connector from the pipeline source config
func NewSAPConnector(cfg config.SAPSourceConfig) *SAPConnector {
	return &SAPConnector{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements ports.Connector
func (c *SAPConnector) Name() string { return contract.SourceSAP }

// TestConnection verifies credentials by requesting a single contract
func (c *SAPConnector) TestConnection(ctx context.Context) error {
	_, err := c.fetch(ctx, 1)
	return err
}

// FetchContracts pulls and normalizes every purchase contract
func (c *SAPConnector) FetchContracts(ctx context.Context) ([]contract.Contract, error) {
	return c.fetch(ctx, 0)
}

func (c *SAPConnector) fetch(ctx context.Context, top int) ([]contract.Contract, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("sap base_url not configured")
	}

	params := url.Values{}
	params.Set("$format", "json")
	params.Set("$select", strings.Join([]string{
		"PurchaseContract", "Supplier", "SupplierName", "PurchaseContractType",
		"ValidityStartDate", "ValidityEndDate", "NetValueAmount", "Currency",
	}, ","))
	if top > 0 {
		params.Set("$top", strconv.Itoa(top))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+sapContractPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sap request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sap http %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	type sapContract struct {
		PurchaseContract     string `json:"PurchaseContract"`
		Supplier             string `json:"Supplier"`
		SupplierName         string `json:"SupplierName"`
		PurchaseContractType string `json:"PurchaseContractType"`
		ValidityStartDate    string `json:"ValidityStartDate"`
		ValidityEndDate      string `json:"ValidityEndDate"`
		NetValueAmount       string `json:"NetValueAmount"`
		Currency             string `json:"Currency"`
	}
	type respBody struct {
		D struct {
			Results []sapContract `json:"results"`
		} `json:"d"`
	}
	var decoded respBody
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	now := time.Now().UTC()
	contracts := make([]contract.Contract, 0, len(decoded.D.Results))
	for _, item := range decoded.D.Results {
		vendor := item.SupplierName
		if vendor == "" {
			vendor = item.Supplier
		}
		if vendor == "" {
			continue
		}
		product := item.PurchaseContractType
		if product == "" {
			product = "SAP Contract"
		}
		spend := decimal.Zero
		if item.NetValueAmount != "" {
			if d, err := decimal.NewFromString(item.NetValueAmount); err == nil {
				spend = d
			}
		}
		currency := item.Currency
		if currency == "" {
			currency = "USD"
		}
		contracts = append(contracts, contract.Contract{
			Vendor:         vendor,
			SystemProduct:  product,
			StartDate:      parseSAPDate(item.ValidityStartDate),
			EndDate:        parseSAPDate(item.ValidityEndDate),
			AnnualSpend:    spend,
			Currency:       currency,
			ContractNumber: item.PurchaseContract,
			ContractType:   item.PurchaseContractType,
			SourceSystem:   contract.SourceSAP,
			FetchedAt:      now,
		})
	}

	log.Printf("[SAPConnector] fetched %d contracts", len(contracts))
	return contracts, nil
}

// authorize sets the request credentials: an OAuth2 bearer token when
// client credentials are configured, basic auth otherwise.
func (c *SAPConnector) authorize(ctx context.Context, req *http.Request) error {
	if c.cfg.ClientID != "" && c.cfg.ClientSecret != "" {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
		return nil
	}
	return fmt.Errorf("sap credentials not configured")
}

// accessToken returns a cached token, refreshing via the client
// credentials grant when expired.
func (c *SAPConnector) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	base := strings.TrimRight(c.cfg.BaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+sapTokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sap token request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sap token http %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("unmarshal token response: %w", err)
	}
	if decoded.AccessToken == "" {
		return "", fmt.Errorf("sap token response missing access_token")
	}

	c.token = decoded.AccessToken
	ttl := time.Duration(decoded.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	// Refresh a minute early to avoid using a token at its expiry edge
	c.tokenExpiry = time.Now().Add(ttl - time.Minute)
	return c.token, nil
}

var sapDateRe = regexp.MustCompile(`/Date\((-?\d+)\)/`)

// parseSAPDate handles the legacy OData V2 /Date(milliseconds)/ encoding
// alongside plain ISO dates.
func parseSAPDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if m := sapDateRe.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(ms).UTC()
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
