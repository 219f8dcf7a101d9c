package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/config"
)

func TestRESTFetchWithFieldMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/agreements", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"supplier": "CloudCo", "app": "Object Storage", "yearly": "12,500.00", "expires": "2026-03-15"},
			{"supplier": "", "app": "orphan"},
			{"supplier": "NetVendor", "yearly": 8000}
		]`))
	}))
	defer server.Close()

	conn := NewRESTConnector(config.RESTSourceConfig{
		Name:     "procurement",
		BaseURL:  server.URL,
		Endpoint: "/api/agreements",
		AuthType: "bearer",
		APIKey:   "secret-key",
		Fields: map[string]string{
			"vendor":         "supplier",
			"system_product": "app",
			"annual_spend":   "yearly",
			"end_date":       "expires",
		},
	})

	contracts, err := conn.FetchContracts(context.Background())
	require.NoError(t, err)
	require.Len(t, contracts, 2)

	assert.Equal(t, "CloudCo", contracts[0].Vendor)
	assert.Equal(t, "Object Storage", contracts[0].SystemProduct)
	assert.Equal(t, "12500", contracts[0].AnnualSpend.String())
	assert.Equal(t, "USD", contracts[0].Currency)
	assert.Equal(t, 2026, contracts[0].EndDate.Year())
	assert.Equal(t, "procurement", contracts[0].SourceSystem)

	assert.Equal(t, "NetVendor", contracts[1].Vendor)
	assert.Equal(t, "8000", contracts[1].AnnualSpend.String())
}

func TestRESTDataEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contracts", r.URL.Path, "endpoint should default to /contracts")
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"data": [{"vendor": "WrapCo", "annual_spend": "99.95"}]}`))
	}))
	defer server.Close()

	conn := NewRESTConnector(config.RESTSourceConfig{
		Name:     "wrapped",
		BaseURL:  server.URL,
		AuthType: "api_key",
		APIKey:   "secret",
	})

	contracts, err := conn.FetchContracts(context.Background())
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "WrapCo", contracts[0].Vendor)
	assert.Equal(t, "99.95", contracts[0].AnnualSpend.String())
}

func TestRESTBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc" || pass != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	conn := NewRESTConnector(config.RESTSourceConfig{
		Name:     "legacy",
		BaseURL:  server.URL,
		AuthType: "basic",
		Username: "svc",
		Password: "pw",
	})
	require.NoError(t, conn.TestConnection(context.Background()))
}

func TestRESTUnsupportedAuthType(t *testing.T) {
	conn := NewRESTConnector(config.RESTSourceConfig{
		Name:     "bad",
		BaseURL:  "http://bad.invalid",
		AuthType: "oauth_dance",
	})
	err := conn.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported auth_type")
}

func TestRESTErrorStatusIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "key revoked"}`))
	}))
	defer server.Close()

	conn := NewRESTConnector(config.RESTSourceConfig{Name: "denied", BaseURL: server.URL})
	err := conn.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 403")
	assert.Contains(t, err.Error(), "key revoked")
}

func TestPaycomFetchVendors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/companies/C100/vendors", r.URL.Path)
		assert.Equal(t, "Bearer paycom-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"vendors": [
			{"vendor_name": "StaffCo", "service_type": "Payroll", "contract_start": "2024-01-15",
			 "contract_end": "2026-01-15", "annual_cost": 64000.50, "vendor_id": "V-9", "department": "HR"},
			{"vendor_name": "BenefitsPlus", "annual_cost": 12000}
		]}`))
	}))
	defer server.Close()

	conn := NewPaycomConnector(config.PaycomSourceConfig{
		BaseURL:   server.URL,
		APIKey:    "paycom-key",
		CompanyID: "C100",
	})

	contracts, err := conn.FetchContracts(context.Background())
	require.NoError(t, err)
	require.Len(t, contracts, 2)

	assert.Equal(t, "StaffCo", contracts[0].Vendor)
	assert.Equal(t, "Payroll", contracts[0].SystemProduct)
	assert.Equal(t, "64000.5", contracts[0].AnnualSpend.String())
	assert.Equal(t, "V-9", contracts[0].ContractNumber)
	assert.Equal(t, "HR", contracts[0].Department)
	assert.Equal(t, 2024, contracts[0].StartDate.Year())

	assert.Equal(t, "HR Service", contracts[1].SystemProduct)
	assert.Equal(t, "USD", contracts[1].Currency)
}

func TestPaycomRequiresKey(t *testing.T) {
	conn := NewPaycomConnector(config.PaycomSourceConfig{BaseURL: "http://paycom.invalid"})
	err := conn.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}
