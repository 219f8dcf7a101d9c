package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/contract"
	"spendlens/internal/config"
)

func sapTestServer(t *testing.T, tokenCalls *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(sapTokenPath, func(w http.ResponseWriter, r *http.Request) {
		*tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-abc",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc(sapContractPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"d": {"results": [
			{
				"PurchaseContract": "4600000001",
				"SupplierName": "Acme Software",
				"PurchaseContractType": "Software License",
				"ValidityStartDate": "/Date(1719792000000)/",
				"ValidityEndDate": "/Date(1782950400000)/",
				"NetValueAmount": "120000.00",
				"Currency": "USD"
			},
			{
				"PurchaseContract": "4600000002",
				"Supplier": "GLOBEX",
				"ValidityEndDate": "2026-06-30T00:00:00",
				"NetValueAmount": "45000.00"
			},
			{
				"PurchaseContract": "4600000003"
			}
		]}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSAPFetchContracts(t *testing.T) {
	tokenCalls := 0
	server := sapTestServer(t, &tokenCalls)

	conn := NewSAPConnector(config.SAPSourceConfig{
		Enabled:      true,
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	contracts, err := conn.FetchContracts(context.Background())
	require.NoError(t, err)
	require.Len(t, contracts, 2) // record without any supplier is skipped

	first := contracts[0]
	assert.Equal(t, "Acme Software", first.Vendor)
	assert.Equal(t, "Software License", first.SystemProduct)
	assert.Equal(t, contract.SourceSAP, first.SourceSystem)
	assert.Equal(t, "120000", first.AnnualSpend.String())
	assert.Equal(t, 2024, first.StartDate.Year())

	second := contracts[1]
	assert.Equal(t, "GLOBEX", second.Vendor)
	assert.Equal(t, "SAP Contract", second.SystemProduct)
	assert.Equal(t, "USD", second.Currency)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), second.EndDate)
}

func TestSAPTokenCached(t *testing.T) {
	tokenCalls := 0
	server := sapTestServer(t, &tokenCalls)

	conn := NewSAPConnector(config.SAPSourceConfig{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	_, err := conn.FetchContracts(context.Background())
	require.NoError(t, err)
	_, err = conn.FetchContracts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, tokenCalls, "token should be fetched once and cached")
}

func TestSAPBasicAuthFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(sapContractPath, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc-user" || pass != "svc-pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"d": {"results": []}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := NewSAPConnector(config.SAPSourceConfig{
		BaseURL:  server.URL,
		Username: "svc-user",
		Password: "svc-pass",
	})

	require.NoError(t, conn.TestConnection(context.Background()))
}

func TestSAPErrorsWithoutCredentials(t *testing.T) {
	conn := NewSAPConnector(config.SAPSourceConfig{BaseURL: "http://sap.invalid"})
	err := conn.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestParseSAPDate(t *testing.T) {
	d := parseSAPDate("/Date(1719792000000)/")
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), d)

	d = parseSAPDate("2026-06-30")
	assert.Equal(t, 2026, d.Year())

	assert.True(t, parseSAPDate("").IsZero())
	assert.True(t, parseSAPDate("garbage").IsZero())
}
