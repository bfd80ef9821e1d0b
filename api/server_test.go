package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/cdp-chain/api/middleware"
	"github.com/openalpha/cdp-chain/api/websocket"
	"github.com/openalpha/cdp-chain/metrics"
)

const anonymous = ""

type testServer struct {
	*httptest.Server
	auth *middleware.Authenticator
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	svc, _ := setupService(t)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	hub := websocket.NewHub(nil, collector, log.NewNopLogger())

	cfg := DefaultConfig()
	cfg.Admin = testAdmin
	cfg.Auth.HMACSecret = "server-test-secret"
	cfg.RateLimit.WritesPerSecond = 1000
	cfg.RateLimit.WriteBurst = 1000

	server := NewServer(cfg, svc, hub, collector, log.NewNopLogger())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		server.rateLimiter.Stop()
	})
	return &testServer{Server: ts, auth: middleware.NewAuthenticator(cfg.Auth, nil)}
}

// doJSON sends body acting as caller; an empty caller sends no token
func doJSON(t *testing.T, ts *testServer, caller, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		bz, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bz)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if caller != anonymous {
		token, err := ts.auth.IssueToken(caller, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestServerHealth(t *testing.T) {
	ts := setupServer(t)

	for _, path := range []string{"/health", "/v1/health"} {
		status, body := doJSON(t, ts, anonymous, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, status, path)
		require.Equal(t, "healthy", body["status"])
	}
}

func TestServerTroveLifecycle(t *testing.T) {
	ts := setupServer(t)

	status, body := doJSON(t, ts, testBorrower, http.MethodPost, "/v1/troves", map[string]string{
		"debt": "100", "collateral": "1000",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = doJSON(t, ts, anonymous, http.MethodGet, "/v1/troves", nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, body["total"])

	status, _ = doJSON(t, ts, anonymous, http.MethodGet, "/v1/troves/"+testBorrower+"/health", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, ts, testOther, http.MethodPost, "/v1/troves/"+testBorrower+"/repay", map[string]string{
		"amount": "10",
	})
	require.Equal(t, http.StatusForbidden, status, body)

	status, body = doJSON(t, ts, testBorrower, http.MethodPost, "/v1/troves/"+testBorrower+"/repay", map[string]string{
		"amount": "10",
	})
	require.Equal(t, http.StatusOK, status, body)
	trove := body["trove"].(map[string]interface{})
	require.EqualValues(t, 90, trove["amount_to_close"])

	status, body = doJSON(t, ts, testAdmin, http.MethodPost, "/v1/troves/"+testBorrower+"/liquidate", nil)
	require.Equal(t, http.StatusConflict, status, body)

	status, _ = doJSON(t, ts, testBorrower, http.MethodPost, "/v1/troves/"+testBorrower+"/receive", nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, ts, testAdmin, http.MethodPost, "/v1/troves/"+testBorrower+"/receive", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, ts, testAdmin, http.MethodPost, "/v1/troves/"+testBorrower+"/liquidate", nil)
	require.Equal(t, http.StatusOK, status, body)

	status, body = doJSON(t, ts, anonymous, http.MethodGet, "/v1/liquidations?limit=5", nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, body["total"])
	stats := body["stats"].(map[string]interface{})
	require.EqualValues(t, 1, stats["count"])
	require.Equal(t, "90", stats["debt_written_off"])

	status, body = doJSON(t, ts, anonymous, http.MethodGet, "/v1/troves/"+testBorrower, nil)
	require.Equal(t, http.StatusOK, status)
	trove = body["trove"].(map[string]interface{})
	require.Equal(t, "liquidated", trove["status"])
}

func TestServerWritesRequireToken(t *testing.T) {
	ts := setupServer(t)

	testCases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"fund", http.MethodPost, "/v1/accounts/fund", map[string]string{"address": testOther, "amount": "5"}},
		{"publish price", http.MethodPost, "/v1/price", map[string]interface{}{"price": "25", "expo": -1}},
		{"receive", http.MethodPost, "/v1/troves/" + testBorrower + "/receive", nil},
		{"liquidate", http.MethodPost, "/v1/troves/" + testBorrower + "/liquidate", nil},
		{"grant reward", http.MethodPost, "/v1/pool/rewards", map[string]string{"depositor": testBorrower, "token": "1"}},
		{"open trove", http.MethodPost, "/v1/troves", map[string]string{"debt": "100", "collateral": "1000"}},
		{"close entry", http.MethodDelete, "/v1/pool/entries/" + testBorrower, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, ts, anonymous, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusUnauthorized, status, body)
			require.Equal(t, "unauthorized", body["error"])
		})
	}

	// the admin identity in a body is not accepted
	status, body := doJSON(t, ts, testOther, http.MethodPost, "/v1/accounts/fund", map[string]string{
		"authority": testAdmin, "address": testOther, "amount": "5",
	})
	require.Equal(t, http.StatusBadRequest, status, body)

	status, body = doJSON(t, ts, anonymous, http.MethodGet, "/v1/accounts/"+testOther, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "0", body["balances"].(map[string]interface{})[NativeDenom])
}

func TestServerErrorStatuses(t *testing.T) {
	ts := setupServer(t)

	testCases := []struct {
		name   string
		caller string
		method string
		path   string
		body   interface{}
		status int
	}{
		{
			name:   "unknown trove",
			method: http.MethodGet,
			path:   "/v1/troves/" + testOther,
			status: http.StatusNotFound,
		},
		{
			name:   "malformed body",
			caller: testBorrower,
			method: http.MethodPost,
			path:   "/v1/troves",
			body:   map[string]string{"debt": "abc"},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			caller: testAdmin,
			method: http.MethodPost,
			path:   "/v1/accounts/fund",
			body:   map[string]string{"who": testOther},
			status: http.StatusBadRequest,
		},
		{
			name:   "fund by non-admin",
			caller: testOther,
			method: http.MethodPost,
			path:   "/v1/accounts/fund",
			body:   map[string]string{"address": testOther, "amount": "5"},
			status: http.StatusForbidden,
		},
		{
			name:   "debt below minimum",
			caller: testBorrower,
			method: http.MethodPost,
			path:   "/v1/troves",
			body:   map[string]string{"debt": "1", "collateral": "1000"},
			status: http.StatusBadRequest,
		},
		{
			name:   "undercollateralized open",
			caller: testBorrower,
			method: http.MethodPost,
			path:   "/v1/troves",
			body:   map[string]string{"debt": "1000", "collateral": "100"},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "missing pool entry",
			method: http.MethodGet,
			path:   "/v1/pool/entries/" + testOther,
			status: http.StatusNotFound,
		},
		{
			name:   "claim for another depositor",
			caller: testOther,
			method: http.MethodPost,
			path:   "/v1/pool/entries/" + testBorrower + "/claim",
			status: http.StatusForbidden,
		},
		{
			name:   "invalid limit",
			method: http.MethodGet,
			path:   "/v1/liquidations?limit=-1",
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, ts, tc.caller, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, status, body)
			require.NotEmpty(t, body["error"])
		})
	}
}

func TestServerPriceAndBalances(t *testing.T) {
	ts := setupServer(t)

	status, body := doJSON(t, ts, anonymous, http.MethodGet, "/v1/price", nil)
	require.Equal(t, http.StatusOK, status, body)
	price := body["price"].(map[string]interface{})
	require.Equal(t, "1.100000000000000000", price["value"])

	status, body = doJSON(t, ts, testAdmin, http.MethodPost, "/v1/price", map[string]interface{}{
		"price": "25", "expo": -1,
	})
	require.Equal(t, http.StatusOK, status, body)
	price = body["price"].(map[string]interface{})
	require.Equal(t, "2.500000000000000000", price["value"])

	status, body = doJSON(t, ts, anonymous, http.MethodGet, "/v1/accounts/"+testBorrower, nil)
	require.Equal(t, http.StatusOK, status)
	balances := body["balances"].(map[string]interface{})
	require.Equal(t, "10000", balances[NativeDenom])
}

func TestServerPoolRoutes(t *testing.T) {
	ts := setupServer(t)

	status, _ := doJSON(t, ts, testBorrower, http.MethodPost, "/v1/troves", map[string]string{
		"debt": "100", "collateral": "1000",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, ts, testBorrower, http.MethodPost, "/v1/pool/deposit", map[string]string{
		"amount": "40",
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = doJSON(t, ts, anonymous, http.MethodGet, "/v1/pool", nil)
	require.Equal(t, http.StatusOK, status)
	pool := body["pool"].(map[string]interface{})
	require.Equal(t, "40", pool["total_deposits"])

	status, _ = doJSON(t, ts, testOther, http.MethodDelete, "/v1/pool/entries/"+testBorrower, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, ts, testBorrower, http.MethodDelete, "/v1/pool/entries/"+testBorrower, nil)
	require.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, ts, testBorrower, http.MethodPost, "/v1/pool/withdraw", map[string]string{
		"amount": "40",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, ts, testBorrower, http.MethodPost, "/v1/pool/entries/"+testBorrower+"/claim", nil)
	require.Equal(t, http.StatusOK, status, body)

	status, _ = doJSON(t, ts, testBorrower, http.MethodDelete, "/v1/pool/entries/"+testBorrower, nil)
	require.Equal(t, http.StatusNoContent, status)
}

func TestServerCORSPreflight(t *testing.T) {
	ts := setupServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/troves", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowList(t *testing.T) {
	handler := corsMiddleware([]string{"https://app.example/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
