package api_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/api"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/testutil"
)

func setupRouter(t *testing.T, apiKey string, refreshLimit int) (http.Handler, *testutil.MockUpstreamClient) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	client := testutil.NewMockUpstreamClient()
	client.SetRecords(testutil.BTCPath, testutil.DailyRecords("2024-01-01", 5, func(i int) float64 { return float64(i + 1) }))
	datasets := testutil.NewTestDatasetService(t, db, client)
	indicators := testutil.NewTestIndicatorService(t, db, datasets, service.IndicatorOptions{})

	cfg := &config.Config{}
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Server.APIKey = apiKey
	cfg.RateLimit.RefreshPerMinute = refreshLimit

	router := api.NewRouter(
		testutil.NewTestSystemService(t, db),
		datasets,
		indicators,
		testutil.NewTestReconciler(t, client, datasets),
		cfg,
	)
	return router, client
}

func serve(router http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	t.Run("routes system, dataset and metrics endpoints", func(t *testing.T) {
		router, _ := setupRouter(t, "", 10)

		for _, target := range []string{"/api/system/health", "/api/system/version", "/api/dataset/", "/api/dataset/btcData/", "/metrics"} {
			if w := serve(router, http.MethodGet, target, nil); w.Code != http.StatusOK {
				t.Errorf("GET %s: expected 200, got %d: %s", target, w.Code, w.Body.String())
			}
		}
	})

	t.Run("rejects malformed dataset ids", func(t *testing.T) {
		router, _ := setupRouter(t, "", 10)

		if w := serve(router, http.MethodGet, "/api/indicator/1btc/sma", nil); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("unannounced family member is 404 without an upstream request", func(t *testing.T) {
		router, client := setupRouter(t, "", 10)

		if w := serve(router, http.MethodGet, "/api/dataset/altcoin_JUNK/", nil); w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
		if client.Count(fmt.Sprintf(testutil.AltcoinPath, "JUNK")) != 0 {
			t.Error("Expected no upstream request")
		}
	})

	t.Run("guards refresh with the API key", func(t *testing.T) {
		router, client := setupRouter(t, "secret", 10)

		if w := serve(router, http.MethodPost, "/api/dataset/btcData/refresh", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 without key, got %d", w.Code)
		}
		w := serve(router, http.MethodPost, "/api/dataset/btcData/refresh", map[string]string{"X-API-Key": "secret"})
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 with key, got %d: %s", w.Code, w.Body.String())
		}
		if client.Count(testutil.BTCPath) != 1 {
			t.Errorf("Expected one upstream request, got %d", client.Count(testutil.BTCPath))
		}
	})

	t.Run("rate limits refresh per client", func(t *testing.T) {
		router, _ := setupRouter(t, "", 2)

		var last int
		for range 3 {
			last = serve(router, http.MethodPost, "/api/dataset/btcData/refresh", nil).Code
		}
		if last != http.StatusTooManyRequests {
			t.Errorf("Expected 429 on third refresh, got %d", last)
		}
	})

	t.Run("reconcile endpoint runs a pass", func(t *testing.T) {
		router, client := setupRouter(t, "", 10)
		client.SetMetadata(model.DatasetMetadata{"btcData": "2024-01-05"})

		w := serve(router, http.MethodPost, "/api/system/reconcile", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"btcData"`) {
			t.Errorf("Expected btcData in result, got %s", w.Body.String())
		}
	})

	t.Run("CORS preflight is answered", func(t *testing.T) {
		router, _ := setupRouter(t, "", 10)

		w := serve(router, http.MethodOptions, "/api/dataset/", map[string]string{
			"Origin":                        "http://localhost:3000",
			"Access-Control-Request-Method": "GET",
		})
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Expected allowed origin header, got %q", got)
		}
	})
}
