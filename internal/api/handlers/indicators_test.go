package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/testutil"
)

func setupIndicatorHandler(t *testing.T) *IndicatorHandler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	client := testutil.NewMockUpstreamClient()
	client.SetRecords(testutil.BTCPath, testutil.DailyRecords("2024-01-01", 40, func(i int) float64 { return float64(100 + i%9) }))
	datasets := testutil.NewTestDatasetService(t, db, client)
	svc := testutil.NewTestIndicatorService(t, db, datasets, service.IndicatorOptions{
		RiskPeriod:  10,
		CycleStarts: []string{"2024-01-01"},
	})
	return NewIndicatorHandler(svc)
}

func serveIndicator(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := testutil.NewRequestWithURLParams(http.MethodGet, target, map[string]string{"datasetId": "btcData"})
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestIndicatorHandler_Windows(t *testing.T) {
	t.Run("SMA honours the period query", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.SMA(), "/api/indicator/btcData/sma?period=10")

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp SeriesResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Period != 10 || resp.Indicator != "sma" || len(resp.Series) != 31 {
			t.Errorf("Unexpected response: period %d, %d points", resp.Period, len(resp.Series))
		}
	})

	t.Run("RSI defaults to 14", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.RSI(), "/api/indicator/btcData/rsi")

		var resp SeriesResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&resp)
		if w.Code != http.StatusOK || resp.Period != 14 {
			t.Errorf("Expected 200 with period 14, got %d / %d", w.Code, resp.Period)
		}
	})

	t.Run("default EMA window longer than data is 422", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.EMA(), "/api/indicator/btcData/ema")

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected 422, got %d", w.Code)
		}
	})

	t.Run("invalid period is 400", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		for _, q := range []string{"abc", "0", "-3", "999999"} {
			w := serveIndicator(handler.SMA(), "/api/indicator/btcData/sma?period="+q)
			if w.Code != http.StatusBadRequest {
				t.Errorf("period=%s: expected 400, got %d", q, w.Code)
			}
		}
	})
}

func TestIndicatorHandler_Derived(t *testing.T) {
	t.Run("regression", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.Regression, "/api/indicator/btcData/regression")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp service.RegressionResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&resp)
		if len(resp.Bands) != 3 {
			t.Errorf("Expected 3 bands, got %d", len(resp.Bands))
		}
	})

	t.Run("risk", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.Risk, "/api/indicator/btcData/risk")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp model.RiskLevel
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.AsOf != "2024-02-09" || len(resp.Series) != 31 {
			t.Errorf("Unexpected risk response asOf %s, %d points", resp.AsOf, len(resp.Series))
		}
	})

	t.Run("roi cycle", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.ROICycle, "/api/indicator/btcData/roi-cycle")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp model.ROICycleSnapshot
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&resp)
		if len(resp.Cycles) != 1 || resp.Cycles[0].Series[0].Value != 1 {
			t.Errorf("Unexpected roi response %+v", resp)
		}
	})
	t.Run("roi from an explicit start", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.ROICycle, "/api/indicator/btcData/roi-cycle?start=2024-01-20")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp model.ROICycleSnapshot
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&resp)
		if len(resp.Cycles) != 1 || resp.Cycles[0].Start != "2024-01-20" || len(resp.Cycles[0].Series) != 21 {
			t.Errorf("Unexpected roi response %+v", resp)
		}
	})

	t.Run("roi with a malformed start is 400", func(t *testing.T) {
		handler := setupIndicatorHandler(t)
		w := serveIndicator(handler.ROICycle, "/api/indicator/btcData/roi-cycle?start=soon")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}
