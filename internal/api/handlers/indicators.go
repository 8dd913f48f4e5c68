package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/validation"
)

// Default indicator windows.
const (
	defaultMAPeriod  = 200
	defaultRSIPeriod = 14
)

// IndicatorHandler handles HTTP requests for derived series.
type IndicatorHandler struct {
	indicatorService *service.IndicatorService
}

// NewIndicatorHandler creates a new IndicatorHandler with the provided service dependency.
func NewIndicatorHandler(indicatorService *service.IndicatorService) *IndicatorHandler {
	return &IndicatorHandler{
		indicatorService: indicatorService,
	}
}

// SeriesResponse is a derived series for a dataset.
type SeriesResponse struct {
	DatasetID string                  `json:"datasetId"`
	Indicator string                  `json:"indicator"`
	Period    int                     `json:"period"`
	Series    []model.TimeSeriesPoint `json:"series"`
}

type windowFunc func(ctx context.Context, id string, period int) ([]model.TimeSeriesPoint, error)

func windowed(name string, def int, fn windowFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "datasetId")
		period, err := validation.ParsePeriod(r.URL.Query().Get("period"), def)
		if err != nil {
			respondServiceError(w, "invalid period", err)
			return
		}

		series, err := fn(r.Context(), id, period)
		if err != nil {
			respondServiceError(w, "failed to calculate "+name, err)
			return
		}
		respondJSON(w, http.StatusOK, SeriesResponse{
			DatasetID: id,
			Indicator: name,
			Period:    period,
			Series:    series,
		})
	}
}

// SMA handles GET /api/indicator/{datasetId}/sma?period=200
func (h *IndicatorHandler) SMA() http.HandlerFunc {
	return windowed("sma", defaultMAPeriod, h.indicatorService.SMA)
}

// EMA handles GET /api/indicator/{datasetId}/ema?period=200
func (h *IndicatorHandler) EMA() http.HandlerFunc {
	return windowed("ema", defaultMAPeriod, h.indicatorService.EMA)
}

// RSI handles GET /api/indicator/{datasetId}/rsi?period=14
func (h *IndicatorHandler) RSI() http.HandlerFunc {
	return windowed("rsi", defaultRSIPeriod, h.indicatorService.RSI)
}

// Regression returns the power-law fit and its deviation bands.
//
// Endpoint: GET /api/indicator/{datasetId}/regression
// Response: 200 OK with service.RegressionResult
// Error: 422 Unprocessable Entity if too few positive points exist
func (h *IndicatorHandler) Regression(w http.ResponseWriter, r *http.Request) {
	result, err := h.indicatorService.Regression(r.Context(), chi.URLParam(r, "datasetId"))
	if err != nil {
		respondServiceError(w, "failed to calculate regression", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Risk returns the risk score series, served from today's snapshot when present.
//
// Endpoint: GET /api/indicator/{datasetId}/risk
// Response: 200 OK with model.RiskLevel
func (h *IndicatorHandler) Risk(w http.ResponseWriter, r *http.Request) {
	result, err := h.indicatorService.RiskLevel(r.Context(), chi.URLParam(r, "datasetId"))
	if err != nil {
		respondServiceError(w, "failed to calculate risk level", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ROICycle returns ROI series since each cycle start, served from today's snapshot when present.
// A start query parameter replaces the configured cycles with a single one from that date.
//
// Endpoint: GET /api/indicator/{datasetId}/roi-cycle?start=2024-04-20
// Response: 200 OK with model.ROICycleSnapshot
// Error: 400 Bad Request if start is not a date
func (h *IndicatorHandler) ROICycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetId")
	if raw := r.URL.Query().Get("start"); raw != "" {
		start, err := validation.ParseTime(raw)
		if err != nil {
			respondServiceError(w, "invalid start date", err)
			return
		}
		result, err := h.indicatorService.ROISince(r.Context(), id, start.Format(time.DateOnly))
		if err != nil {
			respondServiceError(w, "failed to calculate ROI", err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	result, err := h.indicatorService.ROICycles(r.Context(), id)
	if err != nil {
		respondServiceError(w, "failed to calculate ROI cycles", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
