package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
)

// DatasetHandler handles HTTP requests for dataset endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// fetching and caching to the datasetService.
type DatasetHandler struct {
	datasetService *service.DatasetService
}

// NewDatasetHandler creates a new DatasetHandler with the provided service dependency.
func NewDatasetHandler(datasetService *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
	}
}

// DatasetResponse is a dataset series with its freshness information.
type DatasetResponse struct {
	ID          string                  `json:"id"`
	Status      model.DatasetStatus     `json:"status"`
	LastUpdated string                  `json:"lastUpdated"`
	Data        []model.TimeSeriesPoint `json:"data"`
	Error       string                  `json:"error,omitempty"`
}

func newDatasetResponse(st model.DatasetState) DatasetResponse {
	data := st.Data
	if data == nil {
		data = []model.TimeSeriesPoint{}
	}
	return DatasetResponse{
		ID:          st.ID,
		Status:      st.Status,
		LastUpdated: st.LastUpdated,
		Data:        data,
		Error:       st.Error,
	}
}

// Datasets lists every known dataset without its series.
//
// Endpoint: GET /api/dataset
// Response: 200 OK with array of model.DatasetSummary
func (h *DatasetHandler) Datasets(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.datasetService.Summaries())
}

// Dataset returns one dataset, fetching it through the cache if needed.
// When a refetch fails but older data is still held, that data is returned with
// status "failed" and the error text.
//
// Endpoint: GET /api/dataset/{datasetId}
// Response: 200 OK with DatasetResponse
// Error: 404 Not Found if the id is not in the registry
// Error: 502 Bad Gateway if the fetch fails and no data is held
func (h *DatasetHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetId")

	state, err := h.datasetService.Get(r.Context(), id)
	if err != nil && len(state.Data) == 0 {
		respondServiceError(w, "failed to retrieve dataset", err)
		return
	}
	respondJSON(w, http.StatusOK, newDatasetResponse(state))
}

// Refresh clears a dataset from every cache and refetches it.
//
// Endpoint: POST /api/dataset/{datasetId}/refresh
// Response: 200 OK with DatasetResponse
// Error: 404 Not Found if the id is not in the registry
// Error: 502 Bad Gateway if the refetch fails
func (h *DatasetHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetId")

	if err := h.datasetService.Refresh(r.Context(), id); err != nil {
		respondServiceError(w, "failed to refresh dataset", err)
		return
	}
	state, _ := h.datasetService.State(id)
	respondJSON(w, http.StatusOK, newDatasetResponse(state))
}
