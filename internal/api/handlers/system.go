package handlers

import (
	"net/http"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
	reconciler    *service.Reconciler
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService, reconciler *service.Reconciler) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
		reconciler:    reconciler,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Upstream string `json:"upstream"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	// Check database health
	if err := h.systemService.CheckHealth(); err != nil {
		response := HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Upstream: h.systemService.UpstreamState(),
			Error:    err.Error(),
		}
		respondJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	// System is healthy
	response := HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Upstream: h.systemService.UpstreamState(),
	}
	respondJSON(w, http.StatusOK, response)
}

// VersionInfoResponse represents the version check response containing application
// and database version information and feature availability.
type VersionInfoResponse struct {
	AppVersion string          `json:"app_version"`
	DbVersion  string          `json:"db_version"`
	Features   map[string]bool `json:"features"`
}

// Version handles GET requests to retrieve version information and feature availability.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with VersionInfoResponse
// Error: 500 Internal Server Error if version check fails
func (h *SystemHandler) Version(w http.ResponseWriter, _ *http.Request) {
	version, err := h.systemService.CheckVersion()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to get version information", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, VersionInfoResponse{
		AppVersion: version.AppVersion,
		DbVersion:  version.DbVersion,
		Features:   version.Features,
	})
}

// Reconcile runs one staleness reconciliation pass and returns its result.
//
// Endpoint: POST /api/system/reconcile
// Response: 200 OK with model.ReconcileResult
// Error: 409 Conflict if a pass is already running
// Error: 502 Bad Gateway if the metadata endpoint fails
func (h *SystemHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.Reconcile(r.Context())
	if err != nil {
		respondServiceError(w, "reconciliation failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// LastReconcile returns the result of the most recent completed pass.
//
// Endpoint: GET /api/system/reconcile
// Response: 200 OK with model.ReconcileResult
// Error: 404 Not Found if no pass has completed yet
func (h *SystemHandler) LastReconcile(w http.ResponseWriter, _ *http.Request) {
	result, ok := h.reconciler.LastResult()
	if !ok {
		response.RespondError(w, http.StatusNotFound, "no reconciliation has run yet", "")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
