package httpapi

import (
	"net/http"

	"hitunghpp/backend/internal/domain"
)

type generateSkuRequest struct {
	Kind string `json:"kind" validate:"required,oneof=ingredient recipe"`
}

func (a *API) handleGetSkuSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.GetSkuSettings(r.Context(), businessID(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleUpdateSkuSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SkuSettingsUpdateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	settings, err := a.service.UpdateSkuSettings(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleGenerateSku(w http.ResponseWriter, r *http.Request) {
	var req generateSkuRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	sku, err := a.service.GenerateSku(r.Context(), businessID(r), req.Kind)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sku": sku})
}

func (a *API) handleBackfillSkus(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.BackfillSkus(r.Context(), businessID(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleGetDecimalSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.GetDecimalSettings(r.Context(), businessID(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleUpdateDecimalSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.DecimalSettings
	if !a.decodeValid(w, r, &req) {
		return
	}
	settings, err := a.service.UpdateDecimalSettings(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleFormatPrice(w http.ResponseWriter, r *http.Request) {
	var req domain.FormatPriceRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	resp, err := a.service.FormatPrice(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleActivityLogs(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.ListActivityLogs(r.Context(), businessID(r), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity_logs": logs})
}
