package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hitunghpp/backend/internal/domain"
)

func (a *API) handleSetSellingPrice(w http.ResponseWriter, r *http.Request) {
	var req domain.SetPriceRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	resp, err := a.service.SetSellingPrice(r.Context(), businessID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRecipePriceHistory(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), defaultHistoryLimit, 500)
	history, err := a.service.ListRecipePriceHistory(r.Context(), businessID(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (a *API) handleRecipeChannelPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := a.service.ListChannelPrices(r.Context(), businessID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel_prices": prices})
}

func (a *API) handleBulkAdjustPrice(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkPriceRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	result, err := a.service.BulkAdjustPrice(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := a.service.ListSalesChannels(r.Context(), businessID(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

func (a *API) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req domain.SalesChannelRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	channel, err := a.service.CreateSalesChannel(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"channel": channel})
}

func (a *API) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	var req domain.SalesChannelRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	channel, err := a.service.UpdateSalesChannel(r.Context(), businessID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel})
}

func (a *API) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteSalesChannel(r.Context(), businessID(r), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUpsertChannelPrices(w http.ResponseWriter, r *http.Request) {
	var req domain.ChannelPriceBatchRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	resp, err := a.service.UpsertChannelPrices(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleApplyChannelPrices(w http.ResponseWriter, r *http.Request) {
	var req domain.ChannelPriceBatchRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	result, err := a.service.ApplyChannelPrices(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handlePreviewChannelPricing(w http.ResponseWriter, r *http.Request) {
	var req domain.ChannelPricingRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	preview, err := a.service.PreviewChannelPricing(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (a *API) handleBulkChannelPricing(w http.ResponseWriter, r *http.Request) {
	var req domain.ChannelPricingRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	result, err := a.service.BulkChannelPricing(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleChannelPriceHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), defaultHistoryLimit, 500)
	history, err := a.service.ListChannelPriceHistory(r.Context(), businessID(r), query.Get("recipe_id"), query.Get("channel_id"), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
