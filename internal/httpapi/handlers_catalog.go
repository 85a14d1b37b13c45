package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hitunghpp/backend/internal/domain"
)

const defaultHistoryLimit = 50

func (a *API) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := a.service.ListUnits(r.Context(), businessID(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": units})
}

func (a *API) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req domain.UnitCreateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	unit, err := a.service.CreateUnit(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"unit": unit})
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.service.ListCategories(r.Context(), businessID(r), r.URL.Query().Get("kind"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	category, err := a.service.CreateCategory(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"category": category})
}

func (a *API) handleListIngredients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ingredients, err := a.service.ListIngredients(r.Context(), businessID(r), domain.IngredientFilter{
		CategoryID: query.Get("category_id"),
		Search:     query.Get("search"),
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredients": ingredients})
}

func (a *API) handleCreateIngredient(w http.ResponseWriter, r *http.Request) {
	var req domain.IngredientCreateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	ingredient, err := a.service.CreateIngredient(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ingredient": ingredient})
}

func (a *API) handleGetIngredient(w http.ResponseWriter, r *http.Request) {
	ingredient, err := a.service.GetIngredient(r.Context(), businessID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredient": ingredient})
}

func (a *API) handleUpdateIngredient(w http.ResponseWriter, r *http.Request) {
	var req domain.IngredientUpdateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	ingredient, err := a.service.UpdateIngredient(r.Context(), businessID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredient": ingredient})
}

func (a *API) handleDeleteIngredient(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteIngredient(r.Context(), businessID(r), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleIngredientPriceHistory(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), defaultHistoryLimit, 500)
	history, err := a.service.ListIngredientPriceHistory(r.Context(), businessID(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (a *API) handleImportIngredients(w http.ResponseWriter, r *http.Request) {
	records, err := readCSVUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := parseIngredientRows(records)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.service.ImportIngredients(r.Context(), businessID(r), rows)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	recipes, err := a.service.ListRecipes(r.Context(), businessID(r), domain.RecipeFilter{
		CategoryID:         query.Get("category_id"),
		Search:             query.Get("search"),
		FavoritesOnly:      parseBoolQuery(r, "favorites"),
		UsableAsIngredient: parseBoolQuery(r, "usable_as_ingredient"),
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": recipes})
}

func (a *API) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req domain.RecipeCreateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	recipe, err := a.service.CreateRecipe(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recipe": recipe})
}

func (a *API) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := a.service.GetRecipe(r.Context(), businessID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipe": recipe})
}

func (a *API) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	var req domain.RecipeUpdateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	recipe, err := a.service.UpdateRecipe(r.Context(), businessID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipe": recipe})
}

func (a *API) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteRecipe(r.Context(), businessID(r), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	recipe, err := a.service.ToggleFavorite(r.Context(), businessID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipe": recipe})
}

func (a *API) handleDuplicateRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := a.service.DuplicateRecipe(r.Context(), businessID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recipe": recipe})
}

func (a *API) handleCostBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := a.service.GetCostBreakdown(r.Context(), businessID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (a *API) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	var req domain.RecalculateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	result, err := a.service.RecalculateDependents(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
