package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hitunghpp/backend/internal/costing"
	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/logging"
	"hitunghpp/backend/internal/xid"
)

const importReason = "CSV import"

// SetSellingPrice sets a recipe's base price. Every call is recorded in
// the price history, a zero delta included.
func (s *Service) SetSellingPrice(ctx context.Context, businessID string, recipeID string, req domain.SetPriceRequest) (domain.SetPriceResponse, error) {
	if !req.Price.IsPositive() {
		return domain.SetPriceResponse{}, validationf("selling price must be greater than zero")
	}

	existing, err := s.repo.GetRecipe(ctx, businessID, recipeID)
	if err != nil {
		return domain.SetPriceResponse{}, err
	}

	saved, history, err := s.applyBasePrice(ctx, *existing, req.Price, strings.TrimSpace(req.Reason))
	if err != nil {
		return domain.SetPriceResponse{}, err
	}

	s.logActivity(ctx, businessID, "recipe_price_set", "recipe", saved.ID, fmt.Sprintf("old=%s,new=%s", existing.SellingPrice, saved.SellingPrice))
	return domain.SetPriceResponse{Recipe: saved, History: history}, nil
}

// applyBasePrice saves the new price and margin, then appends history on
// a best-effort basis.
func (s *Service) applyBasePrice(ctx context.Context, recipe domain.Recipe, newPrice decimal.Decimal, reason string) (domain.Recipe, domain.RecipePriceHistory, error) {
	oldPrice := recipe.SellingPrice
	recipe.SellingPrice = newPrice
	recipe.ProfitMargin = costing.ProfitMargin(newPrice, recipe.CogsPerServing)
	recipe.UpdatedAt = s.now()

	saved, err := s.repo.UpdateRecipe(ctx, recipe)
	if err != nil {
		return domain.Recipe{}, domain.RecipePriceHistory{}, err
	}

	history := domain.RecipePriceHistory{
		ID:               xid.New("rph"),
		BusinessID:       saved.BusinessID,
		RecipeID:         saved.ID,
		Reason:           reason,
		PriceChangeEvent: costing.NewPriceChange(oldPrice, newPrice, s.now()),
	}
	if err := s.repo.CreateRecipePriceHistory(ctx, history); err != nil {
		logging.LogWarn(s.logger, module, "applyBasePrice", "write recipe price history", logrus.Fields{
			"recipe_id": saved.ID,
			"old_price": oldPrice.String(),
			"new_price": newPrice.String(),
		}, err)
	} else {
		s.metrics.PriceChanged(priceKindRecipe)
	}
	return *saved, history, nil
}

// BulkAdjustPrice applies one adjustment to many recipes. Missing recipes
// become row errors and rows whose price would not change are skipped.
func (s *Service) BulkAdjustPrice(ctx context.Context, businessID string, req domain.BulkPriceRequest) (domain.BulkResult, error) {
	if _, err := costing.AdjustPrice(decimal.Zero, req.Mode, req.Value); err != nil {
		return domain.BulkResult{}, err
	}
	reason := strings.TrimSpace(req.Reason)

	result := newBulkResult()
	for i, recipeID := range uniqueIDs(req.RecipeIDs) {
		result.Processed++

		recipe, err := s.repo.GetRecipe(ctx, businessID, recipeID)
		if err != nil {
			result.fail(i+1, recipeID, err)
			continue
		}
		newPrice, err := costing.AdjustPrice(recipe.SellingPrice, req.Mode, req.Value)
		if err != nil {
			result.fail(i+1, recipeID, err)
			continue
		}
		if newPrice.Equal(recipe.SellingPrice) {
			result.Skipped++
			continue
		}
		if _, _, err := s.applyBasePrice(ctx, *recipe, newPrice, reason); err != nil {
			result.fail(i+1, recipeID, err)
			continue
		}
		result.Updated++
	}

	s.logActivity(ctx, businessID, "recipe_price_bulk", "recipe", "", fmt.Sprintf("mode=%s,value=%s,updated=%d,skipped=%d,failed=%d", req.Mode, req.Value, result.Updated, result.Skipped, result.Failed))
	return result.BulkResult, nil
}

// ImportRecipePrices applies parsed price-manager rows. A blank new price
// leaves the recipe untouched. Prices are rounded like the bulk path and
// must stay above zero like SetSellingPrice.
func (s *Service) ImportRecipePrices(ctx context.Context, businessID string, rows []domain.RecipePriceImportRow) (domain.BulkResult, error) {
	result := newBulkResult()
	for _, row := range rows {
		result.Processed++

		recipeID := strings.TrimSpace(row.RecipeID)
		if recipeID == "" {
			result.fail(row.Line, "", validationf("recipe id is required"))
			continue
		}
		raw := strings.TrimSpace(row.NewPrice)
		if raw == "" {
			result.Skipped++
			continue
		}
		newPrice, err := decimal.NewFromString(raw)
		if err != nil {
			result.fail(row.Line, recipeID, validationf("invalid price %q", raw))
			continue
		}
		newPrice = costing.RoundPrice(newPrice)
		if !newPrice.IsPositive() {
			result.fail(row.Line, recipeID, validationf("selling price must be greater than zero"))
			continue
		}

		recipe, err := s.repo.GetRecipe(ctx, businessID, recipeID)
		if err != nil {
			result.fail(row.Line, recipeID, err)
			continue
		}
		if newPrice.Equal(recipe.SellingPrice) {
			result.Skipped++
			continue
		}

		reason := strings.TrimSpace(row.Reason)
		if reason == "" {
			reason = importReason
		}
		if _, _, err := s.applyBasePrice(ctx, *recipe, newPrice, reason); err != nil {
			result.fail(row.Line, recipeID, err)
			continue
		}
		result.Updated++
	}

	s.logActivity(ctx, businessID, "recipe_price_import", "recipe", "", fmt.Sprintf("processed=%d,updated=%d,skipped=%d,failed=%d", result.Processed, result.Updated, result.Skipped, result.Failed))
	return result.BulkResult, nil
}

func (s *Service) ListRecipePriceHistory(ctx context.Context, businessID string, recipeID string, limit int) ([]domain.RecipePriceHistory, error) {
	if _, err := s.repo.GetRecipe(ctx, businessID, recipeID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListRecipePriceHistory(ctx, businessID, recipeID, limit)
}

// PriceList returns every recipe with its category name for export.
func (s *Service) PriceList(ctx context.Context, businessID string) ([]domain.PriceListEntry, error) {
	recipes, err := s.repo.ListRecipes(ctx, businessID, domain.RecipeFilter{})
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx, businessID, domain.CategoryKindRecipe)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	out := make([]domain.PriceListEntry, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, domain.PriceListEntry{
			RecipeID:       r.ID,
			Name:           r.Name,
			SKU:            r.SKU,
			Description:    r.Description,
			CategoryName:   names[r.CategoryID],
			CogsPerServing: r.CogsPerServing,
			SellingPrice:   r.SellingPrice,
			ProfitMargin:   r.ProfitMargin,
		})
	}
	return out, nil
}
