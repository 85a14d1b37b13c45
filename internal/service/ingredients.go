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
	"hitunghpp/backend/internal/store"
	"hitunghpp/backend/internal/xid"
)

func (s *Service) ListIngredients(ctx context.Context, businessID string, filter domain.IngredientFilter) ([]domain.Ingredient, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.ListIngredients(ctx, businessID, filter)
}

func (s *Service) GetIngredient(ctx context.Context, businessID string, ingredientID string) (domain.Ingredient, error) {
	ing, err := s.repo.GetIngredient(ctx, businessID, ingredientID)
	if err != nil {
		return domain.Ingredient{}, err
	}
	return *ing, nil
}

func (s *Service) CreateIngredient(ctx context.Context, businessID string, req domain.IngredientCreateRequest) (domain.Ingredient, error) {
	name, err := requiredName(req.Name, "ingredient")
	if err != nil {
		return domain.Ingredient{}, err
	}
	costPerUnit, err := costing.CostPerUnit(req.PurchasePrice, req.PackageSize, req.ConversionFactor)
	if err != nil {
		return domain.Ingredient{}, err
	}
	if err := s.checkIngredientRefs(ctx, s.repo, businessID, req.PurchaseUnitID, req.UsageUnitID, req.CategoryID); err != nil {
		return domain.Ingredient{}, err
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		sku = s.allocateSku(ctx, businessID, domain.SkuIngredient)
	}

	now := s.now()
	created, err := s.repo.CreateIngredient(ctx, domain.Ingredient{
		ID:               xid.New("ing"),
		BusinessID:       businessID,
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		SKU:              sku,
		PurchasePrice:    req.PurchasePrice,
		PackageSize:      req.PackageSize,
		ConversionFactor: req.ConversionFactor,
		CostPerUnit:      costPerUnit,
		PurchaseUnitID:   req.PurchaseUnitID,
		UsageUnitID:      req.UsageUnitID,
		CategoryID:       req.CategoryID,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return domain.Ingredient{}, err
	}

	s.logActivity(ctx, businessID, "ingredient_create", "ingredient", created.ID, fmt.Sprintf("name=%s,price=%s,cost_per_unit=%s", created.Name, created.PurchasePrice, created.CostPerUnit))
	return *created, nil
}

func (s *Service) UpdateIngredient(ctx context.Context, businessID string, ingredientID string, req domain.IngredientUpdateRequest) (domain.Ingredient, error) {
	existing, err := s.repo.GetIngredient(ctx, businessID, ingredientID)
	if err != nil {
		return domain.Ingredient{}, err
	}

	updated := *existing
	if req.Name != nil {
		name, err := requiredName(*req.Name, "ingredient")
		if err != nil {
			return domain.Ingredient{}, err
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.SKU != nil {
		updated.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
	}
	if req.PurchasePrice != nil {
		updated.PurchasePrice = *req.PurchasePrice
	}
	if req.PackageSize != nil {
		updated.PackageSize = *req.PackageSize
	}
	if req.ConversionFactor != nil {
		updated.ConversionFactor = *req.ConversionFactor
	}
	if req.PurchaseUnitID != nil {
		updated.PurchaseUnitID = *req.PurchaseUnitID
	}
	if req.UsageUnitID != nil {
		updated.UsageUnitID = *req.UsageUnitID
	}
	if req.CategoryID != nil {
		updated.CategoryID = *req.CategoryID
	}

	updated.CostPerUnit, err = costing.CostPerUnit(updated.PurchasePrice, updated.PackageSize, updated.ConversionFactor)
	if err != nil {
		return domain.Ingredient{}, err
	}
	if err := s.checkIngredientRefs(ctx, s.repo, businessID, updated.PurchaseUnitID, updated.UsageUnitID, updated.CategoryID); err != nil {
		return domain.Ingredient{}, err
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateIngredient(ctx, updated)
	if err != nil {
		return domain.Ingredient{}, err
	}

	if !existing.PurchasePrice.Equal(saved.PurchasePrice) {
		s.recordIngredientPriceChange(ctx, businessID, saved.ID, existing.PurchasePrice, saved.PurchasePrice)
	}

	s.logActivity(ctx, businessID, "ingredient_update", "ingredient", saved.ID, fmt.Sprintf("price=%s,cost_per_unit=%s", saved.PurchasePrice, saved.CostPerUnit))
	return *saved, nil
}

// recordIngredientPriceChange appends history after the ingredient itself
// is saved. A failure here is logged and never undoes the update.
func (s *Service) recordIngredientPriceChange(ctx context.Context, businessID string, ingredientID string, oldPrice, newPrice decimal.Decimal) {
	entry := domain.IngredientPriceHistory{
		ID:               xid.New("iph"),
		BusinessID:       businessID,
		IngredientID:     ingredientID,
		PriceChangeEvent: costing.NewPriceChange(oldPrice, newPrice, s.now()),
	}
	if err := s.repo.CreateIngredientPriceHistory(ctx, entry); err != nil {
		logging.LogWarn(s.logger, module, "recordIngredientPriceChange", "write ingredient price history", logrus.Fields{
			"ingredient_id": ingredientID,
			"old_price":     oldPrice.String(),
			"new_price":     newPrice.String(),
		}, err)
		return
	}
	s.metrics.PriceChanged(priceKindIngredient)
}

func (s *Service) DeleteIngredient(ctx context.Context, businessID string, ingredientID string) error {
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetIngredient(ctx, businessID, ingredientID); err != nil {
			return err
		}
		users, err := repo.ListRecipeIDsUsingIngredient(ctx, businessID, ingredientID)
		if err != nil {
			return err
		}
		if len(users) > 0 {
			return fmt.Errorf("%w: ingredient is used by %d recipe(s): %s", domain.ErrConflict, len(users), strings.Join(users, ", "))
		}
		return repo.DeleteIngredient(ctx, businessID, ingredientID)
	})
	if err != nil {
		return err
	}

	s.logActivity(ctx, businessID, "ingredient_delete", "ingredient", ingredientID, "")
	return nil
}

func (s *Service) ListIngredientPriceHistory(ctx context.Context, businessID string, ingredientID string, limit int) ([]domain.IngredientPriceHistory, error) {
	if _, err := s.repo.GetIngredient(ctx, businessID, ingredientID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListIngredientPriceHistory(ctx, businessID, ingredientID, limit)
}

func (s *Service) checkIngredientRefs(ctx context.Context, repo store.Repository, businessID string, purchaseUnitID string, usageUnitID string, categoryID string) error {
	for _, unitID := range []string{purchaseUnitID, usageUnitID} {
		if unitID == "" {
			continue
		}
		if _, err := repo.GetUnit(ctx, businessID, unitID); err != nil {
			return err
		}
	}
	if categoryID != "" {
		category, err := repo.GetCategory(ctx, businessID, categoryID)
		if err != nil {
			return err
		}
		if category.Kind != domain.CategoryKindIngredient {
			return validationf("category %s is not an ingredient category", categoryID)
		}
	}
	return nil
}
