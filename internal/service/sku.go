package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"hitunghpp/backend/internal/costing"
	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/logging"
	"hitunghpp/backend/internal/store"
)

// GenerateSku allocates the next SKU for kind. The repository counter is
// incremented atomically; the optional distributed lock only narrows
// contention between processes.
func (s *Service) GenerateSku(ctx context.Context, businessID string, kind string) (string, error) {
	if kind != domain.SkuIngredient && kind != domain.SkuRecipe {
		return "", validationf("unknown sku type %q", kind)
	}

	release, err := s.locker.LockSku(ctx, businessID, kind)
	if err != nil {
		logging.LogWarn(s.logger, module, "GenerateSku", "obtain sku lock; proceeding without it", logrus.Fields{
			"business_id": businessID,
			"kind":        kind,
		}, err)
		release = nil
	}
	defer func() {
		if release == nil {
			return
		}
		if releaseErr := release(ctx); releaseErr != nil {
			logging.LogWarn(s.logger, module, "GenerateSku", "release sku lock", nil, releaseErr)
		}
	}()

	// Runs outside WithinTx: under serializable isolation two overlapping
	// counter bumps abort with a serialization failure.
	sku, err := s.nextSku(ctx, businessID, kind)
	s.metrics.SkuAllocated(kind, err == nil)
	if err != nil {
		return "", err
	}
	return sku, nil
}

func (s *Service) nextSku(ctx context.Context, businessID string, kind string) (string, error) {
	number, err := s.repo.NextSkuNumber(ctx, businessID, kind)
	if err != nil {
		return "", err
	}
	settings, err := s.repo.GetSkuSettings(ctx, businessID)
	if err != nil {
		return "", err
	}
	prefix := settings.IngredientPrefix
	if kind == domain.SkuRecipe {
		prefix = settings.RecipePrefix
	}
	return costing.FormatSku(prefix, settings.Separator, settings.NumberPadding, number), nil
}

// allocateSku never fails the caller: an entity without SKU can be
// backfilled later.
func (s *Service) allocateSku(ctx context.Context, businessID string, kind string) string {
	sku, err := s.GenerateSku(ctx, businessID, kind)
	if err != nil {
		logging.LogWarn(s.logger, module, "allocateSku", "generate sku; saving without one", logrus.Fields{
			"business_id": businessID,
			"kind":        kind,
		}, err)
		return ""
	}
	return sku
}

func (s *Service) GetSkuSettings(ctx context.Context, businessID string) (domain.SkuSettings, error) {
	settings, err := s.repo.GetSkuSettings(ctx, businessID)
	if err != nil {
		return domain.SkuSettings{}, err
	}
	return *settings, nil
}

func (s *Service) UpdateSkuSettings(ctx context.Context, businessID string, req domain.SkuSettingsUpdateRequest) (domain.SkuSettings, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.SkuSettings{}, err
	}

	var saved *domain.SkuSettings
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		current, err := repo.GetSkuSettings(ctx, businessID)
		if err != nil {
			return err
		}

		next := *current
		next.BusinessID = businessID
		if req.IngredientPrefix != nil {
			prefix := strings.ToUpper(strings.TrimSpace(*req.IngredientPrefix))
			if prefix == "" {
				return validationf("ingredient prefix is required")
			}
			next.IngredientPrefix = prefix
		}
		if req.RecipePrefix != nil {
			prefix := strings.ToUpper(strings.TrimSpace(*req.RecipePrefix))
			if prefix == "" {
				return validationf("recipe prefix is required")
			}
			next.RecipePrefix = prefix
		}
		if req.NumberPadding != nil {
			if *req.NumberPadding < 1 || *req.NumberPadding > 12 {
				return validationf("number padding must be between 1 and 12")
			}
			next.NumberPadding = *req.NumberPadding
		}
		if req.Separator != nil {
			next.Separator = strings.TrimSpace(*req.Separator)
		}

		saved, err = repo.UpsertSkuSettings(ctx, next)
		return err
	})
	if err != nil {
		return domain.SkuSettings{}, err
	}

	s.logActivity(ctx, businessID, "sku_settings_update", "settings", "sku", saved.IngredientPrefix+"/"+saved.RecipePrefix)
	return *saved, nil
}

// BackfillSkus assigns SKUs to every ingredient and recipe still missing
// one, oldest first.
func (s *Service) BackfillSkus(ctx context.Context, businessID string) (domain.SkuBackfillResponse, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.SkuBackfillResponse{}, err
	}

	var resp domain.SkuBackfillResponse

	ingredients, err := s.repo.ListIngredients(ctx, businessID, domain.IngredientFilter{})
	if err != nil {
		return resp, err
	}
	sortByCreated(ingredients, func(i domain.Ingredient) int64 { return i.CreatedAt.UnixNano() })
	for _, ing := range ingredients {
		if ing.SKU != "" {
			continue
		}
		sku, err := s.GenerateSku(ctx, businessID, domain.SkuIngredient)
		if err != nil {
			return resp, err
		}
		ing.SKU = sku
		ing.UpdatedAt = s.now()
		if _, err := s.repo.UpdateIngredient(ctx, ing); err != nil {
			return resp, err
		}
		resp.Ingredients++
	}

	recipes, err := s.repo.ListRecipes(ctx, businessID, domain.RecipeFilter{})
	if err != nil {
		return resp, err
	}
	sortByCreated(recipes, func(r domain.Recipe) int64 { return r.CreatedAt.UnixNano() })
	for _, r := range recipes {
		if r.SKU != "" {
			continue
		}
		sku, err := s.GenerateSku(ctx, businessID, domain.SkuRecipe)
		if err != nil {
			return resp, err
		}
		r.SKU = sku
		r.UpdatedAt = s.now()
		if _, err := s.repo.UpdateRecipe(ctx, r); err != nil {
			return resp, err
		}
		resp.Recipes++
	}

	s.logActivity(ctx, businessID, "sku_backfill", "settings", "sku", fmt.Sprintf("ingredients=%d,recipes=%d", resp.Ingredients, resp.Recipes))
	return resp, nil
}
