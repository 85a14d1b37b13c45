package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/costing"
	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store"
	"hitunghpp/backend/internal/xid"
)

func (s *Service) ListRecipes(ctx context.Context, businessID string, filter domain.RecipeFilter) ([]domain.Recipe, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.ListRecipes(ctx, businessID, filter)
}

func (s *Service) GetRecipe(ctx context.Context, businessID string, recipeID string) (domain.Recipe, error) {
	r, err := s.repo.GetRecipe(ctx, businessID, recipeID)
	if err != nil {
		return domain.Recipe{}, err
	}
	return *r, nil
}

func (s *Service) CreateRecipe(ctx context.Context, businessID string, req domain.RecipeCreateRequest) (domain.Recipe, error) {
	name, err := requiredName(req.Name, "recipe")
	if err != nil {
		return domain.Recipe{}, err
	}
	if req.SellingPrice.IsNegative() {
		return domain.Recipe{}, validationf("selling price must not be negative")
	}
	input := costing.RollupInput{
		Yield:                 req.Yield,
		Ingredients:           req.Ingredients,
		SubRecipes:            req.SubRecipes,
		LaborCost:             req.LaborCost,
		OperationalCost:       req.OperationalCost,
		PackagingCost:         req.PackagingCost,
		CanBeUsedAsIngredient: req.CanBeUsedAsIngredient,
	}
	if err := costing.ValidateRollupInput(input); err != nil {
		return domain.Recipe{}, err
	}
	if err := s.checkRecipeCategory(ctx, s.repo, businessID, req.CategoryID); err != nil {
		return domain.Recipe{}, err
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		sku = s.allocateSku(ctx, businessID, domain.SkuRecipe)
	}

	now := s.now()
	recipe := domain.Recipe{
		ID:                    xid.New("rcp"),
		BusinessID:            businessID,
		Name:                  name,
		Description:           strings.TrimSpace(req.Description),
		SKU:                   sku,
		Yield:                 req.Yield,
		LaborCost:             req.LaborCost,
		OperationalCost:       req.OperationalCost,
		PackagingCost:         req.PackagingCost,
		CanBeUsedAsIngredient: req.CanBeUsedAsIngredient,
		SellingPrice:          req.SellingPrice,
		IsFavorite:            req.IsFavorite,
		CategoryID:            req.CategoryID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	var created *domain.Recipe
	err = s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if err := s.computeRecipe(ctx, repo, &recipe, input); err != nil {
			return err
		}
		var err error
		created, err = repo.CreateRecipe(ctx, recipe)
		return err
	})
	if err != nil {
		return domain.Recipe{}, err
	}

	s.logActivity(ctx, businessID, "recipe_create", "recipe", created.ID, fmt.Sprintf("name=%s,total_cogs=%s,cogs_per_serving=%s", created.Name, created.TotalCOGS, created.CogsPerServing))
	return *created, nil
}

func (s *Service) UpdateRecipe(ctx context.Context, businessID string, recipeID string, req domain.RecipeUpdateRequest) (domain.Recipe, error) {
	var saved *domain.Recipe
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		existing, err := repo.GetRecipe(ctx, businessID, recipeID)
		if err != nil {
			return err
		}

		updated := *existing
		input := recipeInput(updated)
		if req.Name != nil {
			name, err := requiredName(*req.Name, "recipe")
			if err != nil {
				return err
			}
			updated.Name = name
		}
		if req.Description != nil {
			updated.Description = strings.TrimSpace(*req.Description)
		}
		if req.SKU != nil {
			updated.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
		}
		if req.Yield != nil {
			updated.Yield = *req.Yield
			input.Yield = *req.Yield
		}
		if req.Ingredients != nil {
			input.Ingredients = *req.Ingredients
		}
		if req.SubRecipes != nil {
			input.SubRecipes = *req.SubRecipes
		}
		if req.LaborCost != nil {
			updated.LaborCost = *req.LaborCost
			input.LaborCost = *req.LaborCost
		}
		if req.OperationalCost != nil {
			updated.OperationalCost = *req.OperationalCost
			input.OperationalCost = *req.OperationalCost
		}
		if req.PackagingCost != nil {
			updated.PackagingCost = *req.PackagingCost
			input.PackagingCost = *req.PackagingCost
		}
		if req.CanBeUsedAsIngredient != nil {
			if existing.CanBeUsedAsIngredient && !*req.CanBeUsedAsIngredient {
				parents, err := repo.ListParentRecipeIDs(ctx, businessID, recipeID)
				if err != nil {
					return err
				}
				if len(parents) > 0 {
					return fmt.Errorf("%w: recipe is used as a sub-recipe by %s", domain.ErrConflict, strings.Join(parents, ", "))
				}
			}
			updated.CanBeUsedAsIngredient = *req.CanBeUsedAsIngredient
			input.CanBeUsedAsIngredient = *req.CanBeUsedAsIngredient
		}
		if req.CategoryID != nil {
			if err := s.checkRecipeCategory(ctx, repo, businessID, *req.CategoryID); err != nil {
				return err
			}
			updated.CategoryID = *req.CategoryID
		}

		if err := costing.ValidateRollupInput(input); err != nil {
			return err
		}
		if err := s.computeRecipe(ctx, repo, &updated, input); err != nil {
			return err
		}
		updated.UpdatedAt = s.now()
		saved, err = repo.UpdateRecipe(ctx, updated)
		return err
	})
	if err != nil {
		return domain.Recipe{}, err
	}

	s.logActivity(ctx, businessID, "recipe_update", "recipe", saved.ID, fmt.Sprintf("total_cogs=%s,cogs_per_serving=%s", saved.TotalCOGS, saved.CogsPerServing))
	return *saved, nil
}

// computeRecipe refreshes line snapshots and derived totals on recipe
// from the current ingredient and sub-recipe costs in repo. It rejects
// sub-recipe cycles and sub-recipes not flagged as usable.
func (s *Service) computeRecipe(ctx context.Context, repo store.Repository, recipe *domain.Recipe, in costing.RollupInput) error {
	ingredientIDs := make([]string, 0, len(in.Ingredients))
	for _, line := range in.Ingredients {
		ingredientIDs = append(ingredientIDs, line.IngredientID)
	}
	ingredients, err := repo.GetIngredientsByIDs(ctx, recipe.BusinessID, ingredientIDs)
	if err != nil {
		return err
	}
	ingredientCosts := make(map[string]decimal.Decimal, len(ingredients))
	for id, ing := range ingredients {
		ingredientCosts[id] = ing.CostPerUnit
	}

	subIDs := make([]string, 0, len(in.SubRecipes))
	for _, line := range in.SubRecipes {
		subIDs = append(subIDs, line.SubRecipeID)
	}

	if len(subIDs) > 0 {
		edges, err := repo.ListSubRecipeEdges(ctx, recipe.BusinessID)
		if err != nil {
			return err
		}
		edges[recipe.ID] = subIDs
		if cycle := costing.FindCycle(recipe.ID, func(id string) []string { return edges[id] }); cycle != nil {
			return validationf("sub-recipe cycle: %s", strings.Join(cycle, " -> "))
		}
	}

	subs, err := repo.GetRecipesByIDs(ctx, recipe.BusinessID, subIDs)
	if err != nil {
		return err
	}
	subCosts := make(map[string]decimal.Decimal, len(subs))
	for id, sub := range subs {
		if !sub.CanBeUsedAsIngredient {
			return validationf("recipe %s cannot be used as an ingredient", id)
		}
		subCosts[id] = sub.CogsPerServing
	}

	result, err := costing.Rollup(in, ingredientCosts, subCosts)
	if err != nil {
		return err
	}

	recipe.Yield = in.Yield
	recipe.LaborCost = in.LaborCost
	recipe.OperationalCost = in.OperationalCost
	recipe.PackagingCost = in.PackagingCost
	recipe.CanBeUsedAsIngredient = in.CanBeUsedAsIngredient
	recipe.Ingredients = result.Ingredients
	recipe.SubRecipes = result.SubRecipes
	recipe.TotalCOGS = result.TotalCOGS
	recipe.CogsPerServing = result.CogsPerServing
	recipe.CostPerUnit = result.CostPerUnit
	recipe.ProfitMargin = costing.ProfitMargin(recipe.SellingPrice, recipe.CogsPerServing)
	return nil
}

func recipeInput(r domain.Recipe) costing.RollupInput {
	in := costing.RollupInput{
		Yield:                 r.Yield,
		Ingredients:           make([]domain.RecipeIngredientInput, 0, len(r.Ingredients)),
		SubRecipes:            make([]domain.RecipeSubRecipeInput, 0, len(r.SubRecipes)),
		LaborCost:             r.LaborCost,
		OperationalCost:       r.OperationalCost,
		PackagingCost:         r.PackagingCost,
		CanBeUsedAsIngredient: r.CanBeUsedAsIngredient,
	}
	for _, line := range r.Ingredients {
		in.Ingredients = append(in.Ingredients, domain.RecipeIngredientInput{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			UnitID:       line.UnitID,
		})
	}
	for _, line := range r.SubRecipes {
		in.SubRecipes = append(in.SubRecipes, domain.RecipeSubRecipeInput{
			SubRecipeID: line.SubRecipeID,
			Quantity:    line.Quantity,
		})
	}
	return in
}

func (s *Service) checkRecipeCategory(ctx context.Context, repo store.Repository, businessID string, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	category, err := repo.GetCategory(ctx, businessID, categoryID)
	if err != nil {
		return err
	}
	if category.Kind != domain.CategoryKindRecipe {
		return validationf("category %s is not a recipe category", categoryID)
	}
	return nil
}

// RecalculateDependents re-saves every recipe that depends on the given
// ingredient or recipe, children before parents, so each parent picks up
// the fresh cost of its sub-recipes. A recipe source is re-saved itself.
func (s *Service) RecalculateDependents(ctx context.Context, businessID string, req domain.RecalculateRequest) (domain.RecalculateResult, error) {
	if (req.IngredientID == "") == (req.RecipeID == "") {
		return domain.RecalculateResult{}, validationf("exactly one of ingredient_id or recipe_id is required")
	}

	result := domain.RecalculateResult{RecipeIDs: []string{}}
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		var seeds []string
		if req.IngredientID != "" {
			if _, err := repo.GetIngredient(ctx, businessID, req.IngredientID); err != nil {
				return err
			}
			ids, err := repo.ListRecipeIDsUsingIngredient(ctx, businessID, req.IngredientID)
			if err != nil {
				return err
			}
			seeds = ids
		} else {
			if _, err := repo.GetRecipe(ctx, businessID, req.RecipeID); err != nil {
				return err
			}
			seeds = []string{req.RecipeID}
		}

		affected, err := collectAncestors(ctx, repo, businessID, seeds)
		if err != nil {
			return err
		}
		edges, err := repo.ListSubRecipeEdges(ctx, businessID)
		if err != nil {
			return err
		}

		now := s.now()
		for _, id := range costing.DependencyOrder(affected, func(id string) []string { return edges[id] }) {
			recipe, err := repo.GetRecipe(ctx, businessID, id)
			if err != nil {
				return err
			}
			if err := s.computeRecipe(ctx, repo, recipe, recipeInput(*recipe)); err != nil {
				return fmt.Errorf("recalculate %s: %w", id, err)
			}
			recipe.UpdatedAt = now
			if _, err := repo.UpdateRecipe(ctx, *recipe); err != nil {
				return err
			}
			result.RecipeIDs = append(result.RecipeIDs, id)
		}
		return nil
	})
	if err != nil {
		return domain.RecalculateResult{}, err
	}

	result.Recalculated = len(result.RecipeIDs)
	source := "ingredient/" + req.IngredientID
	if req.RecipeID != "" {
		source = "recipe/" + req.RecipeID
	}
	s.logActivity(ctx, businessID, "recipe_recalculate", "recipe", strings.Join(result.RecipeIDs, ","), fmt.Sprintf("source=%s,count=%d", source, result.Recalculated))
	return result, nil
}

func collectAncestors(ctx context.Context, repo store.Repository, businessID string, seeds []string) ([]string, error) {
	seen := make(map[string]struct{}, len(seeds))
	out := make([]string, 0, len(seeds))
	queue := append([]string{}, seeds...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)

		parents, err := repo.ListParentRecipeIDs(ctx, businessID, id)
		if err != nil {
			return nil, err
		}
		queue = append(queue, parents...)
	}
	return out, nil
}

func (s *Service) ToggleFavorite(ctx context.Context, businessID string, recipeID string) (domain.Recipe, error) {
	var saved *domain.Recipe
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		recipe, err := repo.GetRecipe(ctx, businessID, recipeID)
		if err != nil {
			return err
		}
		recipe.IsFavorite = !recipe.IsFavorite
		recipe.UpdatedAt = s.now()
		saved, err = repo.UpdateRecipe(ctx, *recipe)
		return err
	})
	if err != nil {
		return domain.Recipe{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteRecipe(ctx context.Context, businessID string, recipeID string) error {
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetRecipe(ctx, businessID, recipeID); err != nil {
			return err
		}
		parents, err := repo.ListParentRecipeIDs(ctx, businessID, recipeID)
		if err != nil {
			return err
		}
		if len(parents) > 0 {
			return fmt.Errorf("%w: recipe is used as a sub-recipe by %s", domain.ErrConflict, strings.Join(parents, ", "))
		}
		return repo.DeleteRecipe(ctx, businessID, recipeID)
	})
	if err != nil {
		return err
	}

	s.logActivity(ctx, businessID, "recipe_delete", "recipe", recipeID, "")
	return nil
}

// DuplicateRecipe copies a recipe with fresh cost snapshots and a new SKU.
func (s *Service) DuplicateRecipe(ctx context.Context, businessID string, recipeID string) (domain.Recipe, error) {
	source, err := s.repo.GetRecipe(ctx, businessID, recipeID)
	if err != nil {
		return domain.Recipe{}, err
	}

	now := s.now()
	copied := *source
	copied.ID = xid.New("rcp")
	copied.Name = source.Name + " (Copy)"
	copied.SKU = s.allocateSku(ctx, businessID, domain.SkuRecipe)
	copied.IsFavorite = false
	copied.CreatedAt = now
	copied.UpdatedAt = now

	var created *domain.Recipe
	err = s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if err := s.computeRecipe(ctx, repo, &copied, recipeInput(*source)); err != nil {
			return err
		}
		var err error
		created, err = repo.CreateRecipe(ctx, copied)
		return err
	})
	if err != nil {
		return domain.Recipe{}, err
	}

	s.logActivity(ctx, businessID, "recipe_duplicate", "recipe", created.ID, "source="+recipeID)
	return *created, nil
}

// GetCostBreakdown explains a recipe's stored COGS line by line.
func (s *Service) GetCostBreakdown(ctx context.Context, businessID string, recipeID string) (domain.CostBreakdown, error) {
	recipe, err := s.repo.GetRecipe(ctx, businessID, recipeID)
	if err != nil {
		return domain.CostBreakdown{}, err
	}

	ingredientIDs := make([]string, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		ingredientIDs = append(ingredientIDs, line.IngredientID)
	}
	ingredients, err := s.repo.GetIngredientsByIDs(ctx, businessID, ingredientIDs)
	if err != nil {
		return domain.CostBreakdown{}, err
	}
	subIDs := make([]string, 0, len(recipe.SubRecipes))
	for _, line := range recipe.SubRecipes {
		subIDs = append(subIDs, line.SubRecipeID)
	}
	subs, err := s.repo.GetRecipesByIDs(ctx, businessID, subIDs)
	if err != nil {
		return domain.CostBreakdown{}, err
	}

	out := domain.CostBreakdown{
		RecipeID:       recipe.ID,
		RecipeName:     recipe.Name,
		Yield:          recipe.Yield,
		TotalCOGS:      recipe.TotalCOGS,
		CogsPerServing: recipe.CogsPerServing,
		Lines:          make([]domain.CostBreakdownLine, 0, len(recipe.Ingredients)+len(recipe.SubRecipes)+3),
	}
	for _, line := range recipe.Ingredients {
		name := line.IngredientID
		if ing, ok := ingredients[line.IngredientID]; ok {
			name = ing.Name
		}
		out.Lines = append(out.Lines, domain.CostBreakdownLine{
			Kind:     domain.BreakdownIngredient,
			RefID:    line.IngredientID,
			Name:     name,
			Quantity: line.Quantity,
			Cost:     line.Cost,
			Share:    costing.Share(line.Cost, recipe.TotalCOGS),
		})
	}
	for _, line := range recipe.SubRecipes {
		name := line.SubRecipeID
		if sub, ok := subs[line.SubRecipeID]; ok {
			name = sub.Name
		}
		out.Lines = append(out.Lines, domain.CostBreakdownLine{
			Kind:     domain.BreakdownSubRecipe,
			RefID:    line.SubRecipeID,
			Name:     name,
			Quantity: line.Quantity,
			Cost:     line.Cost,
			Share:    costing.Share(line.Cost, recipe.TotalCOGS),
		})
	}
	for _, fixed := range []struct {
		kind string
		name string
		cost decimal.Decimal
	}{
		{domain.BreakdownLabor, "Labor", recipe.LaborCost},
		{domain.BreakdownOperational, "Operational", recipe.OperationalCost},
		{domain.BreakdownPackaging, "Packaging", recipe.PackagingCost},
	} {
		if fixed.cost.IsZero() {
			continue
		}
		out.Lines = append(out.Lines, domain.CostBreakdownLine{
			Kind:     fixed.kind,
			Name:     fixed.name,
			Quantity: decimal.NewFromInt(1),
			Cost:     fixed.cost,
			Share:    costing.Share(fixed.cost, recipe.TotalCOGS),
		})
	}
	return out, nil
}
