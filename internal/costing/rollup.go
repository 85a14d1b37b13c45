package costing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
)

type RollupInput struct {
	Yield                 decimal.Decimal
	Ingredients           []domain.RecipeIngredientInput
	SubRecipes            []domain.RecipeSubRecipeInput
	LaborCost             decimal.Decimal
	OperationalCost       decimal.Decimal
	PackagingCost         decimal.Decimal
	CanBeUsedAsIngredient bool
}

type RollupResult struct {
	Ingredients     []domain.RecipeIngredient
	SubRecipes      []domain.RecipeSubRecipe
	IngredientsCost decimal.Decimal
	SubRecipesCost  decimal.Decimal
	TotalCOGS       decimal.Decimal
	CogsPerServing  decimal.Decimal
	CostPerUnit     decimal.Decimal
}

// Rollup computes recipe COGS from current unit costs. ingredientCosts maps
// ingredient id to costPerUnit and subRecipeCosts maps recipe id to
// cogsPerServing. Line costs in the result are the snapshot to persist.
func Rollup(in RollupInput, ingredientCosts map[string]decimal.Decimal, subRecipeCosts map[string]decimal.Decimal) (RollupResult, error) {
	if err := ValidateRollupInput(in); err != nil {
		return RollupResult{}, err
	}

	out := RollupResult{
		Ingredients: make([]domain.RecipeIngredient, 0, len(in.Ingredients)),
		SubRecipes:  make([]domain.RecipeSubRecipe, 0, len(in.SubRecipes)),
	}

	for _, line := range in.Ingredients {
		unitCost, ok := ingredientCosts[line.IngredientID]
		if !ok {
			return RollupResult{}, fmt.Errorf("%w: ingredient %s", domain.ErrNotFound, line.IngredientID)
		}
		cost := unitCost.Mul(line.Quantity)
		out.IngredientsCost = out.IngredientsCost.Add(cost)
		out.Ingredients = append(out.Ingredients, domain.RecipeIngredient{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			UnitID:       line.UnitID,
			Cost:         cost,
		})
	}

	for _, line := range in.SubRecipes {
		perServing, ok := subRecipeCosts[line.SubRecipeID]
		if !ok {
			return RollupResult{}, fmt.Errorf("%w: sub-recipe %s", domain.ErrNotFound, line.SubRecipeID)
		}
		cost := perServing.Mul(line.Quantity)
		out.SubRecipesCost = out.SubRecipesCost.Add(cost)
		out.SubRecipes = append(out.SubRecipes, domain.RecipeSubRecipe{
			SubRecipeID: line.SubRecipeID,
			Quantity:    line.Quantity,
			Cost:        cost,
		})
	}

	out.TotalCOGS = out.IngredientsCost.
		Add(out.SubRecipesCost).
		Add(in.LaborCost).
		Add(in.OperationalCost).
		Add(in.PackagingCost)
	out.CogsPerServing = out.TotalCOGS.Div(in.Yield)
	if in.CanBeUsedAsIngredient {
		out.CostPerUnit = out.CogsPerServing
	}
	return out, nil
}

// ValidateRollupInput rejects bad numbers before any lookup happens.
func ValidateRollupInput(in RollupInput) error {
	if !in.Yield.IsPositive() {
		return fmt.Errorf("%w: yield must be greater than zero", domain.ErrValidation)
	}
	if in.LaborCost.IsNegative() || in.OperationalCost.IsNegative() || in.PackagingCost.IsNegative() {
		return fmt.Errorf("%w: fixed costs must not be negative", domain.ErrValidation)
	}

	seenIngredients := make(map[string]struct{}, len(in.Ingredients))
	for _, line := range in.Ingredients {
		if line.IngredientID == "" {
			return fmt.Errorf("%w: ingredient line without ingredient_id", domain.ErrValidation)
		}
		if !line.Quantity.IsPositive() {
			return fmt.Errorf("%w: quantity for ingredient %s must be greater than zero", domain.ErrValidation, line.IngredientID)
		}
		if _, dup := seenIngredients[line.IngredientID]; dup {
			return fmt.Errorf("%w: ingredient %s listed twice", domain.ErrValidation, line.IngredientID)
		}
		seenIngredients[line.IngredientID] = struct{}{}
	}

	seenSubs := make(map[string]struct{}, len(in.SubRecipes))
	for _, line := range in.SubRecipes {
		if line.SubRecipeID == "" {
			return fmt.Errorf("%w: sub-recipe line without sub_recipe_id", domain.ErrValidation)
		}
		if !line.Quantity.IsPositive() {
			return fmt.Errorf("%w: quantity for sub-recipe %s must be greater than zero", domain.ErrValidation, line.SubRecipeID)
		}
		if _, dup := seenSubs[line.SubRecipeID]; dup {
			return fmt.Errorf("%w: sub-recipe %s listed twice", domain.ErrValidation, line.SubRecipeID)
		}
		seenSubs[line.SubRecipeID] = struct{}{}
	}
	return nil
}
