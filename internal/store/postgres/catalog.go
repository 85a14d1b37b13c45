package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store"
)

const ingredientColumns = `
	id, business_id, name, description, sku, purchase_price, package_size, conversion_factor,
	cost_per_unit, purchase_unit_id, usage_unit_id, category_id, created_at, updated_at`

const recipeColumns = `
	id, business_id, name, description, sku, yield, labor_cost, operational_cost, packaging_cost,
	total_cogs, cogs_per_serving, can_be_used_as_ingredient, cost_per_unit, selling_price,
	profit_margin, is_favorite, category_id, created_at, updated_at`

func scanIngredient(sc scanner) (domain.Ingredient, error) {
	var ing domain.Ingredient
	var purchaseUnit, usageUnit, category sql.NullString
	err := sc.Scan(
		&ing.ID, &ing.BusinessID, &ing.Name, &ing.Description, &ing.SKU,
		&ing.PurchasePrice, &ing.PackageSize, &ing.ConversionFactor, &ing.CostPerUnit,
		&purchaseUnit, &usageUnit, &category, &ing.CreatedAt, &ing.UpdatedAt,
	)
	if err != nil {
		return ing, err
	}
	ing.PurchaseUnitID = purchaseUnit.String
	ing.UsageUnitID = usageUnit.String
	ing.CategoryID = category.String
	ing.CreatedAt = ing.CreatedAt.UTC()
	ing.UpdatedAt = ing.UpdatedAt.UTC()
	return ing, nil
}

func scanRecipe(sc scanner) (domain.Recipe, error) {
	var r domain.Recipe
	var category sql.NullString
	err := sc.Scan(
		&r.ID, &r.BusinessID, &r.Name, &r.Description, &r.SKU, &r.Yield,
		&r.LaborCost, &r.OperationalCost, &r.PackagingCost, &r.TotalCOGS, &r.CogsPerServing,
		&r.CanBeUsedAsIngredient, &r.CostPerUnit, &r.SellingPrice, &r.ProfitMargin, &r.IsFavorite,
		&category, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}
	r.CategoryID = category.String
	r.Ingredients = []domain.RecipeIngredient{}
	r.SubRecipes = []domain.RecipeSubRecipe{}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func (s *Store) ListIngredients(ctx context.Context, businessID string, filter domain.IngredientFilter) ([]domain.Ingredient, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+ingredientColumns+`
		FROM ingredients
		WHERE business_id = $1
			AND ($2::text = '' OR category_id = $2)
			AND ($3::text = '' OR name ILIKE '%' || $3 || '%' OR sku ILIKE '%' || $3 || '%')
		ORDER BY lower(name) ASC
	`, businessID, filter.CategoryID, filter.Search)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	ingredients := make([]domain.Ingredient, 0, 64)
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, persistence(err)
		}
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return ingredients, nil
}

func (s *Store) GetIngredient(ctx context.Context, businessID string, ingredientID string) (*domain.Ingredient, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+ingredientColumns+`
		FROM ingredients
		WHERE business_id = $1 AND id = $2
	`, businessID, ingredientID)
	ing, err := scanIngredient(row)
	if err != nil {
		return nil, readErr(err, "ingredient", ingredientID)
	}
	return &ing, nil
}

func (s *Store) GetIngredientsByIDs(ctx context.Context, businessID string, ids []string) (map[string]domain.Ingredient, error) {
	result := make(map[string]domain.Ingredient, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+ingredientColumns+`
		FROM ingredients
		WHERE business_id = $1 AND id = ANY($2)
	`, businessID, ids)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, persistence(err)
		}
		result[ing.ID] = ing
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return result, nil
}

// skuTaken enforces SKU uniqueness across ingredients and recipes of one
// business; the partial indexes only cover each table on its own.
func (s *Store) skuTaken(ctx context.Context, businessID string, sku string, exceptID string) (bool, error) {
	if sku == "" {
		return false, nil
	}
	var taken bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ingredients WHERE business_id = $1 AND upper(sku) = upper($2) AND id <> $3
			UNION ALL
			SELECT 1 FROM recipes WHERE business_id = $1 AND upper(sku) = upper($2) AND id <> $3
		)
	`, businessID, sku, exceptID).Scan(&taken)
	if err != nil {
		return false, persistence(err)
	}
	return taken, nil
}

func (s *Store) checkSku(ctx context.Context, businessID string, sku string, exceptID string) error {
	taken, err := s.skuTaken(ctx, businessID, sku, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: sku %s already used", domain.ErrConflict, sku)
	}
	return nil
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if err := s.checkSku(ctx, ingredient.BusinessID, ingredient.SKU, ingredient.ID); err != nil {
		return nil, err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ingredients (
			id, business_id, name, description, sku, purchase_price, package_size, conversion_factor,
			cost_per_unit, purchase_unit_id, usage_unit_id, category_id, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, ingredient.ID, ingredient.BusinessID, ingredient.Name, ingredient.Description, ingredient.SKU,
		ingredient.PurchasePrice, ingredient.PackageSize, ingredient.ConversionFactor, ingredient.CostPerUnit,
		nullIfEmpty(ingredient.PurchaseUnitID), nullIfEmpty(ingredient.UsageUnitID), nullIfEmpty(ingredient.CategoryID),
		ingredient.CreatedAt, ingredient.UpdatedAt)
	if err != nil {
		return nil, writeErr(err, "ingredient "+ingredient.Name)
	}
	return &ingredient, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if err := s.checkSku(ctx, ingredient.BusinessID, ingredient.SKU, ingredient.ID); err != nil {
		return nil, err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE ingredients
		SET name = $3, description = $4, sku = $5, purchase_price = $6, package_size = $7,
			conversion_factor = $8, cost_per_unit = $9, purchase_unit_id = $10, usage_unit_id = $11,
			category_id = $12, updated_at = $13
		WHERE business_id = $1 AND id = $2
	`, ingredient.BusinessID, ingredient.ID, ingredient.Name, ingredient.Description, ingredient.SKU,
		ingredient.PurchasePrice, ingredient.PackageSize, ingredient.ConversionFactor, ingredient.CostPerUnit,
		nullIfEmpty(ingredient.PurchaseUnitID), nullIfEmpty(ingredient.UsageUnitID), nullIfEmpty(ingredient.CategoryID),
		ingredient.UpdatedAt)
	if err != nil {
		return nil, writeErr(err, "ingredient "+ingredient.Name)
	}
	if err := expectAffected(res, "ingredient", ingredient.ID); err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (s *Store) DeleteIngredient(ctx context.Context, businessID string, ingredientID string) error {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM ingredients
		WHERE business_id = $1 AND id = $2
	`, businessID, ingredientID)
	if err != nil {
		return writeErr(err, "ingredient "+ingredientID)
	}
	return expectAffected(res, "ingredient", ingredientID)
}

func (s *Store) ListRecipeIDsUsingIngredient(ctx context.Context, businessID string, ingredientID string) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT ri.recipe_id
		FROM recipe_ingredients ri
		JOIN recipes r ON r.id = ri.recipe_id
		WHERE r.business_id = $1 AND ri.ingredient_id = $2
		ORDER BY ri.recipe_id
	`, businessID, ingredientID)
}

func (s *Store) CreateIngredientPriceHistory(ctx context.Context, entry domain.IngredientPriceHistory) error {
	args := append([]any{entry.ID, entry.BusinessID, entry.IngredientID}, eventArgs(entry.PriceChangeEvent)...)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ingredient_price_history (
			id, business_id, ingredient_id,
			old_price, new_price, price_change, percentage_change, change_type, change_date
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, args...)
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (s *Store) ListIngredientPriceHistory(ctx context.Context, businessID string, ingredientID string, limit int) ([]domain.IngredientPriceHistory, error) {
	limit = clampLimit(limit)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, business_id, ingredient_id,
			old_price, new_price, price_change, percentage_change, change_type, change_date
		FROM ingredient_price_history
		WHERE business_id = $1 AND ingredient_id = $2
		ORDER BY change_date DESC
		LIMIT $3
	`, businessID, ingredientID, limit)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	history := make([]domain.IngredientPriceHistory, 0, limit)
	for rows.Next() {
		var h domain.IngredientPriceHistory
		dest := append([]any{&h.ID, &h.BusinessID, &h.IngredientID}, eventDest(&h.PriceChangeEvent)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, persistence(err)
		}
		h.ChangeDate = h.ChangeDate.UTC()
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return history, nil
}

func (s *Store) ListRecipes(ctx context.Context, businessID string, filter domain.RecipeFilter) ([]domain.Recipe, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes
		WHERE business_id = $1
			AND ($2::text = '' OR category_id = $2)
			AND ($3::text = '' OR name ILIKE '%' || $3 || '%' OR sku ILIKE '%' || $3 || '%')
			AND (NOT $4::boolean OR is_favorite)
			AND (NOT $5::boolean OR can_be_used_as_ingredient)
		ORDER BY lower(name) ASC
	`, businessID, filter.CategoryID, filter.Search, filter.FavoritesOnly, filter.UsableAsIngredient)
	if err != nil {
		return nil, persistence(err)
	}

	recipes := make([]domain.Recipe, 0, 64)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, persistence(err)
		}
		recipes = append(recipes, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}

	if err := s.loadRecipeLines(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *Store) GetRecipe(ctx context.Context, businessID string, recipeID string) (*domain.Recipe, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes
		WHERE business_id = $1 AND id = $2
	`, businessID, recipeID)
	r, err := scanRecipe(row)
	if err != nil {
		return nil, readErr(err, "recipe", recipeID)
	}

	recipes := []domain.Recipe{r}
	if err := s.loadRecipeLines(ctx, recipes); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

func (s *Store) GetRecipesByIDs(ctx context.Context, businessID string, ids []string) (map[string]domain.Recipe, error) {
	result := make(map[string]domain.Recipe, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes
		WHERE business_id = $1 AND id = ANY($2)
	`, businessID, ids)
	if err != nil {
		return nil, persistence(err)
	}

	recipes := make([]domain.Recipe, 0, len(ids))
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, persistence(err)
		}
		recipes = append(recipes, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}

	if err := s.loadRecipeLines(ctx, recipes); err != nil {
		return nil, err
	}
	for _, r := range recipes {
		result[r.ID] = r
	}
	return result, nil
}

// loadRecipeLines fills the line sets of recipes in place. Rows are
// drained before the next query since a transaction allows one open
// result set at a time.
func (s *Store) loadRecipeLines(ctx context.Context, recipes []domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(recipes))
	index := make(map[string]int, len(recipes))
	for i, r := range recipes {
		ids = append(ids, r.ID)
		index[r.ID] = i
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT recipe_id, ingredient_id, quantity, unit_id, cost
		FROM recipe_ingredients
		WHERE recipe_id = ANY($1)
		ORDER BY recipe_id, position
	`, ids)
	if err != nil {
		return persistence(err)
	}
	for rows.Next() {
		var recipeID string
		var line domain.RecipeIngredient
		if err := rows.Scan(&recipeID, &line.IngredientID, &line.Quantity, &line.UnitID, &line.Cost); err != nil {
			rows.Close()
			return persistence(err)
		}
		i := index[recipeID]
		recipes[i].Ingredients = append(recipes[i].Ingredients, line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return persistence(err)
	}

	rows, err = s.q.QueryContext(ctx, `
		SELECT recipe_id, sub_recipe_id, quantity, cost
		FROM recipe_sub_recipes
		WHERE recipe_id = ANY($1)
		ORDER BY recipe_id, position
	`, ids)
	if err != nil {
		return persistence(err)
	}
	defer rows.Close()
	for rows.Next() {
		var recipeID string
		var line domain.RecipeSubRecipe
		if err := rows.Scan(&recipeID, &line.SubRecipeID, &line.Quantity, &line.Cost); err != nil {
			return persistence(err)
		}
		i := index[recipeID]
		recipes[i].SubRecipes = append(recipes[i].SubRecipes, line)
	}
	if err := rows.Err(); err != nil {
		return persistence(err)
	}
	return nil
}

// checkRecipeRefs rejects lines that point at another business's rows;
// foreign keys alone cannot see the business boundary.
func (s *Store) checkRecipeRefs(ctx context.Context, recipe domain.Recipe) error {
	ingredientIDs := make([]string, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		ingredientIDs = append(ingredientIDs, line.IngredientID)
	}
	found, err := s.GetIngredientsByIDs(ctx, recipe.BusinessID, ingredientIDs)
	if err != nil {
		return err
	}
	for _, id := range ingredientIDs {
		if _, ok := found[id]; !ok {
			return notFound("ingredient", id)
		}
	}

	for _, line := range recipe.SubRecipes {
		var exists bool
		err := s.q.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM recipes WHERE business_id = $1 AND id = $2)
		`, recipe.BusinessID, line.SubRecipeID).Scan(&exists)
		if err != nil {
			return persistence(err)
		}
		if !exists {
			return notFound("recipe", line.SubRecipeID)
		}
	}
	return nil
}

func (s *Store) writeRecipeLines(ctx context.Context, recipe domain.Recipe) error {
	for i, line := range recipe.Ingredients {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, position, ingredient_id, quantity, unit_id, cost)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, recipe.ID, i, line.IngredientID, line.Quantity, line.UnitID, line.Cost)
		if err != nil {
			return writeErr(err, "ingredient line "+line.IngredientID)
		}
	}
	for i, line := range recipe.SubRecipes {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO recipe_sub_recipes (recipe_id, position, sub_recipe_id, quantity, cost)
			VALUES ($1,$2,$3,$4,$5)
		`, recipe.ID, i, line.SubRecipeID, line.Quantity, line.Cost)
		if err != nil {
			return writeErr(err, "sub-recipe line "+line.SubRecipeID)
		}
	}
	return nil
}

// atomically runs fn on a transaction-bound store, joining the open one
// when there is one.
func (s *Store) atomically(ctx context.Context, fn func(tx *Store) error) error {
	return s.WithinTx(ctx, func(repo store.Repository) error {
		return fn(repo.(*Store))
	})
}

func (s *Store) CreateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	err := s.atomically(ctx, func(tx *Store) error {
		if err := tx.checkSku(ctx, recipe.BusinessID, recipe.SKU, recipe.ID); err != nil {
			return err
		}
		if err := tx.checkRecipeRefs(ctx, recipe); err != nil {
			return err
		}

		_, err := tx.q.ExecContext(ctx, `
			INSERT INTO recipes (
				id, business_id, name, description, sku, yield, labor_cost, operational_cost, packaging_cost,
				total_cogs, cogs_per_serving, can_be_used_as_ingredient, cost_per_unit, selling_price,
				profit_margin, is_favorite, category_id, created_at, updated_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		`, recipe.ID, recipe.BusinessID, recipe.Name, recipe.Description, recipe.SKU, recipe.Yield,
			recipe.LaborCost, recipe.OperationalCost, recipe.PackagingCost, recipe.TotalCOGS, recipe.CogsPerServing,
			recipe.CanBeUsedAsIngredient, recipe.CostPerUnit, recipe.SellingPrice, recipe.ProfitMargin,
			recipe.IsFavorite, nullIfEmpty(recipe.CategoryID), recipe.CreatedAt, recipe.UpdatedAt)
		if err != nil {
			return writeErr(err, "recipe "+recipe.Name)
		}
		return tx.writeRecipeLines(ctx, recipe)
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (s *Store) UpdateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	err := s.atomically(ctx, func(tx *Store) error {
		if err := tx.checkSku(ctx, recipe.BusinessID, recipe.SKU, recipe.ID); err != nil {
			return err
		}
		if err := tx.checkRecipeRefs(ctx, recipe); err != nil {
			return err
		}

		res, err := tx.q.ExecContext(ctx, `
			UPDATE recipes
			SET name = $3, description = $4, sku = $5, yield = $6, labor_cost = $7, operational_cost = $8,
				packaging_cost = $9, total_cogs = $10, cogs_per_serving = $11, can_be_used_as_ingredient = $12,
				cost_per_unit = $13, selling_price = $14, profit_margin = $15, is_favorite = $16,
				category_id = $17, updated_at = $18
			WHERE business_id = $1 AND id = $2
		`, recipe.BusinessID, recipe.ID, recipe.Name, recipe.Description, recipe.SKU, recipe.Yield,
			recipe.LaborCost, recipe.OperationalCost, recipe.PackagingCost, recipe.TotalCOGS, recipe.CogsPerServing,
			recipe.CanBeUsedAsIngredient, recipe.CostPerUnit, recipe.SellingPrice, recipe.ProfitMargin,
			recipe.IsFavorite, nullIfEmpty(recipe.CategoryID), recipe.UpdatedAt)
		if err != nil {
			return writeErr(err, "recipe "+recipe.Name)
		}
		if err := expectAffected(res, "recipe", recipe.ID); err != nil {
			return err
		}

		if _, err := tx.q.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipe.ID); err != nil {
			return persistence(err)
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM recipe_sub_recipes WHERE recipe_id = $1`, recipe.ID); err != nil {
			return persistence(err)
		}
		return tx.writeRecipeLines(ctx, recipe)
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// DeleteRecipe cascades to the recipe's lines and channel prices. Price
// history rows carry no foreign key and survive.
func (s *Store) DeleteRecipe(ctx context.Context, businessID string, recipeID string) error {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM recipes
		WHERE business_id = $1 AND id = $2
	`, businessID, recipeID)
	if err != nil {
		return writeErr(err, "recipe "+recipeID)
	}
	return expectAffected(res, "recipe", recipeID)
}

func (s *Store) ListParentRecipeIDs(ctx context.Context, businessID string, recipeID string) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT rs.recipe_id
		FROM recipe_sub_recipes rs
		JOIN recipes r ON r.id = rs.recipe_id
		WHERE r.business_id = $1 AND rs.sub_recipe_id = $2
		ORDER BY rs.recipe_id
	`, businessID, recipeID)
}

func (s *Store) ListSubRecipeEdges(ctx context.Context, businessID string) (map[string][]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT rs.recipe_id, rs.sub_recipe_id
		FROM recipe_sub_recipes rs
		JOIN recipes r ON r.id = rs.recipe_id
		WHERE r.business_id = $1
		ORDER BY rs.recipe_id, rs.position
	`, businessID)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	edges := make(map[string][]string)
	for rows.Next() {
		var parent, child string
		if err := rows.Scan(&parent, &child); err != nil {
			return nil, persistence(err)
		}
		edges[parent] = append(edges[parent], child)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return edges, nil
}

func (s *Store) CreateRecipePriceHistory(ctx context.Context, entry domain.RecipePriceHistory) error {
	args := append([]any{entry.ID, entry.BusinessID, entry.RecipeID, entry.Reason}, eventArgs(entry.PriceChangeEvent)...)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO recipe_price_history (
			id, business_id, recipe_id, reason,
			old_price, new_price, price_change, percentage_change, change_type, change_date
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, args...)
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (s *Store) ListRecipePriceHistory(ctx context.Context, businessID string, recipeID string, limit int) ([]domain.RecipePriceHistory, error) {
	limit = clampLimit(limit)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, business_id, recipe_id, reason,
			old_price, new_price, price_change, percentage_change, change_type, change_date
		FROM recipe_price_history
		WHERE business_id = $1 AND recipe_id = $2
		ORDER BY change_date DESC
		LIMIT $3
	`, businessID, recipeID, limit)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	history := make([]domain.RecipePriceHistory, 0, limit)
	for rows.Next() {
		var h domain.RecipePriceHistory
		dest := append([]any{&h.ID, &h.BusinessID, &h.RecipeID, &h.Reason}, eventDest(&h.PriceChangeEvent)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, persistence(err)
		}
		h.ChangeDate = h.ChangeDate.UTC()
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return history, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, persistence(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return ids, nil
}

func eventArgs(e domain.PriceChangeEvent) []any {
	return []any{e.OldPrice, e.NewPrice, e.PriceChange, e.PercentageChange, string(e.ChangeType), e.ChangeDate}
}

func eventDest(e *domain.PriceChangeEvent) []any {
	return []any{&e.OldPrice, &e.NewPrice, &e.PriceChange, &e.PercentageChange, &e.ChangeType, &e.ChangeDate}
}
