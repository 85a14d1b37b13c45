package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
)

// createDough is a usable sub-recipe: 10 g flour per serving.
func createDough(t *testing.T, svc *Service, flourID string) domain.Recipe {
	t.Helper()
	dough, err := svc.CreateRecipe(ownerCtx(), testBusiness, domain.RecipeCreateRequest{
		Name:  "Adonan",
		Yield: d("1"),
		Ingredients: []domain.RecipeIngredientInput{
			{IngredientID: flourID, Quantity: d("10")},
		},
		CanBeUsedAsIngredient: true,
	})
	if err != nil {
		t.Fatalf("create dough failed: %v", err)
	}
	return dough
}

func createPizza(t *testing.T, svc *Service, doughID string) domain.Recipe {
	t.Helper()
	pizza, err := svc.CreateRecipe(ownerCtx(), testBusiness, domain.RecipeCreateRequest{
		Name:  "Pizza",
		Yield: d("1"),
		SubRecipes: []domain.RecipeSubRecipeInput{
			{SubRecipeID: doughID, Quantity: d("2")},
		},
		CanBeUsedAsIngredient: true,
	})
	if err != nil {
		t.Fatalf("create pizza failed: %v", err)
	}
	return pizza
}

func TestCreateRecipeRejectsBadInput(t *testing.T) {
	svc := newTestService()
	flour := createFlour(t, svc)

	cases := []struct {
		name string
		req  domain.RecipeCreateRequest
	}{
		{name: "zero yield", req: domain.RecipeCreateRequest{Name: "A", Yield: decimal.Zero}},
		{name: "negative labor", req: domain.RecipeCreateRequest{Name: "B", Yield: d("1"), LaborCost: d("-1")}},
		{name: "duplicate line", req: domain.RecipeCreateRequest{Name: "C", Yield: d("1"), Ingredients: []domain.RecipeIngredientInput{
			{IngredientID: flour.ID, Quantity: d("1")},
			{IngredientID: flour.ID, Quantity: d("2")},
		}}},
		{name: "zero quantity", req: domain.RecipeCreateRequest{Name: "D", Yield: d("1"), Ingredients: []domain.RecipeIngredientInput{
			{IngredientID: flour.ID, Quantity: decimal.Zero},
		}}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateRecipe(ownerCtx(), testBusiness, tc.req); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	_, err := svc.CreateRecipe(ownerCtx(), testBusiness, domain.RecipeCreateRequest{
		Name:        "E",
		Yield:       d("1"),
		Ingredients: []domain.RecipeIngredientInput{{IngredientID: "ing-missing", Quantity: d("1")}},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown ingredient, got %v", err)
	}
}

func TestSubRecipeCostRollsUp(t *testing.T) {
	svc := newTestService()
	flour := createFlour(t, svc)
	dough := createDough(t, svc, flour.ID)
	if !dough.CogsPerServing.Equal(d("150")) {
		t.Fatalf("expected dough cogs 150, got %s", dough.CogsPerServing)
	}

	pizza := createPizza(t, svc, dough.ID)
	if !pizza.TotalCOGS.Equal(d("300")) {
		t.Fatalf("expected pizza cogs 300, got %s", pizza.TotalCOGS)
	}
	if len(pizza.SubRecipes) != 1 || !pizza.SubRecipes[0].Cost.Equal(d("300")) {
		t.Fatalf("unexpected sub-recipe snapshot: %+v", pizza.SubRecipes)
	}
}

func TestSubRecipeMustBeUsableAsIngredient(t *testing.T) {
	svc := newTestService()
	flour := createFlour(t, svc)
	bread := createBread(t, svc, flour.ID)

	_, err := svc.CreateRecipe(ownerCtx(), testBusiness, domain.RecipeCreateRequest{
		Name:       "Sandwich",
		Yield:      d("1"),
		SubRecipes: []domain.RecipeSubRecipeInput{{SubRecipeID: bread.ID, Quantity: d("1")}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubRecipeCycleIsRejected(t *testing.T) {
	svc := newTestService()
	flour := createFlour(t, svc)
	dough := createDough(t, svc, flour.ID)
	pizza := createPizza(t, svc, dough.ID)

	subs := []domain.RecipeSubRecipeInput{{SubRecipeID: pizza.ID, Quantity: d("1")}}
	_, err := svc.UpdateRecipe(ownerCtx(), testBusiness, dough.ID, domain.RecipeUpdateRequest{SubRecipes: &subs})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for cycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle in error message, got %v", err)
	}

	self := []domain.RecipeSubRecipeInput{{SubRecipeID: dough.ID, Quantity: d("1")}}
	if _, err := svc.UpdateRecipe(ownerCtx(), testBusiness, dough.ID, domain.RecipeUpdateRequest{SubRecipes: &self}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for self reference, got %v", err)
	}

	unchanged, err := svc.GetRecipe(context.Background(), testBusiness, dough.ID)
	if err != nil {
		t.Fatalf("get dough failed: %v", err)
	}
	if len(unchanged.SubRecipes) != 0 {
		t.Fatalf("expected rejected update to leave sub-recipes empty, got %+v", unchanged.SubRecipes)
	}
}

func TestRecalculateDependentsAfterIngredientPriceChange(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	flour := createFlour(t, svc)
	dough := createDough(t, svc, flour.ID)
	pizza := createPizza(t, svc, dough.ID)

	price := d("30000")
	if _, err := svc.UpdateIngredient(ctx, testBusiness, flour.ID, domain.IngredientUpdateRequest{PurchasePrice: &price}); err != nil {
		t.Fatalf("update ingredient failed: %v", err)
	}

	stale, err := svc.GetRecipe(ctx, testBusiness, pizza.ID)
	if err != nil {
		t.Fatalf("get pizza failed: %v", err)
	}
	if !stale.TotalCOGS.Equal(d("300")) {
		t.Fatalf("expected snapshot cogs to stay 300 until recalculated, got %s", stale.TotalCOGS)
	}

	result, err := svc.RecalculateDependents(ctx, testBusiness, domain.RecalculateRequest{IngredientID: flour.ID})
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if result.Recalculated != 2 || result.RecipeIDs[0] != dough.ID || result.RecipeIDs[1] != pizza.ID {
		t.Fatalf("expected dough then pizza, got %+v", result)
	}

	fresh, err := svc.GetRecipe(ctx, testBusiness, pizza.ID)
	if err != nil {
		t.Fatalf("get pizza failed: %v", err)
	}
	if !fresh.TotalCOGS.Equal(d("600")) {
		t.Fatalf("expected pizza cogs 600 after recalculation, got %s", fresh.TotalCOGS)
	}

	history, err := svc.ListIngredientPriceHistory(ctx, testBusiness, flour.ID, 10)
	if err != nil {
		t.Fatalf("list ingredient history failed: %v", err)
	}
	if len(history) != 1 || history[0].ChangeType != domain.ChangeIncrease || !history[0].PercentageChange.Equal(d("100")) {
		t.Fatalf("unexpected ingredient history: %+v", history)
	}

	if _, err := svc.RecalculateDependents(ctx, testBusiness, domain.RecalculateRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error without a source, got %v", err)
	}
}

func TestRecipeDeleteGuards(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	flour := createFlour(t, svc)
	dough := createDough(t, svc, flour.ID)
	pizza := createPizza(t, svc, dough.ID)

	if err := svc.DeleteIngredient(ctx, testBusiness, flour.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict deleting used ingredient, got %v", err)
	}
	if err := svc.DeleteRecipe(ctx, testBusiness, dough.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict deleting used sub-recipe, got %v", err)
	}
	off := false
	if _, err := svc.UpdateRecipe(ctx, testBusiness, dough.ID, domain.RecipeUpdateRequest{CanBeUsedAsIngredient: &off}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict disabling used sub-recipe, got %v", err)
	}

	if err := svc.DeleteRecipe(ctx, testBusiness, pizza.ID); err != nil {
		t.Fatalf("delete pizza failed: %v", err)
	}
	if err := svc.DeleteRecipe(ctx, testBusiness, dough.ID); err != nil {
		t.Fatalf("delete dough failed: %v", err)
	}
	if _, err := svc.GetRecipe(ctx, testBusiness, dough.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDuplicateFavoriteAndBreakdown(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	flour := createFlour(t, svc)
	bread := createBread(t, svc, flour.ID)

	copied, err := svc.DuplicateRecipe(ctx, testBusiness, bread.ID)
	if err != nil {
		t.Fatalf("duplicate failed: %v", err)
	}
	if copied.ID == bread.ID || copied.Name != "Roti (Copy)" || copied.SKU == bread.SKU {
		t.Fatalf("unexpected duplicate: %+v", copied)
	}
	if !copied.TotalCOGS.Equal(bread.TotalCOGS) {
		t.Fatalf("expected duplicate cogs %s, got %s", bread.TotalCOGS, copied.TotalCOGS)
	}

	fav, err := svc.ToggleFavorite(ctx, testBusiness, bread.ID)
	if err != nil || !fav.IsFavorite {
		t.Fatalf("expected favorite after toggle, got %+v err=%v", fav, err)
	}
	favorites, err := svc.ListRecipes(ctx, testBusiness, domain.RecipeFilter{FavoritesOnly: true})
	if err != nil || len(favorites) != 1 {
		t.Fatalf("expected one favorite, got %d err=%v", len(favorites), err)
	}

	breakdown, err := svc.GetCostBreakdown(ctx, testBusiness, bread.ID)
	if err != nil {
		t.Fatalf("breakdown failed: %v", err)
	}
	if len(breakdown.Lines) != 4 {
		t.Fatalf("expected ingredient plus 3 fixed cost lines, got %+v", breakdown.Lines)
	}
	if breakdown.Lines[0].Name != "Tepung" || !breakdown.Lines[0].Share.Equal(d("50")) {
		t.Fatalf("unexpected first line: %+v", breakdown.Lines[0])
	}
}
