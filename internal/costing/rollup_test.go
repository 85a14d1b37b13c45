package costing

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
)

func TestRollupEndToEndExample(t *testing.T) {
	unitCost, err := CostPerUnit(d("15000"), d("1"), d("1000"))
	if err != nil {
		t.Fatalf("cost per unit: %v", err)
	}

	out, err := Rollup(RollupInput{
		Yield:           d("10"),
		Ingredients:     []domain.RecipeIngredientInput{{IngredientID: "ing-flour", Quantity: d("200")}},
		LaborCost:       d("2000"),
		OperationalCost: d("500"),
		PackagingCost:   d("500"),
	}, map[string]decimal.Decimal{"ing-flour": unitCost}, nil)
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}

	if !out.Ingredients[0].Cost.Equal(d("3000")) {
		t.Fatalf("expected line cost 3000, got %s", out.Ingredients[0].Cost)
	}
	if !out.TotalCOGS.Equal(d("6000")) {
		t.Fatalf("expected total 6000, got %s", out.TotalCOGS)
	}
	if !out.CogsPerServing.Equal(d("600")) {
		t.Fatalf("expected per serving 600, got %s", out.CogsPerServing)
	}
	if !out.CostPerUnit.IsZero() {
		t.Fatalf("expected cost per unit hidden when not usable as ingredient, got %s", out.CostPerUnit)
	}
}

func TestRollupIncludesSubRecipes(t *testing.T) {
	in := RollupInput{
		Yield:                 d("4"),
		Ingredients:           []domain.RecipeIngredientInput{{IngredientID: "ing-a", Quantity: d("2")}},
		SubRecipes:            []domain.RecipeSubRecipeInput{{SubRecipeID: "rcp-sauce", Quantity: d("3")}},
		PackagingCost:         d("100"),
		CanBeUsedAsIngredient: true,
	}
	out, err := Rollup(in,
		map[string]decimal.Decimal{"ing-a": d("50")},
		map[string]decimal.Decimal{"rcp-sauce": d("200")},
	)
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}

	want := out.IngredientsCost.Add(out.SubRecipesCost).Add(in.LaborCost).Add(in.OperationalCost).Add(in.PackagingCost)
	if !out.TotalCOGS.Equal(want) || !out.TotalCOGS.Equal(d("800")) {
		t.Fatalf("expected total 800, got %s", out.TotalCOGS)
	}
	if !out.CogsPerServing.Equal(d("200")) || !out.CostPerUnit.Equal(d("200")) {
		t.Fatalf("expected 200 per serving and exposed unit cost, got %s / %s", out.CogsPerServing, out.CostPerUnit)
	}

	again, err := Rollup(in,
		map[string]decimal.Decimal{"ing-a": d("50")},
		map[string]decimal.Decimal{"rcp-sauce": d("200")},
	)
	if err != nil {
		t.Fatalf("second rollup: %v", err)
	}
	if !again.TotalCOGS.Equal(out.TotalCOGS) || !again.CogsPerServing.Equal(out.CogsPerServing) {
		t.Fatalf("expected rollup to be idempotent")
	}
}

func TestRollupMissingReferenceNamesID(t *testing.T) {
	_, err := Rollup(RollupInput{
		Yield:       d("1"),
		Ingredients: []domain.RecipeIngredientInput{{IngredientID: "ing-ghost", Quantity: d("1")}},
	}, map[string]decimal.Decimal{}, nil)
	if !errors.Is(err, domain.ErrNotFound) || !strings.Contains(err.Error(), "ing-ghost") {
		t.Fatalf("expected not found naming ing-ghost, got %v", err)
	}

	_, err = Rollup(RollupInput{
		Yield:      d("1"),
		SubRecipes: []domain.RecipeSubRecipeInput{{SubRecipeID: "rcp-ghost", Quantity: d("1")}},
	}, nil, map[string]decimal.Decimal{})
	if !errors.Is(err, domain.ErrNotFound) || !strings.Contains(err.Error(), "rcp-ghost") {
		t.Fatalf("expected not found naming rcp-ghost, got %v", err)
	}
}

func TestRollupValidation(t *testing.T) {
	cases := []struct {
		name string
		in   RollupInput
	}{
		{"zero yield", RollupInput{Yield: decimal.Zero}},
		{"negative yield", RollupInput{Yield: d("-1")}},
		{"negative labor", RollupInput{Yield: d("1"), LaborCost: d("-5")}},
		{"zero quantity", RollupInput{Yield: d("1"), Ingredients: []domain.RecipeIngredientInput{{IngredientID: "ing-a", Quantity: decimal.Zero}}}},
		{"negative sub quantity", RollupInput{Yield: d("1"), SubRecipes: []domain.RecipeSubRecipeInput{{SubRecipeID: "rcp-a", Quantity: d("-1")}}}},
		{"duplicate ingredient", RollupInput{Yield: d("1"), Ingredients: []domain.RecipeIngredientInput{
			{IngredientID: "ing-a", Quantity: d("1")},
			{IngredientID: "ing-a", Quantity: d("2")},
		}}},
	}
	for _, tc := range cases {
		if _, err := Rollup(tc.in, map[string]decimal.Decimal{"ing-a": d("1")}, map[string]decimal.Decimal{"rcp-a": d("1")}); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}
