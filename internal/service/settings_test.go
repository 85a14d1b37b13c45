package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store/memory"
)

type mapSettingsCache struct {
	mu      sync.Mutex
	values  map[string]domain.DecimalSettings
	hits    int
	deletes int
}

func newMapSettingsCache() *mapSettingsCache {
	return &mapSettingsCache{values: make(map[string]domain.DecimalSettings)}
}

func (c *mapSettingsCache) GetDecimalSettings(_ context.Context, businessID string) (*domain.DecimalSettings, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[businessID]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return &v, true, nil
}

func (c *mapSettingsCache) SetDecimalSettings(_ context.Context, value domain.DecimalSettings, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[value.BusinessID] = value
	return nil
}

func (c *mapSettingsCache) DeleteDecimalSettings(_ context.Context, businessID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, businessID)
	c.deletes++
	return nil
}

func TestDecimalSettingsCacheAndFormatting(t *testing.T) {
	settingsCache := newMapSettingsCache()
	svc := New(memory.NewSeeded(), Options{SettingsCache: settingsCache, Now: tickingClock()})
	ctx := ownerCtx()

	formatted, err := svc.FormatPrice(ctx, testBusiness, domain.FormatPriceRequest{Amount: d("15000")})
	if err != nil {
		t.Fatalf("format price failed: %v", err)
	}
	if formatted.Formatted != "Rp15.000" {
		t.Fatalf("expected Rp15.000, got %q", formatted.Formatted)
	}
	if _, err := svc.GetDecimalSettings(ctx, testBusiness); err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if settingsCache.hits != 1 {
		t.Fatalf("expected second read to hit the cache, got %d hits", settingsCache.hits)
	}

	next := domain.DefaultDecimalSettings(testBusiness)
	next.DecimalPlaces = 2
	next.ShowTrailingZeros = true
	next.CurrencySymbol = "€"
	next.CurrencyPosition = domain.CurrencyAfter

	if _, err := svc.UpdateDecimalSettings(staffCtx(), testBusiness, next); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for staff, got %v", err)
	}
	if _, err := svc.UpdateDecimalSettings(ctx, testBusiness, next); err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if settingsCache.deletes != 1 {
		t.Fatalf("expected cache invalidation on update, got %d deletes", settingsCache.deletes)
	}

	formatted, err = svc.FormatPrice(ctx, testBusiness, domain.FormatPriceRequest{Amount: d("2500")})
	if err != nil {
		t.Fatalf("format price failed: %v", err)
	}
	if formatted.Formatted != "2.500,00 €" {
		t.Fatalf("expected 2.500,00 €, got %q", formatted.Formatted)
	}

	bad := next
	bad.DecimalSeparator = "."
	if _, err := svc.UpdateDecimalSettings(ctx, testBusiness, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for equal separators, got %v", err)
	}
	bad = next
	bad.RoundingMethod = "banker"
	if _, err := svc.UpdateDecimalSettings(ctx, testBusiness, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown rounding, got %v", err)
	}
}

func TestUnitAndCategoryRegistry(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	if _, err := svc.CreateUnit(ctx, testBusiness, domain.UnitCreateRequest{Name: "Sendok", Symbol: "sdk"}); err != nil {
		t.Fatalf("create unit failed: %v", err)
	}
	if _, err := svc.CreateUnit(ctx, testBusiness, domain.UnitCreateRequest{Name: "Gram lagi", Symbol: "g"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate symbol, got %v", err)
	}

	if _, err := svc.CreateCategory(ctx, testBusiness, domain.CategoryCreateRequest{Kind: domain.CategoryKindRecipe, Name: "Minuman"}); err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, testBusiness, domain.CategoryCreateRequest{Kind: "tool", Name: "Pisau"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
	recipeCategories, err := svc.ListCategories(ctx, testBusiness, domain.CategoryKindRecipe)
	if err != nil || len(recipeCategories) != 1 {
		t.Fatalf("expected one recipe category, got %d err=%v", len(recipeCategories), err)
	}

	flour := createFlour(t, svc)
	_, err = svc.CreateRecipe(ctx, testBusiness, domain.RecipeCreateRequest{
		Name:        "Kue",
		Yield:       d("1"),
		Ingredients: []domain.RecipeIngredientInput{{IngredientID: flour.ID, Quantity: d("1")}},
		CategoryID:  recipeCategories[0].ID,
	})
	if err != nil {
		t.Fatalf("create recipe in category failed: %v", err)
	}
	_, err = svc.UpdateIngredient(ctx, testBusiness, flour.ID, domain.IngredientUpdateRequest{CategoryID: &recipeCategories[0].ID})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for recipe category on ingredient, got %v", err)
	}
}
