package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/service"
	"hitunghpp/backend/internal/store"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	databaseURL := os.Getenv("HITUNGHPP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set HITUNGHPP_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	businessID := fmt.Sprintf("biz-it-%d", time.Now().UnixNano())
	if _, err := s.CreateBusiness(ctx, domain.Business{ID: businessID, Name: "Integration"}); err != nil {
		t.Fatalf("create business: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range []string{
			"channel_price_history", "channel_prices", "sales_channels", "recipe_price_history",
			"recipes", "ingredient_price_history", "ingredients", "units", "categories",
			"sku_settings", "decimal_settings", "activity_logs",
		} {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE business_id = $1`, businessID)
		}
		_, _ = s.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, businessID)
		_ = s.Close()
	})
	return s, businessID
}

func TestNextSkuNumberIsSequentialUnderConcurrency(t *testing.T) {
	s, businessID := openTestStore(t)
	ctx := context.Background()

	const workers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.NextSkuNumber(ctx, businessID, domain.SkuIngredient)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("next sku number: %v", err)
	}

	for n := int64(1); n <= workers; n++ {
		if !seen[n] {
			t.Fatalf("expected number %d to be allocated, got %v", n, seen)
		}
	}
	settings, err := s.GetSkuSettings(ctx, businessID)
	if err != nil {
		t.Fatalf("get sku settings: %v", err)
	}
	if settings.NextIngredientNumber != workers+1 {
		t.Fatalf("expected next ingredient number %d, got %d", workers+1, settings.NextIngredientNumber)
	}
}

func TestGenerateSkuConcurrentCallsAllSucceed(t *testing.T) {
	s, businessID := openTestStore(t)
	ctx := context.Background()
	svc := service.New(s, service.Options{})

	const workers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	skus := make(map[string]bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sku, err := svc.GenerateSku(ctx, businessID, domain.SkuRecipe)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			skus[sku] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("generate sku: %v", err)
	}

	if len(skus) != workers {
		t.Fatalf("expected %d distinct skus, got %d: %v", workers, len(skus), skus)
	}
	settings, err := s.GetSkuSettings(ctx, businessID)
	if err != nil {
		t.Fatalf("get sku settings: %v", err)
	}
	if settings.NextRecipeNumber != workers+1 {
		t.Fatalf("expected next recipe number %d, got %d", workers+1, settings.NextRecipeNumber)
	}
}

func TestRecipeRoundTripAndGuards(t *testing.T) {
	s, businessID := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	flour := domain.Ingredient{
		ID:               businessID + "-flour",
		BusinessID:       businessID,
		Name:             "Tepung",
		SKU:              "ING-IT-1",
		PurchasePrice:    decimal.NewFromInt(15000),
		PackageSize:      decimal.NewFromInt(1),
		ConversionFactor: decimal.NewFromInt(1000),
		CostPerUnit:      decimal.NewFromInt(15),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.CreateIngredient(ctx, flour); err != nil {
		t.Fatalf("create ingredient: %v", err)
	}

	recipe := domain.Recipe{
		ID:         businessID + "-bread",
		BusinessID: businessID,
		Name:       "Roti",
		SKU:        "ing-it-1",
		Yield:      decimal.NewFromInt(10),
		Ingredients: []domain.RecipeIngredient{
			{IngredientID: flour.ID, Quantity: decimal.NewFromInt(200), Cost: decimal.NewFromInt(3000)},
		},
		TotalCOGS:      decimal.NewFromInt(3000),
		CogsPerServing: decimal.NewFromInt(300),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.CreateRecipe(ctx, recipe); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected sku conflict across tables, got %v", err)
	}

	recipe.SKU = "RCP-IT-1"
	if _, err := s.CreateRecipe(ctx, recipe); err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	got, err := s.GetRecipe(ctx, businessID, recipe.ID)
	if err != nil {
		t.Fatalf("get recipe: %v", err)
	}
	if len(got.Ingredients) != 1 || !got.Ingredients[0].Cost.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("unexpected recipe lines: %+v", got.Ingredients)
	}

	users, err := s.ListRecipeIDsUsingIngredient(ctx, businessID, flour.ID)
	if err != nil {
		t.Fatalf("list users of ingredient: %v", err)
	}
	if len(users) != 1 || users[0] != recipe.ID {
		t.Fatalf("unexpected recipe ids %v", users)
	}

	if err := s.DeleteIngredient(ctx, businessID, flour.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict deleting used ingredient, got %v", err)
	}

	if _, err := s.GetRecipe(ctx, "other-business", recipe.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found across businesses, got %v", err)
	}
}

func TestChannelPriceUniquenessAndHistory(t *testing.T) {
	s, businessID := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	recipe := domain.Recipe{
		ID:         businessID + "-tea",
		BusinessID: businessID,
		Name:       "Teh",
		Yield:      decimal.NewFromInt(1),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.CreateRecipe(ctx, recipe); err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	channel := domain.SalesChannel{
		ID:         businessID + "-gofood",
		BusinessID: businessID,
		Name:       "GoFood",
		Commission: decimal.NewFromInt(20),
		CreatedAt:  now,
	}
	if _, err := s.CreateSalesChannel(ctx, channel); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	price := domain.ChannelPrice{
		ID:         businessID + "-cp-1",
		BusinessID: businessID,
		RecipeID:   recipe.ID,
		ChannelID:  channel.ID,
		Price:      decimal.NewFromInt(1000),
		Commission: decimal.NewFromInt(20),
		FinalPrice: decimal.NewFromInt(1000),
		UpdatedAt:  now,
	}
	if _, err := s.CreateChannelPrice(ctx, price); err != nil {
		t.Fatalf("create channel price: %v", err)
	}

	dup := price
	dup.ID = businessID + "-cp-2"
	if _, err := s.CreateChannelPrice(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate pair, got %v", err)
	}

	err := s.WithinTx(ctx, func(repo store.Repository) error {
		price.Price = decimal.NewFromInt(1200)
		price.FinalPrice = decimal.NewFromInt(1200)
		if _, err := repo.UpdateChannelPrice(ctx, price); err != nil {
			return err
		}
		return repo.CreateChannelPriceHistory(ctx, domain.ChannelPriceHistory{
			ID:             businessID + "-cph-1",
			BusinessID:     businessID,
			ChannelPriceID: price.ID,
			RecipeID:       recipe.ID,
			ChannelID:      channel.ID,
			Reason:         "naik",
			PriceChangeEvent: domain.PriceChangeEvent{
				OldPrice:         decimal.NewFromInt(1000),
				NewPrice:         decimal.NewFromInt(1200),
				PriceChange:      decimal.NewFromInt(200),
				PercentageChange: decimal.NewFromInt(20),
				ChangeType:       domain.ChangeIncrease,
				ChangeDate:       now,
			},
		})
	})
	if err != nil {
		t.Fatalf("update channel price in tx: %v", err)
	}

	history, err := s.ListChannelPriceHistory(ctx, businessID, recipe.ID, channel.ID, 10)
	if err != nil {
		t.Fatalf("list channel price history: %v", err)
	}
	if len(history) != 1 || history[0].ChangeType != domain.ChangeIncrease || history[0].Reason != "naik" {
		t.Fatalf("unexpected history %+v", history)
	}

	if err := s.DeleteSalesChannel(ctx, businessID, channel.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict deleting priced channel, got %v", err)
	}

	if err := s.DeleteRecipe(ctx, businessID, recipe.ID); err != nil {
		t.Fatalf("delete recipe: %v", err)
	}
	prices, err := s.ListChannelPrices(ctx, businessID, recipe.ID, "")
	if err != nil {
		t.Fatalf("list channel prices: %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("expected channel prices to cascade, got %d", len(prices))
	}
	history, err = s.ListChannelPriceHistory(ctx, businessID, recipe.ID, channel.ID, 10)
	if err != nil {
		t.Fatalf("list history after delete: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected history to survive recipe delete, got %d", len(history))
	}
}
