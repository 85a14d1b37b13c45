package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store"
	"hitunghpp/backend/internal/store/memory"
)

const testBusiness = memory.DemoBusinessID

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// tickingClock advances one second per call so history ordering is stable.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newTestService() *Service {
	return newTestServiceWithRepo(memory.NewSeeded())
}

func newTestServiceWithRepo(repo store.Repository) *Service {
	return New(repo, Options{Now: tickingClock()})
}

func ownerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "owner", Role: domain.RoleOwner, BusinessID: testBusiness})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "staff", Role: domain.RoleStaff, BusinessID: testBusiness})
}

// createFlour makes an ingredient costing 15 per gram.
func createFlour(t *testing.T, svc *Service) domain.Ingredient {
	t.Helper()
	ing, err := svc.CreateIngredient(ownerCtx(), testBusiness, domain.IngredientCreateRequest{
		Name:             "Tepung",
		PurchasePrice:    d("15000"),
		PackageSize:      d("1"),
		ConversionFactor: d("1000"),
		PurchaseUnitID:   "unit-kg",
		UsageUnitID:      "unit-g",
	})
	if err != nil {
		t.Fatalf("create ingredient failed: %v", err)
	}
	return ing
}

// createBread uses 200 g of flour plus fixed costs 2000/500/500 over
// a yield of 10.
func createBread(t *testing.T, svc *Service, flourID string) domain.Recipe {
	t.Helper()
	recipe, err := svc.CreateRecipe(ownerCtx(), testBusiness, domain.RecipeCreateRequest{
		Name:  "Roti",
		Yield: d("10"),
		Ingredients: []domain.RecipeIngredientInput{
			{IngredientID: flourID, Quantity: d("200"), UnitID: "unit-g"},
		},
		LaborCost:       d("2000"),
		OperationalCost: d("500"),
		PackagingCost:   d("500"),
	})
	if err != nil {
		t.Fatalf("create recipe failed: %v", err)
	}
	return recipe
}

func TestCostingAndPricingEndToEnd(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	flour := createFlour(t, svc)
	if !flour.CostPerUnit.Equal(d("15")) {
		t.Fatalf("expected cost per unit 15, got %s", flour.CostPerUnit)
	}

	bread := createBread(t, svc, flour.ID)
	if len(bread.Ingredients) != 1 || !bread.Ingredients[0].Cost.Equal(d("3000")) {
		t.Fatalf("expected ingredient line cost 3000, got %+v", bread.Ingredients)
	}
	if !bread.TotalCOGS.Equal(d("6000")) || !bread.CogsPerServing.Equal(d("600")) {
		t.Fatalf("expected cogs 6000/600, got %s/%s", bread.TotalCOGS, bread.CogsPerServing)
	}

	priced, err := svc.SetSellingPrice(ctx, testBusiness, bread.ID, domain.SetPriceRequest{Price: d("1000")})
	if err != nil {
		t.Fatalf("set selling price failed: %v", err)
	}
	if !priced.Recipe.ProfitMargin.Equal(d("40")) {
		t.Fatalf("expected margin 40, got %s", priced.Recipe.ProfitMargin)
	}

	resp, err := svc.UpsertChannelPrices(ctx, testBusiness, domain.ChannelPriceBatchRequest{
		Items: []domain.ChannelPriceInput{
			{RecipeID: bread.ID, ChannelID: "chn-gofood", Price: d("1000"), TaxRate: d("11")},
		},
	})
	if err != nil {
		t.Fatalf("upsert channel prices failed: %v", err)
	}
	if len(resp.Prices) != 1 || !resp.Prices[0].FinalPrice.Equal(d("1110")) {
		t.Fatalf("expected final price 1110, got %+v", resp.Prices)
	}
	if !resp.Prices[0].Commission.Equal(d("20")) {
		t.Fatalf("expected channel commission default 20, got %s", resp.Prices[0].Commission)
	}

	views, err := svc.ListChannelPrices(ctx, testBusiness, bread.ID)
	if err != nil {
		t.Fatalf("list channel prices failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 channel price, got %d", len(views))
	}
	if !views[0].NetPrice.Equal(d("800")) || !views[0].Profit.Equal(d("200")) || !views[0].ProfitMargin.Equal(d("20")) {
		t.Fatalf("unexpected channel economics: %+v", views[0])
	}
	if views[0].ChannelName != "GoFood" {
		t.Fatalf("expected channel name GoFood, got %q", views[0].ChannelName)
	}
}

func TestResavingUnchangedRecipeIsIdempotent(t *testing.T) {
	svc := newTestService()
	flour := createFlour(t, svc)
	bread := createBread(t, svc, flour.ID)

	again, err := svc.UpdateRecipe(ownerCtx(), testBusiness, bread.ID, domain.RecipeUpdateRequest{})
	if err != nil {
		t.Fatalf("update recipe failed: %v", err)
	}
	if !again.TotalCOGS.Equal(bread.TotalCOGS) || !again.CogsPerServing.Equal(bread.CogsPerServing) {
		t.Fatalf("expected unchanged cogs, got %s/%s", again.TotalCOGS, again.CogsPerServing)
	}
}

func TestGenerateSkuConcurrentCallsAreDistinctAndIncreasing(t *testing.T) {
	svc := newTestService()
	const workers = 30

	var wg sync.WaitGroup
	var mu sync.Mutex
	skus := make([]string, 0, workers)
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sku, err := svc.GenerateSku(context.Background(), testBusiness, domain.SkuIngredient)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			skus = append(skus, sku)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("generate sku failed: %v", err)
	}

	numbers := make([]int, 0, len(skus))
	for _, sku := range skus {
		if !strings.HasPrefix(sku, "ING-") {
			t.Fatalf("unexpected sku format %q", sku)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(sku, "ING-"))
		if err != nil {
			t.Fatalf("sku suffix not numeric: %q", sku)
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			t.Fatalf("expected suffixes 1..%d without gaps or repeats, got %v", workers, numbers)
		}
	}
}

func TestSkuSettingsAndBackfill(t *testing.T) {
	svc := newTestService()

	prefix := "bhn"
	padding := 3
	if _, err := svc.UpdateSkuSettings(staffCtx(), testBusiness, domain.SkuSettingsUpdateRequest{IngredientPrefix: &prefix}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for staff, got %v", err)
	}
	settings, err := svc.UpdateSkuSettings(ownerCtx(), testBusiness, domain.SkuSettingsUpdateRequest{IngredientPrefix: &prefix, NumberPadding: &padding})
	if err != nil {
		t.Fatalf("update sku settings failed: %v", err)
	}
	if settings.IngredientPrefix != "BHN" || settings.NumberPadding != 3 {
		t.Fatalf("unexpected settings: %+v", settings)
	}

	bad := 0
	if _, err := svc.UpdateSkuSettings(ownerCtx(), testBusiness, domain.SkuSettingsUpdateRequest{NumberPadding: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for padding 0, got %v", err)
	}

	flour := createFlour(t, svc)
	if flour.SKU != "BHN-001" {
		t.Fatalf("expected BHN-001, got %q", flour.SKU)
	}

	empty := ""
	if _, err := svc.UpdateIngredient(ownerCtx(), testBusiness, flour.ID, domain.IngredientUpdateRequest{SKU: &empty}); err != nil {
		t.Fatalf("clear sku failed: %v", err)
	}
	backfilled, err := svc.BackfillSkus(ownerCtx(), testBusiness)
	if err != nil {
		t.Fatalf("backfill failed: %v", err)
	}
	if backfilled.Ingredients != 1 || backfilled.Recipes != 0 {
		t.Fatalf("unexpected backfill counts: %+v", backfilled)
	}
	got, err := svc.GetIngredient(context.Background(), testBusiness, flour.ID)
	if err != nil {
		t.Fatalf("get ingredient failed: %v", err)
	}
	if got.SKU != "BHN-002" {
		t.Fatalf("expected backfilled BHN-002, got %q", got.SKU)
	}
}

// nextSkuFails breaks the counter so callers must save without a SKU.
type nextSkuFails struct {
	store.Repository
}

func (r nextSkuFails) NextSkuNumber(context.Context, string, string) (int64, error) {
	return 0, errors.New("counter unavailable")
}

func (r nextSkuFails) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	return r.Repository.WithinTx(ctx, func(tx store.Repository) error {
		return fn(nextSkuFails{tx})
	})
}

func TestSkuFailureDoesNotBlockCreate(t *testing.T) {
	svc := newTestServiceWithRepo(nextSkuFails{memory.NewSeeded()})

	flour := createFlour(t, svc)
	if flour.SKU != "" {
		t.Fatalf("expected empty sku when allocation fails, got %q", flour.SKU)
	}
}

func TestActivityLogRecordsActor(t *testing.T) {
	svc := newTestService()
	createFlour(t, svc)

	logs, err := svc.ListActivityLogs(context.Background(), testBusiness, 10)
	if err != nil {
		t.Fatalf("list activity logs failed: %v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("expected activity log entries")
	}
	found := false
	for _, entry := range logs {
		if entry.Action == "ingredient_create" && entry.Actor == "owner" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ingredient_create by owner, got %+v", logs)
	}
}
