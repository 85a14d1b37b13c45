package service

import (
	"context"
	"errors"
	"testing"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store"
	"hitunghpp/backend/internal/store/memory"
)

func TestSetSellingPriceHistoryRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	flour := createFlour(t, svc)
	bread := createBread(t, svc, flour.ID)

	if _, err := svc.SetSellingPrice(ctx, testBusiness, bread.ID, domain.SetPriceRequest{Price: d("1000")}); err != nil {
		t.Fatalf("first price failed: %v", err)
	}
	resp, err := svc.SetSellingPrice(ctx, testBusiness, bread.ID, domain.SetPriceRequest{Price: d("1200"), Reason: "naik harga tepung"})
	if err != nil {
		t.Fatalf("second price failed: %v", err)
	}
	if !resp.Recipe.ProfitMargin.Equal(d("50")) {
		t.Fatalf("expected margin 50, got %s", resp.Recipe.ProfitMargin)
	}

	history, err := svc.ListRecipePriceHistory(ctx, testBusiness, bread.ID, 10)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	latest := history[0]
	if !latest.OldPrice.Equal(d("1000")) || !latest.NewPrice.Equal(d("1200")) {
		t.Fatalf("unexpected latest history: %+v", latest)
	}
	if !latest.PriceChange.Equal(d("200")) || !latest.PercentageChange.Equal(d("20")) || latest.ChangeType != domain.ChangeIncrease {
		t.Fatalf("unexpected delta: %+v", latest.PriceChangeEvent)
	}
	if latest.Reason != "naik harga tepung" {
		t.Fatalf("expected reason to be kept, got %q", latest.Reason)
	}

	same, err := svc.SetSellingPrice(ctx, testBusiness, bread.ID, domain.SetPriceRequest{Price: d("1200")})
	if err != nil {
		t.Fatalf("same price failed: %v", err)
	}
	if same.History.ChangeType != domain.ChangeNone || !same.History.PriceChange.IsZero() {
		t.Fatalf("expected no_change history, got %+v", same.History)
	}

	if _, err := svc.SetSellingPrice(ctx, testBusiness, bread.ID, domain.SetPriceRequest{Price: d("0")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
}

// historyFails rejects recipe history writes.
type historyFails struct {
	store.Repository
}

func (r historyFails) CreateRecipePriceHistory(context.Context, domain.RecipePriceHistory) error {
	return errors.New("history table unavailable")
}

func TestPriceHistoryFailureDoesNotFailPriceChange(t *testing.T) {
	base := memory.NewSeeded()
	seedSvc := newTestServiceWithRepo(base)
	flour := createFlour(t, seedSvc)
	bread := createBread(t, seedSvc, flour.ID)

	svc := newTestServiceWithRepo(historyFails{base})
	resp, err := svc.SetSellingPrice(ownerCtx(), testBusiness, bread.ID, domain.SetPriceRequest{Price: d("1000")})
	if err != nil {
		t.Fatalf("expected price change to succeed, got %v", err)
	}
	if !resp.Recipe.SellingPrice.Equal(d("1000")) {
		t.Fatalf("expected saved price 1000, got %s", resp.Recipe.SellingPrice)
	}

	history, err := base.ListRecipePriceHistory(context.Background(), testBusiness, bread.ID, 10)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no history rows, got %d", len(history))
	}
}

func TestBulkAdjustPriceSkipsUnchangedRows(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	flour := createFlour(t, svc)
	bread := createBread(t, svc, flour.ID)
	dough := createDough(t, svc, flour.ID)

	if _, err := svc.SetSellingPrice(ctx, testBusiness, bread.ID, domain.SetPriceRequest{Price: d("1000")}); err != nil {
		t.Fatalf("set price failed: %v", err)
	}

	result, err := svc.BulkAdjustPrice(ctx, testBusiness, domain.BulkPriceRequest{
		RecipeIDs: []string{bread.ID, dough.ID, "rcp-missing", bread.ID},
		Mode:      domain.AdjustSet,
		Value:     d("1000"),
	})
	if err != nil {
		t.Fatalf("bulk adjust failed: %v", err)
	}
	if result.Processed != 3 || result.Updated != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Fatalf("unexpected bulk result: %+v", result)
	}
	if result.Errors[0].Key != "rcp-missing" {
		t.Fatalf("expected error for missing recipe, got %+v", result.Errors)
	}

	history, err := svc.ListRecipePriceHistory(ctx, testBusiness, bread.ID, 10)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected skipped row to add no history, got %d rows", len(history))
	}

	result, err = svc.BulkAdjustPrice(ctx, testBusiness, domain.BulkPriceRequest{
		RecipeIDs: []string{bread.ID},
		Mode:      domain.AdjustIncreasePercent,
		Value:     d("10"),
	})
	if err != nil || result.Updated != 1 {
		t.Fatalf("expected percent increase to update, got %+v err=%v", result, err)
	}
	updated, err := svc.GetRecipe(ctx, testBusiness, bread.ID)
	if err != nil {
		t.Fatalf("get recipe failed: %v", err)
	}
	if !updated.SellingPrice.Equal(d("1100")) {
		t.Fatalf("expected 1100 after +10%%, got %s", updated.SellingPrice)
	}

	if _, err := svc.BulkAdjustPrice(ctx, testBusiness, domain.BulkPriceRequest{RecipeIDs: []string{bread.ID}, Mode: "double"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown mode, got %v", err)
	}
}

func TestImportRecipePrices(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	flour := createFlour(t, svc)
	bread := createBread(t, svc, flour.ID)
	dough := createDough(t, svc, flour.ID)

	result, err := svc.ImportRecipePrices(ctx, testBusiness, []domain.RecipePriceImportRow{
		{Line: 2, RecipeID: bread.ID, NewPrice: "1500"},
		{Line: 3, RecipeID: dough.ID, NewPrice: ""},
		{Line: 4, RecipeID: "rcp-missing", NewPrice: "100"},
		{Line: 5, RecipeID: dough.ID, NewPrice: "abc"},
		{Line: 6, RecipeID: dough.ID, NewPrice: "0"},
		{Line: 7, RecipeID: dough.ID, NewPrice: "0.4"},
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Processed != 6 || result.Updated != 1 || result.Skipped != 1 || result.Failed != 4 {
		t.Fatalf("unexpected import result: %+v", result)
	}
	wantRows := []int{4, 5, 6, 7}
	for i, row := range wantRows {
		if result.Errors[i].Row != row {
			t.Fatalf("expected errors on rows %v, got %+v", wantRows, result.Errors)
		}
	}

	history, err := svc.ListRecipePriceHistory(ctx, testBusiness, bread.ID, 1)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one history row, got %d err=%v", len(history), err)
	}
	if history[0].Reason != importReason {
		t.Fatalf("expected default import reason, got %q", history[0].Reason)
	}

	result, err = svc.ImportRecipePrices(ctx, testBusiness, []domain.RecipePriceImportRow{
		{Line: 2, RecipeID: bread.ID, NewPrice: "1500.4"},
		{Line: 3, RecipeID: dough.ID, NewPrice: "2499.5"},
	})
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if result.Updated != 1 || result.Skipped != 1 {
		t.Fatalf("expected rounded no-op row skipped, got %+v", result)
	}
	updated, err := svc.GetRecipe(ctx, testBusiness, dough.ID)
	if err != nil {
		t.Fatalf("get dough failed: %v", err)
	}
	if !updated.SellingPrice.Equal(d("2500")) {
		t.Fatalf("expected imported price rounded to 2500, got %s", updated.SellingPrice)
	}

	list, err := svc.PriceList(ctx, testBusiness)
	if err != nil {
		t.Fatalf("price list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 price list entries, got %d", len(list))
	}
}
