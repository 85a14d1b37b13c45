package service

import (
	"testing"

	"hitunghpp/backend/internal/domain"
)

func TestImportIngredientsCreatesAndUpdates(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	flour := createFlour(t, svc)

	result, err := svc.ImportIngredients(ctx, testBusiness, []domain.IngredientImportRow{
		{
			Line:               2,
			Name:               "Gula Pasir",
			CategoryName:       "Pemanis",
			PurchasePrice:      "18000",
			PackageSize:        "1",
			PurchaseUnitName:   "Kilogram",
			PurchaseUnitSymbol: "kg",
			UsageUnitName:      "Gram",
			UsageUnitSymbol:    "g",
			ConversionFactor:   "1000",
		},
		{
			Line:               3,
			Name:               "tepung",
			PurchasePrice:      "16000",
			PackageSize:        "1",
			PurchaseUnitSymbol: "kg",
			UsageUnitSymbol:    "g",
			ConversionFactor:   "1000",
		},
		{
			Line:               4,
			Name:               "Santan",
			PurchasePrice:      "murah",
			PurchaseUnitSymbol: "ml",
		},
		{
			Line:               5,
			Name:               "Telur",
			PurchasePrice:      "2000",
			PurchaseUnitName:   "Butir",
			PurchaseUnitSymbol: "btr",
		},
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Processed != 4 || result.Created != 2 || result.Updated != 1 || result.Failed != 1 {
		t.Fatalf("unexpected import result: %+v", result)
	}
	if result.Errors[0].Row != 4 {
		t.Fatalf("expected error on row 4, got %+v", result.Errors)
	}

	updated, err := svc.GetIngredient(ctx, testBusiness, flour.ID)
	if err != nil {
		t.Fatalf("get flour failed: %v", err)
	}
	if !updated.CostPerUnit.Equal(d("16")) {
		t.Fatalf("expected updated cost per unit 16, got %s", updated.CostPerUnit)
	}
	history, err := svc.ListIngredientPriceHistory(ctx, testBusiness, flour.ID, 10)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one history row for the import update, got %d err=%v", len(history), err)
	}

	categories, err := svc.ListCategories(ctx, testBusiness, domain.CategoryKindIngredient)
	if err != nil || len(categories) != 1 || categories[0].Name != "Pemanis" {
		t.Fatalf("expected imported category, got %+v err=%v", categories, err)
	}

	units, err := svc.ListUnits(ctx, testBusiness)
	if err != nil {
		t.Fatalf("list units failed: %v", err)
	}
	found := false
	for _, u := range units {
		if u.Symbol == "btr" && u.Name == "Butir" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unit btr to be created, got %+v", units)
	}

	eggs, err := svc.ListIngredients(ctx, testBusiness, domain.IngredientFilter{Search: "telur"})
	if err != nil || len(eggs) != 1 {
		t.Fatalf("expected one egg ingredient, got %d err=%v", len(eggs), err)
	}
	if eggs[0].PurchaseUnitID != eggs[0].UsageUnitID || !eggs[0].CostPerUnit.Equal(d("2000")) {
		t.Fatalf("expected usage unit to default to purchase unit, got %+v", eggs[0])
	}
}

func TestImportRejectedRowCreatesNoUnitOrCategory(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	unitsBefore, err := svc.ListUnits(ctx, testBusiness)
	if err != nil {
		t.Fatalf("list units failed: %v", err)
	}

	result, err := svc.ImportIngredients(ctx, testBusiness, []domain.IngredientImportRow{
		{
			Line:               2,
			Name:               "Ragi",
			CategoryName:       "Pengembang",
			PurchasePrice:      "12000",
			PackageSize:        "0",
			PurchaseUnitName:   "Sachet",
			PurchaseUnitSymbol: "sct",
		},
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Failed != 1 || result.Created != 0 {
		t.Fatalf("expected the row to fail, got %+v", result)
	}

	unitsAfter, err := svc.ListUnits(ctx, testBusiness)
	if err != nil {
		t.Fatalf("list units failed: %v", err)
	}
	if len(unitsAfter) != len(unitsBefore) {
		t.Fatalf("expected %d units after a rejected row, got %d", len(unitsBefore), len(unitsAfter))
	}
	categories, err := svc.ListCategories(ctx, testBusiness, domain.CategoryKindIngredient)
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	if len(categories) != 0 {
		t.Fatalf("expected no category after a rejected row, got %+v", categories)
	}
}
