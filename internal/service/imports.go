package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/costing"
	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/xid"
)

// ImportIngredients creates or updates ingredients from parsed CSV rows,
// matching existing ones by name. Units and categories named in a row are
// created when missing. A bad row is reported and the rest continue.
func (s *Service) ImportIngredients(ctx context.Context, businessID string, rows []domain.IngredientImportRow) (domain.BulkResult, error) {
	existing, err := s.repo.ListIngredients(ctx, businessID, domain.IngredientFilter{})
	if err != nil {
		return domain.BulkResult{}, err
	}
	byName := make(map[string]string, len(existing))
	for _, ing := range existing {
		byName[strings.ToLower(ing.Name)] = ing.ID
	}

	result := newBulkResult()
	for i, row := range rows {
		line := row.Line
		if line == 0 {
			line = i + 1
		}
		result.Processed++

		req, err := s.resolveImportRow(ctx, businessID, row)
		if err != nil {
			result.fail(line, row.Name, err)
			continue
		}

		key := strings.ToLower(req.Name)
		if id, ok := byName[key]; ok {
			_, err := s.UpdateIngredient(ctx, businessID, id, domain.IngredientUpdateRequest{
				Description:      &req.Description,
				PurchasePrice:    &req.PurchasePrice,
				PackageSize:      &req.PackageSize,
				ConversionFactor: &req.ConversionFactor,
				PurchaseUnitID:   &req.PurchaseUnitID,
				UsageUnitID:      &req.UsageUnitID,
				CategoryID:       &req.CategoryID,
			})
			if err != nil {
				result.fail(line, row.Name, err)
				continue
			}
			result.Updated++
			continue
		}

		created, err := s.CreateIngredient(ctx, businessID, req)
		if err != nil {
			result.fail(line, row.Name, err)
			continue
		}
		byName[key] = created.ID
		result.Created++
	}
	return result.BulkResult, nil
}

func (s *Service) resolveImportRow(ctx context.Context, businessID string, row domain.IngredientImportRow) (domain.IngredientCreateRequest, error) {
	name, err := requiredName(row.Name, "ingredient")
	if err != nil {
		return domain.IngredientCreateRequest{}, err
	}
	price, err := parseImportDecimal(row.PurchasePrice, "purchasePrice", decimal.Zero, true)
	if err != nil {
		return domain.IngredientCreateRequest{}, err
	}
	size, err := parseImportDecimal(row.PackageSize, "packageSize", decimal.NewFromInt(1), false)
	if err != nil {
		return domain.IngredientCreateRequest{}, err
	}
	factor, err := parseImportDecimal(row.ConversionFactor, "conversionFactor", decimal.NewFromInt(1), false)
	if err != nil {
		return domain.IngredientCreateRequest{}, err
	}
	// Numbers are checked before any unit or category is created, so a
	// rejected row leaves the registry untouched.
	if _, err := costing.CostPerUnit(price, size, factor); err != nil {
		return domain.IngredientCreateRequest{}, err
	}

	purchaseUnit, err := s.findOrCreateUnit(ctx, businessID, row.PurchaseUnitName, row.PurchaseUnitSymbol)
	if err != nil {
		return domain.IngredientCreateRequest{}, err
	}
	usageUnit := purchaseUnit
	if strings.TrimSpace(row.UsageUnitSymbol) != "" || strings.TrimSpace(row.UsageUnitName) != "" {
		usageUnit, err = s.findOrCreateUnit(ctx, businessID, row.UsageUnitName, row.UsageUnitSymbol)
		if err != nil {
			return domain.IngredientCreateRequest{}, err
		}
	}

	categoryID := ""
	if categoryName := strings.TrimSpace(row.CategoryName); categoryName != "" {
		category, err := s.findOrCreateCategory(ctx, businessID, domain.CategoryKindIngredient, categoryName)
		if err != nil {
			return domain.IngredientCreateRequest{}, err
		}
		categoryID = category.ID
	}

	return domain.IngredientCreateRequest{
		Name:             name,
		Description:      strings.TrimSpace(row.Description),
		PurchasePrice:    price,
		PackageSize:      size,
		ConversionFactor: factor,
		PurchaseUnitID:   purchaseUnit.ID,
		UsageUnitID:      usageUnit.ID,
		CategoryID:       categoryID,
	}, nil
}

// parseImportDecimal parses a CSV cell; a blank cell yields fallback unless
// required is set.
func parseImportDecimal(raw string, field string, fallback decimal.Decimal, required bool) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return decimal.Zero, validationf("%s is required", field)
		}
		return fallback, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, validationf("%s %q is not a number", field, raw)
	}
	return value, nil
}

func (s *Service) findOrCreateUnit(ctx context.Context, businessID string, name string, symbol string) (domain.Unit, error) {
	name = strings.TrimSpace(name)
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = name
	}
	if symbol == "" {
		return domain.Unit{}, validationf("unit symbol is required")
	}
	if name == "" {
		name = symbol
	}

	unit, err := s.repo.FindUnitBySymbol(ctx, businessID, symbol)
	if err == nil {
		return *unit, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Unit{}, err
	}
	created, err := s.repo.CreateUnit(ctx, domain.Unit{
		ID:         xid.New("unit"),
		BusinessID: businessID,
		Name:       name,
		Symbol:     symbol,
	})
	if err != nil {
		return domain.Unit{}, err
	}
	return *created, nil
}

func (s *Service) findOrCreateCategory(ctx context.Context, businessID string, kind string, name string) (domain.Category, error) {
	category, err := s.repo.FindCategoryByName(ctx, businessID, kind, name)
	if err == nil {
		return *category, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Category{}, err
	}
	created, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:         xid.New("cat"),
		BusinessID: businessID,
		Kind:       kind,
		Name:       name,
	})
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}
