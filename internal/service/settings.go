package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/format"
	"hitunghpp/backend/internal/logging"
	"hitunghpp/backend/internal/xid"
)

// GetDecimalSettings reads through the settings cache. Cache errors fall
// back to the repository.
func (s *Service) GetDecimalSettings(ctx context.Context, businessID string) (domain.DecimalSettings, error) {
	cached, ok, err := s.settingsCache.GetDecimalSettings(ctx, businessID)
	if err != nil {
		logging.LogWarn(s.logger, module, "GetDecimalSettings", "read settings cache", logrus.Fields{"business_id": businessID}, err)
	}
	if ok && cached != nil {
		return *cached, nil
	}

	settings, err := s.repo.GetDecimalSettings(ctx, businessID)
	if err != nil {
		return domain.DecimalSettings{}, err
	}
	if err := s.settingsCache.SetDecimalSettings(ctx, *settings, s.settingsTTL); err != nil {
		logging.LogWarn(s.logger, module, "GetDecimalSettings", "fill settings cache", logrus.Fields{"business_id": businessID}, err)
	}
	return *settings, nil
}

func validateDecimalSettings(settings domain.DecimalSettings) error {
	if settings.DecimalPlaces < 0 || settings.DecimalPlaces > 6 {
		return validationf("decimal places must be between 0 and 6")
	}
	switch settings.RoundingMethod {
	case domain.RoundingRound, domain.RoundingFloor, domain.RoundingCeil:
	default:
		return validationf("unknown rounding method %q", settings.RoundingMethod)
	}
	switch settings.CurrencyPosition {
	case domain.CurrencyBefore, domain.CurrencyAfter:
	default:
		return validationf("unknown currency position %q", settings.CurrencyPosition)
	}
	if settings.DecimalSeparator == "" {
		return validationf("decimal separator is required")
	}
	if settings.DecimalSeparator == settings.ThousandSeparator {
		return validationf("decimal and thousand separators must differ")
	}
	if strings.ContainsAny(settings.ThousandSeparator+settings.DecimalSeparator, "0123456789-") {
		return validationf("separators must not contain digits or '-'")
	}
	return nil
}

func (s *Service) UpdateDecimalSettings(ctx context.Context, businessID string, settings domain.DecimalSettings) (domain.DecimalSettings, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.DecimalSettings{}, err
	}
	settings.BusinessID = businessID
	if err := validateDecimalSettings(settings); err != nil {
		return domain.DecimalSettings{}, err
	}

	saved, err := s.repo.UpsertDecimalSettings(ctx, settings)
	if err != nil {
		return domain.DecimalSettings{}, err
	}
	if err := s.settingsCache.DeleteDecimalSettings(ctx, businessID); err != nil {
		logging.LogWarn(s.logger, module, "UpdateDecimalSettings", "invalidate settings cache", logrus.Fields{"business_id": businessID}, err)
	}

	s.logActivity(ctx, businessID, "settings_decimal_update", "settings", businessID,
		fmt.Sprintf("places=%d,rounding=%s", saved.DecimalPlaces, saved.RoundingMethod))
	return *saved, nil
}

// FormatPrice renders an amount with the business display policy.
func (s *Service) FormatPrice(ctx context.Context, businessID string, req domain.FormatPriceRequest) (domain.FormatPriceResponse, error) {
	if req.DecimalPlaces != nil && (*req.DecimalPlaces < 0 || *req.DecimalPlaces > 6) {
		return domain.FormatPriceResponse{}, validationf("decimal places must be between 0 and 6")
	}
	settings, err := s.GetDecimalSettings(ctx, businessID)
	if err != nil {
		return domain.FormatPriceResponse{}, err
	}
	return domain.FormatPriceResponse{
		Amount:    req.Amount,
		Formatted: format.FormatPrice(req.Amount, settings, format.Options{OmitSymbol: req.OmitSymbol, DecimalPlaces: req.DecimalPlaces}),
	}, nil
}

func (s *Service) ListUnits(ctx context.Context, businessID string) ([]domain.Unit, error) {
	return s.repo.ListUnits(ctx, businessID)
}

func (s *Service) CreateUnit(ctx context.Context, businessID string, req domain.UnitCreateRequest) (domain.Unit, error) {
	name, err := requiredName(req.Name, "unit")
	if err != nil {
		return domain.Unit{}, err
	}
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return domain.Unit{}, validationf("unit symbol is required")
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

func (s *Service) ListCategories(ctx context.Context, businessID string, kind string) ([]domain.Category, error) {
	if kind != "" && kind != domain.CategoryKindIngredient && kind != domain.CategoryKindRecipe {
		return nil, validationf("unknown category kind %q", kind)
	}
	return s.repo.ListCategories(ctx, businessID, kind)
}

func (s *Service) CreateCategory(ctx context.Context, businessID string, req domain.CategoryCreateRequest) (domain.Category, error) {
	if req.Kind != domain.CategoryKindIngredient && req.Kind != domain.CategoryKindRecipe {
		return domain.Category{}, validationf("unknown category kind %q", req.Kind)
	}
	name, err := requiredName(req.Name, "category")
	if err != nil {
		return domain.Category{}, err
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:         xid.New("cat"),
		BusinessID: businessID,
		Kind:       req.Kind,
		Name:       name,
	})
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}
