package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/costing"
	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store"
	"hitunghpp/backend/internal/xid"
)

var maxCommission = decimal.NewFromInt(100)

func (s *Service) ListSalesChannels(ctx context.Context, businessID string) ([]domain.SalesChannel, error) {
	return s.repo.ListSalesChannels(ctx, businessID)
}

func validateChannelRequest(req domain.SalesChannelRequest) (string, error) {
	name, err := requiredName(req.Name, "sales channel")
	if err != nil {
		return "", err
	}
	if req.Commission.IsNegative() || req.Commission.GreaterThanOrEqual(maxCommission) {
		return "", validationf("commission must be between 0 and 100")
	}
	return name, nil
}

func (s *Service) CreateSalesChannel(ctx context.Context, businessID string, req domain.SalesChannelRequest) (domain.SalesChannel, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.SalesChannel{}, err
	}
	name, err := validateChannelRequest(req)
	if err != nil {
		return domain.SalesChannel{}, err
	}

	created, err := s.repo.CreateSalesChannel(ctx, domain.SalesChannel{
		ID:         xid.New("chn"),
		BusinessID: businessID,
		Name:       name,
		Commission: req.Commission,
		Icon:       strings.TrimSpace(req.Icon),
		CreatedAt:  s.now(),
	})
	if err != nil {
		return domain.SalesChannel{}, err
	}

	s.logActivity(ctx, businessID, "channel_create", "sales_channel", created.ID, fmt.Sprintf("name=%s,commission=%s", created.Name, created.Commission))
	return *created, nil
}

// UpdateSalesChannel changes the channel default commission. Existing
// channel prices keep their own commission snapshot.
func (s *Service) UpdateSalesChannel(ctx context.Context, businessID string, channelID string, req domain.SalesChannelRequest) (domain.SalesChannel, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.SalesChannel{}, err
	}
	name, err := validateChannelRequest(req)
	if err != nil {
		return domain.SalesChannel{}, err
	}

	existing, err := s.repo.GetSalesChannel(ctx, businessID, channelID)
	if err != nil {
		return domain.SalesChannel{}, err
	}
	updated := *existing
	updated.Name = name
	updated.Commission = req.Commission
	updated.Icon = strings.TrimSpace(req.Icon)

	saved, err := s.repo.UpdateSalesChannel(ctx, updated)
	if err != nil {
		return domain.SalesChannel{}, err
	}

	s.logActivity(ctx, businessID, "channel_update", "sales_channel", saved.ID, fmt.Sprintf("name=%s,commission=%s", saved.Name, saved.Commission))
	return *saved, nil
}

func (s *Service) DeleteSalesChannel(ctx context.Context, businessID string, channelID string) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetSalesChannel(ctx, businessID, channelID); err != nil {
			return err
		}
		prices, err := repo.ListChannelPrices(ctx, businessID, "", channelID)
		if err != nil {
			return err
		}
		if len(prices) > 0 {
			return fmt.Errorf("%w: sales channel still has %d price(s)", domain.ErrConflict, len(prices))
		}
		return repo.DeleteSalesChannel(ctx, businessID, channelID)
	})
	if err != nil {
		return err
	}

	s.logActivity(ctx, businessID, "channel_delete", "sales_channel", channelID, "")
	return nil
}

// channelUpsertSummary counts what the upsert core did.
type channelUpsertSummary struct {
	created int
	updated int
	skipped int
}

// upsertChannelPrices writes all items through repo, which callers bind to
// a single transaction. A new row gets an initial history entry from 0;
// an existing row gets history only when its price moves.
func (s *Service) upsertChannelPrices(ctx context.Context, repo store.Repository, businessID string, items []domain.ChannelPriceInput, reason string) (domain.ChannelPriceBatchResponse, channelUpsertSummary, error) {
	resp := domain.ChannelPriceBatchResponse{
		Prices:  make([]domain.ChannelPrice, 0, len(items)),
		History: make([]domain.ChannelPriceHistory, 0, len(items)),
	}
	var summary channelUpsertSummary
	now := s.now()

	for _, item := range items {
		if _, err := repo.GetRecipe(ctx, businessID, item.RecipeID); err != nil {
			return resp, summary, err
		}
		channel, err := repo.GetSalesChannel(ctx, businessID, item.ChannelID)
		if err != nil {
			return resp, summary, err
		}
		commission := channel.Commission
		if item.Commission != nil {
			commission = *item.Commission
		}
		if err := costing.ValidateChannelPrice(item.Price, commission, item.TaxRate); err != nil {
			return resp, summary, fmt.Errorf("recipe %s channel %s: %w", item.RecipeID, item.ChannelID, err)
		}

		existing, err := repo.GetChannelPrice(ctx, businessID, item.RecipeID, item.ChannelID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return resp, summary, err
		}

		next := domain.ChannelPrice{
			BusinessID: businessID,
			RecipeID:   item.RecipeID,
			ChannelID:  item.ChannelID,
			Price:      item.Price,
			Commission: commission,
			TaxRate:    item.TaxRate,
			FinalPrice: costing.FinalPrice(item.Price, item.TaxRate),
			UpdatedAt:  now,
		}

		var saved *domain.ChannelPrice
		oldPrice := decimal.Zero
		if existing == nil {
			next.ID = xid.New("cp")
			saved, err = repo.CreateChannelPrice(ctx, next)
			if err != nil {
				return resp, summary, err
			}
			summary.created++
		} else {
			if existing.Price.Equal(next.Price) && existing.Commission.Equal(next.Commission) && existing.TaxRate.Equal(next.TaxRate) {
				resp.Prices = append(resp.Prices, *existing)
				summary.skipped++
				continue
			}
			next.ID = existing.ID
			oldPrice = existing.Price
			saved, err = repo.UpdateChannelPrice(ctx, next)
			if err != nil {
				return resp, summary, err
			}
			summary.updated++
		}
		resp.Prices = append(resp.Prices, *saved)

		if existing != nil && existing.Price.Equal(saved.Price) {
			continue
		}
		history := domain.ChannelPriceHistory{
			ID:               xid.New("cph"),
			BusinessID:       businessID,
			ChannelPriceID:   saved.ID,
			RecipeID:         saved.RecipeID,
			ChannelID:        saved.ChannelID,
			Reason:           reason,
			PriceChangeEvent: costing.NewPriceChange(oldPrice, saved.Price, now),
		}
		if err := repo.CreateChannelPriceHistory(ctx, history); err != nil {
			return resp, summary, err
		}
		resp.History = append(resp.History, history)
	}
	return resp, summary, nil
}

func validateChannelItems(items []domain.ChannelPriceInput) error {
	if len(items) == 0 {
		return validationf("at least one channel price is required")
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.RecipeID == "" || item.ChannelID == "" {
			return validationf("recipe_id and channel_id are required")
		}
		key := item.RecipeID + "/" + item.ChannelID
		if _, dup := seen[key]; dup {
			return validationf("recipe %s on channel %s listed twice", item.RecipeID, item.ChannelID)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// UpsertChannelPrices applies a batch of channel prices atomically: every
// row and history entry is written or none is.
func (s *Service) UpsertChannelPrices(ctx context.Context, businessID string, req domain.ChannelPriceBatchRequest) (domain.ChannelPriceBatchResponse, error) {
	if err := validateChannelItems(req.Items); err != nil {
		return domain.ChannelPriceBatchResponse{}, err
	}
	resp, _, err := s.commitChannelPrices(ctx, businessID, req.Items, req.Reason, "channel_price_upsert")
	return resp, err
}

func (s *Service) commitChannelPrices(ctx context.Context, businessID string, items []domain.ChannelPriceInput, reason string, action string) (domain.ChannelPriceBatchResponse, channelUpsertSummary, error) {
	var resp domain.ChannelPriceBatchResponse
	var summary channelUpsertSummary
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		var err error
		resp, summary, err = s.upsertChannelPrices(ctx, repo, businessID, items, strings.TrimSpace(reason))
		return err
	})
	if err != nil {
		return domain.ChannelPriceBatchResponse{}, channelUpsertSummary{}, err
	}

	for range resp.History {
		s.metrics.PriceChanged(priceKindChannel)
	}
	s.logActivity(ctx, businessID, action, "channel_price", "", fmt.Sprintf("created=%d,updated=%d,skipped=%d,history=%d", summary.created, summary.updated, summary.skipped, len(resp.History)))
	return resp, summary, nil
}

// ApplyChannelPrices stores caller-rounded prices verbatim through the
// same atomic upsert and reports the resulting economics per row.
func (s *Service) ApplyChannelPrices(ctx context.Context, businessID string, req domain.ChannelPriceBatchRequest) (domain.ChannelPricingResult, error) {
	if err := validateChannelItems(req.Items); err != nil {
		return domain.ChannelPricingResult{}, err
	}
	resp, summary, err := s.commitChannelPrices(ctx, businessID, req.Items, req.Reason, "channel_price_apply")
	if err != nil {
		return domain.ChannelPricingResult{}, err
	}

	result := domain.ChannelPricingResult{
		BulkResult: domain.BulkResult{
			Processed: len(req.Items),
			Created:   summary.created,
			Updated:   summary.updated,
			Skipped:   summary.skipped,
			Errors:    []domain.RowError{},
		},
		Rows: make([]domain.ChannelPricingRow, 0, len(resp.Prices)),
	}
	for _, cp := range resp.Prices {
		row, err := s.describeChannelPrice(ctx, businessID, cp)
		if err != nil {
			return domain.ChannelPricingResult{}, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func (s *Service) describeChannelPrice(ctx context.Context, businessID string, cp domain.ChannelPrice) (domain.ChannelPricingRow, error) {
	recipe, err := s.repo.GetRecipe(ctx, businessID, cp.RecipeID)
	if err != nil {
		return domain.ChannelPricingRow{}, err
	}
	channel, err := s.repo.GetSalesChannel(ctx, businessID, cp.ChannelID)
	if err != nil {
		return domain.ChannelPricingRow{}, err
	}
	net, profit, margin := costing.ChannelEconomics(cp.Price, cp.Commission, recipe.CogsPerServing)
	return domain.ChannelPricingRow{
		RecipeID:       recipe.ID,
		RecipeName:     recipe.Name,
		ChannelID:      channel.ID,
		ChannelName:    channel.Name,
		CogsPerServing: recipe.CogsPerServing,
		BasePrice:      recipe.SellingPrice,
		NewPrice:       cp.Price,
		Commission:     cp.Commission,
		TaxRate:        cp.TaxRate,
		FinalPrice:     cp.FinalPrice,
		NetPrice:       net,
		Profit:         profit,
		ProfitMargin:   margin,
	}, nil
}

// PreviewChannelPricing computes bulk channel prices without saving.
func (s *Service) PreviewChannelPricing(ctx context.Context, businessID string, req domain.ChannelPricingRequest) (domain.ChannelPricingPreview, error) {
	return s.computeChannelPricing(ctx, businessID, req)
}

// BulkChannelPricing computes prices for every recipe × channel pair and
// applies the resolvable ones in one transaction. Unknown recipes or
// channels are reported per row.
func (s *Service) BulkChannelPricing(ctx context.Context, businessID string, req domain.ChannelPricingRequest) (domain.ChannelPricingResult, error) {
	preview, err := s.computeChannelPricing(ctx, businessID, req)
	if err != nil {
		return domain.ChannelPricingResult{}, err
	}

	result := domain.ChannelPricingResult{
		BulkResult: domain.BulkResult{
			Processed: len(preview.Rows) + len(preview.Errors),
			Failed:    len(preview.Errors),
			Errors:    preview.Errors,
		},
		Rows: preview.Rows,
	}
	if len(preview.Rows) == 0 {
		return result, nil
	}

	items := make([]domain.ChannelPriceInput, 0, len(preview.Rows))
	for _, row := range preview.Rows {
		commission := row.Commission
		items = append(items, domain.ChannelPriceInput{
			RecipeID:   row.RecipeID,
			ChannelID:  row.ChannelID,
			Price:      row.NewPrice,
			Commission: &commission,
			TaxRate:    row.TaxRate,
		})
	}

	_, summary, err := s.commitChannelPrices(ctx, businessID, items, req.Reason, "channel_price_bulk")
	if err != nil {
		return domain.ChannelPricingResult{}, err
	}

	result.Created = summary.created
	result.Updated = summary.updated
	result.Skipped = summary.skipped
	return result, nil
}

func (s *Service) computeChannelPricing(ctx context.Context, businessID string, req domain.ChannelPricingRequest) (domain.ChannelPricingPreview, error) {
	switch req.Mode {
	case domain.PricingModeMarkup:
		if req.MarkupPercentage.IsNegative() {
			return domain.ChannelPricingPreview{}, validationf("markup percentage must not be negative")
		}
	case domain.PricingModeProfit:
		if req.TargetProfitAmount.IsNegative() {
			return domain.ChannelPricingPreview{}, validationf("target profit must not be negative")
		}
	default:
		return domain.ChannelPricingPreview{}, validationf("unknown pricing mode %q", req.Mode)
	}
	if _, err := costing.ApplyRounding(decimal.Zero, req.Rounding, req.RoundingIncrement); err != nil {
		return domain.ChannelPricingPreview{}, err
	}
	if req.TaxRate != nil && req.TaxRate.IsNegative() {
		return domain.ChannelPricingPreview{}, validationf("tax rate must not be negative")
	}

	recipeIDs := uniqueIDs(req.RecipeIDs)
	channelIDs := uniqueIDs(req.ChannelIDs)
	if len(recipeIDs) == 0 || len(channelIDs) == 0 {
		return domain.ChannelPricingPreview{}, validationf("recipe_ids and channel_ids are required")
	}

	out := domain.ChannelPricingPreview{Rows: []domain.ChannelPricingRow{}, Errors: []domain.RowError{}}

	channels := make([]domain.SalesChannel, 0, len(channelIDs))
	for _, id := range channelIDs {
		channel, err := s.repo.GetSalesChannel(ctx, businessID, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return domain.ChannelPricingPreview{}, err
			}
			out.Errors = append(out.Errors, domain.RowError{Key: "channel:" + id, Message: err.Error()})
			continue
		}
		channels = append(channels, *channel)
	}

	for _, recipeID := range recipeIDs {
		recipe, err := s.repo.GetRecipe(ctx, businessID, recipeID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return domain.ChannelPricingPreview{}, err
			}
			out.Errors = append(out.Errors, domain.RowError{Key: "recipe:" + recipeID, Message: err.Error()})
			continue
		}

		for _, channel := range channels {
			row, err := s.priceRow(ctx, businessID, *recipe, channel, req)
			if err != nil {
				if !errors.Is(err, domain.ErrValidation) {
					return domain.ChannelPricingPreview{}, err
				}
				out.Errors = append(out.Errors, domain.RowError{Key: recipe.ID + "/" + channel.ID, Message: err.Error()})
				continue
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func (s *Service) priceRow(ctx context.Context, businessID string, recipe domain.Recipe, channel domain.SalesChannel, req domain.ChannelPricingRequest) (domain.ChannelPricingRow, error) {
	row := domain.ChannelPricingRow{
		RecipeID:       recipe.ID,
		RecipeName:     recipe.Name,
		ChannelID:      channel.ID,
		ChannelName:    channel.Name,
		CogsPerServing: recipe.CogsPerServing,
		BasePrice:      recipe.SellingPrice,
		Commission:     channel.Commission,
	}

	existing, err := s.repo.GetChannelPrice(ctx, businessID, recipe.ID, channel.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return row, err
	}
	if existing != nil {
		current := existing.Price
		row.CurrentPrice = &current
		row.Commission = existing.Commission
		row.TaxRate = existing.TaxRate
	}
	if req.TaxRate != nil {
		row.TaxRate = *req.TaxRate
	}

	var raw decimal.Decimal
	if req.Mode == domain.PricingModeMarkup {
		raw = costing.MarkupPrice(recipe.SellingPrice, req.MarkupPercentage)
	} else {
		raw, err = costing.TargetProfitPrice(recipe.CogsPerServing, req.TargetProfitAmount, row.Commission)
		if err != nil {
			return row, err
		}
	}
	row.NewPrice, err = costing.ApplyRounding(raw, req.Rounding, req.RoundingIncrement)
	if err != nil {
		return row, err
	}

	row.FinalPrice = costing.FinalPrice(row.NewPrice, row.TaxRate)
	row.NetPrice, row.Profit, row.ProfitMargin = costing.ChannelEconomics(row.NewPrice, row.Commission, recipe.CogsPerServing)
	return row, nil
}

func (s *Service) ListChannelPrices(ctx context.Context, businessID string, recipeID string) ([]domain.ChannelPriceView, error) {
	recipe, err := s.repo.GetRecipe(ctx, businessID, recipeID)
	if err != nil {
		return nil, err
	}
	prices, err := s.repo.ListChannelPrices(ctx, businessID, recipeID, "")
	if err != nil {
		return nil, err
	}
	channels, err := s.repo.ListSalesChannels(ctx, businessID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(channels))
	for _, c := range channels {
		names[c.ID] = c.Name
	}

	out := make([]domain.ChannelPriceView, 0, len(prices))
	for _, cp := range prices {
		net, profit, margin := costing.ChannelEconomics(cp.Price, cp.Commission, recipe.CogsPerServing)
		out = append(out, domain.ChannelPriceView{
			ChannelPrice: cp,
			ChannelName:  names[cp.ChannelID],
			NetPrice:     net,
			Profit:       profit,
			ProfitMargin: margin,
		})
	}
	return out, nil
}

func (s *Service) ListChannelPriceHistory(ctx context.Context, businessID string, recipeID string, channelID string, limit int) ([]domain.ChannelPriceHistory, error) {
	if recipeID != "" {
		if _, err := s.repo.GetRecipe(ctx, businessID, recipeID); err != nil {
			return nil, err
		}
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListChannelPriceHistory(ctx, businessID, recipeID, channelID, limit)
}
