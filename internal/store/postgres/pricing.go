package postgres

import (
	"context"

	"hitunghpp/backend/internal/domain"
)

const channelPriceColumns = `
	id, business_id, recipe_id, channel_id, price, commission, tax_rate, final_price, updated_at`

func scanSalesChannel(sc scanner) (domain.SalesChannel, error) {
	var c domain.SalesChannel
	if err := sc.Scan(&c.ID, &c.BusinessID, &c.Name, &c.Commission, &c.Icon, &c.CreatedAt); err != nil {
		return c, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func scanChannelPrice(sc scanner) (domain.ChannelPrice, error) {
	var p domain.ChannelPrice
	err := sc.Scan(&p.ID, &p.BusinessID, &p.RecipeID, &p.ChannelID, &p.Price, &p.Commission, &p.TaxRate, &p.FinalPrice, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListSalesChannels(ctx context.Context, businessID string) ([]domain.SalesChannel, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, business_id, name, commission, icon, created_at
		FROM sales_channels
		WHERE business_id = $1
		ORDER BY created_at ASC, name ASC
	`, businessID)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	channels := make([]domain.SalesChannel, 0, 8)
	for rows.Next() {
		c, err := scanSalesChannel(rows)
		if err != nil {
			return nil, persistence(err)
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return channels, nil
}

func (s *Store) GetSalesChannel(ctx context.Context, businessID string, channelID string) (*domain.SalesChannel, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, business_id, name, commission, icon, created_at
		FROM sales_channels
		WHERE business_id = $1 AND id = $2
	`, businessID, channelID)
	c, err := scanSalesChannel(row)
	if err != nil {
		return nil, readErr(err, "sales channel", channelID)
	}
	return &c, nil
}

func (s *Store) CreateSalesChannel(ctx context.Context, channel domain.SalesChannel) (*domain.SalesChannel, error) {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sales_channels (id, business_id, name, commission, icon, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, channel.ID, channel.BusinessID, channel.Name, channel.Commission, channel.Icon, channel.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "sales channel "+channel.Name)
	}
	return &channel, nil
}

func (s *Store) UpdateSalesChannel(ctx context.Context, channel domain.SalesChannel) (*domain.SalesChannel, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE sales_channels
		SET name = $3, commission = $4, icon = $5
		WHERE business_id = $1 AND id = $2
	`, channel.BusinessID, channel.ID, channel.Name, channel.Commission, channel.Icon)
	if err != nil {
		return nil, writeErr(err, "sales channel "+channel.Name)
	}
	if err := expectAffected(res, "sales channel", channel.ID); err != nil {
		return nil, err
	}
	return &channel, nil
}

func (s *Store) DeleteSalesChannel(ctx context.Context, businessID string, channelID string) error {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM sales_channels
		WHERE business_id = $1 AND id = $2
	`, businessID, channelID)
	if err != nil {
		return writeErr(err, "sales channel "+channelID)
	}
	return expectAffected(res, "sales channel", channelID)
}

func (s *Store) GetChannelPrice(ctx context.Context, businessID string, recipeID string, channelID string) (*domain.ChannelPrice, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+channelPriceColumns+`
		FROM channel_prices
		WHERE business_id = $1 AND recipe_id = $2 AND channel_id = $3
	`, businessID, recipeID, channelID)
	p, err := scanChannelPrice(row)
	if err != nil {
		return nil, readErr(err, "channel price", recipeID+"/"+channelID)
	}
	return &p, nil
}

func (s *Store) ListChannelPrices(ctx context.Context, businessID string, recipeID string, channelID string) ([]domain.ChannelPrice, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+channelPriceColumns+`
		FROM channel_prices
		WHERE business_id = $1
			AND ($2::text = '' OR recipe_id = $2)
			AND ($3::text = '' OR channel_id = $3)
		ORDER BY recipe_id ASC, channel_id ASC
	`, businessID, recipeID, channelID)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	prices := make([]domain.ChannelPrice, 0, 16)
	for rows.Next() {
		p, err := scanChannelPrice(rows)
		if err != nil {
			return nil, persistence(err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return prices, nil
}

// CreateChannelPrice requires the recipe and the channel to belong to the
// same business as the price row.
func (s *Store) CreateChannelPrice(ctx context.Context, price domain.ChannelPrice) (*domain.ChannelPrice, error) {
	var recipeOK, channelOK bool
	err := s.q.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM recipes WHERE business_id = $1 AND id = $2),
			EXISTS (SELECT 1 FROM sales_channels WHERE business_id = $1 AND id = $3)
	`, price.BusinessID, price.RecipeID, price.ChannelID).Scan(&recipeOK, &channelOK)
	if err != nil {
		return nil, persistence(err)
	}
	if !recipeOK {
		return nil, notFound("recipe", price.RecipeID)
	}
	if !channelOK {
		return nil, notFound("sales channel", price.ChannelID)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO channel_prices (
			id, business_id, recipe_id, channel_id, price, commission, tax_rate, final_price, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, price.ID, price.BusinessID, price.RecipeID, price.ChannelID, price.Price, price.Commission,
		price.TaxRate, price.FinalPrice, price.UpdatedAt)
	if err != nil {
		return nil, writeErr(err, "channel price "+price.RecipeID+"/"+price.ChannelID)
	}
	return &price, nil
}

// UpdateChannelPrice rewrites the amounts; the recipe and channel of a
// row never change.
func (s *Store) UpdateChannelPrice(ctx context.Context, price domain.ChannelPrice) (*domain.ChannelPrice, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE channel_prices
		SET price = $3, commission = $4, tax_rate = $5, final_price = $6, updated_at = $7
		WHERE business_id = $1 AND id = $2
		RETURNING `+channelPriceColumns+`
	`, price.BusinessID, price.ID, price.Price, price.Commission, price.TaxRate, price.FinalPrice, price.UpdatedAt)
	updated, err := scanChannelPrice(row)
	if err != nil {
		return nil, readErr(err, "channel price", price.ID)
	}
	return &updated, nil
}

func (s *Store) CreateChannelPriceHistory(ctx context.Context, entry domain.ChannelPriceHistory) error {
	args := append([]any{entry.ID, entry.BusinessID, entry.ChannelPriceID, entry.RecipeID, entry.ChannelID, entry.Reason},
		eventArgs(entry.PriceChangeEvent)...)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO channel_price_history (
			id, business_id, channel_price_id, recipe_id, channel_id, reason,
			old_price, new_price, price_change, percentage_change, change_type, change_date
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, args...)
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (s *Store) ListChannelPriceHistory(ctx context.Context, businessID string, recipeID string, channelID string, limit int) ([]domain.ChannelPriceHistory, error) {
	limit = clampLimit(limit)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, business_id, channel_price_id, recipe_id, channel_id, reason,
			old_price, new_price, price_change, percentage_change, change_type, change_date
		FROM channel_price_history
		WHERE business_id = $1
			AND ($2::text = '' OR recipe_id = $2)
			AND ($3::text = '' OR channel_id = $3)
		ORDER BY change_date DESC
		LIMIT $4
	`, businessID, recipeID, channelID, limit)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	history := make([]domain.ChannelPriceHistory, 0, limit)
	for rows.Next() {
		var h domain.ChannelPriceHistory
		dest := append([]any{&h.ID, &h.BusinessID, &h.ChannelPriceID, &h.RecipeID, &h.ChannelID, &h.Reason},
			eventDest(&h.PriceChangeEvent)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, persistence(err)
		}
		h.ChangeDate = h.ChangeDate.UTC()
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return history, nil
}
