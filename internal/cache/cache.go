package cache

import (
	"context"
	"time"

	"hitunghpp/backend/internal/domain"
)

// SettingsCache holds per-business decimal settings read on every
// formatted price.
type SettingsCache interface {
	GetDecimalSettings(ctx context.Context, businessID string) (*domain.DecimalSettings, bool, error)
	SetDecimalSettings(ctx context.Context, value domain.DecimalSettings, ttl time.Duration) error
	DeleteDecimalSettings(ctx context.Context, businessID string) error
}

type NoopSettingsCache struct{}

func (NoopSettingsCache) GetDecimalSettings(_ context.Context, _ string) (*domain.DecimalSettings, bool, error) {
	return nil, false, nil
}

func (NoopSettingsCache) SetDecimalSettings(_ context.Context, _ domain.DecimalSettings, _ time.Duration) error {
	return nil
}

func (NoopSettingsCache) DeleteDecimalSettings(_ context.Context, _ string) error {
	return nil
}

func decimalSettingsKey(businessID string) string {
	return "settings:decimal:" + businessID
}

func skuLockKey(businessID string, kind string) string {
	return "lock:sku:" + businessID + ":" + kind
}
