package cache

import (
	"context"
	"testing"

	"hitunghpp/backend/internal/domain"
)

func TestNoopSettingsCacheAlwaysMisses(t *testing.T) {
	c := NoopSettingsCache{}
	ctx := context.Background()
	if err := c.SetDecimalSettings(ctx, domain.DefaultDecimalSettings("biz-1"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.GetDecimalSettings(ctx, "biz-1")
	if err != nil || ok || got != nil {
		t.Fatalf("expected miss, got %v %v %v", got, ok, err)
	}
}

func TestNoopLockerReleases(t *testing.T) {
	release, err := NoopLocker{}.LockSku(context.Background(), "biz-1", domain.SkuRecipe)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestKeysAreScopedPerBusiness(t *testing.T) {
	if decimalSettingsKey("a") == decimalSettingsKey("b") {
		t.Fatalf("expected distinct settings keys")
	}
	if skuLockKey("a", domain.SkuRecipe) == skuLockKey("a", domain.SkuIngredient) {
		t.Fatalf("expected distinct lock keys per kind")
	}
}
