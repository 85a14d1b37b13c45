package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hitunghpp/backend/internal/cache"
	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/logging"
	"hitunghpp/backend/internal/metrics"
	"hitunghpp/backend/internal/store"
	"hitunghpp/backend/internal/xid"
)

const module = "service"

const (
	priceKindIngredient = "ingredient"
	priceKindRecipe     = "recipe"
	priceKindChannel    = "channel"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	SettingsCache cache.SettingsCache
	SettingsTTL   time.Duration
	Locker        cache.Locker
	Logger        *logrus.Logger
	Metrics       *metrics.Metrics
	// Now is the clock used for timestamps; tests pin it.
	Now func() time.Time
}

type Service struct {
	repo          store.Repository
	settingsCache cache.SettingsCache
	settingsTTL   time.Duration
	locker        cache.Locker
	logger        *logrus.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.SettingsCache == nil {
		opts.SettingsCache = cache.NoopSettingsCache{}
	}
	if opts.SettingsTTL <= 0 {
		opts.SettingsTTL = 5 * time.Minute
	}
	if opts.Locker == nil {
		opts.Locker = cache.NoopLocker{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		repo:          repo,
		settingsCache: opts.SettingsCache,
		settingsTTL:   opts.SettingsTTL,
		locker:        opts.Locker,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		now:           opts.Now,
	}
}

func requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return fmt.Errorf("%w: owner role required", domain.ErrForbidden)
	}
	return nil
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username
	}
	return "system"
}

// logActivity is fire-and-forget: failures are logged and swallowed.
func (s *Service) logActivity(ctx context.Context, businessID string, action string, entityType string, entityID string, detail string) {
	entry := domain.ActivityLog{
		ID:         xid.New("act"),
		BusinessID: businessID,
		Actor:      actorName(ctx),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateActivityLog(ctx, entry); err != nil {
		logging.LogWarn(s.logger, module, "logActivity", "write activity log", logrus.Fields{
			"action": action,
			"entity": entityType + "/" + entityID,
		}, err)
	}
}

func (s *Service) ListActivityLogs(ctx context.Context, businessID string, limit int) ([]domain.ActivityLog, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListActivityLogs(ctx, businessID, limit)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...)
}

func requiredName(name string, what string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationf("%s name is required", what)
	}
	return name, nil
}

func sortByCreated[T any](items []T, key func(T) int64) {
	slices.SortStableFunc(items, func(a, b T) int { return cmp.Compare(key(a), key(b)) })
}

type bulkResult struct {
	domain.BulkResult
}

func newBulkResult() *bulkResult {
	return &bulkResult{domain.BulkResult{Errors: []domain.RowError{}}}
}

func (r *bulkResult) fail(row int, key string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, domain.RowError{Row: row, Key: key, Message: err.Error()})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
