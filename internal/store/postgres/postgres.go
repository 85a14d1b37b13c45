package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/store"
)

const (
	defaultLimit   = 100
	maxTxAttempts  = 5
	retryBaseDelay = 10 * time.Millisecond
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db *sql.DB
	q  queryer
	tx *sql.Tx
}

var _ store.Repository = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, q: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn in a serializable transaction and retries it when
// postgres reports a serialization failure or deadlock.
func (s *Store) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) || attempt == maxTxAttempts {
			return err
		}
		if waitErr := sleepCtx(ctx, retryDelay(attempt)); waitErr != nil {
			return persistence(waitErr)
		}
	}
	return err
}

// retryDelay grows linearly with a random jitter so retried transactions
// do not collide again in lockstep.
func retryDelay(attempt int) time.Duration {
	base := time.Duration(attempt) * retryBaseDelay
	return base + time.Duration(rand.Int64N(int64(retryBaseDelay)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Store) runTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return persistence(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistence(err)
	}
	return nil
}

func (s *Store) GetBusiness(ctx context.Context, businessID string) (*domain.Business, error) {
	var b domain.Business
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&b.ID, &b.Name, &b.CreatedAt)
	if err != nil {
		return nil, readErr(err, "business", businessID)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

func (s *Store) CreateBusiness(ctx context.Context, business domain.Business) (*domain.Business, error) {
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO businesses (id, name, created_at)
		VALUES ($1,$2,$3)
	`, business.ID, business.Name, business.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "business "+business.ID)
	}
	return &business, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, business_id, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, user.Username, user.Password, user.Role, user.BusinessID, user.Active, user.CreatedAt)
	if err != nil {
		return writeErr(err, "user "+user.Username)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var user domain.UserAccount
	err := s.q.QueryRowContext(ctx, `
		SELECT username, password, role, business_id, active, created_at
		FROM app_users
		WHERE username = $1
	`, username).Scan(&user.Username, &user.Password, &user.Role, &user.BusinessID, &user.Active, &user.CreatedAt)
	if err != nil {
		return nil, readErr(err, "user", username)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context, businessID string) ([]domain.UserAccount, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT username, password, role, business_id, active, created_at
		FROM app_users
		WHERE business_id = $1
		ORDER BY username ASC
	`, businessID)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.BusinessID, &user.Active, &user.CreatedAt); err != nil {
			return nil, persistence(err)
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return persistence(err)
	}
	return expectAffected(res, "user", username)
}

func (s *Store) ListUnits(ctx context.Context, businessID string) ([]domain.Unit, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, business_id, name, symbol
		FROM units
		WHERE business_id = $1
		ORDER BY name ASC
	`, businessID)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	units := make([]domain.Unit, 0, 16)
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.BusinessID, &u.Name, &u.Symbol); err != nil {
			return nil, persistence(err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return units, nil
}

func (s *Store) GetUnit(ctx context.Context, businessID string, unitID string) (*domain.Unit, error) {
	var u domain.Unit
	err := s.q.QueryRowContext(ctx, `
		SELECT id, business_id, name, symbol
		FROM units
		WHERE business_id = $1 AND id = $2
	`, businessID, unitID).Scan(&u.ID, &u.BusinessID, &u.Name, &u.Symbol)
	if err != nil {
		return nil, readErr(err, "unit", unitID)
	}
	return &u, nil
}

func (s *Store) FindUnitBySymbol(ctx context.Context, businessID string, symbol string) (*domain.Unit, error) {
	var u domain.Unit
	err := s.q.QueryRowContext(ctx, `
		SELECT id, business_id, name, symbol
		FROM units
		WHERE business_id = $1 AND lower(symbol) = lower($2)
	`, businessID, symbol).Scan(&u.ID, &u.BusinessID, &u.Name, &u.Symbol)
	if err != nil {
		return nil, readErr(err, "unit", symbol)
	}
	return &u, nil
}

func (s *Store) CreateUnit(ctx context.Context, unit domain.Unit) (*domain.Unit, error) {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO units (id, business_id, name, symbol)
		VALUES ($1,$2,$3,$4)
	`, unit.ID, unit.BusinessID, unit.Name, unit.Symbol)
	if err != nil {
		return nil, writeErr(err, "unit symbol "+unit.Symbol)
	}
	return &unit, nil
}

func (s *Store) ListCategories(ctx context.Context, businessID string, kind string) ([]domain.Category, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, business_id, kind, name
		FROM categories
		WHERE business_id = $1 AND ($2::text = '' OR kind = $2)
		ORDER BY kind ASC, name ASC
	`, businessID, kind)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.BusinessID, &c.Kind, &c.Name); err != nil {
			return nil, persistence(err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, businessID string, categoryID string) (*domain.Category, error) {
	var c domain.Category
	err := s.q.QueryRowContext(ctx, `
		SELECT id, business_id, kind, name
		FROM categories
		WHERE business_id = $1 AND id = $2
	`, businessID, categoryID).Scan(&c.ID, &c.BusinessID, &c.Kind, &c.Name)
	if err != nil {
		return nil, readErr(err, "category", categoryID)
	}
	return &c, nil
}

func (s *Store) FindCategoryByName(ctx context.Context, businessID string, kind string, name string) (*domain.Category, error) {
	var c domain.Category
	err := s.q.QueryRowContext(ctx, `
		SELECT id, business_id, kind, name
		FROM categories
		WHERE business_id = $1 AND kind = $2 AND lower(name) = lower($3)
	`, businessID, kind, name).Scan(&c.ID, &c.BusinessID, &c.Kind, &c.Name)
	if err != nil {
		return nil, readErr(err, "category", name)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (id, business_id, kind, name)
		VALUES ($1,$2,$3,$4)
	`, category.ID, category.BusinessID, category.Kind, category.Name)
	if err != nil {
		return nil, writeErr(err, "category "+category.Name)
	}
	return &category, nil
}

func (s *Store) GetSkuSettings(ctx context.Context, businessID string) (*domain.SkuSettings, error) {
	settings := domain.SkuSettings{BusinessID: businessID}
	err := s.q.QueryRowContext(ctx, `
		SELECT ingredient_prefix, recipe_prefix, number_padding, separator, next_ingredient_number, next_recipe_number
		FROM sku_settings
		WHERE business_id = $1
	`, businessID).Scan(&settings.IngredientPrefix, &settings.RecipePrefix, &settings.NumberPadding, &settings.Separator, &settings.NextIngredientNumber, &settings.NextRecipeNumber)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := domain.DefaultSkuSettings(businessID)
		return &defaults, nil
	}
	if err != nil {
		return nil, persistence(err)
	}
	return &settings, nil
}

// UpsertSkuSettings never moves a counter backwards.
func (s *Store) UpsertSkuSettings(ctx context.Context, settings domain.SkuSettings) (*domain.SkuSettings, error) {
	out := domain.SkuSettings{BusinessID: settings.BusinessID}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO sku_settings (business_id, ingredient_prefix, recipe_prefix, number_padding, separator, next_ingredient_number, next_recipe_number)
		VALUES ($1,$2,$3,$4,$5,GREATEST($6, 1),GREATEST($7, 1))
		ON CONFLICT (business_id)
		DO UPDATE SET
			ingredient_prefix = EXCLUDED.ingredient_prefix,
			recipe_prefix = EXCLUDED.recipe_prefix,
			number_padding = EXCLUDED.number_padding,
			separator = EXCLUDED.separator,
			next_ingredient_number = GREATEST(sku_settings.next_ingredient_number, EXCLUDED.next_ingredient_number),
			next_recipe_number = GREATEST(sku_settings.next_recipe_number, EXCLUDED.next_recipe_number)
		RETURNING ingredient_prefix, recipe_prefix, number_padding, separator, next_ingredient_number, next_recipe_number
	`, settings.BusinessID, settings.IngredientPrefix, settings.RecipePrefix, settings.NumberPadding, settings.Separator, settings.NextIngredientNumber, settings.NextRecipeNumber).
		Scan(&out.IngredientPrefix, &out.RecipePrefix, &out.NumberPadding, &out.Separator, &out.NextIngredientNumber, &out.NextRecipeNumber)
	if err != nil {
		return nil, writeErr(err, "sku settings")
	}
	return &out, nil
}

// NextSkuNumber relies on the row lock taken by UPDATE, so concurrent
// callers are serialized by postgres itself. Call it outside WithinTx;
// inside a serializable transaction overlapping callers abort.
func (s *Store) NextSkuNumber(ctx context.Context, businessID string, kind string) (int64, error) {
	var column string
	switch kind {
	case domain.SkuIngredient:
		column = "next_ingredient_number"
	case domain.SkuRecipe:
		column = "next_recipe_number"
	default:
		return 0, fmt.Errorf("%w: unknown sku kind %q", domain.ErrValidation, kind)
	}

	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO sku_settings (business_id)
		VALUES ($1)
		ON CONFLICT (business_id) DO NOTHING
	`, businessID); err != nil {
		return 0, persistence(err)
	}

	var number int64
	err := s.q.QueryRowContext(ctx, `
		UPDATE sku_settings
		SET `+column+` = `+column+` + 1
		WHERE business_id = $1
		RETURNING `+column+` - 1
	`, businessID).Scan(&number)
	if err != nil {
		return 0, persistence(err)
	}
	return number, nil
}

func (s *Store) GetDecimalSettings(ctx context.Context, businessID string) (*domain.DecimalSettings, error) {
	settings := domain.DecimalSettings{BusinessID: businessID}
	err := s.q.QueryRowContext(ctx, `
		SELECT decimal_places, rounding_method, thousand_separator, decimal_separator, currency_symbol, currency_position, show_trailing_zeros
		FROM decimal_settings
		WHERE business_id = $1
	`, businessID).Scan(&settings.DecimalPlaces, &settings.RoundingMethod, &settings.ThousandSeparator, &settings.DecimalSeparator, &settings.CurrencySymbol, &settings.CurrencyPosition, &settings.ShowTrailingZeros)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := domain.DefaultDecimalSettings(businessID)
		return &defaults, nil
	}
	if err != nil {
		return nil, persistence(err)
	}
	return &settings, nil
}

func (s *Store) UpsertDecimalSettings(ctx context.Context, settings domain.DecimalSettings) (*domain.DecimalSettings, error) {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO decimal_settings (business_id, decimal_places, rounding_method, thousand_separator, decimal_separator, currency_symbol, currency_position, show_trailing_zeros)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (business_id)
		DO UPDATE SET
			decimal_places = EXCLUDED.decimal_places,
			rounding_method = EXCLUDED.rounding_method,
			thousand_separator = EXCLUDED.thousand_separator,
			decimal_separator = EXCLUDED.decimal_separator,
			currency_symbol = EXCLUDED.currency_symbol,
			currency_position = EXCLUDED.currency_position,
			show_trailing_zeros = EXCLUDED.show_trailing_zeros
	`, settings.BusinessID, settings.DecimalPlaces, settings.RoundingMethod, settings.ThousandSeparator, settings.DecimalSeparator, settings.CurrencySymbol, settings.CurrencyPosition, settings.ShowTrailingZeros)
	if err != nil {
		return nil, writeErr(err, "decimal settings")
	}
	return &settings, nil
}

func (s *Store) CreateActivityLog(ctx context.Context, entry domain.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO activity_logs (id, business_id, actor, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.BusinessID, entry.Actor, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (s *Store) ListActivityLogs(ctx context.Context, businessID string, limit int) ([]domain.ActivityLog, error) {
	limit = clampLimit(limit)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, business_id, actor, action, entity_type, entity_id, detail, created_at
		FROM activity_logs
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, persistence(err)
	}
	defer rows.Close()

	logs := make([]domain.ActivityLog, 0, limit)
	for rows.Next() {
		var entry domain.ActivityLog
		if err := rows.Scan(&entry.ID, &entry.BusinessID, &entry.Actor, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, persistence(err)
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err)
	}
	return logs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func persistence(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

func notFound(kind string, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
}

func readErr(err error, kind string, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(kind, id)
	}
	return persistence(err)
}

// writeErr maps constraint violations onto the domain taxonomy.
func writeErr(err error, what string) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s already exists", domain.ErrConflict, what)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %s is still referenced", domain.ErrConflict, what)
	default:
		return persistence(err)
	}
}

func expectAffected(res sql.Result, kind string, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return persistence(err)
	}
	if affected == 0 {
		return notFound(kind, id)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func isRetryable(err error) bool {
	code := pgCode(err)
	return code == "40001" || code == "40P01"
}

func nullIfEmpty(val string) any {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return val
}
