package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/logging"
	"hitunghpp/backend/internal/metrics"
	"hitunghpp/backend/internal/service"
)

const (
	module           = "httpapi"
	defaultLoginRate = "5-M"
	maxBodyBytes     = 1 << 20
	maxUploadBytes   = 8 << 20
)

type Options struct {
	AllowedOrigin string
	// LoginRate uses the limiter format, e.g. "5-M" for five per minute.
	LoginRate string
	Logger    *logrus.Logger
	Metrics   *metrics.Metrics
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *limiterhttp.Middleware
	validate      *validator.Validate
	logger        *logrus.Logger
	metrics       *metrics.Metrics
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	rate, err := limiter.NewRateFromFormatted(opts.LoginRate)
	if err != nil {
		logging.LogWarn(opts.Logger, module, "New", "invalid login rate, using default", opts.LoginRate, err)
		rate, _ = limiter.NewRateFromFormatted(defaultLoginRate)
	}
	loginLimiter := limiterhttp.NewMiddleware(
		limiter.New(limitermemory.NewStore(), rate),
		limiterhttp.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		}),
	)

	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		loginLimiter:  loginLimiter,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.withSecurityHeaders)
	r.Use(a.withObservability)

	r.Get("/healthz", a.handleHealth)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(a.loginLimiter.Handler).Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Get("/auth/me", a.handleMe)
			r.With(requireRole(domain.RoleOwner)).Get("/users/staff", a.handleListStaff)
			r.With(requireRole(domain.RoleOwner)).Post("/users/staff", a.handleCreateStaff)

			r.Get("/units", a.handleListUnits)
			r.Post("/units", a.handleCreateUnit)
			r.Get("/categories", a.handleListCategories)
			r.Post("/categories", a.handleCreateCategory)

			r.Route("/ingredients", func(r chi.Router) {
				r.Get("/", a.handleListIngredients)
				r.Post("/", a.handleCreateIngredient)
				r.Post("/import", a.handleImportIngredients)
				r.Get("/{id}", a.handleGetIngredient)
				r.Patch("/{id}", a.handleUpdateIngredient)
				r.Delete("/{id}", a.handleDeleteIngredient)
				r.Get("/{id}/price-history", a.handleIngredientPriceHistory)
			})

			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", a.handleListRecipes)
				r.Post("/", a.handleCreateRecipe)
				r.Post("/recalculate", a.handleRecalculate)
				r.Get("/{id}", a.handleGetRecipe)
				r.Patch("/{id}", a.handleUpdateRecipe)
				r.Delete("/{id}", a.handleDeleteRecipe)
				r.Post("/{id}/favorite", a.handleToggleFavorite)
				r.Post("/{id}/duplicate", a.handleDuplicateRecipe)
				r.Get("/{id}/breakdown", a.handleCostBreakdown)
				r.Put("/{id}/price", a.handleSetSellingPrice)
				r.Get("/{id}/price-history", a.handleRecipePriceHistory)
				r.Get("/{id}/channel-prices", a.handleRecipeChannelPrices)
			})

			r.Post("/pricing/bulk", a.handleBulkAdjustPrice)
			r.Post("/pricing/import", a.handleImportRecipePrices)
			r.Get("/pricing/export", a.handleExportPriceList)

			r.Get("/channels", a.handleListChannels)
			r.Post("/channels", a.handleCreateChannel)
			r.Patch("/channels/{id}", a.handleUpdateChannel)
			r.Delete("/channels/{id}", a.handleDeleteChannel)

			r.Put("/channel-prices", a.handleUpsertChannelPrices)
			r.Post("/channel-prices/apply", a.handleApplyChannelPrices)
			r.Post("/channel-prices/preview", a.handlePreviewChannelPricing)
			r.Post("/channel-prices/bulk", a.handleBulkChannelPricing)
			r.Get("/channel-prices/history", a.handleChannelPriceHistory)

			r.Get("/settings/sku", a.handleGetSkuSettings)
			r.Put("/settings/sku", a.handleUpdateSkuSettings)
			r.Get("/settings/decimal", a.handleGetDecimalSettings)
			r.Put("/settings/decimal", a.handleUpdateDecimalSettings)
			r.Post("/sku/generate", a.handleGenerateSku)
			r.Post("/sku/backfill", a.handleBackfillSkus)
			r.Post("/format/price", a.handleFormatPrice)
			r.Get("/activity-logs", a.handleActivityLogs)
		})
	})

	return r
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok || !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// businessID is only valid behind requireAuth.
func businessID(r *http.Request) string {
	actor, _ := service.ActorFromContext(r.Context())
	return actor.BusinessID
}

func (a *API) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		limit := int64(maxBodyBytes)
		if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/") {
			limit = maxUploadBytes
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		next.ServeHTTP(w, r)
	})
}

// withObservability logs every request and records it under the matched
// route pattern so path ids do not explode metric cardinality.
func (a *API) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(startedAt)

		a.metrics.ObserveRequest(r.Method, route, status, elapsed)
		a.logger.WithFields(logrus.Fields{
			"module":     module,
			"method":     r.Method,
			"path":       r.URL.Path,
			"route":      route,
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
		}).Info("request")
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) || errors.Is(err, errInactiveAccount) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		a.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"username":    actor.Username,
		"role":        actor.Role,
		"business_id": actor.BusinessID,
	})
}

func (a *API) handleListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := a.auth.ListStaff(r.Context(), businessID(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": staff})
}

func (a *API) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var req domain.StaffCreateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	user, err := a.auth.CreateStaff(r.Context(), businessID(r), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"staff": user})
}

// decodeValid decodes a JSON body and runs struct validation, writing the
// 400 response itself when either step fails.
func (a *API) decodeValid(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	parts := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s failed %s", ve.Namespace(), ve.Tag()))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(parts, "; "))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		logging.LogError(a.logger, module, "writeServiceError", "unhandled service error", nil, err)
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func parseBoolQuery(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return err == nil && v
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry driver or stack detail.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
