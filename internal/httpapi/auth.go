package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"hitunghpp/backend/internal/domain"
	"hitunghpp/backend/internal/logging"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInactiveAccount    = errors.New("account is inactive")
)

type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	logger    *logrus.Logger
}

// UserStore is the slice of the repository the auth manager needs.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context, businessID string) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type hppClaims struct {
	jwtlib.RegisteredClaims
	Role       string `json:"role"`
	BusinessID string `json:"business_id"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		logger:    logging.Discard(),
	}
}

// WithLogger sets the logger used for non-fatal auth failures.
func (a *AuthManager) WithLogger(logger *logrus.Logger) *AuthManager {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := a.userStore.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.LoginResponse{}, errInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}

	stored := a.upgradeLegacyPassword(ctx, user)
	if !verifyPassword(stored, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !user.Active {
		return domain.LoginResponse{}, errInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user.Username, user.Role, user.BusinessID, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        user.Role,
		BusinessID:  user.BusinessID,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// upgradeLegacyPassword rehashes a plain-text password left by an older
// import and returns the value to verify against.
func (a *AuthManager) upgradeLegacyPassword(ctx context.Context, user *domain.UserAccount) string {
	if isPasswordHash(user.Password) {
		return user.Password
	}
	hashed, err := hashPassword(user.Password)
	if err != nil {
		logging.LogWarn(a.logger, module, "upgradeLegacyPassword", "hash legacy password", user.Username, err)
		return ""
	}
	if err := a.userStore.UpdateUserPassword(ctx, user.Username, hashed); err != nil {
		logging.LogWarn(a.logger, module, "upgradeLegacyPassword", "store upgraded password hash", user.Username, err)
	}
	return hashed
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &hppClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	if claims.BusinessID == "" {
		return domain.Actor{}, errors.New("token carries no business")
	}
	return domain.Actor{Username: sub, Role: claims.Role, BusinessID: claims.BusinessID}, nil
}

func (a *AuthManager) sign(username, role, businessID string, expiresAt time.Time) (string, error) {
	claims := hppClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "hitunghpp",
		},
		Role:       role,
		BusinessID: businessID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// CreateStaff adds a staff account to the owner's business.
func (a *AuthManager) CreateStaff(ctx context.Context, businessID string, req domain.StaffCreateRequest) (domain.UserAccount, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 4 {
		return domain.UserAccount{}, fmt.Errorf("%w: username must be at least 4 characters", domain.ErrValidation)
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.UserAccount{}, fmt.Errorf("%w: username must not contain spaces", domain.ErrValidation)
	}
	if len(req.Password) < 6 {
		return domain.UserAccount{}, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("failed to hash password")
	}

	user := domain.UserAccount{
		Username:   username,
		Password:   passwordHash,
		Role:       domain.RoleStaff,
		BusinessID: businessID,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.userStore.CreateUser(ctx, user); err != nil {
		return domain.UserAccount{}, err
	}
	return user, nil
}

func (a *AuthManager) ListStaff(ctx context.Context, businessID string) ([]domain.UserAccount, error) {
	users, err := a.userStore.ListUsers(ctx, businessID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.UserAccount, 0, len(users))
	for _, user := range users {
		if user.Role != domain.RoleStaff {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
