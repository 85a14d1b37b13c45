package memory

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"hitunghpp/backend/internal/domain"
)

const DemoBusinessID = "demo-business"

// seedUsers builds the dev/demo accounts. Passwords come from
// SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD; unset values fall back to
// dev defaults with a warning. Postgres deployments never use these.
func seedUsers(businessID string) map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		logrus.WithField("module", "memory-store").Warn("using default dev credentials; set SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithField("module", "memory-store").Fatalf("failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:   u.username,
			Password:   string(hash),
			Role:       u.role,
			BusinessID: businessID,
			Active:     true,
			CreatedAt:  now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with one demo business, its users, common
// units and the usual delivery channels.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	s.data.businesses[DemoBusinessID] = domain.Business{ID: DemoBusinessID, Name: "Demo Kitchen", CreatedAt: now}
	s.data.usersByUsername = seedUsers(DemoBusinessID)

	for _, u := range []domain.Unit{
		{ID: "unit-g", Name: "Gram", Symbol: "g"},
		{ID: "unit-kg", Name: "Kilogram", Symbol: "kg"},
		{ID: "unit-ml", Name: "Mililiter", Symbol: "ml"},
		{ID: "unit-l", Name: "Liter", Symbol: "l"},
		{ID: "unit-pcs", Name: "Pieces", Symbol: "pcs"},
	} {
		u.BusinessID = DemoBusinessID
		s.data.units[u.ID] = u
	}

	for _, c := range []domain.SalesChannel{
		{ID: "chn-dine-in", Name: "Dine In", Commission: decimal.Zero},
		{ID: "chn-gofood", Name: "GoFood", Commission: decimal.NewFromInt(20)},
		{ID: "chn-grabfood", Name: "GrabFood", Commission: decimal.NewFromInt(20)},
		{ID: "chn-shopeefood", Name: "ShopeeFood", Commission: decimal.NewFromInt(20)},
	} {
		c.BusinessID = DemoBusinessID
		c.CreatedAt = now
		s.data.channels[c.ID] = c
	}

	return s
}
