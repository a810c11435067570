// internal/domain/user/service_test.go
package user

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &Address{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		App: config.AppConfig{Name: "Marketplace Backend"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-key-that-is-long-enough!",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}

	// The revocation store fails open, so an unreachable Redis leaves token
	// validation working while revocations only log a warning.
	revocation := auth.NewRevocationStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewService(db, cfg, auth.NewJWTManager(cfg), revocation, logger), db
}

func registerRequest() *RegisterRequest {
	return &RegisterRequest{
		Email:    "Buyer@Example.com",
		Password: "s3cret-password",
		FullName: "Jane Buyer",
		Country:  "us",
	}
}

func TestRegisterNormalizesAndIssuesTokens(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(registerRequest())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if resp.User.Email != "buyer@example.com" {
		t.Errorf("expected lowercased email, got %q", resp.User.Email)
	}
	if resp.User.Country != "US" {
		t.Errorf("expected uppercased country, got %q", resp.User.Country)
	}
	if resp.User.Role != RoleBuyer {
		t.Errorf("expected BUYER role, got %s", resp.User.Role)
	}
	if resp.User.Password == "s3cret-password" {
		t.Error("password stored in plaintext")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected a token pair")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(registerRequest()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	req := registerRequest()
	req.Email = "BUYER@example.com"
	_, err := svc.Register(req)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, db := newTestService(t)

	if _, err := svc.Register(registerRequest()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	resp, err := svc.Login(&LoginRequest{Email: "buyer@example.com", Password: "s3cret-password"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.User.LastLoginAt == nil {
		t.Error("expected last login time to be recorded")
	}

	// Wrong password and unknown email produce the same error kind.
	_, err = svc.Login(&LoginRequest{Email: "buyer@example.com", Password: "wrong"})
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}
	_, err = svc.Login(&LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}

	// Deactivated accounts are told apart from bad credentials.
	db.Model(&User{}).Where("email = ?", "buyer@example.com").Update("is_active", false)
	_, err = svc.Login(&LoginRequest{Email: "buyer@example.com", Password: "s3cret-password"})
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("expected forbidden for deactivated account, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newTestService(t)

	registered, err := svc.Register(registerRequest())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), &RefreshRequest{RefreshToken: registered.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected a fresh token pair")
	}

	// An access token is not accepted as a refresh token.
	_, err = svc.Refresh(context.Background(), &RefreshRequest{RefreshToken: registered.AccessToken})
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expected unauthorized for access token, got %v", err)
	}

	_, err = svc.Refresh(context.Background(), &RefreshRequest{RefreshToken: "garbage"})
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, _ := newTestService(t)

	registered, err := svc.Register(registerRequest())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	name := "Jane B."
	country := "de"
	u, err := svc.UpdateProfile(registered.User.ID, &UpdateProfileRequest{FullName: &name, Country: &country})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if u.FullName != "Jane B." || u.Country != "DE" {
		t.Errorf("unexpected profile: %+v", u)
	}
	if u.Email != "buyer@example.com" {
		t.Errorf("untouched field changed: %q", u.Email)
	}
}

func TestDeactivateUser(t *testing.T) {
	svc, _ := newTestService(t)

	registered, err := svc.Register(registerRequest())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := svc.DeactivateUser(registered.User.ID); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}
	if err := svc.DeactivateUser(9999); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	// A deactivated account can no longer refresh.
	_, err = svc.Refresh(context.Background(), &RefreshRequest{RefreshToken: registered.RefreshToken})
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("expected forbidden after deactivation, got %v", err)
	}
}
