// internal/pkg/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/your-org/marketplace-backend/internal/config"
)

func testManager() *JWTManager {
	return NewJWTManager(&config.Config{
		App: config.AppConfig{Name: "Marketplace Backend"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-key-that-is-long-enough!",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()

	token, err := m.GenerateAccessToken(42, "buyer@example.com", "BUYER")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "buyer@example.com" || claims.Role != "BUYER" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a token id for revocation keying")
	}
}

func TestTokenTypeEnforcement(t *testing.T) {
	m := testManager()

	refresh, err := m.GenerateRefreshToken(42, "buyer@example.com", "BUYER")
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	if _, err := m.ValidateAccessToken(refresh); err == nil {
		t.Error("refresh token must not validate as access token")
	}
	if _, err := m.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("ValidateRefreshToken failed: %v", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	m := testManager()

	other := NewJWTManager(&config.Config{
		JWT: config.JWTConfig{
			Secret:            "a-completely-different-signing-secret",
			AccessTokenExpiry: time.Hour,
		},
	})

	token, err := other.GenerateAccessToken(1, "x@example.com", "BUYER")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("token signed with another secret must not validate")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	if got := ExtractTokenFromHeader("Bearer abc.def.ghi"); got != "abc.def.ghi" {
		t.Errorf("unexpected token %q", got)
	}
	if got := ExtractTokenFromHeader("abc.def.ghi"); got != "" {
		t.Errorf("expected empty for missing scheme, got %q", got)
	}
	if got := ExtractTokenFromHeader(""); got != "" {
		t.Errorf("expected empty for empty header, got %q", got)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password", 4)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !CheckPassword("s3cret-password", hash) {
		t.Error("expected password to match its hash")
	}
	if CheckPassword("wrong-password", hash) {
		t.Error("expected mismatch for wrong password")
	}

	// Out-of-range costs fall back to the bcrypt default instead of failing.
	if _, err := HashPassword("s3cret-password", 99); err != nil {
		t.Errorf("expected cost fallback, got %v", err)
	}
}
