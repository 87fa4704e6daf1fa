package httpapi

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"pasalsathi/backend/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)
	user := domain.User{ID: "user-abc", Role: domain.RoleManager}

	token, expiresAt, err := manager.IssueToken(user, "shop-1")
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if time.Until(expiresAt) < 55*time.Minute {
		t.Fatalf("expected expiry roughly one hour out, got %v", expiresAt)
	}

	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.UserID != "user-abc" || actor.Role != domain.RoleManager || actor.ShopID != "shop-1" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestTokenDefaultTTLIsThirtyDays(t *testing.T) {
	manager := NewAuthManager("test-secret", 0)

	_, expiresAt, err := manager.IssueToken(domain.User{ID: "user-abc", Role: domain.RoleOwner}, "shop-1")
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	remaining := time.Until(expiresAt)
	if remaining < 29*24*time.Hour || remaining > 31*24*time.Hour {
		t.Fatalf("expected roughly 30 day expiry, got %v", remaining)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)
	claims := pasalClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "user-abc",
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC().Add(-2 * time.Hour)),
			ExpiresAt: jwtlib.NewNumericDate(time.Now().UTC().Add(-time.Hour)),
			Issuer:    "pasalsathi",
		},
		Role: domain.RoleOwner,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := manager.ParseToken(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected token expired, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)
	other := NewAuthManager("other-secret", time.Hour)

	token, _, err := other.IssueToken(domain.User{ID: "user-abc", Role: domain.RoleOwner}, "shop-1")
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	if _, err := manager.ParseToken(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected malformed token error for wrong secret, got %v", err)
	}
	if _, err := manager.ParseToken("not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected malformed token error for garbage, got %v", err)
	}
}

func TestTokenWithoutSubjectRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)
	claims := pasalClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
		Role: domain.RoleCashier,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := manager.ParseToken(signed); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected malformed token for missing subject, got %v", err)
	}
}
