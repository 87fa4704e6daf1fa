package httpapi

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"pasalsathi/backend/internal/domain"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token invalid")
)

// AuthManager signs and verifies access tokens. PIN verification lives
// in the service layer; this type only deals with the token itself.
type AuthManager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

type pasalClaims struct {
	jwtlib.RegisteredClaims
	ShopID string `json:"shop_id,omitempty"`
	Role   string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		issuer:   "pasalsathi",
		tokenTTL: tokenTTL,
	}
}

// IssueToken mints a signed token for a logged-in user. The long TTL is
// deliberate: a shopkeeper's phone should stay signed in for a month.
func (a *AuthManager) IssueToken(user domain.User, shopID string) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	claims := pasalClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    a.issuer,
		},
		ShopID: shopID,
		Role:   user.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &pasalClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return domain.Actor{}, ErrTokenExpired
		}
		return domain.Actor{}, ErrTokenMalformed
	}
	if !token.Valid {
		return domain.Actor{}, ErrTokenMalformed
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrTokenMalformed
	}
	return domain.Actor{UserID: sub, ShopID: claims.ShopID, Role: claims.Role}, nil
}
