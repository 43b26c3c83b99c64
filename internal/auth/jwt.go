package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"auction-house/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the identity provider puts in a bearer token: the user id
// in "sub" and the display name in "name".
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// User projects the claims onto the local user record.
func (c *Claims) User() *domain.User {
	name := c.Name
	if name == "" {
		name = c.Subject
	}
	return &domain.User{ID: c.Subject, Username: name}
}

var ErrMissingToken = errors.New("missing bearer token")

// GenerateToken signs an HS256 token for userID. Tokens are normally issued
// by the identity provider; this is used by tests and local tooling.
func GenerateToken(secret, userID, name string, ttl time.Duration) (string, error) {
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return claims, nil
}

// TokenFromRequest reads the bearer token from the Authorization header or,
// for websocket handshakes that cannot set headers, the access_token query
// parameter.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", ErrMissingToken
		}
		return strings.TrimPrefix(header, "Bearer "), nil
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}
