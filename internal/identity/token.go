package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"esygrab/internal/models"
)

// AccessClaims are the verified claims extracted from a provider access
// token.
type AccessClaims struct {
	UserID string
	Email  string
	Role   models.Role
}

type rawClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessToken verifies the token against the provider's shared HMAC
// secret and extracts the role claim. A token whose role claim is missing
// or unknown resolves to the base user role rather than failing the whole
// sign-in.
func (c *Client) ParseAccessToken(accessToken string) (*AccessClaims, error) {
	var claims rawClaims
	token, err := jwt.ParseWithClaims(accessToken, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid access token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token missing subject")
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		role = models.RoleUser
	}

	return &AccessClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
