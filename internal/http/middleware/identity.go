package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"signapi/internal/apperr"
	"signapi/internal/model"
)

// IdentityLocalKey is the key of the model.Identity stored in fiber locals.
const IdentityLocalKey = "identity"

const issuer = "signapi"

// Claims is the JWT payload naming an authenticated user.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity resolves an optional "Authorization: Bearer" token into a
// model.Identity. Requests without the header continue anonymously; a header
// that does not verify is rejected. An empty secret disables authentication.
func Identity(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || secret == "" {
			return c.Next()
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return apperr.Unauthorized("malformed authorization header")
		}
		claims, err := ParseToken(parts[1], secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return apperr.Unauthorized("session expired")
			}
			return apperr.Unauthorized("invalid session token")
		}
		c.Locals(IdentityLocalKey, model.Identity{
			UserID: claims.Subject,
			Email:  claims.Email,
			Name:   claims.Name,
		})
		return c.Next()
	}
}

// IdentityFromCtx returns the identity set by Identity, or the anonymous identity.
func IdentityFromCtx(c *fiber.Ctx) model.Identity {
	id, _ := c.Locals(IdentityLocalKey).(model.Identity)
	return id
}

// ParseToken verifies an HS256 token signed with secret.
func ParseToken(token, secret string) (*Claims, error) {
	claims := new(Claims)
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if !t.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SignToken issues a token for id that expires after ttl.
func SignToken(id model.Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
