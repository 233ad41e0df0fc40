package middleware

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"tournament-engine/models"
)

const (
	LocalsUserID = "user_id"
	LocalsRoles  = "user_roles"
)

// Claims carried by bearer tokens issued by the identity service.
type Claims struct {
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for subject with roles.
func SignToken(secret []byte, subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"code":  models.ErrorCode(models.ErrUnauthorized),
	})
}

// JWTAuth verifies the bearer token and stores the subject and roles in
// Locals for the handlers.
func JWTAuth(secret []byte, logger *slog.Logger) fiber.Handler {
	logger = logger.With("component", "auth")
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			logger.Debug("missing bearer token", "path", c.Path())
			return unauthorized(c, "authentication token missing")
		}

		claims, err := parseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			logger.Info("rejected bearer token", "path", c.Path(), "error", err)
			return unauthorized(c, "invalid authentication token")
		}

		c.Locals(LocalsUserID, claims.Subject)
		c.Locals(LocalsRoles, claims.Roles)
		return c.Next()
	}
}

// UserID returns the authenticated subject, or "" outside JWTAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsUserID).(string)
	return id
}

func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(LocalsRoles).([]string)
	return roles
}
