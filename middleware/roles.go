package middleware

import (
	"github.com/gofiber/fiber/v2"

	"tournament-engine/models"
)

// Role names understood by the store.
const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleScheduler = "scheduler"
)

// HasRole reports whether the caller holds any of roles.
func HasRole(c *fiber.Ctx, roles ...string) bool {
	for _, held := range Roles(c) {
		for _, r := range roles {
			if held == r {
				return true
			}
		}
	}
	return false
}

// Forbidden writes the 403 body shared by every role check.
func Forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": message,
		"code":  models.ErrorCode(models.ErrForbidden),
	})
}

// RequireRole lets the request through when the caller holds any of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if HasRole(c, roles...) {
			return c.Next()
		}
		return Forbidden(c, "insufficient role for this action")
	}
}
