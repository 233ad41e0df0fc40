package services

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"tournament-engine/models"
)

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrUnknownGameType):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrStateConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrAuthenticationFailed):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrDependencyUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes {"error","code"} and, for validation failures, the
// per-field details.
func respondError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	status := statusFor(err)
	body := fiber.Map{"error": err.Error(), "code": models.ErrorCode(err)}

	var v *models.ValidationError
	if errors.As(err, &v) {
		body["fields"] = v.Fields
	}
	if status == fiber.StatusInternalServerError {
		logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		body["error"] = "internal server error"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, field, problem string) error {
	v := &models.ValidationError{}
	v.Add(field, problem)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  v.Error(),
		"code":   models.ErrorCode(v),
		"fields": v.Fields,
	})
}
