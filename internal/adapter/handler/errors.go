package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

// writeError maps the workflow error taxonomy onto HTTP responses in one
// place so every handler speaks the same shape.
func writeError(c *fiber.Ctx, err error) error {
	var (
		validationErr *domain.ValidationError
		stateErr      *domain.InvalidStateError
		conflictErr   *domain.ConflictError
		notFoundErr   *domain.NotFoundError
		externalErr   *domain.ExternalServiceError
		configErr     *domain.ConfigurationError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": validationErr.Fields,
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFoundErr.Error()})
	case errors.As(err, &stateErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":           "Operation not allowed in current status",
			"current_status":  stateErr.Current,
			"required_status": stateErr.Required,
		})
	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Transaction changed concurrently, refresh and retry",
		})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient role"})
	case errors.As(err, &externalErr):
		slog.Error("Pre-validation service failure", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Pre-validation service unavailable",
		})
	case errors.As(err, &configErr):
		slog.Error("Configuration error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Service misconfigured"})
	default:
		slog.Error("Unhandled error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
	}
}
