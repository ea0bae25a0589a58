package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/security"
)

const actorKey = "actor"

// Protected authenticates the session token and stores the actor on the
// request context.
func Protected(sessionSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid header format"})
		}

		actor, err := security.ParseSessionToken(parts[1], sessionSecret)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session token"})
		}

		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// RequireRole rejects callers whose role doesn't match.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
		}
		if actor.Role != role {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "Insufficient role"})
		}
		return c.Next()
	}
}

// ActorFrom pulls the authenticated actor off the request context.
func ActorFrom(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}
