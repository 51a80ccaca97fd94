package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin must run after SessionAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := CurrentActor(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session",
			})
		}
		if !actor.IsAdmin() {
			log.Printf("🚫 [RequireAdmin] user %d denied on %s", actor.UserID, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin role required",
			})
		}
		return c.Next()
	}
}
