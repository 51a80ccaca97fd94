package middleware

import (
	"errors"
	"log"
	"strings"

	"play-llm-server/models"
	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
)

const (
	sessionLocalKey = "session"
	actorLocalKey   = "actor"
)

// SessionToken reads the caller's session token from `Authorization: Bearer`
// or, failing that, the X-Session-Token header.
func SessionToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(c.Get("X-Session-Token"))
}

// SessionAuth resolves the session token into an Actor and stores both in
// the request locals. Requests without a live session get 401.
func SessionAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session token",
			})
		}

		session, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, services.ErrInvalidSession) || errors.Is(err, services.ErrSessionExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			log.Printf("❌ [SessionAuth] lookup failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to authenticate session",
			})
		}

		c.Locals(sessionLocalKey, session)
		c.Locals(actorLocalKey, services.ActorFromSession(session))
		return c.Next()
	}
}

// CurrentActor returns the Actor stored by SessionAuth.
func CurrentActor(c *fiber.Ctx) (services.Actor, bool) {
	a, ok := c.Locals(actorLocalKey).(services.Actor)
	return a, ok
}

// CurrentSession returns the session stored by SessionAuth.
func CurrentSession(c *fiber.Ctx) (*models.Session, bool) {
	s, ok := c.Locals(sessionLocalKey).(*models.Session)
	return s, ok && s != nil
}
