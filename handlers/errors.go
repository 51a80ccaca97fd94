package handlers

import (
	"errors"
	"log"
	"strconv"

	"play-llm-server/middleware"
	"play-llm-server/models"
	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrPayoffNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidSession),
		errors.Is(err, services.ErrSessionExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrActionNotInGame),
		errors.Is(err, services.ErrNoVerificationCode),
		errors.Is(err, services.ErrInvalidVerificationCode),
		errors.Is(err, models.ErrInvalidRole),
		errors.Is(err, models.ErrInvalidActorRole),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as a JSON error body. Unmapped errors are logged
// and hidden behind a generic message.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [%s %s] %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func listOptions(c *fiber.Ctx) services.ListOptions {
	return services.ListOptions{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
}

// actorOf is only used behind SessionAuth, which always sets the actor.
func actorOf(c *fiber.Ctx) services.Actor {
	actor, _ := middleware.CurrentActor(c)
	return actor
}
