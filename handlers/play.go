package handlers

import (
	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
)

// SetupUserGameRoutes mounts match play. Every route needs a session: a
// match belongs to the session that started it.
func SetupUserGameRoutes(secured fiber.Router, play *services.PlayService) {
	secured.Post("/user-games", func(c *fiber.Ctx) error {
		var in services.StartUserGameInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		ug, err := play.StartUserGame(c.UserContext(), actorOf(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ug)
	})

	secured.Get("/user-games", func(c *fiber.Ctx) error {
		list, err := play.ListUserGames(c.UserContext(), actorOf(c), listOptions(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	secured.Get("/user-games/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid user game id")
		}
		detail, err := play.GetUserGame(c.UserContext(), actorOf(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(detail)
	})

	secured.Post("/user-games/:id/actions", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid user game id")
		}
		var in services.RecordActionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		detail, err := play.RecordAction(c.UserContext(), actorOf(c), id, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(detail)
	})
}
