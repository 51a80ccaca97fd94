package handlers

import (
	"play-llm-server/models"
	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
)

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetupAdminRoutes mounts user administration on admin, which must already
// require the admin role.
func SetupAdminRoutes(admin fiber.Router, auth *services.AuthService) {
	admin.Get("/users", func(c *fiber.Ctx) error {
		users, err := auth.ListUsers(c.UserContext(), c.Query("q"), listOptions(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(users)
	})

	admin.Get("/users/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid user id")
		}
		user, err := auth.GetUser(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(user)
	})

	admin.Patch("/users/:id/role", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid user id")
		}
		var in setRoleRequest
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		role, err := models.ParseRole(in.Role)
		if err != nil {
			return respondError(c, err)
		}
		if err := auth.SetRole(c.UserContext(), id, role); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "role": role})
	})

	admin.Delete("/users/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid user id")
		}
		if err := auth.DeleteUser(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
