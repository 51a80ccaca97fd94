package handlers

import (
	"play-llm-server/middleware"
	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Auth   *services.AuthService
	Games  *services.GameService
	Models *services.ModelService
	Play   *services.PlayService

	// Inference is nil when no inference server is configured.
	Inference *services.InferenceClient
}

// SetupRoutes mounts every route. Paths under /s need a session; paths under
// /s/admin also need the admin role.
func SetupRoutes(app *fiber.App, svc Services) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	secured := app.Group("/s", middleware.SessionAuth(svc.Auth))
	admin := secured.Group("/admin", middleware.RequireAdmin())

	SetupAuthRoutes(app, secured, svc.Auth)
	SetupGameRoutes(app, secured, svc.Games)
	SetupModelRoutes(secured, svc.Models, svc.Inference)
	SetupUserGameRoutes(secured, svc.Play)
	SetupAdminRoutes(admin, svc.Auth)
}
