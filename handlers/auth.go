package handlers

import (
	"log"

	"play-llm-server/middleware"
	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SetupAuthRoutes mounts registration and login on public, and session
// management on secured.
func SetupAuthRoutes(public, secured fiber.Router, auth *services.AuthService) {
	// 🔓 Public
	public.Post("/auth/register", func(c *fiber.Ctx) error {
		var in services.RegisterInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		user, err := auth.Register(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	public.Post("/auth/login", func(c *fiber.Ctx) error {
		var in loginRequest
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		session, err := auth.Login(c.UserContext(), in.Identifier, in.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"token":      session.Token,
			"session_id": session.ID,
			"user":       session.User,
		})
	})

	// 🔐 Session required
	secured.Post("/auth/logout", func(c *fiber.Ctx) error {
		if err := auth.Logout(c.UserContext(), actorOf(c).SessionID); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	secured.Get("/auth/me", func(c *fiber.Ctx) error {
		session, _ := middleware.CurrentSession(c)
		return c.JSON(session.User)
	})

	// The code is delivered out of band; it is never echoed in the response.
	secured.Post("/auth/verification-code", func(c *fiber.Ctx) error {
		actor := actorOf(c)
		if _, err := auth.IssueVerificationCode(c.UserContext(), actor.SessionID); err != nil {
			return respondError(c, err)
		}
		log.Printf("📨 [Auth] verification code issued for session %d", actor.SessionID)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "verification code issued"})
	})

	secured.Post("/auth/verify", func(c *fiber.Ctx) error {
		var in verifyRequest
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		if err := auth.ConfirmVerificationCode(c.UserContext(), actorOf(c).SessionID, in.Code); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"verified": true})
	})

	secured.Put("/auth/password", func(c *fiber.Ctx) error {
		var in changePasswordRequest
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		if err := auth.ChangePassword(c.UserContext(), actorOf(c).UserID, in.CurrentPassword, in.NewPassword); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
