package handlers

import (
	"errors"
	"log"
	"strings"

	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
)

type createModelRequest struct {
	Name        string  `json:"name" form:"name"`
	Description *string `json:"description,omitempty" form:"description"`
	StoragePath string  `json:"storage_path" form:"storage_path"`
}

// SetupModelRoutes mounts model registration. A multipart request may carry
// the model file in the "artifact" field; JSON requests reference an
// external storage path instead.
func SetupModelRoutes(secured fiber.Router, modelService *services.ModelService, inference *services.InferenceClient) {
	// Models the inference server has installed, for picking a storage path.
	secured.Get("/models/installed", func(c *fiber.Ctx) error {
		installed, err := inference.InstalledModels(c.UserContext())
		if errors.Is(err, services.ErrInferenceUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			log.Printf("⚠️ [Models] inference lookup failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "inference server unavailable"})
		}
		return c.JSON(installed)
	})

	secured.Post("/models", func(c *fiber.Ctx) error {
		var req createModelRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		in := services.CreateModelInput{
			Name:        req.Name,
			Description: req.Description,
			StoragePath: req.StoragePath,
		}

		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			if fh, err := c.FormFile("artifact"); err == nil {
				f, err := fh.Open()
				if err != nil {
					return badRequest(c, "unreadable artifact")
				}
				defer f.Close()
				in.Filename = fh.Filename
				in.ContentType = fh.Header.Get(fiber.HeaderContentType)
				in.Body = f
			}
		}

		model, err := modelService.CreateModel(c.UserContext(), actorOf(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(model)
	})

	secured.Get("/models", func(c *fiber.Ctx) error {
		list, err := modelService.ListModels(c.UserContext(), actorOf(c), listOptions(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	secured.Get("/models/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid model id")
		}
		model, err := modelService.GetModel(c.UserContext(), actorOf(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(model)
	})

	secured.Delete("/models/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid model id")
		}
		if err := modelService.DeleteModel(c.UserContext(), actorOf(c), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
