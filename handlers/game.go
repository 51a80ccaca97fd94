// handlers/game.go
package handlers

import (
	"strconv"
	"time"

	"play-llm-server/models"
	"play-llm-server/services"

	"github.com/gofiber/fiber/v2"
)

type ownerView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// gameView is the public shape of a game. It never carries the owner's email.
type gameView struct {
	ID          uint                     `json:"id"`
	Name        string                   `json:"name"`
	Description *string                  `json:"description,omitempty"`
	Owner       *ownerView               `json:"owner,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	Actions     []models.GameAction      `json:"actions,omitempty"`
	Scores      []models.GameActionScore `json:"scores,omitempty"`
}

func newGameView(g *models.Game) gameView {
	v := gameView{ID: g.ID, Name: g.Name, Description: g.Description, CreatedAt: g.CreatedAt}
	if g.User != nil {
		v.Owner = &ownerView{ID: g.User.ID, Username: g.User.Username}
	}
	return v
}

func newGameDetailView(d *services.GameDetail) gameView {
	v := newGameView(&d.Game)
	v.Actions = d.Actions
	v.Scores = d.Scores
	return v
}

type payoffMatrixRequest struct {
	Scores []services.PayoffEntry `json:"scores"`
}

// SetupGameRoutes mounts the public catalogue on public and authoring on
// secured.
func SetupGameRoutes(public, secured fiber.Router, games *services.GameService) {
	// 🔓 Public
	public.Get("/games", func(c *fiber.Ctx) error {
		list, err := games.ListGames(c.UserContext(), listOptions(c))
		if err != nil {
			return respondError(c, err)
		}
		out := make([]gameView, 0, len(list))
		for i := range list {
			out = append(out, newGameView(&list[i]))
		}
		return c.JSON(out)
	})

	public.Get("/games/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid game id")
		}
		detail, err := games.GetGame(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(newGameDetailView(detail))
	})

	// Payoff lookup by ids (?self=1&opponent=2) or by names
	// (?self_name=cooperate&opponent_name=defect).
	public.Get("/games/:id/payoff", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid game id")
		}

		var (
			score float64
			err   error
		)
		if selfName, oppName := c.Query("self_name"), c.Query("opponent_name"); selfName != "" && oppName != "" {
			score, err = games.PayoffByName(c.UserContext(), id, selfName, oppName)
		} else {
			self, serr := strconv.ParseUint(c.Query("self"), 10, 64)
			opp, oerr := strconv.ParseUint(c.Query("opponent"), 10, 64)
			if serr != nil || oerr != nil {
				return badRequest(c, "self and opponent action ids are required")
			}
			score, err = games.Payoff(c.UserContext(), id, uint(self), uint(opp))
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"game_id": id, "score": score})
	})

	// 🔐 Authoring
	secured.Post("/games", func(c *fiber.Ctx) error {
		var in services.CreateGameInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		detail, err := games.CreateGame(c.UserContext(), actorOf(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(newGameDetailView(detail))
	})

	secured.Post("/games/:id/actions", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid game id")
		}
		var in services.ActionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		action, err := games.AddAction(c.UserContext(), actorOf(c), id, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(action)
	})

	secured.Put("/games/:id/scores", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid game id")
		}
		var in payoffMatrixRequest
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		rows, err := games.SetPayoffMatrix(c.UserContext(), actorOf(c), id, in.Scores)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rows)
	})

	secured.Post("/games/:id/scores", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid game id")
		}
		var in services.PayoffEntry
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		row, err := games.SetScore(c.UserContext(), actorOf(c), id, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(row)
	})

	secured.Delete("/games/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid game id")
		}
		if err := games.DeleteGame(c.UserContext(), actorOf(c), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
