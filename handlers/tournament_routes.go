package handlers

import (
	"time"

	"theory-gamification-system/middleware"
	"theory-gamification-system/models"
	"theory-gamification-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupTournamentRoutes(app *fiber.App, tournaments *services.TournamentService,
	progression *services.ProgressionService) {

	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/tournaments", func(c *fiber.Ctx) error {
		status := c.Query("status", "")
		list, err := tournaments.ListTournaments(status)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list tournaments",
				"cause": err.Error(),
			})
		}
		return c.JSON(list)
	})

	secured.Post("/tournaments/:id/join", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)
		tournamentID := c.Params("id")

		user, err := progression.EnsureUser(externalID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}

		joined, reason, err := tournaments.Join(user.ID, tournamentID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "join failed",
				"cause": err.Error(),
			})
		}
		if !joined {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"joined": false,
				"reason": reason,
			})
		}
		return c.JSON(fiber.Map{
			"joined":        true,
			"tournament_id": tournamentID,
		})
	})

	secured.Get("/tournaments/:id/standings", func(c *fiber.Ctx) error {
		standings, err := tournaments.GetStandings(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch standings",
				"cause": err.Error(),
			})
		}
		return c.JSON(standings)
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/tournaments", func(c *fiber.Ctx) error {
		type Req struct {
			Name           string `json:"name" validate:"required,max=128"`
			Description    string `json:"description" validate:"max=1024"`
			TournamentType string `json:"tournament_type" validate:"required,oneof=accuracy speed marathon default"`
			Category       string `json:"category" validate:"max=64"`
			EntryFeeXP     int64  `json:"entry_fee_xp" validate:"min=0"`
			PrizePoolXP    int64  `json:"prize_pool_xp" validate:"min=0"`
			StartTime      string `json:"start_time" validate:"required"`
			EndTime        string `json:"end_time" validate:"required"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "validation failed",
				"cause": err.Error(),
			})
		}

		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "start_time must be RFC3339",
				"cause": err.Error(),
			})
		}
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "end_time must be RFC3339",
				"cause": err.Error(),
			})
		}
		if !end.After(start) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "end_time must be after start_time",
			})
		}

		t := models.Tournament{
			ID:             uuid.NewString(),
			Name:           req.Name,
			Description:    req.Description,
			TournamentType: models.TournamentType(req.TournamentType),
			Category:       req.Category,
			EntryFeeXP:     req.EntryFeeXP,
			PrizePoolXP:    req.PrizePoolXP,
			StartDate:      start,
			EndDate:        end,
			Status:         "active",
		}
		if err := tournaments.CreateTournament(&t); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create tournament",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})
}
