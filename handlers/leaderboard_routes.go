package handlers

import (
	"strconv"

	"theory-gamification-system/middleware"
	"theory-gamification-system/models"
	"theory-gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

func parseBoardParams(c *fiber.Ctx) (models.LeaderboardType, models.LeaderboardCategory, bool) {
	lt := models.LeaderboardType(c.Query("type", string(models.LeaderboardWeekly)))
	cat := models.LeaderboardCategory(c.Query("category", string(models.CategoryOverall)))

	validType := false
	for _, t := range models.AllLeaderboardTypes {
		if t == lt {
			validType = true
			break
		}
	}
	validCat := false
	for _, cc := range models.AllLeaderboardCategories {
		if cc == cat {
			validCat = true
			break
		}
	}
	return lt, cat, validType && validCat
}

func SetupLeaderboardRoutes(app *fiber.App, leaderboards *services.LeaderboardService,
	progression *services.ProgressionService) {

	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/leaderboards", func(c *fiber.Ctx) error {
		lt, cat, ok := parseBoardParams(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown leaderboard type or category",
			})
		}
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		if limit < 1 || limit > 200 {
			limit = 50
		}

		entries, err := leaderboards.GetLeaderboard(lt, cat, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"type":     lt,
			"category": cat,
			"entries":  entries,
		})
	})

	secured.Get("/leaderboards/rank", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)
		lt, cat, ok := parseBoardParams(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown leaderboard type or category",
			})
		}

		user, err := progression.EnsureUser(externalID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}

		rank, score, err := leaderboards.GetUserRank(user.ID, lt, cat)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch rank",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"type":     lt,
			"category": cat,
			"rank":     rank,
			"score":    score,
			"ranked":   rank > 0,
		})
	})
}
