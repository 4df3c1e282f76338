package handlers

import (
	"strconv"
	"time"

	"theory-gamification-system/middleware"
	"theory-gamification-system/models"
	"theory-gamification-system/services"
	"theory-gamification-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// CompletionEventRequest is the payload learning services post when a user
// finishes a quiz or practice game.
type CompletionEventRequest struct {
	UserID           string  `json:"user_id" validate:"required"`
	Username         string  `json:"username" validate:"max=64"`
	CorrectAnswers   int64   `json:"correct_answers" validate:"min=0"`
	TotalQuestions   int64   `json:"total_questions" validate:"min=0"`
	Score            float64 `json:"score" validate:"min=0,max=100"`
	TimeSpentSeconds int64   `json:"time_spent_seconds" validate:"min=0"`
	Category         string  `json:"category" validate:"max=64"`
	IsExam           bool    `json:"is_exam"`
	ExamPassed       bool    `json:"exam_passed"`
}

func (r *CompletionEventRequest) toEvent(internalUserID string) *models.CompletionEvent {
	return &models.CompletionEvent{
		UserID:           internalUserID,
		CorrectAnswers:   r.CorrectAnswers,
		TotalQuestions:   r.TotalQuestions,
		Score:            r.Score,
		TimeSpentSeconds: r.TimeSpentSeconds,
		Category:         r.Category,
		IsExam:           r.IsExam,
		ExamPassed:       r.ExamPassed,
	}
}

func SetupGamificationRoutes(app *fiber.App, engine *services.GamificationEngine,
	progression *services.ProgressionService, achievements *services.AchievementService,
	challenges *services.ChallengeService, streaks *services.StreakService) {

	// Event routes are service-to-service: the quiz and game services post
	// here through the gateway, carrying the external user id in the body.
	events := app.Group("/events")

	events.Post("/quiz", func(c *fiber.Ctx) error {
		var req CompletionEventRequest
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
		if req.CorrectAnswers > req.TotalQuestions {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "correct_answers cannot exceed total_questions",
			})
		}

		user, err := progression.EnsureUser(req.UserID, req.Username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}

		result, err := engine.RecordQuizCompletion(req.toEvent(user.ID))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record quiz completion",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	events.Post("/game", func(c *fiber.Ctx) error {
		var req CompletionEventRequest
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

		user, err := progression.EnsureUser(req.UserID, req.Username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}

		result, err := engine.RecordGameCompletion(req.toEvent(user.ID))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record game completion",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	events.Post("/video", func(c *fiber.Ctx) error {
		type Req struct {
			UserID   string `json:"user_id" validate:"required"`
			Username string `json:"username" validate:"max=64"`
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

		user, err := progression.EnsureUser(req.UserID, req.Username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}
		if err := engine.RecordVideoWatched(user.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record video watch",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "video watch recorded"})
	})

	// 🔐 Secured routes — require user context (userID, roles).
	// Gateway forwards /api/v1/gamification/s/user/progress -> /s/user/progress
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)
		user, err := progression.EnsureUser(externalID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}

		level, err := progression.GetUserLevel(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch level",
				"cause": err.Error(),
			})
		}
		streak, err := streaks.GetStreak(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch streak",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"user_id":       externalID,
			"total_xp":      user.TotalXP,
			"level":         level.CurrentLevel,
			"current_xp":    level.CurrentXP,
			"next_level_xp": level.NextLevelXP,
			"last_level_up": level.LastLevelUp,
			"streak_days":   streak.CurrentStreakDays,
		})
	})

	secured.Get("/user/progress/history", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)
		user, err := progression.EnsureUser(externalID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}
		history, err := progression.GetRecentTransactions(user.ID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	secured.Get("/user/achievements", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)
		user, err := progression.EnsureUser(externalID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}
		list, err := achievements.ListWithProgress(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(list)
	})

	secured.Get("/user/challenges/today", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)
		user, err := progression.EnsureUser(externalID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}

		// Lazy generation covers users who signed up after the nightly batch.
		if _, err := challenges.GeneratePersonalizedChallenge(user.ID, utils.DayOf(time.Now())); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to generate challenge",
				"cause": err.Error(),
			})
		}

		today, err := challenges.GetTodayChallenges(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch challenges",
				"cause": err.Error(),
			})
		}
		return c.JSON(today)
	})

	secured.Get("/user/streak", func(c *fiber.Ctx) error {
		externalID := c.Locals("user_id").(string)
		user, err := progression.EnsureUser(externalID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}
		streak, err := streaks.GetStreak(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch streak",
				"cause": err.Error(),
			})
		}
		return c.JSON(streak)
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required"`
			XP     int64  `json:"xp" validate:"required"`
			Reason string `json:"reason" validate:"max=255"`
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

		user, err := progression.EnsureUser(req.UserID, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve user",
				"cause": err.Error(),
			})
		}
		reason := req.Reason
		if reason == "" {
			reason = "Manual XP adjustment"
		}
		crossed, err := progression.AwardXP(user.ID, req.XP, models.XPTypeAdminAdjustment, reason, "")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP award failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message":        "XP granted successfully",
			"user_id":        req.UserID,
			"xp":             req.XP,
			"levels_crossed": crossed,
		})
	})
}
