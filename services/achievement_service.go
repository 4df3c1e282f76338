package services

import (
	"fmt"
	"log"

	"theory-gamification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AchievementContext carries transient facts from the triggering event that
// some predicates need in addition to the aggregated stats.
type AchievementContext struct {
	Score    float64
	Category string
}

type AchievementService struct {
	DB          *gorm.DB
	Progression *ProgressionService
	Notifier    Notifier
}

func NewAchievementService(db *gorm.DB, progression *ProgressionService, notifier Notifier) *AchievementService {
	return &AchievementService{DB: db, Progression: progression, Notifier: notifier}
}

// SeedDefaults inserts the default achievement rules, skipping codes that
// already exist.
func (s *AchievementService) SeedDefaults() error {
	for i := range models.DefaultAchievements {
		a := models.DefaultAchievements[i]
		a.ID = uuid.NewString()
		a.IsActive = true
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&a).Error; err != nil {
			return err
		}
	}
	return nil
}

// CheckAchievements evaluates every active, not-yet-earned achievement for the
// user and awards those whose predicate holds. Unlock XP flows through the
// ledger, which can push the user over further level thresholds, so level
// rules are re-evaluated in bounded extra passes. One failing rule never
// blocks the rest of the batch.
func (s *AchievementService) CheckAchievements(userID string, ctx *AchievementContext) ([]models.Achievement, error) {
	var newlyAwarded []models.Achievement

	for pass := 0; pass < 3; pass++ {
		awardedThisPass := 0

		var achievements []models.Achievement
		if err := s.DB.Where("is_active = ?", true).Find(&achievements).Error; err != nil {
			return newlyAwarded, err
		}

		earned, err := s.earnedIDs(userID)
		if err != nil {
			return newlyAwarded, err
		}

		for _, a := range achievements {
			if earned[a.ID] {
				continue
			}
			met, err := s.meetsRequirement(userID, &a, ctx)
			if err != nil {
				// Isolated per achievement: log and keep checking the rest.
				log.Printf("achievement %s evaluation failed for user %s: %v", a.Code, userID, err)
				continue
			}
			if !met {
				continue
			}
			if err := s.award(userID, &a); err != nil {
				log.Printf("achievement %s award failed for user %s: %v", a.Code, userID, err)
				continue
			}
			newlyAwarded = append(newlyAwarded, a)
			awardedThisPass++
		}

		if awardedThisPass == 0 {
			break
		}
	}

	return newlyAwarded, nil
}

func (s *AchievementService) earnedIDs(userID string) (map[string]bool, error) {
	var rows []models.UserAchievement
	if err := s.DB.Select("achievement_id").Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	earned := make(map[string]bool, len(rows))
	for _, r := range rows {
		earned[r.AchievementID] = true
	}
	return earned, nil
}

func (s *AchievementService) award(userID string, a *models.Achievement) error {
	row := models.UserAchievement{
		ID:            uuid.NewString(),
		UserID:        userID,
		AchievementID: a.ID,
	}
	// The unique (user, achievement) index makes the award exactly-once even
	// if two completions race; the loser's insert is discarded.
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // lost the race, other writer already awarded
	}

	if a.Points > 0 {
		if _, err := s.Progression.AwardXP(userID, a.Points, models.XPTypeAchievementUnlock,
			fmt.Sprintf("Achievement unlocked: %s", a.Name), a.ID); err != nil {
			return err
		}
	}

	log.Printf("achievement unlocked: %s -> user %s (+%d XP)", a.Name, userID, a.Points)
	notifyBestEffort("badge", func() error {
		return s.Notifier.SendBadgeNotification(userID, a.Name)
	})
	return nil
}

// meetsRequirement is the closed dispatch over requirement variants. Each arm
// is a pure predicate over aggregated stats plus the optional event context.
func (s *AchievementService) meetsRequirement(userID string, a *models.Achievement, ctx *AchievementContext) (bool, error) {
	stats, err := s.statsFor(userID)
	if err != nil {
		return false, err
	}

	switch a.RequirementType {
	case models.ReqQuizCount:
		return stats.TotalQuizzes >= a.RequirementValue, nil
	case models.ReqPerfectScore:
		return stats.PerfectScores >= a.RequirementValue, nil
	case models.ReqTotalQuestions:
		return stats.TotalQuestionsAnswered >= a.RequirementValue, nil
	case models.ReqAccuracyRate:
		// Meaningless on a handful of answers; require some volume first.
		return stats.TotalQuestionsAnswered >= 20 && stats.AccuracyRate() >= float64(a.RequirementValue), nil
	case models.ReqExamPassed:
		return stats.ExamsPassed >= a.RequirementValue, nil
	case models.ReqGamesPlayed:
		return stats.GamesPlayed >= a.RequirementValue, nil
	case models.ReqVideosWatched:
		return stats.VideosWatched >= a.RequirementValue, nil
	case models.ReqStreakDays:
		var streak models.StreakState
		if err := s.DB.Where("user_id = ?", userID).First(&streak).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return false, nil
			}
			return false, err
		}
		return int64(streak.CurrentStreakDays) >= a.RequirementValue, nil
	case models.ReqLevel:
		var level models.UserLevel
		if err := s.DB.Where("user_id = ?", userID).First(&level).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return false, nil
			}
			return false, err
		}
		return int64(level.CurrentLevel) >= a.RequirementValue, nil
	case models.ReqCategoryComplete:
		// Both legs must hold; satisfying only one does not award. A category
		// rule can only newly pass on activity in its own category, so a
		// triggering event elsewhere skips the stats lookup.
		if ctx != nil && ctx.Category != "" && ctx.Category != a.TargetCategory {
			return false, nil
		}
		cat, err := s.categoryStat(userID, a.TargetCategory)
		if err != nil {
			return false, err
		}
		if cat == nil {
			return false, nil
		}
		return cat.Sessions >= a.MinSessions && cat.AverageScore() >= a.MinAccuracy, nil
	default:
		return false, fmt.Errorf("unknown requirement type %q", a.RequirementType)
	}
}

// GetAchievementProgress returns a 0-100 completion estimate for UI display.
// Read-only: never mutates state.
func (s *AchievementService) GetAchievementProgress(userID string, a *models.Achievement) (float64, error) {
	stats, err := s.statsFor(userID)
	if err != nil {
		return 0, err
	}

	ratio := func(have, want int64) float64 {
		if want <= 0 {
			return 100
		}
		p := float64(have) / float64(want) * 100
		if p > 100 {
			p = 100
		}
		return p
	}

	switch a.RequirementType {
	case models.ReqQuizCount:
		return ratio(stats.TotalQuizzes, a.RequirementValue), nil
	case models.ReqPerfectScore:
		return ratio(stats.PerfectScores, a.RequirementValue), nil
	case models.ReqTotalQuestions:
		return ratio(stats.TotalQuestionsAnswered, a.RequirementValue), nil
	case models.ReqAccuracyRate:
		return ratio(int64(stats.AccuracyRate()), a.RequirementValue), nil
	case models.ReqExamPassed:
		return ratio(stats.ExamsPassed, a.RequirementValue), nil
	case models.ReqGamesPlayed:
		return ratio(stats.GamesPlayed, a.RequirementValue), nil
	case models.ReqVideosWatched:
		return ratio(stats.VideosWatched, a.RequirementValue), nil
	case models.ReqStreakDays:
		var streak models.StreakState
		if err := s.DB.Where("user_id = ?", userID).First(&streak).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, nil
			}
			return 0, err
		}
		return ratio(int64(streak.CurrentStreakDays), a.RequirementValue), nil
	case models.ReqLevel:
		var level models.UserLevel
		if err := s.DB.Where("user_id = ?", userID).First(&level).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, nil
			}
			return 0, err
		}
		return ratio(int64(level.CurrentLevel), a.RequirementValue), nil
	case models.ReqCategoryComplete:
		// Average of both legs. The accuracy leg is pass or fail: an average
		// below the threshold counts as 0, not as nearly done.
		cat, err := s.categoryStat(userID, a.TargetCategory)
		if err != nil {
			return 0, err
		}
		if cat == nil {
			return 0, nil
		}
		sessionLeg := ratio(cat.Sessions, a.MinSessions)
		accuracyLeg := 0.0
		if a.MinAccuracy <= 0 || cat.AverageScore() >= a.MinAccuracy {
			accuracyLeg = 100
		}
		return (sessionLeg + accuracyLeg) / 2, nil
	default:
		return 0, fmt.Errorf("unknown requirement type %q", a.RequirementType)
	}
}

// ListWithProgress returns every active achievement with earned state and a
// progress estimate, for the achievements screen.
func (s *AchievementService) ListWithProgress(userID string) ([]map[string]interface{}, error) {
	var achievements []models.Achievement
	if err := s.DB.Where("is_active = ?", true).Order("points ASC").Find(&achievements).Error; err != nil {
		return nil, err
	}
	earned, err := s.earnedIDs(userID)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(achievements))
	for i := range achievements {
		a := achievements[i]
		progress := 100.0
		if !earned[a.ID] {
			progress, err = s.GetAchievementProgress(userID, &a)
			if err != nil {
				log.Printf("progress estimate failed for %s: %v", a.Code, err)
				progress = 0
			}
		}
		out = append(out, map[string]interface{}{
			"id":          a.ID,
			"code":        a.Code,
			"name":        a.Name,
			"description": a.Description,
			"icon":        a.Icon,
			"rarity":      a.Rarity,
			"points":      a.Points,
			"earned":      earned[a.ID],
			"progress":    progress,
		})
	}
	return out, nil
}

func (s *AchievementService) statsFor(userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.DB.Where("user_id = ?", userID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		return &models.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *AchievementService) categoryStat(userID, category string) (*models.CategoryStat, error) {
	var cat models.CategoryStat
	err := s.DB.Where("user_id = ? AND category = ?", userID, category).First(&cat).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}
