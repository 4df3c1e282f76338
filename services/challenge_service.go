package services

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"theory-gamification-system/models"
	"theory-gamification-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallengeService struct {
	DB          *gorm.DB
	Progression *ProgressionService
	Skills      SkillSignalProvider
}

func NewChallengeService(db *gorm.DB, progression *ProgressionService, skills SkillSignalProvider) *ChallengeService {
	return &ChallengeService{DB: db, Progression: progression, Skills: skills}
}

// GeneratePersonalizedChallenge creates the user's challenge for one day.
// Returns (nil, nil) when a challenge already exists for (user, date): the
// generator never double-generates. If two requests race past the existence
// check, the (user_id, challenge_date) unique index decides and the loser
// discards its result instead of retrying with different content.
func (s *ChallengeService) GeneratePersonalizedChallenge(userID string, date time.Time) (*models.DailyChallenge, error) {
	day := utils.DayOf(date)

	var existing int64
	if err := s.DB.Model(&models.DailyChallenge{}).
		Where("user_id = ? AND challenge_date = ? AND is_active = ?", userID, day, true).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, nil
	}

	signal := s.fetchSignal(userID)

	var challengeType models.ChallengeType
	var difficulty float64
	var category string

	if signal == nil || signal.TotalPracticeQuestions < 10 {
		challengeType, difficulty = s.fallbackSelection(userID)
	} else {
		challengeType, difficulty, category = personalizedSelection(signal)
	}

	cfg, ok := ChallengeTypeConfigs[challengeType]
	if !ok {
		return nil, fmt.Errorf("no config for challenge type %q", challengeType)
	}

	requirement := scaleRequirement(cfg, difficulty)
	xpReward, bonusReward := challengeRewards(cfg, challengeType, difficulty)
	title, description := renderChallengeText(challengeType, requirement, category)

	challenge := models.DailyChallenge{
		ID:               uuid.NewString(),
		UserID:           userID,
		ChallengeDate:    day,
		ChallengeType:    challengeType,
		Title:            title,
		Description:      description,
		Category:         category,
		RequirementValue: requirement,
		Difficulty:       difficulty,
		XPReward:         xpReward,
		BonusReward:      bonusReward,
		IsActive:         true,
	}

	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&challenge)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a generation race; the winner's challenge stands.
		return nil, nil
	}

	progress := models.UserDailyChallenge{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: challenge.ID,
	}
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error; err != nil {
		return nil, err
	}

	log.Printf("daily challenge generated: user=%s type=%s req=%d difficulty=%.2f xp=%d",
		userID, challengeType, requirement, difficulty, xpReward)
	return &challenge, nil
}

// fetchSignal degrades any provider failure to "no signal" so generation can
// always fall back to the heuristic.
func (s *ChallengeService) fetchSignal(userID string) *models.SkillSignal {
	if s.Skills == nil {
		return nil
	}
	signal, err := s.Skills.GetSkillSignal(userID)
	if err != nil {
		log.Printf("skill signal unavailable for user %s, using fallback: %v", userID, err)
		return nil
	}
	return signal
}

// personalizedSelection is the deterministic decision tree over the skill
// signal. It is not a trained model; a real one can be swapped in behind
// SkillSignalProvider without touching this logic.
func personalizedSelection(signal *models.SkillSignal) (models.ChallengeType, float64, string) {
	var challengeType models.ChallengeType
	var category string

	switch {
	case len(signal.WeakAreas) > 0:
		challengeType = models.ChallengeCategoryFocus
		category = signal.WeakAreas[0]
	case signal.OverallSkillLevel < 0.4:
		challengeType = models.ChallengeQuiz
	case signal.ConfidenceLevel < 0.5 && signal.OverallSkillLevel >= 0.4:
		challengeType = models.ChallengeAccuracy
	case signal.OverallSkillLevel > 0.7:
		challengeType = models.ChallengePerfectScore
	default:
		challengeType = models.ChallengeQuiz
	}

	// Base difficulty tracks skill, nudged by confidence.
	difficulty := 0.2 + signal.OverallSkillLevel*0.7
	if signal.ConfidenceLevel > 0.7 {
		difficulty += 0.1
	} else if signal.ConfidenceLevel < 0.3 {
		difficulty -= 0.15
	}
	difficulty = clampFloat(difficulty, 0.2, 0.9)

	return challengeType, difficulty, category
}

// fallbackSelection buckets the user by lifetime question volume into
// new / developing / experienced tiers. Valid even with zero history.
func (s *ChallengeService) fallbackSelection(userID string) (models.ChallengeType, float64) {
	var stats models.UserStats
	var totalQuestions int64
	if err := s.DB.Where("user_id = ?", userID).First(&stats).Error; err == nil {
		totalQuestions = stats.TotalQuestionsAnswered
	}

	tier := tierFor(totalQuestions)
	challengeType := tier.Types[rand.Intn(len(tier.Types))]
	difficulty := tier.MinDifficulty + rand.Float64()*(tier.MaxDifficulty-tier.MinDifficulty)
	return challengeType, clampFloat(difficulty, 0.2, 0.9)
}

// scaleRequirement interpolates within the type's range by difficulty, then
// shrinks ~30% for easy (<0.3) and grows ~40% for hard (>0.7) challenges,
// clamping back into the range.
func scaleRequirement(cfg ChallengeTypeConfig, difficulty float64) int64 {
	span := float64(cfg.MaxRequirement - cfg.MinRequirement)
	value := float64(cfg.MinRequirement) + span*difficulty

	if difficulty < 0.3 {
		value *= 0.7
	} else if difficulty > 0.7 {
		value *= 1.4
	}

	req := int64(math.Round(value))
	if req < cfg.MinRequirement {
		req = cfg.MinRequirement
	}
	if req > cfg.MaxRequirement {
		req = cfg.MaxRequirement
	}
	return req
}

// challengeRewards derives base and bonus XP. Bonus exists only at difficulty
// >= 0.5 and perfect-score challenges pay 1.5x bonus.
func challengeRewards(cfg ChallengeTypeConfig, ct models.ChallengeType, difficulty float64) (xp, bonus int64) {
	multiplier := 0.5 + difficulty
	xp = int64(math.Floor(float64(cfg.BaseXP) * multiplier * cfg.CategoryWeight))
	if xp < 10 {
		xp = 10
	}

	if difficulty >= 0.5 {
		b := float64(cfg.BaseXP) * (difficulty - 0.5) * 0.6
		if ct == models.ChallengePerfectScore {
			b *= 1.5
		}
		bonus = int64(math.Floor(b))
	}
	return xp, bonus
}

// UpdateDailyChallengeProgress adds increment to every active, uncompleted
// challenge of the given type (and category, when specified) dated today.
// Completed challenges are filtered out before the add, so progress freezes
// the moment a challenge completes. Returns the challenges completed by this
// call; each pays out through the ledger exactly once.
func (s *ChallengeService) UpdateDailyChallengeProgress(userID string, ct models.ChallengeType, increment int64, category string) ([]models.DailyChallenge, error) {
	if increment <= 0 {
		return nil, nil
	}
	today := utils.DayOf(time.Now())

	query := s.DB.Where("user_id = ? AND challenge_date = ? AND challenge_type = ? AND is_active = ?",
		userID, today, ct, true)
	if category != "" {
		query = query.Where("category = ? OR category = ''", category)
	}
	var challenges []models.DailyChallenge
	if err := query.Find(&challenges).Error; err != nil {
		return nil, err
	}

	var completed []models.DailyChallenge
	for i := range challenges {
		challenge := challenges[i]
		done, err := s.applyProgress(userID, &challenge, increment)
		if err != nil {
			log.Printf("challenge progress update failed: challenge=%s user=%s: %v", challenge.ID, userID, err)
			continue
		}
		if done {
			completed = append(completed, challenge)
		}
	}
	return completed, nil
}

// UpdateDailyChallengeBest records a high-water value (e.g. best accuracy of
// the day) instead of accumulating: progress becomes max(progress, value).
// Used for threshold challenges where summing attempts would be wrong.
func (s *ChallengeService) UpdateDailyChallengeBest(userID string, ct models.ChallengeType, value int64) ([]models.DailyChallenge, error) {
	if value <= 0 {
		return nil, nil
	}
	today := utils.DayOf(time.Now())

	var challenges []models.DailyChallenge
	if err := s.DB.Where("user_id = ? AND challenge_date = ? AND challenge_type = ? AND is_active = ?",
		userID, today, ct, true).Find(&challenges).Error; err != nil {
		return nil, err
	}

	var completed []models.DailyChallenge
	for i := range challenges {
		challenge := challenges[i]
		done, err := s.applyProgressMode(userID, &challenge, value, true)
		if err != nil {
			log.Printf("challenge progress update failed: challenge=%s user=%s: %v", challenge.ID, userID, err)
			continue
		}
		if done {
			completed = append(completed, challenge)
		}
	}
	return completed, nil
}

func (s *ChallengeService) applyProgress(userID string, challenge *models.DailyChallenge, increment int64) (bool, error) {
	return s.applyProgressMode(userID, challenge, increment, false)
}

func (s *ChallengeService) applyProgressMode(userID string, challenge *models.DailyChallenge, value int64, highWater bool) (bool, error) {
	completedNow := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var progress models.UserDailyChallenge
		err := tx.Where("user_id = ? AND challenge_id = ?", userID, challenge.ID).First(&progress).Error
		if err == gorm.ErrRecordNotFound {
			progress = models.UserDailyChallenge{
				ID:          uuid.NewString(),
				UserID:      userID,
				ChallengeID: challenge.ID,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if progress.Completed {
			return nil // one-way transition, progress never moves again
		}

		if highWater {
			if value > progress.Progress {
				progress.Progress = value
			}
		} else {
			progress.Progress += value
		}
		if progress.Progress >= challenge.RequirementValue {
			progress.Progress = challenge.RequirementValue
			progress.Completed = true
			progress.XPEarned = challenge.XPReward
			now := time.Now()
			progress.CompletedAt = &now
			completedNow = true
		}
		return tx.Save(&progress).Error
	})
	if err != nil || !completedNow {
		return false, err
	}

	if _, err := s.Progression.AwardXP(userID, challenge.XPReward, models.XPTypeDailyChallenge,
		fmt.Sprintf("Daily challenge completed: %s", challenge.Title), challenge.ID); err != nil {
		return true, err
	}
	if challenge.BonusReward > 0 {
		if _, err := s.Progression.AwardXP(userID, challenge.BonusReward, models.XPTypeDailyChallenge,
			fmt.Sprintf("Daily challenge bonus: %s", challenge.Title), challenge.ID); err != nil {
			return true, err
		}
	}
	return true, nil
}

// GenerateDailyChallengesForAllUsers runs generation for every known user.
// One user's failure is logged and tallied, never aborting the batch.
func (s *ChallengeService) GenerateDailyChallengesForAllUsers(date time.Time) (generated int, errorCount int) {
	var users []models.User
	if err := s.DB.Find(&users).Error; err != nil {
		log.Printf("challenge batch: failed to list users: %v", err)
		return 0, 1
	}

	for _, u := range users {
		challenge, err := s.GeneratePersonalizedChallenge(u.ID, date)
		if err != nil {
			log.Printf("challenge batch: generation failed for user %s: %v", u.ID, err)
			errorCount++
			continue
		}
		if challenge != nil {
			generated++
		}
	}
	log.Printf("challenge batch for %s: generated=%d errors=%d users=%d",
		utils.DayOf(date).Format("2006-01-02"), generated, errorCount, len(users))
	return generated, errorCount
}

// GetTodayChallenges returns today's challenges joined with progress state.
func (s *ChallengeService) GetTodayChallenges(userID string) ([]models.UserDailyChallenge, error) {
	today := utils.DayOf(time.Now())
	var rows []models.UserDailyChallenge
	err := s.DB.
		Joins("JOIN daily_challenges ON daily_challenges.id = user_daily_challenges.challenge_id").
		Where("user_daily_challenges.user_id = ? AND daily_challenges.challenge_date = ?", userID, today).
		Preload("Challenge").
		Find(&rows).Error
	return rows, err
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
