package services

import (
	"fmt"
	"log"
	"time"

	"theory-gamification-system/models"
	"theory-gamification-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StreakService struct {
	DB          *gorm.DB
	Progression *ProgressionService
	Notifier    Notifier
}

func NewStreakService(db *gorm.DB, progression *ProgressionService, notifier Notifier) *StreakService {
	return &StreakService{DB: db, Progression: progression, Notifier: notifier}
}

// CheckAndUpdateStreak advances the day-granularity streak state machine for
// one activity event. Transitions on today - last_activity_date:
//
//	delta 0  -> already counted today, state unchanged
//	delta 1  -> streak extends by one, milestone check on exact match
//	delta >1 -> streak broken, reset to 1; lost streaks of 3+ days trigger a
//	            best-effort email
//
// A brand-new user's first activity starts a streak of 1. LastActivityDate is
// set to today on every branch.
func (s *StreakService) CheckAndUpdateStreak(userID string, now time.Time) (*models.StreakState, error) {
	today := utils.DayOf(now)

	var streak models.StreakState
	err := s.DB.Where("user_id = ?", userID).First(&streak).Error
	if err == gorm.ErrRecordNotFound {
		streak = models.StreakState{
			ID:                uuid.NewString(),
			UserID:            userID,
			CurrentStreakDays: 1,
			LongestStreakDays: 1,
			LastActivityDate:  &today,
		}
		if err := s.DB.Create(&streak).Error; err != nil {
			return nil, err
		}
		s.checkMilestone(userID, streak.CurrentStreakDays)
		return &streak, nil
	}
	if err != nil {
		return nil, err
	}

	if streak.LastActivityDate == nil {
		streak.CurrentStreakDays = 1
		if streak.LongestStreakDays < 1 {
			streak.LongestStreakDays = 1
		}
		streak.LastActivityDate = &today
		if err := s.DB.Save(&streak).Error; err != nil {
			return nil, err
		}
		s.checkMilestone(userID, streak.CurrentStreakDays)
		return &streak, nil
	}

	delta := utils.DaysBetween(*streak.LastActivityDate, today)
	switch {
	case delta <= 0:
		// Already counted today (negative deltas only from clock skew; treat
		// the same to keep the machine monotone).
		streak.LastActivityDate = &today
		if err := s.DB.Save(&streak).Error; err != nil {
			return nil, err
		}
		return &streak, nil

	case delta == 1:
		streak.CurrentStreakDays++
		if streak.CurrentStreakDays > streak.LongestStreakDays {
			streak.LongestStreakDays = streak.CurrentStreakDays
		}
		streak.LastActivityDate = &today
		if err := s.DB.Save(&streak).Error; err != nil {
			return nil, err
		}
		s.checkMilestone(userID, streak.CurrentStreakDays)
		return &streak, nil

	default: // delta > 1, streak broken
		lost := streak.CurrentStreakDays
		streak.CurrentStreakDays = 1
		streak.LastActivityDate = &today
		if streak.LongestStreakDays < 1 {
			streak.LongestStreakDays = 1
		}
		if err := s.DB.Save(&streak).Error; err != nil {
			return nil, err
		}
		if lost >= 3 {
			log.Printf("streak lost: user=%s days=%d", userID, lost)
			notifyBestEffort("streak-lost", func() error {
				return s.Notifier.SendStreakLostEmail(userID, lost)
			})
		}
		s.checkMilestone(userID, streak.CurrentStreakDays)
		return &streak, nil
	}
}

// checkMilestone pays milestone XP when the streak length equals a threshold
// exactly. Exact match (not >=) means each threshold pays at most once per
// crossing; the ledger reference ties the payout to the specific threshold.
func (s *StreakService) checkMilestone(userID string, days int) {
	for _, m := range models.StreakMilestones {
		if m.Days != days {
			continue
		}
		ref := fmt.Sprintf("streak-%d", m.Days)
		if _, err := s.Progression.AwardXP(userID, m.XP, models.XPTypeStreak,
			fmt.Sprintf("Streak milestone: %d days (%s)", m.Days, m.BadgeName), ref); err != nil {
			log.Printf("streak milestone award failed: user=%s days=%d: %v", userID, m.Days, err)
			return
		}
		notifyBestEffort("streak-badge", func() error {
			return s.Notifier.SendBadgeNotification(userID, m.BadgeName)
		})
		return
	}
}

// GetStreak returns the user's streak state, zero-valued if none exists yet.
func (s *StreakService) GetStreak(userID string) (*models.StreakState, error) {
	var streak models.StreakState
	err := s.DB.Where("user_id = ?", userID).First(&streak).Error
	if err == gorm.ErrRecordNotFound {
		return &models.StreakState{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}
