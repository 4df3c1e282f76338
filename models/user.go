package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a local snapshot of a learner, owned by the gamification service.
// TotalXP is a denormalized cache of the XP ledger: it must always equal
// SUM(xp_transactions.amount) for the user. The ledger is the source of truth;
// drift is repaired by ProgressionService.SyncUserLevel.
type User struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service
	Username       string `gorm:"index" json:"username"`

	TotalXP int64 `json:"total_xp" gorm:"default:0"`

	Timestamps
}

// UserStats holds denormalized activity counters per user. They feed the
// achievement predicates and the non-personalized challenge fallback, and are
// incremented by the engine on each completion event.
type UserStats struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	TotalQuizzes           int64 `json:"total_quizzes" gorm:"default:0"`
	PerfectScores          int64 `json:"perfect_scores" gorm:"default:0"`
	TotalQuestionsAnswered int64 `json:"total_questions_answered" gorm:"default:0"`
	TotalCorrectAnswers    int64 `json:"total_correct_answers" gorm:"default:0"`
	ExamsPassed            int64 `json:"exams_passed" gorm:"default:0"`
	GamesPlayed            int64 `json:"games_played" gorm:"default:0"`
	VideosWatched          int64 `json:"videos_watched" gorm:"default:0"`

	Timestamps
}

// AccuracyRate returns the user's overall accuracy in percent.
func (s *UserStats) AccuracyRate() float64 {
	if s.TotalQuestionsAnswered == 0 {
		return 0
	}
	return float64(s.TotalCorrectAnswers) / float64(s.TotalQuestionsAnswered) * 100
}

// CategoryStat aggregates quiz performance within a single theory category
// (e.g. "road-signs", "right-of-way"). One row per (user, category).
type CategoryStat struct {
	ID       string `gorm:"primaryKey" json:"id"`
	UserID   string `gorm:"not null;uniqueIndex:idx_user_category" json:"user_id"`
	Category string `gorm:"not null;uniqueIndex:idx_user_category" json:"category"`

	Sessions int64   `json:"sessions" gorm:"default:0"`
	ScoreSum float64 `json:"score_sum" gorm:"default:0"` // sum of session scores, 0-100 each

	Timestamps
}

// AverageScore returns the mean session score within the category.
func (c *CategoryStat) AverageScore() float64 {
	if c.Sessions == 0 {
		return 0
	}
	return c.ScoreSum / float64(c.Sessions)
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
