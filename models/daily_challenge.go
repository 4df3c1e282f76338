package models

import (
	"time"
)

// ChallengeType is the closed set of daily challenge variants.
type ChallengeType string

const (
	ChallengeQuiz          ChallengeType = "quiz"
	ChallengeCategoryFocus ChallengeType = "category_focus"
	ChallengeAccuracy      ChallengeType = "accuracy_challenge"
	ChallengePerfectScore  ChallengeType = "perfect_score"
	ChallengeSpeedRun      ChallengeType = "speed_run"
)

// DailyChallenge is a per-user-per-day task produced by the generator.
// The (user_id, challenge_date) unique index is the double-generation guard:
// when two concurrent requests race, the loser's insert is discarded.
// Past challenges become inert but are never deleted.
type DailyChallenge struct {
	ID            string        `gorm:"primaryKey" json:"id"`
	UserID        string        `gorm:"not null;uniqueIndex:idx_user_challenge_date" json:"user_id"`
	ChallengeDate time.Time     `gorm:"not null;uniqueIndex:idx_user_challenge_date" json:"challenge_date"` // midnight UTC
	ChallengeType ChallengeType `gorm:"type:varchar(32);not null" json:"challenge_type"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // category_focus only

	RequirementValue int64   `json:"requirement_value"`
	Difficulty       float64 `json:"difficulty"` // 0.2 - 0.9
	XPReward         int64   `json:"xp_reward"`
	BonusReward      int64   `json:"bonus_reward"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserDailyChallenge tracks one user's progress against a challenge.
// Progress is monotonically increasing and freezes once Completed flips true;
// the completed transition is one-way.
type UserDailyChallenge struct {
	ID          string `gorm:"primaryKey" json:"id"`
	UserID      string `gorm:"not null;uniqueIndex:idx_user_daily_challenge" json:"user_id"`
	ChallengeID string `gorm:"not null;uniqueIndex:idx_user_daily_challenge" json:"challenge_id"`

	Progress    int64      `json:"progress" gorm:"default:0"`
	Completed   bool       `json:"completed" gorm:"default:false"`
	XPEarned    int64      `json:"xp_earned" gorm:"default:0"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Challenge DailyChallenge `json:"challenge,omitempty" gorm:"foreignKey:ChallengeID"`

	Timestamps
}
