package models

import (
	"time"
)

// RequirementType is the closed set of achievement rule variants.
type RequirementType string

const (
	ReqQuizCount        RequirementType = "quiz_count"
	ReqPerfectScore     RequirementType = "perfect_score"
	ReqStreakDays       RequirementType = "streak_days"
	ReqTotalQuestions   RequirementType = "total_questions"
	ReqAccuracyRate     RequirementType = "accuracy_rate"
	ReqCategoryComplete RequirementType = "category_complete"
	ReqExamPassed       RequirementType = "exam_passed"
	ReqLevel            RequirementType = "level"
	ReqGamesPlayed      RequirementType = "games_played"
	ReqVideosWatched    RequirementType = "videos_watched"
)

// Achievement is a static rule definition (loaded from DB, seeded below).
type Achievement struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // e.g. "quiz-rookie"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Icon        string `gorm:"type:text" json:"icon"`
	Rarity      string `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary

	RequirementType  RequirementType `gorm:"type:varchar(32);not null" json:"requirement_type"`
	RequirementValue int64           `json:"requirement_value"`

	// category_complete only: both legs must hold, partial satisfaction of one
	// does not award.
	TargetCategory string  `json:"target_category,omitempty"`
	MinAccuracy    float64 `json:"min_accuracy,omitempty"`
	MinSessions    int64   `json:"min_sessions,omitempty"`

	Points int64 `json:"points" gorm:"default:0"` // XP granted on unlock

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserAchievement records an unlock. The composite unique index is the
// exactly-once guarantee: at most one row per (user, achievement) ever exists.
type UserAchievement struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at" gorm:"autoCreateTime"`

	Achievement Achievement `json:"achievement,omitempty" gorm:"foreignKey:AchievementID"`
}

// DefaultAchievements seeds the rule table on first migration.
var DefaultAchievements = []Achievement{
	{
		Code: "first-quiz", Name: "Getting Started", Description: "Complete your first quiz",
		Rarity: "common", RequirementType: ReqQuizCount, RequirementValue: 1, Points: 25,
	},
	{
		Code: "quiz-veteran", Name: "Quiz Veteran", Description: "Complete 50 quizzes",
		Rarity: "rare", RequirementType: ReqQuizCount, RequirementValue: 50, Points: 150,
	},
	{
		Code: "flawless", Name: "Flawless", Description: "Score 100% on a quiz",
		Rarity: "rare", RequirementType: ReqPerfectScore, RequirementValue: 1, Points: 50,
	},
	{
		Code: "week-streak", Name: "Consistency", Description: "Practice 7 days in a row",
		Rarity: "rare", RequirementType: ReqStreakDays, RequirementValue: 7, Points: 100,
	},
	{
		Code: "question-machine", Name: "Question Machine", Description: "Answer 1000 questions",
		Rarity: "epic", RequirementType: ReqTotalQuestions, RequirementValue: 1000, Points: 200,
	},
	{
		Code: "sharp-shooter", Name: "Sharp Shooter", Description: "Reach 90% overall accuracy",
		Rarity: "epic", RequirementType: ReqAccuracyRate, RequirementValue: 90, Points: 200,
	},
	{
		Code: "sign-master", Name: "Sign Master", Description: "Master the road signs category",
		Rarity: "epic", RequirementType: ReqCategoryComplete,
		TargetCategory: "road-signs", MinAccuracy: 85, MinSessions: 5, Points: 250,
	},
	{
		Code: "exam-ready", Name: "Exam Ready", Description: "Pass a mock exam",
		Rarity: "rare", RequirementType: ReqExamPassed, RequirementValue: 1, Points: 150,
	},
	{
		Code: "level-10", Name: "Double Digits", Description: "Reach level 10",
		Rarity: "rare", RequirementType: ReqLevel, RequirementValue: 10, Points: 100,
	},
	{
		Code: "gamer", Name: "Playing Around", Description: "Finish 10 practice games",
		Rarity: "common", RequirementType: ReqGamesPlayed, RequirementValue: 10, Points: 50,
	},
	{
		Code: "film-buff", Name: "Film Buff", Description: "Watch 20 theory videos",
		Rarity: "common", RequirementType: ReqVideosWatched, RequirementValue: 20, Points: 50,
	},
}
