package models

import (
	"time"
)

// LeaderboardType is the aggregation period.
type LeaderboardType string

const (
	LeaderboardDaily   LeaderboardType = "daily"
	LeaderboardWeekly  LeaderboardType = "weekly"
	LeaderboardMonthly LeaderboardType = "monthly"
	LeaderboardAllTime LeaderboardType = "all_time"
)

// LeaderboardCategory is the scoring dimension.
type LeaderboardCategory string

const (
	CategoryOverall      LeaderboardCategory = "overall"
	CategoryQuizScore    LeaderboardCategory = "quiz_score"
	CategoryAchievements LeaderboardCategory = "achievements"
	CategoryStreak       LeaderboardCategory = "streak"
)

// LeaderboardEntry is one user's row in a periodically recomputed ranked view.
// Not a ledger: entries are regenerated per period and safe to fully recompute.
type LeaderboardEntry struct {
	ID              string              `gorm:"primaryKey" json:"id"`
	UserID          string              `gorm:"not null;uniqueIndex:idx_leaderboard_entry" json:"user_id"`
	LeaderboardType LeaderboardType     `gorm:"type:varchar(16);not null;uniqueIndex:idx_leaderboard_entry" json:"leaderboard_type"`
	Category        LeaderboardCategory `gorm:"type:varchar(16);not null;uniqueIndex:idx_leaderboard_entry" json:"category"`
	PeriodStart     time.Time           `gorm:"not null;uniqueIndex:idx_leaderboard_entry" json:"period_start"`
	PeriodEnd       time.Time           `gorm:"not null" json:"period_end"`

	Score int64 `json:"score"`
	Rank  int   `json:"rank"`

	Timestamps
}

var AllLeaderboardTypes = []LeaderboardType{
	LeaderboardDaily, LeaderboardWeekly, LeaderboardMonthly, LeaderboardAllTime,
}

var AllLeaderboardCategories = []LeaderboardCategory{
	CategoryOverall, CategoryQuizScore, CategoryAchievements, CategoryStreak,
}
