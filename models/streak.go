package models

import (
	"time"
)

// StreakState tracks consecutive calendar days with at least one qualifying
// activity. Mutated only by StreakService; LastActivityDate is stored at day
// granularity (midnight UTC).
type StreakState struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	CurrentStreakDays int        `json:"current_streak_days" gorm:"default:0"`
	LongestStreakDays int        `json:"longest_streak_days" gorm:"default:0"`
	LastActivityDate  *time.Time `json:"last_activity_date,omitempty"`

	Timestamps
}

// StreakMilestone defines XP + badge granted when a streak hits an exact
// threshold. Awarded once per threshold crossing (delta == 1 transitions only,
// exact match rather than >=).
type StreakMilestone struct {
	Days      int
	XP        int64
	BadgeName string
}

var StreakMilestones = []StreakMilestone{
	{Days: 3, XP: 30, BadgeName: "Warm-Up"},
	{Days: 7, XP: 75, BadgeName: "One Week Strong"},
	{Days: 14, XP: 150, BadgeName: "Fortnight Fighter"},
	{Days: 30, XP: 400, BadgeName: "Monthly Master"},
	{Days: 60, XP: 900, BadgeName: "Iron Discipline"},
	{Days: 100, XP: 1500, BadgeName: "Centurion"},
}
