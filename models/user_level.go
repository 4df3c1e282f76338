package models

import (
	"time"
)

// UserLevel is a derived cache, one row per user. It is a materialized view of
// User.TotalXP through the leveling curve and is always reconstructible from
// scratch — never treated as a source of truth.
type UserLevel struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	CurrentLevel int   `json:"current_level" gorm:"default:1"`
	CurrentXP    int64 `json:"current_xp" gorm:"default:0"`   // progress within the current level
	TotalXP      int64 `json:"total_xp" gorm:"default:0"`     // mirrors User.TotalXP, moved by the same write
	NextLevelXP  int64 `json:"next_level_xp" gorm:"default:100"` // XP span of the current level

	LastLevelUp *time.Time `json:"last_level_up,omitempty"`

	Timestamps
}
