package models

import (
	"time"
)

// TournamentType selects the scoring formula (see TournamentService).
type TournamentType string

const (
	TournamentAccuracy TournamentType = "accuracy"
	TournamentSpeed    TournamentType = "speed"
	TournamentMarathon TournamentType = "marathon"
	TournamentDefault  TournamentType = "default"
)

// Tournament is a time-boxed competitive scoring pool. Entry fees and prizes
// are denominated in XP and settle through the ledger.
type Tournament struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"not null" json:"name"`
	Description    string         `json:"description"`
	TournamentType TournamentType `gorm:"type:varchar(16);not null;default:'default'" json:"tournament_type"`
	Category       string         `json:"category,omitempty"`

	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null"`

	EntryFeeXP  int64 `json:"entry_fee_xp" gorm:"default:0"`
	PrizePoolXP int64 `json:"prize_pool_xp" gorm:"default:0"`

	Status string `json:"status" gorm:"type:varchar(16);default:'active'"` // active, completed, cancelled

	Participants []TournamentParticipant `json:"participants,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated, not stored
	ParticipantCount int64 `json:"participant_count,omitempty" gorm:"-"`

	Timestamps
}

// IsRunning reports whether the tournament accepts joins and score updates.
func (t *Tournament) IsRunning(now time.Time) bool {
	return t.Status == "active" && !now.Before(t.StartDate) && now.Before(t.EndDate)
}

// TournamentParticipant is one user's enrollment and running score. Rank is
// recomputed after every score update and is not authoritative in between.
type TournamentParticipant struct {
	ID           string `gorm:"primaryKey" json:"id"`
	UserID       string `gorm:"not null;uniqueIndex:idx_tournament_user" json:"user_id"`
	TournamentID string `gorm:"not null;uniqueIndex:idx_tournament_user" json:"tournament_id"`

	Score    int64     `json:"score" gorm:"default:0"`
	Rank     int       `json:"rank" gorm:"default:0"` // 0 = not ranked yet
	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`

	Timestamps
}
