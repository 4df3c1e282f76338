package models

import (
	"time"
)

// XPTransactionType classifies a ledger entry by the event that produced it
type XPTransactionType string

const (
	XPTypeQuiz                    XPTransactionType = "quiz"
	XPTypeAchievementUnlock       XPTransactionType = "achievement_unlock"
	XPTypeDailyChallenge          XPTransactionType = "daily_challenge"
	XPTypeTournamentParticipation XPTransactionType = "tournament_participation"
	XPTypeTournamentEntry         XPTransactionType = "tournament_entry"
	XPTypeStreak                  XPTransactionType = "streak"
	XPTypePowerUpPurchase         XPTransactionType = "power_up_purchase"
	XPTypeGame                    XPTransactionType = "game"
	XPTypeAdminAdjustment         XPTransactionType = "admin_adjustment"
)

// XPTransaction is one immutable entry in the append-only XP ledger.
// Rows are never updated or deleted after insert; negative amounts are spends
// (entry fees, power-up purchases).
type XPTransaction struct {
	ID              string            `gorm:"primaryKey" json:"id"`
	UserID          string            `gorm:"index;not null" json:"user_id"`
	Amount          int64             `gorm:"not null" json:"amount"`
	TransactionType XPTransactionType `gorm:"type:varchar(32);not null;index" json:"transaction_type"`
	Description     string            `json:"description"`
	ReferenceID     string            `gorm:"index" json:"reference_id,omitempty"` // achievement/challenge/tournament id
	CreatedAt       time.Time         `json:"created_at" gorm:"autoCreateTime"`
}
