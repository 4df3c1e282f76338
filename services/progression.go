package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"theory-gamification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxLevel is a safety bound against runaway threshold loops.
const MaxLevel = 100

// BaseLevelXP is the cost of reaching level 2 from zero.
const BaseLevelXP = 100

// XPForLevel returns the XP span of level n, i.e. what it costs to go from
// level n-1 to level n. Level 1 is free; level 2 costs 100, each level after
// that costs 1.5x the previous one. Spans near the cap outgrow int64; they
// saturate at MaxInt64 instead of wrapping.
func XPForLevel(n int) int64 {
	if n <= 1 {
		return 0
	}
	span := math.Floor(float64(BaseLevelXP) * math.Pow(1.5, float64(n-2)))
	if span >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(span)
}

// TotalXPForLevel returns the cumulative XP required to sit at level n.
// Saturates at MaxInt64 once the running sum would overflow.
func TotalXPForLevel(n int) int64 {
	if n > MaxLevel {
		n = MaxLevel
	}
	var total int64
	for i := 2; i <= n; i++ {
		span := XPForLevel(i)
		if total > math.MaxInt64-span {
			return math.MaxInt64
		}
		total += span
	}
	return total
}

// LevelFromXP derives the level for a cumulative XP total. Monotonic in
// totalXP and capped at MaxLevel. Totals below 100 are always level 1; any
// total at or past the saturated thresholds reads as MaxLevel.
func LevelFromXP(totalXP int64) int {
	level := 1
	var cumulative int64
	for n := 2; n <= MaxLevel; n++ {
		span := XPForLevel(n)
		if cumulative > math.MaxInt64-span {
			cumulative = math.MaxInt64
		} else {
			cumulative += span
		}
		if totalXP < cumulative {
			break
		}
		level = n
	}
	return level
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureUser returns the local user row for an external profile id, creating
// it (plus the derived level cache) on first sight. Idempotent.
func (s *ProgressionService) EnsureUser(externalUserID, username string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Username:       username,
			TotalXP:        0,
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		if _, err := s.ensureLevelRecord(s.DB, user.ID); err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *ProgressionService) ensureLevelRecord(tx *gorm.DB, userID string) (*models.UserLevel, error) {
	var level models.UserLevel
	err := tx.Where("user_id = ?", userID).First(&level).Error
	if err == gorm.ErrRecordNotFound {
		level = models.UserLevel{
			ID:           uuid.NewString(),
			UserID:       userID,
			CurrentLevel: 1,
			CurrentXP:    0,
			TotalXP:      0,
			NextLevelXP:  XPForLevel(2),
		}
		if err := tx.Create(&level).Error; err != nil {
			return nil, err
		}
		return &level, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// AwardXP appends an immutable ledger entry and moves User.TotalXP and the
// UserLevel cache together in one transaction. Negative amounts are spends and
// may re-derive the level downward; that path is symmetric, not a special case.
// Returns every level crossed upward (one large award can cross several), so
// the caller can run level-based achievement checks per crossing.
func (s *ProgressionService) AwardXP(userID string, amount int64, txType models.XPTransactionType, description, referenceID string) ([]int, error) {
	var crossed []int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return fmt.Errorf("user %s not found: %w", userID, err)
		}

		entry := models.XPTransaction{
			ID:              uuid.NewString(),
			UserID:          userID,
			Amount:          amount,
			TransactionType: txType,
			Description:     description,
			ReferenceID:     referenceID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		// Concurrent awards must all land on the cached total; increment in SQL,
		// never read-modify-write.
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("total_xp", gorm.Expr("total_xp + ?", amount)).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		level, err := s.ensureLevelRecord(tx, userID)
		if err != nil {
			return err
		}

		oldLevel := level.CurrentLevel
		newLevel := LevelFromXP(user.TotalXP)
		for n := oldLevel + 1; n <= newLevel; n++ {
			crossed = append(crossed, n)
		}

		level.TotalXP = user.TotalXP
		level.CurrentLevel = newLevel
		level.CurrentXP = user.TotalXP - TotalXPForLevel(newLevel)
		if newLevel >= MaxLevel {
			level.NextLevelXP = 0
		} else {
			level.NextLevelXP = XPForLevel(newLevel + 1)
		}
		if newLevel > oldLevel {
			now := time.Now()
			level.LastLevelUp = &now
		}
		if err := tx.Save(level).Error; err != nil {
			return err
		}

		log.Printf("XP awarded: user=%s amount=%+d type=%s total=%d level=%d",
			userID, amount, txType, user.TotalXP, newLevel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return crossed, nil
}

// SyncUserLevel rebuilds the UserLevel cache from User.TotalXP from scratch.
// Idempotent: calling it twice in a row is a no-op. Used to repair drift
// between the ledger and the derived caches.
func (s *ProgressionService) SyncUserLevel(userID string) (*models.UserLevel, error) {
	var synced *models.UserLevel
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return fmt.Errorf("user %s not found: %w", userID, err)
		}

		level, err := s.ensureLevelRecord(tx, userID)
		if err != nil {
			return err
		}

		newLevel := LevelFromXP(user.TotalXP)
		level.TotalXP = user.TotalXP
		level.CurrentLevel = newLevel
		level.CurrentXP = user.TotalXP - TotalXPForLevel(newLevel)
		if newLevel >= MaxLevel {
			level.NextLevelXP = 0
		} else {
			level.NextLevelXP = XPForLevel(newLevel + 1)
		}
		if err := tx.Save(level).Error; err != nil {
			return err
		}
		synced = level
		return nil
	})
	if err != nil {
		return nil, err
	}
	return synced, nil
}

// LedgerTotal sums the append-only ledger for one user. The invariant
// LedgerTotal(u) == User.TotalXP must hold at all times; the audit worker
// checks it and repairs via SyncUserLevel.
func (s *ProgressionService) LedgerTotal(userID string) (int64, error) {
	var total int64
	err := s.DB.Model(&models.XPTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// GetUserLevel returns the cached level row, creating it if missing.
func (s *ProgressionService) GetUserLevel(userID string) (*models.UserLevel, error) {
	return s.ensureLevelRecord(s.DB, userID)
}

// GetRecentTransactions returns the user's latest ledger entries.
func (s *ProgressionService) GetRecentTransactions(userID string, limit int) ([]models.XPTransaction, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var entries []models.XPTransaction
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
