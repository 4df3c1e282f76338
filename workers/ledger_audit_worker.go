package workers

import (
	"context"
	"log"
	"time"

	"theory-gamification-system/models"
	"theory-gamification-system/services"

	"gorm.io/gorm"
)

// LedgerAuditor periodically checks the core reconciliation invariant —
// SUM(xp_transactions.amount) == users.total_xp for every user — and repairs
// drift by resetting the cached total from the ledger and resyncing the level
// cache. Drift is expected to be detectable and fixable, not fatal.
type LedgerAuditor struct {
	DB          *gorm.DB
	Progression *services.ProgressionService
}

func NewLedgerAuditor(db *gorm.DB, progression *services.ProgressionService) *LedgerAuditor {
	return &LedgerAuditor{DB: db, Progression: progression}
}

type driftRow struct {
	UserID      string
	CachedTotal int64
	LedgerTotal int64
}

func (a *LedgerAuditor) findDrift() ([]driftRow, error) {
	var rows []driftRow
	err := a.DB.Raw(`
		SELECT u.id AS user_id,
		       u.total_xp AS cached_total,
		       COALESCE(SUM(t.amount), 0) AS ledger_total
		FROM users u
		LEFT JOIN xp_transactions t ON t.user_id = u.id
		WHERE u.deleted_at IS NULL
		GROUP BY u.id, u.total_xp
		HAVING u.total_xp != COALESCE(SUM(t.amount), 0)
	`).Scan(&rows).Error
	return rows, err
}

// RepairOnce runs one audit pass and returns how many users were repaired.
func (a *LedgerAuditor) RepairOnce() (int, error) {
	drifted, err := a.findDrift()
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, d := range drifted {
		log.Printf("ledger drift: user=%s cached=%d ledger=%d, repairing",
			d.UserID, d.CachedTotal, d.LedgerTotal)

		if err := a.DB.Model(&models.User{}).
			Where("id = ?", d.UserID).
			Update("total_xp", d.LedgerTotal).Error; err != nil {
			log.Printf("ledger repair failed for user %s: %v", d.UserID, err)
			continue
		}
		if _, err := a.Progression.SyncUserLevel(d.UserID); err != nil {
			log.Printf("level resync failed for user %s: %v", d.UserID, err)
			continue
		}
		repaired++
	}
	return repaired, nil
}

// Poll runs audit passes until the context is cancelled.
func (a *LedgerAuditor) Poll(ctx context.Context, interval time.Duration) {
	log.Println("Starting XP ledger audit worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Ledger audit worker stopped.")
			return
		case <-ticker.C:
			repaired, err := a.RepairOnce()
			if err != nil {
				log.Printf("ledger audit pass failed: %v", err)
				continue
			}
			if repaired > 0 {
				log.Printf("ledger audit: repaired %d user(s)", repaired)
			}
		}
	}
}
