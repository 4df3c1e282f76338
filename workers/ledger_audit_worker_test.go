package workers

import (
	"testing"

	"theory-gamification-system/models"
	"theory-gamification-system/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuditDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.XPTransaction{}, &models.UserLevel{}))
	return db
}

func TestRepairOnceFixesDriftedTotals(t *testing.T) {
	db := setupAuditDB(t)
	progression := services.NewProgressionService(db)
	auditor := NewLedgerAuditor(db, progression)

	user, err := progression.EnsureUser(uuid.NewString(), "driftcase")
	require.NoError(t, err)
	_, err = progression.AwardXP(user.ID, 250, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)

	// Corrupt the cached total behind the ledger's back.
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", user.ID).Update("total_xp", 9999).Error)

	repaired, err := auditor.RepairOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	var fresh models.User
	require.NoError(t, db.Where("id = ?", user.ID).First(&fresh).Error)
	assert.EqualValues(t, 250, fresh.TotalXP)

	// The level cache is resynced from the repaired total.
	level, err := progression.GetUserLevel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, services.LevelFromXP(250), level.CurrentLevel)
	assert.EqualValues(t, 250, level.TotalXP)

	// A clean ledger needs no repairs.
	repaired, err = auditor.RepairOnce()
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}
