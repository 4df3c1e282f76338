package services

import (
	"testing"

	"theory-gamification-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One in-memory sqlite database per connection; pin the pool to a single
	// connection so every query sees the same database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.CategoryStat{},
		&models.XPTransaction{},
		&models.UserLevel{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.DailyChallenge{},
		&models.UserDailyChallenge{},
		&models.StreakState{},
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.LeaderboardEntry{},
	))
	return db
}

func makeUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user, err := NewProgressionService(db).EnsureUser(uuid.NewString(), "tester")
	require.NoError(t, err)
	return user
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	badges     []string
	streakLost []int
}

func (r *recordingNotifier) SendBadgeNotification(userID, achievementName string) error {
	r.badges = append(r.badges, achievementName)
	return nil
}

func (r *recordingNotifier) SendStreakLostEmail(userID string, lostDays int) error {
	r.streakLost = append(r.streakLost, lostDays)
	return nil
}
