package services

import (
	"testing"
	"time"

	"theory-gamification-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshAndRankQuizScore(t *testing.T) {
	db := setupTestDB(t)
	progression := NewProgressionService(db)
	svc := NewLeaderboardService(db, nil)

	strong := makeUser(t, db)
	weak := makeUser(t, db)
	_, err := progression.AwardXP(strong.ID, 100, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)
	_, err = progression.AwardXP(weak.ID, 50, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)

	require.NoError(t, svc.RefreshLeaderboards(time.Now()))

	entries, err := svc.GetLeaderboard(models.LeaderboardWeekly, models.CategoryQuizScore, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, strong.ID, entries[0].UserID)
	assert.EqualValues(t, 100, entries[0].Score)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, weak.ID, entries[1].UserID)
	assert.Equal(t, 2, entries[1].Rank)

	rank, score, err := svc.GetUserRank(weak.ID, models.LeaderboardWeekly, models.CategoryQuizScore)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
	assert.EqualValues(t, 50, score)
}

func TestRefreshIsRepeatable(t *testing.T) {
	db := setupTestDB(t)
	progression := NewProgressionService(db)
	svc := NewLeaderboardService(db, nil)

	user := makeUser(t, db)
	_, err := progression.AwardXP(user.ID, 75, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)

	require.NoError(t, svc.RefreshLeaderboards(time.Now()))
	require.NoError(t, svc.RefreshLeaderboards(time.Now()))

	// Upsert on the composite key: one row per board, not one per refresh.
	var count int64
	require.NoError(t, db.Model(&models.LeaderboardEntry{}).
		Where("user_id = ? AND leaderboard_type = ? AND category = ?",
			user.ID, models.LeaderboardWeekly, models.CategoryQuizScore).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOverallScoreCombinesSources(t *testing.T) {
	db := setupTestDB(t)
	progression := NewProgressionService(db)
	svc := NewLeaderboardService(db, nil)

	user := makeUser(t, db)
	_, err := progression.AwardXP(user.ID, 100, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)

	// An earned achievement worth 50 points and a 4-day streak.
	achievement := models.Achievement{
		ID: uuid.NewString(), Code: "test-overall", Name: "Test",
		RequirementType: models.ReqQuizCount, RequirementValue: 1, Points: 50, IsActive: true,
	}
	require.NoError(t, db.Create(&achievement).Error)
	require.NoError(t, db.Create(&models.UserAchievement{
		ID: uuid.NewString(), UserID: user.ID, AchievementID: achievement.ID,
	}).Error)
	require.NoError(t, db.Create(&models.StreakState{
		ID: uuid.NewString(), UserID: user.ID, CurrentStreakDays: 4, LongestStreakDays: 4,
	}).Error)

	require.NoError(t, svc.RefreshLeaderboards(time.Now()))

	rank, score, err := svc.GetUserRank(user.ID, models.LeaderboardWeekly, models.CategoryOverall)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
	assert.EqualValues(t, 100+50+4*10, score)
}

func TestUserRankAbsentUserIsZero(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(db, nil)

	rank, score, err := svc.GetUserRank("nobody", models.LeaderboardDaily, models.CategoryOverall)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
	assert.EqualValues(t, 0, score)
}

func TestStreakBoardUsesCurrentStreak(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(db, nil)

	longRunner := makeUser(t, db)
	casual := makeUser(t, db)
	require.NoError(t, db.Create(&models.StreakState{
		ID: uuid.NewString(), UserID: longRunner.ID, CurrentStreakDays: 12, LongestStreakDays: 12,
	}).Error)
	require.NoError(t, db.Create(&models.StreakState{
		ID: uuid.NewString(), UserID: casual.ID, CurrentStreakDays: 2, LongestStreakDays: 8,
	}).Error)

	require.NoError(t, svc.RefreshLeaderboards(time.Now()))

	entries, err := svc.GetLeaderboard(models.LeaderboardAllTime, models.CategoryStreak, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, longRunner.ID, entries[0].UserID)
	assert.EqualValues(t, 12, entries[0].Score)
	assert.EqualValues(t, 2, entries[1].Score)
}
