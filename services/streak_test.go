package services

import (
	"testing"
	"time"

	"theory-gamification-system/models"
	"theory-gamification-system/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreakFixture(t *testing.T) (*StreakService, *ProgressionService, *models.User, *recordingNotifier) {
	db := setupTestDB(t)
	progression := NewProgressionService(db)
	notifier := &recordingNotifier{}
	svc := NewStreakService(db, progression, notifier)
	user := makeUser(t, db)
	return svc, progression, user, notifier
}

func seedStreak(t *testing.T, svc *StreakService, userID string, current, longest int, lastActivity time.Time) {
	t.Helper()
	day := utils.DayOf(lastActivity)
	streak := models.StreakState{
		ID:                uuid.NewString(),
		UserID:            userID,
		CurrentStreakDays: current,
		LongestStreakDays: longest,
		LastActivityDate:  &day,
	}
	require.NoError(t, svc.DB.Create(&streak).Error)
}

func TestFirstActivityStartsStreak(t *testing.T) {
	svc, _, user, _ := newStreakFixture(t)

	streak, err := svc.CheckAndUpdateStreak(user.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreakDays)
	assert.Equal(t, 1, streak.LongestStreakDays)
	require.NotNil(t, streak.LastActivityDate)
	assert.Equal(t, utils.DayOf(time.Now()), *streak.LastActivityDate)
}

func TestSameDayActivityDoesNotDoubleCount(t *testing.T) {
	svc, _, user, _ := newStreakFixture(t)

	now := time.Now()
	_, err := svc.CheckAndUpdateStreak(user.ID, now)
	require.NoError(t, err)
	streak, err := svc.CheckAndUpdateStreak(user.ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreakDays)
}

func TestConsecutiveDayExtendsStreak(t *testing.T) {
	svc, _, user, _ := newStreakFixture(t)
	now := time.Now()
	seedStreak(t, svc, user.ID, 4, 4, now.AddDate(0, 0, -1))

	streak, err := svc.CheckAndUpdateStreak(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 5, streak.CurrentStreakDays)
	assert.Equal(t, 5, streak.LongestStreakDays)
}

func TestMissedDayResetsStreak(t *testing.T) {
	svc, _, user, notifier := newStreakFixture(t)
	now := time.Now()
	seedStreak(t, svc, user.ID, 5, 9, now.AddDate(0, 0, -3))

	streak, err := svc.CheckAndUpdateStreak(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreakDays)
	assert.Equal(t, 9, streak.LongestStreakDays)
	assert.Equal(t, []int{5}, notifier.streakLost)
}

func TestShortLostStreakSendsNoEmail(t *testing.T) {
	svc, _, user, notifier := newStreakFixture(t)
	now := time.Now()
	seedStreak(t, svc, user.ID, 2, 2, now.AddDate(0, 0, -4))

	streak, err := svc.CheckAndUpdateStreak(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreakDays)
	assert.Empty(t, notifier.streakLost)
}

func TestMilestonePaysOnExactMatchOnly(t *testing.T) {
	svc, progression, user, notifier := newStreakFixture(t)
	now := time.Now()
	seedStreak(t, svc, user.ID, 2, 2, now.AddDate(0, 0, -1))

	// 2 -> 3 hits the first milestone.
	streak, err := svc.CheckAndUpdateStreak(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 3, streak.CurrentStreakDays)

	total, err := progression.LedgerTotal(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 30, total)
	assert.Equal(t, []string{"Warm-Up"}, notifier.badges)

	var entry models.XPTransaction
	require.NoError(t, svc.DB.Where("user_id = ? AND transaction_type = ?",
		user.ID, models.XPTypeStreak).First(&entry).Error)
	assert.Equal(t, "streak-3", entry.ReferenceID)

	// Day 4 is between milestones: no additional payout.
	require.NoError(t, svc.DB.Model(&models.StreakState{}).
		Where("user_id = ?", user.ID).
		Update("last_activity_date", utils.DayOf(now.AddDate(0, 0, -1))).Error)
	streak, err = svc.CheckAndUpdateStreak(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 4, streak.CurrentStreakDays)

	total, err = progression.LedgerTotal(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 30, total)
}

func TestGetStreakZeroValuedForUnknownUser(t *testing.T) {
	svc, _, _, _ := newStreakFixture(t)

	streak, err := svc.GetStreak("no-such-user")
	require.NoError(t, err)
	assert.Equal(t, 0, streak.CurrentStreakDays)
	assert.Nil(t, streak.LastActivityDate)
}
