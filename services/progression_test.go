package services

import (
	"math"
	"sync"
	"testing"

	"theory-gamification-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPForLevelCurve(t *testing.T) {
	assert.EqualValues(t, 0, XPForLevel(1))
	assert.EqualValues(t, 100, XPForLevel(2))
	assert.EqualValues(t, 150, XPForLevel(3))
	assert.EqualValues(t, 225, XPForLevel(4))
	assert.EqualValues(t, 337, XPForLevel(5))

	assert.EqualValues(t, 0, TotalXPForLevel(1))
	assert.EqualValues(t, 100, TotalXPForLevel(2))
	assert.EqualValues(t, 250, TotalXPForLevel(3))
}

func TestLevelFromXPMonotonicBoundaries(t *testing.T) {
	// Sitting exactly on a cumulative threshold is that level; one XP below is
	// the level before. Thresholds clamped at MaxInt64 all read as the cap.
	for n := 2; n <= MaxLevel; n++ {
		total := TotalXPForLevel(n)
		if total == math.MaxInt64 {
			assert.Equal(t, MaxLevel, LevelFromXP(total), "level %d saturated boundary", n)
			continue
		}
		assert.Equal(t, n, LevelFromXP(total), "level %d boundary", n)
		assert.Equal(t, n-1, LevelFromXP(total-1), "level %d boundary minus one", n)
	}

	assert.Equal(t, 1, LevelFromXP(0))
	assert.Equal(t, 1, LevelFromXP(99))

	// Monotonic over a coarse sweep.
	prev := 0
	for xp := int64(0); xp < 10000; xp += 37 {
		level := LevelFromXP(xp)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}

	// Never exceeds the cap no matter how large the total.
	assert.Equal(t, MaxLevel, LevelFromXP(1<<62))
}

func TestCurveSaturatesNearCapInsteadOfWrapping(t *testing.T) {
	// floor(100 * 1.5^97) does not fit in int64; spans and cumulative
	// thresholds near the cap must clamp, never wrap negative.
	assert.Greater(t, XPForLevel(98), int64(0))
	assert.EqualValues(t, math.MaxInt64, XPForLevel(99))
	assert.EqualValues(t, math.MaxInt64, XPForLevel(MaxLevel))

	prev := int64(0)
	for n := 2; n <= MaxLevel; n++ {
		total := TotalXPForLevel(n)
		assert.GreaterOrEqual(t, total, prev, "threshold %d", n)
		prev = total
	}
	assert.EqualValues(t, math.MaxInt64, TotalXPForLevel(MaxLevel))

	assert.Equal(t, MaxLevel, LevelFromXP(math.MaxInt64))
	assert.Equal(t, MaxLevel, LevelFromXP(TotalXPForLevel(MaxLevel)))
}

func TestAwardXPUpdatesLevelCache(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	user := makeUser(t, db)

	crossed, err := svc.AwardXP(user.ID, 150, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, crossed)

	level, err := svc.GetUserLevel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, level.CurrentLevel)
	assert.EqualValues(t, 50, level.CurrentXP)
	assert.EqualValues(t, 150, level.NextLevelXP)
	assert.NotNil(t, level.LastLevelUp)
}

func TestAwardXPCrossesMultipleLevels(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	user := makeUser(t, db)

	crossed, err := svc.AwardXP(user.ID, TotalXPForLevel(4), models.XPTypeQuiz, "big award", "")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, crossed)

	level, err := svc.GetUserLevel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, level.CurrentLevel)
	assert.EqualValues(t, 0, level.CurrentXP)
}

func TestLedgerMatchesCachedTotal(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	user := makeUser(t, db)

	amounts := []int64{40, 120, 5, 333}
	for _, a := range amounts {
		_, err := svc.AwardXP(user.ID, a, models.XPTypeQuiz, "Quiz completed", "")
		require.NoError(t, err)
	}

	ledger, err := svc.LedgerTotal(user.ID)
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.Where("id = ?", user.ID).First(&fresh).Error)
	assert.Equal(t, fresh.TotalXP, ledger)
	assert.EqualValues(t, 498, ledger)
}

func TestNegativeAwardDerivesLevelDownward(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	user := makeUser(t, db)

	_, err := svc.AwardXP(user.ID, 150, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)

	crossed, err := svc.AwardXP(user.ID, -100, models.XPTypePowerUpPurchase, "Power-up purchased", "")
	require.NoError(t, err)
	assert.Empty(t, crossed)

	level, err := svc.GetUserLevel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, level.CurrentLevel)
	assert.EqualValues(t, 50, level.CurrentXP)

	// The spend is a normal ledger entry, never a deletion.
	var count int64
	require.NoError(t, db.Model(&models.XPTransaction{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestConcurrentAwardsKeepLedgerAndTotalAligned(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	user := makeUser(t, db)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AwardXP(user.ID, 10, models.XPTypeQuiz, "Quiz completed", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var fresh models.User
	require.NoError(t, db.Where("id = ?", user.ID).First(&fresh).Error)
	assert.EqualValues(t, workers*10, fresh.TotalXP)

	ledger, err := svc.LedgerTotal(user.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.TotalXP, ledger)
}

func TestSyncUserLevelIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	user := makeUser(t, db)

	_, err := svc.AwardXP(user.ID, 500, models.XPTypeQuiz, "Quiz completed", "")
	require.NoError(t, err)

	first, err := svc.SyncUserLevel(user.ID)
	require.NoError(t, err)
	second, err := svc.SyncUserLevel(user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.CurrentLevel, second.CurrentLevel)
	assert.Equal(t, first.CurrentXP, second.CurrentXP)
	assert.Equal(t, first.NextLevelXP, second.NextLevelXP)
	assert.Equal(t, first.TotalXP, second.TotalXP)
}

func TestEnsureUserIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)

	first, err := svc.EnsureUser("ext-123", "anna")
	require.NoError(t, err)
	second, err := svc.EnsureUser("ext-123", "someone-else")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "anna", second.Username)

	var levels int64
	require.NoError(t, db.Model(&models.UserLevel{}).Where("user_id = ?", first.ID).Count(&levels).Error)
	assert.EqualValues(t, 1, levels)
}
