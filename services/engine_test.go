package services

import (
	"testing"

	"theory-gamification-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngineFixture(t *testing.T) (*GamificationEngine, *models.User) {
	db := setupTestDB(t)
	progression := NewProgressionService(db)
	notifier := &recordingNotifier{}
	achievements := NewAchievementService(db, progression, notifier)
	require.NoError(t, achievements.SeedDefaults())
	challenges := NewChallengeService(db, progression, nil)
	streaks := NewStreakService(db, progression, notifier)
	tournaments := NewTournamentService(db, progression)
	engine := NewGamificationEngine(db, progression, achievements, challenges, streaks, tournaments)
	user := makeUser(t, db)
	return engine, user
}

func TestRecordQuizCompletionEndToEnd(t *testing.T) {
	engine, user := newEngineFixture(t)

	result, err := engine.RecordQuizCompletion(&models.CompletionEvent{
		UserID:         user.ID,
		CorrectAnswers: 10,
		TotalQuestions: 10,
		Score:          100,
		Category:       "road-signs",
	})
	require.NoError(t, err)

	// 10 base + 2 per correct + perfect-score bonus.
	assert.EqualValues(t, 10+2*10+15, result.XPAwarded)

	codes := make([]string, 0, len(result.NewAchievements))
	for _, a := range result.NewAchievements {
		codes = append(codes, a.Code)
	}
	assert.Contains(t, codes, "first-quiz")
	assert.Contains(t, codes, "flawless")

	require.NotNil(t, result.Streak)
	assert.Equal(t, 1, result.Streak.CurrentStreakDays)

	var stats models.UserStats
	require.NoError(t, engine.DB.Where("user_id = ?", user.ID).First(&stats).Error)
	assert.EqualValues(t, 1, stats.TotalQuizzes)
	assert.EqualValues(t, 1, stats.PerfectScores)
	assert.EqualValues(t, 10, stats.TotalQuestionsAnswered)

	var cat models.CategoryStat
	require.NoError(t, engine.DB.Where("user_id = ? AND category = ?", user.ID, "road-signs").
		First(&cat).Error)
	assert.EqualValues(t, 1, cat.Sessions)
	assert.InDelta(t, 100.0, cat.AverageScore(), 0.001)

	// Cached total, derived level and ledger all agree after the full pipeline.
	ledger, err := engine.Progression.LedgerTotal(user.ID)
	require.NoError(t, err)
	var fresh models.User
	require.NoError(t, engine.DB.Where("id = ?", user.ID).First(&fresh).Error)
	assert.Equal(t, fresh.TotalXP, ledger)

	level, err := engine.Progression.GetUserLevel(user.ID)
	require.NoError(t, err)
	assert.Equal(t, LevelFromXP(fresh.TotalXP), level.CurrentLevel)
}

func TestExamPassFeedsExamAchievements(t *testing.T) {
	engine, user := newEngineFixture(t)

	result, err := engine.RecordQuizCompletion(&models.CompletionEvent{
		UserID:         user.ID,
		CorrectAnswers: 45,
		TotalQuestions: 50,
		Score:          90,
		IsExam:         true,
		ExamPassed:     true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 10+2*45+50, result.XPAwarded)

	codes := make([]string, 0, len(result.NewAchievements))
	for _, a := range result.NewAchievements {
		codes = append(codes, a.Code)
	}
	assert.Contains(t, codes, "exam-ready")

	var stats models.UserStats
	require.NoError(t, engine.DB.Where("user_id = ?", user.ID).First(&stats).Error)
	assert.EqualValues(t, 1, stats.ExamsPassed)
}

func TestQuizAdvancesTodaysChallenges(t *testing.T) {
	engine, user := newEngineFixture(t)
	challenge := insertChallenge(t, engine.Challenges, user.ID, models.ChallengeQuiz, 1, 40, 0)

	result, err := engine.RecordQuizCompletion(&models.CompletionEvent{
		UserID:         user.ID,
		CorrectAnswers: 5,
		TotalQuestions: 10,
		Score:          50,
	})
	require.NoError(t, err)

	require.Len(t, result.CompletedChallenges, 1)
	assert.Equal(t, challenge.ID, result.CompletedChallenges[0].ID)

	var progress models.UserDailyChallenge
	require.NoError(t, engine.DB.Where("user_id = ? AND challenge_id = ?", user.ID, challenge.ID).
		First(&progress).Error)
	assert.True(t, progress.Completed)
	assert.EqualValues(t, 40, progress.XPEarned)
}

func TestRecordGameCompletion(t *testing.T) {
	engine, user := newEngineFixture(t)

	result, err := engine.RecordGameCompletion(&models.CompletionEvent{
		UserID:         user.ID,
		CorrectAnswers: 7,
		Score:          70,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5+7, result.XPAwarded)

	var stats models.UserStats
	require.NoError(t, engine.DB.Where("user_id = ?", user.ID).First(&stats).Error)
	assert.EqualValues(t, 1, stats.GamesPlayed)
	assert.EqualValues(t, 0, stats.TotalQuizzes)
}

func TestRecordVideoWatched(t *testing.T) {
	engine, user := newEngineFixture(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.RecordVideoWatched(user.ID))
	}

	var stats models.UserStats
	require.NoError(t, engine.DB.Where("user_id = ?", user.ID).First(&stats).Error)
	assert.EqualValues(t, 3, stats.VideosWatched)
}

func TestQuizScoresActiveTournament(t *testing.T) {
	engine, user := newEngineFixture(t)
	tournament := makeTournament(t, engine.Tournaments, models.TournamentAccuracy, 0, 0)

	joined, _, err := engine.Tournaments.Join(user.ID, tournament.ID)
	require.NoError(t, err)
	require.True(t, joined)

	_, err = engine.RecordQuizCompletion(&models.CompletionEvent{
		UserID:         user.ID,
		CorrectAnswers: 8,
		TotalQuestions: 10,
		Score:          80,
	})
	require.NoError(t, err)

	standings, err := engine.Tournaments.GetStandings(tournament.ID)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.EqualValues(t, 80, standings[0].Score)
	assert.Equal(t, 1, standings[0].Rank)
}
