package services

import (
	"log"
	"sync"
	"time"

	"theory-gamification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GamificationEngine runs the full reaction chain for a completion event:
// stats -> XP ledger -> achievements -> daily challenge progress -> streak ->
// tournament scores. The chain must behave as one read-modify-write unit per
// user: two concurrent completions from the same user (two browser tabs) must
// not lose an award or double-count a level-up. A keyed per-user mutex
// serializes the chain; the append-only ledger itself needs no guard, only the
// derived caches do. Tournament ranks and leaderboards stay outside the unit.
type GamificationEngine struct {
	DB           *gorm.DB
	Progression  *ProgressionService
	Achievements *AchievementService
	Challenges   *ChallengeService
	Streaks      *StreakService
	Tournaments  *TournamentService

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewGamificationEngine(db *gorm.DB, progression *ProgressionService, achievements *AchievementService,
	challenges *ChallengeService, streaks *StreakService, tournaments *TournamentService) *GamificationEngine {
	return &GamificationEngine{
		DB:           db,
		Progression:  progression,
		Achievements: achievements,
		Challenges:   challenges,
		Streaks:      streaks,
		Tournaments:  tournaments,
		userLocks:    make(map[string]*sync.Mutex),
	}
}

func (e *GamificationEngine) lockFor(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[userID] = l
	}
	return l
}

// CompletionResult summarizes everything a completion event triggered.
type CompletionResult struct {
	XPAwarded           int64                   `json:"xp_awarded"`
	LevelsCrossed       []int                   `json:"levels_crossed,omitempty"`
	NewAchievements     []models.Achievement    `json:"new_achievements,omitempty"`
	CompletedChallenges []models.DailyChallenge `json:"completed_challenges,omitempty"`
	Streak              *models.StreakState     `json:"streak,omitempty"`
}

// RecordQuizCompletion processes one quiz result end to end.
func (e *GamificationEngine) RecordQuizCompletion(ev *models.CompletionEvent) (*CompletionResult, error) {
	lock := e.lockFor(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.recordQuizStats(ev); err != nil {
		return nil, err
	}

	xp := quizXP(ev)
	crossed, err := e.Progression.AwardXP(ev.UserID, xp, models.XPTypeQuiz, "Quiz completed", "")
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{XPAwarded: xp, LevelsCrossed: crossed}

	newAchievements, err := e.Achievements.CheckAchievements(ev.UserID, &AchievementContext{
		Score:    ev.Score,
		Category: ev.Category,
	})
	if err != nil {
		log.Printf("achievement check failed for user %s: %v", ev.UserID, err)
	}
	result.NewAchievements = newAchievements

	result.CompletedChallenges = e.advanceChallenges(ev)

	streak, err := e.Streaks.CheckAndUpdateStreak(ev.UserID, time.Now())
	if err != nil {
		log.Printf("streak update failed for user %s: %v", ev.UserID, err)
	}
	result.Streak = streak

	e.updateTournamentScores(ev)
	return result, nil
}

// RecordGameCompletion processes a practice-game session. Games pay less XP
// than quizzes and do not advance quiz-type challenges.
func (e *GamificationEngine) RecordGameCompletion(ev *models.CompletionEvent) (*CompletionResult, error) {
	lock := e.lockFor(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.bumpStats(ev.UserID, map[string]int64{"games_played": 1}); err != nil {
		return nil, err
	}

	xp := gameXP(ev)
	crossed, err := e.Progression.AwardXP(ev.UserID, xp, models.XPTypeGame, "Game session completed", "")
	if err != nil {
		return nil, err
	}
	result := &CompletionResult{XPAwarded: xp, LevelsCrossed: crossed}

	newAchievements, err := e.Achievements.CheckAchievements(ev.UserID, nil)
	if err != nil {
		log.Printf("achievement check failed for user %s: %v", ev.UserID, err)
	}
	result.NewAchievements = newAchievements

	streak, err := e.Streaks.CheckAndUpdateStreak(ev.UserID, time.Now())
	if err != nil {
		log.Printf("streak update failed for user %s: %v", ev.UserID, err)
	}
	result.Streak = streak

	e.updateTournamentScores(ev)
	return result, nil
}

// RecordVideoWatched counts a finished theory video towards achievements.
func (e *GamificationEngine) RecordVideoWatched(userID string) error {
	lock := e.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.bumpStats(userID, map[string]int64{"videos_watched": 1}); err != nil {
		return err
	}
	if _, err := e.Achievements.CheckAchievements(userID, nil); err != nil {
		log.Printf("achievement check failed for user %s: %v", userID, err)
	}
	return nil
}

// quizXP prices a quiz session: flat base plus per-correct-answer pay, with a
// perfect-score bonus. Accuracy is priced implicitly through correct answers.
func quizXP(ev *models.CompletionEvent) int64 {
	xp := int64(10) + ev.CorrectAnswers*2
	if ev.Score >= 100 {
		xp += 15
	}
	if ev.IsExam && ev.ExamPassed {
		xp += 50
	}
	return xp
}

func gameXP(ev *models.CompletionEvent) int64 {
	return 5 + ev.CorrectAnswers
}

func (e *GamificationEngine) recordQuizStats(ev *models.CompletionEvent) error {
	return e.DB.Transaction(func(tx *gorm.DB) error {
		var stats models.UserStats
		err := tx.Where("user_id = ?", ev.UserID).First(&stats).Error
		if err == gorm.ErrRecordNotFound {
			stats = models.UserStats{ID: uuid.NewString(), UserID: ev.UserID}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		stats.TotalQuizzes++
		stats.TotalQuestionsAnswered += ev.TotalQuestions
		stats.TotalCorrectAnswers += ev.CorrectAnswers
		if ev.Score >= 100 {
			stats.PerfectScores++
		}
		if ev.IsExam && ev.ExamPassed {
			stats.ExamsPassed++
		}
		if err := tx.Save(&stats).Error; err != nil {
			return err
		}

		if ev.Category == "" {
			return nil
		}
		var cat models.CategoryStat
		err = tx.Where("user_id = ? AND category = ?", ev.UserID, ev.Category).First(&cat).Error
		if err == gorm.ErrRecordNotFound {
			cat = models.CategoryStat{ID: uuid.NewString(), UserID: ev.UserID, Category: ev.Category}
			if err := tx.Create(&cat).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		cat.Sessions++
		cat.ScoreSum += ev.Score
		return tx.Save(&cat).Error
	})
}

func (e *GamificationEngine) bumpStats(userID string, deltas map[string]int64) error {
	return e.DB.Transaction(func(tx *gorm.DB) error {
		var stats models.UserStats
		err := tx.Where("user_id = ?", userID).First(&stats).Error
		if err == gorm.ErrRecordNotFound {
			stats = models.UserStats{ID: uuid.NewString(), UserID: userID}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		for field, delta := range deltas {
			switch field {
			case "games_played":
				stats.GamesPlayed += delta
			case "videos_watched":
				stats.VideosWatched += delta
			}
		}
		return tx.Save(&stats).Error
	})
}

// advanceChallenges maps one quiz result onto every challenge shape it can
// move: completion counts accumulate, accuracy and perfect-score results are
// high-water or unit increments, timed sessions feed speed runs.
func (e *GamificationEngine) advanceChallenges(ev *models.CompletionEvent) []models.DailyChallenge {
	var completed []models.DailyChallenge

	collect := func(done []models.DailyChallenge, err error) {
		if err != nil {
			log.Printf("challenge progress failed for user %s: %v", ev.UserID, err)
			return
		}
		completed = append(completed, done...)
	}

	collect(e.Challenges.UpdateDailyChallengeProgress(ev.UserID, models.ChallengeQuiz, 1, ""))
	if ev.Category != "" {
		collect(e.Challenges.UpdateDailyChallengeProgress(ev.UserID, models.ChallengeCategoryFocus, ev.TotalQuestions, ev.Category))
	}
	collect(e.Challenges.UpdateDailyChallengeBest(ev.UserID, models.ChallengeAccuracy, int64(ev.Score)))
	if ev.Score >= 100 {
		collect(e.Challenges.UpdateDailyChallengeProgress(ev.UserID, models.ChallengePerfectScore, 1, ""))
	}
	// Timed mode: a session fast enough to average under 15s per question.
	if ev.TimeSpentSeconds > 0 && ev.TotalQuestions > 0 && ev.TimeSpentSeconds <= ev.TotalQuestions*15 {
		collect(e.Challenges.UpdateDailyChallengeProgress(ev.UserID, models.ChallengeSpeedRun, ev.TotalQuestions, ""))
	}
	return completed
}

func (e *GamificationEngine) updateTournamentScores(ev *models.CompletionEvent) {
	tournaments, err := e.Tournaments.ActiveTournamentsFor(ev.UserID, ev.Category, time.Now())
	if err != nil {
		log.Printf("tournament lookup failed for user %s: %v", ev.UserID, err)
		return
	}
	for i := range tournaments {
		if _, err := e.Tournaments.UpdateScore(ev.UserID, tournaments[i].ID, ev); err != nil {
			log.Printf("tournament score update failed user=%s tournament=%s: %v",
				ev.UserID, tournaments[i].ID, err)
		}
	}
}
