package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"theory-gamification-system/models"
	"theory-gamification-system/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const leaderboardCacheTTL = 60 * time.Second

type LeaderboardService struct {
	DB    *gorm.DB
	Redis *redis.Client // optional top-N cache; nil disables caching
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Redis: rdb}
}

// periodWindow returns [start, end) for a leaderboard type at the given time.
func periodWindow(lt models.LeaderboardType, now time.Time) (time.Time, time.Time) {
	switch lt {
	case models.LeaderboardDaily:
		start := utils.DayOf(now)
		return start, start.AddDate(0, 0, 1)
	case models.LeaderboardWeekly:
		start := utils.StartOfWeek(now)
		return start, start.AddDate(0, 0, 7)
	case models.LeaderboardMonthly:
		start := utils.StartOfMonth(now)
		return start, start.AddDate(0, 1, 0)
	default: // all_time
		return time.Unix(0, 0).UTC(), utils.DayOf(now).AddDate(100, 0, 0)
	}
}

// RefreshLeaderboards recomputes every (type, category) board for the current
// periods. Entries are regenerated wholesale: the table is a view, not a
// ledger, so a full recompute is always safe. Eventually consistent by design
// and outside the per-user atomic unit.
func (s *LeaderboardService) RefreshLeaderboards(now time.Time) error {
	var users []models.User
	if err := s.DB.Find(&users).Error; err != nil {
		return err
	}

	for _, lt := range models.AllLeaderboardTypes {
		start, end := periodWindow(lt, now)
		for _, cat := range models.AllLeaderboardCategories {
			if err := s.refreshBoard(users, lt, cat, start, end); err != nil {
				log.Printf("leaderboard refresh failed type=%s category=%s: %v", lt, cat, err)
			}
		}
	}
	return nil
}

func (s *LeaderboardService) refreshBoard(users []models.User, lt models.LeaderboardType, cat models.LeaderboardCategory, start, end time.Time) error {
	for _, u := range users {
		score, err := s.scoreFor(u.ID, cat, start, end)
		if err != nil {
			return err
		}
		entry := models.LeaderboardEntry{
			ID:              uuid.NewString(),
			UserID:          u.ID,
			LeaderboardType: lt,
			Category:        cat,
			PeriodStart:     start,
			PeriodEnd:       end,
			Score:           score,
		}
		if err := s.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "leaderboard_type"}, {Name: "category"}, {Name: "period_start"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"score", "period_end", "updated_at"}),
		}).Create(&entry).Error; err != nil {
			return err
		}
	}
	return s.rerank(lt, cat, start)
}

func (s *LeaderboardService) rerank(lt models.LeaderboardType, cat models.LeaderboardCategory, start time.Time) error {
	var entries []models.LeaderboardEntry
	if err := s.DB.
		Where("leaderboard_type = ? AND category = ? AND period_start = ?", lt, cat, start).
		Order("score DESC, user_id ASC").
		Find(&entries).Error; err != nil {
		return err
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			rank := i + 1
			if entries[i].Rank == rank {
				continue
			}
			if err := tx.Model(&models.LeaderboardEntry{}).
				Where("id = ?", entries[i].ID).
				Update("rank", rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// scoreFor computes one user's score for a category within [start, end).
// overall = quiz XP (accuracy-weighted volume, as priced by the ledger)
// + achievement points + current streak x 10.
func (s *LeaderboardService) scoreFor(userID string, cat models.LeaderboardCategory, start, end time.Time) (int64, error) {
	switch cat {
	case models.CategoryQuizScore:
		return s.ledgerSum(userID, start, end, models.XPTypeQuiz, models.XPTypeGame)
	case models.CategoryAchievements:
		var points int64
		err := s.DB.Model(&models.UserAchievement{}).
			Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
			Where("user_achievements.user_id = ? AND user_achievements.earned_at >= ? AND user_achievements.earned_at < ?",
				userID, start, end).
			Select("COALESCE(SUM(achievements.points), 0)").
			Scan(&points).Error
		return points, err
	case models.CategoryStreak:
		var streak models.StreakState
		err := s.DB.Where("user_id = ?", userID).First(&streak).Error
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return int64(streak.CurrentStreakDays), nil
	default: // overall
		quizXP, err := s.ledgerSum(userID, start, end, models.XPTypeQuiz, models.XPTypeGame)
		if err != nil {
			return 0, err
		}
		achievements, err := s.scoreFor(userID, models.CategoryAchievements, start, end)
		if err != nil {
			return 0, err
		}
		streak, err := s.scoreFor(userID, models.CategoryStreak, start, end)
		if err != nil {
			return 0, err
		}
		return quizXP + achievements + streak*10, nil
	}
}

func (s *LeaderboardService) ledgerSum(userID string, start, end time.Time, types ...models.XPTransactionType) (int64, error) {
	var total int64
	err := s.DB.Model(&models.XPTransaction{}).
		Where("user_id = ? AND transaction_type IN ? AND created_at >= ? AND created_at < ?",
			userID, types, start, end).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// GetLeaderboard returns the stored top-N page for the current period,
// served from redis when available.
func (s *LeaderboardService) GetLeaderboard(lt models.LeaderboardType, cat models.LeaderboardCategory, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 25
	}
	start, _ := periodWindow(lt, time.Now())
	cacheKey := fmt.Sprintf("leaderboard:%s:%s:%s:%d", lt, cat, start.Format("2006-01-02"), limit)

	if s.Redis != nil {
		if cached, err := s.Redis.Get(context.Background(), cacheKey).Result(); err == nil {
			var entries []models.LeaderboardEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	var entries []models.LeaderboardEntry
	if err := s.DB.
		Where("leaderboard_type = ? AND category = ? AND period_start = ?", lt, cat, start).
		Order("rank ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.Redis.Set(context.Background(), cacheKey, payload, leaderboardCacheTTL).Err(); err != nil {
				log.Printf("leaderboard cache write failed (ignored): %v", err)
			}
		}
	}
	return entries, nil
}

// GetUserRank returns the user's rank in the current period. Outside the
// stored top-N page the rank is derived by counting strictly greater scores,
// which stays consistent with the stored positional ranks.
func (s *LeaderboardService) GetUserRank(userID string, lt models.LeaderboardType, cat models.LeaderboardCategory) (rank int, score int64, err error) {
	start, _ := periodWindow(lt, time.Now())

	var entry models.LeaderboardEntry
	err = s.DB.
		Where("user_id = ? AND leaderboard_type = ? AND category = ? AND period_start = ?",
			userID, lt, cat, start).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	var greater int64
	if err := s.DB.Model(&models.LeaderboardEntry{}).
		Where("leaderboard_type = ? AND category = ? AND period_start = ? AND score > ?",
			lt, cat, start, entry.Score).
		Count(&greater).Error; err != nil {
		return 0, 0, err
	}
	return int(greater) + 1, entry.Score, nil
}
