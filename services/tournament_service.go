package services

import (
	"fmt"
	"log"
	"time"

	"theory-gamification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParticipationXP is the flat credit for entering a tournament.
const ParticipationXP = 25

// prizeSplits divides the prize pool across the podium on close-out.
var prizeSplits = []float64{0.5, 0.3, 0.2}

type TournamentService struct {
	DB          *gorm.DB
	Progression *ProgressionService
}

func NewTournamentService(db *gorm.DB, progression *ProgressionService) *TournamentService {
	return &TournamentService{DB: db, Progression: progression}
}

func (s *TournamentService) CreateTournament(t *models.Tournament) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = "active"
	}
	if !t.EndDate.After(t.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	return s.DB.Create(t).Error
}

// Join enrolls a user. All rejections happen before any mutation: an inactive
// tournament, a duplicate join, or insufficient XP leaves no partial debit.
// On success the entry fee is debited through the ledger, the participant row
// is created, and flat participation XP is credited.
func (s *TournamentService) Join(userID, tournamentID string) (bool, string, error) {
	var tournament models.Tournament
	if err := s.DB.Where("id = ?", tournamentID).First(&tournament).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, "tournament not found", nil
		}
		return false, "", err
	}
	if !tournament.IsRunning(time.Now()) {
		return false, "tournament is not active", nil
	}

	var existing int64
	if err := s.DB.Model(&models.TournamentParticipant{}).
		Where("user_id = ? AND tournament_id = ?", userID, tournamentID).
		Count(&existing).Error; err != nil {
		return false, "", err
	}
	if existing > 0 {
		return false, "already joined", nil
	}

	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, "user not found", nil
		}
		return false, "", err
	}
	if tournament.EntryFeeXP > 0 && user.TotalXP < tournament.EntryFeeXP {
		return false, fmt.Sprintf("insufficient XP: entry fee is %d, you have %d",
			tournament.EntryFeeXP, user.TotalXP), nil
	}

	participant := models.TournamentParticipant{
		ID:           uuid.NewString(),
		UserID:       userID,
		TournamentID: tournamentID,
		JoinedAt:     time.Now(),
	}
	// Unique (user, tournament) index settles concurrent joins; the loser
	// stops here with nothing debited.
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected == 0 {
		return false, "already joined", nil
	}

	if tournament.EntryFeeXP > 0 {
		if _, err := s.Progression.AwardXP(userID, -tournament.EntryFeeXP, models.XPTypeTournamentEntry,
			fmt.Sprintf("Entry fee: %s", tournament.Name), tournament.ID); err != nil {
			return false, "", err
		}
	}
	if _, err := s.Progression.AwardXP(userID, ParticipationXP, models.XPTypeTournamentParticipation,
		fmt.Sprintf("Joined tournament: %s", tournament.Name), tournament.ID); err != nil {
		return false, "", err
	}

	log.Printf("tournament join: user=%s tournament=%s fee=%d", userID, tournamentID, tournament.EntryFeeXP)
	return true, "joined", nil
}

// UpdateScore applies a completion result to the user's tournament score using
// the type-specific formula, then recomputes all ranks.
//
//	accuracy: last quiz score wins (0-100, not cumulative)
//	speed:    10000 / time_spent_seconds, last wins
//	marathon: cumulative 10 + 2*correct
//	default:  cumulative score*0.5 + 5*correct
func (s *TournamentService) UpdateScore(userID, tournamentID string, ev *models.CompletionEvent) (int64, error) {
	var tournament models.Tournament
	if err := s.DB.Where("id = ?", tournamentID).First(&tournament).Error; err != nil {
		return 0, err
	}
	if !tournament.IsRunning(time.Now()) {
		return 0, fmt.Errorf("tournament %s is not active", tournamentID)
	}

	var participant models.TournamentParticipant
	if err := s.DB.Where("user_id = ? AND tournament_id = ?", userID, tournamentID).
		First(&participant).Error; err != nil {
		return 0, fmt.Errorf("user %s is not enrolled in tournament %s: %w", userID, tournamentID, err)
	}

	switch tournament.TournamentType {
	case models.TournamentAccuracy:
		participant.Score = int64(ev.Score)
	case models.TournamentSpeed:
		if ev.TimeSpentSeconds > 0 {
			participant.Score = 10000 / ev.TimeSpentSeconds
		} else {
			participant.Score = 0
		}
	case models.TournamentMarathon:
		participant.Score += 10 + ev.CorrectAnswers*2
	default:
		participant.Score += int64(ev.Score*0.5) + ev.CorrectAnswers*5
	}

	if err := s.DB.Save(&participant).Error; err != nil {
		return 0, err
	}
	if err := s.recomputeRanks(tournamentID); err != nil {
		return 0, err
	}
	return participant.Score, nil
}

// recomputeRanks resorts every participant by score descending and reassigns
// positions. Ties keep join order (earlier joiner ranks ahead) — a default
// policy, adjustable without touching the scoring formulas. Rank recomputation
// is read-mostly and outside the per-user atomic unit.
func (s *TournamentService) recomputeRanks(tournamentID string) error {
	var participants []models.TournamentParticipant
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("score DESC, joined_at ASC").
		Find(&participants).Error; err != nil {
		return err
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range participants {
			rank := i + 1
			if participants[i].Rank == rank {
				continue
			}
			if err := tx.Model(&models.TournamentParticipant{}).
				Where("id = ?", participants[i].ID).
				Update("rank", rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ActiveTournamentsFor returns running tournaments the user is enrolled in,
// optionally narrowed by category.
func (s *TournamentService) ActiveTournamentsFor(userID, category string, now time.Time) ([]models.Tournament, error) {
	query := s.DB.
		Joins("JOIN tournament_participants ON tournament_participants.tournament_id = tournaments.id").
		Where("tournament_participants.user_id = ?", userID).
		Where("tournaments.status = ? AND tournaments.start_date <= ? AND tournaments.end_date > ?",
			"active", now, now)
	if category != "" {
		query = query.Where("tournaments.category = ? OR tournaments.category = ''", category)
	}
	var tournaments []models.Tournament
	err := query.Find(&tournaments).Error
	return tournaments, err
}

// CloseExpired completes tournaments past their end date and pays the prize
// pool 50/30/20 to the podium through the ledger. Run by the scheduler.
func (s *TournamentService) CloseExpired(now time.Time) (int, error) {
	var expired []models.Tournament
	if err := s.DB.Where("status = ? AND end_date <= ?", "active", now).Find(&expired).Error; err != nil {
		return 0, err
	}

	closed := 0
	for i := range expired {
		t := expired[i]
		if err := s.recomputeRanks(t.ID); err != nil {
			log.Printf("tournament close: rank recompute failed for %s: %v", t.ID, err)
			continue
		}

		var podium []models.TournamentParticipant
		if err := s.DB.Where("tournament_id = ?", t.ID).
			Order("rank ASC").Limit(len(prizeSplits)).
			Find(&podium).Error; err != nil {
			log.Printf("tournament close: podium fetch failed for %s: %v", t.ID, err)
			continue
		}

		for pos, p := range podium {
			prize := int64(float64(t.PrizePoolXP) * prizeSplits[pos])
			if prize <= 0 {
				continue
			}
			if _, err := s.Progression.AwardXP(p.UserID, prize, models.XPTypeTournamentParticipation,
				fmt.Sprintf("Tournament prize (rank %d): %s", pos+1, t.Name), t.ID); err != nil {
				log.Printf("tournament close: prize payout failed user=%s tournament=%s: %v", p.UserID, t.ID, err)
			}
		}

		if err := s.DB.Model(&models.Tournament{}).
			Where("id = ?", t.ID).
			Update("status", "completed").Error; err != nil {
			log.Printf("tournament close: status update failed for %s: %v", t.ID, err)
			continue
		}
		closed++
		log.Printf("tournament completed: %s (%s)", t.Name, t.ID)
	}
	return closed, nil
}

// ListTournaments returns tournaments with participant counts, newest first.
func (s *TournamentService) ListTournaments(status string) ([]models.Tournament, error) {
	query := s.DB.Order("start_date DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var tournaments []models.Tournament
	if err := query.Find(&tournaments).Error; err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.DB.Model(&models.TournamentParticipant{}).
			Where("tournament_id = ?", tournaments[i].ID).
			Count(&tournaments[i].ParticipantCount)
	}
	return tournaments, nil
}

// GetStandings returns a tournament's participants in rank order.
func (s *TournamentService) GetStandings(tournamentID string) ([]models.TournamentParticipant, error) {
	var participants []models.TournamentParticipant
	err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("rank ASC, joined_at ASC").
		Find(&participants).Error
	return participants, err
}
