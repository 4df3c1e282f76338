// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSchedulers wires the background jobs: nightly challenge generation,
// periodic leaderboard refresh, and tournament close-out. Everything here is
// eventually consistent and safe to re-run.
func StartSchedulers(challenges *ChallengeService, leaderboards *LeaderboardService, tournaments *TournamentService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	// Shortly past midnight UTC: generate every user's challenge for the new
	// day. Generation is idempotent, a repeated run is a no-op.
	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(func() {
			generated, errs := challenges.GenerateDailyChallengesForAllUsers(time.Now())
			log.Printf("[scheduler] challenge generation: generated=%d errors=%d", generated, errs)
		}),
	)
	if err != nil {
		return nil, err
	}

	// Leaderboards are a recomputable view; refresh every 5 minutes.
	_, err = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := leaderboards.RefreshLeaderboards(time.Now()); err != nil {
				log.Printf("[scheduler] leaderboard refresh failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	// Close tournaments past their end date and pay the podium.
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			closed, err := tournaments.CloseExpired(time.Now())
			if err != nil {
				log.Printf("[scheduler] tournament close-out failed: %v", err)
				return
			}
			if closed > 0 {
				log.Printf("[scheduler] closed %d tournament(s)", closed)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
