package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"theory-gamification-system/handlers"
	"theory-gamification-system/middleware"
	"theory-gamification-system/models"
	"theory-gamification-system/services"
	"theory-gamification-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB — this service only takes JSON
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
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
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Optional Redis cache for leaderboard reads. The service runs fine
	// without it; reads just always hit Postgres.
	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable (%v), continuing without cache", err)
			rdb = nil
		}
	} else {
		log.Println("⚠️  REDIS_ADDR not set, leaderboard cache disabled")
	}

	serviceToken := os.Getenv("GAMIFICATION_SERVICE_TOKEN")

	var notifier services.Notifier
	if notifyURL := os.Getenv("NOTIFICATION_SERVICE_URL"); notifyURL != "" {
		notifier = services.NewNotificationClient(notifyURL, serviceToken)
	} else {
		log.Println("⚠️  NOTIFICATION_SERVICE_URL not set, notifications disabled")
		notifier = services.NoopNotifier{}
	}

	var skills services.SkillSignalProvider
	if skillURL := os.Getenv("SKILL_SERVICE_URL"); skillURL != "" {
		skills = services.NewSkillServiceClient(skillURL, serviceToken)
	} else {
		log.Println("⚠️  SKILL_SERVICE_URL not set, daily challenges fall back to experience tiers")
	}

	progressionService := services.NewProgressionService(db)
	achievementService := services.NewAchievementService(db, progressionService, notifier)
	challengeService := services.NewChallengeService(db, progressionService, skills)
	streakService := services.NewStreakService(db, progressionService, notifier)
	tournamentService := services.NewTournamentService(db, progressionService)
	leaderboardService := services.NewLeaderboardService(db, rdb)
	engine := services.NewGamificationEngine(db, progressionService, achievementService,
		challengeService, streakService, tournamentService)

	if err := achievementService.SeedDefaults(); err != nil {
		log.Fatal("failed to seed achievements:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditor := workers.NewLedgerAuditor(db, progressionService)
	go auditor.Poll(ctx, 10*time.Minute)

	sched, err := services.StartSchedulers(challengeService, leaderboardService, tournamentService)
	if err != nil {
		log.Fatal("failed to start schedulers:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupGamificationRoutes(app, engine, progressionService, achievementService,
		challengeService, streakService)
	handlers.SetupTournamentRoutes(app, tournamentService, progressionService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService, progressionService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Ledger audit worker running (every 10m)")
	log.Println("✅ Schedulers running (daily challenges, leaderboards, tournament closing)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
