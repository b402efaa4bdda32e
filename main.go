package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tarot-miniapp-backend/handlers"
	"tarot-miniapp-backend/middleware"
	"tarot-miniapp-backend/models"
	"tarot-miniapp-backend/services"
	"tarot-miniapp-backend/utils"
	"tarot-miniapp-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, enough for artwork uploads
	})

	// Load allowed origins from environment variable
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Telegram-Init-Data",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Gift{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Card{},
		&models.UserCard{},
		&models.Reading{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := models.SeedAchievements(db); err != nil {
		log.Fatal("failed to seed achievements:", err)
	}
	if err := models.SeedCards(db); err != nil {
		log.Fatal("failed to seed cards:", err)
	}

	// Artwork storage is optional; without R2 credentials the admin upload
	// route returns an error but everything else works.
	if os.Getenv("CLOUDFLARE_ACCOUNT_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  CLOUDFLARE_ACCOUNT_ID not set, card artwork uploads disabled")
	}

	authCfg := middleware.AuthConfig{BotToken: botToken}
	if hours, err := strconv.Atoi(os.Getenv("INITDATA_MAX_AGE_HOURS")); err == nil && hours > 0 {
		authCfg.MaxInitDataAge = time.Duration(hours) * time.Hour
	}

	giftService := services.NewGiftService(db)
	streakService := services.NewStreakService(db, giftService)
	achievementService := services.NewAchievementService(db)
	referralService := services.NewReferralService(db, giftService)
	authService := services.NewAuthService(db, giftService, referralService)
	readingService := services.NewReadingService(db, giftService, achievementService, streakService)

	handlers.SetupAuthRoutes(app, authCfg, authService)
	handlers.SetupProgressionRoutes(app, authCfg, db, streakService, achievementService, readingService, giftService)
	handlers.SetupReferralRoutes(app, authCfg, db, referralService)
	handlers.SetupAdminRoutes(app, authCfg, db, giftService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reminderHour := 18
	if h, err := strconv.Atoi(os.Getenv("REMINDER_HOUR")); err == nil {
		reminderHour = h
	}
	reminderWorker := workers.NewStreakReminderWorker(db, workers.NewTelegramClient(botToken), reminderHour)
	go reminderWorker.Start(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Streak reminder worker running")
	if utils.ArtworkEnabled() {
		log.Println("✅ Card artwork uploads enabled (R2)")
	}
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
