package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/csmht/signlab-api/internal/attendqr"
	"github.com/csmht/signlab-api/internal/config"
	"github.com/csmht/signlab-api/internal/database"
	"github.com/csmht/signlab-api/internal/handler"
	"github.com/csmht/signlab-api/internal/middleware"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/quiztoken"
	"github.com/csmht/signlab-api/internal/repository"
	"github.com/csmht/signlab-api/internal/router"
	"github.com/csmht/signlab-api/internal/service"
	"github.com/csmht/signlab-api/pkg/blockcipher"
	cloud "github.com/csmht/signlab-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Class{},
		&models.Experiment{},
		&models.ExperimentStep{},
		&models.Question{},
		&models.ClassSession{},
		&models.SessionClass{},
		&models.StepProgress{},
		&models.AttendanceRecord{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	cipher, err := blockcipher.New([]byte(cfg.TokenSecret))
	if err != nil {
		log.Fatalf("failed to initialise token cipher: %v", err)
	}
	tokenProtocol := quiztoken.New(cipher, cfg.QuizBuffer)
	qrCodec := attendqr.NewCodec(cipher)

	validate := validator.New(validator.WithRequiredStructEnabled())

	experimentRepo := repository.NewExperimentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)

	accessService := service.NewStepAccessService(sessionRepo, experimentRepo, progressRepo, redisClient, cfg.WindowCacheTTL, logger)
	experimentService := service.NewExperimentService(experimentRepo, validate, logger)
	sessionService := service.NewSessionService(sessionRepo, experimentRepo, validate, logger)
	progressService := service.NewProgressService(accessService, sessionRepo, experimentRepo, progressRepo, logger)
	quizService := service.NewQuizService(accessService, sessionRepo, experimentRepo, progressRepo, tokenProtocol, cfg.DefaultQuizLimit, validate, logger)
	reportService := service.NewReportService(accessService, sessionRepo, experimentRepo, progressRepo, uploader, logger)
	attendanceService := service.NewAttendanceService(
		sessionRepo, userRepo, attendanceRepo, qrCodec,
		cfg.QRValidity, cfg.QRRotate,
		redisClient, "signlab", natsConn,
		validate, logger,
	)

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	attendanceService.Start(runCtx)

	experimentHandler := handler.NewExperimentHandler(experimentService, logger)
	sessionHandler := handler.NewSessionHandler(sessionService, accessService, logger)
	stepAccessHandler := handler.NewStepAccessHandler(accessService, logger)
	progressHandler := handler.NewProgressHandler(progressService, logger)
	quizHandler := handler.NewQuizHandler(quizService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExperimentHandler: experimentHandler,
		SessionHandler:    sessionHandler,
		StepAccessHandler: stepAccessHandler,
		ProgressHandler:   progressHandler,
		QuizHandler:       quizHandler,
		ReportHandler:     reportHandler,
		AttendanceHandler: attendanceHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
