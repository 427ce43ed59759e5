package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hybridx/training-app/internal/api"
	"hybridx/training-app/internal/config"
	"hybridx/training-app/internal/repository/mongo"
	"hybridx/training-app/internal/service"
	"hybridx/training-app/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.Info("Starting training app server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.WithError(err).Fatal("Could not load config")
	}

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logrus.WithError(err).Fatal("Could not connect to MongoDB")
	}
	defer func() {
		logrus.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logrus.WithError(err).Error("Failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logrus.Info("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB)
		mongo.EnsureProgramIndexes(ctx, appDB)
		mongo.EnsureSessionIndexes(ctx, appDB)
		mongo.EnsureMediaIndexes(ctx, appDB)
		logrus.Info("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize S3 storage")
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	programRepo := mongo.NewMongoProgramRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	mediaRepo := mongo.NewMongoMediaRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	userService := service.NewUserService(userRepo, mediaRepo, fileStorage)
	programService := service.NewProgramService(programRepo)
	sessionService := service.NewSessionService(sessionRepo, userRepo, programRepo)
	scheduleService := service.NewScheduleService(userRepo, programRepo, sessionRepo)
	subscriptionService := service.NewSubscriptionService(userRepo, cfg.Stripe)
	stravaService := service.NewStravaService(userRepo, cfg.Strava)
	coachService := service.NewCoachService(cfg.OpenAI, userRepo, sessionService, sessionRepo)
	notesDebouncer := service.NewNotesDebouncer(sessionService, service.DefaultNotesDebounce)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, api.Services{
		Auth:         authService,
		User:         userService,
		Program:      programService,
		Session:      sessionService,
		Schedule:     scheduleService,
		Subscription: subscriptionService,
		Strava:       stravaService,
		Coach:        coachService,
		Notes:        notesDebouncer,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logrus.WithField("address", cfg.Server.Address).Info("Server starting")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("ListenAndServe error")
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Pending notes would be lost with the process; write them out first.
	notesDebouncer.FlushAll(ctxShutdown)

	if err := server.Shutdown(ctxShutdown); err != nil {
		logrus.WithError(err).Fatal("Server forced to shutdown")
	}

	logrus.Info("Server exiting.")
}
