package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lmoretti/birchside/internal/auth"
	"github.com/lmoretti/birchside/internal/config"
	"github.com/lmoretti/birchside/internal/db"
	"github.com/lmoretti/birchside/internal/httpapi"
	"github.com/lmoretti/birchside/internal/logging"
	"github.com/lmoretti/birchside/internal/mail"
	"github.com/lmoretti/birchside/internal/workflow"
	"github.com/lmoretti/birchside/internal/ws"
)

func main() {
	// Local runs read a .env file; in production env vars are set
	// directly and the file is absent.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	logger, err := logging.Init(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	if err := db.Migrate(database); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	mailer := mail.New(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Timeout:  cfg.MailTimeout,
	}, logger)

	env := &httpapi.Env{
		Identity:     workflow.NewIdentityService(database, mailer, logger, cfg.AdminEmails, cfg.MailTimeout),
		Endorsements: workflow.NewEndorsementService(database, hub, logger),
		Requests:     workflow.NewRequestService(database, mailer, hub, logger, cfg.MailTimeout),
		Google:       auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		Tokens:       auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
		Hub:          hub,
		Log:          logger,
	}

	router := gin.New()
	httpapi.SetupRoutes(router, env, cfg.CORSOrigin)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server exiting")
}
