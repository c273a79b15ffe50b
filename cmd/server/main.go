package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/reeys/reeys-backend/internal/api"
	"github.com/reeys/reeys-backend/internal/config"
	"github.com/reeys/reeys-backend/internal/database"
	"github.com/reeys/reeys-backend/internal/gemini"
	"github.com/reeys/reeys-backend/internal/repository"
	"github.com/reeys/reeys-backend/internal/service"
	"github.com/reeys/reeys-backend/internal/storage"
	"github.com/reeys/reeys-backend/internal/workpool"
	"github.com/reeys/reeys-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	gateway, err := gemini.NewClient(ctx, cfg, logr)
	if err != nil {
		log.Fatalf("gemini client: %v", err)
	}
	defer gateway.Close()

	uploader, err := storage.NewUploader(storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
		Prefix:        cfg.S3Prefix,
	})
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	accountRepo := repository.NewAccountRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	imageRepo := repository.NewImageRepository(db)
	packRepo := repository.NewPackRepository(db)
	premiumRepo := repository.NewPremiumRepository(db)

	pool := workpool.New(cfg.GenerationConcurrency)

	ledger := service.NewLedger(accountRepo, txnRepo, logr)
	quota := service.NewQuota(accountRepo, logr)
	roles := service.NewRoles(accountRepo, logr)
	subscriptions := service.NewSubscriptions(accountRepo, ledger, txnRepo, logr)
	users := service.NewUsers(accountRepo, premiumRepo, txnRepo, logr)
	suggestions := service.NewSuggestions(gateway, logr)
	generator := service.NewGenerator(logr, gateway, uploader, imageRepo, packRepo, ledger, quota, roles, subscriptions, pool)

	server := api.NewServer(cfg.ListenAddr, cfg.JWTSecret, cfg.SuperwallWebhookSecret, logr,
		generator, suggestions, users, subscriptions, ledger)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
