package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	"github.com/mohammadpnp/record-exchange/internal/bootstrap"
	"github.com/mohammadpnp/record-exchange/internal/config"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/db/models"
	infrafile "github.com/mohammadpnp/record-exchange/internal/infrastructure/file"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/progress"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/repository"
	"github.com/mohammadpnp/record-exchange/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Fatalf("load config: %v", err)
	}

	log := logging.New(cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := db.AutoMigrate(&models.ImportJob{}, &models.ExportJob{}, &models.Record{}, &models.CreditBalance{}); err != nil {
		log.Fatalf("migrate schema: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("create pgx pool: %v", err)
	}
	defer pool.Close()

	var publisher domain.ProgressPublisher = progress.NopPublisher{}
	if cfg.RedisAddr != "" {
		publisher = progress.NewRedisPublisher(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	uploads := infrafile.NewLocalSource(cfg.UploadDir)
	artifacts := infrafile.NewArtifactStore(cfg.ArtifactDir, cfg.PublicBaseURL, []byte(cfg.DownloadSecret))

	importJobRepo := repository.NewImportJobRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	recordStore := repository.NewRecordStoreRepository(pool)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	importWorker := app.NewImportWorker(importJobRepo, uploads, recordStore, creditRepo, publisher, log, app.ImportWorkerConfig{
		Workers:         cfg.ImportWorkers,
		MaxBatchSize:    cfg.MaxBatchSize,
		PollInterval:    cfg.WorkerPollInterval,
		LeaseDuration:   cfg.LeaseDuration,
		CommitTimeout:   cfg.CommitTimeout,
		WriteRatePerSec: cfg.WriteRatePerSec,
	})
	importWorker.Start(workerCtx)

	exportWorker := app.NewExportWorker(exportJobRepo, recordStore, artifacts, creditRepo, publisher, log, app.ExportWorkerConfig{
		Workers:       cfg.ExportWorkers,
		PageSize:      cfg.ExportPageSize,
		PollInterval:  cfg.WorkerPollInterval,
		LeaseDuration: cfg.LeaseDuration,
	})
	exportWorker.Start(workerCtx)

	server := bootstrap.NewHTTPServer(cfg, db, pool, uploads, artifacts)

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}
