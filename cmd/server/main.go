// Package main is the entry point for the net worth engine. It
// reconstructs dense daily balance series from sparse records, values
// ticker holdings, normalizes everything to one display currency and
// serves the results over a REST API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/internal/clients/exchangerate"
	"github.com/aristath/networth/internal/clients/yahoo"
	"github.com/aristath/networth/internal/config"
	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/events"
	"github.com/aristath/networth/internal/modules/balances"
	"github.com/aristath/networth/internal/modules/groups"
	"github.com/aristath/networth/internal/modules/prices"
	"github.com/aristath/networth/internal/modules/rates"
	"github.com/aristath/networth/internal/modules/settings"
	"github.com/aristath/networth/internal/reliability"
	"github.com/aristath/networth/internal/scheduler"
	"github.com/aristath/networth/internal/server"
	"github.com/aristath/networth/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting net worth engine")

	// Optional S3 backup target. When configured, an empty data
	// directory is restored from the latest backup before any
	// database connection is opened.
	var s3Client *reliability.S3Client
	var restoreService *reliability.RestoreService
	if cfg.Backup.Enabled() {
		s3Client, err = reliability.NewS3Client(context.Background(), reliability.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			Bucket:    cfg.Backup.Bucket,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
			Prefix:    cfg.Backup.Prefix,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage client")
		}

		restoreService = reliability.NewRestoreService(s3Client, cfg.DataDir, log)

		if restoreService.HasPending() {
			log.Warn().Msg("Pending restore detected, applying staged restore")
			if err := restoreService.ApplyPending(); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply staged restore")
			}
		} else {
			restored, err := restoreService.RestoreIfEmpty(context.Background())
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to restore from backup")
			}
			if restored {
				log.Info().Msg("Databases restored from latest backup")
			}
		}
	}

	financeDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "finance.db"),
		Profile: database.ProfileStandard,
		Name:    "finance",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open finance database")
	}
	defer financeDB.Close()

	ratesDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "rates.db"),
		Profile: database.ProfileStandard,
		Name:    "rates",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open rates database")
	}
	defer ratesDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{financeDB, ratesDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	hub := events.NewHub(log)

	// Repositories
	balancesRepo := balances.NewRepository(financeDB.Conn(), log)
	ratesRepo := rates.NewRepository(ratesDB.Conn(), log)
	pricesRepo := prices.NewRepository(ratesDB.Conn(), log)
	groupsRepo := groups.NewRepository(financeDB.Conn(), log)
	settingsRepo := settings.NewRepository(financeDB.Conn(), log)
	clientDataRepo := clientdata.NewRepository(cacheDB.Conn())

	// Services
	resultCache := balances.NewResultCache(cacheDB.Conn(), log)
	settingsService := settings.NewService(settingsRepo, cfg.MainCurrency, hub, log)
	groupsService := groups.NewService(groupsRepo, settingsService, resultCache, hub, log)
	ratesService := rates.NewService(ratesRepo, cfg.PivotCurrency, log)
	pricesService := prices.NewService(pricesRepo, log)
	balancesService := balances.NewService(balancesRepo, resultCache, ratesService, pricesService, groupsService, hub, log)

	// External data clients and syncers
	exchangeRateClient := exchangerate.NewClient(cfg.ExchangeRateAPIURL, clientDataRepo, log)
	yahooClient := yahoo.NewClient(cfg.YahooBaseURL, clientDataRepo, log)
	ratesSyncer := rates.NewSyncer(ratesRepo, exchangeRateClient, balancesRepo, resultCache, hub, cfg.PivotCurrency, log)
	pricesSyncer := prices.NewSyncer(pricesRepo, yahooClient, balancesRepo, resultCache, hub, log)

	databases := map[string]*database.DB{
		"finance": financeDB,
		"rates":   ratesDB,
		"cache":   cacheDB,
	}

	var backupService *reliability.BackupService
	if s3Client != nil {
		backupService = reliability.NewBackupService(s3Client, databases, cfg.DataDir, 30, log)
	}

	srv := server.New(server.Config{
		Log:             log,
		Config:          cfg,
		FinanceDB:       financeDB,
		RatesDB:         ratesDB,
		CacheDB:         cacheDB,
		BalancesService: balancesService,
		ResultCache:     resultCache,
		RatesService:    ratesService,
		RatesRepo:       ratesRepo,
		RatesSyncer:     ratesSyncer,
		PricesRepo:      pricesRepo,
		PricesSyncer:    pricesSyncer,
		GroupsService:   groupsService,
		SettingsService: settingsService,
		Hub:             hub,
		BackupService:   backupService,
		RestoreService:  restoreService,
	})

	// Background jobs
	sched := scheduler.New(log)
	registerJob := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
		}
	}

	cleanupJob := clientdata.NewCleanupJob(clientDataRepo, log)
	walJob := reliability.NewWALCheckpointJob(databases, log)
	maintenanceJob := reliability.NewMaintenanceJob(databases, cfg.DataDir, log)

	registerJob("@every 6h", ratesSyncer)
	registerJob("@every 6h", pricesSyncer)
	registerJob("@hourly", cleanupJob)
	registerJob("30 3 * * *", walJob)
	registerJob("0 4 * * *", maintenanceJob)

	triggerable := []server.TriggerableJob{ratesSyncer, pricesSyncer, cleanupJob, walJob, maintenanceJob}
	if backupService != nil {
		registerJob("15 2 * * *", backupService)
		triggerable = append(triggerable, backupService)
	}
	srv.SetJobs(triggerable...)

	sched.Start()
	defer sched.Stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
