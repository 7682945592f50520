package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sleepsense/common/database"
	logging "sleepsense/common/logger"
	mqttcommon "sleepsense/common/mqtt"
	rediscommon "sleepsense/common/redis"
	schema "sleepsense/db"
	"sleepsense/internal/assistant"
	"sleepsense/internal/config"
	"sleepsense/internal/consumer"
	"sleepsense/internal/httpapi"
	"sleepsense/internal/mqtt"
	"sleepsense/internal/repository"
	"sleepsense/internal/service"
	"sleepsense/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "sleepsense-data")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rediscommon.Ping(pingCtx, redisClient); err != nil {
		// 不退出：Redis 恢复后请求即可成功，健康检查会报告 unhealthy
		logger.Warn("Redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	pingCancel()

	kv := store.NewRedisKV(redisClient)
	sleepStore := store.NewSleepDataStore(kv, cfg.Sleep.SleepDataKeyPrefix, cfg.Sleep.CurrentSnapshotKey)

	var events store.EventPublisher = store.NopPublisher{}
	if cfg.Sleep.EventsEnabled {
		events = store.NewStreamPublisher(redisClient, cfg.Sleep.EventStream)
	}

	// 报告归档：DB 不可用时回退到内存
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			logger.Info("DB enabled for sleepsense-data")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory archive", zap.Error(err))
		}
	}
	if db != nil && cfg.DBMigrate {
		if _, err := database.Migrate(context.Background(), db, schema.Migrations, logger); err != nil {
			logger.Error("DB migration failed, falling back to memory archive", zap.Error(err))
			_ = database.Close(db)
			db = nil
		}
	}
	var reportsRepo repository.SleepReportsRepository
	if db != nil {
		reportsRepo = repository.NewPostgresSleepReportsRepository(db)
	} else {
		reportsRepo = repository.NewMemorySleepReportsRepo()
	}

	dataSvc := service.NewSleepDataService(sleepStore, events, service.SleepDataOptions{
		Strict:   cfg.Sleep.ImportStrict,
		SeedDemo: cfg.Sleep.SeedDemo,
	}, logger)
	reportSvc := service.NewSleepReportService(reportsRepo, dataSvc, time.Now, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterSleepRoutes(httpapi.NewSleepHandler(dataSvc, logger))
	router.RegisterReportRoutes(httpapi.NewReportHandler(reportSvc, dataSvc, logger))
	router.RegisterAssistantRoutes(httpapi.NewAssistantHandler(dataSvc, assistant.NewDispatcher(nil), logger))
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(db, redisClient, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MQTT 导入通道（可选）
	var mqttClient *mqttcommon.Client
	var broker *mqtt.ImportBroker
	if cfg.MQTT.Enabled {
		if c, err := mqttcommon.NewClient(&cfg.MQTT, logger); err == nil {
			mqttClient = c
			broker = mqtt.NewImportBroker(dataSvc, c, cfg.MQTT.Topic, cfg.MQTT.QoS, logger)
			go func() {
				if err := broker.Start(ctx); err != nil {
					logger.Error("MQTT import broker failed", zap.Error(err))
				}
			}()
		} else {
			logger.Warn("MQTT enabled but connection failed, import channel disabled", zap.Error(err))
		}
	}

	if cfg.Sleep.ArchiveOnUpdate {
		if !cfg.Sleep.EventsEnabled {
			logger.Warn("Report archiving on update needs EVENTS_ENABLED=true, skipped")
		} else {
			host, _ := os.Hostname()
			archiver := consumer.NewReportArchiver(consumer.ArchiverConfig{
				Stream:   cfg.Sleep.EventStream,
				Group:    cfg.Sleep.ArchiverGroup,
				Consumer: "sleepsense-data-" + host,
			}, redisClient, reportSvc, logger)
			go func() {
				if err := archiver.Start(ctx); err != nil {
					logger.Error("Report archiver failed", zap.Error(err))
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if broker != nil {
		broker.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = rediscommon.Close(redisClient)
	_ = database.Close(db)
}
