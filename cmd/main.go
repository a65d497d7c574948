package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/trading_game_bot/config"
	"github.com/KotFed0t/trading_game_bot/data"
	"github.com/KotFed0t/trading_game_bot/data/cache"
	"github.com/KotFed0t/trading_game_bot/data/store"
	"github.com/KotFed0t/trading_game_bot/internal/externalApi/alphaVantageApi"
	"github.com/KotFed0t/trading_game_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/trading_game_bot/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/trading_game_bot/internal/scheduler"
	"github.com/KotFed0t/trading_game_bot/internal/service/conversation"
	"github.com/KotFed0t/trading_game_bot/internal/service/ledger"
	"github.com/KotFed0t/trading_game_bot/internal/service/tradingService"
	"github.com/KotFed0t/trading_game_bot/internal/tgbot"
	"github.com/KotFed0t/trading_game_bot/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(cfg)
	defer st.Close()

	gameLedger := ledger.New(cfg, st)

	var quoteCache tradingService.Cache
	if cfg.Redis.Enabled {
		redisClient := data.NewRedisClient(ctx, cfg)
		defer redisClient.Close()

		quoteCache = cache.NewRedisCache(redisClient, cfg)
	}

	alphaVantageClient := alphaVantageApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	sched := scheduler.New()

	var cloudStorage tradingService.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		googleCloudStorage := googleDriveApi.New(ctx, cfg)
		cloudStorage = googleCloudStorage
		sched.NewIntervalJob("delete old drive files", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DeleteDriveFilesInterval, false)
	}

	tradingSrv := tradingService.New(cfg, gameLedger, quoteCache, alphaVantageClient, reportGenerator, cloudStorage)

	engine := conversation.New(cfg, st, tradingSrv)

	sched.NewIntervalJob("expire sessions", engine.ExpireSessions, cfg.Jobs.ExpireSessionsInterval, false)
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(engine)

	tgBot := tgbot.New(cfg, tgController)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
