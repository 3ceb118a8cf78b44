package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petfoodverifai/internal/app"
	"petfoodverifai/internal/config"
	"petfoodverifai/internal/logger"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set")
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	// 2. Initialize storage
	application, err := app.New(cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize app", zap.Error(err))
	}
	defer application.Close()

	// 3. Initialize Telegram Bot
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		zl.Fatal("failed to connect to telegram", zap.Error(err))
	}
	bot, err := application.Bot(botAPI)
	if err != nil {
		zl.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	// 4. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("telegram bot server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return application.RunHousekeeping(gctx, time.Hour, 30)
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
		return
	}
	zl.Info("server exiting")
}
