package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PoluyanbIch/GoQuiz/internal/app"
	"github.com/PoluyanbIch/GoQuiz/internal/config"
	"github.com/PoluyanbIch/GoQuiz/internal/logger"
	"github.com/PoluyanbIch/GoQuiz/internal/telegram"
)

func main() {
	cfg, err := config.Load(os.Getenv("QUIZ_CONFIG_DIR"))
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	lg, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("initializing quiz", zap.Error(err))
	}
	defer a.Close()

	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Debug, telegram.Deps{
		Launcher:       a.Launcher,
		Results:        a.Results,
		RunnerOpts:     a.RunnerOptions(),
		ExitWindow:     cfg.Quiz.ExitWindow,
		EditsPerSecond: cfg.Telegram.EditsPerSecond,
		Log:            lg.Named("telegram"),
	})
	if err != nil {
		lg.Fatal("creating bot", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("bot is starting")
		return bot.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("bot stopped", zap.Error(err))
	}
	lg.Info("bot stopped")
}
