package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	telebot "gopkg.in/telebot.v3"

	"ratewatcher/internal/alerting"
	"ratewatcher/internal/bot"
	"ratewatcher/internal/config"
	"ratewatcher/internal/engine"
	"ratewatcher/internal/fetcher"
	"ratewatcher/internal/scheduler"
	"ratewatcher/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFeed() *fetcher.Feed {
	return fetcher.NewFeed(fetcher.Options{
		URL:       a.Config.Feed.URL,
		Origin:    a.Config.Feed.Origin,
		Timeout:   a.Config.Feed.RequestTimeout,
		UserAgent: a.Config.Feed.UserAgent,
	}, a.Logger)
}

func (a *App) newStore() *storage.FileStore {
	return storage.NewFileStore(a.Config.Storage.Path, a.Logger)
}

func (a *App) newEngine(source fetcher.Source, notifier alerting.Notifier) *engine.Engine {
	return engine.New(source, a.newStore(), notifier, engine.Options{
		MonthlyUsageKWh:  a.Config.Notify.MonthlyUsageKWh,
		MaxCheaperOffers: a.Config.Notify.MaxCheaperOffers,
	}, a.Logger)
}

func (a *App) newTelebot() (*telebot.Bot, error) {
	if a.Config.Telegram.BotToken == "" {
		return nil, errors.New("telegram.bot_token is required")
	}
	tb, err := telebot.NewBot(telebot.Settings{
		Token:  a.Config.Telegram.BotToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return tb, nil
}

// Run starts the bot and the daily evaluation schedule, blocking until the
// process is interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tb, err := a.newTelebot()
	if err != nil {
		return err
	}

	feed := a.newFeed()
	defer feed.Close()

	notifier := alerting.NewTelegramNotifier(tb, a.Logger)
	eng := a.newEngine(feed, notifier)
	b := bot.New(tb, eng, a.Config.ScheduleLabel(), a.Logger)

	sched, err := scheduler.New(scheduler.Options{
		At:       a.Config.Schedule.At,
		Timezone: a.Config.Schedule.Timezone,
	}, a.Logger)
	if err != nil {
		return err
	}

	go b.Start()
	defer b.Stop()

	a.Logger.Info().Msg("ratewatcher started")
	err = sched.Run(ctx, func(ctx context.Context) {
		// A failed pass leaves the store untouched; the next daily trigger
		// is the retry.
		if err := eng.RunDailyPass(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("daily pass aborted")
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.Logger.Info().Msg("ratewatcher stopped")
	return nil
}

// CheckOnce runs a single evaluation pass outside the daily schedule, with
// the same fail-safe and de-duplication semantics.
func (a *App) CheckOnce(ctx context.Context) error {
	tb, err := a.newTelebot()
	if err != nil {
		return err
	}

	feed := a.newFeed()
	defer feed.Close()

	eng := a.newEngine(feed, alerting.NewTelegramNotifier(tb, a.Logger))
	return eng.RunDailyPass(ctx)
}
