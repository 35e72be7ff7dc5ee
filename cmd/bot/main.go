package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/Freeeeeet/slot_booking_bot/internal/app"
	"github.com/Freeeeeet/slot_booking_bot/internal/calendar"
	"github.com/Freeeeeet/slot_booking_bot/internal/config"
	"github.com/Freeeeeet/slot_booking_bot/internal/controller"
	"github.com/Freeeeeet/slot_booking_bot/internal/controller/handlers"
	"github.com/Freeeeeet/slot_booking_bot/internal/controller/state"
	"github.com/Freeeeeet/slot_booking_bot/internal/events"
	"github.com/Freeeeeet/slot_booking_bot/internal/httpapi"
	"github.com/Freeeeeet/slot_booking_bot/internal/service"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Slot booking bot stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting slot booking bot",
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("timezone", cfg.Location().String()),
		zap.Bool("telegram", cfg.TelegramToken != ""),
		zap.Bool("calendar", cfg.CalendarEnabled()),
		zap.Bool("http_api", cfg.HTTPAddr != ""),
		zap.Bool("events", cfg.AMQPURL != ""),
	)

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	calendarClient, err := newCalendarClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var telegram *bot.Bot
	if cfg.TelegramToken != "" {
		telegram, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
	}

	notifiers := service.MultiNotifier{service.NewLogNotifier(logger)}
	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		notifiers = append(notifiers, events.NewNotifier(publisher, logger))
	}
	if telegram != nil && len(cfg.AdminIDs) > 0 {
		adminNotifier := controller.NewAdminNotifier(telegram, cfg.AdminIDs, logger)
		defer adminNotifier.Wait()
		notifiers = append(notifiers, adminNotifier)
	}

	policy := service.NewCapacityPolicy(storage.Settings)
	availability := service.NewAvailabilityService(policy, storage.Bookings)
	calendarSync := service.NewCalendarSync(calendarClient, storage.Bookings, policy, service.CalendarSyncConfig{
		CalendarID: cfg.CalendarID,
		Location:   cfg.Location(),
		Timeout:    cfg.CalendarTimeout,
	}, logger)
	reservations := service.NewReservationService(storage.Bookings, policy, availability, calendarSync, notifiers, logger)

	scheduler := app.NewScheduler(reservations, cfg.ReconcileInterval, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if telegram != nil {
		cmdHandlers := handlers.NewHandlers(reservations, scheduler, state.NewManager(), cfg.IsAdmin, cfg.Location(), logger)
		botController := controller.NewBotController(telegram, cmdHandlers, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			// Меню команд не критично для работы бота
			logger.Warn("Failed to register bot commands menu", zap.Error(err))
		}
		g.Go(func() error {
			return botController.Start(gctx)
		})
	}

	if cfg.HTTPAddr != "" {
		server := httpapi.NewServer(httpapi.Config{
			Addr:      cfg.HTTPAddr,
			Tokens:    cfg.APITokens,
			JWTSecret: cfg.JWTSecret,
		}, reservations, logger)
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Slot booking bot stopped")
	return nil
}

// newCalendarClient Google Calendar при заданном CALENDAR_ID, иначе календарь в памяти
func newCalendarClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (calendar.Client, error) {
	if !cfg.CalendarEnabled() {
		logger.Warn("CALENDAR_ID is not set, showcase events are kept in memory only")
		return calendar.NewMemoryClient(), nil
	}

	httpClient, err := calendar.NewHTTPClient(ctx, cfg.CalendarCredentialsFile, cfg.CalendarTokenFile)
	if err != nil {
		return nil, err
	}
	return calendar.NewGoogleClient(ctx, logger, option.WithHTTPClient(httpClient))
}
