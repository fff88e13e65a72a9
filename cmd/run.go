package cmd

import (
	"context"
	"fmt"
	"time"

	"pixelponies/application"
	"pixelponies/bot"
	"pixelponies/bot/features/admin"
	"pixelponies/bot/features/info"
	"pixelponies/bot/features/race"
	"pixelponies/bot/features/registration"
	"pixelponies/config"
	"pixelponies/database"
	"pixelponies/domain/interfaces"
	"pixelponies/infrastructure"
	"pixelponies/infrastructure/logging"
	"pixelponies/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()

	logCloser, err := logging.Setup(logging.DefaultOptions(cfg.LogLevel, cfg.LogFile))
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()

	log.Info("Starting Pixel Ponies bot...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize event publisher
	var natsClient *infrastructure.NATSClient
	var eventPublisher *infrastructure.NATSEventPublisher
	if cfg.NATSServers != "" {
		log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			db.Close()
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		eventPublisher = infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := eventPublisher.EnsureDomainEventStream(); err != nil {
			log.WithError(err).Warn("Failed to ensure domain event stream, continuing")
		}
	} else {
		log.Info("NATS_SERVERS not set, events stay in process")
		eventPublisher = infrastructure.NewLocalEventPublisher()
	}
	infrastructure.RegisterEventMetrics(eventPublisher, observability.GetMetrics())

	// Initialize token client
	tokenClient, err := newTokenClient(cfg)
	if err != nil {
		db.Close()
		return err
	}
	log.WithFields(log.Fields{
		"bot_address":   tokenClient.BotAddress(),
		"token_address": cfg.TokenAddress,
		"chain_id":      cfg.ChainID,
	}).Info("Token client initialized")

	// Initialize Telegram
	api, err := bot.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		db.Close()
		return err
	}

	var communitySizer interfaces.CommunitySizer
	if cfg.TelegramGroupChatID != 0 {
		communitySizer = bot.NewGroupCommunitySizer(api, cfg.TelegramGroupChatID)
	}

	serviceFactory, err := newServiceFactory(cfg, tokenClient, communitySizer)
	if err != nil {
		db.Close()
		return err
	}
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	scheduler, err := application.NewRaceScheduler(uowFactory, serviceFactory, application.SchedulerConfig{
		RaceCron:         cfg.RaceCron,
		WarningCron:      cfg.WarningCron,
		MaintenanceCron:  cfg.MaintenanceCron,
		ReminderCron:     cfg.ReminderCron,
		TempSelectionTTL: cfg.TempSelectionTTL,
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize race scheduler: %w", err)
	}
	betFlow := application.NewBetFlow(uowFactory, serviceFactory)

	announcer := bot.NewAnnouncer(api, cfg.TelegramGroupChatID, cfg.TokenSymbol)
	announcer.Register(eventPublisher)

	telegramBot := bot.New(api,
		registration.NewFeature(uowFactory, serviceFactory, cfg.TelegramBotUsername, cfg.TokenSymbol),
		race.NewFeature(uowFactory, serviceFactory, betFlow, cfg.TokenSymbol),
		info.NewFeature(uowFactory, serviceFactory, tokenClient, cfg.TelegramBotUsername, cfg.TokenSymbol),
		admin.NewFeature(uowFactory, serviceFactory, scheduler, betFlow, tokenClient, tokenClient.BotAddress(), cfg.TokenSymbol, cfg.IsAdmin),
	)

	stopScheduler := scheduler.Start(ctx)
	stopBot := telegramBot.Start(ctx)

	// Wait for context cancellation
	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down bot...")
	stopBot()
	stopScheduler()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down metrics")
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS connection")
		}
	}

	tokenClient.Close()

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
