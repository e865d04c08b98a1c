package cmd

import (
	"context"
	"fmt"
	"time"

	"raffler/config"
	"raffler/database"
	"raffler/events"
	"raffler/infrastructure"
	"raffler/infrastructure/observability"
	"raffler/repository"
	"raffler/service"
	"raffler/worker"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and formatter to logrus
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.Info("Starting raffler...")

	// Initialize metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.WithField("database", database.RedactURL(cfg.GetDatabaseURL())).Info("Database connection established successfully")

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	programConfig, err := service.EnsureProgramConfig(ctx, uowFactory, cfg)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to bootstrap program config: %w", err)
	}

	// Connect to NATS
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		db.Close()
		return err
	}
	subjectMapper := infrastructure.NewEventSubjectMapper()
	eventSubjects := append(subjectMapper.GetAllSubjects(), infrastructure.CommandRejectedSubject)
	if err := natsClient.EnsureStreams(eventSubjects); err != nil {
		natsClient.Close()
		db.Close()
		return fmt.Errorf("failed to ensure NATS streams: %w", err)
	}

	// Initialize services
	raffleService := service.NewRaffleService(uowFactory, cfg, nil)
	ticketService := service.NewTicketService(uowFactory, cfg, nil)
	oracle := infrastructure.NewNATSRandomnessOracle(natsClient, metrics)
	dispatcher := service.NewRandomnessDispatcher(uowFactory, oracle, cfg.RandomnessStaleAfter, nil)

	// Committed events fan out to NATS, metrics and the oracle dispatcher
	infrastructure.NewNATSEventPublisher(natsClient, subjectMapper, metrics).Attach(eventBus)
	metrics.Attach(eventBus)
	randomnessWorker := worker.NewRandomnessRequestWorker(dispatcher, cfg.RandomnessRetryInterval)
	randomnessWorker.Attach(eventBus)

	// Inbound traffic
	fulfilments := infrastructure.NewRandomnessFulfillmentListener(raffleService, metrics)
	if err := fulfilments.Start(natsClient); err != nil {
		natsClient.Close()
		db.Close()
		return fmt.Errorf("failed to start randomness listener: %w", err)
	}
	commands := infrastructure.NewRaffleCommandConsumer(raffleService, ticketService, natsClient, metrics)
	if err := commands.Start(natsClient); err != nil {
		natsClient.Close()
		db.Close()
		return fmt.Errorf("failed to start command consumer: %w", err)
	}

	stopWorker := randomnessWorker.Start(ctx)

	log.WithFields(log.Fields{
		"environment":   cfg.Environment,
		"programID":     cfg.ProgramID,
		"raffleFee":     programConfig.RaffleFee,
		"proceedsShare": programConfig.ProceedsShare,
	}).Info("Raffler is running")
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down raffler...")
	stopWorker()

	if err := natsClient.Close(); err != nil {
		log.WithError(err).Error("Error closing NATS connection")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
