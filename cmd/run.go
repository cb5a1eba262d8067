package cmd

import (
	"context"
	"fmt"
	"time"

	"gamestake/aggregator"
	"gamestake/bot"
	"gamestake/chain"
	"gamestake/config"
	"gamestake/database"
	"gamestake/dedup"
	"gamestake/events"
	"gamestake/messaging"
	"gamestake/metrics"
	"gamestake/repository"
	"gamestake/service"
	"gamestake/store"
	"gamestake/web"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	log.WithField("environment", cfg.Environment).Info("Starting gamestake ingestion service...")

	eventBus := events.NewBus()
	health := service.NewHealthTracker(cfg.StaleAfter, time.Now)
	promMetrics := metrics.New()
	observers := service.Observers{health, promMetrics}

	dd := dedup.New(dedup.Config{
		RetentionBlocks: cfg.DedupRetentionBlocks,
		MaxEntries:      cfg.DedupMaxEntries,
	})

	storeOpts := []store.Option{store.WithEventBus(eventBus)}
	var db *database.DB
	var journal *service.Journal
	if cfg.PersistenceEnabled() {
		db, journal, err = openJournal(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("Closing database connection...")
			db.Close()
		}()
		storeOpts = append(storeOpts, store.WithJournal(journal))
	} else {
		log.Warn("DATABASE_URL not set, state is kept in memory and rebuilt from the chain on restart")
	}

	st := store.New(storeOpts...)
	if journal != nil {
		if err := restoreState(ctx, journal, st, dd); err != nil {
			return err
		}
	}

	agg := aggregator.New(st, aggregator.Config{
		Horizon:    cfg.PredecessorHorizon,
		MaxPending: cfg.MaxPendingEvents,
	}, aggregator.WithObserver(observers))

	log.WithField("url", cfg.EthereumRPCURL).Info("Connecting to Ethereum node...")
	client, err := chain.Dial(ctx, cfg.EthereumRPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	decoder, err := chain.NewDecoder(chain.DecoderConfig{
		PlayGame:     common.HexToAddress(cfg.PlayGameAddress),
		TokenStore:   common.HexToAddress(cfg.TokenStoreAddress),
		GTDecimals:   cfg.GTDecimals,
		USDTDecimals: cfg.USDTDecimals,
	})
	if err != nil {
		return fmt.Errorf("failed to build event decoder: %w", err)
	}

	source := chain.NewSource(client, decoder, chain.SourceConfig{
		StartBlock:    cfg.StartBlock,
		Confirmations: cfg.Confirmations,
		ChunkSize:     cfg.BackfillChunkSize,
		ProofInterval: cfg.CheckpointInterval,
		GapTimeout:    cfg.GapTimeout,
	}, chain.WithSourceObserver(observers))

	ingestion := service.NewIngestionService(service.IngestionConfig{
		BufferSize: cfg.EventBufferSize,
	}, source, dd, agg, st, eventBus)

	leaderboardService := service.NewLeaderboardService(st, health)

	hub := web.NewHub()
	hub.Subscribe(eventBus)
	server := web.NewServer(cfg.HTTPPort, leaderboardService, hub, promMetrics.Handler())

	if cfg.MessagingEnabled() {
		natsClient, err := connectNATS(ctx, cfg.NATSURL)
		if err != nil {
			return err
		}
		defer natsClient.Close()
		messaging.NewEventPublisher(natsClient).Subscribe(eventBus)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ingestion.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	if cfg.DiscordEnabled() {
		log.Info("Initializing Discord bot...")
		discordBot, err := bot.New(bot.Config{
			Token:          cfg.DiscordToken,
			GuildID:        cfg.DiscordGuildID,
			AlertChannelID: cfg.DiscordAlertChannelID,
		}, leaderboardService, eventBus)
		if err != nil {
			// the service is useful without Discord
			log.WithError(err).Error("Failed to initialize Discord bot, continuing without it")
		} else {
			g.Go(func() error { return discordBot.Run(gctx) })
		}
	}

	log.WithFields(log.Fields{
		"resumeBlock": st.ReadSnapshot().Checkpoint(),
		"httpPort":    cfg.HTTPPort,
	}).Info("Service is running")

	err = g.Wait()
	log.Info("Shutdown completed")
	return err
}

func openJournal(ctx context.Context, cfg *config.Config) (*database.DB, *service.Journal, error) {
	databaseURL := database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName)

	log.Info("Running database migrations...")
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	uowFactory := repository.NewUnitOfWorkFactory(db)
	return db, service.NewJournal(uowFactory, cfg.DedupRetentionBlocks), nil
}

func connectNATS(ctx context.Context, servers string) (*messaging.NATSClient, error) {
	client := messaging.NewNATSClient(servers)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	if err := client.EnsureStream(messaging.StreamName, messaging.Subjects()); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// restoreState loads the journal into the store and reseeds the deduplicator
// so a restart neither loses nor double-counts events
func restoreState(ctx context.Context, journal *service.Journal, st *store.Store, dd *dedup.Deduplicator) error {
	state, err := journal.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted state: %w", err)
	}
	if err := st.Restore(state.Seed); err != nil {
		return fmt.Errorf("failed to restore store: %w", err)
	}
	for _, p := range state.Processed {
		dd.Seed(p.Identity, p.Order.Block)
	}
	log.WithField("identities", len(state.Processed)).Info("Deduplicator seeded from journal")
	return nil
}
