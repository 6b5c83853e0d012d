package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/authz"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/config"
	"github.com/mauv0809/matchledger/internal/database"
	server "github.com/mauv0809/matchledger/internal/http"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/match"
	"github.com/mauv0809/matchledger/internal/metrics"
	"github.com/mauv0809/matchledger/internal/notifier/slack"
	"github.com/mauv0809/matchledger/internal/processor"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/mauv0809/matchledger/internal/rating"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	locker := lock.Locker(lock.NewLocal())
	if cfg.Redis.URL != "" {
		client, err := lock.Connect(context.Background(), cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %s", err)
		}
		defer client.Close()
		locker = lock.NewRedis(client, cfg.Redis.LockTTL)
		log.Info("Using distributed locks", "ttl", cfg.Redis.LockTTL)
	}

	c := clock.New()
	rules := rating.Rules{
		Delta:      cfg.Rating.Delta,
		UpperBound: cfg.Rating.UpperBound,
		Baseline:   cfg.Rating.Baseline,
	}
	rosterRules := match.RosterRules{
		TeamCapacity:        cfg.Roster.TeamCapacity,
		MinConfirmedPerTeam: cfg.Roster.MinConfirmedPerTeam,
	}

	clubStore := club.New(db, c)
	checker := authz.New(db, c)
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)

	// Without a project events are handed straight to the processor.
	var proc *processor.Processor
	var publisher pubsub.PubSubClient
	if cfg.ProjectID != "" {
		publisher = pubsub.New(cfg.ProjectID)
	} else {
		log.Warn("GCP_PROJECT not set, delivering events in-process")
		publisher = pubsub.NewLocal(func(ctx context.Context, topic pubsub.EventType, data []byte) error {
			return proc.HandleEvent(ctx, topic, data, false)
		})
	}
	defer publisher.Close()
	proc = processor.New(processor.NewStore(db), notifier, publisher, c)

	ledger := rating.NewLedger(db, c)
	matchStore := match.NewStore(db)
	matches := match.NewService(match.Deps{
		DB:        db,
		Store:     matchStore,
		Ledger:    ledger,
		Members:   clubStore,
		Authz:     checker,
		Locker:    locker,
		Publisher: publisher,
		Clock:     c,
		Metrics:   metricsSvc,
	}, rules, rosterRules)
	roster := match.NewRoster(db, matchStore, clubStore, checker, locker, c, metricsSvc)
	ratings := rating.NewService(db, ledger, clubStore, matchStore.(rating.MatchDescriber), locker, rules, metricsSvc)

	s := server.NewServer(server.Deps{
		Matches:        matches,
		Roster:         roster,
		Ratings:        ratings,
		Notifier:       notifier,
		Processor:      proc,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
	})

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
