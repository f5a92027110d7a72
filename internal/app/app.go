package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dowdarts/aadsstatsscrapper/external/dartconnect"
	"github.com/dowdarts/aadsstatsscrapper/internal/config"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/extract"
	"github.com/dowdarts/aadsstatsscrapper/internal/infrastructure/repository/file"
	"github.com/dowdarts/aadsstatsscrapper/internal/infrastructure/repository/memory"
	"github.com/dowdarts/aadsstatsscrapper/internal/infrastructure/repository/postgres"
	"github.com/dowdarts/aadsstatsscrapper/internal/interfaces/httpapi"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/cache"
	idgen "github.com/dowdarts/aadsstatsscrapper/internal/platform/id"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
	"github.com/dowdarts/aadsstatsscrapper/internal/platform/resilience"
	"github.com/dowdarts/aadsstatsscrapper/internal/usecase"
)

func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, error) {
	store := memory.NewStandingsStore(standings.SeriesInfo{
		Name:              cfg.SeriesName,
		TotalEvents:       cfg.SeriesTotalEvents,
		QualifyingFrom:    cfg.SeriesQualifyingFrom,
		QualifyingThrough: cfg.SeriesQualifyingThrough,
		ChampionshipEvent: cfg.SeriesTotalEvents,
	})

	persistence, err := buildPersistence(cfg)
	if err != nil {
		return nil, err
	}
	if persistence != nil {
		snapshot, found, err := persistence.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load standings snapshot: %w", err)
		}
		if found {
			if err := store.Restore(ctx, snapshot); err != nil {
				return nil, fmt.Errorf("restore standings snapshot: %w", err)
			}
			logger.Info("standings snapshot restored", "players", len(snapshot.Players))
		}
	}

	client := dartconnect.NewClient(dartconnect.ClientConfig{
		APIBaseURL:        cfg.DartConnectAPIBaseURL,
		RecapBaseURL:      cfg.DartConnectRecapBaseURL,
		Timeout:           cfg.DartConnectTimeout,
		MaxRetries:        cfg.DartConnectMaxRetries,
		RequestsPerSecond: cfg.DartConnectRequestsPerSecond,
		Logger:            logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.DartConnectCircuitEnabled,
			FailureThreshold: cfg.DartConnectCircuitFailureCount,
			OpenTimeout:      cfg.DartConnectCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.DartConnectCircuitHalfOpenMaxReq,
		},
	})

	chain := extract.DefaultChain(logger)
	jobRegistry := memory.NewJobRegistry()

	var leaderboards *usecase.LeaderboardCache
	if cfg.CacheEnabled {
		leaderboards = cache.NewStore[[]standings.RankedPlayer](cfg.CacheTTL)
	}

	ingestionSvc := usecase.NewIngestionService(client, chain, store, persistence, leaderboards, logger)
	standingsSvc := usecase.NewStandingsService(store, persistence, leaderboards, logger)
	orchestrator := usecase.NewJobOrchestratorService(
		usecase.JobOrchestratorConfig{
			MaxWorkers:   cfg.JobMaxWorkers,
			MatchRetries: cfg.JobMatchRetries,
			RetryBackoff: cfg.JobRetryBackoff,
			JobTTL:       cfg.JobTTL,
		},
		client,
		chain,
		ingestionSvc,
		jobRegistry,
		idgen.NewRandomGenerator(),
		logger,
	)

	handler := httpapi.NewHandler(ingestionSvc, standingsSvc, orchestrator, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func buildPersistence(cfg config.Config) (standings.Persistence, error) {
	switch cfg.PersistenceDriver {
	case config.PersistenceFile:
		return file.NewSnapshotStore(cfg.SnapshotPath), nil
	case config.PersistencePostgres:
		db, err := sqlx.Connect("postgres", cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewSnapshotRepository(db), nil
	case config.PersistenceNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.PersistenceDriver)
	}
}
