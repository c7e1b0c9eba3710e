package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"

	"github.com/wcfantasy/backend/external/boxscore"
	"github.com/wcfantasy/backend/external/livescore"
	"github.com/wcfantasy/backend/internal/config"
	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/squad"
	"github.com/wcfantasy/backend/internal/domain/team"
	repocache "github.com/wcfantasy/backend/internal/infrastructure/repository/cache"
	"github.com/wcfantasy/backend/internal/infrastructure/repository/postgres"
	"github.com/wcfantasy/backend/internal/platform/cache"
	idgen "github.com/wcfantasy/backend/internal/platform/id"
	"github.com/wcfantasy/backend/internal/platform/logging"
	"github.com/wcfantasy/backend/internal/platform/resilience"
	"github.com/wcfantasy/backend/internal/platform/scheduler"
	"github.com/wcfantasy/backend/internal/usecase"
)

// App owns the wired object graph: repositories over one shared DB handle,
// the feed clients, the services, and the poll scheduler.
type App struct {
	DB        *sqlx.DB
	Scheduler *scheduler.Scheduler

	Squads    *usecase.SquadService
	Transfers *usecase.TransferService
	Points    *usecase.PointsService
	Rounds    *usecase.RoundService
	Features  *usecase.FeatureService
	FDR       *usecase.FDRService
	Seeder    *usecase.SeedService
	Pipeline  *usecase.SyncPipeline
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	teamRepo := team.Repository(postgres.NewTeamRepository(db))
	playerRepo := player.Repository(postgres.NewPlayerRepository(db))
	matchRepo := postgres.NewMatchRepository(db)
	roundRepo := postgres.NewRoundRepository(db)
	leagueRepo := postgres.NewLeagueRepository(db)
	squadRepo := postgres.NewSquadRepository(db)
	statsRepo := postgres.NewPlayerStatsRepository(db)
	pointsRepo := postgres.NewRoundPointsRepository(db)

	// The repository decorators are opt-in; the feature cache is part of
	// the feature service contract and always present.
	featureStore := cache.NewStore(cfg.CacheTTL)
	if cfg.CacheEnabled {
		store := cache.NewStore(cfg.CacheTTL)
		teamRepo = repocache.NewTeamRepository(teamRepo, store)
		playerRepo = repocache.NewPlayerRepository(playerRepo, store)
	}

	rules := squad.DefaultRules()
	ids := idgen.NewRandomGenerator()

	liveFeed := livescore.NewClient(livescore.ClientConfig{
		BaseURL:     cfg.LiveScoreBaseURL,
		Token:       cfg.LiveScoreToken,
		Competition: cfg.LiveScoreCompetition,
		Timeout:     cfg.LiveScoreTimeout,
		MaxRetries:  cfg.LiveScoreMaxRetries,
		Logger:      logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.LiveScoreCircuitEnabled,
			FailureThreshold: cfg.LiveScoreCircuitFailureCount,
			OpenTimeout:      cfg.LiveScoreCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.LiveScoreCircuitHalfOpenMaxReq,
		},
	})
	boxFeed := boxscore.NewClient(boxscore.ClientConfig{
		BaseURL:    cfg.BoxScoreBaseURL,
		APIKey:     cfg.BoxScoreAPIKey,
		LeagueID:   cfg.BoxScoreLeagueID,
		Season:     cfg.BoxScoreSeason,
		Timeout:    cfg.BoxScoreTimeout,
		MaxRetries: cfg.BoxScoreMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.BoxScoreCircuitEnabled,
			FailureThreshold: cfg.BoxScoreCircuitFailureCount,
			OpenTimeout:      cfg.BoxScoreCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.BoxScoreCircuitHalfOpenMaxReq,
		},
	})

	squadSvc := usecase.NewSquadService(leagueRepo, playerRepo, squadRepo, rules, ids, logger)
	transferSvc := usecase.NewTransferService(squadRepo, playerRepo, roundRepo, rules, logger)
	pointsSvc := usecase.NewPointsService(matchRepo, roundRepo, statsRepo, squadRepo, pointsRepo, logger)
	roundSvc := usecase.NewRoundService(roundRepo)
	fdrSvc := usecase.NewFDRService(matchRepo, playerRepo)
	featureSvc := usecase.NewFeatureService(playerRepo, statsRepo, fdrSvc, featureStore, logger)
	seedSvc := usecase.NewSeedService(teamRepo, playerRepo, matchRepo, roundRepo, boxFeed, ids, logger, cfg.SeedWorkers)

	matchSync := usecase.NewMatchSyncService(matchRepo, liveFeed, logger)
	statsSync := usecase.NewStatsSyncService(matchRepo, playerRepo, statsRepo, pointsSvc, boxFeed, logger)
	pipeline := usecase.NewSyncPipeline(matchSync, statsSync, pointsSvc, featureSvc, logger, cfg.StatsWorkers)

	sched := scheduler.New(logger)
	if err := sched.AddEvery("live-score-poll", cfg.PollInterval, pipeline.RunTick); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register poll job: %w", err)
	}

	return &App{
		DB:        db,
		Scheduler: sched,
		Squads:    squadSvc,
		Transfers: transferSvc,
		Points:    pointsSvc,
		Rounds:    roundSvc,
		Features:  featureSvc,
		FDR:       fdrSvc,
		Seeder:    seedSvc,
		Pipeline:  pipeline,
	}, nil
}

// Start brings up the poll scheduler. The first tick fires one interval
// after start, never immediately.
func (a *App) Start() {
	a.Scheduler.Start()
}

func (a *App) Stop(ctx context.Context) error {
	a.Scheduler.Stop()

	done := make(chan error, 1)
	go func() {
		done <- a.DB.Close()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Connect("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return db, nil
}
