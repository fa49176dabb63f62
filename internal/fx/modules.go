package fx

import (
	"context"
	"database/sql"
	"tft-tracker/internal/config"
	"tft-tracker/internal/database"
	"tft-tracker/internal/db"
	"tft-tracker/internal/logger"
	"tft-tracker/internal/metrics"
	"tft-tracker/internal/repository"
	"tft-tracker/internal/server"
	"tft-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideRecalculator(s *service.StandingsService) service.Recalculator {
	return s
}

func ProvideHandler(
	tournaments *service.TournamentService,
	submissions *service.SubmissionService,
	standings *service.StandingsService,
	sqlDB *sql.DB,
	m *metrics.Metrics,
	cfg *config.Config,
	logger zerolog.Logger,
) *server.Handler {
	return server.NewHandler(tournaments, submissions, standings, sqlDB, m, cfg, logger)
}

func closeDatabase(lc fx.Lifecycle, sqlDB *sql.DB, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := sqlDB.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
}

// Core wires storage and services without any network listener.
var Core = fx.Options(
	logger.Module,
	config.Module,
	metrics.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(
		fx.Annotate(repository.NewTournamentRepository, fx.As(new(service.TournamentStore))),
		fx.Annotate(repository.NewPlacementRepository, fx.As(new(service.Ledger))),
		fx.Annotate(repository.NewStandingsRepository, fx.As(new(service.SnapshotStore))),
	),
	// svc
	fx.Provide(service.NewTournamentService),
	fx.Provide(service.NewStandingsService),
	fx.Provide(ProvideRecalculator),
	fx.Provide(service.NewSubmissionService),
	fx.Invoke(closeDatabase),
)

var Module = fx.Options(
	Core,
	// server
	fx.Provide(ProvideHandler),
	fx.Provide(server.NewServer),
)
