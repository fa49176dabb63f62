package main

import (
	"context"
	"tft-tracker/internal/config"
	"tft-tracker/internal/constants"
	fxmodules "tft-tracker/internal/fx"
	"tft-tracker/internal/server"
	"tft-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	standings *service.StandingsService,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.RebuildOnStart {
				// rebuild outside the start deadline
				go func() {
					if _, err := standings.RecalculateAll(context.Background()); err != nil {
						logger.Error().Err(err).Msg("startup rebuild of standings failed")
					}
				}()
			}
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
