package fx

import (
	"context"
	"database/sql"

	"lol-tracker/internal/api"
	"lol-tracker/internal/cache"
	"lol-tracker/internal/clock"
	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/database"
	"lol-tracker/internal/logger"
	"lol-tracker/internal/repository"
	"lol-tracker/internal/server"
	"lol-tracker/internal/service"
	"lol-tracker/internal/telemetry"
	"lol-tracker/internal/worker"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func provideClock() clock.Clock {
	return clock.New()
}

func providePool(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) *worker.Pool {
	pool := worker.NewPool(worker.OptionsFrom(cfg), log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			pool.Start()
			return nil
		},
		OnStop: pool.Stop,
	})
	return pool
}

func provideMirror(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (*cache.RedisMirror, error) {
	mirror, err := cache.NewRedisMirror(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return mirror.Close() },
	})
	return mirror, nil
}

func provideDatabase(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (*sql.DB, error) {
	db, err := database.New(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return db.Close() },
	})
	return db, nil
}

func runTelemetry(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) error {
	shutdown, err := telemetry.Setup(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return nil
}

func runJanitor(lc fx.Lifecycle, stats *service.StatsService) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go stats.RunJanitor(ctx, constants.JanitorInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(provideClock),
	fx.Provide(provideDatabase),
	fx.Invoke(runTelemetry),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	// upstream
	fx.Provide(
		fx.Annotate(api.NewRiotClient,
			fx.As(fx.Self()),
			fx.As(new(service.MatchUpstream)),
			fx.As(new(service.RankUpstream)),
			fx.As(new(service.AccountUpstream)),
			fx.As(new(server.RateLimitReporter)),
		),
	),
	// cache and background work
	fx.Provide(provideMirror),
	fx.Provide(providePool),
	// svc
	fx.Provide(service.OrchestratorConfigFrom),
	fx.Provide(service.StatsOptionsFrom),
	fx.Provide(service.NewMatchOrchestrator),
	fx.Provide(service.NewRankResolver),
	fx.Provide(fx.Annotate(service.NewStatsService,
		fx.As(fx.Self()),
		fx.As(new(server.StatsProvider)),
		fx.As(new(service.StatsInvalidator)),
	)),
	fx.Provide(fx.Annotate(service.NewPlayerService, fx.As(new(server.PlayerResolver)))),
	fx.Invoke(runJanitor),
	// server
	fx.Provide(server.NewStatsServer),
)
