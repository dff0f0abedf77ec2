package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/cache"
	"lol-tracker/internal/clock"
	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/stats"
	"lol-tracker/internal/worker"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// cachedSummary is either a built summary or a marker that the player has
// no match history. An empty marker keeps the last real summary so the stale
// fallback survives a transient empty id list.
type cachedSummary struct {
	summary *domain.StatsSummary
	empty   bool
	last    *domain.StatsSummary
}

type StatsOptions struct {
	CacheTTL        time.Duration
	EmptyHistoryTTL time.Duration
}

func StatsOptionsFrom(cfg *config.Config) StatsOptions {
	return StatsOptions{CacheTTL: cfg.CacheTTL, EmptyHistoryTTL: cfg.EmptyHistoryTTL}
}

type StatsService struct {
	matches *MatchOrchestrator
	ranks   *RankResolver
	cache   *cache.Cache[cachedSummary]
	mirror  *cache.RedisMirror
	pool    *worker.Pool
	flight  singleflight.Group
	clock   clock.Clock
	opts    StatsOptions
	tracer  trace.Tracer
	logger  zerolog.Logger

	// last background refresh failure per puuid, reported on the next read
	failures sync.Map
}

func NewStatsService(
	matches *MatchOrchestrator,
	ranks *RankResolver,
	mirror *cache.RedisMirror,
	pool *worker.Pool,
	clk clock.Clock,
	opts StatsOptions,
	logger zerolog.Logger,
) *StatsService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = constants.StatsCacheTTL
	}
	if opts.EmptyHistoryTTL <= 0 {
		opts.EmptyHistoryTTL = constants.EmptyHistoryTTL
	}
	return &StatsService{
		matches: matches,
		ranks:   ranks,
		cache:   cache.New[cachedSummary](clk, constants.StaleRetention),
		mirror:  mirror,
		pool:    pool,
		clock:   clk,
		opts:    opts,
		tracer:  otel.Tracer("lol-tracker/service"),
		logger:  logger,
	}
}

// GetStatsSummary serves from cache when fresh and otherwise runs the fetch
// pipeline once for all concurrent callers of the same puuid.
func (s *StatsService) GetStatsSummary(ctx context.Context, puuid string) (*domain.StatsSummary, error) {
	if err := domain.ValidatePUUID(puuid); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "stats.GetStatsSummary", trace.WithAttributes(attribute.String("puuid", puuid)))
	defer span.End()

	key := cache.Key(puuid)

	if v, ok := s.cache.Get(key); ok {
		span.SetAttributes(attribute.String("cache", "hit"))
		if v.empty {
			return nil, domain.ErrNoMatchHistory
		}
		s.logger.Debug().Str("puuid", puuid).Msg("returning cached stats")
		return v.summary, nil
	}

	if summary, ok := s.fromMirror(ctx, key); ok {
		span.SetAttributes(attribute.String("cache", "mirror"))
		return summary, nil
	}
	span.SetAttributes(attribute.String("cache", "miss"))

	if v, ok := s.failures.LoadAndDelete(puuid); ok {
		s.logger.Warn().Err(v.(error)).Str("puuid", puuid).Msg("previous background refresh failed")
	}

	summary, err := s.load(ctx, puuid, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return summary, nil
}

// Refresh rebuilds the summary regardless of cache state.
func (s *StatsService) Refresh(ctx context.Context, puuid string) (*domain.StatsSummary, error) {
	if err := domain.ValidatePUUID(puuid); err != nil {
		return nil, err
	}
	return s.load(ctx, puuid, cache.Key(puuid))
}

// Invalidate drops the cached summary from every tier.
func (s *StatsService) Invalidate(ctx context.Context, puuid string) error {
	if err := domain.ValidatePUUID(puuid); err != nil {
		return err
	}
	key := cache.Key(puuid)
	s.cache.Delete(key)
	if err := s.mirror.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("puuid", puuid).Msg("failed to delete mirrored stats")
		return fmt.Errorf("failed to invalidate mirror: %w", err)
	}
	s.logger.Info().Str("puuid", puuid).Msg("stats invalidated")
	return nil
}

// Warm queues a background refresh. The returned id identifies the job.
func (s *StatsService) Warm(ctx context.Context, puuid string) (string, error) {
	if err := domain.ValidatePUUID(puuid); err != nil {
		return "", err
	}

	return s.pool.Submit(ctx, worker.Job{
		Key: "refresh:" + puuid,
		Run: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, constants.RefreshTimeout)
			defer cancel()

			_, err := s.Refresh(ctx, puuid)
			if errors.Is(err, domain.ErrNoMatchHistory) || errors.Is(err, domain.ErrPlayerNotResolvable) {
				return worker.Permanent(err)
			}
			return err
		},
		OnFailure: func(err error) {
			if errors.Is(err, domain.ErrNoMatchHistory) {
				return
			}
			s.failures.Store(puuid, err)
		},
	})
}

// RunJanitor sweeps expired entries until ctx ends.
func (s *StatsService) RunJanitor(ctx context.Context, interval time.Duration) {
	s.cache.Run(ctx, interval)
}

func (s *StatsService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *StatsService) PendingRefreshes() int {
	return s.pool.Pending()
}

func (s *StatsService) load(ctx context.Context, puuid, key string) (*domain.StatsSummary, error) {
	for attempt := 0; ; attempt++ {
		ch := s.flight.DoChan(key, func() (any, error) {
			return s.build(ctx, puuid, key)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(*domain.StatsSummary), nil
			}
			// the leader's caller went away; our own context is still good
			if isContextErr(res.Err) && ctx.Err() == nil && attempt == 0 {
				s.logger.Debug().Str("puuid", puuid).Msg("shared fetch was cancelled, retrying")
				continue
			}
			return s.fallback(puuid, key, res.Err)
		}
	}
}

func (s *StatsService) build(ctx context.Context, puuid, key string) (*domain.StatsSummary, error) {
	started := s.clock.Now()
	s.logger.Info().Str("puuid", puuid).Msg("fetching live stats")

	records, standings, err := s.collect(ctx, puuid)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		switch {
		case errors.Is(err, domain.ErrNoMatchHistory):
			s.cache.Set(key, cachedSummary{empty: true, last: s.lastGood(key)}, s.opts.EmptyHistoryTTL)
			s.logger.Info().Str("puuid", puuid).Msg("player has no match history")
			return nil, domain.ErrNoMatchHistory
		case api.IsNotFound(err):
			return nil, fmt.Errorf("%w: %s", domain.ErrPlayerNotResolvable, puuid)
		case errors.Is(err, domain.ErrUpstreamUnavailable):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
		}
	}

	rank := SelectSoloQueue(standings)
	summary, err := stats.Aggregate(records, &rank)
	if err != nil {
		return nil, err
	}
	summary.Puuid = puuid
	summary.GeneratedAt = s.clock.Now().UTC()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.cache.Set(key, cachedSummary{summary: summary}, s.opts.CacheTTL)
	s.failures.Delete(puuid)

	if s.mirror.Enabled() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RedisWriteTimeout)
		if err := s.mirror.Set(mctx, key, summary, s.opts.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("puuid", puuid).Msg("failed to mirror stats")
		}
		cancel()
	}

	s.logger.Info().
		Str("puuid", puuid).
		Int("games", summary.Overview.TotalGames).
		Str("tier", string(summary.Overview.Tier)).
		Dur("elapsed", s.clock.Now().Sub(started)).
		Msg("stats built")
	return summary, nil
}

// collect runs the rank lookup alongside match collection. Either failing
// cancels the other.
func (s *StatsService) collect(ctx context.Context, puuid string) ([]domain.MatchParticipantRecord, []domain.RankStanding, error) {
	g, gctx := errgroup.WithContext(ctx)

	var standings []domain.RankStanding
	g.Go(func() error {
		var err error
		standings, err = s.ranks.FetchRankStandings(gctx, puuid)
		return err
	})

	var records []domain.MatchParticipantRecord
	g.Go(func() error {
		ids, err := s.matches.ResolveMatchIDs(gctx, puuid, s.matches.MatchLimit())
		if err != nil {
			return err
		}
		records, err = s.matches.FetchRecords(gctx, puuid, ids)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, standings, nil
}

// fallback serves a stale copy when the upstream is unavailable.
func (s *StatsService) fallback(puuid, key string, err error) (*domain.StatsSummary, error) {
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		return nil, err
	}
	v, _, ok := s.cache.GetStale(key)
	if !ok {
		return nil, err
	}
	last := v.summary
	if v.empty {
		last = v.last
	}
	if last == nil || !s.withinStaleWindow(last) {
		return nil, err
	}

	stale := *last
	stale.IsStale = true
	s.logger.Warn().
		Err(err).
		Str("puuid", puuid).
		Time("generated_at", last.GeneratedAt).
		Msg("upstream unavailable, serving stale stats")
	return &stale, nil
}

// lastGood returns the most recent real summary still held under key, if any.
func (s *StatsService) lastGood(key string) *domain.StatsSummary {
	v, _, ok := s.cache.GetStale(key)
	if !ok {
		return nil
	}
	if v.summary != nil {
		return v.summary
	}
	if v.last != nil && s.withinStaleWindow(v.last) {
		return v.last
	}
	return nil
}

// withinStaleWindow bounds a retained summary by its own expiry, not by the
// entry that carries it.
func (s *StatsService) withinStaleWindow(summary *domain.StatsSummary) bool {
	limit := summary.GeneratedAt.Add(s.opts.CacheTTL + constants.StaleRetention)
	return !s.clock.Now().After(limit)
}

func (s *StatsService) fromMirror(ctx context.Context, key string) (*domain.StatsSummary, bool) {
	summary, ok, err := s.mirror.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read mirrored stats")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	remaining := s.opts.CacheTTL - s.clock.Now().Sub(summary.GeneratedAt)
	if remaining <= 0 {
		return nil, false
	}
	s.cache.Set(key, cachedSummary{summary: summary}, remaining)
	return summary, true
}

// isContextErr reports a cancelled pipeline. A per-call timeout already
// classified as an upstream failure does not count.
func isContextErr(err error) bool {
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
