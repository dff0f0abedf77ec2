package server

import (
	"context"
	"errors"
	"net/http"

	"lol-tracker/internal/api"
	"lol-tracker/internal/cache"
	"lol-tracker/internal/domain"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

const (
	StatsServiceName = "lolstats.v1.StatsService"
	StatsServicePath = "/" + StatsServiceName + "/"

	GetStatsSummaryProcedure = StatsServicePath + "GetStatsSummary"
	InvalidateStatsProcedure = StatsServicePath + "InvalidateStats"
	FollowPlayerProcedure    = StatsServicePath + "FollowPlayer"
	ResolvePlayerProcedure   = StatsServicePath + "ResolvePlayer"
)

type StatsProvider interface {
	GetStatsSummary(ctx context.Context, puuid string) (*domain.StatsSummary, error)
	Invalidate(ctx context.Context, puuid string) error
	Warm(ctx context.Context, puuid string) (string, error)
	CacheStats() cache.Stats
	PendingRefreshes() int
}

type PlayerResolver interface {
	ResolvePlayer(ctx context.Context, gameName, tagLine string, refresh bool) (*domain.Player, error)
	GetPlayer(ctx context.Context, puuid string) (*domain.Player, error)
}

type RateLimitReporter interface {
	GetRateLimitInfo() api.RateLimitInfo
}

type StatsServer struct {
	stats   StatsProvider
	players PlayerResolver
	limits  RateLimitReporter
	logger  zerolog.Logger
}

func NewStatsServer(stats StatsProvider, players PlayerResolver, limits RateLimitReporter, logger zerolog.Logger) *StatsServer {
	return &StatsServer{stats: stats, players: players, limits: limits, logger: logger}
}

// Handler mounts every RPC under StatsServicePath.
func (s *StatsServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStatsSummaryProcedure, connect.NewUnaryHandler(GetStatsSummaryProcedure, s.GetStatsSummary, opts...))
	mux.Handle(InvalidateStatsProcedure, connect.NewUnaryHandler(InvalidateStatsProcedure, s.InvalidateStats, opts...))
	mux.Handle(FollowPlayerProcedure, connect.NewUnaryHandler(FollowPlayerProcedure, s.FollowPlayer, opts...))
	mux.Handle(ResolvePlayerProcedure, connect.NewUnaryHandler(ResolvePlayerProcedure, s.ResolvePlayer, opts...))
	return StatsServicePath, mux
}

func (s *StatsServer) GetStatsSummary(ctx context.Context, req *connect.Request[StatsRequest]) (*connect.Response[StatsResponse], error) {
	summary, err := s.stats.GetStatsSummary(ctx, req.Msg.Puuid)
	if errors.Is(err, domain.ErrNoMatchHistory) {
		return connect.NewResponse(&StatsResponse{HasHistory: false}), nil
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("puuid", req.Msg.Puuid).Msg("GetStatsSummary failed")
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&StatsResponse{HasHistory: true, Summary: toSummaryResponse(summary)}), nil
}

func (s *StatsServer) InvalidateStats(ctx context.Context, req *connect.Request[StatsRequest]) (*connect.Response[InvalidateResponse], error) {
	if err := s.stats.Invalidate(ctx, req.Msg.Puuid); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&InvalidateResponse{}), nil
}

func (s *StatsServer) FollowPlayer(ctx context.Context, req *connect.Request[StatsRequest]) (*connect.Response[FollowResponse], error) {
	id, err := s.stats.Warm(context.WithoutCancel(ctx), req.Msg.Puuid)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&FollowResponse{JobID: id}), nil
}

func (s *StatsServer) ResolvePlayer(ctx context.Context, req *connect.Request[ResolvePlayerRequest]) (*connect.Response[PlayerResponse], error) {
	player, err := s.players.ResolvePlayer(ctx, req.Msg.GameName, req.Msg.TagLine, req.Msg.Refresh)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("game_name", req.Msg.GameName).Str("tag_line", req.Msg.TagLine).Msg("ResolvePlayer failed")
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toPlayerResponse(player)), nil
}

func (s *StatsServer) health() *HealthResponse {
	resp := &HealthResponse{
		Status:    "ok",
		Cache:     s.stats.CacheStats(),
		Refreshes: s.stats.PendingRefreshes(),
	}
	if s.limits != nil {
		resp.RateLimit = s.limits.GetRateLimitInfo()
	}
	return resp
}
