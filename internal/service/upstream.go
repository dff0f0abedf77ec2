package service

import (
	"context"

	"lol-tracker/internal/api"
)

// MatchUpstream is the slice of the Riot client the orchestrator needs.
type MatchUpstream interface {
	GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*api.MatchDto, error)
}

type RankUpstream interface {
	GetLeagueEntries(ctx context.Context, puuid string) ([]api.LeagueEntryDto, error)
}

type AccountUpstream interface {
	GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*api.AccountDto, error)
	GetSummonerByPUUID(ctx context.Context, puuid string) (*api.SummonerDto, error)
}

var (
	_ MatchUpstream   = (*api.RiotClient)(nil)
	_ RankUpstream    = (*api.RiotClient)(nil)
	_ AccountUpstream = (*api.RiotClient)(nil)
)
