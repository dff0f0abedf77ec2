package service

import (
	"context"
	"fmt"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type RankResolver struct {
	upstream RankUpstream
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewRankResolver(upstream RankUpstream, cfg OrchestratorConfig, logger zerolog.Logger) *RankResolver {
	cfg = cfg.withDefaults()
	return &RankResolver{upstream: upstream, timeout: cfg.CallTimeout, logger: logger}
}

// FetchRankStandings returns every queue the player is placed in. A player
// the league endpoint does not know is treated as having no standings.
func (r *RankResolver) FetchRankStandings(ctx context.Context, puuid string) ([]domain.RankStanding, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entries, err := r.upstream.GetLeagueEntries(callCtx, puuid)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if api.IsNotFound(err) {
			r.logger.Debug().Str("puuid", puuid).Msg("no league entries, treating as unranked")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to fetch league entries: %w", domain.ErrUpstreamUnavailable, err)
	}

	standings := make([]domain.RankStanding, 0, len(entries))
	for _, e := range entries {
		tier, ok := domain.ParseTier(e.Tier)
		if !ok {
			r.logger.Warn().Str("puuid", puuid).Str("tier", e.Tier).Str("queue", e.QueueType).Msg("unknown tier")
		}
		division, _ := domain.ParseDivision(e.Rank)
		if tier.IsApex() || tier == domain.TierUnranked {
			division = ""
		}
		standings = append(standings, domain.RankStanding{
			QueueType:    e.QueueType,
			Tier:         tier,
			Division:     division,
			LeaguePoints: e.LeaguePoints,
			Wins:         e.Wins,
			Losses:       e.Losses,
		})
	}
	return standings, nil
}

// SelectSoloQueue picks the ranked solo/duo standing, falling back to
// Unranked when the player is not placed there.
func SelectSoloQueue(standings []domain.RankStanding) domain.RankStanding {
	for _, s := range standings {
		if s.QueueType == constants.SoloQueueType {
			return s
		}
	}
	return domain.Unranked(constants.SoloQueueType)
}
