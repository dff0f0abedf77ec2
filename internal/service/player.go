package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// StatsInvalidator drops cached summaries for a puuid.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, puuid string) error
}

type PlayerService struct {
	upstream AccountUpstream
	repo     *repository.PlayerRepository
	stats    StatsInvalidator
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewPlayerService(
	upstream AccountUpstream,
	repo *repository.PlayerRepository,
	stats StatsInvalidator,
	cfg OrchestratorConfig,
	logger zerolog.Logger,
) *PlayerService {
	cfg = cfg.withDefaults()
	return &PlayerService{upstream: upstream, repo: repo, stats: stats, timeout: cfg.CallTimeout, logger: logger}
}

// ResolvePlayer maps a Riot ID to a player profile. Stored profiles younger
// than the refresh TTL are returned without touching the upstream.
func (s *PlayerService) ResolvePlayer(ctx context.Context, gameName, tagLine string, refresh bool) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	gameName, err := url.PathUnescape(gameName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unescape game name", domain.ErrInvalidRiotID)
	}
	tagLine, err = url.PathUnescape(tagLine)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unescape tag line", domain.ErrInvalidRiotID)
	}
	gameName = strings.TrimSpace(gameName)
	tagLine = strings.TrimSpace(strings.TrimPrefix(tagLine, "#"))

	if err := domain.ValidateRiotID(gameName, tagLine); err != nil {
		return nil, err
	}

	s.logger.Info().Str("game_name", gameName).Str("tag_line", tagLine).Bool("refresh", refresh).Msg("resolving player")

	stored, err := s.repo.GetByRiotID(ctx, gameName, tagLine)
	switch {
	case err == nil && !refresh:
		shouldRefresh, err := s.repo.ShouldRefresh(ctx, stored.Puuid, constants.PlayerRefreshTTL)
		if err != nil {
			return nil, err
		}
		if !shouldRefresh {
			s.logger.Debug().Str("puuid", stored.Puuid).Msg("returning stored player")
			return stored, nil
		}
	case err != nil && !errors.Is(err, repository.ErrPlayerNotFound):
		s.logger.Warn().Err(err).Msg("failed to read stored player")
	}

	player, err := s.fetch(ctx, gameName, tagLine)
	if err != nil {
		if stored != nil && errors.Is(err, domain.ErrUpstreamUnavailable) {
			s.logger.Warn().Err(err).Str("puuid", stored.Puuid).Msg("upstream unavailable, returning stored player")
			return stored, nil
		}
		return nil, err
	}
	if stored != nil && stored.Puuid == player.Puuid {
		player.CreatedAt = stored.CreatedAt
	}

	if err := s.repo.Upsert(ctx, player); err != nil {
		return nil, err
	}
	if stored != nil && stored.Puuid != player.Puuid {
		s.relinked(ctx, stored.Puuid, player)
	}

	s.logger.Info().Str("puuid", player.Puuid).Str("riot_id", player.RiotID()).Msg("player resolved")
	return player, nil
}

// relinked drops the summary of the puuid that used to own the Riot ID.
func (s *PlayerService) relinked(ctx context.Context, oldPUUID string, player *domain.Player) {
	s.logger.Info().
		Str("old_puuid", oldPUUID).
		Str("puuid", player.Puuid).
		Str("riot_id", player.RiotID()).
		Msg("riot id relinked")
	if err := s.stats.Invalidate(ctx, oldPUUID); err != nil {
		s.logger.Warn().Err(err).Str("puuid", oldPUUID).Msg("failed to invalidate relinked stats")
	}
}

// GetPlayer returns the stored profile for puuid.
func (s *PlayerService) GetPlayer(ctx context.Context, puuid string) (*domain.Player, error) {
	if err := domain.ValidatePUUID(puuid); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	player, err := s.repo.Get(ctx, puuid)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlayerNotResolvable, puuid)
	}
	return player, err
}

func (s *PlayerService) fetch(ctx context.Context, gameName, tagLine string) (*domain.Player, error) {
	accCtx, accCancel := context.WithTimeout(ctx, s.timeout)
	defer accCancel()

	acc, err := s.upstream.GetAccountByRiotID(accCtx, gameName, tagLine)
	if err != nil {
		return nil, s.classify(ctx, err, "account")
	}

	sumCtx, sumCancel := context.WithTimeout(ctx, s.timeout)
	defer sumCancel()

	summoner, err := s.upstream.GetSummonerByPUUID(sumCtx, acc.Puuid)
	if err != nil {
		return nil, s.classify(ctx, err, "summoner")
	}

	return &domain.Player{
		Puuid:         acc.Puuid,
		GameName:      acc.GameName,
		TagLine:       acc.TagLine,
		ProfileIconID: summoner.ProfileIconID,
		SummonerLevel: summoner.SummonerLevel,
		LastFetchAt:   time.Now().UTC(),
	}, nil
}

func (s *PlayerService) classify(ctx context.Context, err error, what string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.logger.Error().Err(err).Str("lookup", what).Msg("failed to fetch player")
	if api.IsNotFound(err) {
		return fmt.Errorf("%w: %s lookup: %w", domain.ErrPlayerNotResolvable, what, err)
	}
	return fmt.Errorf("%w: %s lookup: %w", domain.ErrUpstreamUnavailable, what, err)
}
