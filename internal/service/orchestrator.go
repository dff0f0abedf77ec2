package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/clock"
	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrParticipantMissing = errors.New("player is not a participant of the match")
	ErrEmptyMatch         = errors.New("empty match payload")
)

type OrchestratorConfig struct {
	MatchLimit  int
	ChunkSize   int
	Cooldown    time.Duration
	CallTimeout time.Duration
}

func OrchestratorConfigFrom(cfg *config.Config) OrchestratorConfig {
	return OrchestratorConfig{
		MatchLimit:  cfg.MatchLimit,
		ChunkSize:   cfg.ChunkSize,
		Cooldown:    cfg.ChunkCooldown,
		CallTimeout: cfg.UpstreamTimeout,
	}
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.MatchLimit <= 0 {
		c.MatchLimit = constants.DefaultMatchLimit
	}
	if c.MatchLimit > constants.MaxMatchLimit {
		c.MatchLimit = constants.MaxMatchLimit
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = constants.DefaultChunkSize
	}
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = constants.ExternalAPITimeout
	}
	return c
}

// MatchOrchestrator turns a puuid into per-match participant records while
// staying inside the upstream burst budget.
type MatchOrchestrator struct {
	upstream MatchUpstream
	cfg      OrchestratorConfig
	clock    clock.Clock
	tracer   trace.Tracer
	logger   zerolog.Logger
}

func NewMatchOrchestrator(upstream MatchUpstream, cfg OrchestratorConfig, clk clock.Clock, logger zerolog.Logger) *MatchOrchestrator {
	return &MatchOrchestrator{
		upstream: upstream,
		cfg:      cfg.withDefaults(),
		clock:    clk,
		tracer:   otel.Tracer("lol-tracker/service"),
		logger:   logger,
	}
}

func (o *MatchOrchestrator) MatchLimit() int {
	return o.cfg.MatchLimit
}

// ResolveMatchIDs returns at most limit ids, most recent first.
func (o *MatchOrchestrator) ResolveMatchIDs(ctx context.Context, puuid string, limit int) ([]string, error) {
	if limit <= 0 || limit > o.cfg.MatchLimit {
		limit = o.cfg.MatchLimit
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	ids, err := o.upstream.GetMatchIDs(callCtx, puuid, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to resolve match ids: %w", err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	o.logger.Debug().Str("puuid", puuid).Int("match_count", len(ids)).Msg("resolved match ids")
	return ids, nil
}

// FetchMatchDetail fetches one match and extracts the record for puuid.
func (o *MatchOrchestrator) FetchMatchDetail(ctx context.Context, puuid, matchID string) (domain.MatchParticipantRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	match, err := o.upstream.GetMatch(callCtx, matchID)
	if err != nil {
		return domain.MatchParticipantRecord{}, fmt.Errorf("failed to fetch match %s: %w", matchID, err)
	}
	return ExtractParticipant(match, matchID, puuid)
}

type fetchResult struct {
	record domain.MatchParticipantRecord
	err    error
}

// FetchRecords fetches ids in bounded chunks. Chunk members run concurrently;
// the next chunk waits for the whole previous chunk and, when that chunk was
// full, an extra cooldown. Individual failures are dropped. Cancelling ctx
// aborts the whole collection.
func (o *MatchOrchestrator) FetchRecords(ctx context.Context, puuid string, ids []string) ([]domain.MatchParticipantRecord, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.FetchRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("match.count", len(ids)))

	if len(ids) == 0 {
		return nil, domain.ErrNoMatchHistory
	}

	chunks := Chunk(ids, o.cfg.ChunkSize)
	records := make([]domain.MatchParticipantRecord, 0, len(ids))
	var failed, unavailable int
	var lastErr error

	for i, chunk := range chunks {
		if i > 0 && len(chunks[i-1]) == o.cfg.ChunkSize && o.cfg.Cooldown > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-o.clock.After(o.cfg.Cooldown):
			}
		}

		results := make([]fetchResult, len(chunk))
		var wg sync.WaitGroup
		for j, matchID := range chunk {
			wg.Go(func() {
				rec, err := o.FetchMatchDetail(ctx, puuid, matchID)
				results[j] = fetchResult{record: rec, err: err}
			})
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for j, res := range results {
			if res.err != nil {
				failed++
				lastErr = res.err
				if isSystemic(res.err) {
					unavailable++
				}
				o.logger.Warn().Err(res.err).Str("puuid", puuid).Str("match_id", chunk[j]).Msg("dropping match")
				continue
			}
			records = append(records, res.record)
		}

		o.logger.Debug().
			Str("puuid", puuid).
			Int("chunk", i+1).
			Int("chunks", len(chunks)).
			Int("collected", len(records)).
			Msg("chunk complete")
	}

	if len(records) == 0 {
		// every drop being systemic means the upstream is down, not that the player has no games
		if failed > 0 && unavailable == failed {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, lastErr)
		}
		return nil, domain.ErrNoMatchHistory
	}

	span.SetAttributes(attribute.Int("match.collected", len(records)), attribute.Int("match.dropped", failed))
	return records, nil
}

func isSystemic(err error) bool {
	if errors.Is(err, ErrParticipantMissing) || errors.Is(err, ErrEmptyMatch) {
		return false
	}
	return api.IsUnavailable(err)
}

// Chunk splits ids into consecutive groups of at most size, preserving order.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = constants.DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// ExtractParticipant locates puuid inside match and normalizes its fields.
func ExtractParticipant(match *api.MatchDto, matchID, puuid string) (domain.MatchParticipantRecord, error) {
	if match == nil {
		return domain.MatchParticipantRecord{}, fmt.Errorf("match %s: %w", matchID, ErrEmptyMatch)
	}
	info := match.Info
	if match.Metadata.MatchID != "" {
		matchID = match.Metadata.MatchID
	}

	for _, p := range info.Participants {
		if p.Puuid != puuid {
			continue
		}

		duration := info.GameDuration
		// payloads without gameEndTimestamp report the duration in milliseconds
		if info.GameEndTimestamp == 0 {
			duration /= 1000
		}

		return domain.MatchParticipantRecord{
			MatchID:                  matchID,
			Puuid:                    puuid,
			ChampionName:             p.ChampionName,
			Kills:                    p.Kills,
			Deaths:                   p.Deaths,
			Assists:                  p.Assists,
			Win:                      p.Win,
			GoldEarned:               p.GoldEarned,
			DamageToChampions:        p.TotalDamageDealtToChampions,
			DamageTaken:              p.TotalDamageTaken,
			MinionsKilled:            p.TotalMinionsKilled,
			AllyJungleMinionsKilled:  p.TotalAllyJungleMinionsKilled,
			EnemyJungleMinionsKilled: p.TotalEnemyJungleMinionsKilled,
			GameDurationSeconds:      duration,
			GameCreation:             time.UnixMilli(info.GameCreation).UTC(),
			GameMode:                 info.GameMode,
			QueueID:                  info.QueueID,
			TeamPosition:             p.TeamPosition,
		}, nil
	}

	return domain.MatchParticipantRecord{}, fmt.Errorf("match %s: %w", matchID, ErrParticipantMissing)
}
