package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var ErrPlayerNotFound = errors.New("player not found")

const playerColumns = `puuid, game_name, tag_line, profile_icon_id, summoner_level, last_fetch_at, created_at, updated_at`

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(db *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: db, logger: logger}
}

func (r *PlayerRepository) Get(ctx context.Context, puuid string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE puuid = ?`, puuid)
	return scanPlayer(row)
}

// GetByRiotID matches game name and tag line case-insensitively.
func (r *PlayerRepository) GetByRiotID(ctx context.Context, gameName, tagLine string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_name_key = ? AND tag_line_key = ?`,
		riotIDKey(gameName), riotIDKey(tagLine),
	)
	return scanPlayer(row)
}

func (r *PlayerRepository) Upsert(ctx context.Context, player *domain.Player) error {
	now := time.Now().UTC()
	if player.CreatedAt.IsZero() {
		player.CreatedAt = now
	}
	player.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// a renamed account frees its old riot id for whoever claims it next
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM players WHERE game_name_key = ? AND tag_line_key = ? AND puuid <> ?`,
		riotIDKey(player.GameName), riotIDKey(player.TagLine), player.Puuid,
	); err != nil {
		return fmt.Errorf("failed to release riot id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (
			puuid, game_name, tag_line, game_name_key, tag_line_key,
			profile_icon_id, summoner_level, last_fetch_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (puuid) DO UPDATE SET
			game_name = excluded.game_name,
			tag_line = excluded.tag_line,
			game_name_key = excluded.game_name_key,
			tag_line_key = excluded.tag_line_key,
			profile_icon_id = excluded.profile_icon_id,
			summoner_level = excluded.summoner_level,
			last_fetch_at = excluded.last_fetch_at,
			updated_at = excluded.updated_at`,
		player.Puuid, player.GameName, player.TagLine,
		riotIDKey(player.GameName), riotIDKey(player.TagLine),
		player.ProfileIconID, player.SummonerLevel,
		player.LastFetchAt.UTC(), player.CreatedAt.UTC(), player.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("puuid", player.Puuid).Msg("failed to upsert player")
		return fmt.Errorf("failed to upsert player: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit player: %w", err)
	}
	return nil
}

// ShouldRefresh reports whether the stored profile is older than ttl, or
// missing altogether.
func (r *PlayerRepository) ShouldRefresh(ctx context.Context, puuid string, ttl time.Duration) (bool, error) {
	var lastFetchAt time.Time
	err := r.db.QueryRowContext(ctx, `SELECT last_fetch_at FROM players WHERE puuid = ?`, puuid).Scan(&lastFetchAt)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Debug().Str("puuid", puuid).Msg("player not found, should refresh")
		return true, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("puuid", puuid).Msg("failed to get player")
		return false, err
	}

	timeSince := time.Since(lastFetchAt)
	shouldRefresh := timeSince > ttl
	r.logger.Debug().
		Str("puuid", puuid).
		Time("last_fetch_at", lastFetchAt).
		Dur("time_since", timeSince).
		Dur("ttl", ttl).
		Bool("should_refresh", shouldRefresh).
		Msg("checking if player should refresh")

	return shouldRefresh, nil
}

func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

func scanPlayer(row *sql.Row) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(
		&p.Puuid, &p.GameName, &p.TagLine, &p.ProfileIconID, &p.SummonerLevel,
		&p.LastFetchAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return &p, nil
}

func riotIDKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
