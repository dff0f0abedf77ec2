package server

import (
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/cache"
	"lol-tracker/internal/domain"
)

type StatsRequest struct {
	Puuid string `json:"puuid"`
}

type StatsResponse struct {
	HasHistory bool             `json:"has_history"`
	Summary    *SummaryResponse `json:"summary,omitempty"`
}

type SummaryResponse struct {
	Puuid       string             `json:"puuid"`
	Overview    OverviewResponse   `json:"overview"`
	Champions   []ChampionResponse `json:"champions"`
	Matches     []MatchResponse    `json:"matches"`
	GeneratedAt time.Time          `json:"generated_at"`
	IsStale     bool               `json:"is_stale"`
}

type OverviewResponse struct {
	TotalGames     int     `json:"total_games"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	AvgKills       float64 `json:"avg_kills"`
	AvgDeaths      float64 `json:"avg_deaths"`
	AvgAssists     float64 `json:"avg_assists"`
	AvgKDA         float64 `json:"avg_kda"`
	AvgCreepScore  float64 `json:"avg_cs"`
	AvgCsPerMinute float64 `json:"avg_cs_per_minute"`
	AvgGold        float64 `json:"avg_gold"`
	AvgDamage      float64 `json:"avg_damage"`
	AvgDamageTaken float64 `json:"avg_damage_taken"`

	Rank RankResponse `json:"rank"`
}

type RankResponse struct {
	QueueType    string `json:"queue_type,omitempty"`
	Tier         string `json:"tier"`
	Division     string `json:"division,omitempty"`
	LeaguePoints int    `json:"league_points"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	GamesPlayed  int    `json:"games_played"`
}

type ChampionResponse struct {
	ChampionName string  `json:"champion_name"`
	Games        int     `json:"games"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	KDA          float64 `json:"kda"`
	CsPerMinute  float64 `json:"cs_per_minute"`
}

type MatchResponse struct {
	MatchID         string    `json:"match_id"`
	ChampionName    string    `json:"champion_name"`
	GameMode        string    `json:"game_mode"`
	QueueID         int       `json:"queue_id"`
	TeamPosition    string    `json:"team_position,omitempty"`
	Win             bool      `json:"win"`
	Kills           int       `json:"kills"`
	Deaths          int       `json:"deaths"`
	Assists         int       `json:"assists"`
	CreepScore      int       `json:"cs"`
	GoldEarned      int       `json:"gold_earned"`
	Damage          int       `json:"damage"`
	DurationSeconds int64     `json:"duration_seconds"`
	PlayedAt        time.Time `json:"played_at"`
}

type ResolvePlayerRequest struct {
	GameName string `json:"game_name"`
	TagLine  string `json:"tag_line"`
	Refresh  bool   `json:"refresh"`
}

type PlayerResponse struct {
	Puuid         string    `json:"puuid"`
	GameName      string    `json:"game_name"`
	TagLine       string    `json:"tag_line"`
	ProfileIconID int       `json:"profile_icon_id"`
	SummonerLevel int64     `json:"summoner_level"`
	LastFetchAt   time.Time `json:"last_fetch_at"`
}

type InvalidateResponse struct{}

type FollowResponse struct {
	JobID string `json:"job_id"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Cache     cache.Stats       `json:"cache"`
	RateLimit api.RateLimitInfo `json:"rate_limit"`
	Refreshes int               `json:"pending_refreshes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toSummaryResponse(s *domain.StatsSummary) *SummaryResponse {
	o := s.Overview
	resp := &SummaryResponse{
		Puuid: s.Puuid,
		Overview: OverviewResponse{
			TotalGames:     o.TotalGames,
			Wins:           o.Wins,
			Losses:         o.Losses,
			WinRate:        o.WinRate,
			AvgKills:       o.AvgKills,
			AvgDeaths:      o.AvgDeaths,
			AvgAssists:     o.AvgAssists,
			AvgKDA:         o.AvgKDA,
			AvgCreepScore:  o.AvgCreepScore,
			AvgCsPerMinute: o.AvgCsPerMinute,
			AvgGold:        o.AvgGold,
			AvgDamage:      o.AvgDamage,
			AvgDamageTaken: o.AvgDamageTaken,
			Rank: RankResponse{
				QueueType:    o.RankedQueueType,
				Tier:         string(o.Tier),
				Division:     string(o.Division),
				LeaguePoints: o.LeaguePoints,
				Wins:         o.RankedWins,
				Losses:       o.RankedLosses,
				GamesPlayed:  o.RankedGamesPlayed,
			},
		},
		Champions:   make([]ChampionResponse, 0, len(s.Champions)),
		Matches:     make([]MatchResponse, 0, len(s.Matches)),
		GeneratedAt: s.GeneratedAt,
		IsStale:     s.IsStale,
	}

	for _, c := range s.Champions {
		resp.Champions = append(resp.Champions, ChampionResponse{
			ChampionName: c.ChampionName,
			Games:        c.Games,
			Wins:         c.Wins,
			WinRate:      c.WinRate,
			KDA:          c.KDA,
			CsPerMinute:  c.AvgCsPerMin,
		})
	}
	for _, m := range s.Matches {
		r := m.Record
		resp.Matches = append(resp.Matches, MatchResponse{
			MatchID:         m.MatchID,
			ChampionName:    r.ChampionName,
			GameMode:        m.GameMode,
			QueueID:         r.QueueID,
			TeamPosition:    r.TeamPosition,
			Win:             r.Win,
			Kills:           r.Kills,
			Deaths:          r.Deaths,
			Assists:         r.Assists,
			CreepScore:      r.CreepScore(),
			GoldEarned:      r.GoldEarned,
			Damage:          r.DamageToChampions,
			DurationSeconds: m.DurationSeconds,
			PlayedAt:        m.PlayedAt,
		})
	}
	return resp
}

func toPlayerResponse(p *domain.Player) *PlayerResponse {
	return &PlayerResponse{
		Puuid:         p.Puuid,
		GameName:      p.GameName,
		TagLine:       p.TagLine,
		ProfileIconID: p.ProfileIconID,
		SummonerLevel: p.SummonerLevel,
		LastFetchAt:   p.LastFetchAt,
	}
}
