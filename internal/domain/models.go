package domain

import (
	"time"
)

type Player struct {
	Puuid         string
	GameName      string
	TagLine       string
	ProfileIconID int
	SummonerLevel int64
	LastFetchAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p Player) RiotID() string {
	return p.GameName + "#" + p.TagLine
}

// MatchParticipantRecord is one player's line in one match.
type MatchParticipantRecord struct {
	MatchID                  string
	Puuid                    string
	ChampionName             string
	Kills                    int
	Deaths                   int
	Assists                  int
	Win                      bool
	GoldEarned               int
	DamageToChampions        int
	DamageTaken              int
	MinionsKilled            int
	AllyJungleMinionsKilled  int
	EnemyJungleMinionsKilled int
	GameDurationSeconds      int64
	GameCreation             time.Time // UTC
	GameMode                 string
	QueueID                  int
	TeamPosition             string
}

// CreepScore counts lane minions plus jungle camps on either side of the map.
func (r MatchParticipantRecord) CreepScore() int {
	return r.MinionsKilled + r.AllyJungleMinionsKilled + r.EnemyJungleMinionsKilled
}

func (r MatchParticipantRecord) Minutes() float64 {
	return float64(r.GameDurationSeconds) / 60
}

type RankStanding struct {
	QueueType    string
	Tier         Tier
	Division     Division
	LeaguePoints int
	Wins         int
	Losses       int
}

func Unranked(queueType string) RankStanding {
	return RankStanding{QueueType: queueType, Tier: TierUnranked}
}

func (r RankStanding) IsRanked() bool {
	return r.Tier != TierUnranked && r.Tier != ""
}

type Overview struct {
	TotalGames        int
	Wins              int
	Losses            int
	WinRate           float64
	AvgKills          float64
	AvgDeaths         float64
	AvgAssists        float64
	AvgKDA            float64
	AvgCreepScore     float64
	AvgCsPerMinute    float64
	AvgGold           float64
	AvgDamage         float64
	AvgDamageTaken    float64
	Tier              Tier
	Division          Division
	LeaguePoints      int
	RankedWins        int
	RankedLosses      int
	RankedQueueType   string
	RankedGamesPlayed int
}

type ChampionStats struct {
	ChampionName string
	Games        int
	Wins         int
	WinRate      float64
	KDA          float64
	AvgCsPerMin  float64
}

type MatchSummary struct {
	MatchID         string
	GameMode        string
	DurationSeconds int64
	PlayedAt        time.Time
	Record          MatchParticipantRecord
}

// StatsSummary is built once per cache fill and never mutated afterwards.
// Copies handed out as stale fallbacks carry IsStale.
type StatsSummary struct {
	Puuid       string
	Overview    Overview
	Champions   []ChampionStats
	Matches     []MatchSummary
	GeneratedAt time.Time
	IsStale     bool
}
