// Package stats reduces fetched match records into a StatsSummary. Everything
// here is pure: same input, same output, no I/O.
package stats

import (
	"math"
	"sort"

	"lol-tracker/internal/domain"
)

// Aggregate builds the summary over every record given. A nil rank is
// reported as Unranked. It returns domain.ErrNoMatchHistory for an empty
// slice rather than averaging over zero samples.
func Aggregate(records []domain.MatchParticipantRecord, rank *domain.RankStanding) (*domain.StatsSummary, error) {
	if len(records) == 0 {
		return nil, domain.ErrNoMatchHistory
	}

	standing := domain.Unranked("")
	if rank != nil && rank.IsRanked() {
		standing = *rank
	}

	var (
		wins, kills, deaths, assists int
		creep, gold, damage, taken   int
		minutes                      float64
	)
	for _, r := range records {
		if r.Win {
			wins++
		}
		kills += r.Kills
		deaths += r.Deaths
		assists += r.Assists
		creep += r.CreepScore()
		gold += r.GoldEarned
		damage += r.DamageToChampions
		taken += r.DamageTaken
		minutes += r.Minutes()
	}

	total := len(records)
	n := float64(total)

	overview := domain.Overview{
		TotalGames:        total,
		Wins:              wins,
		Losses:            total - wins,
		WinRate:           WinRate(wins, total),
		AvgKills:          round(float64(kills)/n, 1),
		AvgDeaths:         round(float64(deaths)/n, 1),
		AvgAssists:        round(float64(assists)/n, 1),
		AvgKDA:            KDA(kills, deaths, assists),
		AvgCreepScore:     round(float64(creep)/n, 1),
		AvgCsPerMinute:    perMinute(creep, minutes),
		AvgGold:           round(float64(gold)/n, 0),
		AvgDamage:         round(float64(damage)/n, 0),
		AvgDamageTaken:    round(float64(taken)/n, 0),
		Tier:              standing.Tier,
		Division:          standing.Division,
		LeaguePoints:      standing.LeaguePoints,
		RankedWins:        standing.Wins,
		RankedLosses:      standing.Losses,
		RankedQueueType:   standing.QueueType,
		RankedGamesPlayed: standing.Wins + standing.Losses,
	}

	return &domain.StatsSummary{
		Puuid:     records[0].Puuid,
		Overview:  overview,
		Champions: championBreakdown(records),
		Matches:   history(records),
	}, nil
}

// KDA is (kills+assists)/deaths over the totals, rounded to 2 places. A
// deathless run scores kills+assists.
func KDA(kills, deaths, assists int) float64 {
	if deaths == 0 {
		return float64(kills + assists)
	}
	return round(float64(kills+assists)/float64(deaths), 2)
}

// WinRate is a whole percentage; zero games yields 0.
func WinRate(wins, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round(float64(wins)/float64(total)*100, 0)
}

func perMinute(creep int, minutes float64) float64 {
	if minutes <= 0 {
		return 0
	}
	return round(float64(creep)/minutes, 1)
}

// history orders matches newest first. Fetch order is chunk based, so the
// sort is required. Ties fall back to match id for a stable result.
func history(records []domain.MatchParticipantRecord) []domain.MatchSummary {
	sorted := make([]domain.MatchParticipantRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].GameCreation.Equal(sorted[j].GameCreation) {
			return sorted[i].GameCreation.After(sorted[j].GameCreation)
		}
		return sorted[i].MatchID > sorted[j].MatchID
	})

	out := make([]domain.MatchSummary, len(sorted))
	for i, r := range sorted {
		out[i] = domain.MatchSummary{
			MatchID:         r.MatchID,
			GameMode:        r.GameMode,
			DurationSeconds: r.GameDurationSeconds,
			PlayedAt:        r.GameCreation,
			Record:          r,
		}
	}
	return out
}

type championTotals struct {
	games, wins, kills, deaths, assists, creep int
	minutes                                    float64
}

func championBreakdown(records []domain.MatchParticipantRecord) []domain.ChampionStats {
	totals := make(map[string]*championTotals)
	for _, r := range records {
		name := r.ChampionName
		if name == "" {
			name = "Unknown"
		}
		t, ok := totals[name]
		if !ok {
			t = &championTotals{}
			totals[name] = t
		}
		t.games++
		if r.Win {
			t.wins++
		}
		t.kills += r.Kills
		t.deaths += r.Deaths
		t.assists += r.Assists
		t.creep += r.CreepScore()
		t.minutes += r.Minutes()
	}

	out := make([]domain.ChampionStats, 0, len(totals))
	for name, t := range totals {
		out = append(out, domain.ChampionStats{
			ChampionName: name,
			Games:        t.games,
			Wins:         t.wins,
			WinRate:      WinRate(t.wins, t.games),
			KDA:          KDA(t.kills, t.deaths, t.assists),
			AvgCsPerMin:  perMinute(t.creep, t.minutes),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].ChampionName < out[j].ChampionName
	})
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
