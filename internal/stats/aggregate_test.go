package stats

import (
	"testing"
	"time"

	"lol-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id string, win bool, k, d, a int, played time.Time) domain.MatchParticipantRecord {
	return domain.MatchParticipantRecord{
		MatchID:             id,
		Puuid:               "puuid-1",
		ChampionName:        "Ahri",
		Kills:               k,
		Deaths:              d,
		Assists:             a,
		Win:                 win,
		GoldEarned:          10000,
		DamageToChampions:   20000,
		DamageTaken:         15000,
		MinionsKilled:       150,
		GameDurationSeconds: 1800,
		GameCreation:        played,
		GameMode:            "CLASSIC",
		QueueID:             420,
	}
}

func TestAggregate_Overview(t *testing.T) {
	records := []domain.MatchParticipantRecord{
		record("EUW1_1", true, 5, 2, 3, base),
		record("EUW1_2", true, 2, 0, 10, base.Add(time.Hour)),
		record("EUW1_3", false, 1, 5, 2, base.Add(2*time.Hour)),
	}

	summary, err := Aggregate(records, nil)
	require.NoError(t, err)

	o := summary.Overview
	assert.Equal(t, 3, o.TotalGames)
	assert.Equal(t, 2, o.Wins)
	assert.Equal(t, 1, o.Losses)
	assert.Equal(t, 67.0, o.WinRate)
	assert.Equal(t, 3.29, o.AvgKDA)
	assert.Equal(t, 2.7, o.AvgKills)
	assert.Equal(t, 2.3, o.AvgDeaths)
	assert.Equal(t, 5.0, o.AvgAssists)
	assert.Equal(t, 150.0, o.AvgCreepScore)
	assert.Equal(t, 5.0, o.AvgCsPerMinute)
	assert.Equal(t, 10000.0, o.AvgGold)
	assert.Equal(t, domain.TierUnranked, o.Tier)
	assert.Equal(t, "puuid-1", summary.Puuid)
	assert.True(t, summary.GeneratedAt.IsZero())
}

func TestAggregate_Rank(t *testing.T) {
	rank := &domain.RankStanding{
		QueueType:    "RANKED_SOLO_5x5",
		Tier:         domain.TierGold,
		Division:     domain.DivisionII,
		LeaguePoints: 45,
		Wins:         30,
		Losses:       25,
	}

	summary, err := Aggregate([]domain.MatchParticipantRecord{record("EUW1_1", true, 1, 1, 1, base)}, rank)
	require.NoError(t, err)

	o := summary.Overview
	assert.Equal(t, domain.TierGold, o.Tier)
	assert.Equal(t, domain.DivisionII, o.Division)
	assert.Equal(t, 45, o.LeaguePoints)
	assert.Equal(t, 55, o.RankedGamesPlayed)
	assert.Equal(t, "RANKED_SOLO_5x5", o.RankedQueueType)
}

func TestAggregate_UnrankedStandingIsIgnored(t *testing.T) {
	rank := domain.Unranked("RANKED_SOLO_5x5")
	summary, err := Aggregate([]domain.MatchParticipantRecord{record("EUW1_1", true, 1, 1, 1, base)}, &rank)
	require.NoError(t, err)
	assert.Equal(t, domain.TierUnranked, summary.Overview.Tier)
	assert.Zero(t, summary.Overview.RankedGamesPlayed)
}

func TestAggregate_Empty(t *testing.T) {
	summary, err := Aggregate(nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoMatchHistory)
	assert.Nil(t, summary)
}

func TestAggregate_HistoryNewestFirst(t *testing.T) {
	records := []domain.MatchParticipantRecord{
		record("EUW1_2", true, 1, 1, 1, base.Add(time.Hour)),
		record("EUW1_1", true, 1, 1, 1, base),
		record("EUW1_4", false, 1, 1, 1, base.Add(3*time.Hour)),
		record("EUW1_3", false, 1, 1, 1, base.Add(3*time.Hour)),
	}

	summary, err := Aggregate(records, nil)
	require.NoError(t, err)

	ids := make([]string, 0, len(summary.Matches))
	for _, m := range summary.Matches {
		ids = append(ids, m.MatchID)
	}
	assert.Equal(t, []string{"EUW1_4", "EUW1_3", "EUW1_2", "EUW1_1"}, ids)
	// input untouched
	assert.Equal(t, "EUW1_2", records[0].MatchID)
}

func TestAggregate_Idempotent(t *testing.T) {
	records := []domain.MatchParticipantRecord{
		record("EUW1_1", true, 5, 2, 3, base),
		record("EUW1_2", false, 0, 4, 1, base.Add(time.Hour)),
	}

	first, err := Aggregate(records, nil)
	require.NoError(t, err)
	second, err := Aggregate(records, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregate_ChampionBreakdown(t *testing.T) {
	lux := record("EUW1_3", false, 2, 2, 2, base)
	lux.ChampionName = "Lux"
	zed := record("EUW1_4", true, 2, 2, 2, base)
	zed.ChampionName = "Zed"
	records := []domain.MatchParticipantRecord{
		record("EUW1_1", true, 4, 1, 0, base),
		record("EUW1_2", false, 0, 1, 0, base),
		zed,
		lux,
	}

	summary, err := Aggregate(records, nil)
	require.NoError(t, err)
	require.Len(t, summary.Champions, 3)

	assert.Equal(t, "Ahri", summary.Champions[0].ChampionName)
	assert.Equal(t, 2, summary.Champions[0].Games)
	assert.Equal(t, 50.0, summary.Champions[0].WinRate)
	assert.Equal(t, 2.0, summary.Champions[0].KDA)
	assert.Equal(t, "Lux", summary.Champions[1].ChampionName)
	assert.Equal(t, "Zed", summary.Champions[2].ChampionName)
}

func TestKDA(t *testing.T) {
	tests := []struct {
		name                   string
		kills, deaths, assists int
		want                   float64
	}{
		{"deathless", 7, 0, 9, 16},
		{"zero everything", 0, 0, 0, 0},
		{"rounds to two places", 8, 7, 15, 3.29},
		{"exact", 4, 2, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KDA(tt.kills, tt.deaths, tt.assists))
		})
	}
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.0, WinRate(0, 0))
	assert.Equal(t, 100.0, WinRate(5, 5))
	assert.Equal(t, 33.0, WinRate(1, 3))
	assert.Equal(t, 67.0, WinRate(2, 3))
}
