package service

import (
	"context"
	"net/http"
	"testing"

	"lol-tracker/internal/api"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRankStandings(t *testing.T) {
	riot := newFakeRiot()
	riot.leagues[testPUUID] = []api.LeagueEntryDto{
		{QueueType: "RANKED_FLEX_SR", Tier: "SILVER", Rank: "I", LeaguePoints: 10, Wins: 3, Losses: 4},
		{QueueType: "RANKED_SOLO_5x5", Tier: "MASTER", Rank: "I", LeaguePoints: 120, Wins: 80, Losses: 60},
	}
	r := NewRankResolver(riot, testOrchestratorConfig(), zerolog.Nop())

	standings, err := r.FetchRankStandings(context.Background(), testPUUID)
	require.NoError(t, err)
	require.Len(t, standings, 2)

	solo := SelectSoloQueue(standings)
	assert.Equal(t, domain.TierMaster, solo.Tier)
	assert.Equal(t, domain.DivisionNone, solo.Division, "apex tiers have no division")
	assert.Equal(t, 120, solo.LeaguePoints)
	assert.Equal(t, 80, solo.Wins)
}

func TestFetchRankStandings_UnknownPlayerIsUnranked(t *testing.T) {
	riot := newFakeRiot()
	riot.leagueErr = &api.StatusError{Op: "league entries", StatusCode: http.StatusNotFound}
	r := NewRankResolver(riot, testOrchestratorConfig(), zerolog.Nop())

	standings, err := r.FetchRankStandings(context.Background(), testPUUID)
	require.NoError(t, err)
	assert.Empty(t, standings)
	assert.False(t, SelectSoloQueue(standings).IsRanked())
}

func TestFetchRankStandings_Unavailable(t *testing.T) {
	riot := newFakeRiot()
	riot.leagueErr = &api.StatusError{Op: "league entries", StatusCode: http.StatusServiceUnavailable}
	r := NewRankResolver(riot, testOrchestratorConfig(), zerolog.Nop())

	_, err := r.FetchRankStandings(context.Background(), testPUUID)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestSelectSoloQueue(t *testing.T) {
	t.Run("flex only", func(t *testing.T) {
		got := SelectSoloQueue([]domain.RankStanding{{QueueType: "RANKED_FLEX_SR", Tier: domain.TierGold}})
		assert.Equal(t, domain.TierUnranked, got.Tier)
		assert.Equal(t, constants.SoloQueueType, got.QueueType)
	})

	t.Run("empty", func(t *testing.T) {
		got := SelectSoloQueue(nil)
		assert.Equal(t, domain.Unranked(constants.SoloQueueType), got)
	})

	t.Run("unknown tier string", func(t *testing.T) {
		riot := newFakeRiot()
		riot.leagues[testPUUID] = []api.LeagueEntryDto{{QueueType: constants.SoloQueueType, Tier: "WOOD", Rank: "IV"}}
		r := NewRankResolver(riot, testOrchestratorConfig(), zerolog.Nop())

		standings, err := r.FetchRankStandings(context.Background(), testPUUID)
		require.NoError(t, err)
		got := SelectSoloQueue(standings)
		assert.Equal(t, domain.TierUnranked, got.Tier)
		assert.Equal(t, domain.DivisionNone, got.Division)
	})
}
