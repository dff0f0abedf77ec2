package service

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/database"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	puuids []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, puuid string) error {
	r.puuids = append(r.puuids, puuid)
	return nil
}

func newTestPlayerService(t *testing.T, riot *fakeRiot) (*PlayerService, *repository.PlayerRepository) {
	svc, repo, _ := newTestPlayerServiceWithStats(t, riot)
	return svc, repo
}

func newTestPlayerServiceWithStats(t *testing.T, riot *fakeRiot) (*PlayerService, *repository.PlayerRepository, *recordingInvalidator) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "players.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewPlayerRepository(db, zerolog.Nop())
	stats := &recordingInvalidator{}
	return NewPlayerService(riot, repo, stats, testOrchestratorConfig(), zerolog.Nop()), repo, stats
}

func riotWithFaker() *fakeRiot {
	riot := newFakeRiot()
	riot.accounts["Faker#KR1"] = &api.AccountDto{Puuid: testPUUID, GameName: "Faker", TagLine: "KR1"}
	riot.summoners[testPUUID] = &api.SummonerDto{Puuid: testPUUID, ProfileIconID: 6, SummonerLevel: 800}
	return riot
}

func TestResolvePlayer_FetchesAndStores(t *testing.T) {
	riot := riotWithFaker()
	svc, repo := newTestPlayerService(t, riot)

	player, err := svc.ResolvePlayer(context.Background(), "Faker", "KR1", false)
	require.NoError(t, err)
	assert.Equal(t, testPUUID, player.Puuid)
	assert.Equal(t, int64(800), player.SummonerLevel)
	assert.Equal(t, 6, player.ProfileIconID)

	stored, err := repo.Get(context.Background(), testPUUID)
	require.NoError(t, err)
	assert.Equal(t, "Faker#KR1", stored.RiotID())
}

func TestResolvePlayer_UsesStoredProfile(t *testing.T) {
	riot := riotWithFaker()
	svc, _ := newTestPlayerService(t, riot)

	_, err := svc.ResolvePlayer(context.Background(), "Faker", "KR1", false)
	require.NoError(t, err)

	player, err := svc.ResolvePlayer(context.Background(), "faker", "kr1", false)
	require.NoError(t, err)
	assert.Equal(t, testPUUID, player.Puuid)
	assert.Equal(t, int32(1), riot.accountCalls.Load())

	_, err = svc.ResolvePlayer(context.Background(), "Faker", "KR1", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), riot.accountCalls.Load(), "refresh bypasses the stored profile")
}

func TestResolvePlayer_RefetchesStaleProfile(t *testing.T) {
	riot := riotWithFaker()
	svc, repo := newTestPlayerService(t, riot)

	require.NoError(t, repo.Upsert(context.Background(), &domain.Player{
		Puuid:       testPUUID,
		GameName:    "Faker",
		TagLine:     "KR1",
		LastFetchAt: time.Now().Add(-25 * time.Hour).UTC(),
	}))

	player, err := svc.ResolvePlayer(context.Background(), "Faker", "KR1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(800), player.SummonerLevel)
	assert.Equal(t, int32(1), riot.accountCalls.Load())
}

func TestResolvePlayer_Unknown(t *testing.T) {
	svc, _ := newTestPlayerService(t, newFakeRiot())

	_, err := svc.ResolvePlayer(context.Background(), "Nobody", "EUW", false)
	assert.ErrorIs(t, err, domain.ErrPlayerNotResolvable)
}

func TestResolvePlayer_UpstreamDownServesStored(t *testing.T) {
	riot := riotWithFaker()
	svc, _ := newTestPlayerService(t, riot)

	_, err := svc.ResolvePlayer(context.Background(), "Faker", "KR1", false)
	require.NoError(t, err)

	riot.accountErr = &api.StatusError{Op: "account", StatusCode: http.StatusServiceUnavailable}

	player, err := svc.ResolvePlayer(context.Background(), "Faker", "KR1", true)
	require.NoError(t, err)
	assert.Equal(t, testPUUID, player.Puuid)

	_, err = svc.ResolvePlayer(context.Background(), "Other", "EUW", false)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestResolvePlayer_Validation(t *testing.T) {
	svc, _ := newTestPlayerService(t, newFakeRiot())

	_, err := svc.ResolvePlayer(context.Background(), "ab", "EUW", false)
	assert.ErrorIs(t, err, domain.ErrInvalidRiotID)

	_, err = svc.ResolvePlayer(context.Background(), "Faker", "%zz", false)
	assert.ErrorIs(t, err, domain.ErrInvalidRiotID)
}

func TestResolvePlayer_EscapedInput(t *testing.T) {
	riot := newFakeRiot()
	riot.accounts["Hide on bush#KR1"] = &api.AccountDto{Puuid: testPUUID, GameName: "Hide on bush", TagLine: "KR1"}
	riot.summoners[testPUUID] = &api.SummonerDto{Puuid: testPUUID, SummonerLevel: 1}
	svc, _ := newTestPlayerService(t, riot)

	player, err := svc.ResolvePlayer(context.Background(), "Hide%20on%20bush", "%23KR1", false)
	require.NoError(t, err)
	assert.Equal(t, "Hide on bush", player.GameName)
}

func TestGetPlayer(t *testing.T) {
	riot := riotWithFaker()
	svc, _ := newTestPlayerService(t, riot)

	_, err := svc.GetPlayer(context.Background(), testPUUID)
	assert.ErrorIs(t, err, domain.ErrPlayerNotResolvable)

	_, err = svc.ResolvePlayer(context.Background(), "Faker", "KR1", false)
	require.NoError(t, err)

	player, err := svc.GetPlayer(context.Background(), testPUUID)
	require.NoError(t, err)
	assert.Equal(t, "Faker", player.GameName)
}

func TestResolvePlayer_RelinkInvalidatesOldStats(t *testing.T) {
	riot := riotWithFaker()
	svc, repo, stats := newTestPlayerServiceWithStats(t, riot)

	_, err := svc.ResolvePlayer(context.Background(), "Faker", "KR1", false)
	require.NoError(t, err)
	assert.Empty(t, stats.puuids)

	// the Riot ID now belongs to another account
	const newPUUID = "puuid-test-2"
	riot.mu.Lock()
	riot.accounts["Faker#KR1"] = &api.AccountDto{Puuid: newPUUID, GameName: "Faker", TagLine: "KR1"}
	riot.summoners[newPUUID] = &api.SummonerDto{Puuid: newPUUID, SummonerLevel: 30}
	riot.mu.Unlock()

	player, err := svc.ResolvePlayer(context.Background(), "Faker", "KR1", true)
	require.NoError(t, err)
	assert.Equal(t, newPUUID, player.Puuid)
	assert.Equal(t, []string{testPUUID}, stats.puuids)

	_, err = repo.Get(context.Background(), testPUUID)
	assert.ErrorIs(t, err, repository.ErrPlayerNotFound)

	// a plain refresh of the same account leaves the cache alone
	_, err = svc.ResolvePlayer(context.Background(), "Faker", "KR1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{testPUUID}, stats.puuids)
}
