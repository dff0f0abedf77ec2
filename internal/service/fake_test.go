package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"lol-tracker/internal/api"
)

// fakeRiot is an in-memory upstream. Unknown match ids return 404.
type fakeRiot struct {
	mu sync.Mutex

	matchIDs    map[string][]string
	matchIDsErr error
	matches     map[string]*api.MatchDto
	matchErrs   map[string]error
	leagues     map[string][]api.LeagueEntryDto
	leagueErr   error
	accounts    map[string]*api.AccountDto
	summoners   map[string]*api.SummonerDto
	accountErr  error
	summonerErr error

	// gate, when set, blocks GetMatchIDs until closed
	gate chan struct{}
	// leagueGate, when set, blocks GetLeagueEntries until closed
	leagueGate chan struct{}
	// delay makes every GetMatch wait before answering
	delay time.Duration

	matchIDCalls atomic.Int32
	matchCalls   atomic.Int32
	accountCalls atomic.Int32
	leagueCalls  atomic.Int32
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32

	// match ids in the order GetMatch was called
	requested []string
}

func newFakeRiot() *fakeRiot {
	return &fakeRiot{
		matchIDs:  map[string][]string{},
		matches:   map[string]*api.MatchDto{},
		matchErrs: map[string]error{},
		leagues:   map[string][]api.LeagueEntryDto{},
		accounts:  map[string]*api.AccountDto{},
		summoners: map[string]*api.SummonerDto{},
	}
}

func (f *fakeRiot) GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	f.matchIDCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matchIDsErr != nil {
		return nil, f.matchIDsErr
	}
	ids, ok := f.matchIDs[puuid]
	if !ok {
		return []string{}, nil
	}
	if len(ids) > count {
		ids = ids[:count]
	}
	return append([]string(nil), ids...), nil
}

func (f *fakeRiot) GetMatch(ctx context.Context, matchID string) (*api.MatchDto, error) {
	f.matchCalls.Add(1)
	f.mu.Lock()
	f.requested = append(f.requested, matchID)
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.matchErrs[matchID]; ok {
		return nil, err
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, &api.StatusError{Op: "match", StatusCode: http.StatusNotFound}
	}
	return m, nil
}

func (f *fakeRiot) GetLeagueEntries(ctx context.Context, puuid string) ([]api.LeagueEntryDto, error) {
	f.leagueCalls.Add(1)
	if f.leagueGate != nil {
		select {
		case <-f.leagueGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.leagueErr != nil {
		return nil, f.leagueErr
	}
	return f.leagues[puuid], nil
}

func (f *fakeRiot) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*api.AccountDto, error) {
	f.accountCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	acc, ok := f.accounts[gameName+"#"+tagLine]
	if !ok {
		return nil, &api.StatusError{Op: "account", StatusCode: http.StatusNotFound}
	}
	return acc, nil
}

func (f *fakeRiot) GetSummonerByPUUID(ctx context.Context, puuid string) (*api.SummonerDto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summonerErr != nil {
		return nil, f.summonerErr
	}
	s, ok := f.summoners[puuid]
	if !ok {
		return nil, &api.StatusError{Op: "summoner", StatusCode: http.StatusNotFound}
	}
	return s, nil
}

// addMatches registers n matches for puuid with ids EUW1_1..EUW1_n, newest
// first. Odd matches are wins.
func (f *fakeRiot) addMatches(puuid string, n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("EUW1_%d", i)
		ids = append(ids, id)
		f.matches[id] = matchFor(id, puuid, i%2 == 1, int64(1_700_000_000_000-i*3_600_000))
	}
	f.matchIDs[puuid] = ids
	return ids
}

func (f *fakeRiot) requestedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requested...)
}

func matchFor(id, puuid string, win bool, createdMs int64) *api.MatchDto {
	return &api.MatchDto{
		Metadata: api.MatchMetadataDto{MatchID: id, Participants: []string{"other", puuid}},
		Info: api.MatchInfoDto{
			GameCreation:     createdMs,
			GameDuration:     1800,
			GameEndTimestamp: createdMs + 1_800_000,
			GameMode:         "CLASSIC",
			QueueID:          420,
			Participants: []api.ParticipantDto{
				{Puuid: "other", ChampionName: "Garen", Kills: 10},
				{
					Puuid:                        puuid,
					ChampionName:                 "Ahri",
					Win:                          win,
					Kills:                        5,
					Deaths:                       2,
					Assists:                      3,
					GoldEarned:                   11000,
					TotalDamageDealtToChampions:  21000,
					TotalDamageTaken:             14000,
					TotalMinionsKilled:           170,
					TotalAllyJungleMinionsKilled: 8,
					TeamPosition:                 "MIDDLE",
				},
			},
		},
	}
}
