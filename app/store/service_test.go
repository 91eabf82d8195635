package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobylevd/lol-balancer/app/balance"
	"github.com/bobylevd/lol-balancer/app/riot"
)

type fakeRanks struct {
	mu        sync.Mutex
	accounts  map[string]riot.Account // by riot id
	ranks     map[string]riot.Rank    // by puuid
	failures  map[string]error        // by puuid
	forgotten []string
}

func (f *fakeRanks) Account(_ context.Context, gameName, tagLine string) (riot.Account, error) {
	acc, ok := f.accounts[gameName+"#"+tagLine]
	if !ok {
		return riot.Account{}, riot.ErrNotFound
	}
	return acc, nil
}

func (f *fakeRanks) Rank(_ context.Context, puuid string) (riot.Rank, error) {
	if err, ok := f.failures[puuid]; ok {
		return riot.Rank{}, err
	}
	r, ok := f.ranks[puuid]
	if !ok {
		return riot.Rank{}, fmt.Errorf("get summoner %s: %w", puuid, riot.ErrNotFound)
	}
	return r, nil
}

func (f *fakeRanks) Forget(_ context.Context, puuid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, puuid)
	return nil
}

func (f *fakeRanks) ForgetAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, "*")
	return nil
}

func prepService(t *testing.T) (*Service, *fakeRanks) {
	t.Helper()
	ranks := &fakeRanks{
		accounts: map[string]riot.Account{
			"Faker#KR1":  {PUUID: "p1", GameName: "Faker", TagLine: "KR1"},
			"Caps#EUW":   {PUUID: "p2", GameName: "Caps", TagLine: "EUW"},
			"Chovy#KR1":  {PUUID: "p3", GameName: "Chovy", TagLine: "KR1"},
			"Newbie#NA1": {PUUID: "p4", GameName: "Newbie", TagLine: "NA1"},
			"Broken#NA1": {PUUID: "p5", GameName: "Broken", TagLine: "NA1"},
		},
		// p5 is gone upstream, so the lookup fails
		ranks: map[string]riot.Rank{
			"p1": {Tier: balance.Challenger, LeaguePoints: 50},
			"p2": {Tier: balance.Grandmaster, LeaguePoints: 100},
			"p3": {Tier: balance.Master, LeaguePoints: 300},
			"p4": {Tier: balance.Gold, Division: balance.DivisionII, LeaguePoints: 50},
		},
	}
	return &Service{Store: prepStore(t), Ranks: ranks, Concurrency: 2}, ranks
}

func TestService_Register(t *testing.T) {
	svc, _ := prepService(t)
	ctx := context.Background()

	sum, err := svc.Register(ctx, "Faker#KR1")
	require.NoError(t, err)
	assert.Equal(t, Summoner{PUUID: "p1", GameName: "Faker", TagLine: "KR1"}, sum)

	_, err = svc.Register(ctx, "faker#kr1")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Register(ctx, "Ghost#NA1")
	assert.ErrorIs(t, err, riot.ErrNotFound)

	_, err = svc.Register(ctx, "no tag")
	assert.ErrorIs(t, err, ErrBadRiotID)
}

func TestService_RemoveMoveClear(t *testing.T) {
	svc, ranks := prepService(t)
	ctx := context.Background()

	for _, id := range []string{"Faker#KR1", "Caps#EUW"} {
		_, err := svc.Register(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, svc.Move(ctx, "Caps#EUW", balance.Team2))
	entries, err := svc.Roster(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, balance.Team2, entries[1].Team)
	assert.Equal(t, int64(2900), entries[1].Score())

	require.NoError(t, svc.Remove(ctx, "Faker#KR1"))
	assert.ErrorIs(t, svc.Remove(ctx, "Faker#KR1"), ErrNotFound)
	assert.ErrorIs(t, svc.Move(ctx, "Faker#KR1", balance.Team1), ErrNotFound)
	assert.Equal(t, []string{"p1"}, ranks.forgotten)

	require.NoError(t, svc.Clear(ctx))
	entries, err = svc.Roster(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, []string{"p1", "*"}, ranks.forgotten)
}

func TestService_Balance(t *testing.T) {
	svc, _ := prepService(t)
	ctx := context.Background()

	_, _, err := svc.Balance(ctx)
	assert.ErrorIs(t, err, balance.ErrEmptyRoster)

	for _, id := range []string{"Faker#KR1", "Caps#EUW", "Chovy#KR1", "Newbie#NA1", "Broken#NA1"} {
		_, err := svc.Register(ctx, id)
		require.NoError(t, err)
	}

	// scores are 3250, 2900, 2700, 1450 and 0 for the failed lookup,
	// the first best split is {p1, p4} vs {p2, p3, p5} with diff 900
	res, entries, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, bruteBest(entries), res.Diff())
	assert.Equal(t, []string{"p1", "p4"}, res.Team1)
	assert.Equal(t, []string{"p2", "p3", "p5"}, res.Team2)
	assert.Equal(t, int64(900), res.Diff())
	assert.Len(t, entries, 5)

	sums, err := svc.Store.List(ctx)
	require.NoError(t, err)
	for i, sum := range sums {
		assert.Equal(t, res.TeamOf(sum.PUUID), sum.Team, "stored team of %s", sum.PUUID)
		assert.Equal(t, sum.Team, entries[i].Team, "returned team of %s", sum.PUUID)
		assert.NotEqual(t, balance.Unassigned, sum.Team)
	}

	again, _, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestService_BalanceRiotUnavailable(t *testing.T) {
	svc, ranks := prepService(t)
	ctx := context.Background()

	for _, id := range []string{"Faker#KR1", "Caps#EUW", "Chovy#KR1", "Newbie#NA1"} {
		_, err := svc.Register(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, svc.Move(ctx, "Caps#EUW", balance.Team2))

	ranks.failures = map[string]error{"p3": fmt.Errorf("get summoner p3: %w", riot.ErrUpstream)}

	_, _, err := svc.Balance(ctx)
	require.ErrorIs(t, err, riot.ErrUpstream)

	// nothing is committed
	sums, err := svc.Store.List(ctx)
	require.NoError(t, err)
	for _, sum := range sums {
		want := balance.Unassigned
		if sum.PUUID == "p2" {
			want = balance.Team2
		}
		assert.Equal(t, want, sum.Team, "team of %s", sum.PUUID)
	}

	// listing still works, the unavailable summoner shows as unranked
	entries, err := svc.Roster(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, balance.Unranked, entries[2].Rank.Tier)
	assert.Equal(t, int64(0), entries[2].Score())
}

func TestService_BalanceCanceled(t *testing.T) {
	svc, _ := prepService(t)
	_, err := svc.Register(context.Background(), "Faker#KR1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = svc.Balance(ctx)
	assert.Error(t, err)
}

func bruteBest(entries []Entry) int64 {
	best := int64(-1)
	n := len(entries)
	for mask := 1; mask < 1<<n-1; mask++ {
		var s1, s2 int64
		c := 0
		for i, e := range entries {
			if mask&(1<<i) != 0 {
				s1 += e.Score()
				c++
			} else {
				s2 += e.Score()
			}
		}
		if c > balance.MaxTeamSize || n-c > balance.MaxTeamSize {
			continue
		}
		d := s1 - s2
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
