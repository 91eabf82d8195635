package riot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobylevd/lol-balancer/app/balance"
	"github.com/bobylevd/lol-balancer/app/cache"
)

type fakeRiot struct {
	calls       atomic.Int32
	leagueFails atomic.Bool
	versionsErr bool
}

func (f *fakeRiot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	if r.URL.Path != "/api/versions.json" && r.Header.Get("X-Riot-Token") != "secret" {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	switch r.URL.Path {
	case "/riot/account/v1/accounts/by-riot-id/Faker/KR1":
		write(Account{PUUID: "puuid-faker", GameName: "Faker", TagLine: "KR1"})
	case "/riot/account/v1/accounts/by-riot-id/Slow/EUW":
		w.WriteHeader(http.StatusTooManyRequests)
	case "/lol/summoner/v4/summoners/by-puuid/puuid-faker":
		write(Summoner{ID: "s1", PUUID: "puuid-faker", ProfileIconID: 6, SummonerLevel: 700})
	case "/lol/summoner/v4/summoners/by-puuid/puuid-new":
		write(Summoner{ID: "s2", PUUID: "puuid-new", ProfileIconID: 1, SummonerLevel: 30})
	case "/lol/summoner/v4/summoners/by-puuid/puuid-down":
		w.WriteHeader(http.StatusServiceUnavailable)
	case "/lol/league/v4/entries/by-puuid/puuid-faker":
		if f.leagueFails.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		write([]LeagueEntry{
			{QueueType: "RANKED_FLEX_SR", Tier: "GOLD", Rank: "I", LeaguePoints: 1},
			{QueueType: SoloQueue, Tier: "CHALLENGER", Rank: "I", LeaguePoints: 50, Wins: 30, Losses: 10},
		})
	case "/lol/league/v4/entries/by-puuid/puuid-new":
		write([]LeagueEntry{})
	case "/api/versions.json":
		if f.versionsErr {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		write([]string{"14.20.1", "14.19.1"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeRiot) *Client {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)

	return New(Opts{
		APIKey:      "secret",
		AccountURL:  ts.URL,
		PlatformURL: ts.URL,
		DDragonURL:  ts.URL,
		RPS:         1000,
		Burst:       100,
		Cache:       cache.NewMemory(),
	})
}

func TestClient_Account(t *testing.T) {
	c := newTestClient(t, &fakeRiot{})
	ctx := context.Background()

	acc, err := c.Account(ctx, "Faker", "KR1")
	require.NoError(t, err)
	assert.Equal(t, "puuid-faker", acc.PUUID)
	assert.Equal(t, "Faker#KR1", acc.RiotID())

	_, err = c.Account(ctx, "Nobody", "NA1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Account(ctx, "Slow", "EUW")
	assert.ErrorIs(t, err, ErrRateLimited)

	c.APIKey = "wrong"
	_, err = c.Account(ctx, "Faker", "KR1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestClient_Rank(t *testing.T) {
	f := &fakeRiot{}
	c := newTestClient(t, f)
	ctx := context.Background()

	r, err := c.Rank(ctx, "puuid-faker")
	require.NoError(t, err)
	assert.Equal(t, Rank{
		Tier:          balance.Challenger,
		Division:      balance.DivisionI,
		LeaguePoints:  50,
		Wins:          30,
		Losses:        10,
		Level:         700,
		ProfileIconID: 6,
	}, r)
	assert.Equal(t, 75, r.WinRate())

	t.Run("served from cache", func(t *testing.T) {
		before := f.calls.Load()
		cached, err := c.Rank(ctx, "puuid-faker")
		require.NoError(t, err)
		assert.Equal(t, r, cached)
		assert.Equal(t, before, f.calls.Load())
	})

	t.Run("forget refetches", func(t *testing.T) {
		require.NoError(t, c.Forget(ctx, "puuid-faker"))
		f.leagueFails.Store(true)
		before := f.calls.Load()

		r, err := c.Rank(ctx, "puuid-faker")
		require.NoError(t, err)
		assert.Equal(t, UnrankedRank(700).Tier, r.Tier)
		assert.Equal(t, int64(700), r.Level)
		assert.Greater(t, f.calls.Load(), before)
	})

	t.Run("no solo queue entry", func(t *testing.T) {
		r, err := c.Rank(ctx, "puuid-new")
		require.NoError(t, err)
		assert.Equal(t, balance.Unranked, r.Tier)
		assert.Equal(t, int64(30), r.Level)
		assert.Zero(t, r.WinRate())
	})

	t.Run("unknown summoner", func(t *testing.T) {
		_, err := c.Rank(ctx, "puuid-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("forget all", func(t *testing.T) {
		require.NoError(t, c.ForgetAll(ctx))
		_, ok, err := c.Cache.Get(ctx, rankKeyPrefix+"puuid-new")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestClient_LatestVersion(t *testing.T) {
	t.Run("fetched and cached", func(t *testing.T) {
		f := &fakeRiot{}
		c := newTestClient(t, f)
		ctx := context.Background()

		assert.Equal(t, "14.20.1", c.LatestVersion(ctx))
		calls := f.calls.Load()
		assert.Equal(t, c.DDragonURL+"/cdn/14.20.1/img/profileicon/6.png", c.IconURL(ctx, 6))
		assert.Equal(t, calls, f.calls.Load())
	})

	t.Run("fallback", func(t *testing.T) {
		c := newTestClient(t, &fakeRiot{versionsErr: true})
		assert.Equal(t, FallbackVersion, c.LatestVersion(context.Background()))
	})
}

func TestClient_LatestVersionFallbackCached(t *testing.T) {
	f := &fakeRiot{versionsErr: true}
	c := newTestClient(t, f)
	ttls := &ttlCache{Store: c.Cache, ttls: map[string]time.Duration{}}
	c.Cache = ttls
	ctx := context.Background()

	assert.Equal(t, FallbackVersion, c.LatestVersion(ctx))
	calls := f.calls.Load()
	for i := 0; i < 5; i++ {
		assert.Equal(t, c.DDragonURL+"/cdn/"+FallbackVersion+"/img/profileicon/1.png", c.IconURL(ctx, 1))
	}
	assert.Equal(t, calls, f.calls.Load(), "fallback version is served from cache")
	assert.Equal(t, fallbackTTL, ttls.ttl(versionKey))
}

func TestClient_DDragonOutageKeepsAPIAvailable(t *testing.T) {
	f := &fakeRiot{versionsErr: true}
	c := newTestClient(t, f)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Cache.Delete(ctx, versionKey))
		assert.Equal(t, FallbackVersion, c.LatestVersion(ctx))
	}
	assert.Equal(t, gobreaker.StateOpen, c.ddragon.State())
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())

	r, err := c.Rank(ctx, "puuid-faker")
	require.NoError(t, err)
	assert.Equal(t, balance.Challenger, r.Tier)
}

func TestClient_BreakerOpensOnUpstreamFailures(t *testing.T) {
	c := newTestClient(t, &fakeRiot{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Summoner(ctx, "puuid-down")
		assert.ErrorIs(t, err, ErrUpstream)
	}

	_, err := c.Summoner(ctx, "puuid-down")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, ErrUpstream)

	// rank is not degraded when the profile can't be fetched at all
	_, err = c.Rank(ctx, "puuid-faker")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_NotFoundKeepsBreakerClosed(t *testing.T) {
	c := newTestClient(t, &fakeRiot{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Account(ctx, "Nobody", "NA1")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}

type ttlCache struct {
	cache.Store
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func (c *ttlCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.ttls[key] = ttl
	c.mu.Unlock()
	return c.Store.Set(ctx, key, value, ttl)
}

func (c *ttlCache) ttl(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}
