package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bobylevd/lol-balancer/app/cache"
)

// Errors returned by the Riot API client.
var (
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("invalid api key")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUpstream    = errors.New("riot api failure")
)

// FallbackVersion is used for icon URLs when the latest data dragon
// version can't be fetched.
const FallbackVersion = "13.9.1"

const (
	rankKeyPrefix = "rank:"
	versionKey    = "ddragon:version"

	// fallbackTTL keeps a failing data dragon from being asked on every
	// roster view.
	fallbackTTL = 5 * time.Minute
)

// Opts defines the client configuration.
type Opts struct {
	APIKey      string
	AccountURL  string // regional routing, e.g. https://americas.api.riotgames.com
	PlatformURL string // platform routing, e.g. https://na1.api.riotgames.com
	DDragonURL  string
	RPS         float64
	Burst       int
	Cache       cache.Store
	CacheTTL    time.Duration
	HTTPClient  *http.Client
}

// Client is a Riot Games API client.
// Ranked standings and the data dragon version are cached for CacheTTL.
// Data dragon is a static CDN, it is neither rate limited nor shares the
// circuit breaker with the API.
type Client struct {
	Opts
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	ddragon *gobreaker.CircuitBreaker
}

// New makes a client with defaults for the unset options.
func New(opts Opts) *Client {
	if opts.AccountURL == "" {
		opts.AccountURL = "https://americas.api.riotgames.com"
	}
	if opts.PlatformURL == "" {
		opts.PlatformURL = "https://na1.api.riotgames.com"
	}
	if opts.DDragonURL == "" {
		opts.DDragonURL = "https://ddragon.leagueoflegends.com"
	}
	if opts.RPS <= 0 {
		opts.RPS = 20 // development key limit
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		Opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		breaker: newBreaker("riot"),
		ddragon: newBreaker("ddragon"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Minute,
		Timeout:  time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// client side errors tell nothing about the upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) ||
				errors.Is(err, ErrRateLimited) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[WARN] circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// Account resolves the account by its Riot ID.
func (c *Client) Account(ctx context.Context, gameName, tagLine string) (Account, error) {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.AccountURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var acc Account
	if err := c.get(ctx, u, true, &acc); err != nil {
		return Account{}, fmt.Errorf("get account %s#%s: %w", gameName, tagLine, err)
	}
	return acc, nil
}

// Summoner returns the summoner profile of the account.
func (c *Client) Summoner(ctx context.Context, puuid string) (Summoner, error) {
	u := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.PlatformURL, url.PathEscape(puuid))

	var sum Summoner
	if err := c.get(ctx, u, true, &sum); err != nil {
		return Summoner{}, fmt.Errorf("get summoner %s: %w", puuid, err)
	}
	return sum, nil
}

// LeagueEntries returns standings of the player in all ranked queues.
func (c *Client) LeagueEntries(ctx context.Context, puuid string) ([]LeagueEntry, error) {
	u := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.PlatformURL, url.PathEscape(puuid))

	var entries []LeagueEntry
	if err := c.get(ctx, u, true, &entries); err != nil {
		return nil, fmt.Errorf("get league entries %s: %w", puuid, err)
	}
	return entries, nil
}

// Rank returns the solo queue standing of the player.
// Players whose league entries can't be fetched are reported as unranked,
// only a failure to get the summoner profile is returned as an error.
func (c *Client) Rank(ctx context.Context, puuid string) (Rank, error) {
	key := rankKeyPrefix + puuid

	if raw, ok, err := c.Cache.Get(ctx, key); err != nil {
		log.Printf("[WARN] failed to read cached rank of %s: %v", puuid, err)
	} else if ok {
		var r Rank
		if err := json.Unmarshal(raw, &r); err == nil {
			return r, nil
		}
		log.Printf("[WARN] dropping malformed cached rank of %s", puuid)
	}

	sum, err := c.Summoner(ctx, puuid)
	if err != nil {
		return Rank{}, err
	}

	var r Rank
	entries, err := c.LeagueEntries(ctx, puuid)
	if err != nil {
		log.Printf("[WARN] treating %s as unranked: %v", puuid, err)
		r = UnrankedRank(sum.SummonerLevel)
		r.ProfileIconID = sum.ProfileIconID
	} else {
		r = rankFromEntries(entries, sum)
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return Rank{}, fmt.Errorf("marshal rank: %w", err)
	}

	if err := c.Cache.Set(ctx, key, raw, c.CacheTTL); err != nil {
		log.Printf("[WARN] failed to cache rank of %s: %v", puuid, err)
	}

	return r, nil
}

// Forget drops the cached standing of the player.
func (c *Client) Forget(ctx context.Context, puuid string) error {
	if err := c.Cache.Delete(ctx, rankKeyPrefix+puuid); err != nil {
		return fmt.Errorf("delete cached rank: %w", err)
	}
	return nil
}

// ForgetAll drops all cached standings.
func (c *Client) ForgetAll(ctx context.Context) error {
	if err := c.Cache.Clear(ctx, rankKeyPrefix); err != nil {
		return fmt.Errorf("clear cached ranks: %w", err)
	}
	return nil
}

// LatestVersion returns the latest data dragon version, FallbackVersion
// is returned if it can't be fetched.
func (c *Client) LatestVersion(ctx context.Context) string {
	if raw, ok, err := c.Cache.Get(ctx, versionKey); err == nil && ok {
		return string(raw)
	}

	version, ttl := FallbackVersion, fallbackTTL

	var versions []string
	_, err := c.ddragon.Execute(func() (any, error) {
		return nil, c.fetch(ctx, c.DDragonURL+"/api/versions.json", false, &versions)
	})
	switch {
	case err != nil:
		log.Printf("[WARN] failed to fetch data dragon versions: %v", err)
	case len(versions) == 0:
		log.Printf("[WARN] data dragon returned no versions")
	default:
		version, ttl = versions[0], c.CacheTTL
	}

	if ctx.Err() != nil {
		return version
	}

	if err := c.Cache.Set(ctx, versionKey, []byte(version), ttl); err != nil {
		log.Printf("[WARN] failed to cache data dragon version: %v", err)
	}

	return version
}

// IconURL returns the URL of the profile icon image.
func (c *Client) IconURL(ctx context.Context, iconID int) string {
	return fmt.Sprintf("%s/cdn/%s/img/profileicon/%d.png", c.DDragonURL, c.LatestVersion(ctx), iconID)
}

// get fetches the JSON document at u from the Riot API into dst, waiting
// for the rate limiter and going through the circuit breaker.
// An open breaker is reported as ErrUpstream.
func (c *Client) get(ctx context.Context, u string, auth bool, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.fetch(ctx, u, auth, dst)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	return err
}

// fetch does a single GET of the JSON document at u into dst.
func (c *Client) fetch(ctx context.Context, u string, auth bool, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("make request: %w", err)
	}

	if auth {
		req.Header.Set("X-Riot-Token", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: do request: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if err := statusErr(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func statusErr(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return ErrForbidden
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, body)
	}
}
