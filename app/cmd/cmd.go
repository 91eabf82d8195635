package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/bobylevd/lol-balancer/app/cache"
	"github.com/bobylevd/lol-balancer/app/riot"
	"github.com/bobylevd/lol-balancer/app/store"
)

// CommonOpts contains information that is common for all commands.
type CommonOpts struct {
	Version string
}

// Set sets the common options.
func (c *CommonOpts) Set(cc CommonOpts) {
	c.Version = cc.Version
}

// RiotOpts defines the Riot API access.
type RiotOpts struct {
	APIKey      string        `long:"api-key"      env:"API_KEY"      description:"Riot API key"`
	AccountURL  string        `long:"account-url"  env:"ACCOUNT_URL"  description:"regional routing URL" default:"https://americas.api.riotgames.com"`
	PlatformURL string        `long:"platform-url" env:"PLATFORM_URL" description:"platform routing URL" default:"https://na1.api.riotgames.com"`
	DDragonURL  string        `long:"ddragon-url"  env:"DDRAGON_URL"  description:"data dragon URL"      default:"https://ddragon.leagueoflegends.com"`
	RPS         float64       `long:"rps"          env:"RPS"          description:"max requests per second" default:"20"`
	Burst       int           `long:"burst"        env:"BURST"        description:"max burst of requests"   default:"1"`
	CacheTTL    time.Duration `long:"cache-ttl"    env:"CACHE_TTL"    description:"ranked standings TTL"    default:"1h"`
	Concurrency int           `long:"concurrency"  env:"CONCURRENCY"  description:"simultaneous rank lookups" default:"4"`
}

// CacheOpts defines where resolved ranks are cached.
type CacheOpts struct {
	Type          string `long:"type"           env:"TYPE"           description:"cache backend" choice:"memory" choice:"redis" default:"memory"`
	RedisAddr     string `long:"redis-addr"     env:"REDIS_ADDR"     description:"redis address" default:"localhost:6379"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"redis password"`
	RedisDB       int    `long:"redis-db"       env:"REDIS_DB"       description:"redis database"`
}

// RosterOpts are shared by the commands which serve the roster.
type RosterOpts struct {
	StoreLocation string    `long:"loc" env:"LOCATION" description:"Store location" default:"roster.db"`
	Riot          RiotOpts  `group:"riot"  namespace:"riot"  env-namespace:"RIOT"`
	Cache         CacheOpts `group:"cache" namespace:"cache" env-namespace:"CACHE"`
}

// roster is the wired roster service with everything it holds open.
type roster struct {
	service *store.Service
	riot    *riot.Client
	closers []io.Closer
}

func (r *roster) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			log.Printf("[WARN] failed to close resource: %v", err)
		}
	}
}

// makeRoster opens the store, the rank cache and the Riot API client.
func (o RosterOpts) makeRoster(ctx context.Context) (*roster, error) {
	res := &roster{}

	c, err := o.makeCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	if cl, ok := c.(io.Closer); ok {
		res.closers = append(res.closers, cl)
	}

	s, err := store.New(o.StoreLocation)
	if err != nil {
		res.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	res.closers = append(res.closers, s)

	res.riot = riot.New(riot.Opts{
		APIKey:      o.Riot.APIKey,
		AccountURL:  o.Riot.AccountURL,
		PlatformURL: o.Riot.PlatformURL,
		DDragonURL:  o.Riot.DDragonURL,
		RPS:         o.Riot.RPS,
		Burst:       o.Riot.Burst,
		Cache:       c,
		CacheTTL:    o.Riot.CacheTTL,
	})

	res.service = &store.Service{Store: s, Ranks: res.riot, Concurrency: o.Riot.Concurrency}
	return res, nil
}

func (o RosterOpts) makeCache(ctx context.Context) (cache.Store, error) {
	switch o.Cache.Type {
	case "", "memory":
		log.Printf("[INFO] caching ranks in memory")
		return cache.NewMemory(), nil
	case "redis":
		log.Printf("[INFO] caching ranks in redis at %s", o.Cache.RedisAddr)
		return cache.NewRedis(ctx, o.Cache.RedisAddr, o.Cache.RedisPassword, o.Cache.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache type %q", o.Cache.Type)
	}
}
