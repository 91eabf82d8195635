package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bobylevd/lol-balancer/app/balance"
	"github.com/bobylevd/lol-balancer/app/riot"
)

// ErrAlreadyExists is issued when the summoner is already in the roster.
var ErrAlreadyExists = errors.New("summoner already exists")

// RankProvider resolves Riot accounts and ranked standings.
type RankProvider interface {
	Account(ctx context.Context, gameName, tagLine string) (riot.Account, error)
	Rank(ctx context.Context, puuid string) (riot.Rank, error)
	Forget(ctx context.Context, puuid string) error
	ForgetAll(ctx context.Context) error
}

// Service wraps the database store with roster operations.
// Mutations of the roster are serialized, so balancing always works on
// a consistent snapshot.
type Service struct {
	Store *Store
	Ranks RankProvider

	// Concurrency limits the amount of simultaneous rank lookups.
	Concurrency int

	mu sync.Mutex
}

// Register adds the summoner with the given Riot ID to the roster.
func (s *Service) Register(ctx context.Context, riotID string) (Summoner, error) {
	gameName, tagLine, err := ParseRiotID(riotID)
	if err != nil {
		return Summoner{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch _, err := s.Store.Get(ctx, gameName, tagLine); {
	case err == nil:
		return Summoner{}, fmt.Errorf("%w: %s#%s", ErrAlreadyExists, gameName, tagLine)
	case !errors.Is(err, ErrNotFound):
		return Summoner{}, fmt.Errorf("get summoner: %w", err)
	}

	acc, err := s.Ranks.Account(ctx, gameName, tagLine)
	if err != nil {
		return Summoner{}, fmt.Errorf("resolve account: %w", err)
	}

	sum := Summoner{PUUID: acc.PUUID, GameName: acc.GameName, TagLine: acc.TagLine, Team: balance.Unassigned}
	if err := s.Store.Create(ctx, sum); err != nil {
		return Summoner{}, fmt.Errorf("create summoner: %w", err)
	}

	log.Printf("[INFO] registered %s (%s)", sum.RiotID(), sum.PUUID)
	return sum, nil
}

// Remove removes the summoner from the roster.
func (s *Service) Remove(ctx context.Context, riotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.get(ctx, riotID)
	if err != nil {
		return err
	}

	if err := s.Store.Delete(ctx, sum.PUUID); err != nil {
		return fmt.Errorf("delete summoner: %w", err)
	}

	if err := s.Ranks.Forget(ctx, sum.PUUID); err != nil {
		log.Printf("[WARN] failed to forget rank of %s: %v", sum.RiotID(), err)
	}

	log.Printf("[INFO] removed %s", sum.RiotID())
	return nil
}

// Move puts the summoner into the given team.
func (s *Service) Move(ctx context.Context, riotID string, team balance.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.get(ctx, riotID)
	if err != nil {
		return err
	}

	if err := s.Store.SetTeam(ctx, sum.PUUID, team); err != nil {
		return fmt.Errorf("set team: %w", err)
	}

	return nil
}

// Clear removes everybody from the roster.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Store.Clear(ctx); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}

	if err := s.Ranks.ForgetAll(ctx); err != nil {
		log.Printf("[WARN] failed to forget ranks: %v", err)
	}

	return nil
}

// Roster returns all summoners with their ranked standings.
func (s *Service) Roster(ctx context.Context) ([]Entry, error) {
	sums, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summoners: %w", err)
	}

	return s.resolve(ctx, sums, false)
}

// Balance splits the roster into two teams and stores the result.
// The returned entries carry the new teams.
func (s *Service) Balance(ctx context.Context) (balance.Assignment, []Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums, err := s.Store.List(ctx)
	if err != nil {
		return balance.Assignment{}, nil, fmt.Errorf("list summoners: %w", err)
	}

	entries, err := s.resolve(ctx, sums, true)
	if err != nil {
		return balance.Assignment{}, nil, err
	}

	players := make([]balance.Player, len(entries))
	for i, e := range entries {
		players[i] = e.Player()
	}

	res, err := balance.BalanceRoster(players)
	if err != nil {
		return balance.Assignment{}, nil, fmt.Errorf("balance roster: %w", err)
	}

	if err := s.Store.CommitAssignment(ctx, res); err != nil {
		return balance.Assignment{}, nil, fmt.Errorf("commit assignment: %w", err)
	}

	for i := range entries {
		entries[i].Team = res.TeamOf(entries[i].PUUID)
	}

	log.Printf("[INFO] balanced %d players, %d vs %d, diff %d",
		len(entries), res.Team1Score, res.Team2Score, res.Diff())

	return res, entries, nil
}

// resolve looks up ranked standings for all summoners concurrently.
// Summoners whose standing can't be resolved are treated as unranked,
// in strict mode only those which are gone upstream, an unavailable
// Riot API fails the whole lookup.
func (s *Service) resolve(ctx context.Context, sums []Summoner, strict bool) ([]Entry, error) {
	entries := make([]Entry, len(sums))

	ewg, ctx := errgroup.WithContext(ctx)
	if s.Concurrency > 0 {
		ewg.SetLimit(s.Concurrency)
	}

	for idx, sum := range sums {
		idx, sum := idx, sum
		ewg.Go(func() error {
			r, err := s.Ranks.Rank(ctx, sum.PUUID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if strict && !errors.Is(err, riot.ErrNotFound) {
					return fmt.Errorf("get rank of %s: %w", sum.RiotID(), err)
				}
				log.Printf("[WARN] failed to get rank of %s, treating as unranked: %v", sum.RiotID(), err)
				r = riot.UnrankedRank(0)
			}

			entries[idx] = Entry{Summoner: sum, Rank: r}
			return nil
		})
	}

	if err := ewg.Wait(); err != nil {
		return nil, fmt.Errorf("resolve ranks: %w", err)
	}

	return entries, nil
}

func (s *Service) get(ctx context.Context, riotID string) (Summoner, error) {
	gameName, tagLine, err := ParseRiotID(riotID)
	if err != nil {
		return Summoner{}, err
	}

	sum, err := s.Store.Get(ctx, gameName, tagLine)
	if err != nil {
		return Summoner{}, fmt.Errorf("get summoner %s: %w", riotID, err)
	}

	return sum, nil
}
