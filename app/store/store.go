package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bobylevd/lol-balancer/app/balance"
)

// ErrNotFound indicates that the entity hasn't been found in the database.
var ErrNotFound = errors.New("not found")

// ErrStaleRoster indicates that the roster changed while the assignment
// was being committed.
var ErrStaleRoster = errors.New("roster changed during commit")

// Store provides methods to store/load data.
type Store struct {
	db *sqlx.DB
}

// New prepares the database.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite doesn't handle concurrent writers
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS summoners (
			puuid TEXT PRIMARY KEY,
			game_name TEXT NOT NULL,
			tag_line TEXT NOT NULL,
			team TEXT NOT NULL DEFAULT '',
			UNIQUE (game_name, tag_line)
		);
	`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Create inserts a new summoner into the storage.
func (s *Store) Create(ctx context.Context, sum Summoner) error {
	const query = `INSERT INTO summoners (puuid, game_name, tag_line, team) VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, sum.PUUID, sum.GameName, sum.TagLine, string(sum.Team)); err != nil {
		return fmt.Errorf("insert summoner: %w", err)
	}

	return nil
}

// Get returns a summoner by the Riot ID, case-insensitive.
func (s *Store) Get(ctx context.Context, gameName, tagLine string) (Summoner, error) {
	const query = `SELECT * FROM summoners
					WHERE game_name = ? COLLATE NOCASE AND tag_line = ? COLLATE NOCASE`

	var sum Summoner
	if err := s.db.GetContext(ctx, &sum, query, gameName, tagLine); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summoner{}, ErrNotFound
		}
		return Summoner{}, fmt.Errorf("get summoner: %w", err)
	}
	return sum, nil
}

// List returns all summoners in the order they were added.
func (s *Store) List(ctx context.Context) ([]Summoner, error) {
	var sums []Summoner
	if err := s.db.SelectContext(ctx, &sums, `SELECT * FROM summoners ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return sums, nil
}

// Delete removes the summoner.
func (s *Store) Delete(ctx context.Context, puuid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM summoners WHERE puuid = ?`, puuid)
	if err != nil {
		return fmt.Errorf("delete summoner: %w", err)
	}
	return expectAffected(res)
}

// SetTeam moves the summoner to the team.
func (s *Store) SetTeam(ctx context.Context, puuid string, team balance.Team) error {
	res, err := s.db.ExecContext(ctx, `UPDATE summoners SET team = ? WHERE puuid = ?`, string(team), puuid)
	if err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	return expectAffected(res)
}

// CommitAssignment stores the teams of all assigned players in a single
// transaction. Nothing is changed if any of the players is missing.
func (s *Store) CommitAssignment(ctx context.Context, a balance.Assignment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `UPDATE summoners SET team = ? WHERE puuid = ?`

	teams := []struct {
		team balance.Team
		ids  []string
	}{{balance.Team1, a.Team1}, {balance.Team2, a.Team2}}

	for _, t := range teams {
		team := t.team
		for _, id := range t.ids {
			res, err := tx.ExecContext(ctx, query, string(team), id)
			if err != nil {
				return fmt.Errorf("update team of %s: %w", id, err)
			}
			if err := expectAffected(res); err != nil {
				return fmt.Errorf("%w: %s is gone", ErrStaleRoster, id)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Clear removes all summoners.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM summoners`); err != nil {
		return fmt.Errorf("delete summoners: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
