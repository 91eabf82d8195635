// Package balance splits a roster of ranked players into two teams with
// the smallest possible difference of total skill scores.
package balance

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyRoster is issued when there is nobody to balance.
var ErrEmptyRoster = errors.New("roster is empty")

// ErrRosterTooLarge is issued when the roster doesn't fit into two teams.
var ErrRosterTooLarge = fmt.Errorf("roster has more than %d players", MaxRosterSize)

// ErrDuplicatePlayer is issued when the same player ID occurs twice in a roster.
var ErrDuplicatePlayer = errors.New("duplicate player in roster")

// Assignment is the result of balancing, both teams hold player IDs in
// ascending order.
type Assignment struct {
	Team1      []string `json:"team1"`
	Team2      []string `json:"team2"`
	Team1Score int64    `json:"team1_score"`
	Team2Score int64    `json:"team2_score"`
}

// Diff returns the absolute skill score difference between the teams.
func (a Assignment) Diff() int64 {
	if a.Team1Score > a.Team2Score {
		return a.Team1Score - a.Team2Score
	}
	return a.Team2Score - a.Team1Score
}

// TeamOf returns the team of the player with the given ID.
func (a Assignment) TeamOf(id string) Team {
	for _, pid := range a.Team1 {
		if pid == id {
			return Team1
		}
	}
	for _, pid := range a.Team2 {
		if pid == id {
			return Team2
		}
	}
	return Unassigned
}

// Apply returns a copy of players with teams set according to the assignment.
func (a Assignment) Apply(players []Player) []Player {
	res := make([]Player, len(players))
	for i, p := range players {
		p.Team = a.TeamOf(p.ID)
		res[i] = p
	}
	return res
}

// BalanceRoster splits players into two teams, minimizing the difference of
// total skill scores across all size-valid splits. If several splits are
// equally good, the one generated first by Partitions wins.
// A single player goes to Team1 alone.
func BalanceRoster(players []Player) (Assignment, error) {
	switch n := len(players); {
	case n == 0:
		return Assignment{}, ErrEmptyRoster
	case n > MaxRosterSize:
		return Assignment{}, fmt.Errorf("%w: got %d", ErrRosterTooLarge, n)
	}

	// work on a snapshot sorted by ID, so the caller's slice is never touched
	snapshot := make([]Player, len(players))
	copy(snapshot, players)
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })

	for i := 1; i < len(snapshot); i++ {
		if snapshot[i].ID == snapshot[i-1].ID {
			return Assignment{}, fmt.Errorf("%w: %s", ErrDuplicatePlayer, snapshot[i].ID)
		}
	}

	scores := make([]int64, len(snapshot))
	total := int64(0)
	for i, p := range snapshot {
		scores[i] = p.Score()
		total += scores[i]
	}

	if len(snapshot) == 1 {
		return Assignment{Team1: []string{snapshot[0].ID}, Team2: []string{}, Team1Score: total}, nil
	}

	var best []int
	bestDiff := int64(-1)
	for _, cand := range Partitions(len(snapshot)) {
		sum := int64(0)
		for _, idx := range cand {
			sum += scores[idx]
		}

		diff := sum - (total - sum)
		if diff < 0 {
			diff = -diff
		}

		// strict comparison keeps the earliest candidate on ties
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = cand, diff
		}
	}

	return split(snapshot, scores, best), nil
}

// split builds the assignment from the Team1 index set, the rest of
// the players fall to Team2.
func split(sorted []Player, scores []int64, team1 []int) Assignment {
	inTeam1 := make([]bool, len(sorted))
	for _, idx := range team1 {
		inTeam1[idx] = true
	}

	res := Assignment{
		Team1: make([]string, 0, len(team1)),
		Team2: make([]string, 0, len(sorted)-len(team1)),
	}
	for i, p := range sorted {
		if inTeam1[i] {
			res.Team1 = append(res.Team1, p.ID)
			res.Team1Score += scores[i]
			continue
		}
		res.Team2 = append(res.Team2, p.ID)
		res.Team2Score += scores[i]
	}

	return res
}
