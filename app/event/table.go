package event

import (
	"sort"
	"strconv"

	"github.com/syohex/go-texttable"

	"github.com/bobylevd/lol-balancer/app/balance"
)

// RosterTable renders players as a text table grouped by team,
// players with higher skill score go first within a team.
func RosterTable(players []balance.Player) string {
	sorted := append([]balance.Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Team != sorted[j].Team {
			return teamOrder(sorted[i].Team) < teamOrder(sorted[j].Team)
		}
		return sorted[i].Score() > sorted[j].Score()
	})

	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("Team", "Name", "Rank", "Score")

	for _, p := range sorted {
		team := string(p.Team)
		if p.Team == balance.Unassigned {
			team = "-"
		}
		_ = tbl.AddRow(team, p.DisplayName, p.Rank(), strconv.FormatInt(p.Score(), 10))
	}

	return tbl.Draw()
}

func teamOrder(t balance.Team) int {
	switch t {
	case balance.Team1:
		return 0
	case balance.Team2:
		return 1
	default:
		return 2
	}
}
