package balance

import "fmt"

// Team is a team a player is assigned to.
type Team string

const (
	// Unassigned means the player has not been put into any team yet.
	Unassigned Team = ""
	Team1      Team = "team1"
	Team2      Team = "team2"
)

// ParseTeam parses the team name, accepts "team1", "1", "team2" and "2".
func ParseTeam(s string) (Team, error) {
	switch s {
	case "team1", "1":
		return Team1, nil
	case "team2", "2":
		return Team2, nil
	default:
		return Unassigned, fmt.Errorf("unknown team %q", s)
	}
}

// Player is a roster entry with an already resolved ladder standing.
type Player struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Tier          Tier     `json:"tier"`
	Division      Division `json:"division,omitempty"`
	LeaguePoints  int64    `json:"league_points"`
	FallbackLevel int64    `json:"fallback_level"`
	Team          Team     `json:"team,omitempty"`
}

// Score returns the skill score of the player.
func (p Player) Score() int64 {
	return ComputeSkillScore(p.Tier, p.Division, p.LeaguePoints, p.FallbackLevel)
}

// Rank returns the human-readable ladder standing, e.g. "GOLD II (50 LP)".
func (p Player) Rank() string {
	switch {
	case !p.Tier.Ranked():
		return "Unranked"
	case p.Tier.Apex() || p.Division == "":
		return fmt.Sprintf("%s (%d LP)", ParseTier(string(p.Tier)), p.LeaguePoints)
	default:
		return fmt.Sprintf("%s %s (%d LP)", ParseTier(string(p.Tier)), p.Division, p.LeaguePoints)
	}
}
