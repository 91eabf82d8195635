package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bobylevd/lol-balancer/app/balance"
	"github.com/bobylevd/lol-balancer/app/riot"
)

// ErrBadRiotID is issued when the Riot ID is not in form of "GameName#TagLine".
var ErrBadRiotID = errors.New("riot id must be in form of GameName#TagLine")

// Summoner is a registered roster member.
type Summoner struct {
	PUUID    string       `db:"puuid"`
	GameName string       `db:"game_name"`
	TagLine  string       `db:"tag_line"`
	Team     balance.Team `db:"team"`
}

// RiotID returns the Riot ID of the summoner.
func (s Summoner) RiotID() string {
	return s.GameName + "#" + s.TagLine
}

// ParseRiotID splits the Riot ID into the game name and the tag line.
func ParseRiotID(id string) (gameName, tagLine string, err error) {
	idx := strings.LastIndex(id, "#")
	if idx <= 0 || idx == len(id)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrBadRiotID, id)
	}
	return strings.TrimSpace(id[:idx]), strings.TrimSpace(id[idx+1:]), nil
}

// Entry is a roster member with a resolved ranked standing.
type Entry struct {
	Summoner
	Rank riot.Rank
}

// Player converts the entry into the balancing engine input.
func (e Entry) Player() balance.Player {
	return balance.Player{
		ID:            e.PUUID,
		DisplayName:   e.RiotID(),
		Tier:          e.Rank.Tier,
		Division:      e.Rank.Division,
		LeaguePoints:  e.Rank.LeaguePoints,
		FallbackLevel: e.Rank.Level,
		Team:          e.Team,
	}
}

// Score returns the skill score of the entry.
func (e Entry) Score() int64 { return e.Player().Score() }
