// Package riot resolves player accounts and ranked standings from the Riot
// Games API.
package riot

import (
	"math"

	"github.com/bobylevd/lol-balancer/app/balance"
)

// SoloQueue is the queue the ranked standing is taken from.
const SoloQueue = "RANKED_SOLO_5x5"

// Account is a Riot account.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// RiotID returns the account name in form of "GameName#TagLine".
func (a Account) RiotID() string { return a.GameName + "#" + a.TagLine }

// Summoner is a League of Legends profile of an account.
type Summoner struct {
	ID            string `json:"id"`
	AccountID     string `json:"accountId"`
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int64  `json:"summonerLevel"`
}

// LeagueEntry is a standing of the summoner in one of the ranked queues.
type LeagueEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int64  `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// Rank is a resolved ranked standing of a player.
type Rank struct {
	Tier          balance.Tier     `json:"tier"`
	Division      balance.Division `json:"division,omitempty"`
	LeaguePoints  int64            `json:"league_points"`
	Wins          int              `json:"wins"`
	Losses        int              `json:"losses"`
	Level         int64            `json:"level"`
	ProfileIconID int              `json:"profile_icon_id"`
}

// UnrankedRank is a standing for players without solo queue data.
func UnrankedRank(level int64) Rank {
	return Rank{Tier: balance.Unranked, Level: level}
}

// WinRate returns the rounded percentage of won games.
func (r Rank) WinRate() int {
	total := r.Wins + r.Losses
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(r.Wins) / float64(total) * 100))
}

// rankFromEntries picks the solo queue entry, players without one are unranked.
func rankFromEntries(entries []LeagueEntry, sum Summoner) Rank {
	for _, e := range entries {
		if e.QueueType != SoloQueue {
			continue
		}

		return Rank{
			Tier:          balance.ParseTier(e.Tier),
			Division:      balance.ParseDivision(e.Rank),
			LeaguePoints:  e.LeaguePoints,
			Wins:          e.Wins,
			Losses:        e.Losses,
			Level:         sum.SummonerLevel,
			ProfileIconID: sum.ProfileIconID,
		}
	}

	r := UnrankedRank(sum.SummonerLevel)
	r.ProfileIconID = sum.ProfileIconID
	return r
}
