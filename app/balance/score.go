package balance

import "strings"

// Tier is a ranked ladder tier.
type Tier string

// Known tiers, ordered from the lowest to the highest.
const (
	Iron        Tier = "IRON"
	Bronze      Tier = "BRONZE"
	Silver      Tier = "SILVER"
	Gold        Tier = "GOLD"
	Platinum    Tier = "PLATINUM"
	Diamond     Tier = "DIAMOND"
	Master      Tier = "MASTER"
	Grandmaster Tier = "GRANDMASTER"
	Challenger  Tier = "CHALLENGER"
	Unranked    Tier = "UNRANKED"
)

var tiers = []Tier{Iron, Bronze, Silver, Gold, Platinum, Diamond, Master, Grandmaster, Challenger}

// apex tiers have no divisions and start from a fixed anchor
var apexAnchors = map[Tier]int64{
	Master:      2400,
	Grandmaster: 2800,
	Challenger:  3200,
}

// Division is a division within a non-apex tier.
type Division string

// Divisions, ordered from the lowest to the highest.
const (
	DivisionIV  Division = "IV"
	DivisionIII Division = "III"
	DivisionII  Division = "II"
	DivisionI   Division = "I"
)

var divisionOffsets = map[Division]int64{
	DivisionIV:  0,
	DivisionIII: 100,
	DivisionII:  200,
	DivisionI:   300,
}

const tierWidth = 400

// ParseTier normalizes the tier name, unknown names are reported as Unranked.
func ParseTier(s string) Tier {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if t.index() < 0 {
		return Unranked
	}
	return t
}

// ParseDivision normalizes the division name, returns an empty division
// if the name is not recognized.
func ParseDivision(s string) Division {
	d := Division(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := divisionOffsets[d]; !ok {
		return ""
	}
	return d
}

// Apex returns true for division-less tiers.
func (t Tier) Apex() bool {
	_, ok := apexAnchors[ParseTier(string(t))]
	return ok
}

// Ranked returns true if the tier is one of the known ladder tiers.
func (t Tier) Ranked() bool { return t.index() >= 0 }

func (t Tier) index() int {
	norm := Tier(strings.ToUpper(strings.TrimSpace(string(t))))
	for i, tt := range tiers {
		if tt == norm {
			return i
		}
	}
	return -1
}

// ComputeSkillScore converts a ladder standing into a comparable integer.
// Unranked players and players with an unknown tier are scored by their
// fallback level. League points are not clamped, so a non-apex player with
// 100+ LP can outscore a player in the next division.
func ComputeSkillScore(tier Tier, division Division, leaguePoints, fallbackLevel int64) int64 {
	idx := tier.index()
	if idx < 0 {
		if fallbackLevel < 0 {
			return 0
		}
		return fallbackLevel
	}

	norm := tiers[idx]
	if anchor, ok := apexAnchors[norm]; ok {
		return anchor + leaguePoints
	}

	// unknown division falls to the bottom of the tier
	offset := divisionOffsets[ParseDivision(string(division))]
	return int64(idx)*tierWidth + offset + leaguePoints
}
