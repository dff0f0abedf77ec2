package domain

import "strings"

type Tier string

const (
	TierUnranked    Tier = "Unranked"
	TierIron        Tier = "IRON"
	TierBronze      Tier = "BRONZE"
	TierSilver      Tier = "SILVER"
	TierGold        Tier = "GOLD"
	TierPlatinum    Tier = "PLATINUM"
	TierEmerald     Tier = "EMERALD"
	TierDiamond     Tier = "DIAMOND"
	TierMaster      Tier = "MASTER"
	TierGrandmaster Tier = "GRANDMASTER"
	TierChallenger  Tier = "CHALLENGER"
)

var tierOrder = map[Tier]int{
	TierUnranked:    0,
	TierIron:        1,
	TierBronze:      2,
	TierSilver:      3,
	TierGold:        4,
	TierPlatinum:    5,
	TierEmerald:     6,
	TierDiamond:     7,
	TierMaster:      8,
	TierGrandmaster: 9,
	TierChallenger:  10,
}

// ParseTier accepts upstream spellings in any case. Unknown values map to
// Unranked with ok=false.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := tierOrder[t]; ok {
		return t, true
	}
	return TierUnranked, false
}

// Ordinal orders tiers from Unranked (0) up to Challenger.
func (t Tier) Ordinal() int {
	return tierOrder[t]
}

// IsApex reports tiers that have no divisions.
func (t Tier) IsApex() bool {
	return t == TierMaster || t == TierGrandmaster || t == TierChallenger
}

type Division string

const (
	DivisionNone Division = ""
	DivisionI    Division = "I"
	DivisionII   Division = "II"
	DivisionIII  Division = "III"
	DivisionIV   Division = "IV"
)

func ParseDivision(s string) (Division, bool) {
	switch d := Division(strings.ToUpper(strings.TrimSpace(s))); d {
	case DivisionI, DivisionII, DivisionIII, DivisionIV:
		return d, true
	case DivisionNone:
		return DivisionNone, true
	default:
		return DivisionNone, false
	}
}
