package state

import "strings"

// LevelTier maps a total-stat floor to a title.
type LevelTier struct {
	Floor int
	Title string
}

// LevelTiers is ordered by ascending floor. A total at or above a floor
// earns that tier's title.
var LevelTiers = []LevelTier{
	{0, "Novice of the Gel"},
	{20, "Initiate"},
	{40, "Wayfarer"},
	{60, "Echo-Touched"},
	{80, "Gelbound"},
	{100, "Chronicle Bearer"},
}

// Level is the derived progression summary for a character sheet.
// NextCap is nil at the top tier.
type Level struct {
	Total        int    `json:"total"`
	Title        string `json:"title"`
	CurrentFloor int    `json:"current_floor"`
	NextCap      *int   `json:"next_cap"`
}

// ComputeLevel sums the stats and resolves the tier. Legacy saves may
// carry a precomputed "Total Stat Points" summary entry; it is not a
// stat and is excluded from the sum.
func ComputeLevel(stats map[string]int) Level {
	total := 0
	for k, v := range stats {
		if strings.EqualFold(k, "total stat points") {
			continue
		}
		total += v
	}

	lvl := Level{
		Total: total,
		Title: LevelTiers[0].Title,
	}
	for _, tier := range LevelTiers {
		if total >= tier.Floor {
			lvl.CurrentFloor = tier.Floor
			lvl.Title = tier.Title
		} else {
			cap := tier.Floor
			lvl.NextCap = &cap
			break
		}
	}
	return lvl
}

// ApplyLevelRewards grants a one-time trait token when the character
// crosses into a new tier. The flags entry "level_title" records the
// last rewarded title; a matching title means the reward was already
// granted, so re-applying is safe.
func ApplyLevelRewards(s *SaveState) {
	s.EnsureMaps()
	lvl := ComputeLevel(s.Stats)
	if prev, _ := s.Flags["level_title"].(string); prev == lvl.Title {
		return
	}
	s.Flags["level_title"] = lvl.Title
	s.Inventory.TraitTokens = append(s.Inventory.TraitTokens, TraitToken{
		Title: lvl.Title + " Token",
	})
}
