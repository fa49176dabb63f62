package standings

import (
	"cmp"
	"math"
	"slices"
	"tft-tracker/internal/domain"
)

// Compare returns -1 when a ranks above b, 1 when b ranks above a and 0 when
// every criterion ties. Criteria, first difference wins:
//
//  1. total points, higher first
//  2. top-four finishes plus first places, higher first
//  3. placement counts from 1st through last, more first
//  4. recent placements from the latest game back, lower first
//
// Compare is antisymmetric, so Compare(a, b) == -Compare(b, a).
func Compare(a, b domain.PlayerAggregate) int {
	if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
		return c
	}
	if c := cmp.Compare(b.TopFourPlusFirsts, a.TopFourPlusFirsts); c != 0 {
		return c
	}
	if c := comparePlacementCounts(a.PlacementCounts, b.PlacementCounts); c != 0 {
		return c
	}
	return compareRecent(a.RecentPlacements, b.RecentPlacements)
}

func comparePlacementCounts(a, b []int) int {
	for i := range max(len(a), len(b)) {
		if c := cmp.Compare(at(b, i, 0), at(a, i, 0)); c != 0 {
			return c
		}
	}
	return 0
}

func compareRecent(a, b []int) int {
	// Aggregate always pads to RecentWindow; hand-built aggregates may not,
	// so a missing slot still counts as worse than any placement.
	for i := range RecentWindow {
		if c := cmp.Compare(at(a, i, math.MaxInt), at(b, i, math.MaxInt)); c != 0 {
			return c
		}
	}
	return 0
}

func at(s []int, i, fallback int) int {
	if i < len(s) {
		return s[i]
	}
	return fallback
}

// Sort orders aggregates best first. Players that tie on every criterion keep
// their relative input order.
func Sort(aggs []domain.PlayerAggregate) {
	slices.SortStableFunc(aggs, Compare)
}
