package standings

import (
	"fmt"
	"strings"
	"tft-tracker/internal/domain"
)

type RankMode string

const (
	// RankUnique gives every player its own rank; full ties are settled by input order.
	RankUnique RankMode = "unique"
	// RankShared gives fully tied players the same rank and skips the
	// following ranks (1, 1, 3).
	RankShared RankMode = "shared"
)

func ParseRankMode(s string) (RankMode, error) {
	switch RankMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RankUnique:
		return RankUnique, nil
	case RankShared:
		return RankShared, nil
	default:
		return "", fmt.Errorf("unknown rank mode %q", s)
	}
}

// AssignRanks gives the player at sorted index i rank i+1.
func AssignRanks(sorted []domain.PlayerAggregate) []domain.RankedStanding {
	ranked := make([]domain.RankedStanding, len(sorted))
	for i, agg := range sorted {
		ranked[i] = domain.RankedStanding{PlayerAggregate: agg, Rank: i + 1}
	}
	return ranked
}

// AssignSharedRanks is AssignRanks except players that Compare as equal to
// their predecessor inherit its rank.
func AssignSharedRanks(sorted []domain.PlayerAggregate) []domain.RankedStanding {
	ranked := make([]domain.RankedStanding, len(sorted))
	for i, agg := range sorted {
		rank := i + 1
		if i > 0 && Compare(sorted[i-1], agg) == 0 {
			rank = ranked[i-1].Rank
		}
		ranked[i] = domain.RankedStanding{PlayerAggregate: agg, Rank: rank}
	}
	return ranked
}

func (m RankMode) assign(sorted []domain.PlayerAggregate) []domain.RankedStanding {
	if m == RankShared {
		return AssignSharedRanks(sorted)
	}
	return AssignRanks(sorted)
}
