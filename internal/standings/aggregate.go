package standings

import (
	"cmp"
	"slices"
	"tft-tracker/internal/domain"
)

type playerHistory struct {
	agg   *domain.PlayerAggregate
	facts []domain.PlacementFact
}

// Aggregate folds the facts of one tournament into one aggregate per player.
// Aggregates are returned in order of each player's first appearance in
// facts, which is the stable order used as the final tiebreak.
//
// A fact with an out-of-range placement, a non-positive day or game number,
// an empty player id, or a key that repeats an earlier fact makes the whole
// call fail with *domain.ValidationError.
func Aggregate(facts []domain.PlacementFact, scoring Scoring) ([]domain.PlayerAggregate, error) {
	var verr domain.ValidationError
	order := make([]string, 0)
	byPlayer := make(map[string]*playerHistory)
	seen := make(map[domain.FactKey]struct{}, len(facts))

	for i, f := range facts {
		if f.PlayerID == "" {
			verr.Add("fact %d: empty player id", i)
			continue
		}
		if !scoring.Valid(f.Placement) {
			verr.Add("fact %d: placement %d outside 1..%d for player %s", i, f.Placement, scoring.LobbySize, f.PlayerID)
			continue
		}
		if f.DayNumber < 1 || f.GameNumber < 1 {
			verr.Add("fact %d: day %d game %d must both be >= 1", i, f.DayNumber, f.GameNumber)
			continue
		}
		if _, dup := seen[f.Key()]; dup {
			verr.Add("fact %d: duplicate result for player %s day %d game %d", i, f.PlayerID, f.DayNumber, f.GameNumber)
			continue
		}
		seen[f.Key()] = struct{}{}

		h, ok := byPlayer[f.PlayerID]
		if !ok {
			h = &playerHistory{agg: &domain.PlayerAggregate{
				PlayerID:        f.PlayerID,
				PlacementCounts: make([]int, scoring.LobbySize),
			}}
			byPlayer[f.PlayerID] = h
			order = append(order, f.PlayerID)
		}

		h.agg.TotalPoints += scoring.Points(f.Placement)
		h.agg.GamesPlayed++
		h.agg.PlacementCounts[f.Placement-1]++
		if f.Placement <= topFourCutoff {
			h.agg.TopFourCount++
		}
		h.facts = append(h.facts, f)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	out := make([]domain.PlayerAggregate, 0, len(order))
	for _, id := range order {
		h := byPlayer[id]
		h.agg.TopFourPlusFirsts = h.agg.TopFourCount + h.agg.PlacementCounts[0]
		h.agg.RecentPlacements = recentPlacements(h.facts, scoring)
		h.agg.EndOfDayPlacement = endOfDayPlacement(h.facts, scoring)
		out = append(out, *h.agg)
	}
	return out, nil
}

// recentPlacements orders by recording time, newest first. Facts recorded at
// the same instant fall back to day then game, latest first.
func recentPlacements(facts []domain.PlacementFact, scoring Scoring) []int {
	sorted := slices.Clone(facts)
	slices.SortStableFunc(sorted, func(a, b domain.PlacementFact) int {
		if c := b.RecordedAt.Compare(a.RecordedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(b.DayNumber, a.DayNumber); c != 0 {
			return c
		}
		return cmp.Compare(b.GameNumber, a.GameNumber)
	})

	recent := make([]int, RecentWindow)
	for i := range recent {
		if i < len(sorted) {
			recent[i] = sorted[i].Placement
		} else {
			recent[i] = scoring.Sentinel()
		}
	}
	return recent
}

func endOfDayPlacement(facts []domain.PlacementFact, scoring Scoring) int {
	if len(facts) == 0 {
		return scoring.Sentinel()
	}
	last := facts[0]
	for _, f := range facts[1:] {
		if f.DayNumber > last.DayNumber || (f.DayNumber == last.DayNumber && f.GameNumber > last.GameNumber) {
			last = f
		}
	}
	return last.Placement
}
