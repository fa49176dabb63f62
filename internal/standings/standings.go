package standings

import (
	"tft-tracker/internal/domain"
)

type Options struct {
	Scoring Scoring
	Mode    RankMode
}

func DefaultOptions() Options {
	return Options{Scoring: NewScoring(DefaultLobbySize), Mode: RankUnique}
}

// Compute aggregates, sorts and ranks the facts of one tournament from
// scratch. It either returns a complete leaderboard or an error, never a
// partial one.
func Compute(facts []domain.PlacementFact, opts Options) ([]domain.RankedStanding, error) {
	if opts.Scoring.LobbySize <= 0 {
		opts.Scoring = NewScoring(DefaultLobbySize)
	}

	aggs, err := Aggregate(facts, opts.Scoring)
	if err != nil {
		return nil, err
	}

	Sort(aggs)
	return opts.Mode.assign(aggs), nil
}
