// Package submission checks game results before they reach the ledger.
package submission

import (
	"tft-tracker/internal/domain"
)

// Rules describes what a tournament accepts for one game.
type Rules struct {
	LobbySize    int
	Participants map[string]struct{}
	// Recorded holds the keys already in the ledger for the submitted game.
	Recorded map[domain.FactKey]struct{}
}

func NewRules(t *domain.Tournament, participants []domain.Participant, recorded []domain.FactKey) Rules {
	rules := Rules{
		LobbySize:    t.LobbySize,
		Participants: make(map[string]struct{}, len(participants)),
		Recorded:     make(map[domain.FactKey]struct{}, len(recorded)),
	}
	for _, p := range participants {
		rules.Participants[p.PlayerID] = struct{}{}
	}
	for _, k := range recorded {
		rules.Recorded[k] = struct{}{}
	}
	return rules
}

// ValidateGame accepts a new game: a full lobby of registered players whose
// placements form a permutation of 1..LobbySize, none of them already recorded.
func ValidateGame(game domain.GameResult, rules Rules) error {
	verr := validateShape(game, rules)
	for _, f := range game.Facts() {
		if _, dup := rules.Recorded[f.Key()]; dup {
			verr.Add("result for player %s day %d game %d already recorded", f.PlayerID, f.DayNumber, f.GameNumber)
		}
	}
	return verr.OrNil()
}

// ValidateCorrection accepts a full replacement for a game that is already in
// the ledger. The replacement may name different players than the original.
func ValidateCorrection(game domain.GameResult, rules Rules) error {
	verr := validateShape(game, rules)
	if len(rules.Recorded) == 0 {
		verr.Add("day %d game %d has no recorded results to correct", game.DayNumber, game.GameNumber)
	}
	return verr.OrNil()
}

func validateShape(game domain.GameResult, rules Rules) *domain.ValidationError {
	verr := &domain.ValidationError{}

	if game.TournamentID == "" {
		verr.Add("tournament id is required")
	}
	if game.DayNumber < 1 {
		verr.Add("day number %d must be >= 1", game.DayNumber)
	}
	if game.GameNumber < 1 {
		verr.Add("game number %d must be >= 1", game.GameNumber)
	}
	if len(game.Placements) != rules.LobbySize {
		verr.Add("expected %d results, got %d", rules.LobbySize, len(game.Placements))
	}

	players := make(map[string]struct{}, len(game.Placements))
	taken := make(map[int]string, len(game.Placements))
	for _, p := range game.Placements {
		if p.PlayerID == "" {
			verr.Add("player id is required")
			continue
		}
		if _, dup := players[p.PlayerID]; dup {
			verr.Add("player %s appears more than once", p.PlayerID)
		}
		players[p.PlayerID] = struct{}{}

		if _, ok := rules.Participants[p.PlayerID]; !ok {
			verr.Add("player %s is not registered for this tournament", p.PlayerID)
		}

		if p.Placement < 1 || p.Placement > rules.LobbySize {
			verr.Add("placement %d for player %s outside 1..%d", p.Placement, p.PlayerID, rules.LobbySize)
			continue
		}
		if other, dup := taken[p.Placement]; dup {
			verr.Add("placement %d given to both %s and %s", p.Placement, other, p.PlayerID)
		}
		taken[p.Placement] = p.PlayerID
	}
	return verr
}
