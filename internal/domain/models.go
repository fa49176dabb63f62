package domain

import (
	"time"
)

type Tournament struct {
	ID            string
	Name          string
	LobbySize     int
	LedgerVersion int64 // bumped on every fact mutation
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Participant struct {
	TournamentID string
	PlayerID     string
	DisplayName  string
	CreatedAt    time.Time
}

// PlacementFact is one player's finish in one game. Facts are never edited
// in place; a correction replaces every fact of the game.
type PlacementFact struct {
	TournamentID string
	PlayerID     string
	DayNumber    int
	GameNumber   int
	Placement    int // 1 (best) .. lobby size
	RecordedAt   time.Time
}

type FactKey struct {
	TournamentID string
	PlayerID     string
	DayNumber    int
	GameNumber   int
}

func (f PlacementFact) Key() FactKey {
	return FactKey{
		TournamentID: f.TournamentID,
		PlayerID:     f.PlayerID,
		DayNumber:    f.DayNumber,
		GameNumber:   f.GameNumber,
	}
}

type PlayerPlacement struct {
	PlayerID  string
	Placement int
}

// GameResult is the unit of submission: every placement of one lobby.
type GameResult struct {
	TournamentID string
	DayNumber    int
	GameNumber   int
	Placements   []PlayerPlacement
	RecordedAt   time.Time
}

func (g GameResult) Facts() []PlacementFact {
	facts := make([]PlacementFact, len(g.Placements))
	for i, p := range g.Placements {
		facts[i] = PlacementFact{
			TournamentID: g.TournamentID,
			PlayerID:     p.PlayerID,
			DayNumber:    g.DayNumber,
			GameNumber:   g.GameNumber,
			Placement:    p.Placement,
			RecordedAt:   g.RecordedAt,
		}
	}
	return facts
}

type PlayerAggregate struct {
	PlayerID          string
	TotalPoints       int
	GamesPlayed       int
	PlacementCounts   []int // index 0 holds 1st places
	TopFourCount      int
	TopFourPlusFirsts int   // first places counted twice
	RecentPlacements  []int // most recent first, padded with the sentinel
	EndOfDayPlacement int
}

// FirstPlaces returns how many games the player won.
func (a PlayerAggregate) FirstPlaces() int {
	if len(a.PlacementCounts) == 0 {
		return 0
	}
	return a.PlacementCounts[0]
}

type RankedStanding struct {
	PlayerAggregate
	Rank int
}

type Snapshot struct {
	TournamentID  string
	SnapshotID    string // nanoid
	LedgerVersion int64
	ComputedAt    time.Time
	Standings     []RankedStanding
	// Stale is set on read when the ledger has moved past LedgerVersion.
	Stale bool
}
