package db

import (
	"time"
)

type Tournament struct {
	ID            string
	Name          string
	LobbySize     int64
	LedgerVersion int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Participant struct {
	TournamentID string
	PlayerID     string
	DisplayName  string
	CreatedAt    time.Time
}

type Placement struct {
	ID           int64
	TournamentID string
	PlayerID     string
	DayNumber    int64
	GameNumber   int64
	Placement    int64
	RecordedAt   time.Time
}

type StandingsSnapshot struct {
	TournamentID  string
	SnapshotID    string
	LedgerVersion int64
	PlayerCount   int64
	ComputedAt    time.Time
}

type Standing struct {
	TournamentID      string
	PlayerID          string
	Position          int64
	Rank              int64
	TotalPoints       int64
	GamesPlayed       int64
	PlacementCounts   string // JSON array
	TopFourCount      int64
	TopFourPlusFirsts int64
	RecentPlacements  string // JSON array
	EndOfDayPlacement int64
}
