package service

import (
	"context"
	"tft-tracker/internal/domain"
)

type TournamentStore interface {
	Create(ctx context.Context, t *domain.Tournament) error
	Get(ctx context.Context, id string) (*domain.Tournament, error)
	List(ctx context.Context) ([]domain.Tournament, error)
	UpsertParticipants(ctx context.Context, tournamentID string, participants []domain.Participant) error
	ListParticipants(ctx context.Context, tournamentID string) ([]domain.Participant, error)
}

// Ledger is the append-mostly store of placement facts. Mutations return the
// ledger version they produced.
type Ledger interface {
	ListFacts(ctx context.Context, tournamentID string) ([]domain.PlacementFact, int64, error)
	GameFacts(ctx context.Context, tournamentID string, day, game int) ([]domain.PlacementFact, error)
	InsertGame(ctx context.Context, tournamentID string, facts []domain.PlacementFact) (int64, error)
	ReplaceGame(ctx context.Context, tournamentID string, day, game int, facts []domain.PlacementFact) (int64, error)
	DeleteGame(ctx context.Context, tournamentID string, day, game int) (int64, error)
}

type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, snap domain.Snapshot) error
	GetSnapshot(ctx context.Context, tournamentID string, limit int) (*domain.Snapshot, error)
	GetStanding(ctx context.Context, tournamentID, playerID string) (*domain.RankedStanding, error)
}

// Recalculator rebuilds a tournament's standings after its ledger changed.
type Recalculator interface {
	Recalculate(ctx context.Context, tournamentID string) (*RecalcResult, error)
}
