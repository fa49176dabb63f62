package repository

import (
	"context"
	"database/sql"
	"fmt"
	"tft-tracker/internal/db"
	"tft-tracker/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

// PlacementRepository is the result ledger. Every mutation bumps the
// tournament's ledger version inside the same transaction.
type PlacementRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlacementRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlacementRepository {
	return &PlacementRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// ListFacts returns every fact of the tournament in insertion order together
// with the ledger version they correspond to.
func (r *PlacementRepository) ListFacts(ctx context.Context, tournamentID string) ([]domain.PlacementFact, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	t, err := qtx.GetTournament(ctx, tournamentID)
	if isNoRows(err) {
		return nil, 0, &domain.NotFoundError{Resource: "tournament", ID: tournamentID}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get tournament %s: %w", tournamentID, err)
	}

	rows, err := qtx.ListPlacementsByTournament(ctx, tournamentID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list placements for %s: %w", tournamentID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit read: %w", err)
	}

	facts := make([]domain.PlacementFact, len(rows))
	for i, row := range rows {
		facts[i] = toDomainFact(row)
	}
	return facts, t.LedgerVersion, nil
}

func (r *PlacementRepository) GameFacts(ctx context.Context, tournamentID string, day, game int) ([]domain.PlacementFact, error) {
	rows, err := r.queries.ListPlacementsByGame(ctx, db.ListPlacementsByGameParams{
		TournamentID: tournamentID,
		DayNumber:    int64(day),
		GameNumber:   int64(game),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list placements for %s day %d game %d: %w", tournamentID, day, game, err)
	}

	facts := make([]domain.PlacementFact, len(rows))
	for i, row := range rows {
		facts[i] = toDomainFact(row)
	}
	return facts, nil
}

// InsertGame appends the facts of one game atomically and returns the new ledger version.
func (r *PlacementRepository) InsertGame(ctx context.Context, tournamentID string, facts []domain.PlacementFact) (int64, error) {
	return r.mutate(ctx, tournamentID, func(qtx *db.Queries) error {
		return r.insertFacts(ctx, qtx, facts)
	})
}

// ReplaceGame swaps every recorded fact of one game for facts.
func (r *PlacementRepository) ReplaceGame(ctx context.Context, tournamentID string, day, game int, facts []domain.PlacementFact) (int64, error) {
	return r.mutate(ctx, tournamentID, func(qtx *db.Queries) error {
		deleted, err := qtx.DeleteGame(ctx, db.DeleteGameParams{
			TournamentID: tournamentID,
			DayNumber:    int64(day),
			GameNumber:   int64(game),
		})
		if err != nil {
			return fmt.Errorf("failed to delete day %d game %d: %w", day, game, err)
		}
		if deleted == 0 {
			return &domain.NotFoundError{Resource: "game", ID: gameID(tournamentID, day, game)}
		}
		return r.insertFacts(ctx, qtx, facts)
	})
}

func (r *PlacementRepository) DeleteGame(ctx context.Context, tournamentID string, day, game int) (int64, error) {
	return r.mutate(ctx, tournamentID, func(qtx *db.Queries) error {
		deleted, err := qtx.DeleteGame(ctx, db.DeleteGameParams{
			TournamentID: tournamentID,
			DayNumber:    int64(day),
			GameNumber:   int64(game),
		})
		if err != nil {
			return fmt.Errorf("failed to delete day %d game %d: %w", day, game, err)
		}
		if deleted == 0 {
			return &domain.NotFoundError{Resource: "game", ID: gameID(tournamentID, day, game)}
		}
		return nil
	})
}

func (r *PlacementRepository) mutate(ctx context.Context, tournamentID string, apply func(qtx *db.Queries) error) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	if err := apply(qtx); err != nil {
		return 0, err
	}

	version, err := qtx.BumpLedgerVersion(ctx, db.BumpLedgerVersionParams{
		UpdatedAt: time.Now().UTC(),
		ID:        tournamentID,
	})
	if isNoRows(err) {
		return 0, &domain.NotFoundError{Resource: "tournament", ID: tournamentID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to bump ledger version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ledger change: %w", err)
	}

	r.logger.Debug().
		Str("tournament_id", tournamentID).
		Int64("ledger_version", version).
		Msg("ledger updated")
	return version, nil
}

func (r *PlacementRepository) insertFacts(ctx context.Context, qtx *db.Queries, facts []domain.PlacementFact) error {
	for _, f := range facts {
		err := qtx.InsertPlacement(ctx, db.InsertPlacementParams{
			TournamentID: f.TournamentID,
			PlayerID:     f.PlayerID,
			DayNumber:    int64(f.DayNumber),
			GameNumber:   int64(f.GameNumber),
			Placement:    int64(f.Placement),
			RecordedAt:   f.RecordedAt.UTC(),
		})
		switch {
		case err == nil:
		case isUniqueViolation(err):
			return &domain.ValidationError{Problems: []string{fmt.Sprintf(
				"result for player %s day %d game %d or placement %d already recorded",
				f.PlayerID, f.DayNumber, f.GameNumber, f.Placement)}}
		case isForeignKeyViolation(err):
			return &domain.ValidationError{Problems: []string{fmt.Sprintf(
				"player %s is not registered for tournament %s", f.PlayerID, f.TournamentID)}}
		default:
			return fmt.Errorf("failed to insert placement for %s: %w", f.PlayerID, err)
		}
	}
	return nil
}

func toDomainFact(row db.Placement) domain.PlacementFact {
	return domain.PlacementFact{
		TournamentID: row.TournamentID,
		PlayerID:     row.PlayerID,
		DayNumber:    int(row.DayNumber),
		GameNumber:   int(row.GameNumber),
		Placement:    int(row.Placement),
		RecordedAt:   row.RecordedAt,
	}
}

func gameID(tournamentID string, day, game int) string {
	return fmt.Sprintf("%s/day-%d/game-%d", tournamentID, day, game)
}
