package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"tft-tracker/internal/db"
	"tft-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// StandingsRepository stores one leaderboard snapshot per tournament.
type StandingsRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewStandingsRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *StandingsRepository {
	return &StandingsRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// ReplaceSnapshot swaps the stored leaderboard for snap in one transaction.
// It returns domain.ErrConcurrencyConflict and writes nothing when the stored
// snapshot was computed from a newer ledger version.
func (r *StandingsRepository) ReplaceSnapshot(ctx context.Context, snap domain.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	current, err := qtx.GetSnapshot(ctx, snap.TournamentID)
	switch {
	case isNoRows(err):
	case err != nil:
		return fmt.Errorf("failed to read current snapshot: %w", err)
	case current.LedgerVersion > snap.LedgerVersion:
		r.logger.Debug().
			Str("tournament_id", snap.TournamentID).
			Int64("stored_version", current.LedgerVersion).
			Int64("ledger_version", snap.LedgerVersion).
			Msg("discarding stale snapshot")
		return domain.ErrConcurrencyConflict
	}

	if err := qtx.DeleteStandings(ctx, snap.TournamentID); err != nil {
		return fmt.Errorf("failed to clear standings: %w", err)
	}

	for i, s := range snap.Standings {
		counts, err := json.Marshal(s.PlacementCounts)
		if err != nil {
			return fmt.Errorf("failed to encode placement counts: %w", err)
		}
		recent, err := json.Marshal(s.RecentPlacements)
		if err != nil {
			return fmt.Errorf("failed to encode recent placements: %w", err)
		}

		err = qtx.InsertStanding(ctx, db.InsertStandingParams{
			TournamentID:      snap.TournamentID,
			PlayerID:          s.PlayerID,
			Position:          int64(i + 1),
			Rank:              int64(s.Rank),
			TotalPoints:       int64(s.TotalPoints),
			GamesPlayed:       int64(s.GamesPlayed),
			PlacementCounts:   string(counts),
			TopFourCount:      int64(s.TopFourCount),
			TopFourPlusFirsts: int64(s.TopFourPlusFirsts),
			RecentPlacements:  string(recent),
			EndOfDayPlacement: int64(s.EndOfDayPlacement),
		})
		if err != nil {
			return fmt.Errorf("failed to insert standing for %s: %w", s.PlayerID, err)
		}
	}

	err = qtx.UpsertSnapshot(ctx, db.UpsertSnapshotParams{
		TournamentID:  snap.TournamentID,
		SnapshotID:    snap.SnapshotID,
		LedgerVersion: snap.LedgerVersion,
		PlayerCount:   int64(len(snap.Standings)),
		ComputedAt:    snap.ComputedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the stored leaderboard, truncated to limit rows when
// limit is positive.
func (r *StandingsRepository) GetSnapshot(ctx context.Context, tournamentID string, limit int) (*domain.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	meta, err := qtx.GetSnapshot(ctx, tournamentID)
	if isNoRows(err) {
		return nil, &domain.NotFoundError{Resource: "standings", ID: tournamentID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", tournamentID, err)
	}

	queryLimit := int64(-1)
	if limit > 0 {
		queryLimit = int64(limit)
	}
	rows, err := qtx.ListStandings(ctx, db.ListStandingsParams{
		TournamentID: tournamentID,
		Limit:        queryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list standings for %s: %w", tournamentID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit read: %w", err)
	}

	snap := &domain.Snapshot{
		TournamentID:  meta.TournamentID,
		SnapshotID:    meta.SnapshotID,
		LedgerVersion: meta.LedgerVersion,
		ComputedAt:    meta.ComputedAt,
		Standings:     make([]domain.RankedStanding, len(rows)),
	}
	for i, row := range rows {
		standing, err := toDomainStanding(row)
		if err != nil {
			return nil, err
		}
		snap.Standings[i] = standing
	}
	return snap, nil
}

func (r *StandingsRepository) GetStanding(ctx context.Context, tournamentID, playerID string) (*domain.RankedStanding, error) {
	row, err := r.queries.GetStanding(ctx, db.GetStandingParams{
		TournamentID: tournamentID,
		PlayerID:     playerID,
	})
	if isNoRows(err) {
		return nil, &domain.NotFoundError{Resource: "player standing", ID: playerID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get standing for %s: %w", playerID, err)
	}

	standing, err := toDomainStanding(row)
	if err != nil {
		return nil, err
	}
	return &standing, nil
}

func toDomainStanding(row db.Standing) (domain.RankedStanding, error) {
	var counts, recent []int
	if err := json.Unmarshal([]byte(row.PlacementCounts), &counts); err != nil {
		return domain.RankedStanding{}, fmt.Errorf("failed to decode placement counts for %s: %w", row.PlayerID, err)
	}
	if err := json.Unmarshal([]byte(row.RecentPlacements), &recent); err != nil {
		return domain.RankedStanding{}, fmt.Errorf("failed to decode recent placements for %s: %w", row.PlayerID, err)
	}

	return domain.RankedStanding{
		Rank: int(row.Rank),
		PlayerAggregate: domain.PlayerAggregate{
			PlayerID:          row.PlayerID,
			TotalPoints:       int(row.TotalPoints),
			GamesPlayed:       int(row.GamesPlayed),
			PlacementCounts:   counts,
			TopFourCount:      int(row.TopFourCount),
			TopFourPlusFirsts: int(row.TopFourPlusFirsts),
			RecentPlacements:  recent,
			EndOfDayPlacement: int(row.EndOfDayPlacement),
		},
	}, nil
}
