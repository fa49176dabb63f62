package db

import (
	"context"
	"time"
)

const getSnapshot = `
SELECT tournament_id, snapshot_id, ledger_version, player_count, computed_at
FROM standings_snapshots
WHERE tournament_id = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, tournamentID string) (StandingsSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getSnapshot, tournamentID)
	var i StandingsSnapshot
	err := row.Scan(
		&i.TournamentID,
		&i.SnapshotID,
		&i.LedgerVersion,
		&i.PlayerCount,
		&i.ComputedAt,
	)
	return i, err
}

const upsertSnapshot = `
INSERT INTO standings_snapshots (tournament_id, snapshot_id, ledger_version, player_count, computed_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (tournament_id) DO UPDATE SET
    snapshot_id = excluded.snapshot_id,
    ledger_version = excluded.ledger_version,
    player_count = excluded.player_count,
    computed_at = excluded.computed_at
`

type UpsertSnapshotParams struct {
	TournamentID  string
	SnapshotID    string
	LedgerVersion int64
	PlayerCount   int64
	ComputedAt    time.Time
}

func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot,
		arg.TournamentID,
		arg.SnapshotID,
		arg.LedgerVersion,
		arg.PlayerCount,
		arg.ComputedAt,
	)
	return err
}

const deleteStandings = `
DELETE FROM standings
WHERE tournament_id = ?
`

func (q *Queries) DeleteStandings(ctx context.Context, tournamentID string) error {
	_, err := q.db.ExecContext(ctx, deleteStandings, tournamentID)
	return err
}

const insertStanding = `
INSERT INTO standings (
    tournament_id, player_id, position, rank, total_points, games_played, placement_counts,
    top_four_count, top_four_plus_firsts, recent_placements, end_of_day_placement
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertStandingParams struct {
	TournamentID      string
	PlayerID          string
	Position          int64
	Rank              int64
	TotalPoints       int64
	GamesPlayed       int64
	PlacementCounts   string
	TopFourCount      int64
	TopFourPlusFirsts int64
	RecentPlacements  string
	EndOfDayPlacement int64
}

func (q *Queries) InsertStanding(ctx context.Context, arg InsertStandingParams) error {
	_, err := q.db.ExecContext(ctx, insertStanding,
		arg.TournamentID,
		arg.PlayerID,
		arg.Position,
		arg.Rank,
		arg.TotalPoints,
		arg.GamesPlayed,
		arg.PlacementCounts,
		arg.TopFourCount,
		arg.TopFourPlusFirsts,
		arg.RecentPlacements,
		arg.EndOfDayPlacement,
	)
	return err
}

const listStandings = `
SELECT tournament_id, player_id, position, rank, total_points, games_played, placement_counts,
       top_four_count, top_four_plus_firsts, recent_placements, end_of_day_placement
FROM standings
WHERE tournament_id = ?
ORDER BY position
LIMIT ?
`

type ListStandingsParams struct {
	TournamentID string
	Limit        int64 // -1 returns every row
}

func (q *Queries) ListStandings(ctx context.Context, arg ListStandingsParams) ([]Standing, error) {
	rows, err := q.db.QueryContext(ctx, listStandings, arg.TournamentID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Standing
	for rows.Next() {
		var i Standing
		if err := rows.Scan(
			&i.TournamentID,
			&i.PlayerID,
			&i.Position,
			&i.Rank,
			&i.TotalPoints,
			&i.GamesPlayed,
			&i.PlacementCounts,
			&i.TopFourCount,
			&i.TopFourPlusFirsts,
			&i.RecentPlacements,
			&i.EndOfDayPlacement,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getStanding = `
SELECT tournament_id, player_id, position, rank, total_points, games_played, placement_counts,
       top_four_count, top_four_plus_firsts, recent_placements, end_of_day_placement
FROM standings
WHERE tournament_id = ? AND player_id = ?
`

type GetStandingParams struct {
	TournamentID string
	PlayerID     string
}

func (q *Queries) GetStanding(ctx context.Context, arg GetStandingParams) (Standing, error) {
	row := q.db.QueryRowContext(ctx, getStanding, arg.TournamentID, arg.PlayerID)
	var i Standing
	err := row.Scan(
		&i.TournamentID,
		&i.PlayerID,
		&i.Position,
		&i.Rank,
		&i.TotalPoints,
		&i.GamesPlayed,
		&i.PlacementCounts,
		&i.TopFourCount,
		&i.TopFourPlusFirsts,
		&i.RecentPlacements,
		&i.EndOfDayPlacement,
	)
	return i, err
}
