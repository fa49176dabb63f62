package db

import (
	"context"
	"time"
)

const insertPlacement = `
INSERT INTO placements (tournament_id, player_id, day_number, game_number, placement, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type InsertPlacementParams struct {
	TournamentID string
	PlayerID     string
	DayNumber    int64
	GameNumber   int64
	Placement    int64
	RecordedAt   time.Time
}

func (q *Queries) InsertPlacement(ctx context.Context, arg InsertPlacementParams) error {
	_, err := q.db.ExecContext(ctx, insertPlacement,
		arg.TournamentID,
		arg.PlayerID,
		arg.DayNumber,
		arg.GameNumber,
		arg.Placement,
		arg.RecordedAt,
	)
	return err
}

const listPlacementsByTournament = `
SELECT id, tournament_id, player_id, day_number, game_number, placement, recorded_at
FROM placements
WHERE tournament_id = ?
ORDER BY id
`

func (q *Queries) ListPlacementsByTournament(ctx context.Context, tournamentID string) ([]Placement, error) {
	rows, err := q.db.QueryContext(ctx, listPlacementsByTournament, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlacements(rows)
}

const listPlacementsByGame = `
SELECT id, tournament_id, player_id, day_number, game_number, placement, recorded_at
FROM placements
WHERE tournament_id = ? AND day_number = ? AND game_number = ?
ORDER BY placement
`

type ListPlacementsByGameParams struct {
	TournamentID string
	DayNumber    int64
	GameNumber   int64
}

func (q *Queries) ListPlacementsByGame(ctx context.Context, arg ListPlacementsByGameParams) ([]Placement, error) {
	rows, err := q.db.QueryContext(ctx, listPlacementsByGame, arg.TournamentID, arg.DayNumber, arg.GameNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlacements(rows)
}

const deleteGame = `
DELETE FROM placements
WHERE tournament_id = ? AND day_number = ? AND game_number = ?
`

type DeleteGameParams struct {
	TournamentID string
	DayNumber    int64
	GameNumber   int64
}

func (q *Queries) DeleteGame(ctx context.Context, arg DeleteGameParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteGame, arg.TournamentID, arg.DayNumber, arg.GameNumber)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

func scanPlacements(rows rowScanner) ([]Placement, error) {
	var items []Placement
	for rows.Next() {
		var i Placement
		if err := rows.Scan(
			&i.ID,
			&i.TournamentID,
			&i.PlayerID,
			&i.DayNumber,
			&i.GameNumber,
			&i.Placement,
			&i.RecordedAt,
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
