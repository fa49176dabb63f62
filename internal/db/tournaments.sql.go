package db

import (
	"context"
	"time"
)

const createTournament = `
INSERT INTO tournaments (id, name, lobby_size, ledger_version, created_at, updated_at)
VALUES (?, ?, ?, 0, ?, ?)
`

type CreateTournamentParams struct {
	ID        string
	Name      string
	LobbySize int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateTournament(ctx context.Context, arg CreateTournamentParams) error {
	_, err := q.db.ExecContext(ctx, createTournament,
		arg.ID,
		arg.Name,
		arg.LobbySize,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getTournament = `
SELECT id, name, lobby_size, ledger_version, created_at, updated_at
FROM tournaments
WHERE id = ?
`

func (q *Queries) GetTournament(ctx context.Context, id string) (Tournament, error) {
	row := q.db.QueryRowContext(ctx, getTournament, id)
	var i Tournament
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.LobbySize,
		&i.LedgerVersion,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listTournaments = `
SELECT id, name, lobby_size, ledger_version, created_at, updated_at
FROM tournaments
ORDER BY created_at, id
`

func (q *Queries) ListTournaments(ctx context.Context) ([]Tournament, error) {
	rows, err := q.db.QueryContext(ctx, listTournaments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Tournament
	for rows.Next() {
		var i Tournament
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.LobbySize,
			&i.LedgerVersion,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const bumpLedgerVersion = `
UPDATE tournaments
SET ledger_version = ledger_version + 1, updated_at = ?
WHERE id = ?
RETURNING ledger_version
`

type BumpLedgerVersionParams struct {
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) BumpLedgerVersion(ctx context.Context, arg BumpLedgerVersionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, bumpLedgerVersion, arg.UpdatedAt, arg.ID)
	var ledgerVersion int64
	err := row.Scan(&ledgerVersion)
	return ledgerVersion, err
}

const upsertParticipant = `
INSERT INTO participants (tournament_id, player_id, display_name, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (tournament_id, player_id) DO UPDATE SET
    display_name = excluded.display_name
`

type UpsertParticipantParams struct {
	TournamentID string
	PlayerID     string
	DisplayName  string
	CreatedAt    time.Time
}

func (q *Queries) UpsertParticipant(ctx context.Context, arg UpsertParticipantParams) error {
	_, err := q.db.ExecContext(ctx, upsertParticipant,
		arg.TournamentID,
		arg.PlayerID,
		arg.DisplayName,
		arg.CreatedAt,
	)
	return err
}

const listParticipants = `
SELECT tournament_id, player_id, display_name, created_at
FROM participants
WHERE tournament_id = ?
ORDER BY created_at, player_id
`

func (q *Queries) ListParticipants(ctx context.Context, tournamentID string) ([]Participant, error) {
	rows, err := q.db.QueryContext(ctx, listParticipants, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Participant
	for rows.Next() {
		var i Participant
		if err := rows.Scan(
			&i.TournamentID,
			&i.PlayerID,
			&i.DisplayName,
			&i.CreatedAt,
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
