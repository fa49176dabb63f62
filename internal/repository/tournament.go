package repository

import (
	"context"
	"database/sql"
	"fmt"
	"tft-tracker/internal/db"
	"tft-tracker/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type TournamentRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewTournamentRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *TournamentRepository {
	return &TournamentRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Create stores t, assigning an id when it has none.
func (r *TournamentRepository) Create(ctx context.Context, t *domain.Tournament) error {
	if t.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		t.ID = id
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	err := r.queries.CreateTournament(ctx, db.CreateTournamentParams{
		ID:        t.ID,
		Name:      t.Name,
		LobbySize: int64(t.LobbySize),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ValidationError{Problems: []string{fmt.Sprintf("tournament %s already exists", t.ID)}}
		}
		return fmt.Errorf("failed to create tournament %s: %w", t.ID, err)
	}
	return nil
}

func (r *TournamentRepository) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	t, err := r.queries.GetTournament(ctx, id)
	if isNoRows(err) {
		return nil, &domain.NotFoundError{Resource: "tournament", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return toDomainTournament(t), nil
}

func (r *TournamentRepository) List(ctx context.Context) ([]domain.Tournament, error) {
	rows, err := r.queries.ListTournaments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	result := make([]domain.Tournament, len(rows))
	for i, t := range rows {
		result[i] = *toDomainTournament(t)
	}
	return result, nil
}

func (r *TournamentRepository) UpsertParticipants(ctx context.Context, tournamentID string, participants []domain.Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	if _, err := qtx.GetTournament(ctx, tournamentID); err != nil {
		if isNoRows(err) {
			return &domain.NotFoundError{Resource: "tournament", ID: tournamentID}
		}
		return fmt.Errorf("failed to get tournament %s: %w", tournamentID, err)
	}

	now := time.Now().UTC()
	for _, p := range participants {
		name := p.DisplayName
		if name == "" {
			name = p.PlayerID
		}
		err := qtx.UpsertParticipant(ctx, db.UpsertParticipantParams{
			TournamentID: tournamentID,
			PlayerID:     p.PlayerID,
			DisplayName:  name,
			CreatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert participant %s: %w", p.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit participants: %w", err)
	}

	r.logger.Debug().
		Str("tournament_id", tournamentID).
		Int("participant_count", len(participants)).
		Msg("participants upserted")
	return nil
}

func (r *TournamentRepository) ListParticipants(ctx context.Context, tournamentID string) ([]domain.Participant, error) {
	rows, err := r.queries.ListParticipants(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for %s: %w", tournamentID, err)
	}

	result := make([]domain.Participant, len(rows))
	for i, p := range rows {
		result[i] = domain.Participant{
			TournamentID: p.TournamentID,
			PlayerID:     p.PlayerID,
			DisplayName:  p.DisplayName,
			CreatedAt:    p.CreatedAt,
		}
	}
	return result, nil
}

func toDomainTournament(t db.Tournament) *domain.Tournament {
	return &domain.Tournament{
		ID:            t.ID,
		Name:          t.Name,
		LobbySize:     int(t.LobbySize),
		LedgerVersion: t.LedgerVersion,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
