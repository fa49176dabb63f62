package service

import (
	"context"
	"strings"
	"tft-tracker/internal/config"
	"tft-tracker/internal/constants"
	"tft-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type CreateTournamentInput struct {
	ID        string
	Name      string
	LobbySize int // 0 means the configured default
}

type TournamentService struct {
	store  TournamentStore
	cfg    *config.Config
	logger zerolog.Logger
}

func NewTournamentService(store TournamentStore, cfg *config.Config, logger zerolog.Logger) *TournamentService {
	return &TournamentService{store: store, cfg: cfg, logger: logger}
}

func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (*domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	lobby := in.LobbySize
	if lobby == 0 {
		lobby = s.cfg.DefaultLobbySize
	}

	verr := &domain.ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("tournament name is required")
	}
	if lobby < constants.MinLobbySize || lobby > constants.MaxLobbySize {
		verr.Add("lobby size %d outside %d..%d", lobby, constants.MinLobbySize, constants.MaxLobbySize)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	t := &domain.Tournament{ID: strings.TrimSpace(in.ID), Name: name, LobbySize: lobby}
	if err := s.store.Create(ctx, t); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create tournament")
		return nil, err
	}

	s.logger.Info().Str("tournament_id", t.ID).Int("lobby_size", lobby).Msg("tournament created")
	return t, nil
}

// RegisterParticipants adds players to the tournament. Registering a player
// again only updates the display name.
func (s *TournamentService) RegisterParticipants(ctx context.Context, tournamentID string, participants []domain.Participant) ([]domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	verr := &domain.ValidationError{}
	if len(participants) == 0 {
		verr.Add("at least one participant is required")
	}
	seen := make(map[string]struct{}, len(participants))
	cleaned := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		id := strings.TrimSpace(p.PlayerID)
		if id == "" {
			verr.Add("player id is required")
			continue
		}
		if _, dup := seen[id]; dup {
			verr.Add("player %s appears more than once", id)
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, domain.Participant{
			TournamentID: tournamentID,
			PlayerID:     id,
			DisplayName:  strings.TrimSpace(p.DisplayName),
		})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.store.UpsertParticipants(ctx, tournamentID, cleaned); err != nil {
		return nil, err
	}

	s.logger.Info().Str("tournament_id", tournamentID).Int("count", len(cleaned)).Msg("participants registered")
	return s.store.ListParticipants(ctx, tournamentID)
}

func (s *TournamentService) GetTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.store.Get(ctx, id)
}

func (s *TournamentService) ListTournaments(ctx context.Context) ([]domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.store.List(ctx)
}

func (s *TournamentService) ListParticipants(ctx context.Context, tournamentID string) ([]domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.store.Get(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, tournamentID)
}
