package service

import (
	"context"
	"fmt"
	"tft-tracker/internal/constants"
	"tft-tracker/internal/domain"
	"tft-tracker/internal/metrics"
	"tft-tracker/internal/submission"
	"time"

	"github.com/rs/zerolog"
)

const (
	opSubmit  = "submit"
	opCorrect = "correct"
	opDelete  = "delete"
)

type SubmissionResult struct {
	TournamentID  string
	DayNumber     int
	GameNumber    int
	LedgerVersion int64
	// StandingsStale reports that the ledger change was committed but the
	// standings could not be rebuilt; the previous leaderboard is still served.
	StandingsStale bool
}

type SubmissionService struct {
	tournaments  TournamentStore
	ledger       Ledger
	recalculator Recalculator
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewSubmissionService(
	tournaments TournamentStore,
	ledger Ledger,
	recalculator Recalculator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		tournaments:  tournaments,
		ledger:       ledger,
		recalculator: recalculator,
		metrics:      m,
		logger:       logger,
	}
}

// SubmitGame records a new game and rebuilds the standings.
func (s *SubmissionService) SubmitGame(ctx context.Context, game domain.GameResult) (*SubmissionResult, error) {
	rules, _, err := s.rulesFor(ctx, game)
	if err != nil {
		return nil, s.fail(opSubmit, err)
	}
	if err := submission.ValidateGame(game, rules); err != nil {
		return nil, s.fail(opSubmit, err)
	}

	game = stamp(game)
	facts := game.Facts()

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	version, err := s.ledger.InsertGame(dbCtx, game.TournamentID, facts)
	if err != nil {
		return nil, s.fail(opSubmit, commitError(facts, err))
	}

	return s.afterCommit(ctx, opSubmit, game.TournamentID, game.DayNumber, game.GameNumber, version), nil
}

// CorrectGame replaces every result of an already recorded game.
func (s *SubmissionService) CorrectGame(ctx context.Context, game domain.GameResult) (*SubmissionResult, error) {
	rules, recorded, err := s.rulesFor(ctx, game)
	if err != nil {
		return nil, s.fail(opCorrect, err)
	}
	if err := submission.ValidateCorrection(game, rules); err != nil {
		return nil, s.fail(opCorrect, err)
	}

	// a correction keeps the game's place in time unless told otherwise
	if game.RecordedAt.IsZero() && len(recorded) > 0 {
		game.RecordedAt = recorded[0].RecordedAt
	}
	game = stamp(game)
	facts := game.Facts()

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	version, err := s.ledger.ReplaceGame(dbCtx, game.TournamentID, game.DayNumber, game.GameNumber, facts)
	if err != nil {
		return nil, s.fail(opCorrect, commitError(facts, err))
	}

	return s.afterCommit(ctx, opCorrect, game.TournamentID, game.DayNumber, game.GameNumber, version), nil
}

func (s *SubmissionService) DeleteGame(ctx context.Context, tournamentID string, day, game int) (*SubmissionResult, error) {
	verr := &domain.ValidationError{}
	if day < 1 {
		verr.Add("day number %d must be >= 1", day)
	}
	if game < 1 {
		verr.Add("game number %d must be >= 1", game)
	}
	if err := verr.OrNil(); err != nil {
		return nil, s.fail(opDelete, err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.tournaments.Get(dbCtx, tournamentID); err != nil {
		return nil, s.fail(opDelete, err)
	}

	version, err := s.ledger.DeleteGame(dbCtx, tournamentID, day, game)
	if err != nil {
		return nil, s.fail(opDelete, err)
	}

	return s.afterCommit(ctx, opDelete, tournamentID, day, game, version), nil
}

// rulesFor loads what validation needs, along with the facts already
// recorded for the game.
func (s *SubmissionService) rulesFor(ctx context.Context, game domain.GameResult) (submission.Rules, []domain.PlacementFact, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	t, err := s.tournaments.Get(ctx, game.TournamentID)
	if err != nil {
		return submission.Rules{}, nil, err
	}
	participants, err := s.tournaments.ListParticipants(ctx, game.TournamentID)
	if err != nil {
		return submission.Rules{}, nil, err
	}
	recorded, err := s.ledger.GameFacts(ctx, game.TournamentID, game.DayNumber, game.GameNumber)
	if err != nil {
		return submission.Rules{}, nil, err
	}
	keys := make([]domain.FactKey, len(recorded))
	for i, f := range recorded {
		keys[i] = f.Key()
	}
	return submission.NewRules(t, participants, keys), recorded, nil
}

func (s *SubmissionService) afterCommit(ctx context.Context, op, tournamentID string, day, game int, version int64) *SubmissionResult {
	s.metrics.GamesSubmitted.WithLabelValues(op, metrics.OutcomeOK).Inc()
	s.logger.Info().
		Str("operation", op).
		Str("tournament_id", tournamentID).
		Int("day", day).
		Int("game", game).
		Int64("ledger_version", version).
		Msg("ledger updated")

	result := &SubmissionResult{
		TournamentID:  tournamentID,
		DayNumber:     day,
		GameNumber:    game,
		LedgerVersion: version,
	}

	if _, err := s.recalculator.Recalculate(ctx, tournamentID); err != nil {
		s.logger.Warn().Err(err).Str("tournament_id", tournamentID).Msg("standings left stale after ledger update")
		result.StandingsStale = true
	}
	return result
}

func (s *SubmissionService) fail(op string, err error) error {
	outcome := metrics.OutcomeError
	if domain.IsValidation(err) || domain.IsNotFound(err) {
		outcome = metrics.OutcomeRejected
	}
	s.metrics.GamesSubmitted.WithLabelValues(op, outcome).Inc()

	if outcome == metrics.OutcomeError {
		s.logger.Error().Err(err).Str("operation", op).Msg("ledger update failed")
	} else {
		s.logger.Debug().Err(err).Str("operation", op).Msg("ledger update rejected")
	}
	return err
}

func stamp(game domain.GameResult) domain.GameResult {
	if game.RecordedAt.IsZero() {
		game.RecordedAt = time.Now().UTC()
	}
	return game
}

// commitError keeps validation and lookup failures as they are; anything else
// means the facts never reached the ledger.
func commitError(facts []domain.PlacementFact, err error) error {
	if domain.IsValidation(err) || domain.IsNotFound(err) {
		return err
	}
	return &domain.CommitError{Facts: facts, Err: fmt.Errorf("ledger write: %w", err)}
}
