package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tft-tracker/internal/config"
	"tft-tracker/internal/constants"
	"tft-tracker/internal/domain"
	"tft-tracker/internal/metrics"
	"tft-tracker/internal/repository"
	"tft-tracker/internal/standings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

const maxRetryBackoff = 2 * time.Second

type RecalcResult struct {
	TournamentID  string
	SnapshotID    string
	LedgerVersion int64
	PlayerCount   int
	// Discarded is set when a snapshot from a newer ledger version was
	// already stored and this one was dropped.
	Discarded bool
}

type StandingsService struct {
	tournaments TournamentStore
	ledger      Ledger
	snapshots   SnapshotStore
	cfg         *config.Config
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	locks *keyedLock
}

func NewStandingsService(
	tournaments TournamentStore,
	ledger Ledger,
	snapshots SnapshotStore,
	cfg *config.Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *StandingsService {
	return &StandingsService{
		tournaments: tournaments,
		ledger:      ledger,
		snapshots:   snapshots,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
		locks:       newKeyedLock(),
	}
}

// Recalculate rebuilds the tournament's standings from every recorded fact
// and stores them as the current snapshot. Rebuilds of one tournament never
// overlap. The previous snapshot stays in place when anything fails.
func (s *StandingsService) Recalculate(ctx context.Context, tournamentID string) (*RecalcResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RecalculationTimeout)
	defer cancel()

	if _, err := s.tournaments.Get(ctx, tournamentID); err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		s.metrics.Recalculations.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	unlock := s.locks.lock(tournamentID)
	defer unlock()

	start := time.Now()
	backoff := retry.WithMaxRetries(s.cfg.RecalcMaxRetries,
		retry.WithCappedDuration(maxRetryBackoff, retry.NewExponential(s.cfg.RecalcBaseBackoff)))

	var result *RecalcResult
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res, err := s.rebuild(ctx, tournamentID)
		if err != nil {
			if repository.IsTransient(err) {
				s.logger.Warn().
					Err(err).
					Str("tournament_id", tournamentID).
					Int("attempt", attempt).
					Msg("recalculation hit a locked database, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	s.metrics.RecalculationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.Recalculations.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error().Err(err).Str("tournament_id", tournamentID).Msg("recalculation failed, previous standings kept")
		return nil, err
	}

	if result.Discarded {
		s.metrics.Recalculations.WithLabelValues(metrics.OutcomeConflict).Inc()
		return result, nil
	}

	s.metrics.Recalculations.WithLabelValues(metrics.OutcomeOK).Inc()
	s.metrics.StandingsPlayers.WithLabelValues(tournamentID).Set(float64(result.PlayerCount))
	s.logger.Info().
		Str("tournament_id", tournamentID).
		Str("snapshot_id", result.SnapshotID).
		Int64("ledger_version", result.LedgerVersion).
		Int("players", result.PlayerCount).
		Dur("took", time.Since(start)).
		Msg("standings recalculated")
	return result, nil
}

func (s *StandingsService) rebuild(ctx context.Context, tournamentID string) (*RecalcResult, error) {
	t, err := s.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	facts, version, err := s.ledger.ListFacts(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	ranked, err := standings.Compute(facts, standings.Options{
		Scoring: standings.NewScoring(t.LobbySize),
		Mode:    s.cfg.RankMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute standings for %s: %w", tournamentID, err)
	}

	// last point at which the rebuild may be abandoned
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshotID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	snap := domain.Snapshot{
		TournamentID:  tournamentID,
		SnapshotID:    snapshotID,
		LedgerVersion: version,
		ComputedAt:    time.Now().UTC(),
		Standings:     ranked,
	}
	result := &RecalcResult{
		TournamentID:  tournamentID,
		SnapshotID:    snapshotID,
		LedgerVersion: version,
		PlayerCount:   len(ranked),
	}

	err = s.snapshots.ReplaceSnapshot(context.WithoutCancel(ctx), snap)
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		s.logger.Info().
			Str("tournament_id", tournamentID).
			Int64("ledger_version", version).
			Msg("newer standings already stored, discarding rebuild")
		result.Discarded = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecalculateAll rebuilds every tournament, a few at a time. It returns the
// number of tournaments rebuilt and the first failure, if any.
func (s *StandingsService) RecalculateAll(ctx context.Context) (int, error) {
	tournaments, err := s.tournaments.List(ctx)
	if err != nil {
		return 0, err
	}

	var (
		mu      sync.Mutex
		rebuilt int
	)

	g := new(errgroup.Group)
	g.SetLimit(constants.RebuildConcurrency)
	for _, t := range tournaments {
		g.Go(func() error {
			if _, err := s.Recalculate(ctx, t.ID); err != nil {
				return fmt.Errorf("tournament %s: %w", t.ID, err)
			}
			mu.Lock()
			rebuilt++
			mu.Unlock()
			return nil
		})
	}

	err = g.Wait()
	s.logger.Info().
		Int("tournaments", len(tournaments)).
		Int("rebuilt", rebuilt).
		Msg("rebuild of all standings finished")
	return rebuilt, err
}

// GetStandings returns the top limit rows of the stored leaderboard. A
// tournament without recorded results has no standings.
func (s *StandingsService) GetStandings(ctx context.Context, tournamentID string, limit int) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	t, err := s.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshots.GetSnapshot(ctx, tournamentID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	if len(snap.Standings) == 0 {
		return nil, &domain.NotFoundError{Resource: "standings", ID: tournamentID}
	}
	snap.Stale = snap.LedgerVersion < t.LedgerVersion
	return snap, nil
}

func (s *StandingsService) GetPlayerStanding(ctx context.Context, tournamentID, playerID string) (*domain.RankedStanding, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.tournaments.Get(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.snapshots.GetStanding(ctx, tournamentID, playerID)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return constants.DefaultStandingsLimit
	case limit > constants.MaxStandingsLimit:
		return constants.MaxStandingsLimit
	default:
		return limit
	}
}
