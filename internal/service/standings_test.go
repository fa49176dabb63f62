package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"tft-tracker/internal/constants"
	"tft-tracker/internal/domain"
	"tft-tracker/internal/metrics"
	"tft-tracker/internal/standings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculate_WritesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 2, "alice", "bob")

	_, err := f.ledger.InsertGame(ctx, "cup", game("cup", 1, 1, "bob", "alice").Facts())
	require.NoError(t, err)
	_, err = f.ledger.InsertGame(ctx, "cup", game("cup", 1, 2, "bob", "alice").Facts())
	require.NoError(t, err)

	res, err := f.standings.Recalculate(ctx, "cup")
	require.NoError(t, err)
	assert.False(t, res.Discarded)
	assert.Equal(t, int64(2), res.LedgerVersion)
	assert.Equal(t, 2, res.PlayerCount)
	assert.NotEmpty(t, res.SnapshotID)

	snap, ok := f.snapshots.get("cup")
	require.True(t, ok)
	assert.Equal(t, int64(2), snap.LedgerVersion)
	require.Len(t, snap.Standings, 2)
	assert.Equal(t, "bob", snap.Standings[0].PlayerID)
	assert.Equal(t, 4, snap.Standings[0].TotalPoints)
	assert.Equal(t, 1, snap.Standings[0].Rank)
	assert.Equal(t, "alice", snap.Standings[1].PlayerID)
	assert.Equal(t, 2, snap.Standings[1].Rank)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Recalculations.WithLabelValues(metrics.OutcomeOK)))
}

func TestRecalculate_UsesTournamentLobbySize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "duo", 4, "a", "b", "c", "d")

	_, err := f.ledger.InsertGame(ctx, "duo", game("duo", 1, 1, "a", "b", "c", "d").Facts())
	require.NoError(t, err)

	_, err = f.standings.Recalculate(ctx, "duo")
	require.NoError(t, err)

	snap, _ := f.snapshots.get("duo")
	require.Len(t, snap.Standings, 4)
	assert.Equal(t, 4, snap.Standings[0].TotalPoints)
	assert.Equal(t, 1, snap.Standings[3].TotalPoints)
	// sentinel for a four player lobby is 5
	assert.Equal(t, []int{4, 5, 5, 5, 5}, snap.Standings[3].RecentPlacements)
}

func TestRecalculate_DiscardsStaleSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 2, "alice", "bob")

	_, err := f.ledger.InsertGame(ctx, "cup", game("cup", 1, 1, "alice", "bob").Facts())
	require.NoError(t, err)

	newer := domain.Snapshot{TournamentID: "cup", SnapshotID: "from-the-future", LedgerVersion: 9}
	require.NoError(t, f.snapshots.ReplaceSnapshot(ctx, newer))

	res, err := f.standings.Recalculate(ctx, "cup")
	require.NoError(t, err)
	assert.True(t, res.Discarded)

	snap, _ := f.snapshots.get("cup")
	assert.Equal(t, "from-the-future", snap.SnapshotID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Recalculations.WithLabelValues(metrics.OutcomeConflict)))
}

func TestRecalculate_RetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "cup", 2, "alice", "bob")

	f.ledger.listFailures = 2
	f.ledger.listErr = sqlite3.Error{Code: sqlite3.ErrBusy}

	res, err := f.standings.Recalculate(context.Background(), "cup")
	require.NoError(t, err)
	assert.Equal(t, 0, f.ledger.listFailures)
	assert.Equal(t, 0, res.PlayerCount)
}

func TestRecalculate_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "cup", 2, "alice", "bob")

	f.ledger.listFailures = 10
	f.ledger.listErr = sqlite3.Error{Code: sqlite3.ErrLocked}

	_, err := f.standings.Recalculate(context.Background(), "cup")
	require.Error(t, err)
	// one attempt plus three retries
	assert.Equal(t, 6, f.ledger.listFailures)
	assert.Equal(t, 0, f.snapshots.writes)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Recalculations.WithLabelValues(metrics.OutcomeError)))
}

func TestRecalculate_DoesNotRetryPermanentErrors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "cup", 2, "alice", "bob")

	boom := errors.New("disk on fire")
	f.ledger.listFailures = 5
	f.ledger.listErr = boom

	_, err := f.standings.Recalculate(context.Background(), "cup")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, f.ledger.listFailures)
}

func TestRecalculate_KeepsPreviousSnapshotOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 2, "alice", "bob")

	_, err := f.ledger.InsertGame(ctx, "cup", game("cup", 1, 1, "alice", "bob").Facts())
	require.NoError(t, err)
	_, err = f.standings.Recalculate(ctx, "cup")
	require.NoError(t, err)
	before, _ := f.snapshots.get("cup")

	// a fact the engine refuses: placement outside the lobby
	f.ledger.facts["cup"] = append(f.ledger.facts["cup"], domain.PlacementFact{
		TournamentID: "cup", PlayerID: "alice", DayNumber: 1, GameNumber: 2, Placement: 7,
	})
	f.ledger.versions["cup"]++

	_, err = f.standings.Recalculate(ctx, "cup")
	assert.True(t, domain.IsValidation(err))

	after, _ := f.snapshots.get("cup")
	assert.Equal(t, before.SnapshotID, after.SnapshotID)
}

func TestRecalculate_CancelledBeforeWrite(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "cup", 2, "alice", "bob")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.standings.Recalculate(ctx, "cup")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.snapshots.writes)
}

func TestRecalculate_UnknownTournament(t *testing.T) {
	f := newFixture(t)

	_, err := f.standings.Recalculate(context.Background(), "nope")
	assert.True(t, domain.IsNotFound(err))
}

func TestRecalculate_UnknownTournamentsHoldNoLocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := range 500 {
		_, err := f.standings.Recalculate(ctx, fmt.Sprintf("missing-%d", i))
		require.True(t, domain.IsNotFound(err))
	}
	assert.Zero(t, f.standings.locks.size())
}

func TestRecalculate_ReleasesLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 2, "a", "b")

	_, err := f.submissions.SubmitGame(ctx, game("cup", 1, 1, "a", "b"))
	require.NoError(t, err)
	_, err = f.standings.Recalculate(ctx, "cup")
	require.NoError(t, err)
	assert.Zero(t, f.standings.locks.size())
}

func TestRecalculate_SharedRankMode(t *testing.T) {
	f := newFixture(t)
	cfg := testConfig()
	cfg.RankMode = standings.RankShared
	f.standings = NewStandingsService(f.tournaments, f.ledger, f.snapshots, cfg, f.metrics, zerolog.Nop())
	ctx := context.Background()
	f.seed(t, "cup", 2, "alice", "bob", "carol")

	// alice and bob each won one game at the same moment; carol lost one
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.ledger.facts["cup"] = []domain.PlacementFact{
		{TournamentID: "cup", PlayerID: "carol", DayNumber: 1, GameNumber: 1, Placement: 2, RecordedAt: at},
		{TournamentID: "cup", PlayerID: "alice", DayNumber: 1, GameNumber: 1, Placement: 1, RecordedAt: at},
		{TournamentID: "cup", PlayerID: "bob", DayNumber: 1, GameNumber: 2, Placement: 1, RecordedAt: at},
	}
	f.ledger.versions["cup"] = 1

	_, err := f.standings.Recalculate(ctx, "cup")
	require.NoError(t, err)

	snap, _ := f.snapshots.get("cup")
	require.Len(t, snap.Standings, 3)
	assert.Equal(t, "alice", snap.Standings[0].PlayerID)
	assert.Equal(t, 1, snap.Standings[0].Rank)
	assert.Equal(t, "bob", snap.Standings[1].PlayerID)
	assert.Equal(t, 1, snap.Standings[1].Rank)
	assert.Equal(t, "carol", snap.Standings[2].PlayerID)
	assert.Equal(t, 3, snap.Standings[2].Rank)
}

func TestRecalculate_ConcurrentSubmissionsConverge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 2, "alice", "bob")

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			players := []string{"alice", "bob"}
			if i%3 == 0 {
				players = []string{"bob", "alice"}
			}
			_, err := f.submissions.SubmitGame(ctx, game("cup", 1, i, players...))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, ok := f.snapshots.get("cup")
	require.True(t, ok)
	assert.Equal(t, f.ledger.versions["cup"], snap.LedgerVersion)
	assert.Equal(t, 20, snap.Standings[0].GamesPlayed)

	total := 0
	for _, s := range snap.Standings {
		total += s.TotalPoints
	}
	assert.Equal(t, 20*3, total)
}

func TestRecalculateAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < constants.RebuildConcurrency*2+1; i++ {
		id := fmt.Sprintf("t%02d", i)
		f.seed(t, id, 2, "alice", "bob")
		_, err := f.ledger.InsertGame(ctx, id, game(id, 1, 1, "alice", "bob").Facts())
		require.NoError(t, err)
	}

	rebuilt, err := f.standings.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, constants.RebuildConcurrency*2+1, rebuilt)
	assert.Equal(t, rebuilt, f.snapshots.writes)
}

func TestRecalculateAll_ReportsFailures(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", 2, "alice", "bob")
	f.seed(t, "b", 2, "alice", "bob")
	f.snapshots.writeErr = errors.New("read only")

	rebuilt, err := f.standings.RecalculateAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, rebuilt)
}

func TestGetStandings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 4, "a", "b", "c", "d")

	_, err := f.standings.GetStandings(ctx, "cup", 10)
	assert.True(t, domain.IsNotFound(err), "no snapshot yet")

	_, err = f.standings.GetStandings(ctx, "missing", 10)
	assert.True(t, domain.IsNotFound(err))

	_, err = f.standings.Recalculate(ctx, "cup")
	require.NoError(t, err)
	_, err = f.standings.GetStandings(ctx, "cup", 10)
	assert.True(t, domain.IsNotFound(err), "empty snapshot is not a leaderboard")

	_, err = f.submissions.SubmitGame(ctx, game("cup", 1, 1, "c", "a", "d", "b"))
	require.NoError(t, err)

	snap, err := f.standings.GetStandings(ctx, "cup", 2)
	require.NoError(t, err)
	require.Len(t, snap.Standings, 2)
	assert.Equal(t, "c", snap.Standings[0].PlayerID)
	assert.Equal(t, "a", snap.Standings[1].PlayerID)

	all, err := f.standings.GetStandings(ctx, "cup", 0)
	require.NoError(t, err)
	assert.Len(t, all.Standings, 4)
	assert.False(t, all.Stale)
}

func TestGetStandings_FlagsStaleSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 2, "a", "b")

	_, err := f.submissions.SubmitGame(ctx, game("cup", 1, 1, "a", "b"))
	require.NoError(t, err)
	f.tournaments.setLedgerVersion("cup", 1)

	snap, err := f.standings.GetStandings(ctx, "cup", 0)
	require.NoError(t, err)
	assert.False(t, snap.Stale)

	f.snapshots.mu.Lock()
	f.snapshots.writeErr = errors.New("disk full")
	f.snapshots.mu.Unlock()

	res, err := f.submissions.SubmitGame(ctx, game("cup", 1, 2, "b", "a"))
	require.NoError(t, err)
	require.True(t, res.StandingsStale)
	f.tournaments.setLedgerVersion("cup", res.LedgerVersion)

	snap, err = f.standings.GetStandings(ctx, "cup", 0)
	require.NoError(t, err)
	assert.True(t, snap.Stale)
	assert.Equal(t, int64(1), snap.LedgerVersion)
}

func TestGetPlayerStanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "cup", 2, "alice", "bob")

	_, err := f.submissions.SubmitGame(ctx, game("cup", 1, 1, "bob", "alice"))
	require.NoError(t, err)

	s, err := f.standings.GetPlayerStanding(ctx, "cup", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Rank)
	assert.Equal(t, 1, s.TotalPoints)

	_, err = f.standings.GetPlayerStanding(ctx, "cup", "carol")
	assert.True(t, domain.IsNotFound(err))

	_, err = f.standings.GetPlayerStanding(ctx, "missing", "alice")
	assert.True(t, domain.IsNotFound(err))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, constants.DefaultStandingsLimit, clampLimit(0))
	assert.Equal(t, constants.DefaultStandingsLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, constants.MaxStandingsLimit, clampLimit(constants.MaxStandingsLimit+1))
}
