package service

import (
	"context"
	"slices"
	"sync"
	"testing"
	"tft-tracker/internal/config"
	"tft-tracker/internal/domain"
	"tft-tracker/internal/metrics"
	"tft-tracker/internal/standings"
	"time"

	"github.com/rs/zerolog"
)

type fakeTournaments struct {
	mu           sync.Mutex
	tournaments  map[string]*domain.Tournament
	participants map[string][]domain.Participant
	listErr      error
}

func newFakeTournaments() *fakeTournaments {
	return &fakeTournaments{
		tournaments:  map[string]*domain.Tournament{},
		participants: map[string][]domain.Participant{},
	}
}

func (f *fakeTournaments) Create(_ context.Context, t *domain.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = "t" + string(rune('a'+len(f.tournaments)))
	}
	if _, ok := f.tournaments[t.ID]; ok {
		return &domain.ValidationError{Problems: []string{"tournament " + t.ID + " already exists"}}
	}
	cp := *t
	f.tournaments[t.ID] = &cp
	return nil
}

func (f *fakeTournaments) Get(_ context.Context, id string) (*domain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "tournament", ID: id}
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTournaments) setLedgerVersion(id string, version int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tournaments[id].LedgerVersion = version
}

func (f *fakeTournaments) List(context.Context) ([]domain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Tournament
	for _, t := range f.tournaments {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b domain.Tournament) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (f *fakeTournaments) UpsertParticipants(_ context.Context, tournamentID string, participants []domain.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[tournamentID]; !ok {
		return &domain.NotFoundError{Resource: "tournament", ID: tournamentID}
	}
	for _, p := range participants {
		if p.DisplayName == "" {
			p.DisplayName = p.PlayerID
		}
		idx := slices.IndexFunc(f.participants[tournamentID], func(e domain.Participant) bool { return e.PlayerID == p.PlayerID })
		if idx >= 0 {
			f.participants[tournamentID][idx] = p
			continue
		}
		f.participants[tournamentID] = append(f.participants[tournamentID], p)
	}
	return nil
}

func (f *fakeTournaments) ListParticipants(_ context.Context, tournamentID string) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.participants[tournamentID]), nil
}

type fakeLedger struct {
	mu       sync.Mutex
	facts    map[string][]domain.PlacementFact
	versions map[string]int64

	// listFailures makes the next n ListFacts calls return listErr.
	listFailures int
	listErr      error
	insertErr    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		facts:    map[string][]domain.PlacementFact{},
		versions: map[string]int64{},
	}
}

func (f *fakeLedger) ListFacts(_ context.Context, tournamentID string) ([]domain.PlacementFact, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listFailures > 0 {
		f.listFailures--
		return nil, 0, f.listErr
	}
	return slices.Clone(f.facts[tournamentID]), f.versions[tournamentID], nil
}

func (f *fakeLedger) GameFacts(_ context.Context, tournamentID string, day, game int) ([]domain.PlacementFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var facts []domain.PlacementFact
	for _, fact := range f.facts[tournamentID] {
		if fact.DayNumber == day && fact.GameNumber == game {
			facts = append(facts, fact)
		}
	}
	return facts, nil
}

func (f *fakeLedger) InsertGame(_ context.Context, tournamentID string, facts []domain.PlacementFact) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.facts[tournamentID] = append(f.facts[tournamentID], facts...)
	f.versions[tournamentID]++
	return f.versions[tournamentID], nil
}

func (f *fakeLedger) ReplaceGame(_ context.Context, tournamentID string, day, game int, facts []domain.PlacementFact) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dropGame(tournamentID, day, game) {
		return 0, &domain.NotFoundError{Resource: "game", ID: tournamentID}
	}
	f.facts[tournamentID] = append(f.facts[tournamentID], facts...)
	f.versions[tournamentID]++
	return f.versions[tournamentID], nil
}

func (f *fakeLedger) DeleteGame(_ context.Context, tournamentID string, day, game int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dropGame(tournamentID, day, game) {
		return 0, &domain.NotFoundError{Resource: "game", ID: tournamentID}
	}
	f.versions[tournamentID]++
	return f.versions[tournamentID], nil
}

func (f *fakeLedger) dropGame(tournamentID string, day, game int) bool {
	before := len(f.facts[tournamentID])
	f.facts[tournamentID] = slices.DeleteFunc(f.facts[tournamentID], func(p domain.PlacementFact) bool {
		return p.DayNumber == day && p.GameNumber == game
	})
	return len(f.facts[tournamentID]) != before
}

type fakeSnapshots struct {
	mu        sync.Mutex
	snapshots map[string]domain.Snapshot
	writes    int
	writeErr  error
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snapshots: map[string]domain.Snapshot{}}
}

func (f *fakeSnapshots) ReplaceSnapshot(_ context.Context, snap domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if cur, ok := f.snapshots[snap.TournamentID]; ok && cur.LedgerVersion > snap.LedgerVersion {
		return domain.ErrConcurrencyConflict
	}
	f.snapshots[snap.TournamentID] = snap
	f.writes++
	return nil
}

func (f *fakeSnapshots) GetSnapshot(_ context.Context, tournamentID string, limit int) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[tournamentID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "standings", ID: tournamentID}
	}
	if limit > 0 && limit < len(snap.Standings) {
		snap.Standings = snap.Standings[:limit]
	}
	return &snap, nil
}

func (f *fakeSnapshots) GetStanding(_ context.Context, tournamentID, playerID string) (*domain.RankedStanding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.snapshots[tournamentID].Standings {
		if s.PlayerID == playerID {
			return &s, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "player standing", ID: playerID}
}

func (f *fakeSnapshots) get(tournamentID string) (domain.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[tournamentID]
	return snap, ok
}

type fixture struct {
	tournaments *fakeTournaments
	ledger      *fakeLedger
	snapshots   *fakeSnapshots
	metrics     *metrics.Metrics
	standings   *StandingsService
	submissions *SubmissionService
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultLobbySize:  8,
		RankMode:          standings.RankUnique,
		RecalcMaxRetries:  3,
		RecalcBaseBackoff: time.Millisecond,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		tournaments: newFakeTournaments(),
		ledger:      newFakeLedger(),
		snapshots:   newFakeSnapshots(),
		metrics:     metrics.New(),
	}
	f.standings = NewStandingsService(f.tournaments, f.ledger, f.snapshots, testConfig(), f.metrics, zerolog.Nop())
	f.submissions = NewSubmissionService(f.tournaments, f.ledger, f.standings, f.metrics, zerolog.Nop())
	return f
}

// seed registers a tournament with the given lobby size and players.
func (f *fixture) seed(t *testing.T, id string, lobby int, players ...string) {
	t.Helper()
	ctx := context.Background()

	if err := f.tournaments.Create(ctx, &domain.Tournament{ID: id, Name: id, LobbySize: lobby}); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	participants := make([]domain.Participant, len(players))
	for i, p := range players {
		participants[i] = domain.Participant{TournamentID: id, PlayerID: p}
	}
	if err := f.tournaments.UpsertParticipants(ctx, id, participants); err != nil {
		t.Fatalf("register participants: %v", err)
	}
}

// game builds a result where players finish in the order given.
func game(tournamentID string, day, number int, players ...string) domain.GameResult {
	g := domain.GameResult{
		TournamentID: tournamentID,
		DayNumber:    day,
		GameNumber:   number,
		RecordedAt:   time.Date(2026, 5, day, 10, number, 0, 0, time.UTC),
	}
	for i, p := range players {
		g.Placements = append(g.Placements, domain.PlayerPlacement{PlayerID: p, Placement: i + 1})
	}
	return g
}
