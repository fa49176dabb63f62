package submission

import (
	"fmt"
	"testing"
	"tft-tracker/internal/domain"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eightPlayerRules(recorded ...domain.FactKey) Rules {
	t := &domain.Tournament{ID: "cup", LobbySize: 8}
	var participants []domain.Participant
	for i := 1; i <= 9; i++ {
		participants = append(participants, domain.Participant{TournamentID: "cup", PlayerID: fmt.Sprintf("p%d", i)})
	}
	return NewRules(t, participants, recorded)
}

func fullGame() domain.GameResult {
	game := domain.GameResult{TournamentID: "cup", DayNumber: 1, GameNumber: 1, RecordedAt: time.Now()}
	for i := 1; i <= 8; i++ {
		game.Placements = append(game.Placements, domain.PlayerPlacement{PlayerID: fmt.Sprintf("p%d", i), Placement: 9 - i})
	}
	return game
}

func TestValidateGame(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *domain.GameResult)
		rules   Rules
		wantErr string
	}{
		{
			name:   "full lobby accepted",
			mutate: func(g *domain.GameResult) {},
			rules:  eightPlayerRules(),
		},
		{
			name:    "incomplete lobby",
			mutate:  func(g *domain.GameResult) { g.Placements = g.Placements[:7] },
			rules:   eightPlayerRules(),
			wantErr: "expected 8 results, got 7",
		},
		{
			name:    "duplicate placement",
			mutate:  func(g *domain.GameResult) { g.Placements[1].Placement = g.Placements[0].Placement },
			rules:   eightPlayerRules(),
			wantErr: "placement 8 given to both p1 and p2",
		},
		{
			name:    "placement out of range",
			mutate:  func(g *domain.GameResult) { g.Placements[0].Placement = 9 },
			rules:   eightPlayerRules(),
			wantErr: "placement 9 for player p1 outside 1..8",
		},
		{
			name:    "unregistered player",
			mutate:  func(g *domain.GameResult) { g.Placements[0].PlayerID = "ghost" },
			rules:   eightPlayerRules(),
			wantErr: "player ghost is not registered",
		},
		{
			name:    "same player twice",
			mutate:  func(g *domain.GameResult) { g.Placements[1].PlayerID = "p1" },
			rules:   eightPlayerRules(),
			wantErr: "player p1 appears more than once",
		},
		{
			name:    "day zero",
			mutate:  func(g *domain.GameResult) { g.DayNumber = 0 },
			rules:   eightPlayerRules(),
			wantErr: "day number 0 must be >= 1",
		},
		{
			name:   "already recorded",
			mutate: func(g *domain.GameResult) {},
			rules: eightPlayerRules(domain.FactKey{
				TournamentID: "cup", PlayerID: "p3", DayNumber: 1, GameNumber: 1,
			}),
			wantErr: "result for player p3 day 1 game 1 already recorded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := fullGame()
			tt.mutate(&game)

			err := ValidateGame(game, tt.rules)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateGame_ReportsEveryProblem(t *testing.T) {
	game := fullGame()
	game.GameNumber = 0
	game.Placements[0].PlayerID = "ghost"
	game.Placements[1].Placement = 0

	err := ValidateGame(game, eightPlayerRules())

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}

func TestValidateCorrection(t *testing.T) {
	recorded := domain.FactKey{TournamentID: "cup", PlayerID: "p1", DayNumber: 1, GameNumber: 1}

	t.Run("existing game", func(t *testing.T) {
		require.NoError(t, ValidateCorrection(fullGame(), eightPlayerRules(recorded)))
	})

	t.Run("replacement may swap in a different player", func(t *testing.T) {
		game := fullGame()
		game.Placements[7].PlayerID = "p9"
		require.NoError(t, ValidateCorrection(game, eightPlayerRules(recorded)))
	})

	t.Run("nothing to correct", func(t *testing.T) {
		err := ValidateCorrection(fullGame(), eightPlayerRules())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no recorded results to correct")
	})

	t.Run("still a full permutation", func(t *testing.T) {
		game := fullGame()
		game.Placements[2].Placement = 1
		game.Placements[7].Placement = 1
		err := ValidateCorrection(game, eightPlayerRules(recorded))
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})
}
