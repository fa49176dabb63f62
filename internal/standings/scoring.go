// Package standings computes tournament leaderboards from placement facts.
//
// The package is pure: it performs no I/O, holds no shared state and may be
// called concurrently for different tournaments. Facts are assumed to have
// been validated at ingestion; malformed facts are rejected rather than
// silently scored.
package standings

const (
	DefaultLobbySize = 8

	// RecentWindow is how many of a player's latest placements take part in
	// the recency tiebreak.
	RecentWindow = 5

	topFourCutoff = 4
)

// Scoring maps placements to points for one lobby size:
// points = (lobbySize + 1) - placement.
type Scoring struct {
	LobbySize int
}

func NewScoring(lobbySize int) Scoring {
	if lobbySize <= 0 {
		lobbySize = DefaultLobbySize
	}
	return Scoring{LobbySize: lobbySize}
}

func (s Scoring) Points(placement int) int {
	return s.LobbySize + 1 - placement
}

// Sentinel is worse than any real placement. It fills empty recency slots.
func (s Scoring) Sentinel() int {
	return s.LobbySize + 1
}

func (s Scoring) Valid(placement int) bool {
	return placement >= 1 && placement <= s.LobbySize
}
