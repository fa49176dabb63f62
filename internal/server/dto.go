package server

import (
	"tft-tracker/internal/domain"
	"tft-tracker/internal/service"
	"time"
)

type createTournamentRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	LobbySize int    `json:"lobbySize,omitempty"`
}

type tournamentResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LobbySize     int       `json:"lobbySize"`
	LedgerVersion int64     `json:"ledgerVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type participantPayload struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName,omitempty"`
}

type registerParticipantsRequest struct {
	Participants []participantPayload `json:"participants"`
}

type placementPayload struct {
	PlayerID  string `json:"playerId"`
	Placement int    `json:"placement"`
}

type gameRequest struct {
	Day        int                `json:"day"`
	Game       int                `json:"game"`
	Placements []placementPayload `json:"placements"`
	RecordedAt *time.Time         `json:"recordedAt,omitempty"`
}

type submissionResponse struct {
	TournamentID   string `json:"tournamentId"`
	Day            int    `json:"day"`
	Game           int    `json:"game"`
	LedgerVersion  int64  `json:"ledgerVersion"`
	StandingsStale bool   `json:"standingsStale"`
}

type standingResponse struct {
	Rank              int    `json:"rank"`
	PlayerID          string `json:"playerId"`
	TotalPoints       int    `json:"totalPoints"`
	GamesPlayed       int    `json:"gamesPlayed"`
	PlacementCounts   []int  `json:"placementCounts"`
	TopFourCount      int    `json:"topFourCount"`
	TopFourPlusFirsts int    `json:"topFourPlusFirsts"`
	RecentPlacements  []int  `json:"recentPlacements"`
	EndOfDayPlacement int    `json:"endOfDayPlacement"`
}

type standingsResponse struct {
	TournamentID  string             `json:"tournamentId"`
	SnapshotID    string             `json:"snapshotId"`
	LedgerVersion int64              `json:"ledgerVersion"`
	ComputedAt    time.Time          `json:"computedAt"`
	Stale         bool               `json:"stale"`
	Standings     []standingResponse `json:"standings"`
}

type recalculateResponse struct {
	TournamentID  string `json:"tournamentId"`
	SnapshotID    string `json:"snapshotId"`
	LedgerVersion int64  `json:"ledgerVersion"`
	PlayerCount   int    `json:"playerCount"`
	Discarded     bool   `json:"discarded"`
}

type factPayload struct {
	PlayerID  string `json:"playerId"`
	Day       int    `json:"day"`
	Game      int    `json:"game"`
	Placement int    `json:"placement"`
}

type errorResponse struct {
	Error     string        `json:"error"`
	Problems  []string      `json:"problems,omitempty"`
	Facts     []factPayload `json:"facts,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
}

func toTournamentResponse(t *domain.Tournament) tournamentResponse {
	return tournamentResponse{
		ID:            t.ID,
		Name:          t.Name,
		LobbySize:     t.LobbySize,
		LedgerVersion: t.LedgerVersion,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toParticipantPayloads(participants []domain.Participant) []participantPayload {
	out := make([]participantPayload, len(participants))
	for i, p := range participants {
		out[i] = participantPayload{PlayerID: p.PlayerID, DisplayName: p.DisplayName}
	}
	return out
}

func (g gameRequest) toDomain(tournamentID string) domain.GameResult {
	result := domain.GameResult{
		TournamentID: tournamentID,
		DayNumber:    g.Day,
		GameNumber:   g.Game,
		Placements:   make([]domain.PlayerPlacement, len(g.Placements)),
	}
	if g.RecordedAt != nil {
		result.RecordedAt = g.RecordedAt.UTC()
	}
	for i, p := range g.Placements {
		result.Placements[i] = domain.PlayerPlacement{PlayerID: p.PlayerID, Placement: p.Placement}
	}
	return result
}

func toSubmissionResponse(res *service.SubmissionResult) submissionResponse {
	return submissionResponse{
		TournamentID:   res.TournamentID,
		Day:            res.DayNumber,
		Game:           res.GameNumber,
		LedgerVersion:  res.LedgerVersion,
		StandingsStale: res.StandingsStale,
	}
}

func toStandingResponse(s domain.RankedStanding) standingResponse {
	return standingResponse{
		Rank:              s.Rank,
		PlayerID:          s.PlayerID,
		TotalPoints:       s.TotalPoints,
		GamesPlayed:       s.GamesPlayed,
		PlacementCounts:   s.PlacementCounts,
		TopFourCount:      s.TopFourCount,
		TopFourPlusFirsts: s.TopFourPlusFirsts,
		RecentPlacements:  s.RecentPlacements,
		EndOfDayPlacement: s.EndOfDayPlacement,
	}
}

func toStandingsResponse(snap *domain.Snapshot) standingsResponse {
	resp := standingsResponse{
		TournamentID:  snap.TournamentID,
		SnapshotID:    snap.SnapshotID,
		LedgerVersion: snap.LedgerVersion,
		ComputedAt:    snap.ComputedAt,
		Stale:         snap.Stale,
		Standings:     make([]standingResponse, len(snap.Standings)),
	}
	for i, s := range snap.Standings {
		resp.Standings[i] = toStandingResponse(s)
	}
	return resp
}
